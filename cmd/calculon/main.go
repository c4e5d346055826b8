package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alexflint/go-arg"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/fgpipe/internal/calculon"
	"github.com/GriffinCanCode/fgpipe/internal/infrastructure/logging"
	"github.com/GriffinCanCode/fgpipe/internal/shared/types"
	"github.com/GriffinCanCode/fgpipe/internal/trial"
)

type args struct {
	Role     types.Role     `arg:"positional,required" help:"worker role: f or g"`
	Function types.Function `arg:"positional,required" help:"function to evaluate"`

	Args         string `arg:"--args,required" help:"argument pipe"`
	Results      string `arg:"--results,required" help:"result pipe"`
	SoftAttempts int    `arg:"--soft-attempts" default:"1" help:"evaluations of an argument that fail transiently"`
	LogLevel     string `arg:"--log-level,env:FGPIPE_LOG_LEVEL" default:"info" help:"log level"`
}

func main() {
	os.Exit(run())
}

func run() int {
	var a args
	p, err := arg.NewParser(arg.Config{}, &a)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if err := p.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, arg.ErrHelp) {
			p.WriteHelp(os.Stdout)
			return 0
		}
		p.WriteUsage(os.Stderr)
		fmt.Fprintln(os.Stderr, "error:", err)
		return 2
	}

	cfg := logging.DefaultConfig()
	cfg.Level = a.LogLevel
	logger, err := logging.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error: logger:", err)
		return 2
	}
	defer logger.Close()
	log := logger.Component("calculon").With(zap.Int("pid", os.Getpid()))

	eval, err := trial.NewEvaluator(a.Role, a.Function, trial.WithSoftAttempts(a.SoftAttempts))
	if err != nil {
		log.Error("Invalid worker", zap.Error(err))
		return 2
	}

	w := calculon.New(eval, log)
	if err := w.ServePaths(a.Args, a.Results); err != nil {
		log.Error("Worker failed", zap.Error(err), zap.Int("served", w.Served()))
		return 1
	}
	log.Debug("Worker done", zap.Int("served", w.Served()))
	return 0
}
