package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/alexflint/go-arg"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/fgpipe/internal/app"
	"github.com/GriffinCanCode/fgpipe/internal/control"
	"github.com/GriffinCanCode/fgpipe/internal/infrastructure/config"
	"github.com/GriffinCanCode/fgpipe/internal/infrastructure/logging"
	"github.com/GriffinCanCode/fgpipe/internal/output"
	"github.com/GriffinCanCode/fgpipe/internal/shared/types"
)

type args struct {
	F     types.Function `arg:"positional,required" help:"function evaluated by worker F"`
	G     types.Function `arg:"positional,required" help:"function evaluated by worker G"`
	Final types.Function `arg:"positional,required" help:"function combining both results"`

	Config    string `arg:"--config" help:"TOML or YAML configuration file"`
	Format    string `arg:"--format" help:"output format: text or json"`
	Worker    string `arg:"--worker" help:"worker executable"`
	NoConfirm bool   `arg:"--no-confirm" help:"shut down on interrupt without asking"`
}

func (args) Description() string {
	return "Feeds stdin integers to two workers and prints the combined results.\n" +
		"Functions: " + strings.Join(types.FunctionNames(), ", ")
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

	cfg, err := config.Load(a.Config)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	if err := applyFlags(cfg, a); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 2
	}

	logger, err := logging.New(logging.FromConfig(cfg.Logging))
	if err != nil {
		fmt.Fprintln(os.Stderr, "error: logger:", err)
		return 1
	}
	defer logger.Close()

	sigs, stop := control.Notify()
	defer stop()

	application, err := app.New(app.Options{
		Config:    cfg,
		Functions: [types.WorkerCount]types.Function{a.F, a.G},
		Final:     a.Final,
		Stdin:     int(os.Stdin.Fd()),
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
		Signals:   sigs,
		Logger:    logger.Logger,
	})
	if err != nil {
		logger.Error("Invalid setup", zap.Error(err))
		return 1
	}

	err = multierr.Append(application.Run(context.Background()), application.Close())
	if err != nil {
		logger.Error("Run failed", zap.Error(err))
		return 1
	}
	return 0
}

// applyFlags lets command line options override loaded configuration
func applyFlags(cfg *config.Config, a args) error {
	if a.Format != "" {
		if _, err := output.ParseFormat(a.Format); err != nil {
			return err
		}
		cfg.Output.Format = a.Format
	}
	if a.Worker != "" {
		cfg.Worker.Binary = a.Worker
	}
	if a.NoConfirm {
		cfg.Control.ConfirmShutdown = false
	}
	cfg.Worker.Binary = resolveWorker(cfg.Worker.Binary)
	return cfg.Validate()
}

// resolveWorker finds a bare worker name next to this executable when it is
// not on PATH
func resolveWorker(name string) string {
	if strings.ContainsRune(name, filepath.Separator) {
		return name
	}
	if _, err := exec.LookPath(name); err == nil {
		return name
	}
	self, err := os.Executable()
	if err != nil {
		return name
	}
	sibling := filepath.Join(filepath.Dir(self), name)
	if _, err := os.Stat(sibling); err == nil {
		return sibling
	}
	return name
}
