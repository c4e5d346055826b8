package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GriffinCanCode/fgpipe/internal/channel"
	"github.com/GriffinCanCode/fgpipe/internal/control"
	"github.com/GriffinCanCode/fgpipe/internal/infrastructure/config"
	"github.com/GriffinCanCode/fgpipe/internal/infrastructure/logging"
	"github.com/GriffinCanCode/fgpipe/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/fgpipe/internal/manager"
	"github.com/GriffinCanCode/fgpipe/internal/output"
	"github.com/GriffinCanCode/fgpipe/internal/report"
	"github.com/GriffinCanCode/fgpipe/internal/shared/id"
	"github.com/GriffinCanCode/fgpipe/internal/shared/paths"
	"github.com/GriffinCanCode/fgpipe/internal/shared/types"
)

// Options select what a run computes and where it reads and writes
type Options struct {
	Config *config.Config
	// Functions are indexed by role
	Functions [types.WorkerCount]types.Function
	Final     types.Function

	// Stdin is the input descriptor; results go to Stdout, prompts and
	// worker diagnostics to Stderr
	Stdin  int
	Stdout io.Writer
	Stderr io.Writer

	// Signals delivers interrupts; nil disables interrupt handling
	Signals <-chan os.Signal
	Logger  *zap.Logger
}

// App is one run of the pipeline
type App struct {
	opts   Options
	cfg    *config.Config
	logger *zap.Logger

	run       paths.Run
	prov      *channel.Provisioner
	channels  [types.WorkerCount]*channel.Channel
	processes [types.WorkerCount]*channel.Process
	waits     *errgroup.Group

	metrics *monitoring.Metrics
	server  *monitoring.Server
	summary *report.Collector
}

// New validates options. Nothing is started until Run.
func New(opts Options) (*App, error) {
	if opts.Config == nil {
		opts.Config = config.Default()
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewNop().Logger
	}

	runID := id.NewRunID()
	run := paths.ForRun(opts.Config.Worker.FifoDir, runID)
	if err := run.Validate(); err != nil {
		return nil, err
	}
	started, err := runID.Time()
	if err != nil {
		return nil, err
	}

	logger := opts.Logger.Named("app").With(
		zap.String("run", runID.String()),
		zap.Time("run_started", started))

	return &App{
		opts:    opts,
		cfg:     opts.Config,
		logger:  logger,
		run:     run,
		prov:    channel.NewProvisioner(run),
		waits:   &errgroup.Group{},
		metrics: monitoring.NewMetrics(),
		summary: report.NewCollector(),
	}, nil
}

// Summary returns the statistics of the outcomes emitted so far
func (a *App) Summary() report.Summary {
	return a.summary.Summary()
}

// Run executes the pipeline until the input is drained, ctx is cancelled,
// or a fatal error occurs. Close must be called afterwards.
func (a *App) Run(ctx context.Context) error {
	if err := a.start(); err != nil {
		return err
	}

	format, err := output.ParseFormat(a.cfg.Output.Format)
	if err != nil {
		return err
	}

	poller := manager.NewPoller()
	source := manager.NewSource(a.opts.Stdin, poller)

	var workers [types.WorkerCount]manager.Worker
	for _, role := range types.Roles() {
		workers[role] = a.channels[role]
	}

	mgr, err := manager.New(manager.Options{
		Capacity:     a.cfg.Pipeline.BufferSize,
		MaxSoftRetry: a.cfg.Pipeline.MaxSoftRetry,
		RetryBackoff: a.cfg.Pipeline.RetryBackoff.Std(),
		PollTimeout:  a.cfg.Pipeline.PollTimeout.Std(),
		DrainTimeout: a.cfg.Pipeline.DrainTimeout.Std(),
		Final:        a.opts.Final,
	}, manager.Deps{
		Workers:  workers,
		Source:   source,
		Poller:   poller,
		Emitter:  manager.Emitters{output.NewPrinter(a.opts.Stdout, format), a.summary},
		Logger:   a.opts.Logger.Named("manager"),
		Observer: a.metrics,
	})
	if err != nil {
		return err
	}

	guard := &control.Guard{
		Signals: a.opts.Signals,
		Prompt:  a.opts.Stderr,
		Timeout: a.cfg.Control.ConfirmTimeout.Std(),
		Logger:  a.logger,
	}
	if a.cfg.Control.ConfirmShutdown {
		guard.Reader = source
	}

	a.logger.Info("Pipeline running",
		zap.Stringer("f", a.opts.Functions[types.RoleF]),
		zap.Stringer("g", a.opts.Functions[types.RoleG]),
		zap.Stringer("final", a.opts.Final),
		zap.Int("buffer_size", a.cfg.Pipeline.BufferSize),
		zap.Int("max_soft_retry", a.cfg.Pipeline.MaxSoftRetry))

	err = mgr.Run(ctx, func(m *manager.Manager) error {
		if err := a.reapWorkers(m); err != nil {
			return err
		}
		return guard.Tick(m)
	})

	a.logger.Info("Run summary", a.summary.Summary().Fields()...)
	return err
}

// start provisions the pipes, opens the manager's ends and spawns the workers
func (a *App) start() error {
	if err := a.prov.Create(); err != nil {
		return err
	}
	a.logger.Debug("Created worker channels", zap.String("dir", a.run.Dir()))

	for _, role := range types.Roles() {
		ch, err := channel.Open(role, a.opts.Functions[role], a.run.Args(role), a.run.Results(role))
		if err != nil {
			return err
		}
		a.channels[role] = ch
	}

	spawner := &channel.Spawner{
		Binary: a.cfg.Worker.Binary,
		Args:   []string{"--soft-attempts", strconv.Itoa(a.cfg.Worker.SoftAttempts)},
		Stderr: a.opts.Stderr,
	}
	for _, role := range types.Roles() {
		proc, err := spawner.Start(role, a.opts.Functions[role], a.run)
		if err != nil {
			return err
		}
		a.processes[role] = proc
		a.waits.Go(func() error {
			if err := proc.Wait(); err != nil {
				return fmt.Errorf("worker %s: %w", proc.Role, err)
			}
			return nil
		})
		a.logger.Info("Started worker",
			zap.Stringer("worker", role),
			zap.Stringer("function", a.opts.Functions[role]),
			zap.Int("pid", proc.Pid()))
	}

	if addr := a.cfg.Metrics.Addr; addr != "" {
		srv, err := monitoring.Serve(addr, a.metrics, a.opts.Logger.Named("metrics"))
		if err != nil {
			return err
		}
		a.server = srv
	}
	return nil
}

// reapWorkers reports exited worker processes to the manager
func (a *App) reapWorkers(m *manager.Manager) error {
	for _, proc := range a.processes {
		if proc == nil {
			continue
		}
		select {
		case <-proc.Done():
			if err := m.WorkerGone(proc.Role); err != nil {
				return err
			}
		default:
		}
	}
	return nil
}

// Close stops the workers, removes the pipes and stops the metrics server
func (a *App) Close() error {
	var err error

	// Closing the argument channels lets the workers exit on their own
	for i, ch := range a.channels {
		if ch != nil {
			err = multierr.Append(err, ch.Close())
			a.channels[i] = nil
		}
	}
	err = multierr.Append(err, a.stopWorkers())
	err = multierr.Append(err, a.prov.Remove())

	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		err = multierr.Append(err, a.server.Shutdown(ctx))
		cancel()
		a.server = nil
	}
	return err
}

func (a *App) stopWorkers() error {
	started := false
	for _, proc := range a.processes {
		started = started || proc != nil
	}
	if !started {
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- a.waits.Wait() }()

	grace := a.cfg.Worker.TerminateGrace.Std()
	select {
	case err := <-done:
		return err
	case <-time.After(grace):
	}

	a.logger.Warn("Workers still running, terminating", zap.Duration("grace", grace))
	for _, proc := range a.processes {
		if proc != nil {
			proc.Terminate(grace)
		}
	}
	err := <-done
	var exitErr interface{ ExitCode() int }
	if errors.As(err, &exitErr) {
		a.logger.Debug("Worker terminated", zap.Error(err))
		return nil
	}
	return err
}
