// Package calculon is the worker side of the pipeline: it reads argument
// records, evaluates one trial function and writes one result record per
// argument, in order.
package calculon

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/fgpipe/internal/shared/types"
	"github.com/GriffinCanCode/fgpipe/internal/wire"
)

// Evaluator computes one result per argument
type Evaluator interface {
	Role() types.Role
	Function() types.Function
	Evaluate(x int64) types.Value
}

// Worker serves one argument stream
type Worker struct {
	eval   Evaluator
	logger *zap.Logger
	served int
}

// New creates a worker around eval
func New(eval Evaluator, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		eval: eval,
		logger: logger.With(
			zap.Stringer("worker", eval.Role()),
			zap.Stringer("function", eval.Function())),
	}
}

// Served returns the number of arguments answered so far
func (w *Worker) Served() int {
	return w.served
}

// Serve answers arguments from r on out until r reaches end of stream.
// A clean end of stream returns nil; a stream ending inside a record
// returns wire.ErrShortRecord.
func (w *Worker) Serve(r io.Reader, out io.Writer) error {
	for {
		x, err := wire.ReadArg(r)
		if errors.Is(err, io.EOF) {
			w.logger.Debug("Argument channel closed", zap.Int("served", w.served))
			return nil
		}
		if err != nil {
			return fmt.Errorf("read argument: %w", err)
		}

		v := w.eval.Evaluate(x)
		if err := wire.WriteResult(out, v); err != nil {
			return fmt.Errorf("write result for x=%d: %w", x, err)
		}
		w.served++

		w.logger.Debug("Evaluated",
			zap.Int64("x", x),
			zap.Stringer("status", v.Status()),
			zap.Stringer("value", v))
	}
}

// ServePaths opens the named pipes and serves until the manager closes the
// argument channel
func (w *Worker) ServePaths(argsPath, resultsPath string) (err error) {
	args, err := os.OpenFile(argsPath, os.O_RDONLY, 0)
	if err != nil {
		return fmt.Errorf("open argument channel: %w", err)
	}
	defer func() { err = multierr.Append(err, args.Close()) }()

	results, err := os.OpenFile(resultsPath, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("open result channel: %w", err)
	}
	defer func() { err = multierr.Append(err, results.Close()) }()

	return w.Serve(args, results)
}
