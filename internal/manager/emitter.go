package manager

import (
	"time"

	"go.uber.org/multierr"

	"github.com/GriffinCanCode/fgpipe/internal/shared/types"
)

// Outcome is one finalized input
type Outcome struct {
	X     int64
	Final types.Function
	// F and G are the worker results as received, before casting
	F types.Value
	G types.Value
	// Result is the combined value in the final function's kind
	Result  types.Value
	Retries int
	Latency time.Duration
}

// Emitter receives outcomes in input order
type Emitter interface {
	Emit(Outcome) error
}

// EmitterFunc adapts a function to Emitter
type EmitterFunc func(Outcome) error

// Emit calls f
func (f EmitterFunc) Emit(o Outcome) error {
	return f(o)
}

// Emitters fans an outcome out to several emitters
type Emitters []Emitter

// Emit delivers o to every emitter and combines their errors
func (es Emitters) Emit(o Outcome) error {
	var err error
	for _, e := range es {
		err = multierr.Append(err, e.Emit(o))
	}
	return err
}
