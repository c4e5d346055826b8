package trial

import (
	"github.com/GriffinCanCode/fgpipe/internal/shared/types"
)

// DefaultSoftAttempts is how many evaluations of an argument fail transiently
const DefaultSoftAttempts = 1

// Evaluator applies one trial function and remembers how often each
// argument was evaluated
type Evaluator struct {
	role         types.Role
	fn           types.Function
	eval         Func
	softAttempts int
	attempts     map[int64]int
}

// Option configures an Evaluator
type Option func(*Evaluator)

// WithSoftAttempts sets how many evaluations of an argument fail before a
// transient fault clears; zero disables transient faults
func WithSoftAttempts(n int) Option {
	return func(e *Evaluator) {
		if n >= 0 {
			e.softAttempts = n
		}
	}
}

// NewEvaluator builds the evaluator for role's variant of fn
func NewEvaluator(role types.Role, fn types.Function, opts ...Option) (*Evaluator, error) {
	eval, err := Lookup(role, fn)
	if err != nil {
		return nil, err
	}
	e := &Evaluator{
		role:         role,
		fn:           fn,
		eval:         eval,
		softAttempts: DefaultSoftAttempts,
		attempts:     make(map[int64]int),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Role returns the worker role
func (e *Evaluator) Role() types.Role { return e.role }

// Function returns the evaluated function
func (e *Evaluator) Function() types.Function { return e.fn }

// Evaluate computes the result for x
func (e *Evaluator) Evaluate(x int64) types.Value {
	e.attempts[x]++
	return e.eval(x, e.attempts[x] <= e.softAttempts)
}

// Attempts returns how many times x was evaluated
func (e *Evaluator) Attempts(x int64) int {
	return e.attempts[x]
}
