// Package trial holds the functions workers evaluate.
//
// Each function has an F and a G variant with different result kinds and
// failure behavior. Some variants fail transiently on particular arguments:
// the first evaluations report a soft failure and later ones succeed, which
// exercises the manager's retry path.
package trial

import (
	"fmt"

	"github.com/GriffinCanCode/fgpipe/internal/shared/types"
)

// Func evaluates x. transient is true while a transient fault for x is
// still active.
type Func func(x int64, transient bool) types.Value

var table = map[types.Function][types.WorkerCount]Func{
	types.FuncIMul: {fIMul, gIMul},
	types.FuncIMin: {fIMin, gIMin},
	types.FuncFMul: {fFMul, gFMul},
	types.FuncAnd:  {fAnd, gAnd},
	types.FuncOr:   {fOr, gOr},
}

// Lookup returns the variant of fn evaluated by role
func Lookup(role types.Role, fn types.Function) (Func, error) {
	variants, ok := table[fn]
	if !ok {
		return nil, fmt.Errorf("%w: %d", types.ErrUnknownFunction, fn)
	}
	if role != types.RoleF && role != types.RoleG {
		return nil, fmt.Errorf("%w: %d", types.ErrUnknownRole, role)
	}
	return variants[role], nil
}

func soft(k types.Kind) types.Value { return types.Failure(types.StatusSoftFail, k) }
func hard(k types.Kind) types.Value { return types.Failure(types.StatusHardFail, k) }

func fIMul(x int64, transient bool) types.Value {
	switch {
	case x == 1 && transient:
		return soft(types.KindInt)
	case x < 0:
		return hard(types.KindInt)
	}
	return types.Int(3*x + 1)
}

func gIMul(x int64, _ bool) types.Value {
	if x == 7 {
		return hard(types.KindInt)
	}
	return types.Int(x + 5)
}

func fIMin(x int64, transient bool) types.Value {
	if x == 1 && transient {
		return soft(types.KindUint)
	}
	if x < 0 {
		x = -x
	}
	return types.Uint(uint64(x) + 2)
}

func gIMin(x int64, _ bool) types.Value {
	return types.Uint(uint64(x * x))
}

func fFMul(x int64, _ bool) types.Value {
	return types.Float(float64(x) / 2)
}

func gFMul(x int64, transient bool) types.Value {
	if x == 3 && transient {
		return soft(types.KindFloat)
	}
	return types.Float(float64(x) + 0.5)
}

func fAnd(x int64, _ bool) types.Value {
	return types.Bool(x%2 == 0)
}

func gAnd(x int64, _ bool) types.Value {
	if x < 0 {
		return hard(types.KindBool)
	}
	return types.Bool(x%3 == 0)
}

func fOr(x int64, _ bool) types.Value {
	return types.Bool(x > 2)
}

func gOr(x int64, transient bool) types.Value {
	switch {
	case x == 0 && transient:
		return soft(types.KindBool)
	case x < 0:
		return hard(types.KindBool)
	}
	return types.Bool(x%2 != 0)
}
