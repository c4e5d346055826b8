package manager

import (
	"github.com/GriffinCanCode/fgpipe/internal/shared/types"
)

// Combine casts both results to fn's kind and applies fn.
//
// Arithmetic functions need both results. and/or short-circuit on a single
// successful dominant value (false for and, true for or); a hard failure and
// an exhausted soft failure are treated alike.
func Combine(fn types.Function, f, g types.Value) types.Value {
	kind := fn.ResultKind()
	f = types.Cast(f, kind)
	g = types.Cast(g, kind)

	switch fn {
	case types.FuncAnd:
		return shortCircuit(f, g, false)
	case types.FuncOr:
		return shortCircuit(f, g, true)
	}

	if !f.OK() || !g.OK() {
		return failure(kind, f, g)
	}

	switch fn {
	case types.FuncIMul:
		a, _ := f.Int()
		b, _ := g.Int()
		return types.Int(a * b)
	case types.FuncIMin:
		a, _ := f.Uint()
		b, _ := g.Uint()
		return types.Uint(min(a, b))
	case types.FuncFMul:
		a, _ := f.Float()
		b, _ := g.Float()
		return types.Float(a * b)
	}
	return types.Failure(types.StatusHardFail, kind)
}

// shortCircuit combines bools where dominant decides the result alone
func shortCircuit(f, g types.Value, dominant bool) types.Value {
	a, aok := f.Bool()
	b, bok := g.Bool()

	switch {
	case aok && bok:
		if dominant {
			return types.Bool(a || b)
		}
		return types.Bool(a && b)
	case aok && a == dominant, bok && b == dominant:
		return types.Bool(dominant)
	}
	return failure(types.KindBool, f, g)
}

// failure reports the most severe status among the failed inputs
func failure(kind types.Kind, vs ...types.Value) types.Value {
	status := types.StatusSoftFail
	for _, v := range vs {
		if !v.OK() && v.Status() > status {
			status = v.Status()
		}
	}
	return types.Failure(status, kind)
}
