package types

import "math"

// Cast converts v to kind to.
//
// Successful payloads are converted with C-like semantics: int and uint
// reinterpret two's complement, floats truncate toward zero, anything
// becomes true when non-zero, and bools become 0 or 1. A failed value keeps
// its status and only changes its kind tag.
func Cast(v Value, to Kind) Value {
	if v.kind == to {
		return v
	}
	if !v.OK() {
		return Failure(v.status, to)
	}

	switch v.kind {
	case KindInt:
		i := int64(v.bits)
		switch to {
		case KindUint:
			return Uint(uint64(i))
		case KindFloat:
			return Float(float64(i))
		case KindBool:
			return Bool(i != 0)
		}
	case KindUint:
		u := v.bits
		switch to {
		case KindInt:
			return Int(int64(u))
		case KindFloat:
			return Float(float64(u))
		case KindBool:
			return Bool(u != 0)
		}
	case KindFloat:
		f := math.Float64frombits(v.bits)
		switch to {
		case KindInt:
			return Int(floatToInt(f))
		case KindUint:
			return Uint(floatToUint(f))
		case KindBool:
			return Bool(f != 0)
		}
	case KindBool:
		var n uint64
		if v.bits != 0 {
			n = 1
		}
		switch to {
		case KindInt:
			return Int(int64(n))
		case KindUint:
			return Uint(n)
		case KindFloat:
			return Float(float64(n))
		}
	}

	return Failure(StatusHardFail, to)
}

// floatToInt truncates toward zero, saturating at the int64 range and mapping NaN to 0
func floatToInt(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

// floatToUint truncates toward zero; negative values wrap like their int64 truncation
func floatToUint(f float64) uint64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxUint64:
		return math.MaxUint64
	case f < 0:
		return uint64(floatToInt(f))
	}
	return uint64(f)
}
