package types

import (
	"fmt"
	"math"
	"strconv"
)

// Status is the outcome a worker reports for one argument
type Status int32

const (
	StatusSuccess Status = iota
	StatusSoftFail
	StatusHardFail
)

// String returns the string representation of the status
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusSoftFail:
		return "soft_fail"
	case StatusHardFail:
		return "hard_fail"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the known statuses
func (s Status) Valid() bool {
	return s >= StatusSuccess && s <= StatusHardFail
}

// Kind tags the payload of a Value
type Kind int32

const (
	KindInt Kind = iota
	KindUint
	KindFloat
	KindBool
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Valid reports whether k is one of the known kinds
func (k Kind) Valid() bool {
	return k >= KindInt && k <= KindBool
}

// Value is a worker result: a status and a payload tagged by its kind.
// The payload is only observable through the accessor matching the kind,
// and only when the status is StatusSuccess.
type Value struct {
	status Status
	kind   Kind
	bits   uint64
}

// Int creates a successful int value
func Int(v int64) Value {
	return Value{status: StatusSuccess, kind: KindInt, bits: uint64(v)}
}

// Uint creates a successful uint value
func Uint(v uint64) Value {
	return Value{status: StatusSuccess, kind: KindUint, bits: v}
}

// Float creates a successful float value
func Float(v float64) Value {
	return Value{status: StatusSuccess, kind: KindFloat, bits: math.Float64bits(v)}
}

// Bool creates a successful bool value
func Bool(v bool) Value {
	var bits uint64
	if v {
		bits = 1
	}
	return Value{status: StatusSuccess, kind: KindBool, bits: bits}
}

// Failure creates a failed value of the given kind
func Failure(status Status, kind Kind) Value {
	return Value{status: status, kind: kind}
}

// FromRaw rebuilds a value from its wire representation.
// Payload bits of failed values are discarded.
func FromRaw(status Status, kind Kind, bits uint64) (Value, error) {
	if !status.Valid() {
		return Value{}, fmt.Errorf("invalid status %d", status)
	}
	if !kind.Valid() {
		return Value{}, fmt.Errorf("invalid kind %d", kind)
	}
	if status != StatusSuccess {
		return Failure(status, kind), nil
	}
	if kind == KindBool && bits > 1 {
		bits = 1
	}
	return Value{status: status, kind: kind, bits: bits}, nil
}

// Status returns the value status
func (v Value) Status() Status { return v.status }

// Kind returns the payload kind
func (v Value) Kind() Kind { return v.kind }

// OK reports whether the value holds a successful payload
func (v Value) OK() bool { return v.status == StatusSuccess }

// Bits returns the raw payload for encoding; zero for failures
func (v Value) Bits() uint64 {
	if !v.OK() {
		return 0
	}
	return v.bits
}

// Int returns the int payload
func (v Value) Int() (int64, bool) {
	if !v.OK() || v.kind != KindInt {
		return 0, false
	}
	return int64(v.bits), true
}

// Uint returns the uint payload
func (v Value) Uint() (uint64, bool) {
	if !v.OK() || v.kind != KindUint {
		return 0, false
	}
	return v.bits, true
}

// Float returns the float payload
func (v Value) Float() (float64, bool) {
	if !v.OK() || v.kind != KindFloat {
		return 0, false
	}
	return math.Float64frombits(v.bits), true
}

// Bool returns the bool payload
func (v Value) Bool() (bool, bool) {
	if !v.OK() || v.kind != KindBool {
		return false, false
	}
	return v.bits != 0, true
}

// Payload returns the decoded payload as int64, uint64, float64 or bool,
// or nil when the value is not successful.
func (v Value) Payload() interface{} {
	if !v.OK() {
		return nil
	}
	switch v.kind {
	case KindInt:
		return int64(v.bits)
	case KindUint:
		return v.bits
	case KindFloat:
		return math.Float64frombits(v.bits)
	case KindBool:
		return v.bits != 0
	}
	return nil
}

// String formats the payload, or the status for failures
func (v Value) String() string {
	if !v.OK() {
		return v.status.String()
	}
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(int64(v.bits), 10)
	case KindUint:
		return strconv.FormatUint(v.bits, 10)
	case KindFloat:
		return strconv.FormatFloat(math.Float64frombits(v.bits), 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.bits != 0)
	}
	return "unknown"
}
