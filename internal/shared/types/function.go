package types

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownFunction = errors.New("unknown function")
	ErrUnknownRole     = errors.New("unknown worker role")
)

// Function identifies a trial function, used both by workers and as the
// final combining function
type Function int

const (
	FuncIMul Function = iota
	FuncIMin
	FuncFMul
	FuncAnd
	FuncOr
)

var functionNames = [...]string{
	FuncIMul: "imul",
	FuncIMin: "imin",
	FuncFMul: "fmul",
	FuncAnd:  "and",
	FuncOr:   "or",
}

var functionKinds = [...]Kind{
	FuncIMul: KindInt,
	FuncIMin: KindUint,
	FuncFMul: KindFloat,
	FuncAnd:  KindBool,
	FuncOr:   KindBool,
}

// Functions returns every known function in declaration order
func Functions() []Function {
	return []Function{FuncIMul, FuncIMin, FuncFMul, FuncAnd, FuncOr}
}

// FunctionNames returns the accepted function names
func FunctionNames() []string {
	names := make([]string, len(functionNames))
	copy(names, functionNames[:])
	return names
}

// ParseFunction resolves a function by name
func ParseFunction(name string) (Function, error) {
	for i, n := range functionNames {
		if n == name {
			return Function(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q (want one of %s)", ErrUnknownFunction, name, strings.Join(functionNames[:], ", "))
}

// String returns the function name
func (f Function) String() string {
	if f < 0 || int(f) >= len(functionNames) {
		return "unknown"
	}
	return functionNames[f]
}

// ResultKind returns the kind of value the function produces
func (f Function) ResultKind() Kind {
	return functionKinds[f]
}

// UnmarshalText implements encoding.TextUnmarshaler so functions can be
// used directly as CLI arguments and config fields
func (f *Function) UnmarshalText(text []byte) error {
	parsed, err := ParseFunction(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler
func (f Function) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// Role identifies one of the two workers
type Role int

const (
	RoleF Role = iota
	RoleG

	// WorkerCount is the number of workers a manager drives
	WorkerCount = 2
)

// Roles returns both worker roles in slot order
func Roles() [WorkerCount]Role {
	return [WorkerCount]Role{RoleF, RoleG}
}

// ParseRole resolves "f" or "g"
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(s) {
	case "f":
		return RoleF, nil
	case "g":
		return RoleG, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// String returns "f" or "g"
func (r Role) String() string {
	switch r {
	case RoleF:
		return "f"
	case RoleG:
		return "g"
	default:
		return "unknown"
	}
}

// UnmarshalText implements encoding.TextUnmarshaler
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
