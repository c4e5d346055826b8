// Package output prints finalized pipeline results, one line per input.
package output

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/bytedance/sonic"

	"github.com/GriffinCanCode/fgpipe/internal/manager"
	"github.com/GriffinCanCode/fgpipe/internal/shared/types"
)

// ErrUnknownFormat is returned for formats other than text and json
var ErrUnknownFormat = errors.New("unknown output format")

// Format selects the line encoding
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatText, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Line is the JSON shape of one result
type Line struct {
	X       int64       `json:"x"`
	OK      bool        `json:"ok"`
	Status  string      `json:"status"`
	Kind    string      `json:"kind"`
	Value   interface{} `json:"value"`
	F       string      `json:"f"`
	G       string      `json:"g"`
	Retries int         `json:"retries"`
}

// Printer writes outcomes to an io.Writer. It implements manager.Emitter.
type Printer struct {
	mu     sync.Mutex
	w      *bufio.Writer
	format Format
}

// NewPrinter creates a printer writing format to w
func NewPrinter(w io.Writer, format Format) *Printer {
	return &Printer{w: bufio.NewWriter(w), format: format}
}

// Emit prints one outcome and flushes it
func (p *Printer) Emit(o manager.Outcome) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var err error
	switch p.format {
	case FormatJSON:
		err = p.writeJSON(o)
	default:
		_, err = p.w.WriteString(Text(o) + "\n")
	}
	if err != nil {
		return err
	}
	return p.w.Flush()
}

func (p *Printer) writeJSON(o manager.Outcome) error {
	data, err := sonic.Marshal(Line{
		X:       o.X,
		OK:      o.Result.OK(),
		Status:  o.Result.Status().String(),
		Kind:    o.Result.Kind().String(),
		Value:   o.Result.Payload(),
		F:       o.F.String(),
		G:       o.G.String(),
		Retries: o.Retries,
	})
	if err != nil {
		return fmt.Errorf("encode result for x=%d: %w", o.X, err)
	}
	if _, err := p.w.Write(data); err != nil {
		return err
	}
	return p.w.WriteByte('\n')
}

// Text formats an outcome as a human readable line
func Text(o manager.Outcome) string {
	if !o.Result.OK() {
		return fmt.Sprintf("x=%d: calculation failed", o.X)
	}
	return fmt.Sprintf("f(%d) %s g(%d) = %s", o.X, Operator(o.Final), o.X, o.Result)
}

// Operator returns the infix symbol of a combining function
func Operator(fn types.Function) string {
	switch fn {
	case types.FuncIMul, types.FuncFMul:
		return "*"
	case types.FuncIMin:
		return "min"
	case types.FuncAnd:
		return "&&"
	case types.FuncOr:
		return "||"
	}
	return fn.String()
}
