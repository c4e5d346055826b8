package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/GriffinCanCode/fgpipe/internal/shared/types"
)

const (
	// ArgSize is the width of an argument record
	ArgSize = 8
	// ResultSize is the width of a result record
	ResultSize = 16
)

// ErrShortRecord is returned when a stream ends inside a record
var ErrShortRecord = errors.New("truncated record")

var order = binary.NativeEndian

// PutArg encodes x into buf, which must hold ArgSize bytes
func PutArg(buf []byte, x int64) {
	order.PutUint64(buf[:ArgSize], uint64(x))
}

// Arg decodes an argument record
func Arg(buf []byte) int64 {
	return int64(order.Uint64(buf[:ArgSize]))
}

// PutResult encodes v into buf, which must hold ResultSize bytes
func PutResult(buf []byte, v types.Value) {
	order.PutUint32(buf[0:4], uint32(v.Status()))
	order.PutUint32(buf[4:8], uint32(v.Kind()))
	order.PutUint64(buf[8:16], v.Bits())
}

// Result decodes a result record
func Result(buf []byte) (types.Value, error) {
	status := types.Status(int32(order.Uint32(buf[0:4])))
	kind := types.Kind(int32(order.Uint32(buf[4:8])))
	v, err := types.FromRaw(status, kind, order.Uint64(buf[8:ResultSize]))
	if err != nil {
		return types.Value{}, fmt.Errorf("decode result: %w", err)
	}
	return v, nil
}

// ReadArg reads exactly one argument record from r.
// A clean end of stream returns io.EOF; a partial record returns ErrShortRecord.
func ReadArg(r io.Reader) (int64, error) {
	var buf [ArgSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, ErrShortRecord
		}
		return 0, err
	}
	return Arg(buf[:]), nil
}

// WriteArg writes one argument record to w
func WriteArg(w io.Writer, x int64) error {
	var buf [ArgSize]byte
	PutArg(buf[:], x)
	_, err := w.Write(buf[:])
	return err
}

// WriteResult writes one result record to w
func WriteResult(w io.Writer, v types.Value) error {
	var buf [ResultSize]byte
	PutResult(buf[:], v)
	_, err := w.Write(buf[:])
	return err
}
