package wire

import "github.com/GriffinCanCode/fgpipe/internal/shared/types"

// Decoder turns an arbitrary chunking of a result stream into whole records.
// Bytes of an incomplete trailing record are kept for the next Feed.
type Decoder struct {
	pending []byte
}

// Feed appends chunk to the stream and returns every record it completes,
// in stream order
func (d *Decoder) Feed(chunk []byte) ([]types.Value, error) {
	d.pending = append(d.pending, chunk...)

	n := len(d.pending) / ResultSize
	if n == 0 {
		return nil, nil
	}

	values := make([]types.Value, 0, n)
	for i := 0; i < n; i++ {
		v, err := Result(d.pending[i*ResultSize : (i+1)*ResultSize])
		if err != nil {
			return values, err
		}
		values = append(values, v)
	}

	rest := copy(d.pending, d.pending[n*ResultSize:])
	d.pending = d.pending[:rest]

	return values, nil
}

// Buffered returns the number of bytes waiting for the rest of their record
func (d *Decoder) Buffered() int {
	return len(d.pending)
}
