package codecio

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// ErrShortRead is returned when a file ends part way through a record.
var ErrShortRead = errors.New("short read")

// Reader reads fixed size records from a file. Read methods return io.EOF
// when the input ends cleanly on a record boundary.
type Reader struct {
	r   *bufio.Reader
	buf []byte
}

// NewReader wraps r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

func (r *Reader) fill(n int) ([]byte, error) {
	if cap(r.buf) < n {
		r.buf = make([]byte, n)
	}
	b := r.buf[:n]
	got, err := io.ReadFull(r.r, b)
	switch {
	case err == io.EOF:
		return nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		return nil, fmt.Errorf("%w: %d of %d bytes", ErrShortRead, got, n)
	case err != nil:
		return nil, err
	}
	return b, nil
}

// ReadShorts reads n int16 samples.
func (r *Reader) ReadShorts(n int) ([]int16, error) {
	b, err := r.fill(2 * n)
	if err != nil {
		return nil, err
	}
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[2*i:]))
	}
	return out, nil
}

// ReadComplexShorts reads n interleaved I/Q int16 pairs.
func (r *Reader) ReadComplexShorts(n int) ([]complex128, error) {
	s, err := r.ReadShorts(2 * n)
	if err != nil {
		return nil, err
	}
	out := make([]complex128, n)
	for i := range out {
		out[i] = complex(float64(s[2*i]), float64(s[2*i+1]))
	}
	return out, nil
}

// ReadFloat64s reads n doubles.
func (r *Reader) ReadFloat64s(n int) ([]float64, error) {
	b, err := r.fill(8 * n)
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[8*i:]))
	}
	return out, nil
}

// ReadBits reads n bits stored one per byte.
func (r *Reader) ReadBits(n int) ([]byte, error) {
	b, err := r.fill(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	for i, v := range b {
		out[i] = v & 1
	}
	return out, nil
}

// ReadPacked reads n bits packed MSB first.
func (r *Reader) ReadPacked(n int) ([]byte, error) {
	b, err := r.fill((n + 7) / 8)
	if err != nil {
		return nil, err
	}
	return Unpack(b, n), nil
}

// Writer writes records to a file. Call Flush when done.
type Writer struct {
	w *bufio.Writer
}

// NewWriter wraps w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w)}
}

// Flush writes any buffered data.
func (w *Writer) Flush() error { return w.w.Flush() }

// WriteShorts writes int16 samples.
func (w *Writer) WriteShorts(s []int16) error {
	b := make([]byte, 2*len(s))
	for i, v := range s {
		binary.LittleEndian.PutUint16(b[2*i:], uint16(v))
	}
	_, err := w.w.Write(b)
	return err
}

// WriteFloat64s writes doubles.
func (w *Writer) WriteFloat64s(f []float64) error {
	b := make([]byte, 8*len(f))
	for i, v := range f {
		binary.LittleEndian.PutUint64(b[8*i:], math.Float64bits(v))
	}
	_, err := w.w.Write(b)
	return err
}

// WriteBits writes bits one per byte.
func (w *Writer) WriteBits(bits []byte) error {
	_, err := w.w.Write(bits)
	return err
}

// WritePacked writes bits packed MSB first.
func (w *Writer) WritePacked(bits []byte) error {
	_, err := w.w.Write(Pack(bits))
	return err
}
