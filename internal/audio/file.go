package audio

import (
	"io"
	"math"

	"github.com/lifegpc/libcodec2-MSVC/internal/codecio"
)

// FileSource reads raw int16 samples, the format of recorded off-air
// files.
type FileSource struct {
	r     *codecio.Reader
	scale float64
}

// NewFileSource reads samples from r, dividing by scale.
func NewFileSource(r io.Reader, scale float64) *FileSource {
	return &FileSource{r: codecio.NewReader(r), scale: scale}
}

// Read returns n samples, or io.EOF at the end of the file.
func (f *FileSource) Read(n int) ([]float64, error) {
	s, err := f.r.ReadShorts(n)
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i, v := range s {
		out[i] = float64(v) / f.scale
	}
	return out, nil
}

// FileSink writes raw int16 samples.
type FileSink struct {
	w     *codecio.Writer
	scale float64
}

// NewFileSink writes samples to w, multiplying by scale with saturation.
func NewFileSink(w io.Writer, scale float64) *FileSink {
	return &FileSink{w: codecio.NewWriter(w), scale: scale}
}

// Write converts and writes samples.
func (f *FileSink) Write(samples []float64) error {
	s := make([]int16, len(samples))
	for i, v := range samples {
		x := v * f.scale
		switch {
		case x > 32767:
			s[i] = 32767
		case x < -32768:
			s[i] = -32768
		default:
			s[i] = int16(math.Round(x))
		}
	}
	return f.w.WriteShorts(s)
}

// Flush writes any buffered samples.
func (f *FileSink) Flush() error { return f.w.Flush() }
