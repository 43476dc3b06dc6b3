package main

import (
	"errors"
	"io"

	"github.com/charmbracelet/log"

	"github.com/lifegpc/libcodec2-MSVC/internal/codecio"
	"github.com/lifegpc/libcodec2-MSVC/internal/ldpc"
)

type encCmd struct {
	CodeFlags
	Input      string `arg:"" help:"Data bits, one per byte (ignored with --testframes)"`
	Output     string `arg:"" help:"Coded bits, one per byte, or doubles with --sd"`
	SD         bool   `name:"sd" help:"Write BPSK soft decisions as doubles, +1 for a 0 bit"`
	TestFrames int    `name:"testframes" help:"Encode this many test frames instead of reading input"`
}

func (c *encCmd) Run(l *log.Logger) error {
	f, err := c.framing()
	if err != nil {
		return err
	}
	out, err := createOut(c.Output)
	if err != nil {
		return err
	}
	defer out.Close()

	var in io.Reader
	if c.TestFrames == 0 {
		rc, err := openIn(c.Input)
		if err != nil {
			return err
		}
		defer rc.Close()
		in = rc
	}
	n, err := encode(f, in, c.TestFrames, c.SD, out)
	if err != nil {
		return err
	}
	l.Info("encoded", "code", f.Code.Name, "frames", n, "data_bits", f.DataBits, "coded_bits", f.CodedBits())
	return nil
}

// encode writes one codeword per frame of input data bits, or testFrames
// test codewords when in is nil.
func encode(f ldpc.Framing, in io.Reader, testFrames int, sd bool, out io.Writer) (int, error) {
	w := codecio.NewWriter(out)
	var r *codecio.Reader
	if in != nil {
		r = codecio.NewReader(in)
	}
	frames := 0
	for in != nil || frames < testFrames {
		var data []byte
		if r != nil {
			var err error
			data, err = r.ReadBits(f.DataBits)
			if errors.Is(err, io.EOF) || errors.Is(err, codecio.ErrShortRead) {
				break
			}
			if err != nil {
				return frames, err
			}
		} else {
			data = testData(f)
		}
		coded, err := f.Encode(data)
		if err != nil {
			return frames, err
		}
		if sd {
			err = w.WriteFloat64s(bpsk(coded))
		} else {
			err = w.WriteBits(coded)
		}
		if err != nil {
			return frames, err
		}
		frames++
	}
	return frames, w.Flush()
}

func bpsk(bits []byte) []float64 {
	out := make([]float64, len(bits))
	for i, b := range bits {
		out[i] = 1 - 2*float64(b)
	}
	return out
}
