package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/lifegpc/libcodec2-MSVC/internal/codecio"
	"github.com/lifegpc/libcodec2-MSVC/internal/ldpc"
)

// muteFraction is the largest fraction of failed checks a muted decoder
// still outputs.
const muteFraction = 0.1

type decCmd struct {
	CodeFlags
	Input      string `arg:"" help:"Doubles, one per coded bit: LLRs, or soft decisions with --sd"`
	Output     string `arg:"" help:"Decoded data bits, one per byte"`
	SD         bool   `name:"sd" help:"Input holds BPSK soft decisions"`
	Mute       bool   `help:"Only output frames with fewer than 10% failed parity checks"`
	TestFrames bool   `name:"testframes" help:"Count bit errors against the test frame"`
	MaxIter    int    `help:"Decoder iterations (default from the code)"`
	MinSum     bool   `name:"min-sum" help:"Use the min-sum decoder"`
}

// decodeStats counts decoder results over a file.
type decodeStats struct {
	Frames     int
	Muted      int
	Iterations int
	RawBits    int
	RawErrors  int
	Bits       int
	Errors     int
}

func (s decodeStats) RawBER() float64   { return float64(s.RawErrors) / (float64(s.RawBits) + 1e-12) }
func (s decodeStats) CodedBER() float64 { return float64(s.Errors) / (float64(s.Bits) + 1e-12) }

type decodeOptions struct {
	SD, Mute, TestFrames bool
	MaxIter              int
}

func (c *decCmd) Run(l *log.Logger) error {
	f, err := c.framing()
	if err != nil {
		return err
	}
	if c.MinSum {
		code := *f.Code
		code.DecType = ldpc.MinSum
		f.Code = &code
	}
	in, err := openIn(c.Input)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := createOut(c.Output)
	if err != nil {
		return err
	}
	defer out.Close()

	l.Debug("decoding", "code", f.Code, "coded_bits", f.CodedBits(), "unused", f.Unused(), "dec_type", f.Code.DecType)
	s, err := decode(f, in, out, decodeOptions{SD: c.SD, Mute: c.Mute, TestFrames: c.TestFrames, MaxIter: c.MaxIter})
	if err != nil {
		return err
	}
	l.Info("decoded", "frames", s.Frames, "muted", s.Muted, "total_iters", s.Iterations)
	if !c.TestFrames {
		return nil
	}
	fmt.Fprintf(os.Stderr, "Raw Tbits..: %d Terr: %d BER: %4.3f\n", s.RawBits, s.RawErrors, s.RawBER())
	fmt.Fprintf(os.Stderr, "Coded Tbits: %d Terr: %d BER: %4.3f\n", s.Bits, s.Errors, s.CodedBER())
	if s.CodedBER() >= 0.01 {
		return exitCode(1)
	}
	return nil
}

// decode reads CodedBits doubles per frame until the input ends.
func decode(f ldpc.Framing, in io.Reader, out io.Writer, opt decodeOptions) (decodeStats, error) {
	var s decodeStats
	r := codecio.NewReader(in)
	w := codecio.NewWriter(out)

	var want []byte
	var wantCoded []byte
	if opt.TestFrames {
		want = testData(f)
		var err error
		if wantCoded, err = f.Encode(want); err != nil {
			return s, err
		}
	}

	for {
		x, err := r.ReadFloat64s(f.CodedBits())
		if errors.Is(err, io.EOF) || errors.Is(err, codecio.ErrShortRead) {
			break
		}
		if err != nil {
			return s, err
		}
		llr := x
		if opt.SD {
			if opt.TestFrames {
				for i, v := range x {
					if (v < 0) != (wantCoded[i] == 1) {
						s.RawErrors++
					}
				}
				s.RawBits += len(x)
			}
			llr = ldpc.SoftDecisionToLLR(x)
		}

		res, err := f.Decode(llr, opt.MaxIter)
		if err != nil {
			return s, err
		}
		s.Frames++
		s.Iterations += res.Iterations
		data := res.Bits[:f.DataBits]

		failed := f.Code.M - res.ParityChecks
		if opt.Mute && float64(failed) >= muteFraction*float64(f.Code.M) {
			s.Muted++
		} else if err := w.WriteBits(data); err != nil {
			return s, err
		}
		if opt.TestFrames {
			for i, b := range data {
				if b != want[i] {
					s.Errors++
				}
			}
			s.Bits += len(data)
		}
	}
	return s, w.Flush()
}
