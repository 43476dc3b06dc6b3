package main

import (
	"errors"
	"io"
	"math"
	"math/rand/v2"

	"github.com/charmbracelet/log"
	"gonum.org/v1/gonum/stat"

	"github.com/lifegpc/libcodec2-MSVC/internal/codecio"
)

type noiseCmd struct {
	Input  string  `arg:"" help:"Soft decision doubles"`
	Output string  `arg:"" help:"Noisy soft decision doubles"`
	NodB   float64 `arg:"" name:"nodb" help:"Single sided noise density No in dB"`
	Seed   uint64  `default:"1" help:"Noise generator seed"`
}

func (c *noiseCmd) Run(l *log.Logger) error {
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

	l.Info("adding noise", "nodb", c.NodB, "no", math.Pow(10, c.NodB/10))
	variance, n, err := addNoise(in, out, c.NodB, rand.New(rand.NewPCG(c.Seed, 0)))
	if err != nil {
		return err
	}
	l.Info("measured double sided (real) noise power", "variance", variance, "samples", n)
	return nil
}

// addNoise adds Gaussian noise of variance No/2 to every double and
// returns the measured noise variance.
func addNoise(in io.Reader, out io.Writer, nodB float64, rng *rand.Rand) (float64, int, error) {
	sigma := math.Sqrt(math.Pow(10, nodB/10) / 2)
	r := codecio.NewReader(in)
	w := codecio.NewWriter(out)

	var noise []float64
	for {
		x, err := r.ReadFloat64s(1)
		if errors.Is(err, io.EOF) || errors.Is(err, codecio.ErrShortRead) {
			break
		}
		if err != nil {
			return 0, len(noise), err
		}
		z := sigma * rng.NormFloat64()
		noise = append(noise, z)
		if err := w.WriteFloat64s([]float64{x[0] + z}); err != nil {
			return 0, len(noise), err
		}
	}
	if err := w.Flush(); err != nil {
		return 0, len(noise), err
	}
	if len(noise) < 2 {
		return 0, len(noise), nil
	}
	return stat.Variance(noise, nil), len(noise), nil
}
