package main

import (
	"fmt"
	"math"
	"math/rand/v2"
	"os"

	"github.com/charmbracelet/log"

	"github.com/lifegpc/libcodec2-MSVC/internal/ldpc"
)

type testCmd struct {
	CodeFlags
	Runs int     `default:"100" help:"Decode runs"`
	NodB float64 `name:"nodb" default:"-3" help:"Noise density of the test vector in dB"`
	Seed uint64  `default:"1" help:"Noise generator seed"`
}

func (c *testCmd) Run(l *log.Logger) error {
	f, err := c.framing()
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Codeword length: %d\n", f.Code.N)
	fmt.Fprintf(os.Stderr, "Parity Bits....: %d\n", f.Code.M)

	res, err := selfTest(f, c.Runs, c.NodB, rand.New(rand.NewPCG(c.Seed, 0)))
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "test runs......: %d\n", res.Runs)
	fmt.Fprintf(os.Stderr, "test runs OK...: %d\n", res.OK)
	fmt.Fprintf(os.Stderr, "total iters....: %d\n", res.Iterations)
	if res.OK != res.Runs {
		fmt.Fprintln(os.Stderr, "test runs OK...: FAIL")
		return exitCode(1)
	}
	fmt.Fprintln(os.Stderr, "test runs OK...: PASS")
	return nil
}

type selfTestResult struct {
	Runs, OK, Iterations int
}

// selfTest encodes the test frame, adds noise once and decodes the same
// LLRs runs times, counting the runs that recover the whole codeword.
func selfTest(f ldpc.Framing, runs int, nodB float64, rng *rand.Rand) (selfTestResult, error) {
	data := testData(f)
	coded, err := f.Encode(data)
	if err != nil {
		return selfTestResult{}, err
	}
	variance := math.Pow(10, nodB/10) / 2
	llr := make([]float64, len(coded))
	for i, b := range coded {
		x := 1 - 2*float64(b) + math.Sqrt(variance)*rng.NormFloat64()
		llr[i] = 2 * x / variance
	}

	res := selfTestResult{Runs: runs}
	for r := 0; r < runs; r++ {
		dr, err := f.Decode(llr, 0)
		if err != nil {
			return res, err
		}
		res.Iterations += dr.Iterations
		ok := true
		for i, b := range dr.Bits[:f.DataBits] {
			if b != data[i] {
				ok = false
				break
			}
		}
		if ok && dr.Converged {
			res.OK++
		}
	}
	return res, nil
}
