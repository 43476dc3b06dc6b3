package ldpc

import (
	"fmt"
	"math"
)

// MinSumScale normalizes min-sum check messages towards sum-product.
const MinSumScale = 0.75

// phi range; outside it the function over- or underflows.
const (
	phiMin = 1e-30
	phiMax = 700
)

// DecodeResult is the best hard decision found by Decode.
type DecodeResult struct {
	Bits         []byte // N bits, data first
	Iterations   int
	ParityChecks int // checks satisfied by Bits
	Converged    bool
}

// Data returns the K data bits of the decision.
func (r DecodeResult) Data(c *Code) []byte { return r.Bits[:c.K] }

// decodeContext holds the per-call messages, indexed by edge.
type decodeContext struct {
	c2v  []float64
	v2c  []float64
	in   []float64
	bits []byte
}

func phi(x float64) float64 {
	x = min(max(x, phiMin), phiMax)
	return math.Log1p(2 / math.Expm1(x))
}

// Decode runs belief propagation on N channel LLRs for at most maxIter
// rounds, or MaxIter when maxIter <= 0. Positive LLRs favour 0. Decode
// stops after the first round that satisfies every check and otherwise
// returns the decision of the last round. It is safe for concurrent use.
func (c *Code) Decode(llr []float64, maxIter int) (DecodeResult, error) {
	if len(llr) != c.N {
		return DecodeResult{}, fmt.Errorf("%w: got %d, want %d", ErrLLRLength, len(llr), c.N)
	}
	if maxIter <= 0 {
		maxIter = c.MaxIter
	}

	ctx := decodeContext{
		c2v:  make([]float64, c.Edges()),
		v2c:  make([]float64, c.Edges()),
		in:   make([]float64, c.N),
		bits: make([]byte, c.N),
	}
	for v, l := range llr {
		ctx.in[v] = l * c.QScale
	}
	for e, v := range c.edgeVar {
		ctx.v2c[e] = ctx.in[v]
	}

	res := DecodeResult{Bits: ctx.bits}
	for it := 1; it <= maxIter; it++ {
		if c.DecType == MinSum {
			c.minSumChecks(&ctx)
		} else {
			c.sumProductChecks(&ctx)
		}
		c.updateVariables(&ctx)

		res.Iterations = it
		res.ParityChecks = c.ParityChecks(ctx.bits)
		if res.ParityChecks == c.M {
			res.Converged = true
			break
		}
	}
	return res, nil
}

func (c *Code) sumProductChecks(ctx *decodeContext) {
	for i := 0; i < c.M; i++ {
		lo, hi := c.checks.start[i], c.checks.start[i+1]
		sum := 0.0
		neg := false
		for e := lo; e < hi; e++ {
			m := ctx.v2c[e]
			sum += phi(math.Abs(m))
			if m < 0 {
				neg = !neg
			}
		}
		for e := lo; e < hi; e++ {
			m := ctx.v2c[e]
			out := phi(sum - phi(math.Abs(m)))
			// exclude this edge's own sign
			if neg != (m < 0) {
				out = -out
			}
			ctx.c2v[e] = out * c.RScale
		}
	}
}

func (c *Code) minSumChecks(ctx *decodeContext) {
	for i := 0; i < c.M; i++ {
		lo, hi := c.checks.start[i], c.checks.start[i+1]
		min1, min2 := math.Inf(1), math.Inf(1)
		at := -1
		neg := false
		for e := lo; e < hi; e++ {
			m := ctx.v2c[e]
			a := math.Abs(m)
			switch {
			case a < min1:
				min2, min1, at = min1, a, e
			case a < min2:
				min2 = a
			}
			if m < 0 {
				neg = !neg
			}
		}
		for e := lo; e < hi; e++ {
			out := min1
			if e == at {
				out = min2
			}
			if neg != (ctx.v2c[e] < 0) {
				out = -out
			}
			ctx.c2v[e] = out * MinSumScale * c.RScale
		}
	}
}

// updateVariables forms the posterior of each variable, its hard decision
// and the extrinsic messages back to its checks.
func (c *Code) updateVariables(ctx *decodeContext) {
	for v := 0; v < c.N; v++ {
		edges := c.varEdges.of(v)
		total := ctx.in[v]
		for _, e := range edges {
			total += ctx.c2v[e]
		}
		for _, e := range edges {
			ctx.v2c[e] = total - ctx.c2v[e]
		}
		if total < 0 {
			ctx.bits[v] = 1
		} else {
			ctx.bits[v] = 0
		}
	}
}
