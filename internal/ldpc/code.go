// Package ldpc implements the hybrid repeat-accumulate LDPC codes used by
// the modem: GF(2) encoding and belief propagation decoding over a sparse
// parity-check graph.
package ldpc

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownCode is returned by CodeByName for names not in the table.
	ErrUnknownCode = errors.New("unknown LDPC code")
	// ErrLLRLength is returned when a decoder input has the wrong length.
	ErrLLRLength = errors.New("wrong LLR count")
	// ErrDataLength is returned when encoder input has the wrong length.
	ErrDataLength = errors.New("wrong data bit count")
)

// DecType selects the check node update rule.
type DecType int

const (
	SumProduct DecType = iota
	MinSum
)

func (d DecType) String() string {
	if d == MinSum {
		return "min-sum"
	}
	return "sum-product"
}

// adjacency is a compressed adjacency list: the neighbours of node i are
// idx[start[i]:start[i+1]].
type adjacency struct {
	start []int
	idx   []int
}

func (a adjacency) nodes() int { return len(a.start) - 1 }
func (a adjacency) of(i int) []int { return a.idx[a.start[i]:a.start[i+1]] }
func (a adjacency) degree(i int) int { return a.start[i+1] - a.start[i] }
func (a adjacency) edges() int { return len(a.idx) }

// Code is an immutable LDPC code. The codeword is the K data bits followed
// by the M parity bits. A Code may be shared freely between goroutines.
type Code struct {
	Name    string
	N       int // codeword length
	M       int // parity bits, one per check
	K       int // data bits
	MaxIter int
	DecType DecType
	QScale  float64 // input LLR scale
	RScale  float64 // check-to-variable message scale

	// checks lists the variables of each check; check edges are numbered
	// in this order. varEdges lists, per variable, the edge numbers it
	// takes part in.
	checks   adjacency
	varEdges adjacency
	edgeVar  []int
}

// MaxRowWeight returns the largest check node degree.
func (c *Code) MaxRowWeight() int { return maxDegree(c.checks) }

// MaxColWeight returns the largest variable node degree.
func (c *Code) MaxColWeight() int { return maxDegree(c.varEdges) }

// Edges returns the number of ones in the parity-check matrix.
func (c *Code) Edges() int { return c.checks.edges() }

// Check returns the variable indexes taking part in check i.
func (c *Code) Check(i int) []int { return c.checks.of(i) }

// Rate returns K/N.
func (c *Code) Rate() float64 { return float64(c.K) / float64(c.N) }

func maxDegree(a adjacency) int {
	w := 0
	for i := 0; i < a.nodes(); i++ {
		w = max(w, a.degree(i))
	}
	return w
}

// newCode builds the graph from per-check variable lists.
func newCode(name string, n, m, maxIter int, rows [][]int) *Code {
	c := &Code{
		Name:    name,
		N:       n,
		M:       m,
		K:       n - m,
		MaxIter: maxIter,
		DecType: SumProduct,
		QScale:  1,
		RScale:  1,
	}

	c.checks.start = make([]int, m+1)
	for i, r := range rows {
		c.checks.start[i+1] = c.checks.start[i] + len(r)
		c.checks.idx = append(c.checks.idx, r...)
	}
	c.edgeVar = c.checks.idx

	// Transpose: per variable, the edges that touch it
	deg := make([]int, n)
	for _, v := range c.checks.idx {
		deg[v]++
	}
	c.varEdges.start = make([]int, n+1)
	for v := 0; v < n; v++ {
		c.varEdges.start[v+1] = c.varEdges.start[v] + deg[v]
	}
	c.varEdges.idx = make([]int, len(c.checks.idx))
	fill := make([]int, n)
	for e, v := range c.checks.idx {
		c.varEdges.idx[c.varEdges.start[v]+fill[v]] = e
		fill[v]++
	}
	return c
}

// ParityChecks counts the checks satisfied by a hard decision codeword.
func (c *Code) ParityChecks(bits []byte) int {
	ok := 0
	for i := 0; i < c.M; i++ {
		var s byte
		for _, v := range c.checks.of(i) {
			s ^= bits[v] & 1
		}
		if s == 0 {
			ok++
		}
	}
	return ok
}

func (c *Code) String() string {
	return fmt.Sprintf("%s (N=%d K=%d M=%d)", c.Name, c.N, c.K, c.M)
}
