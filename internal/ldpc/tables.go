package ldpc

import (
	"fmt"
	"sync"
)

// Code tables. Each entry is a hybrid repeat-accumulate code: weight-3
// data columns drawn from the modem's LCG, free of 4-cycles, followed by a
// dual-diagonal accumulator for the parity bits. A table is expanded into
// its graph on first use and is read only afterwards.
type table struct {
	name    string
	n, m    int
	maxIter int
	seed    uint32

	once sync.Once
	code *Code
}

var tables = []*table{
	{name: "HRA_112_112", n: 224, m: 112, maxIter: 100, seed: 112},
	{name: "HRAb_396_504", n: 900, m: 396, maxIter: 100, seed: 396},
	{name: "H2064_516_sparse", n: 2580, m: 516, maxIter: 200, seed: 516},
}

// Default is the code used by the 700D modem waveform.
const Default = "HRA_112_112"

func (t *table) get() *Code {
	t.once.Do(func() {
		t.code = newCode(t.name, t.n, t.m, t.maxIter, generateHRA(t.n, t.m, t.seed))
	})
	return t.code
}

// CodeByName returns the named code.
func CodeByName(name string) (*Code, error) {
	for _, t := range tables {
		if t.name == name {
			return t.get(), nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownCode, name)
}

// Names lists the available codes without building them.
func Names() []string {
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.name
	}
	return names
}

// Codes returns every available code.
func Codes() []*Code {
	out := make([]*Code, len(tables))
	for i, t := range tables {
		out[i] = t.get()
	}
	return out
}

// lcg is the modem's 15-bit linear congruential generator.
type lcg struct{ seed uint32 }

func (g *lcg) next() uint32 {
	g.seed = (1103515245*g.seed + 12345) % 32768
	return g.seed
}

// intn draws from [0, n) using the generator's high bits.
func (g *lcg) intn(n int) int {
	return int(g.next()) * n >> 15
}

const dataColWeight = 3

// generateHRA returns, per check, the variables it connects.
func generateHRA(n, m int, seed uint32) [][]int {
	k := n - m
	g := &lcg{seed: seed}
	rows := make([][]int, m)
	deg := make([]int, m)

	// shared[a*m+b] is set once some column connects rows a and b
	shared := make([]bool, m*m)
	link := func(a, b int) {
		shared[a*m+b] = true
		shared[b*m+a] = true
	}
	for i := 0; i+1 < m; i++ {
		link(i, i+1) // accumulator columns
	}

	limit := (dataColWeight*k + m - 1) / m
	for j := 0; j < k; j++ {
		col := pickColumn(g, m, deg, shared, &limit)
		for a, r := range col {
			rows[r] = append(rows[r], j)
			deg[r]++
			for _, s := range col[:a] {
				link(r, s)
			}
		}
	}

	for i := 0; i < m; i++ {
		if i > 0 {
			rows[i] = append(rows[i], k+i-1)
		}
		rows[i] = append(rows[i], k+i)
	}
	return rows
}

// pickColumn draws rows for one data column. Row load is capped at limit,
// which is raised when the draw keeps failing. After many failures the
// 4-cycle constraint is dropped so generation always terminates; adjacent
// rows are never allowed.
func pickColumn(g *lcg, m int, deg []int, shared []bool, limit *int) [dataColWeight]int {
	var col [dataColWeight]int
	for attempt := 1; ; attempt++ {
		if attempt%500 == 0 {
			*limit++
		}
		strict := attempt < 20000

		ok := true
		for t := 0; t < dataColWeight && ok; t++ {
			r := g.intn(m)
			if deg[r] >= *limit {
				ok = false
				break
			}
			for _, u := range col[:t] {
				d := r - u
				if d == 0 || d == 1 || d == -1 || (strict && shared[r*m+u]) {
					ok = false
					break
				}
			}
			col[t] = r
		}
		if ok {
			return col
		}
	}
}
