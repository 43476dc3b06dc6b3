package ldpc

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"
)

func mustCode(t *testing.T, name string) *Code {
	t.Helper()
	c, err := CodeByName(name)
	if err != nil {
		t.Fatalf("CodeByName(%q): %v", name, err)
	}
	return c
}

func randomBits(rng *rand.Rand, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(rng.Intn(2))
	}
	return b
}

// bpskLLRs maps bits to +-1, adds noise of standard deviation sigma and
// returns channel LLRs.
func bpskLLRs(rng *rand.Rand, bits []byte, sigma float64) []float64 {
	llr := make([]float64, len(bits))
	for i, b := range bits {
		x := 1 - 2*float64(b) + sigma*rng.NormFloat64()
		llr[i] = 2 * x / (sigma * sigma)
	}
	return llr
}

func TestTables(t *testing.T) {
	tests := []struct {
		name string
		n, m int
	}{
		{"HRA_112_112", 224, 112},
		{"HRAb_396_504", 900, 396},
		{"H2064_516_sparse", 2580, 516},
	}
	for _, tt := range tests {
		c := mustCode(t, tt.name)
		if c.N != tt.n || c.M != tt.m || c.K != tt.n-tt.m {
			t.Errorf("%s: N=%d M=%d K=%d", tt.name, c.N, c.M, c.K)
		}
		if c.MaxColWeight() != dataColWeight {
			t.Errorf("%s: max column weight %d", tt.name, c.MaxColWeight())
		}
		if c.Edges() != dataColWeight*c.K+2*c.M-1 {
			t.Errorf("%s: %d edges", tt.name, c.Edges())
		}
		if again := mustCode(t, tt.name); again != c {
			t.Errorf("%s: table built twice", tt.name)
		}
	}
	if _, err := CodeByName("nope"); !errors.Is(err, ErrUnknownCode) {
		t.Errorf("unknown code: %v", err)
	}
	if len(Names()) != len(Codes()) {
		t.Error("Names and Codes disagree")
	}
}

func TestTables_NoFourCycles(t *testing.T) {
	for _, c := range Codes() {
		// no two checks may share more than one variable
		seen := make(map[[2]int]bool)
		for v := 0; v < c.N; v++ {
			edges := c.varEdges.of(v)
			for a := 0; a < len(edges); a++ {
				for b := a + 1; b < len(edges); b++ {
					i, j := checkOf(c, edges[a]), checkOf(c, edges[b])
					if i > j {
						i, j = j, i
					}
					key := [2]int{i, j}
					if seen[key] {
						t.Errorf("%s: checks %d and %d share two variables", c.Name, i, j)
					}
					seen[key] = true
				}
			}
		}
	}
}

// checkOf finds the check an edge belongs to.
func checkOf(c *Code, e int) int {
	lo, hi := 0, c.M
	for lo+1 < hi {
		mid := (lo + hi) / 2
		if c.checks.start[mid] <= e {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo
}

func TestEncode_SatisfiesChecks(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, c := range Codes() {
		cw, err := c.Codeword(randomBits(rng, c.K))
		if err != nil {
			t.Fatalf("%s: %v", c.Name, err)
		}
		if got := c.ParityChecks(cw); got != c.M {
			t.Errorf("%s: %d of %d checks pass", c.Name, got, c.M)
		}
	}
	c := mustCode(t, Default)
	if _, err := c.Encode(make([]byte, c.K-1)); !errors.Is(err, ErrDataLength) {
		t.Errorf("short data: %v", err)
	}
}

func TestDecode_Noiseless(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for _, typ := range []DecType{SumProduct, MinSum} {
		for _, base := range Codes() {
			c := *base
			c.DecType = typ
			cw, _ := c.Codeword(randomBits(rng, c.K))
			llr := make([]float64, c.N)
			for i, b := range cw {
				llr[i] = 10 * (1 - 2*float64(b))
			}
			res, err := c.Decode(llr, 0)
			if err != nil {
				t.Fatalf("%s: %v", c.Name, err)
			}
			if res.Iterations != 1 || res.ParityChecks != c.M || !res.Converged {
				t.Errorf("%s %v: iterations %d, checks %d/%d", c.Name, typ, res.Iterations, res.ParityChecks, c.M)
			}
			for i := range cw {
				if res.Bits[i] != cw[i] {
					t.Errorf("%s %v: bit %d flipped", c.Name, typ, i)
					break
				}
			}
		}
	}
}

func TestDecode_AllOnes(t *testing.T) {
	c := mustCode(t, "HRA_112_112")
	data := make([]byte, c.K)
	for i := range data {
		data[i] = 1
	}
	cw, _ := c.Codeword(data)
	res, _ := c.Decode(bpskLLRs(rand.New(rand.NewSource(1)), cw, 0.3), 0)
	if res.ParityChecks != c.M {
		t.Errorf("parity checks %d, want %d", res.ParityChecks, c.M)
	}
	for i, b := range res.Data(c) {
		if b != 1 {
			t.Fatalf("data bit %d is 0", i)
		}
	}
}

func TestDecode_CorrectsErrors(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	c := mustCode(t, "HRAb_396_504")
	cw, _ := c.Codeword(randomBits(rng, c.K))
	llr := bpskLLRs(rng, cw, 0.5)

	raw := 0
	for i, l := range llr {
		if (l < 0) != (cw[i] == 1) {
			raw++
		}
	}
	res, _ := c.Decode(llr, 0)
	coded := 0
	for i := range cw {
		if res.Bits[i] != cw[i] {
			coded++
		}
	}
	t.Logf("raw errors %d, coded errors %d, %d iterations", raw, coded, res.Iterations)
	if raw == 0 {
		t.Fatal("no channel errors to correct")
	}
	if coded != 0 || !res.Converged {
		t.Errorf("%d errors after decoding", coded)
	}
}

func TestDecode_BERIncreasesWithNoise(t *testing.T) {
	c := mustCode(t, "HRA_112_112")
	rng := rand.New(rand.NewSource(5))
	const trials = 60

	prev := -1.0
	for _, sigma := range []float64{0.4, 0.7, 0.9, 1.2} {
		errs := 0
		for n := 0; n < trials; n++ {
			data := randomBits(rng, c.K)
			cw, _ := c.Codeword(data)
			res, _ := c.Decode(bpskLLRs(rng, cw, sigma), 0)
			for i, b := range res.Data(c) {
				if b != data[i] {
					errs++
				}
			}
		}
		ber := float64(errs) / float64(trials*c.K)
		t.Logf("sigma %.1f: coded BER %.4f", sigma, ber)
		if ber < prev {
			t.Errorf("BER fell from %.4f to %.4f as noise grew", prev, ber)
		}
		prev = ber
	}
	if prev == 0 {
		t.Error("no errors even at the highest noise level")
	}
}

func TestDecode_WrongLength(t *testing.T) {
	c := mustCode(t, Default)
	if _, err := c.Decode(make([]float64, c.N+1), 0); !errors.Is(err, ErrLLRLength) {
		t.Errorf("Decode with N+1 LLRs: %v", err)
	}
}

func TestDecode_NeverFails(t *testing.T) {
	c := mustCode(t, Default)
	rng := rand.New(rand.NewSource(2))
	llr := make([]float64, c.N)
	for i := range llr {
		llr[i] = rng.NormFloat64()
	}
	res, err := c.Decode(llr, 5)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if res.Iterations > 5 || len(res.Bits) != c.N {
		t.Errorf("iterations %d, %d bits", res.Iterations, len(res.Bits))
	}
}

func TestDecode_Concurrent(t *testing.T) {
	c := mustCode(t, "HRAb_396_504")
	rng := rand.New(rand.NewSource(9))
	cw, _ := c.Codeword(randomBits(rng, c.K))
	llr := bpskLLRs(rng, cw, 0.7)
	want, _ := c.Decode(llr, 0)

	var wg sync.WaitGroup
	results := make([]DecodeResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.Decode(llr, 0)
		}(i)
	}
	wg.Wait()
	for i, r := range results {
		if r.Iterations != want.Iterations || r.ParityChecks != want.ParityChecks {
			t.Errorf("decode %d: %d iterations %d checks, want %d %d", i, r.Iterations, r.ParityChecks, want.Iterations, want.ParityChecks)
		}
	}
}

func TestFraming(t *testing.T) {
	c := mustCode(t, "HRAb_396_504")
	f, err := c.WithDataBits(400)
	if err != nil {
		t.Fatalf("WithDataBits: %v", err)
	}
	if f.CodedBits() != 400+c.M || f.Unused() != c.K-400 {
		t.Errorf("coded %d unused %d", f.CodedBits(), f.Unused())
	}

	rng := rand.New(rand.NewSource(4))
	data := randomBits(rng, 400)
	tx, err := f.Encode(data)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	res, err := f.Decode(bpskLLRs(rng, tx, 0.5), 0)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	for i, b := range res.Bits[:f.DataBits] {
		if b != data[i] {
			t.Fatalf("data bit %d wrong", i)
		}
	}
	for i := f.DataBits; i < c.K; i++ {
		if res.Bits[i] != 1 {
			t.Fatalf("known bit %d decoded as 0", i)
		}
	}

	if _, err := c.WithDataBits(c.K + 1); !errors.Is(err, ErrDataLength) {
		t.Errorf("oversized framing: %v", err)
	}
	if _, err := f.Decode(make([]float64, c.N), 0); !errors.Is(err, ErrLLRLength) {
		t.Errorf("unexpanded LLRs: %v", err)
	}
}

func TestSoftDecisionToLLR(t *testing.T) {
	sd := []float64{1, -1, 0.9, -1.1, 1.05, -0.95}
	llr := SoftDecisionToLLR(sd)
	for i := range sd {
		if (llr[i] > 0) != (sd[i] > 0) {
			t.Errorf("llr %d has the wrong sign", i)
		}
	}
	if math.Abs(llr[0]) < 10 {
		t.Errorf("clean decisions gave weak LLR %.2f", llr[0])
	}
	if got := SoftDecisionToLLR(make([]float64, 3)); got[0] != 0 {
		t.Errorf("zero input gave %v", got)
	}
}

func TestSymbolsToLLRs(t *testing.T) {
	amps := []float64{1, 1, 1, 1}
	llr := SymbolsToLLRs(qpsk[:], amps, DefaultEsNo, 1)
	for j := range qpsk {
		b0, b1 := j>>1, j&1
		if (llr[2*j] < 0) != (b0 == 1) || (llr[2*j+1] < 0) != (b1 == 1) {
			t.Errorf("symbol %d: llrs %.2f %.2f", j, llr[2*j], llr[2*j+1])
		}
	}

	// Scaling symbols and the mean amplitude together changes nothing
	scaled := make([]complex128, len(qpsk))
	for i, s := range qpsk {
		scaled[i] = s * 3
	}
	llr3 := SymbolsToLLRs(scaled, []float64{3, 3, 3, 3}, DefaultEsNo, 3)
	for i := range llr {
		if math.Abs(llr[i]-llr3[i]) > 1e-9 {
			t.Errorf("llr %d: %.4f vs %.4f", i, llr[i], llr3[i])
		}
	}
}
