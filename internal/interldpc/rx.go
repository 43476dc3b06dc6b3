package interldpc

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/lifegpc/libcodec2-MSVC/internal/interleave"
	"github.com/lifegpc/libcodec2-MSVC/internal/ldpc"
	"github.com/lifegpc/libcodec2-MSVC/internal/ofdm"
)

// Interleaver sync thresholds.
const (
	// A block passes when its codewords fail fewer than this fraction of
	// the parity checks on average.
	passFailFraction = 0.1
	// Blocks failing in a row before a synced interleaver gives up.
	syncedBadBlocks = 3
)

// Codeword is one decoded codeword of a block.
type Codeword struct {
	Data         []byte // DataBits payload bits
	Iterations   int
	ParityChecks int
	Converged    bool
}

// Block is one decoded interleaver block.
type Block struct {
	Codewords []Codeword
	Passed    bool
	State     ofdm.SyncState // interleaver state after the block
}

// Counters accumulate bit errors against the test codeword.
type Counters struct {
	Blocks      int
	RawBits     int
	RawErrors   int
	CodedBits   int
	CodedErrors int
}

// RawBER returns the uncoded bit error rate.
func (c Counters) RawBER() float64 { return ratio(c.RawErrors, c.RawBits) }

// CodedBER returns the bit error rate after decoding.
func (c Counters) CodedBER() float64 { return ratio(c.CodedErrors, c.CodedBits) }

func (c *Counters) add(o Counters) {
	c.Blocks += o.Blocks
	c.RawBits += o.RawBits
	c.RawErrors += o.RawErrors
	c.CodedBits += o.CodedBits
	c.CodedErrors += o.CodedErrors
}

func ratio(n, d int) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}

// LossReason tells why the interleaver fell out of sync.
type LossReason int

const (
	// LostParity means consecutive blocks failed their parity checks.
	LostParity LossReason = iota
	// LostModem means the modem left sync.
	LostModem
)

func (r LossReason) String() string {
	if r == LostModem {
		return "modem"
	}
	return "parity"
}

// DiscardInfo describes the blocks counted since the last passing block
// at the moment sync is lost.
type DiscardInfo struct {
	Reason  LossReason
	Pending Counters
	Total   Counters
}

// DiscardPolicy decides whether the pending blocks of a lost interval are
// dropped from the counters.
type DiscardPolicy func(DiscardInfo) bool

// DiscardOnSyncLoss drops the failing blocks that led to a loss of sync.
func DiscardOnSyncLoss(DiscardInfo) bool { return true }

// KeepOnSyncLoss counts every block decoded while synced.
func KeepOnSyncLoss(DiscardInfo) bool { return false }

// Receiver collects demodulated frames and decodes interleaved blocks.
// Like the modem it is not safe for concurrent use.
type Receiver struct {
	cfg     ofdm.Config
	code    *ldpc.Code
	framing ldpc.Framing
	frames  int
	esno    float64
	maxIter int
	log     *log.Logger

	// last frames payload symbols, oldest first
	syms    [][]complex128
	amps    [][]float64
	meanAmp float64

	state ofdm.SyncState
	inter int // frames since the last block
	bad   int

	testFrames bool
	testData   []byte
	testCoded  []byte
	total      Counters
	pending    Counters
	discard    DiscardPolicy
}

// NewReceiver creates a receiver for blocks interleaved over
// interleaveFrames frames of m.
func NewReceiver(m *ofdm.Modem, c *ldpc.Code, interleaveFrames int) (*Receiver, error) {
	f, err := framing(m.Config(), c, interleaveFrames)
	if err != nil {
		return nil, err
	}
	r := &Receiver{
		cfg:     m.Config(),
		code:    c,
		framing: f,
		frames:  interleaveFrames,
		esno:    ldpc.DefaultEsNo,
		maxIter: c.MaxIter,
		log:     log.Default(),
		meanAmp: 1,
		discard: DiscardOnSyncLoss,
	}
	r.testData = TestFrameData(f)
	if r.testCoded, err = f.Encode(r.testData); err != nil {
		return nil, err
	}
	return r, nil
}

// SetLogger sets the logger for sync transitions. nil restores the default.
func (r *Receiver) SetLogger(l *log.Logger) {
	if l == nil {
		l = log.Default()
	}
	r.log = l
}

// SetEsNo sets the Es/No used for LLR mapping.
func (r *Receiver) SetEsNo(esno float64) { r.esno = esno }

// SetMaxIter sets the decoder iteration limit.
func (r *Receiver) SetMaxIter(n int) { r.maxIter = n }

// SetTestFrames enables error counting against the test codeword.
func (r *Receiver) SetTestFrames(on bool) { r.testFrames = on }

// SetDiscardPolicy replaces the discard policy. nil keeps every block.
func (r *Receiver) SetDiscardPolicy(p DiscardPolicy) {
	if p == nil {
		p = KeepOnSyncLoss
	}
	r.discard = p
}

// Framing returns the codeword framing in use.
func (r *Receiver) Framing() ldpc.Framing { return r.framing }

// State returns the interleaver sync state.
func (r *Receiver) State() ofdm.SyncState { return r.state }

// Counters returns the error counters of blocks decoded while synced.
// Blocks still awaiting a passing block are not included.
func (r *Receiver) Counters() Counters { return r.total }

// ResetCounters clears the error counters.
func (r *Receiver) ResetCounters() {
	r.total = Counters{}
	r.pending = Counters{}
}

// Push adds one modem frame. It returns the decoded block when the frame
// completes one, and nil otherwise.
func (r *Receiver) Push(f ofdm.RxFrame) (*Block, error) {
	if f.State == ofdm.Searching {
		r.lose(LostModem)
		return nil, nil
	}
	if !f.Demodulated {
		return nil, nil
	}
	per := r.cfg.PayloadSymsPerFrame()
	if len(f.PayloadSymbols) != per || len(f.PayloadAmps) != per {
		return nil, fmt.Errorf("%w: frame has %d symbols and %d amplitudes, want %d",
			ErrBlockSize, len(f.PayloadSymbols), len(f.PayloadAmps), per)
	}
	r.shift(f)
	if len(r.syms) < r.frames {
		return nil, nil
	}

	if r.state == ofdm.Searching {
		if r.frames > 1 && !r.aligned() {
			return nil, nil
		}
		r.setState(ofdm.Trial)
		r.inter = 0
		b, _ := r.decodeBlock()
		b.State = r.state
		return &b, nil
	}

	r.inter++
	if r.inter < r.frames {
		return nil, nil
	}
	r.inter = 0
	b, counts := r.decodeBlock()

	switch r.state {
	case ofdm.Trial:
		if b.Passed {
			r.setState(ofdm.Synced)
			r.bad = 0
			r.total.add(counts)
		} else {
			r.setState(ofdm.Searching)
		}
	case ofdm.Synced:
		if b.Passed {
			r.bad = 0
			r.total.add(r.pending)
			r.pending = Counters{}
			r.total.add(counts)
		} else {
			r.bad++
			r.pending.add(counts)
			if r.bad >= syncedBadBlocks {
				r.lose(LostParity)
			}
		}
	}
	b.State = r.state
	return &b, nil
}

// shift appends a frame to the window, dropping the oldest when full.
func (r *Receiver) shift(f ofdm.RxFrame) {
	syms := append([]complex128(nil), f.PayloadSymbols...)
	amps := append([]float64(nil), f.PayloadAmps...)
	if len(r.syms) == r.frames {
		copy(r.syms, r.syms[1:])
		copy(r.amps, r.amps[1:])
		r.syms[r.frames-1], r.amps[r.frames-1] = syms, amps
	} else {
		r.syms = append(r.syms, syms)
		r.amps = append(r.amps, amps)
	}
	if f.Demod.MeanAmp > 0 {
		r.meanAmp = f.Demod.MeanAmp
	}
}

// blockSymbols returns the de-interleaved symbols and amplitudes of the
// window.
func (r *Receiver) blockSymbols() ([]complex128, []float64) {
	var syms []complex128
	var amps []float64
	for i := range r.syms {
		syms = append(syms, r.syms[i]...)
		amps = append(amps, r.amps[i]...)
	}
	return interleave.Deinterleave(syms), interleave.Deinterleave(amps)
}

// aligned reports whether the window starts a block: its first codeword
// satisfies every parity check.
func (r *Receiver) aligned() bool {
	syms, amps := r.blockSymbols()
	n := r.framing.CodedBits() / 2
	llr := ldpc.SymbolsToLLRs(syms[:n], amps[:n], r.esno, r.meanAmp)
	res, err := r.framing.Decode(llr, r.maxIter)
	return err == nil && res.ParityChecks == r.code.M
}

// decodeBlock decodes every codeword of the window. With test frames on
// it also counts errors against the test codeword.
func (r *Receiver) decodeBlock() (Block, Counters) {
	syms, amps := r.blockSymbols()
	n := r.framing.CodedBits() / 2
	b := Block{Codewords: make([]Codeword, r.frames)}
	var c Counters
	failed := 0
	for i := range b.Codewords {
		s, a := syms[i*n:(i+1)*n], amps[i*n:(i+1)*n]
		res, _ := r.framing.Decode(ldpc.SymbolsToLLRs(s, a, r.esno, r.meanAmp), r.maxIter)
		cw := Codeword{
			Data:         res.Bits[:r.framing.DataBits],
			Iterations:   res.Iterations,
			ParityChecks: res.ParityChecks,
			Converged:    res.Converged,
		}
		b.Codewords[i] = cw
		failed += r.code.M - res.ParityChecks

		if r.testFrames {
			c.RawBits += len(r.testCoded)
			c.RawErrors += countErrors(r.testCoded, ofdm.DemapSymbols(s))
			c.CodedBits += len(r.testData)
			c.CodedErrors += countErrors(r.testData, cw.Data)
		}
	}
	b.Passed = float64(failed) < passFailFraction*float64(r.code.M*r.frames)
	c.Blocks = 1
	return b, c
}

func countErrors(want, got []byte) int {
	n := 0
	for i := range want {
		if want[i] != got[i] {
			n++
		}
	}
	return n
}

func (r *Receiver) setState(s ofdm.SyncState) {
	if s == r.state {
		return
	}
	r.log.Debug("interleaver sync", "from", r.state, "to", s, "frames", r.frames)
	r.state = s
}

// lose returns the interleaver to Searching, settling the pending blocks
// with the discard policy.
func (r *Receiver) lose(reason LossReason) {
	if r.state == ofdm.Synced && r.pending.Blocks > 0 {
		info := DiscardInfo{Reason: reason, Pending: r.pending, Total: r.total}
		if r.discard(info) {
			r.log.Debug("discarding blocks", "reason", reason, "blocks", r.pending.Blocks, "coded_errors", r.pending.CodedErrors)
		} else {
			r.total.add(r.pending)
		}
	}
	r.pending = Counters{}
	r.syms, r.amps = r.syms[:0], r.amps[:0]
	r.inter, r.bad = 0, 0
	r.setState(ofdm.Searching)
}
