package interldpc

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/lifegpc/libcodec2-MSVC/internal/ldpc"
	"github.com/lifegpc/libcodec2-MSVC/internal/ofdm"
)

func setup(t *testing.T, frames int) (*ofdm.Modem, *Transmitter, *Receiver) {
	t.Helper()
	m, err := ofdm.New(ofdm.DefaultConfig())
	if err != nil {
		t.Fatalf("ofdm.New: %v", err)
	}
	code, err := ldpc.CodeByName(ldpc.Default)
	if err != nil {
		t.Fatalf("CodeByName: %v", err)
	}
	tx, err := NewTransmitter(m, code, frames)
	if err != nil {
		t.Fatalf("NewTransmitter: %v", err)
	}
	rx, err := NewReceiver(m, code, frames)
	if err != nil {
		t.Fatalf("NewReceiver: %v", err)
	}
	rx.SetTestFrames(true)
	return m, tx, rx
}

// syncedFrame wraps payload symbols as a frame from a synced modem.
func syncedFrame(syms []complex128) ofdm.RxFrame {
	amps := make([]float64, len(syms))
	for i := range amps {
		amps[i] = 1
	}
	return ofdm.RxFrame{
		State:          ofdm.Synced,
		Demodulated:    true,
		Demod:          ofdm.DemodResult{MeanAmp: 1},
		PayloadSymbols: syms,
		PayloadAmps:    amps,
	}
}

func testBlock(t *testing.T, tx *Transmitter) [][]complex128 {
	t.Helper()
	data := make([][]byte, tx.Frames())
	for i := range data {
		data[i] = tx.TestFrameData()
	}
	block, err := tx.EncodeBlock(data)
	if err != nil {
		t.Fatalf("EncodeBlock: %v", err)
	}
	return block
}

func garbageFrame(rng *rand.Rand, n int) ofdm.RxFrame {
	syms := make([]complex128, n)
	for i := range syms {
		syms[i] = complex(rng.NormFloat64(), rng.NormFloat64())
	}
	return syncedFrame(syms)
}

func push(t *testing.T, rx *Receiver, f ofdm.RxFrame) *Block {
	t.Helper()
	b, err := rx.Push(f)
	if err != nil {
		t.Fatalf("Push: %v", err)
	}
	return b
}

func TestNewTransmitter_CodeMustFitFrame(t *testing.T) {
	m, err := ofdm.New(ofdm.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	big, _ := ldpc.CodeByName("HRAb_396_504")
	if _, err := NewTransmitter(m, big, 1); !errors.Is(err, ErrCodeSize) {
		t.Errorf("oversized code: %v", err)
	}
	code, _ := ldpc.CodeByName(ldpc.Default)
	if _, err := NewReceiver(m, code, 0); !errors.Is(err, ErrFrames) {
		t.Errorf("zero frames: %v", err)
	}
}

func TestReceiver_SingleFrame(t *testing.T) {
	_, tx, rx := setup(t, 1)
	block := testBlock(t, tx)

	b := push(t, rx, syncedFrame(block[0]))
	if b == nil || rx.State() != ofdm.Trial {
		t.Fatalf("first frame: block %v, state %v", b, rx.State())
	}
	b = push(t, rx, syncedFrame(block[0]))
	if b == nil || !b.Passed || rx.State() != ofdm.Synced {
		t.Fatalf("second frame: state %v", rx.State())
	}
	for i := 0; i < 5; i++ {
		push(t, rx, syncedFrame(block[0]))
	}
	c := rx.Counters()
	if c.Blocks != 6 || c.CodedErrors != 0 || c.RawErrors != 0 {
		t.Errorf("counters %+v", c)
	}
	if c.CodedBits != 6*tx.Framing().DataBits {
		t.Errorf("coded bits %d", c.CodedBits)
	}
}

func TestReceiver_PhaseRecovery(t *testing.T) {
	const frames = 4
	for start := 0; start < frames; start++ {
		_, tx, rx := setup(t, frames)
		block := testBlock(t, tx)
		want := tx.TestFrameData()

		var stream [][]complex128
		for i := 0; i < 6; i++ {
			stream = append(stream, block...)
		}
		stream = stream[start:]

		first := -1
		for i, syms := range stream {
			b := push(t, rx, syncedFrame(syms))
			if b == nil {
				continue
			}
			if first < 0 {
				first = i
			}
			for k, cw := range b.Codewords {
				if e := countErrors(want, cw.Data); e != 0 {
					t.Errorf("start %d frame %d codeword %d: %d errors", start, i, k, e)
				}
			}
		}
		// the first whole block ends on the last frame of a block
		if wantFirst := (frames-start)%frames + frames - 1; first != wantFirst {
			t.Errorf("start %d: first block after frame %d, want %d", start, first, wantFirst)
		}
		if rx.State() != ofdm.Synced {
			t.Errorf("start %d: state %v", start, rx.State())
		}
	}
}

func TestReceiver_NoisyBlock(t *testing.T) {
	_, tx, rx := setup(t, 2)
	block := testBlock(t, tx)
	rng := rand.New(rand.NewSource(3))
	for n := 0; n < 12; n++ {
		syms := append([]complex128(nil), block[n%2]...)
		for i := range syms {
			syms[i] += complex(0.35*rng.NormFloat64(), 0.35*rng.NormFloat64())
		}
		push(t, rx, syncedFrame(syms))
	}
	c := rx.Counters()
	t.Logf("raw BER %.4f coded BER %.4f over %d blocks", c.RawBER(), c.CodedBER(), c.Blocks)
	if rx.State() != ofdm.Synced {
		t.Fatalf("state %v", rx.State())
	}
	if c.RawErrors == 0 {
		t.Error("no raw errors at this noise level")
	}
	if c.CodedBER() > c.RawBER() {
		t.Errorf("decoding made things worse: %.4f > %.4f", c.CodedBER(), c.RawBER())
	}
}

func syncUp(t *testing.T, rx *Receiver, good []complex128) {
	t.Helper()
	push(t, rx, syncedFrame(good))
	push(t, rx, syncedFrame(good))
	if rx.State() != ofdm.Synced {
		t.Fatalf("state %v after two good frames", rx.State())
	}
}

func TestReceiver_DiscardPolicy(t *testing.T) {
	tests := []struct {
		name       string
		policy     DiscardPolicy
		wantBlocks int
	}{
		{"discard", DiscardOnSyncLoss, 1},
		{"keep", KeepOnSyncLoss, 1 + syncedBadBlocks},
	}
	for _, tt := range tests {
		_, tx, rx := setup(t, 1)
		rx.SetDiscardPolicy(tt.policy)
		good := testBlock(t, tx)[0]
		rng := rand.New(rand.NewSource(1))

		syncUp(t, rx, good)
		for i := 0; i < syncedBadBlocks; i++ {
			b := push(t, rx, garbageFrame(rng, len(good)))
			if b.Passed {
				t.Fatalf("%s: garbage block passed", tt.name)
			}
		}
		if rx.State() != ofdm.Searching {
			t.Fatalf("%s: state %v after %d bad blocks", tt.name, rx.State(), syncedBadBlocks)
		}
		c := rx.Counters()
		if c.Blocks != tt.wantBlocks {
			t.Errorf("%s: %d blocks counted, want %d", tt.name, c.Blocks, tt.wantBlocks)
		}
		if tt.name == "discard" && c.CodedErrors != 0 {
			t.Errorf("%s: %d coded errors leaked into the counters", tt.name, c.CodedErrors)
		}
	}
}

func TestReceiver_BadBlockThenRecovery(t *testing.T) {
	_, tx, rx := setup(t, 1)
	good := testBlock(t, tx)[0]
	rng := rand.New(rand.NewSource(2))

	syncUp(t, rx, good)
	push(t, rx, garbageFrame(rng, len(good)))
	if rx.Counters().Blocks != 1 {
		t.Errorf("failing block counted before the interval was confirmed")
	}
	push(t, rx, syncedFrame(good))
	c := rx.Counters()
	if rx.State() != ofdm.Synced || c.Blocks != 3 || c.CodedErrors == 0 {
		t.Errorf("state %v counters %+v", rx.State(), c)
	}
}

func TestReceiver_ModemLoss(t *testing.T) {
	_, tx, rx := setup(t, 1)
	good := testBlock(t, tx)[0]
	syncUp(t, rx, good)

	if b := push(t, rx, ofdm.RxFrame{State: ofdm.Searching}); b != nil {
		t.Error("block from a searching modem")
	}
	if rx.State() != ofdm.Searching {
		t.Errorf("state %v after the modem lost sync", rx.State())
	}
	// frames from a modem in trial without demodulation are ignored
	if b := push(t, rx, ofdm.RxFrame{State: ofdm.Trial}); b != nil {
		t.Error("block from an empty frame")
	}
	if _, err := rx.Push(syncedFrame(good[:10])); !errors.Is(err, ErrBlockSize) {
		t.Errorf("short frame: %v", err)
	}
}

func TestQPSKTablesAgree(t *testing.T) {
	pts := ofdm.QPSKPoints()
	llr := ldpc.SymbolsToLLRs(pts[:], []float64{1, 1, 1, 1}, ldpc.DefaultEsNo, 1)
	for j, p := range pts {
		b0, b1 := ofdm.QPSKDemod(p)
		if (llr[2*j] < 0) != (b0 == 1) || (llr[2*j+1] < 0) != (b1 == 1) {
			t.Errorf("symbol %d: demod %d%d, llrs %.2f %.2f", j, b0, b1, llr[2*j], llr[2*j+1])
		}
	}
}

// stream hands out samples nin at a time, padded with zeros.
type stream struct {
	samples []complex128
	pos     int
}

func (s *stream) next(n int) []complex128 {
	out := make([]complex128, n)
	if s.pos < len(s.samples) {
		copy(out, s.samples[s.pos:])
	}
	s.pos += n
	return out
}

func TestAllOnesOverOFDM(t *testing.T) {
	txm, err := ofdm.New(ofdm.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	rxm, err := ofdm.New(ofdm.DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	code, _ := ldpc.CodeByName("HRA_112_112")
	tx, err := NewTransmitter(txm, code, 1)
	if err != nil {
		t.Fatal(err)
	}
	rx, err := NewReceiver(rxm, code, 1)
	if err != nil {
		t.Fatal(err)
	}

	ones := make([]byte, tx.Framing().DataBits)
	for i := range ones {
		ones[i] = 1
	}
	frames, err := tx.ModulateBlock([][]byte{ones}, nil)
	if err != nil {
		t.Fatalf("ModulateBlock: %v", err)
	}
	samples := make([]complex128, 300)
	for i := 0; i < 20; i++ {
		samples = append(samples, frames[0]...)
	}
	src := &stream{samples: samples}

	blocks := 0
	for i := 0; i < 18; i++ {
		f, err := rxm.Receive(src.next(rxm.Nin()))
		if err != nil {
			t.Fatalf("Receive: %v", err)
		}
		b, err := rx.Push(f)
		if err != nil {
			t.Fatalf("Push: %v", err)
		}
		if b == nil {
			continue
		}
		blocks++
		cw := b.Codewords[0]
		if cw.ParityChecks != code.M {
			t.Errorf("frame %d: %d parity checks, want %d", i, cw.ParityChecks, code.M)
		}
		if e := countErrors(ones, cw.Data); e != 0 {
			t.Errorf("frame %d: %d bit errors", i, e)
		}
	}
	if blocks < 10 {
		t.Errorf("only %d blocks decoded", blocks)
	}
	if rx.State() != ofdm.Synced {
		t.Errorf("interleaver state %v", rx.State())
	}
}
