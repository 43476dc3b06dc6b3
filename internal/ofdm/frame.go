package ofdm

import (
	"errors"
	"fmt"
)

// ErrBitCount is returned when a bit or symbol buffer has the wrong length.
var ErrBitCount = errors.New("wrong bit count")

// frameLayout says what each data symbol of a modem frame carries.
type frameLayout struct {
	nsyms    int
	uwSyms   []int // symbol indexes holding unique word bits
	txtStart int   // first text symbol; text runs to the end of the frame
	isUW     []bool
	uw       []byte
}

// uwSymbolIndexes spreads the unique word symbols evenly over the frame.
func (c Config) uwSymbolIndexes() []int {
	n := c.UWBits() / c.Bps
	idx := make([]int, n)
	for j := range idx {
		bit := (j*c.Bps + 1) * (c.Nc + 1) / c.Bps
		idx[j] = bit / c.Bps
	}
	return idx
}

func newFrameLayout(c Config) (*frameLayout, error) {
	l := &frameLayout{
		nsyms:    c.SymsPerFrame(),
		uwSyms:   c.uwSymbolIndexes(),
		txtStart: c.SymsPerFrame() - c.TxtBits/c.Bps,
		isUW:     make([]bool, c.SymsPerFrame()),
		uw:       c.uwPattern(),
	}
	prev := -1
	for _, s := range l.uwSyms {
		if s <= prev || s >= l.txtStart {
			return nil, fmt.Errorf("%w: unique word symbol %d does not fit the frame", ErrConfig, s)
		}
		l.isUW[s] = true
		prev = s
	}
	return l, nil
}

// assembleBits interleaves unique word, payload and text bits into one
// modem frame of unpacked bits.
func (l *frameLayout) assembleBits(payload, txt []byte) []byte {
	out := make([]byte, 2*l.nsyms)
	p, u, t := 0, 0, 0
	for s := 0; s < l.nsyms; s++ {
		dst := out[2*s : 2*s+2]
		switch {
		case l.isUW[s]:
			copy(dst, l.uw[u:u+2])
			u += 2
		case s >= l.txtStart:
			if txt != nil {
				copy(dst, txt[t:t+2])
			}
			t += 2
		default:
			copy(dst, payload[p:p+2])
			p += 2
		}
	}
	return out
}

// assembleSymbols places already mapped payload symbols into a frame,
// filling in the unique word and text symbols.
func (l *frameLayout) assembleSymbols(payload []complex128, txt []byte) []complex128 {
	out := make([]complex128, l.nsyms)
	p, u, t := 0, 0, 0
	for s := 0; s < l.nsyms; s++ {
		switch {
		case l.isUW[s]:
			out[s] = QPSKMod(l.uw[u], l.uw[u+1])
			u += 2
		case s >= l.txtStart:
			var b0, b1 byte
			if txt != nil {
				b0, b1 = txt[t], txt[t+1]
			}
			out[s] = QPSKMod(b0, b1)
			t += 2
		default:
			out[s] = payload[p]
			p++
		}
	}
	return out
}

// disassemble splits demodulated frame symbols into payload symbols and
// amplitudes plus decoded text bits.
func (l *frameLayout) disassemble(syms []complex128, amps []float64) ([]complex128, []float64, []byte) {
	n := l.nsyms - len(l.uwSyms) - (l.nsyms - l.txtStart)
	psyms := make([]complex128, 0, n)
	pamps := make([]float64, 0, n)
	txt := make([]byte, 0, 2*(l.nsyms-l.txtStart))
	for s := 0; s < l.nsyms; s++ {
		switch {
		case l.isUW[s]:
		case s >= l.txtStart:
			b0, b1 := QPSKDemod(syms[s])
			txt = append(txt, b0, b1)
		default:
			psyms = append(psyms, syms[s])
			pamps = append(pamps, amps[s])
		}
	}
	return psyms, pamps, txt
}

// uwErrors counts unique word bit errors in a frame of hard bits.
func (l *frameLayout) uwErrors(bits []byte) int {
	errs := 0
	for j, s := range l.uwSyms {
		if bits[2*s] != l.uw[2*j] {
			errs++
		}
		if bits[2*s+1] != l.uw[2*j+1] {
			errs++
		}
	}
	return errs
}

// AssembleFrame builds a modem frame from PayloadBitsPerFrame payload bits
// and TxtBits text bits. txt may be nil.
func (m *Modem) AssembleFrame(payload, txt []byte) ([]byte, error) {
	if len(payload) != m.cfg.PayloadBitsPerFrame() {
		return nil, fmt.Errorf("%w: payload has %d bits, want %d", ErrBitCount, len(payload), m.cfg.PayloadBitsPerFrame())
	}
	if txt != nil && len(txt) != m.cfg.TxtBits {
		return nil, fmt.Errorf("%w: text has %d bits, want %d", ErrBitCount, len(txt), m.cfg.TxtBits)
	}
	return m.layout.assembleBits(payload, txt), nil
}

// AssembleSymbols builds frame symbols from PayloadSymsPerFrame mapped
// payload symbols and TxtBits text bits. txt may be nil.
func (m *Modem) AssembleSymbols(payload []complex128, txt []byte) ([]complex128, error) {
	if len(payload) != m.cfg.PayloadSymsPerFrame() {
		return nil, fmt.Errorf("%w: payload has %d symbols, want %d", ErrBitCount, len(payload), m.cfg.PayloadSymsPerFrame())
	}
	if txt != nil && len(txt) != m.cfg.TxtBits {
		return nil, fmt.Errorf("%w: text has %d bits, want %d", ErrBitCount, len(txt), m.cfg.TxtBits)
	}
	return m.layout.assembleSymbols(payload, txt), nil
}

// Disassemble extracts payload symbols, their amplitudes and the text bits
// from one demodulated frame.
func (m *Modem) Disassemble(syms []complex128, amps []float64) (payload []complex128, payloadAmps []float64, txt []byte, err error) {
	if len(syms) != m.cfg.SymsPerFrame() || len(amps) != len(syms) {
		return nil, nil, nil, fmt.Errorf("%w: got %d symbols and %d amplitudes, want %d", ErrBitCount, len(syms), len(amps), m.cfg.SymsPerFrame())
	}
	payload, payloadAmps, txt = m.layout.disassemble(syms, amps)
	return payload, payloadAmps, txt, nil
}
