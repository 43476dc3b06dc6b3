// Package interldpc carries LDPC codewords over the OFDM modem. A block of
// codewords is interleaved across several modem frames on transmit; the
// receiver collects the frames, finds the block alignment and decodes.
package interldpc

import (
	"errors"
	"fmt"

	"github.com/lifegpc/libcodec2-MSVC/internal/interleave"
	"github.com/lifegpc/libcodec2-MSVC/internal/ldpc"
	"github.com/lifegpc/libcodec2-MSVC/internal/ofdm"
)

var (
	// ErrCodeSize is returned when a codeword does not fill one frame.
	ErrCodeSize = errors.New("code does not fit the modem frame")
	// ErrFrames is returned for a non-positive interleave depth.
	ErrFrames = errors.New("invalid interleave frame count")
	// ErrBlockSize is returned when a block has the wrong shape.
	ErrBlockSize = errors.New("wrong block size")
)

// framing shortens c so that one codeword fills the payload of one frame.
func framing(cfg ofdm.Config, c *ldpc.Code, frames int) (ldpc.Framing, error) {
	if frames < 1 {
		return ldpc.Framing{}, fmt.Errorf("%w: %d", ErrFrames, frames)
	}
	pb := cfg.PayloadBitsPerFrame()
	if pb <= c.M || pb > c.N {
		return ldpc.Framing{}, fmt.Errorf("%w: %s with %d payload bits per frame", ErrCodeSize, c.Name, pb)
	}
	return c.WithDataBits(pb - c.M)
}

// TestFrameData returns the data bits of the standard test codeword.
func TestFrameData(f ldpc.Framing) []byte {
	return ofdm.GeneratePayloadBits(f.DataBits)
}

// Transmitter encodes and modulates interleaved blocks.
type Transmitter struct {
	modem   *ofdm.Modem
	framing ldpc.Framing
	frames  int
}

// NewTransmitter creates a transmitter interleaving over interleaveFrames
// frames, one codeword per frame.
func NewTransmitter(m *ofdm.Modem, c *ldpc.Code, interleaveFrames int) (*Transmitter, error) {
	f, err := framing(m.Config(), c, interleaveFrames)
	if err != nil {
		return nil, err
	}
	return &Transmitter{modem: m, framing: f, frames: interleaveFrames}, nil
}

// Framing returns the codeword framing in use.
func (t *Transmitter) Framing() ldpc.Framing { return t.framing }

// Frames returns the interleave depth.
func (t *Transmitter) Frames() int { return t.frames }

// TestFrameData returns the data bits of the standard test codeword.
func (t *Transmitter) TestFrameData() []byte { return TestFrameData(t.framing) }

// EncodeBlock encodes one codeword per frame, maps the coded bits to QPSK
// and interleaves the symbols over the whole block. It returns the payload
// symbols of each frame.
func (t *Transmitter) EncodeBlock(data [][]byte) ([][]complex128, error) {
	if len(data) != t.frames {
		return nil, fmt.Errorf("%w: %d codewords, want %d", ErrBlockSize, len(data), t.frames)
	}
	syms := make([]complex128, 0, t.frames*t.framing.CodedBits()/2)
	for _, d := range data {
		coded, err := t.framing.Encode(d)
		if err != nil {
			return nil, err
		}
		syms = append(syms, ofdm.MapBits(coded)...)
	}
	syms = interleave.Interleave(syms)

	per := t.modem.Config().PayloadSymsPerFrame()
	out := make([][]complex128, t.frames)
	for i := range out {
		out[i] = syms[i*per : (i+1)*per]
	}
	return out, nil
}

// ModulateBlock encodes, interleaves and modulates one block. txt holds
// the text bits of each frame and may be nil.
func (t *Transmitter) ModulateBlock(data [][]byte, txt [][]byte) ([][]complex128, error) {
	if txt != nil && len(txt) != t.frames {
		return nil, fmt.Errorf("%w: %d text frames, want %d", ErrBlockSize, len(txt), t.frames)
	}
	payload, err := t.EncodeBlock(data)
	if err != nil {
		return nil, err
	}
	out := make([][]complex128, t.frames)
	for i, p := range payload {
		var tb []byte
		if txt != nil {
			tb = txt[i]
		}
		syms, err := t.modem.AssembleSymbols(p, tb)
		if err != nil {
			return nil, err
		}
		if out[i], err = t.modem.ModulateSymbols(syms); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ModulateTestBlock modulates a block of test codewords.
func (t *Transmitter) ModulateTestBlock() ([][]complex128, error) {
	data := make([][]byte, t.frames)
	for i := range data {
		data[i] = t.TestFrameData()
	}
	return t.ModulateBlock(data, nil)
}
