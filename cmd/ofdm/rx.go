package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/lifegpc/libcodec2-MSVC/internal/audio"
	"github.com/lifegpc/libcodec2-MSVC/internal/codecio"
	"github.com/lifegpc/libcodec2-MSVC/internal/ofdm"
	"github.com/lifegpc/libcodec2-MSVC/internal/protocol"
)

// BER limits for the exit status with test frames.
const (
	maxRawBER   = 0.1
	maxCodedBER = 0.01
)

type rxCmd struct {
	Input      string `arg:"" help:"Raw int16 input file, - for stdin"`
	Output     string `help:"Write the payload of received data packets here"`
	TestFrames bool   `name:"testframes" help:"Count bit errors against the test codeword"`
	Interleave int    `help:"Frames per interleaver block (default from config)"`
	Keep       bool   `help:"Keep blocks decoded just before a sync loss in the counters"`
	DPSK       bool   `name:"dpsk" help:"Differential PSK"`
	Complex    bool   `help:"Input holds interleaved int16 real and imaginary parts"`
}

func (c *rxCmd) Run(g *Globals) error {
	cfg, l, err := g.load()
	if err != nil {
		return err
	}
	if c.DPSK {
		cfg.Modem.DPSK = true
	}
	ch, err := newChain(cfg, l, chainOptions{
		Frames:     c.Interleave,
		TestFrames: c.TestFrames,
		Packets:    !c.TestFrames,
		Keep:       c.Keep,
	})
	if err != nil {
		return err
	}
	defer ch.modem.Close()

	in, err := open(c.Input)
	if err != nil {
		return err
	}
	defer in.Close()

	var out *os.File
	if c.Output != "" {
		if out, err = os.Create(c.Output); err != nil {
			return err
		}
		defer out.Close()
		ch.onPacket = func(p *protocol.Packet) {
			if p.Type == protocol.TypeData {
				out.Write(p.Payload)
			}
		}
	}

	read := sampleReader(in, c.Complex, cfg.Audio.Scale)
	if err := run(ch, read); err != nil {
		return err
	}

	counts := ch.rx.Counters()
	st := ch.modem.Stats()
	fmt.Fprintf(os.Stderr, "frames: %d sync: %s snr: %.1f dB clock offset: %.0f ppm\n",
		st.Frames, st.Sync, st.SNR3kDB, st.ClockOffsetPPM)
	if ch.asm != nil {
		s := ch.asm.Stats()
		fmt.Fprintf(os.Stderr, "packets: %d recovered: %d failed: %d erasures: %d\n",
			s.Packets, s.Recovered, s.Failed, s.Erasures)
	}
	if !c.TestFrames {
		return nil
	}
	fmt.Fprintf(os.Stderr, "BER......: %5.4f Tbits: %5d Terrs: %5d\n", counts.RawBER(), counts.RawBits, counts.RawErrors)
	fmt.Fprintf(os.Stderr, "Coded BER: %5.4f Tbits: %5d Terrs: %5d\n", counts.CodedBER(), counts.CodedBits, counts.CodedErrors)
	if counts.CodedBits == 0 || counts.RawBER() >= maxRawBER || counts.CodedBER() >= maxCodedBER {
		return exitCode(1)
	}
	return nil
}

// run feeds the chain until the input ends.
func run(ch *chain, read func(n int) ([]complex128, error)) error {
	defer ch.flush()
	for {
		samples, err := read(ch.nin())
		if errors.Is(err, io.EOF) || errors.Is(err, codecio.ErrShortRead) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, _, err := ch.step(samples); err != nil {
			return err
		}
	}
}

// sampleReader returns n modem input samples per call.
func sampleReader(r io.Reader, cplx bool, scale float64) func(n int) ([]complex128, error) {
	if cplx {
		cr := codecio.NewReader(r)
		return func(n int) ([]complex128, error) {
			s, err := cr.ReadComplexShorts(n)
			if err != nil {
				return nil, err
			}
			inv := complex(1/ofdm.AmpScale, 0)
			for i := range s {
				s[i] *= inv
			}
			return s, nil
		}
	}
	return fromSource(audio.NewFileSource(r, scale), scale)
}

// fromSource adapts an audio source of samples in [-1, 1).
func fromSource(src audio.Source, scale float64) func(n int) ([]complex128, error) {
	k := scale / ofdm.AmpScale
	return func(n int) ([]complex128, error) {
		x, err := src.Read(n)
		if err != nil {
			return nil, err
		}
		out := make([]complex128, len(x))
		for i, v := range x {
			out[i] = complex(v*k, 0)
		}
		return out, nil
	}
}

func open(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}
