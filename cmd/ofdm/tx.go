package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/lifegpc/libcodec2-MSVC/internal/audio"
	"github.com/lifegpc/libcodec2-MSVC/internal/config"
	"github.com/lifegpc/libcodec2-MSVC/internal/interldpc"
	"github.com/lifegpc/libcodec2-MSVC/internal/ofdm"
	"github.com/lifegpc/libcodec2-MSVC/internal/protocol"
)

type txCmd struct {
	Output     string `arg:"" help:"Raw int16 output file, - for stdout"`
	Input      string `help:"Send this file as data packets instead of test frames" type:"existingfile"`
	Blocks     int    `default:"10" help:"Interleaver blocks of test frames to send"`
	Interleave int    `help:"Frames per interleaver block (default from config)"`
	DPSK       bool   `name:"dpsk" help:"Differential PSK"`
	TxBPF      bool   `name:"txbpf" help:"Clip and band-pass filter the output"`
	Play       bool   `help:"Play through the default audio output as well"`
}

func (c *txCmd) Run(g *Globals) error {
	cfg, l, err := g.load()
	if err != nil {
		return err
	}
	if c.DPSK {
		cfg.Modem.DPSK = true
	}
	if c.TxBPF {
		cfg.Modem.TxBPF = true
	}
	if c.Interleave > 0 {
		cfg.LDPC.InterleaveFrames = c.Interleave
	}

	w, closeOut, err := create(c.Output)
	if err != nil {
		return err
	}
	defer closeOut()
	sinks := []audio.Sink{audio.NewFileSink(w, cfg.Audio.Scale)}
	if c.Play {
		if err := audio.Init(); err != nil {
			return err
		}
		defer audio.Terminate()
		p, err := audio.OpenPlayback(cfg.Modem.Fs)
		if err != nil {
			return err
		}
		defer p.Close()
		sinks = append(sinks, p)
	}

	var data [][]byte
	if c.Input != "" {
		if data, err = packetBits(cfg, c.Input); err != nil {
			return err
		}
	}
	frames, err := transmit(cfg, l, data, c.Blocks, multiSink(sinks))
	if err != nil {
		return err
	}
	if err := sinks[0].(*audio.FileSink).Flush(); err != nil {
		return err
	}
	l.Info("transmitted", "frames", frames, "interleave", cfg.LDPC.InterleaveFrames)
	return nil
}

// tailFrames of filler follow packet data so the receiver, which runs a
// few frames behind its input, demodulates the last packet.
const tailFrames = 4

// transmit modulates data, one slice of codeword data bits each, or
// blocks of test frames when data is nil. Packet data is followed by
// codewords the packet assembler ignores.
func transmit(cfg *config.Config, l *log.Logger, data [][]byte, blocks int, out audio.Sink) (int, error) {
	modem, err := cfg.NewModem()
	if err != nil {
		return 0, err
	}
	defer modem.Close()
	code, err := cfg.Code()
	if err != nil {
		return 0, err
	}
	tx, err := interldpc.NewTransmitter(modem, code, cfg.LDPC.InterleaveFrames)
	if err != nil {
		return 0, err
	}
	n := tx.Frames()

	if data == nil {
		for i := 0; i < blocks*n; i++ {
			data = append(data, tx.TestFrameData())
		}
	} else {
		for i := 0; i < tailFrames; i++ {
			data = append(data, fillerBits(tx.Framing().DataBits))
		}
	}
	for len(data)%n != 0 {
		data = append(data, fillerBits(tx.Framing().DataBits))
	}

	scale := ofdm.AmpScale / cfg.Audio.Scale
	frames := 0
	for i := 0; i < len(data); i += n {
		samples, err := tx.ModulateBlock(data[i:i+n], nil)
		if err != nil {
			return frames, err
		}
		for _, s := range samples {
			if err := out.Write(toAudio(s, scale)); err != nil {
				return frames, err
			}
			frames++
		}
		l.Debug("block", "n", i/n, "frames", n)
	}
	return frames, nil
}

// packetBits splits a file into data packets and their codewords.
func packetBits(cfg *config.Config, path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	code, err := cfg.Code()
	if err != nil {
		return nil, err
	}
	oc, err := cfg.OFDM()
	if err != nil {
		return nil, err
	}
	dataBits := oc.PayloadBitsPerFrame() - code.M
	pz, err := protocol.NewPacketizer(dataBits, cfg.FEC.DataShards, cfg.FEC.ParityShards)
	if err != nil {
		return nil, err
	}

	var out [][]byte
	r := bufio.NewReader(f)
	buf := make([]byte, pz.MaxPayload())
	for seq := 0; ; seq++ {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			bits, serr := pz.Split(protocol.NewDataPacket(byte(seq), buf[:n]))
			if serr != nil {
				return nil, serr
			}
			out = append(out, bits...)
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
	}
}

// fillerBits is codeword data whose shard index is out of range.
func fillerBits(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = 1
	}
	return b
}

func toAudio(s []complex128, scale float64) []float64 {
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = real(v) * scale
	}
	return out
}

type multiSink []audio.Sink

func (m multiSink) Write(samples []float64) error {
	for _, s := range m {
		if err := s.Write(samples); err != nil {
			return err
		}
	}
	return nil
}

func create(path string) (io.Writer, func(), error) {
	if path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
