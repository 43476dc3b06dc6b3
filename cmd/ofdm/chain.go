package main

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/lifegpc/libcodec2-MSVC/internal/config"
	"github.com/lifegpc/libcodec2-MSVC/internal/interldpc"
	"github.com/lifegpc/libcodec2-MSVC/internal/metrics"
	"github.com/lifegpc/libcodec2-MSVC/internal/ofdm"
	"github.com/lifegpc/libcodec2-MSVC/internal/protocol"
)

// chain is the receive pipeline: modem, interleaver and optional packet
// assembly, fed nin samples at a time.
type chain struct {
	modem *ofdm.Modem
	rx    *interldpc.Receiver
	asm   *protocol.Assembler
	m     *metrics.Metrics
	log   *log.Logger

	packets   []*protocol.Packet
	onPacket  func(*protocol.Packet)
	frames    int
	lastState ofdm.SyncState
}

type chainOptions struct {
	Frames     int  // interleave depth, 0 for the configured one
	TestFrames bool // count errors against the test codeword
	Packets    bool // reassemble data packets
	Keep       bool // keep blocks decoded before a sync loss
}

func newChain(cfg *config.Config, l *log.Logger, opt chainOptions) (*chain, error) {
	modem, err := cfg.NewModem()
	if err != nil {
		return nil, err
	}
	modem.SetLogger(l)
	code, err := cfg.Code()
	if err != nil {
		return nil, err
	}
	frames := opt.Frames
	if frames <= 0 {
		frames = cfg.LDPC.InterleaveFrames
	}
	rx, err := interldpc.NewReceiver(modem, code, frames)
	if err != nil {
		return nil, err
	}
	rx.SetLogger(l)
	rx.SetEsNo(cfg.LDPC.EsNo)
	rx.SetTestFrames(opt.TestFrames)
	if opt.Keep || !cfg.LDPC.Discard {
		rx.SetDiscardPolicy(interldpc.KeepOnSyncLoss)
	}

	c := &chain{modem: modem, rx: rx, log: l}
	if opt.Packets {
		c.asm, err = protocol.NewAssembler(rx.Framing().DataBits, cfg.FEC.DataShards, cfg.FEC.ParityShards)
		if err != nil {
			return nil, err
		}
	}
	return c, nil
}

// nin returns the number of samples the next step needs.
func (c *chain) nin() int { return c.modem.Nin() }

// step runs one frame through the pipeline.
func (c *chain) step(samples []complex128) (ofdm.RxFrame, *interldpc.Block, error) {
	f, err := c.modem.Receive(samples)
	if err != nil {
		return f, nil, err
	}
	st := c.modem.Stats()
	if c.m != nil {
		c.m.ObserveFrame(f, st)
	}
	if f.State != c.lastState {
		c.log.Info("modem sync", "state", f.State, "frame", c.frames, "snr", fmt.Sprintf("%.1f", st.SNR3kDB))
		c.lastState = f.State
	}
	if f.Demodulated {
		c.log.Debug("frame",
			"n", c.frames, "sync", f.State, "nin", f.Nin, "uw_errors", f.UWErrors,
			"snr", fmt.Sprintf("%.1f", st.SNR3kDB),
			"foff", fmt.Sprintf("%.2f", st.FoffHz),
			"clock_ppm", fmt.Sprintf("%.0f", st.ClockOffsetPPM))
	}
	c.frames++

	b, err := c.rx.Push(f)
	if err != nil || b == nil {
		return f, nil, err
	}
	if c.m != nil {
		c.m.ObserveBlock(b)
		c.m.ObserveCounters(c.rx.Counters())
	}
	if c.asm != nil {
		for _, cw := range b.Codewords {
			pkts, err := c.asm.Push(cw.Data, cw.Converged)
			if err != nil {
				return f, b, err
			}
			c.deliver(pkts...)
		}
	}
	return f, b, nil
}

// flush completes a packet still being assembled.
func (c *chain) flush() {
	if c.asm == nil {
		return
	}
	if p := c.asm.Flush(); p != nil {
		c.deliver(p)
	}
}

func (c *chain) deliver(pkts ...*protocol.Packet) {
	for _, p := range pkts {
		c.log.Debug("packet", "type", p.TypeName(), "seq", p.Seq, "bytes", len(p.Payload))
		if c.onPacket != nil {
			c.onPacket(p)
		} else {
			c.packets = append(c.packets, p)
		}
	}
}
