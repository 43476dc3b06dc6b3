package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/lifegpc/libcodec2-MSVC/internal/audio"
	"github.com/lifegpc/libcodec2-MSVC/internal/metrics"
	"github.com/lifegpc/libcodec2-MSVC/internal/server"
)

type serveCmd struct {
	Listen     string `help:"HTTP listen address (default from config)"`
	File       string `help:"Read raw int16 samples from a file instead of the sound card" type:"existingfile"`
	TestFrames bool   `name:"testframes" help:"Count bit errors against the test codeword"`
	Interleave int    `help:"Frames per interleaver block (default from config)"`
}

func (c *serveCmd) Run(g *Globals) error {
	cfg, l, err := g.load()
	if err != nil {
		return err
	}
	if c.Listen != "" {
		cfg.Server.Listen = c.Listen
	}

	ch, err := newChain(cfg, l, chainOptions{
		Frames:     c.Interleave,
		TestFrames: c.TestFrames,
		Packets:    !c.TestFrames,
	})
	if err != nil {
		return err
	}
	defer ch.modem.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	ch.m = metrics.New(reg)
	h := server.NewHandlers(l)
	srv := server.NewServer(cfg.Server.Listen, h, reg)

	var src audio.Source
	if c.File != "" {
		f, err := os.Open(c.File)
		if err != nil {
			return err
		}
		defer f.Close()
		src = audio.NewFileSource(f, cfg.Audio.Scale)
	} else {
		if err := audio.Init(); err != nil {
			return err
		}
		defer audio.Terminate()
		capture, err := audio.OpenCapture(cfg.Modem.Fs)
		if err != nil {
			return err
		}
		defer capture.Close()
		src = capture
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	grp, ctx := errgroup.WithContext(ctx)
	grp.Go(func() error { return srv.Run(ctx) })
	grp.Go(func() error {
		read := fromSource(src, cfg.Audio.Scale)
		last := ch.rx.State()
		for ctx.Err() == nil {
			samples, err := read(ch.nin())
			if err != nil {
				l.Info("input finished", "err", err)
				<-ctx.Done()
				return nil
			}
			f, b, err := ch.step(samples)
			if err != nil {
				return err
			}
			if b != nil && b.State != last {
				h.Hub().BroadcastLog("info", "interleaver "+b.State.String())
				last = b.State
			}
			if f.Demodulated || b != nil {
				s := server.NewStatus(ch.modem.Stats(), ch.rx.State(), ch.rx.Counters())
				if ch.asm != nil {
					as := ch.asm.Stats()
					s.Packets = &as
				}
				h.Update(s)
			}
		}
		return nil
	})
	if err := grp.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
