package main

import (
	"fmt"
	"io"
	"os"

	"github.com/lifegpc/libcodec2-MSVC/internal/config"
	"github.com/lifegpc/libcodec2-MSVC/internal/interleave"
)

type infoCmd struct{}

func (c *infoCmd) Run(g *Globals) error {
	cfg, _, err := g.load()
	if err != nil {
		return err
	}
	return printInfo(os.Stdout, cfg)
}

func printInfo(w io.Writer, cfg *config.Config) error {
	oc, err := cfg.OFDM()
	if err != nil {
		return err
	}
	code, err := cfg.Code()
	if err != nil {
		return err
	}
	frames := cfg.LDPC.InterleaveFrames
	dataBits := oc.PayloadBitsPerFrame() - code.M
	syms := frames * oc.PayloadSymsPerFrame()

	fmt.Fprintf(w, "Fs.................: %.0f Hz\n", oc.Fs)
	fmt.Fprintf(w, "Rs.................: %.2f Hz\n", oc.Rs)
	fmt.Fprintf(w, "Tcp................: %.4f s\n", oc.Tcp)
	fmt.Fprintf(w, "TX/RX centre.......: %.0f/%.0f Hz\n", oc.TxCentre, oc.RxCentre)
	fmt.Fprintf(w, "Nc.................: %d\n", oc.Nc)
	fmt.Fprintf(w, "Ns.................: %d\n", oc.Ns)
	fmt.Fprintf(w, "M/Ncp..............: %d/%d\n", oc.M(), oc.Ncp())
	fmt.Fprintf(w, "Samples per frame..: %d (max nin %d)\n", oc.SamplesPerFrame(), oc.MaxSamplesPerFrame())
	fmt.Fprintf(w, "Bits per frame.....: %d\n", oc.BitsPerFrame())
	fmt.Fprintf(w, "UW/text bits.......: %d/%d\n", oc.UWBits(), oc.TxtBits)
	fmt.Fprintf(w, "Payload bits.......: %d\n", oc.PayloadBitsPerFrame())
	fmt.Fprintf(w, "LDPC code..........: %v, rate %.2f, %s, %d iterations\n", code, code.Rate(), code.DecType, code.MaxIter)
	fmt.Fprintf(w, "Codeword data bits.: %d (%d unused)\n", dataBits, code.K-dataBits)
	fmt.Fprintf(w, "Interleave frames..: %d (%d symbols, prime %d)\n", frames, syms, interleave.Prime(syms))
	fmt.Fprintf(w, "Frame time.........: %.0f ms\n", 1000*float64(oc.SamplesPerFrame())/oc.Fs)
	return nil
}
