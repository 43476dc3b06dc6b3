// Command ldpc encodes, decodes and adds noise to LDPC codewords stored
// in files, for testing the codes apart from the modem.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/lifegpc/libcodec2-MSVC/internal/ldpc"
	"github.com/lifegpc/libcodec2-MSVC/internal/ofdm"
)

type CodeFlags struct {
	Code   string `default:"HRA_112_112" help:"LDPC code name"`
	Unused int    `help:"Data bits fixed to 1 and not transmitted"`
}

// framing returns the selected code shortened by Unused bits.
func (f CodeFlags) framing() (ldpc.Framing, error) {
	c, err := ldpc.CodeByName(f.Code)
	if err != nil {
		return ldpc.Framing{}, err
	}
	return c.WithDataBits(c.K - f.Unused)
}

// testData is the payload of every test frame.
func testData(f ldpc.Framing) []byte { return ofdm.GeneratePayloadBits(f.DataBits) }

var cli struct {
	Verbose bool `short:"v" help:"Debug output"`

	Enc   encCmd   `cmd:"" help:"Encode data bits or test frames"`
	Dec   decCmd   `cmd:"" help:"Decode LLRs or soft decisions"`
	Noise noiseCmd `cmd:"" help:"Add white Gaussian noise to soft decisions"`
	Test  testCmd  `cmd:"" help:"Decode one noisy codeword repeatedly"`
	Codes codesCmd `cmd:"" help:"List the available codes"`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("ldpc"),
		kong.Description("LDPC codec test tool."),
		kong.UsageOnError(),
	)
	l := log.NewWithOptions(os.Stderr, log.Options{})
	if cli.Verbose {
		l.SetLevel(log.DebugLevel)
	}
	if err := ctx.Run(l); err != nil {
		var code exitCode
		if errors.As(err, &code) {
			os.Exit(int(code))
		}
		l.Fatal("ldpc", "err", err)
	}
}

type exitCode int

func (e exitCode) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func openIn(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	return os.Open(path)
}

func createOut(path string) (io.WriteCloser, error) {
	if path == "-" {
		return nopWriteCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

type codesCmd struct{}

func (c *codesCmd) Run(l *log.Logger) error {
	for _, code := range ldpc.Codes() {
		fmt.Printf("%-18s N=%-5d K=%-5d M=%-4d rate %.2f max iter %d row weight %d col weight %d\n",
			code.Name, code.N, code.K, code.M, code.Rate(), code.MaxIter, code.MaxRowWeight(), code.MaxColWeight())
	}
	return nil
}
