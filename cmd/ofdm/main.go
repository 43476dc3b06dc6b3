// Command ofdm transmits and receives the 700D OFDM waveform with
// interleaved LDPC codewords.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"

	"github.com/lifegpc/libcodec2-MSVC/internal/config"
)

type Globals struct {
	Config  string `help:"YAML configuration file" type:"existingfile"`
	Verbose bool   `short:"v" help:"Log every frame and sync transition"`
}

// load returns the configuration with the global flags applied.
func (g *Globals) load() (*config.Config, *log.Logger, error) {
	cfg := config.Default()
	if g.Config != "" {
		var err error
		if cfg, err = config.Load(g.Config); err != nil {
			return nil, nil, err
		}
	}
	if g.Verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, cfg.Logger(), nil
}

var cli struct {
	Globals

	Tx      txCmd      `cmd:"" help:"Modulate test frames or a file to raw samples"`
	Rx      rxCmd      `cmd:"" help:"Demodulate raw samples and report bit error rates"`
	Serve   serveCmd   `cmd:"" help:"Run the receiver with a live stats server"`
	Info    infoCmd    `cmd:"" help:"Print the derived modem parameters"`
	Devices devicesCmd `cmd:"" help:"List audio devices"`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("ofdm"),
		kong.Description("700D OFDM modem with interleaved LDPC."),
		kong.UsageOnError(),
	)
	if err := ctx.Run(&cli.Globals); err != nil {
		var code exitCode
		if errors.As(err, &code) {
			os.Exit(int(code))
		}
		log.Fatal("ofdm", "err", err)
	}
}

// exitCode ends the program with a status but no error message.
type exitCode int

func (e exitCode) Error() string { return fmt.Sprintf("exit status %d", int(e)) }
