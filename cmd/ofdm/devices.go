package main

import (
	"os"

	"github.com/lifegpc/libcodec2-MSVC/internal/audio"
)

type devicesCmd struct{}

func (c *devicesCmd) Run(g *Globals) error {
	if err := audio.Init(); err != nil {
		return err
	}
	defer audio.Terminate()
	devices, err := audio.ListDevices()
	if err != nil {
		return err
	}
	audio.FprintDevices(os.Stdout, devices)
	return nil
}
