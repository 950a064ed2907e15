package main

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/loadcell/cmd/scale/console"
	"github.com/mklimuk/loadcell/nau7802"
)

var calibrateCmd = cli.Command{
	Name:  "calibrate",
	Usage: "run the internal offset calibration for the selected configuration",
	Flags: append(append([]cli.Flag{}, adapterFlags...), configFlags...),
	Action: func(c *cli.Context) error {
		ctx := console.SetVerbose(context.Background(), c.Bool("verbose"))

		answer, err := console.YesOrNo("the input bridge must be unloaded, continue?")
		if err != nil {
			return console.Exit(1, "prompt error: %s", console.Red(err))
		}
		if answer != console.Yes {
			console.Print("aborted")
			return nil
		}

		bus, cleanup, err := openBus(c)
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		defer cleanup()

		opts, err := driverOpts(c)
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		adc, err := nau7802.New(bus, nau7802.TimerDelay{}, opts...)
		if err != nil {
			return console.Exit(1, "driver configuration error: %s", console.Red(err))
		}
		if err = adc.Init(ctx); err != nil {
			return console.Exit(1, "device initialization error: %s", console.Red(err))
		}

		offset, err := adc.OffsetCalibration(ctx)
		if err != nil {
			return console.Exit(1, "error reading calibration result: %s", console.Red(err))
		}
		gain, err := adc.GainCalibration(ctx)
		if err != nil {
			return console.Exit(1, "error reading calibration result: %s", console.Red(err))
		}
		console.PInfof(console.PictoFinish, "calibrated; offset %s, gain factor %s",
			console.White(offset), console.White(gain))
		return nil
	},
}
