package main

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/loadcell/cmd/scale/console"
	"github.com/mklimuk/loadcell/nau7802"
)

var readCmd = cli.Command{
	Name:  "read",
	Usage: "initialize the ADC and print raw conversion codes",
	Flags: append(append([]cli.Flag{
		&cli.IntFlag{
			Name:    "samples",
			Aliases: []string{"n"},
			Value:   1,
			Usage:   "number of conversions to read",
		},
	}, adapterFlags...), configFlags...),
	Action: func(c *cli.Context) error {
		ctx := console.SetVerbose(context.Background(), c.Bool("verbose"))

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
		console.PInfof(console.PictoScale, "gain %s, %s, ldo %s, %s",
			console.White(adc.Gain()), console.White(adc.SampleRate()),
			console.White(adc.Ldo()), console.White(adc.Channel()))

		for i := 0; i < c.Int("samples"); i++ {
			code, err := adc.Read(ctx)
			if err != nil {
				return console.Exit(1, "conversion read error: %s", console.Red(err))
			}
			console.Printf("%s %s\n", console.PictoWave, console.White(code))
		}
		return nil
	},
}
