package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/mklimuk/loadcell/adapter"
	"github.com/mklimuk/loadcell/cmd/scale/console"
	"github.com/mklimuk/loadcell/nau7802"
)

var statusCmd = cli.Command{
	Name:  "status",
	Usage: "dump device and adapter state",
	Subcommands: cli.Commands{
		&statusRegistersCmd,
		&statusAdapterCmd,
	},
}

var statusRegistersCmd = cli.Command{
	Name:  "registers",
	Usage: "dump the ADC control registers",
	Flags: adapterFlags,
	Action: func(c *cli.Context) error {
		ctx := console.SetVerbose(context.Background(), c.Bool("verbose"))

		bus, cleanup, err := openBus(c)
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		defer cleanup()

		adc, err := nau7802.New(bus, nau7802.TimerDelay{})
		if err != nil {
			return console.Exit(1, "driver configuration error: %s", console.Red(err))
		}
		snap, err := adc.DumpRegisters(ctx)
		if err != nil {
			return console.Exit(1, "register read error: %s", console.Red(err))
		}
		enc := yaml.NewEncoder(os.Stdout)
		if err = enc.Encode(snap); err != nil {
			return console.Exit(1, "encoding error: %s", console.Red(err))
		}
		return enc.Close()
	},
}

var statusAdapterCmd = cli.Command{
	Name:  "adapter",
	Usage: "dump the MCP2221 I2C engine status",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}},
		&cli.BoolFlag{Name: "release", Usage: "cancel a pending transfer first"},
	},
	Action: func(c *cli.Context) error {
		ctx := console.SetVerbose(context.Background(), c.Bool("verbose"))
		a := adapter.NewMCP2221()
		if err := a.Init(); err != nil {
			return console.Exit(1, "adapter initialization error: %s", console.Red(err))
		}
		defer func() { _ = a.Close() }()
		var status *adapter.MCP2221Status
		var err error
		if c.Bool("release") {
			status, err = a.ReleaseBus(ctx)
		} else {
			status, err = a.Status(ctx)
		}
		if err != nil {
			return console.Exit(1, "adapter communication error: %s", console.Red(err))
		}
		enc := yaml.NewEncoder(os.Stdout)
		if err = enc.Encode(status); err != nil {
			return console.Exit(1, "encoding error: %s", console.Red(err))
		}
		return enc.Close()
	},
}
