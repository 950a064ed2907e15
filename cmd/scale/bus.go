package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"
	"periph.io/x/conn/v3/physic"

	"github.com/mklimuk/loadcell"
	"github.com/mklimuk/loadcell/adapter"
	"github.com/mklimuk/loadcell/cmd/scale/console"
	"github.com/mklimuk/loadcell/i2c"
)

var adapterFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "adapter",
		Aliases: []string{"a"},
		Value:   "mcp2221",
		Usage:   "bus adapter: mcp2221, generic or nanopi",
	},
	&cli.StringFlag{
		Name:    "device",
		Aliases: []string{"d"},
		Value:   "/dev/i2c-1",
		Usage:   "i2c device path (generic adapter)",
	},
	&cli.IntFlag{
		Name:  "bus",
		Value: 2,
		Usage: "i2c bus number (nanopi adapter)",
	},
	&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}},
}

// openBus builds the transport selected by the adapter flag. The returned
// cleanup releases whatever the adapter holds open.
func openBus(c *cli.Context) (loadcell.I2CBus, func(), error) {
	switch c.String("adapter") {
	case "mcp2221":
		ad := adapter.NewMCP2221()
		if err := ad.Init(); err != nil {
			return nil, nil, fmt.Errorf("adapter initialization error: %w", err)
		}
		return ad, func() {
			if err := ad.Close(); err != nil {
				console.Errorf("error closing adapter: %s", console.Red(err))
			}
		}, nil
	case "generic":
		bus, err := i2c.NewGenericBus(c.String("device"))
		if err != nil {
			return nil, nil, fmt.Errorf("adapter initialization error: %w", err)
		}
		if err = bus.SetSpeed(100 * physic.KiloHertz); err != nil {
			console.Warnf("could not set bus speed: %s", console.Red(err))
		}
		return bus, func() {
			if err := bus.Close(); err != nil {
				console.Errorf("error closing bus: %s", console.Red(err))
			}
		}, nil
	case "nanopi":
		npi := nanopi.NewNeoAdaptor()
		if err := npi.I2cBusAdaptor.Connect(); err != nil {
			return nil, nil, fmt.Errorf("adaptor connect error: %w", err)
		}
		bus := adapter.NewGobotBus(npi, c.Int("bus"))
		return bus, func() {
			_ = bus.Release(c.Context)
			_ = npi.I2cBusAdaptor.Finalize()
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown adapter %q", c.String("adapter"))
}
