package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/loadcell/nau7802"
)

var configFlags = []cli.Flag{
	&cli.IntFlag{
		Name:    "gain",
		Aliases: []string{"g"},
		Value:   128,
		Usage:   "PGA gain: 1, 2, 4, 8, 16, 32, 64 or 128",
	},
	&cli.IntFlag{
		Name:    "rate",
		Aliases: []string{"r"},
		Value:   10,
		Usage:   "sample rate: 10, 20, 40, 80 or 320 sps",
	},
	&cli.IntFlag{
		Name:  "channel",
		Value: 1,
		Usage: "analog input channel: 1 or 2",
	},
	&cli.StringFlag{
		Name:  "ldo",
		Value: "3.3",
		Usage: "LDO voltage: 2.4, 2.7, 3.0, 3.3, 3.6, 3.9, 4.2 or 4.5",
	},
}

func driverOpts(c *cli.Context) ([]nau7802.Opt, error) {
	gain, err := parseGain(c.Int("gain"))
	if err != nil {
		return nil, err
	}
	rate, err := parseRate(c.Int("rate"))
	if err != nil {
		return nil, err
	}
	channel, err := parseChannel(c.Int("channel"))
	if err != nil {
		return nil, err
	}
	ldo, err := parseLdo(c.String("ldo"))
	if err != nil {
		return nil, err
	}
	return []nau7802.Opt{
		nau7802.WithGain(gain),
		nau7802.WithSampleRate(rate),
		nau7802.WithChannel(channel),
		nau7802.WithLdo(ldo),
	}, nil
}

func parseGain(gain int) (nau7802.Gain, error) {
	switch gain {
	case 1:
		return nau7802.Gain1, nil
	case 2:
		return nau7802.Gain2, nil
	case 4:
		return nau7802.Gain4, nil
	case 8:
		return nau7802.Gain8, nil
	case 16:
		return nau7802.Gain16, nil
	case 32:
		return nau7802.Gain32, nil
	case 64:
		return nau7802.Gain64, nil
	case 128:
		return nau7802.Gain128, nil
	}
	return 0, fmt.Errorf("unsupported gain %d", gain)
}

func parseRate(rate int) (nau7802.SampleRate, error) {
	switch rate {
	case 10:
		return nau7802.SPS10, nil
	case 20:
		return nau7802.SPS20, nil
	case 40:
		return nau7802.SPS40, nil
	case 80:
		return nau7802.SPS80, nil
	case 320:
		return nau7802.SPS320, nil
	}
	return 0, fmt.Errorf("unsupported sample rate %d", rate)
}

func parseChannel(channel int) (nau7802.Channel, error) {
	switch channel {
	case 1:
		return nau7802.Channel1, nil
	case 2:
		return nau7802.Channel2, nil
	}
	return 0, fmt.Errorf("unsupported channel %d", channel)
}

func parseLdo(ldo string) (nau7802.Ldo, error) {
	switch ldo {
	case "2.4":
		return nau7802.Ldo2V4, nil
	case "2.7":
		return nau7802.Ldo2V7, nil
	case "3.0":
		return nau7802.Ldo3V0, nil
	case "3.3":
		return nau7802.Ldo3V3, nil
	case "3.6":
		return nau7802.Ldo3V6, nil
	case "3.9":
		return nau7802.Ldo3V9, nil
	case "4.2":
		return nau7802.Ldo4V2, nil
	case "4.5":
		return nau7802.Ldo4V5, nil
	}
	return 0, fmt.Errorf("unsupported ldo voltage %q", ldo)
}
