package nau7802

import "context"

// RegisterSnapshot is a point-in-time dump of the control registers, mostly
// useful for bring-up diagnostics.
type RegisterSnapshot struct {
	PuCtrl   byte `yaml:"PU_CTRL"`
	Ctrl1    byte `yaml:"CTRL1"`
	Ctrl2    byte `yaml:"CTRL2"`
	I2CCtrl  byte `yaml:"I2C_CTRL"`
	Adc      byte `yaml:"ADC"`
	Pga      byte `yaml:"PGA"`
	PgaPwr   byte `yaml:"PGA_PWR"`
	Revision byte `yaml:"revision"`
}

// DumpRegisters reads every control register once. The OTP and result
// registers are left out; they have dedicated accessors.
func (d *Device) DumpRegisters(ctx context.Context) (RegisterSnapshot, error) {
	var snap RegisterSnapshot
	for _, entry := range []struct {
		reg  register
		dest *byte
	}{
		{regPuCtrl, &snap.PuCtrl},
		{regCtrl1, &snap.Ctrl1},
		{regCtrl2, &snap.Ctrl2},
		{regI2CCtrl, &snap.I2CCtrl},
		{regAdc, &snap.Adc},
		{regPga, &snap.Pga},
		{regPgaPwr, &snap.PgaPwr},
	} {
		val, err := d.readRegister(ctx, entry.reg)
		if err != nil {
			return snap, err
		}
		*entry.dest = val
	}
	rev, err := d.Revision(ctx)
	if err != nil {
		return snap, err
	}
	snap.Revision = rev
	return snap, nil
}
