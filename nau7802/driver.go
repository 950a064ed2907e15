// Package nau7802 drives the Nuvoton NAU7802 24-bit sigma-delta ADC used in
// load cell and strain gauge front ends.
// Datasheet: https://www.nuvoton.com/resource-files/NAU7802%20Data%20Sheet%20V1.7.pdf
//
// The driver implements the device state machine only: power sequencing,
// analog front-end calibration, gain/channel/LDO selection and conversion
// read-out. It returns raw signed 24-bit codes; unit conversion and
// filtering are left to the application.
//
// A Device is not internally synchronized. Operations on one handle must be
// strictly sequential; callers sharing a handle between goroutines have to
// serialize access themselves.
package nau7802

import (
	"context"
	"fmt"
	"time"

	"github.com/mklimuk/loadcell"
)

// NAU7802 7-bit I2C address. The part has no address pins; every device
// answers at 0x2A.
const defaultAddress = 0x2A

// CalibrationStatus tracks whether conversions from the current
// gain/channel/LDO combination are meaningful. It only advances through
// Calibrate; any gain, channel or LDO change drops it back to
// StatusUncalibrated.
type CalibrationStatus int

const (
	StatusUncalibrated CalibrationStatus = iota
	StatusInProgress
	StatusCalibrated
)

func (s CalibrationStatus) String() string {
	switch s {
	case StatusInProgress:
		return "in progress"
	case StatusCalibrated:
		return "calibrated"
	default:
		return "uncalibrated"
	}
}

type Opts struct {
	Address             byte
	Gain                Gain
	Channel             Channel
	Ldo                 Ldo
	SampleRate          SampleRate
	PowerUpSettle       time.Duration
	PowerUpInterval     time.Duration
	PowerUpAttempts     int
	CalibrationInterval time.Duration
	CalibrationAttempts int
	ReadInterval        time.Duration
	ReadAttempts        int
	ResetSettle         time.Duration
}

type Opt func(*Opts)

func WithAddress(address byte) Opt {
	return func(o *Opts) {
		o.Address = address
	}
}

func WithGain(gain Gain) Opt {
	return func(o *Opts) {
		o.Gain = gain
	}
}

func WithChannel(channel Channel) Opt {
	return func(o *Opts) {
		o.Channel = channel
	}
}

func WithLdo(ldo Ldo) Opt {
	return func(o *Opts) {
		o.Ldo = ldo
	}
}

func WithSampleRate(rate SampleRate) Opt {
	return func(o *Opts) {
		o.SampleRate = rate
	}
}

// WithPowerUpBudget fixes the number of power-up ready polls and the delay
// between them. The budget is exact: attempts polls happen, no more.
func WithPowerUpBudget(attempts int, interval time.Duration) Opt {
	return func(o *Opts) {
		o.PowerUpAttempts = attempts
		o.PowerUpInterval = interval
	}
}

// WithCalibrationBudget fixes the number of calibration-done polls and the
// delay between them.
func WithCalibrationBudget(attempts int, interval time.Duration) Opt {
	return func(o *Opts) {
		o.CalibrationAttempts = attempts
		o.CalibrationInterval = interval
	}
}

// WithReadBudget fixes the number of conversion-ready polls and the delay
// between them used by Read.
func WithReadBudget(attempts int, interval time.Duration) Opt {
	return func(o *Opts) {
		o.ReadAttempts = attempts
		o.ReadInterval = interval
	}
}

// Device is a handle to one NAU7802. It owns its transport for the duration
// of its life and caches the configuration last written to the chip.
type Device struct {
	transport loadcell.I2CBus
	delay     Delayer
	config    Opts
	calStatus CalibrationStatus
	buf       [4]byte
}

// New validates the requested configuration and returns a handle. No bus
// traffic happens here; call Init to bring the device up.
func New(transport loadcell.I2CBus, delay Delayer, opts ...Opt) (*Device, error) {
	config := Opts{
		Address:    defaultAddress,
		Gain:       Gain128,
		Channel:    Channel1,
		Ldo:        Ldo3V3,
		SampleRate: SPS10,
		// the PWRUP bit goes high roughly 200 microseconds after both
		// power-up bits are set
		PowerUpSettle:       200 * time.Microsecond,
		PowerUpInterval:     100 * time.Microsecond,
		PowerUpAttempts:     5,
		CalibrationInterval: time.Millisecond,
		CalibrationAttempts: 500,
		// 10 SPS worst case is one conversion every 100ms
		ReadInterval: 100 * time.Millisecond,
		ReadAttempts: 5,
		ResetSettle:  time.Millisecond,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if !config.Gain.valid() {
		return nil, fmt.Errorf("%w: gain %#x", ErrInvalidConfiguration, byte(config.Gain))
	}
	if !config.Channel.valid() {
		return nil, fmt.Errorf("%w: channel %#x", ErrInvalidConfiguration, byte(config.Channel))
	}
	if !config.Ldo.valid() {
		return nil, fmt.Errorf("%w: ldo %#x", ErrInvalidConfiguration, byte(config.Ldo))
	}
	if !config.SampleRate.valid() {
		return nil, fmt.Errorf("%w: sample rate %#x", ErrInvalidConfiguration, byte(config.SampleRate))
	}
	if delay == nil {
		delay = TimerDelay{}
	}
	return &Device{
		transport: transport,
		delay:     delay,
		config:    config,
		calStatus: StatusUncalibrated,
	}, nil
}

// Init runs the full bring-up sequence from the power-on sequencing section
// of the datasheet: reset, power-up, LDO/gain/rate/channel selection, analog
// front-end setup and a first calibration. After a successful Init the
// device is converting and CalibrationStatus reports StatusCalibrated.
func (d *Device) Init(ctx context.Context) error {
	if err := d.Reset(ctx); err != nil {
		return err
	}
	if err := d.PowerUp(ctx); err != nil {
		return err
	}
	if err := d.SetLdo(ctx, d.config.Ldo); err != nil {
		return err
	}
	if err := d.SetGain(ctx, d.config.Gain); err != nil {
		return err
	}
	if err := d.SetSampleRate(ctx, d.config.SampleRate); err != nil {
		return err
	}
	if err := d.SetChannel(ctx, d.config.Channel); err != nil {
		return err
	}
	if err := d.afeInit(ctx); err != nil {
		return err
	}
	return d.Calibrate(ctx)
}

// Reset strobes the register-reset bit. All registers except RR itself
// return to defaults, so any previous calibration is void.
func (d *Device) Reset(ctx context.Context) error {
	if err := d.setBit(ctx, regPuCtrl, bitRR); err != nil {
		return err
	}
	if err := d.delay.Delay(ctx, d.config.ResetSettle); err != nil {
		return err
	}
	if err := d.clearBit(ctx, regPuCtrl, bitRR); err != nil {
		return err
	}
	d.calStatus = StatusUncalibrated
	return nil
}

// PowerUp enables the digital and analog supplies and waits for the
// power-up ready bit. The ready bit must be observed high before any
// register write that depends on analog power (gain, LDO, calibration).
// The poll budget is exact: PowerUpAttempts reads, fixed interval, then
// ErrPowerUpTimeout.
func (d *Device) PowerUp(ctx context.Context) error {
	if err := d.setBit(ctx, regPuCtrl, bitPUD); err != nil {
		return err
	}
	if err := d.setBit(ctx, regPuCtrl, bitPUA); err != nil {
		return err
	}
	if err := d.delay.Delay(ctx, d.config.PowerUpSettle); err != nil {
		return err
	}
	for attempt := 0; attempt < d.config.PowerUpAttempts; attempt++ {
		ready, err := d.getBit(ctx, regPuCtrl, bitPUR)
		if err != nil {
			return err
		}
		if ready {
			return nil
		}
		if err := d.delay.Delay(ctx, d.config.PowerUpInterval); err != nil {
			return err
		}
	}
	return ErrPowerUpTimeout
}

// SetLdo selects the internal regulator voltage and switches AVDD to it.
// The analog operating point changes, so the current calibration is dropped.
func (d *Device) SetLdo(ctx context.Context, ldo Ldo) error {
	if d.calStatus == StatusInProgress {
		return ErrCalibrationInProgress
	}
	if !ldo.valid() {
		return fmt.Errorf("%w: ldo %#x", ErrInvalidConfiguration, byte(ldo))
	}
	if err := d.updateField(ctx, regCtrl1, fieldLdo, byte(ldo)); err != nil {
		return err
	}
	if err := d.setBit(ctx, regPuCtrl, bitAVDDS); err != nil {
		return err
	}
	d.config.Ldo = ldo
	d.calStatus = StatusUncalibrated
	return nil
}

// SetGain selects the PGA amplification and drops the current calibration.
func (d *Device) SetGain(ctx context.Context, gain Gain) error {
	if d.calStatus == StatusInProgress {
		return ErrCalibrationInProgress
	}
	if !gain.valid() {
		return fmt.Errorf("%w: gain %#x", ErrInvalidConfiguration, byte(gain))
	}
	if err := d.updateField(ctx, regCtrl1, fieldGain, byte(gain)); err != nil {
		return err
	}
	d.config.Gain = gain
	d.calStatus = StatusUncalibrated
	return nil
}

// SetChannel selects the analog input and drops the current calibration.
func (d *Device) SetChannel(ctx context.Context, channel Channel) error {
	if d.calStatus == StatusInProgress {
		return ErrCalibrationInProgress
	}
	if !channel.valid() {
		return fmt.Errorf("%w: channel %#x", ErrInvalidConfiguration, byte(channel))
	}
	var err error
	if channel == Channel2 {
		err = d.setBit(ctx, regCtrl2, bitCHS)
	} else {
		err = d.clearBit(ctx, regCtrl2, bitCHS)
	}
	if err != nil {
		return err
	}
	d.config.Channel = channel
	d.calStatus = StatusUncalibrated
	return nil
}

// SetSampleRate selects the conversion rate. The calibration engine corrects
// offset and gain for the analog path, so a rate change keeps the current
// calibration status.
func (d *Device) SetSampleRate(ctx context.Context, rate SampleRate) error {
	if d.calStatus == StatusInProgress {
		return ErrCalibrationInProgress
	}
	if !rate.valid() {
		return fmt.Errorf("%w: sample rate %#x", ErrInvalidConfiguration, byte(rate))
	}
	if err := d.updateField(ctx, regCtrl2, fieldSampleRate, byte(rate)); err != nil {
		return err
	}
	d.config.SampleRate = rate
	return nil
}

// Calibrate runs the internal offset calibration for the current
// gain/channel/LDO combination and polls the start bit until the engine
// clears it. The poll budget is bounded; on ErrCalibrationTimeout the
// status stays StatusInProgress because the engine may still be running,
// and Reset is the way out. Conversions read before a successful Calibrate
// are numerically meaningless; the driver never calibrates implicitly.
func (d *Device) Calibrate(ctx context.Context) error {
	if d.calStatus == StatusInProgress {
		return ErrCalibrationInProgress
	}
	if err := d.setBit(ctx, regCtrl2, bitCALS); err != nil {
		return err
	}
	d.calStatus = StatusInProgress
	for attempt := 0; attempt < d.config.CalibrationAttempts; attempt++ {
		running, err := d.getBit(ctx, regCtrl2, bitCALS)
		if err != nil {
			return err
		}
		if !running {
			failed, err := d.getBit(ctx, regCtrl2, bitCALERR)
			if err != nil {
				return err
			}
			if failed {
				d.calStatus = StatusUncalibrated
				return ErrCalibrationFailed
			}
			d.calStatus = StatusCalibrated
			return nil
		}
		if err := d.delay.Delay(ctx, d.config.CalibrationInterval); err != nil {
			return err
		}
	}
	return ErrCalibrationTimeout
}

// ConversionReady reports whether a new conversion result is waiting. Single
// register read, no polling.
func (d *Device) ConversionReady(ctx context.Context) (bool, error) {
	return d.getBit(ctx, regPuCtrl, bitCR)
}

// ReadConversion fetches the latest conversion as a signed 24-bit code. The
// caller is expected to have seen ConversionReady return true; the bit is
// not re-checked here and a failed read is reported without retry.
func (d *Device) ReadConversion(ctx context.Context) (int32, error) {
	if err := d.requestRegister(ctx, regAdcoB2); err != nil {
		return 0, err
	}
	buf := d.buf[:3]
	if err := d.transport.ReadFromAddr(ctx, d.config.Address, buf); err != nil {
		return 0, busErr("conversion read failed", err)
	}
	return DecodeConversion([3]byte{buf[0], buf[1], buf[2]}), nil
}

// Read waits for a conversion with the configured read budget and returns
// it. With the default budget of 5 x 100ms it covers the 10 SPS worst case.
func (d *Device) Read(ctx context.Context) (int32, error) {
	for attempt := 0; attempt < d.config.ReadAttempts; attempt++ {
		ready, err := d.ConversionReady(ctx)
		if err != nil {
			return 0, err
		}
		if ready {
			return d.ReadConversion(ctx)
		}
		if err := d.delay.Delay(ctx, d.config.ReadInterval); err != nil {
			return 0, err
		}
	}
	return 0, ErrReadTimeout
}

// Revision returns the silicon revision nibble.
func (d *Device) Revision(ctx context.Context) (byte, error) {
	rev, err := d.readRegister(ctx, regDevRev)
	if err != nil {
		return 0, err
	}
	return rev & 0x0F, nil
}

// OffsetCalibration returns the signed 24-bit channel 1 offset the
// calibration engine settled on.
func (d *Device) OffsetCalibration(ctx context.Context) (int32, error) {
	if err := d.requestRegister(ctx, regOCal1B2); err != nil {
		return 0, err
	}
	buf := d.buf[:3]
	if err := d.transport.ReadFromAddr(ctx, d.config.Address, buf); err != nil {
		return 0, busErr("offset calibration read failed", err)
	}
	return DecodeConversion([3]byte{buf[0], buf[1], buf[2]}), nil
}

// GainCalibration returns the 32-bit channel 1 gain correction factor.
func (d *Device) GainCalibration(ctx context.Context) (uint32, error) {
	if err := d.requestRegister(ctx, regGCal1B3); err != nil {
		return 0, err
	}
	buf := d.buf[:4]
	if err := d.transport.ReadFromAddr(ctx, d.config.Address, buf); err != nil {
		return 0, busErr("gain calibration read failed", err)
	}
	return uint32(buf[0])<<24 | uint32(buf[1])<<16 | uint32(buf[2])<<8 | uint32(buf[3]), nil
}

// Gain returns the gain last written to the device.
func (d *Device) Gain() Gain { return d.config.Gain }

// Channel returns the input channel last written to the device.
func (d *Device) Channel() Channel { return d.config.Channel }

// Ldo returns the LDO voltage last written to the device.
func (d *Device) Ldo() Ldo { return d.config.Ldo }

// SampleRate returns the conversion rate last written to the device.
func (d *Device) SampleRate() SampleRate { return d.config.SampleRate }

// CalibrationStatus reports whether the current configuration has a valid
// calibration. Callers gate conversion reads on StatusCalibrated.
func (d *Device) CalibrationStatus() CalibrationStatus { return d.calStatus }

// afeInit applies the analog front-end setup from the power-on sequencing
// and application circuit sections: chopper clock off, 330pF bypass cap on
// the channel 2 PGA output.
func (d *Device) afeInit(ctx context.Context) error {
	if err := d.writeRegister(ctx, regAdc, adcRegClkChpOff); err != nil {
		return err
	}
	return d.setBit(ctx, regPgaPwr, bitCAPEN)
}

func (d *Device) setBit(ctx context.Context, reg register, bit byte) error {
	val, err := d.readRegister(ctx, reg)
	if err != nil {
		return err
	}
	return d.writeRegister(ctx, reg, val|1<<bit)
}

func (d *Device) clearBit(ctx context.Context, reg register, bit byte) error {
	val, err := d.readRegister(ctx, reg)
	if err != nil {
		return err
	}
	return d.writeRegister(ctx, reg, val&^(1<<bit))
}

func (d *Device) getBit(ctx context.Context, reg register, bit byte) (bool, error) {
	val, err := d.readRegister(ctx, reg)
	if err != nil {
		return false, err
	}
	return val&(1<<bit) != 0, nil
}

func (d *Device) updateField(ctx context.Context, reg register, f field, value byte) error {
	val, err := d.readRegister(ctx, reg)
	if err != nil {
		return err
	}
	return d.writeRegister(ctx, reg, f.encode(val, value))
}

func (d *Device) readRegister(ctx context.Context, reg register) (byte, error) {
	if err := d.requestRegister(ctx, reg); err != nil {
		return 0, err
	}
	buf := d.buf[:1]
	if err := d.transport.ReadFromAddr(ctx, d.config.Address, buf); err != nil {
		return 0, busErr(fmt.Sprintf("read of register %#x failed", byte(reg)), err)
	}
	return buf[0], nil
}

func (d *Device) writeRegister(ctx context.Context, reg register, val byte) error {
	if err := d.transport.WriteToAddr(ctx, d.config.Address, []byte{byte(reg), val}); err != nil {
		return busErr(fmt.Sprintf("write of register %#x failed", byte(reg)), err)
	}
	return nil
}

// requestRegister points the device's register pointer at reg so the next
// bus read starts there.
func (d *Device) requestRegister(ctx context.Context, reg register) error {
	if err := d.transport.WriteToAddr(ctx, d.config.Address, []byte{byte(reg)}); err != nil {
		return busErr(fmt.Sprintf("request of register %#x failed", byte(reg)), err)
	}
	return nil
}
