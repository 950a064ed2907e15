package nau7802

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// instantDelay satisfies Delayer without waiting so polling loops run at
// full speed in tests. It records how often it was asked to wait.
type instantDelay struct {
	calls int
}

func (d *instantDelay) Delay(ctx context.Context, _ time.Duration) error {
	d.calls++
	return ctx.Err()
}

// fakeChip emulates the NAU7802 register file behind the bus interface:
// a register-pointer write followed by reads, read-modify-write register
// updates, and the dynamic PUR/CR/CALS/CAL_ERR bits.
type fakeChip struct {
	mu sync.Mutex

	regs    [0x20]byte
	pointer byte

	// dynamic behavior knobs
	purReadyAfter int  // PU_CTRL reads before PUR goes high; -1 = never
	crReady       bool // report a conversion waiting
	calDuration   int  // CTRL2 reads with CALS still set; -1 = never clears
	calError      bool // raise CAL_ERR when calibration completes

	puCtrlReads int
	calPolls    int
	writes      [][]byte

	failWrite error
	failRead  error
}

func newFakeChip() *fakeChip {
	return &fakeChip{purReadyAfter: 0}
}

func (f *fakeChip) WriteToAddr(_ context.Context, _ byte, buffer []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrite != nil {
		return f.failWrite
	}
	cp := make([]byte, len(buffer))
	copy(cp, buffer)
	f.writes = append(f.writes, cp)
	switch len(buffer) {
	case 1:
		f.pointer = buffer[0]
	case 2:
		reg, val := buffer[0], buffer[1]
		if reg == byte(regCtrl2) && val&(1<<bitCALS) != 0 && f.regs[reg]&(1<<bitCALS) == 0 {
			f.calPolls = 0
		}
		f.regs[reg] = val
	}
	return nil
}

func (f *fakeChip) ReadFromAddr(_ context.Context, _ byte, buffer []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failRead != nil {
		return f.failRead
	}
	switch register(f.pointer) {
	case regPuCtrl:
		f.puCtrlReads++
		if f.purReadyAfter >= 0 && f.puCtrlReads > f.purReadyAfter {
			f.regs[regPuCtrl] |= 1 << bitPUR
		}
		if f.crReady {
			f.regs[regPuCtrl] |= 1 << bitCR
		} else {
			f.regs[regPuCtrl] &^= 1 << bitCR
		}
	case regCtrl2:
		if f.regs[regCtrl2]&(1<<bitCALS) != 0 {
			f.calPolls++
			if f.calDuration >= 0 && f.calPolls > f.calDuration {
				f.regs[regCtrl2] &^= 1 << bitCALS
				if f.calError {
					f.regs[regCtrl2] |= 1 << bitCALERR
				}
			}
		}
	}
	for i := range buffer {
		idx := int(f.pointer) + i
		if idx < len(f.regs) {
			buffer[i] = f.regs[idx]
		}
	}
	return nil
}

func (f *fakeChip) Release(context.Context) error { return nil }

func (f *fakeChip) setConversion(b2, b1, b0 byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regs[regAdcoB2] = b2
	f.regs[regAdcoB1] = b1
	f.regs[regAdcoB0] = b0
}

// MockI2CBus is a testify mock of loadcell.I2CBus for tests that assert on
// exact bus interactions (or their absence).
type MockI2CBus struct {
	mock.Mock
}

func (m *MockI2CBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	args := m.Called(ctx, address, buffer)
	return args.Error(0)
}

func (m *MockI2CBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	args := m.Called(ctx, address, buffer)
	if args.Get(0) != nil {
		if data, ok := args.Get(0).([]byte); ok && len(data) <= len(buffer) {
			copy(buffer, data)
		}
	}
	return args.Error(1)
}

func (m *MockI2CBus) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func calibrated(t *testing.T, chip *fakeChip) *Device {
	t.Helper()
	dev, err := New(chip, &instantDelay{})
	require.NoError(t, err)
	require.NoError(t, dev.Calibrate(context.Background()))
	require.Equal(t, StatusCalibrated, dev.CalibrationStatus())
	return dev
}

func TestNew_InvalidConfiguration(t *testing.T) {
	tests := []struct {
		name string
		opt  Opt
	}{
		{name: "gain out of range", opt: WithGain(Gain(8))},
		{name: "channel out of range", opt: WithChannel(Channel(5))},
		{name: "ldo out of range", opt: WithLdo(Ldo(0x1F))},
		{name: "sample rate reserved encoding", opt: WithSampleRate(SampleRate(0b101))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := new(MockI2CBus)
			dev, err := New(bus, nil, tt.opt)
			assert.Nil(t, dev)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
			// validation must reject before any bus traffic
			bus.AssertExpectations(t)
			bus.AssertNotCalled(t, "WriteToAddr", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestSetters_InvalidValueRejected(t *testing.T) {
	chip := newFakeChip()
	dev, err := New(chip, &instantDelay{})
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorIs(t, dev.SetGain(ctx, Gain(42)), ErrInvalidConfiguration)
	assert.ErrorIs(t, dev.SetChannel(ctx, Channel(2)), ErrInvalidConfiguration)
	assert.ErrorIs(t, dev.SetLdo(ctx, Ldo(9)), ErrInvalidConfiguration)
	assert.ErrorIs(t, dev.SetSampleRate(ctx, SampleRate(0b100)), ErrInvalidConfiguration)
	assert.Empty(t, chip.writes, "invalid values must never reach the transport")
}

func TestPowerUp_Timeout_ExactBudget(t *testing.T) {
	chip := newFakeChip()
	chip.purReadyAfter = -1
	delay := &instantDelay{}
	dev, err := New(chip, delay, WithPowerUpBudget(3, time.Millisecond))
	require.NoError(t, err)

	err = dev.PowerUp(context.Background())
	assert.ErrorIs(t, err, ErrPowerUpTimeout)
	// two PU_CTRL reads belong to the PUD/PUA read-modify-writes, the rest
	// are ready polls: exactly the configured budget, no more
	assert.Equal(t, 2+3, chip.puCtrlReads)
}

func TestPowerUp_Success(t *testing.T) {
	chip := newFakeChip()
	chip.purReadyAfter = 3 // PUD+PUA reads, then ready on the second poll
	dev, err := New(chip, &instantDelay{}, WithPowerUpBudget(5, time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, dev.PowerUp(context.Background()))
	assert.NotZero(t, chip.regs[regPuCtrl]&(1<<bitPUD))
	assert.NotZero(t, chip.regs[regPuCtrl]&(1<<bitPUA))
}

func TestReset_StrobesResetBit(t *testing.T) {
	chip := newFakeChip()
	dev := calibrated(t, chip)

	require.NoError(t, dev.Reset(context.Background()))
	assert.Equal(t, StatusUncalibrated, dev.CalibrationStatus())

	var sawSet, sawClear bool
	for _, w := range chip.writes {
		if len(w) != 2 || w[0] != byte(regPuCtrl) {
			continue
		}
		if w[1]&(1<<bitRR) != 0 {
			sawSet = true
		} else if sawSet {
			sawClear = true
		}
	}
	assert.True(t, sawSet, "reset bit must be set")
	assert.True(t, sawClear, "reset bit must be cleared again")
}

func TestCalibrate_Success(t *testing.T) {
	chip := newFakeChip()
	chip.calDuration = 3
	dev, err := New(chip, &instantDelay{})
	require.NoError(t, err)

	require.NoError(t, dev.Calibrate(context.Background()))
	assert.Equal(t, StatusCalibrated, dev.CalibrationStatus())
}

func TestCalibrate_DeviceReportsError(t *testing.T) {
	chip := newFakeChip()
	chip.calDuration = 1
	chip.calError = true
	dev, err := New(chip, &instantDelay{})
	require.NoError(t, err)

	err = dev.Calibrate(context.Background())
	assert.ErrorIs(t, err, ErrCalibrationFailed)
	assert.Equal(t, StatusUncalibrated, dev.CalibrationStatus())
}

func TestCalibrate_Timeout_LeavesInProgress(t *testing.T) {
	chip := newFakeChip()
	chip.calDuration = -1 // engine never finishes
	dev, err := New(chip, &instantDelay{}, WithCalibrationBudget(4, time.Millisecond))
	require.NoError(t, err)
	ctx := context.Background()

	err = dev.Calibrate(ctx)
	assert.ErrorIs(t, err, ErrCalibrationTimeout)
	assert.Equal(t, StatusInProgress, dev.CalibrationStatus())

	// configuration mutations are illegal while the engine may still run
	assert.ErrorIs(t, dev.SetGain(ctx, Gain64), ErrCalibrationInProgress)
	assert.ErrorIs(t, dev.SetChannel(ctx, Channel2), ErrCalibrationInProgress)
	assert.ErrorIs(t, dev.SetLdo(ctx, Ldo3V0), ErrCalibrationInProgress)
	assert.ErrorIs(t, dev.SetSampleRate(ctx, SPS80), ErrCalibrationInProgress)
	assert.ErrorIs(t, dev.Calibrate(ctx), ErrCalibrationInProgress)

	// reset is the documented recovery path
	require.NoError(t, dev.Reset(ctx))
	assert.Equal(t, StatusUncalibrated, dev.CalibrationStatus())
	assert.NoError(t, dev.SetGain(ctx, Gain64))
}

func TestConfigurationChange_InvalidatesCalibration(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(ctx context.Context, dev *Device) error
	}{
		{name: "gain", mutate: func(ctx context.Context, dev *Device) error {
			return dev.SetGain(ctx, Gain32)
		}},
		{name: "channel", mutate: func(ctx context.Context, dev *Device) error {
			return dev.SetChannel(ctx, Channel2)
		}},
		{name: "ldo", mutate: func(ctx context.Context, dev *Device) error {
			return dev.SetLdo(ctx, Ldo2V7)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := calibrated(t, newFakeChip())
			require.NoError(t, tt.mutate(context.Background(), dev))
			assert.Equal(t, StatusUncalibrated, dev.CalibrationStatus())
		})
	}
}

func TestSetSampleRate_KeepsCalibration(t *testing.T) {
	dev := calibrated(t, newFakeChip())
	require.NoError(t, dev.SetSampleRate(context.Background(), SPS320))
	assert.Equal(t, StatusCalibrated, dev.CalibrationStatus())
	assert.Equal(t, SPS320, dev.SampleRate())
}

func TestSetters_EncodeRegisterFields(t *testing.T) {
	chip := newFakeChip()
	dev, err := New(chip, &instantDelay{})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, dev.SetGain(ctx, Gain64))
	require.NoError(t, dev.SetLdo(ctx, Ldo3V0))
	require.NoError(t, dev.SetSampleRate(ctx, SPS80))
	require.NoError(t, dev.SetChannel(ctx, Channel2))

	assert.Equal(t, byte(Gain64), fieldGain.extract(chip.regs[regCtrl1]))
	assert.Equal(t, byte(Ldo3V0), fieldLdo.extract(chip.regs[regCtrl1]))
	assert.Equal(t, byte(SPS80), fieldSampleRate.extract(chip.regs[regCtrl2]))
	assert.NotZero(t, chip.regs[regCtrl2]&(1<<bitCHS))
	// selecting the internal LDO has to switch the AVDD source as well
	assert.NotZero(t, chip.regs[regPuCtrl]&(1<<bitAVDDS))

	assert.Equal(t, Gain64, dev.Gain())
	assert.Equal(t, Ldo3V0, dev.Ldo())
	assert.Equal(t, SPS80, dev.SampleRate())
	assert.Equal(t, Channel2, dev.Channel())
}

func TestConversionReady(t *testing.T) {
	chip := newFakeChip()
	chip.purReadyAfter = -1
	dev, err := New(chip, &instantDelay{})
	require.NoError(t, err)
	ctx := context.Background()

	ready, err := dev.ConversionReady(ctx)
	require.NoError(t, err)
	assert.False(t, ready)

	chip.crReady = true
	ready, err = dev.ConversionReady(ctx)
	require.NoError(t, err)
	assert.True(t, ready)
}

func TestReadConversion_Decoding(t *testing.T) {
	tests := []struct {
		name     string
		raw      [3]byte
		expected int32
	}{
		{name: "most negative", raw: [3]byte{0x80, 0x00, 0x00}, expected: -8388608},
		{name: "most positive", raw: [3]byte{0x7F, 0xFF, 0xFF}, expected: 8388607},
		{name: "one", raw: [3]byte{0x00, 0x00, 0x01}, expected: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chip := newFakeChip()
			chip.setConversion(tt.raw[0], tt.raw[1], tt.raw[2])
			dev, err := New(chip, &instantDelay{})
			require.NoError(t, err)

			value, err := dev.ReadConversion(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.expected, value)
		})
	}
}

func TestRead_Timeout_ExactBudget(t *testing.T) {
	chip := newFakeChip()
	chip.purReadyAfter = -1
	delay := &instantDelay{}
	dev, err := New(chip, delay, WithReadBudget(4, time.Millisecond))
	require.NoError(t, err)

	_, err = dev.Read(context.Background())
	assert.ErrorIs(t, err, ErrReadTimeout)
	assert.Equal(t, 4, chip.puCtrlReads)
	assert.Equal(t, 4, delay.calls)
}

func TestRead_Success(t *testing.T) {
	chip := newFakeChip()
	chip.crReady = true
	chip.setConversion(0x01, 0x02, 0x03)
	dev, err := New(chip, &instantDelay{})
	require.NoError(t, err)

	value, err := dev.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(0x010203), value)
}

func TestInit_FullSequence(t *testing.T) {
	chip := newFakeChip()
	chip.calDuration = 2
	dev, err := New(chip, &instantDelay{},
		WithGain(Gain128), WithLdo(Ldo3V3), WithSampleRate(SPS10))
	require.NoError(t, err)

	require.NoError(t, dev.Init(context.Background()))
	assert.Equal(t, StatusCalibrated, dev.CalibrationStatus())
	assert.Equal(t, byte(Gain128), fieldGain.extract(chip.regs[regCtrl1]))
	assert.Equal(t, adcRegClkChpOff, chip.regs[regAdc])
	assert.NotZero(t, chip.regs[regPgaPwr]&(1<<bitCAPEN))
}

func TestBusError_WrapsTransportFailure(t *testing.T) {
	transportErr := errors.New("i2c write failed")
	chip := newFakeChip()
	chip.failWrite = transportErr
	dev, err := New(chip, &instantDelay{})
	require.NoError(t, err)

	err = dev.Reset(context.Background())
	require.Error(t, err)
	var busErr *BusError
	assert.ErrorAs(t, err, &busErr)
	assert.ErrorIs(t, err, transportErr)
}

func TestReadConversion_ReadFailureSurfacesImmediately(t *testing.T) {
	transportErr := errors.New("i2c read failed")
	bus := new(MockI2CBus)
	dev, err := New(bus, &instantDelay{})
	require.NoError(t, err)

	bus.On("WriteToAddr", mock.Anything, byte(defaultAddress), []byte{byte(regAdcoB2)}).
		Return(nil).Once()
	bus.On("ReadFromAddr", mock.Anything, byte(defaultAddress), mock.Anything).
		Return(nil, transportErr).Once()

	_, err = dev.ReadConversion(context.Background())
	assert.ErrorIs(t, err, transportErr)
	// no retry: one pointer write, one read, nothing else
	bus.AssertExpectations(t)
}

func TestReadConversionHelpers(t *testing.T) {
	chip := newFakeChip()
	chip.regs[regDevRev] = 0xA5
	chip.regs[regOCal1B2] = 0xFF
	chip.regs[regOCal1B1] = 0xFF
	chip.regs[regOCal1B0] = 0xFE
	chip.regs[regGCal1B3] = 0x00
	chip.regs[regGCal1B2] = 0x80
	chip.regs[regGCal1B1] = 0x00
	chip.regs[regGCal1B0] = 0x01
	dev, err := New(chip, &instantDelay{})
	require.NoError(t, err)
	ctx := context.Background()

	rev, err := dev.Revision(ctx)
	require.NoError(t, err)
	assert.Equal(t, byte(0x05), rev)

	offset, err := dev.OffsetCalibration(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(-2), offset)

	gain, err := dev.GainCalibration(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x00800001), gain)
}

func TestDumpRegisters(t *testing.T) {
	chip := newFakeChip()
	chip.purReadyAfter = -1
	chip.regs[regCtrl1] = 0x27
	chip.regs[regAdc] = adcRegClkChpOff
	chip.regs[regDevRev] = 0x0F
	dev, err := New(chip, &instantDelay{})
	require.NoError(t, err)

	snap, err := dev.DumpRegisters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, byte(0x27), snap.Ctrl1)
	assert.Equal(t, adcRegClkChpOff, snap.Adc)
	assert.Equal(t, byte(0x0F), snap.Revision)
}

func TestMockADC(t *testing.T) {
	adc := NewMockADC(func(context.Context) (int32, error) { return -42, nil })
	value, err := adc.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(-42), value)
}
