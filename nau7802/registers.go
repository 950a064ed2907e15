package nau7802

// Register map (datasheet section 10). The driver only ever issues these
// typed constants to the transport, which keeps the address space closed.
type register byte

const (
	regPuCtrl  register = 0x00 // power-up control
	regCtrl1   register = 0x01 // gain, LDO voltage, DRDY pin config
	regCtrl2   register = 0x02 // calibration, sample rate, channel
	regOCal1B2 register = 0x03 // channel 1 offset calibration, 24 bit
	regOCal1B1 register = 0x04
	regOCal1B0 register = 0x05
	regGCal1B3 register = 0x06 // channel 1 gain calibration, 32 bit
	regGCal1B2 register = 0x07
	regGCal1B1 register = 0x08
	regGCal1B0 register = 0x09
	regI2CCtrl register = 0x11
	regAdcoB2  register = 0x12 // conversion result, 24 bit big-endian
	regAdcoB1  register = 0x13
	regAdcoB0  register = 0x14
	regAdc     register = 0x15 // shared ADC control / OTP readout
	regPga     register = 0x1B
	regPgaPwr  register = 0x1C
	regDevRev  register = 0x1F
)

// REG0x00 PU_CTRL bit positions
const (
	bitRR    byte = 0 // register reset
	bitPUD   byte = 1 // power up digital
	bitPUA   byte = 2 // power up analog
	bitPUR   byte = 3 // power up ready (read only)
	bitCS    byte = 4 // cycle start
	bitCR    byte = 5 // cycle ready (read only)
	bitOSCS  byte = 6 // clock source select
	bitAVDDS byte = 7 // AVDD source select (1 = internal LDO)
)

// REG0x02 CTRL2 bit positions
const (
	bitCALS   byte = 2 // start calibration; self-clears when done
	bitCALERR byte = 3 // calibration error (read only)
	bitCHS    byte = 7 // analog input channel select
)

// PGA_PWR bit positions
const (
	bitCAPEN byte = 7 // PGA output bypass capacitor on channel 2
)

// From the power-on sequencing section: CLK_CHP off, default ADC_VCM.
const adcRegClkChpOff byte = 0x30

// field describes a multi-bit register field as a mask plus the shift of its
// least significant bit. Encoding is a pure read-modify-write merge; no field
// computation depends on prior device state.
type field struct {
	mask  byte
	shift byte
}

var (
	fieldGain       = field{mask: 0b0000_0111, shift: 0} // CTRL1[2:0]
	fieldLdo        = field{mask: 0b0011_1000, shift: 3} // CTRL1[5:3]
	fieldSampleRate = field{mask: 0b0111_0000, shift: 4} // CTRL2[6:4]
)

// encode merges value into the field bits of reg, leaving the rest untouched.
func (f field) encode(reg, value byte) byte {
	return (reg &^ f.mask) | ((value << f.shift) & f.mask)
}

// extract returns the field value carried by reg.
func (f field) extract(reg byte) byte {
	return (reg & f.mask) >> f.shift
}
