package nau7802

import "fmt"

// Configuration enums carry the exact bit patterns of their register fields,
// so a validated value can be encoded without further range checks.

// Gain selects the PGA amplification factor (CTRL1[2:0]).
type Gain byte

const (
	Gain1 Gain = iota
	Gain2
	Gain4
	Gain8
	Gain16
	Gain32
	Gain64
	Gain128
)

func (g Gain) valid() bool { return g <= Gain128 }

func (g Gain) String() string {
	if !g.valid() {
		return fmt.Sprintf("gain(%#x)", byte(g))
	}
	return fmt.Sprintf("x%d", 1<<g)
}

// Ldo selects the internal regulator output voltage (CTRL1[5:3]).
type Ldo byte

const (
	Ldo4V5 Ldo = iota
	Ldo4V2
	Ldo3V9
	Ldo3V6
	Ldo3V3
	Ldo3V0
	Ldo2V7
	Ldo2V4
)

func (l Ldo) valid() bool { return l <= Ldo2V4 }

func (l Ldo) String() string {
	switch l {
	case Ldo4V5:
		return "4.5V"
	case Ldo4V2:
		return "4.2V"
	case Ldo3V9:
		return "3.9V"
	case Ldo3V6:
		return "3.6V"
	case Ldo3V3:
		return "3.3V"
	case Ldo3V0:
		return "3.0V"
	case Ldo2V7:
		return "2.7V"
	case Ldo2V4:
		return "2.4V"
	}
	return fmt.Sprintf("ldo(%#x)", byte(l))
}

// Channel selects the analog input (CTRL2 CHS bit).
type Channel byte

const (
	Channel1 Channel = 0
	Channel2 Channel = 1
)

func (c Channel) valid() bool { return c == Channel1 || c == Channel2 }

func (c Channel) String() string {
	if !c.valid() {
		return fmt.Sprintf("channel(%#x)", byte(c))
	}
	return fmt.Sprintf("channel %d", c+1)
}

// SampleRate selects the conversion rate (CTRL2[6:4]). The encoding is not
// contiguous: 320 SPS sits at 0b111.
type SampleRate byte

const (
	SPS10  SampleRate = 0b000
	SPS20  SampleRate = 0b001
	SPS40  SampleRate = 0b010
	SPS80  SampleRate = 0b011
	SPS320 SampleRate = 0b111
)

func (s SampleRate) valid() bool {
	switch s {
	case SPS10, SPS20, SPS40, SPS80, SPS320:
		return true
	}
	return false
}

func (s SampleRate) String() string {
	switch s {
	case SPS10:
		return "10sps"
	case SPS20:
		return "20sps"
	case SPS40:
		return "40sps"
	case SPS80:
		return "80sps"
	case SPS320:
		return "320sps"
	}
	return fmt.Sprintf("rate(%#x)", byte(s))
}
