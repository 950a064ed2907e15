package nau7802

// DecodeConversion interprets a 3-byte, 24-bit two's complement conversion
// result, MSB first, as a signed 32-bit value. It is total over all 2^24
// input patterns; the result is always in [-8388608, 8388607].
func DecodeConversion(buf [3]byte) int32 {
	var u32 uint32
	u32 |= uint32(buf[0]) << 16
	u32 |= uint32(buf[1]) << 8
	u32 |= uint32(buf[2])

	// sign extension from bit 23
	if u32&0x800000 != 0 {
		u32 |= 0xFF000000
	}
	return int32(u32)
}

// EncodeConversion is the inverse of DecodeConversion for values that fit in
// 24 bits; the upper byte of the input is discarded.
func EncodeConversion(value int32) [3]byte {
	u32 := uint32(value)
	return [3]byte{byte(u32 >> 16), byte(u32 >> 8), byte(u32)}
}
