package adsb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCallsign_KnownMessage(t *testing.T) {
	data := mustDecodeHex(t, knownGoodDF17)
	assert.Equal(t, "KLM1023", ExtractCallsign(data))
}

func TestExtractICAO_KnownMessage(t *testing.T) {
	data := mustDecodeHex(t, knownGoodDF17)
	assert.Equal(t, uint32(0x4840D6), ExtractICAO(data))
}

func TestExtractCategory_KnownMessage(t *testing.T) {
	data := mustDecodeHex(t, knownGoodDF17)
	assert.Equal(t, uint8(0), ExtractCategory(data))
}

func TestGetBits_SingleByte(t *testing.T) {
	data := []byte{0b10110100}
	assert.EqualValues(t, 0b101, GetBits(data, 1, 3))
	assert.EqualValues(t, 0b100, GetBits(data, 6, 8))
}

func TestGetBits_SpansTwoBytes(t *testing.T) {
	data := []byte{0xFF, 0x00}
	// bits 5-12 span the boundary: 4 ones then 4 zeros
	assert.EqualValues(t, 0b11110000, GetBits(data, 5, 12))
}

func TestGetBitsUint16_WideField(t *testing.T) {
	data := []byte{0x00, 0xFF, 0xFF, 0x00}
	v := GetBitsUint16(data, 9, 24)
	assert.EqualValues(t, 0xFFFF, v)
}

func TestExtractAltitude_QBitEncoding(t *testing.T) {
	// DF17 airborne position with AC12 field carrying Q=1 encoding.
	data := make([]byte, 11)
	data[0] = 17 << 3
	// altCode = 0x1D1 -> Q bit set, n = ((0x1D1 & 0x0FE0)>>1)|(0x1D1&0xF) = 224|1 = 225
	// altitude = 225*25 - 1000 = 4625
	altCode := uint16(0x1D1)
	data[5] = byte(altCode >> 7)
	data[6] = byte(altCode<<1) & 0xFE
	alt := ExtractAltitude(data)
	assert.Equal(t, 225*25-1000, alt)
}

func TestExtractGroundState_SurfaceTypeCode(t *testing.T) {
	data := make([]byte, 11)
	data[0] = 17 << 3
	data[4] = 6 << 3 // type code 6: surface position
	assert.True(t, ExtractGroundState(data))
}

func TestExtractGroundState_AirborneDefault(t *testing.T) {
	data := make([]byte, 11)
	data[0] = 17<<3 | 5 // CA=5, airborne
	data[4] = 11 << 3   // type code 11: airborne position
	assert.False(t, ExtractGroundState(data))
}

func TestExtractSquawk_RoundTrip(t *testing.T) {
	// identity field encoding 7500: A=7,B=5,C=0,D=0, with the 13 identity
	// bits interleaved as C1 A1 C2 A2 C4 A4 X B1 D1 B2 D2 B4 D4
	// (0b0101010100010 = 0x0AA2). The result must also stay within the
	// valid 0-7777 octal-as-decimal range.
	data := []byte{0, 0, 0x0A, 0xA2}
	squawk := ExtractSquawk(data)
	assert.Equal(t, 7500, squawk)
	assert.GreaterOrEqual(t, squawk, 0)
	assert.LessOrEqual(t, squawk, 7777)
}
