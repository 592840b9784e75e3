package adsb

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDecodeHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	return b
}

// A known-good DF17 identification message (ICAO 4840D6, callsign
// KLM1023) with a valid embedded CRC-24 residue of zero.
const knownGoodDF17 = "8D4840D6202CC371C32CE0576098"

func TestValidateAndCorrect_ValidFrame(t *testing.T) {
	data := mustDecodeHex(t, knownGoodDF17)
	frame := &RawFrame{Data: data, Bits: len(data) * 8}

	result := ValidateAndCorrect(frame)
	assert.True(t, result.Valid)
	assert.Equal(t, "valid", result.CRCType)
	assert.Equal(t, uint32(0), result.CRC)
}

func TestValidateAndCorrect_DF17SingleBitErrorRejected(t *testing.T) {
	// spec.md §4.4: DF17/18 residue must be exactly zero. A single-bit
	// error there is dropped, not "corrected" — correction is DF11-only.
	data := mustDecodeHex(t, knownGoodDF17)
	data[3] ^= 0x01 // flip one bit in the last ICAO address byte
	frame := &RawFrame{Data: data, Bits: len(data) * 8}

	result := ValidateAndCorrect(frame)
	assert.False(t, result.Valid)
	assert.Equal(t, "invalid", result.CRCType)
}

func TestValidateAndCorrect_DF11SingleBitErrorCorrected(t *testing.T) {
	payload := []byte{0x58, 0x48, 0x40, 0xD6} // DF11, CA=0, ICAO 4840D6
	parity := calculateCRCRaw(payload)
	good := append(append([]byte{}, payload...), byte(parity>>16), byte(parity>>8), byte(parity))

	data := append([]byte{}, good...)
	data[3] ^= 0x01
	frame := &RawFrame{Data: data, Bits: 56}

	result := ValidateAndCorrect(frame)
	assert.True(t, result.Valid)
	assert.Equal(t, "corrected-1", result.CRCType)
	assert.Equal(t, 1, result.ErrorsCorrected)
	assert.Equal(t, good, frame.Data)
}

func TestValidateAndCorrect_UnrecoverableGarbage(t *testing.T) {
	data := mustDecodeHex(t, knownGoodDF17)
	for i := range data {
		data[i] ^= 0xFF
	}
	frame := &RawFrame{Data: data, Bits: len(data) * 8}

	result := ValidateAndCorrect(frame)
	assert.False(t, result.Valid)
}

func TestValidateAndCorrect_InvalidDF(t *testing.T) {
	frame := &RawFrame{Data: []byte{0xFF, 0, 0, 0, 0, 0, 0}, Bits: 56}
	result := ValidateAndCorrect(frame)
	assert.Equal(t, "invalid-df", result.CRCType)
	assert.False(t, result.Valid)
}

func TestCalculateCRC_Deterministic(t *testing.T) {
	data := mustDecodeHex(t, knownGoodDF17)
	a := CalculateCRC(data[:11])
	b := CalculateCRC(data[:11])
	assert.Equal(t, a, b)
}
