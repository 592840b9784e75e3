package adsb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go1090/internal/dsp"
)

// encodeBits writes a PPM-modulated bit pattern into mag starting at
// offset: a 1 bit is encoded as a high first half-chip/low second
// half-chip, a 0 bit as the reverse.
func encodeBits(mag []float32, offset int, data []byte, nBits int) {
	for i := 0; i < nBits; i++ {
		byteIdx := i / 8
		bitIdx := 7 - (i % 8)
		bit := (data[byteIdx] >> bitIdx) & 1
		off := offset + i*4
		if bit == 1 {
			mag[off], mag[off+1] = 5, 5
			mag[off+2], mag[off+3] = 1, 1
		} else {
			mag[off], mag[off+1] = 1, 1
			mag[off+2], mag[off+3] = 5, 5
		}
	}
}

func TestDemodulator_ShortFrame(t *testing.T) {
	const prefix = 50
	payload := []byte{0x00 | (5 << 3), 0xAB, 0xCD, 0xEF, 0x01, 0x23, 0x45} // DF5
	mag := make([]float32, prefix+dsp.PreambleLenSamples+BitsShort*4+8)
	for i := range mag {
		mag[i] = 0
	}
	encodeBits(mag, prefix+dsp.PreambleLenSamples, payload, BitsShort)

	d := NewDemodulator()
	hit := dsp.PreambleHit{SampleIndex: uint64(prefix), Correlation: 20}
	frame, ok := d.Demodulate(hit, mag, 0)

	require.True(t, ok)
	assert.Equal(t, BitsShort, frame.Bits)
	assert.Equal(t, payload, frame.Data)
	assert.Equal(t, 0, frame.SoftBits)
}

func TestDemodulator_LongFrameFromDF17(t *testing.T) {
	const prefix = 50
	payload := mustDecodeHex(t, knownGoodDF17)
	mag := make([]float32, prefix+dsp.PreambleLenSamples+BitsLong*4+8)
	encodeBits(mag, prefix+dsp.PreambleLenSamples, payload, BitsLong)

	d := NewDemodulator()
	hit := dsp.PreambleHit{SampleIndex: uint64(prefix), Correlation: 30}
	frame, ok := d.Demodulate(hit, mag, 0)

	require.True(t, ok)
	assert.Equal(t, BitsLong, frame.Bits)
	assert.Equal(t, payload, frame.Data)
}

func TestDemodulator_InsufficientTrailingSamples(t *testing.T) {
	mag := make([]float32, 10)
	d := NewDemodulator()
	hit := dsp.PreambleHit{SampleIndex: 0}

	_, ok := d.Demodulate(hit, mag, 0)
	assert.False(t, ok)
}

func TestScaleSignalLevel_LogScaled(t *testing.T) {
	assert.Equal(t, uint8(0), scaleSignalLevel(0))
	low := scaleSignalLevel(1)
	high := scaleSignalLevel(100)
	assert.Less(t, low, high)
	assert.Equal(t, uint8(255), scaleSignalLevel(1e6))
}

func TestDemodulator_SignalLevelFromPreamblePulses(t *testing.T) {
	const prefix = 50
	payload := []byte{0x58, 0, 0, 0, 0, 0, 0} // DF11
	mag := make([]float32, prefix+dsp.PreambleLenSamples+BitsShort*4+8)
	for _, o := range dsp.HighPulseOffsets {
		mag[prefix+o] = 10
	}
	encodeBits(mag, prefix+dsp.PreambleLenSamples, payload, BitsShort)

	d := NewDemodulator()
	hit := dsp.PreambleHit{SampleIndex: uint64(prefix), Correlation: 10}
	frame, ok := d.Demodulate(hit, mag, 0)

	require.True(t, ok)
	assert.Equal(t, scaleSignalLevel(10), frame.SignalLevel)
}

func TestDemodulator_TimestampTicksScaling(t *testing.T) {
	const prefix = 50
	payload := []byte{0x58, 0, 0, 0, 0, 0, 0} // DF11
	mag := make([]float32, prefix+dsp.PreambleLenSamples+BitsShort*4+8)
	encodeBits(mag, prefix+dsp.PreambleLenSamples, payload, BitsShort)

	d := NewDemodulator()
	hit := dsp.PreambleHit{SampleIndex: uint64(prefix), Correlation: 10}
	frame, ok := d.Demodulate(hit, mag, 0)

	require.True(t, ok)
	assert.EqualValues(t, prefix*3, frame.TimestampTicks)
}
