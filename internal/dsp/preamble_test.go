package dsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildMagnitudeNoise runs a causal NoiseFloor alongside a magnitude
// buffer, the way the real pipeline feeds the detector.
func buildMagnitudeNoise(mag []float32, window int) []float32 {
	nf := NewNoiseFloor(window)
	noise := make([]float32, len(mag))
	for i, m := range mag {
		nf.Update(m)
		noise[i] = nf.Value()
	}
	return noise
}

func TestDetector_CleanPreamble(t *testing.T) {
	const prefix = 200
	const n = prefix + 600

	mag := make([]float32, n)
	for i := range mag {
		mag[i] = 1.0
	}
	for _, p := range []int{0, 1, 4, 5, 14, 15, 18, 19} {
		mag[prefix+p] = 5.0
	}

	noise := buildMagnitudeNoise(mag, DefaultWindow)

	d := NewDetector(DefaultTAbs, DefaultKRel)
	hits := d.Process(mag, noise)

	require.Len(t, hits, 1)
	assert.EqualValues(t, prefix, hits[0].SampleIndex)
	assert.Greater(t, hits[0].Correlation, float32(DefaultTAbs))
}

func TestDetector_PureNoiseProducesNoHits(t *testing.T) {
	const n = 5000
	mag := make([]float32, n)
	for i := range mag {
		mag[i] = 1.0
	}
	noise := buildMagnitudeNoise(mag, DefaultWindow)

	d := NewDetector(DefaultTAbs, DefaultKRel)
	hits := d.Process(mag, noise)

	assert.Empty(t, hits)
}

func TestDetector_SuppressesDuplicateHitsWithinOneFrame(t *testing.T) {
	const prefix = 200
	const n = prefix + 2*SuppressSamples + 600

	mag := make([]float32, n)
	for i := range mag {
		mag[i] = 1.0
	}
	pulses := []int{0, 1, 4, 5, 14, 15, 18, 19}
	for _, p := range pulses {
		mag[prefix+p] = 5.0
		// A second preamble-shaped burst well inside the suppression
		// window should not be reported as a second hit.
		mag[prefix+100+p] = 5.0
	}

	noise := buildMagnitudeNoise(mag, DefaultWindow)

	d := NewDetector(DefaultTAbs, DefaultKRel)
	hits := d.Process(mag, noise)

	require.Len(t, hits, 1)
	assert.EqualValues(t, prefix, hits[0].SampleIndex)
}

func TestDetector_SplitAcrossBuffers(t *testing.T) {
	const prefix = 200
	const n = prefix + 600
	mag := make([]float32, n)
	for i := range mag {
		mag[i] = 1.0
	}
	for _, p := range []int{0, 1, 4, 5, 14, 15, 18, 19} {
		mag[prefix+p] = 5.0
	}
	noise := buildMagnitudeNoise(mag, DefaultWindow)

	d := NewDetector(DefaultTAbs, DefaultKRel)
	split := prefix + 10
	hits := d.Process(mag[:split], noise[:split])
	hits = append(hits, d.Process(mag[split:], noise[split:])...)

	require.Len(t, hits, 1)
	assert.EqualValues(t, prefix, hits[0].SampleIndex)
}
