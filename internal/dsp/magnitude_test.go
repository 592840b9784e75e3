package dsp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMagnitude_KnownValues(t *testing.T) {
	samples := []Sample{
		complex(3, 4),  // |z| = 5
		complex(0, 0),  // |z| = 0
		complex(-1, 0), // |z| = 1
	}

	mags := Magnitude(samples)

	assert.InDelta(t, 5.0, float64(mags[0]), 1e-4)
	assert.InDelta(t, 0.0, float64(mags[1]), 1e-4)
	assert.InDelta(t, 1.0, float64(mags[2]), 1e-4)
}

func TestMagnitudeInto_ReusesBuffer(t *testing.T) {
	samples := []Sample{complex(1, 1), complex(2, 0)}
	out := make([]float32, len(samples))

	MagnitudeInto(samples, out)

	assert.InDelta(t, 1.41421356, float64(out[0]), 1e-4)
	assert.InDelta(t, 2.0, float64(out[1]), 1e-4)
}
