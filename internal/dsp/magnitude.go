// Package dsp implements the realtime front-end of the ADS-B pipeline:
// magnitude derivation, noise-floor tracking, and preamble correlation.
package dsp

import "math"

// Sample is a complex baseband I/Q value as delivered by the resampler.
type Sample = complex64

// Magnitude converts a block of complex baseband samples to their
// scalar magnitudes. Each magnitude is computed in float64 and stored as
// float32, keeping the output buffer cache-dense at multi-megasample rates.
func Magnitude(samples []Sample) []float32 {
	out := make([]float32, len(samples))
	MagnitudeInto(samples, out)
	return out
}

// MagnitudeInto writes magnitudes into a caller-supplied buffer, avoiding
// an allocation per buffer on the hot path. out must be at least
// len(samples) long.
func MagnitudeInto(samples []Sample, out []float32) {
	for i, s := range samples {
		re := float64(real(s))
		im := float64(imag(s))
		out[i] = float32(math.Sqrt(re*re + im*im))
	}
}
