package dsp

// Preamble timing, in samples, at the pipeline's fixed 4 Msps rate. The
// ADS-B preamble is four 0.5 µs high pulses at offsets {0.0, 1.0, 3.5,
// 4.5} µs across an 8 µs window; at 4 samples/µs that is 2-sample-wide
// pulses starting at sample offsets {0, 4, 14, 18}.
const (
	SamplesPerMicrosecond = 4
	PreambleLenSamples    = 8 * SamplesPerMicrosecond  // 32
	GuardSamples          = 16                          // ±16 sample local-max window
	SuppressSamples       = 120 * SamplesPerMicrosecond // 480, one max-length frame
)

// HighPulseOffsets are the sample offsets, relative to a candidate
// preamble start, that should be high if a real preamble begins there.
var HighPulseOffsets = [...]int{0, 1, 4, 5, 14, 15, 18, 19}

// lowGapOffsets are sample offsets that should be quiet between pulses.
var lowGapOffsets = [...]int{2, 3, 6, 7, 8, 9, 12, 13, 16, 17}

// DefaultTAbs and DefaultKRel mirror spec's tunable defaults.
const (
	DefaultTAbs = 10.0
	DefaultKRel = 2.0
)

// PreambleHit is emitted when the correlation score crosses threshold and
// is a local maximum over the guard window.
type PreambleHit struct {
	SampleIndex uint64
	Correlation float32
	NoiseAtHit  float32
}

// Detector correlates a magnitude stream against the ADS-B preamble
// template. It is fed successive buffers via Process and maintains a
// small carry-over window internally so preambles spanning a buffer
// boundary are not missed, and so the guard/suppression state persists
// across calls. It never blocks: a buffer with too few trailing samples
// to finalize a candidate simply carries that candidate into the next
// call.
type Detector struct {
	TAbs float32
	KRel float32

	carryMag   []float32
	carryNoise []float32
	nextIndex  uint64 // absolute sample index one past the last sample held in carry*

	suppressed    bool
	suppressUntil uint64
}

// NewDetector creates a Detector with the given thresholds. A
// non-positive value selects the spec default.
func NewDetector(tAbs, kRel float32) *Detector {
	if tAbs <= 0 {
		tAbs = DefaultTAbs
	}
	if kRel <= 0 {
		kRel = DefaultKRel
	}
	return &Detector{TAbs: tAbs, KRel: kRel}
}

// trailMargin is how many samples past a candidate index are needed to
// both compute its correlation and confirm it as a local maximum.
const trailMargin = PreambleLenSamples + GuardSamples

// Process consumes one buffer of magnitude samples (paired 1:1 with
// noise-floor estimates already computed by the caller for each sample)
// and returns any preamble hits found. mag and noise must be the same
// length.
func (d *Detector) Process(mag, noise []float32) []PreambleHit {
	if len(mag) == 0 {
		return nil
	}

	startIndex := d.nextIndex - uint64(len(d.carryMag))
	bufMag := append(append([]float32(nil), d.carryMag...), mag...)
	bufNoise := append(append([]float32(nil), d.carryNoise...), noise...)

	var hits []PreambleHit
	limit := len(bufMag) - PreambleLenSamples
	for i := 0; i <= limit; i++ {
		// Need trailMargin of lookahead to confirm a local maximum; if
		// we don't have it yet, stop here and let it be re-examined
		// (still un-suppressed) once more samples arrive.
		if i+trailMargin > len(bufMag) {
			break
		}

		absIndex := startIndex + uint64(i)
		if d.suppressed {
			if absIndex < d.suppressUntil {
				continue
			}
			d.suppressed = false
		}

		c := correlation(bufMag[i:])
		thresh := d.TAbs
		if rel := d.KRel * bufNoise[i]; rel > thresh {
			thresh = rel
		}
		if c < thresh {
			continue
		}
		if !isLocalMax(bufMag, i, len(bufMag), c) {
			continue
		}

		hits = append(hits, PreambleHit{
			SampleIndex: absIndex,
			Correlation: c,
			NoiseAtHit:  bufNoise[i],
		})
		d.suppressed = true
		d.suppressUntil = absIndex + SuppressSamples
	}

	keep := trailMargin - 1
	if keep < 0 {
		keep = 0
	}
	if keep > len(bufMag) {
		keep = len(bufMag)
	}
	d.carryMag = append([]float32(nil), bufMag[len(bufMag)-keep:]...)
	d.carryNoise = append([]float32(nil), bufNoise[len(bufNoise)-keep:]...)
	d.nextIndex = startIndex + uint64(len(bufMag))

	return hits
}

func correlation(mag []float32) float32 {
	var high, low float32
	for _, o := range HighPulseOffsets {
		high += mag[o]
	}
	for _, o := range lowGapOffsets {
		low += mag[o]
	}
	return high - low
}

// PulseMagnitudeMean returns the mean magnitude across the eight sample
// positions of the preamble's four high pulses starting at start, for use as a
// signal-strength estimate (spec.md §4.3's "mean magnitude over preamble
// pulse positions"). Offsets past the end of mag are skipped.
func PulseMagnitudeMean(mag []float32, start int) float32 {
	var sum float32
	var n int
	for _, o := range HighPulseOffsets {
		idx := start + o
		if idx < 0 || idx >= len(mag) {
			continue
		}
		sum += mag[idx]
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float32(n)
}

// isLocalMax reports whether the correlation at i is >= every other
// correlation in [i-GuardSamples, i+GuardSamples]. Ties go to the
// earliest index: since candidates are scanned left to right and a
// confirmed hit immediately suppresses the next SuppressSamples (far
// wider than the guard window), an equal-scoring neighbor to the right
// can never itself become a competing hit.
func isLocalMax(mag []float32, i, n int, c float32) bool {
	lo := i - GuardSamples
	if lo < 0 {
		lo = 0
	}
	hi := i + GuardSamples
	for j := lo; j <= hi; j++ {
		if j == i {
			continue
		}
		if j+PreambleLenSamples > n || j < 0 {
			continue
		}
		if correlation(mag[j:]) > c {
			return false
		}
	}
	return true
}
