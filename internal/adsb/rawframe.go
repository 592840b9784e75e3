package adsb

import "time"

// RawFrame is the demodulator's output: a fixed-length Mode S bit frame
// together with the capture metadata spec.md's RawFrame model requires.
type RawFrame struct {
	// TimestampTicks is a monotonic 12 MHz-tick counter (sample index * 3,
	// since the pipeline runs at 4 MHz), masked to 48 bits at the sinks.
	TimestampTicks uint64
	SignalLevel    uint8
	Bits           int // 56 or 112
	Data           []byte
	SoftBits       int // count of low-confidence PPM bit decisions

	CapturedAt time.Time
}

// Len returns the frame length in bytes (7 or 14).
func (f *RawFrame) Len() int {
	return f.Bits / 8
}

// DF extracts the 5-bit Downlink Format from the frame's first byte.
func (f *RawFrame) DF() uint8 {
	if len(f.Data) == 0 {
		return 0
	}
	return (f.Data[0] >> 3) & 0x1F
}
