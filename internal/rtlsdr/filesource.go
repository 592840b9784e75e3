package rtlsdr

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"os"
	"time"
)

// fileChunkSamples is how many complex samples FileSource reads and
// delivers per buffer; it plays the same role BufferChunkSize plays for
// the live device.
const fileChunkSamples = 4096

// FileSource implements SampleSource by replaying a raw file of
// interleaved little-endian float32 I/Q pairs (a Complex32 stream, per
// spec.md §6's `--file` flag) instead of reading from hardware.
type FileSource struct {
	f          *os.File
	r          *bufio.Reader
	sampleRate uint32
	realtime   bool
}

// NewFileSource opens path for replay. sampleRate, if non-zero, paces
// delivery to approximate real time; a zero rate replays as fast as the
// pipeline can consume.
func NewFileSource(path string, sampleRate uint32) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &FileSource{
		f:          f,
		r:          bufio.NewReaderSize(f, 1<<20),
		sampleRate: sampleRate,
		realtime:   sampleRate > 0,
	}, nil
}

// Start reads the file in fileChunkSamples-sized buffers until EOF or
// ctx is cancelled, pacing delivery to the configured sample rate when
// one was given.
func (s *FileSource) Start(ctx context.Context, out chan<- []complex64) error {
	buf := make([]byte, fileChunkSamples*8) // 2 float32s per sample

	var chunkDur time.Duration
	if s.realtime {
		chunkDur = time.Duration(float64(fileChunkSamples) / float64(s.sampleRate) * float64(time.Second))
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := io.ReadFull(s.r, buf)
		if n > 0 {
			samples := decodeComplex64(buf[:n-(n%8)])
			select {
			case out <- samples:
			case <-ctx.Done():
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}

		if s.realtime {
			select {
			case <-time.After(chunkDur):
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func decodeComplex64(buf []byte) []complex64 {
	n := len(buf) / 8
	out := make([]complex64, n)
	for i := 0; i < n; i++ {
		re := math.Float32frombits(binary.LittleEndian.Uint32(buf[i*8:]))
		im := math.Float32frombits(binary.LittleEndian.Uint32(buf[i*8+4:]))
		out[i] = complex(re, im)
	}
	return out
}

// Close releases the underlying file.
func (s *FileSource) Close() error {
	return s.f.Close()
}
