package rtlsdr

import (
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeComplex32File(t *testing.T, samples []complex64) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.c32")
	buf := make([]byte, 0, len(samples)*8)
	for _, s := range samples {
		var re, im [4]byte
		binary.LittleEndian.PutUint32(re[:], math.Float32bits(real(s)))
		binary.LittleEndian.PutUint32(im[:], math.Float32bits(imag(s)))
		buf = append(buf, re[:]...)
		buf = append(buf, im[:]...)
	}
	require.NoError(t, os.WriteFile(path, buf, 0644))
	return path
}

func TestFileSource_ReplaysAllSamples(t *testing.T) {
	want := []complex64{
		complex(1.5, -2.5),
		complex(0, 0),
		complex(-3.25, 4.75),
	}
	path := writeComplex32File(t, want)

	src, err := NewFileSource(path, 0)
	require.NoError(t, err)
	defer src.Close()

	out := make(chan []complex64, 4)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- src.Start(ctx, out) }()

	var got []complex64
	for {
		select {
		case buf := <-out:
			got = append(got, buf...)
		case err := <-done:
			require.NoError(t, err)
			assert.Equal(t, want, got)
			return
		case <-ctx.Done():
			t.Fatal("timed out waiting for file replay to finish")
		}
	}
}

func TestFileSource_ContextCancelStopsEarly(t *testing.T) {
	samples := make([]complex64, fileChunkSamples*4)
	path := writeComplex32File(t, samples)

	src, err := NewFileSource(path, 1)
	require.NoError(t, err)
	defer src.Close()

	out := make(chan []complex64, fileChunkSamples*8)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- src.Start(ctx, out) }()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Start did not return after context cancellation")
	}
}
