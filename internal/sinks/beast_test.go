package sinks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go1090/internal/adsb"
)

func TestBeastRoundTrip_LongFrame(t *testing.T) {
	frame := &adsb.RawFrame{
		TimestampTicks: 0x1A2B3C4D5E6F & 0xFFFFFFFFFFFF,
		SignalLevel:    0x1A, // deliberately the sync byte, to exercise escaping
		Bits:           112,
		Data: []byte{
			0x8D, 0x48, 0x40, 0xD6, 0x20, 0x2C, 0xC3,
			0x71, 0xC3, 0x2C, 0xE0, 0x57, 0x60, 0x98,
		},
	}

	encoded := EncodeBeast(frame)
	assert.Equal(t, byte(BeastSyncByte), encoded[0])
	assert.Equal(t, byte(BeastTypeLong), encoded[1])

	decoded, consumed, ok := DecodeBeast(encoded)
	require.True(t, ok)
	assert.Equal(t, len(encoded), consumed)
	assert.Equal(t, frame.TimestampTicks, decoded.TimestampTicks)
	assert.Equal(t, frame.SignalLevel, decoded.SignalLevel)
	assert.Equal(t, frame.Bits, decoded.Bits)
	assert.Equal(t, frame.Data, decoded.Data)
}

func TestBeastRoundTrip_ShortFrame(t *testing.T) {
	frame := &adsb.RawFrame{
		TimestampTicks: 12345,
		SignalLevel:    200,
		Bits:           56,
		Data:           []byte{0x02, 0xE1, 0x97, 0x4B, 0x56, 0xE4, 0x9C},
	}

	encoded := EncodeBeast(frame)
	decoded, consumed, ok := DecodeBeast(encoded)
	require.True(t, ok)
	assert.Equal(t, len(encoded), consumed)
	assert.Equal(t, frame.TimestampTicks, decoded.TimestampTicks)
	assert.Equal(t, frame.SignalLevel, decoded.SignalLevel)
	assert.Equal(t, frame.Data, decoded.Data)
}

func TestEncodeBeast_DoublesSyncByteInTimestamp(t *testing.T) {
	frame := &adsb.RawFrame{
		TimestampTicks: 0x1A0000000000, // top timestamp byte is the sync byte
		SignalLevel:    10,
		Bits:           56,
		Data:           []byte{0, 0, 0, 0, 0, 0, 0},
	}
	encoded := EncodeBeast(frame)

	// sync + type + (escaped 0x1a -> two bytes) + 5 more ts bytes + signal + 7 data
	expectedLen := 2 + 2 + 5 + 1 + 7
	assert.Equal(t, expectedLen, len(encoded))

	decoded, _, ok := DecodeBeast(encoded)
	require.True(t, ok)
	assert.Equal(t, frame.TimestampTicks, decoded.TimestampTicks)
}

func TestDecodeBeast_IncompleteMessageNotOK(t *testing.T) {
	frame := &adsb.RawFrame{TimestampTicks: 1, SignalLevel: 1, Bits: 112, Data: make([]byte, 14)}
	encoded := EncodeBeast(frame)

	_, _, ok := DecodeBeast(encoded[:len(encoded)-1])
	assert.False(t, ok)
}

func TestDecodeBeast_UnknownTypeByte(t *testing.T) {
	_, _, ok := DecodeBeast([]byte{BeastSyncByte, 0x99, 0, 0})
	assert.False(t, ok)
}
