package adsb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Identification(t *testing.T) {
	data := mustDecodeHex(t, knownGoodDF17)
	frame := &RawFrame{Data: data, Bits: len(data) * 8}

	pkt, ok := Decode(frame)
	require.True(t, ok)
	assert.Equal(t, KindIdentification, pkt.Kind)
	assert.Equal(t, "KLM1023", pkt.Callsign)
	assert.Equal(t, uint32(0x4840D6), pkt.ICAO)
	assert.Equal(t, uint8(4), pkt.TC)
	assert.Equal(t, uint8(0), pkt.Category)
}

func TestDecode_AirbornePosition(t *testing.T) {
	data := make([]byte, 14)
	data[0] = 17 << 3
	data[1], data[2], data[3] = 0x48, 0x40, 0xD6
	data[4] = 11 << 3 // type code 11

	frame := &RawFrame{Data: data, Bits: 112}
	pkt, ok := Decode(frame)
	require.True(t, ok)
	assert.Equal(t, KindAirbornePosition, pkt.Kind)
	assert.EqualValues(t, 11, pkt.TC)
}

func TestDecode_SurfacePosition(t *testing.T) {
	data := make([]byte, 14)
	data[0] = 18 << 3
	data[4] = 7 << 3 // type code 7: surface position

	frame := &RawFrame{Data: data, Bits: 112}
	pkt, ok := Decode(frame)
	require.True(t, ok)
	assert.Equal(t, KindSurfacePosition, pkt.Kind)
	assert.True(t, pkt.OnGround)
}

func TestDecode_AirborneVelocity(t *testing.T) {
	data := make([]byte, 14)
	data[0] = 17 << 3
	data[4] = 19 << 3 // type code 19

	frame := &RawFrame{Data: data, Bits: 112}
	pkt, ok := Decode(frame)
	require.True(t, ok)
	assert.Equal(t, KindAirborneVelocity, pkt.Kind)
}

func TestDecode_UnknownDFRejected(t *testing.T) {
	data := make([]byte, 7)
	data[0] = 31 << 3 // DF31 is not a recognized format
	frame := &RawFrame{Data: data, Bits: 56}

	_, ok := Decode(frame)
	assert.False(t, ok)
}

func TestDecode_SurveillanceAltitudeReply(t *testing.T) {
	data := make([]byte, 7)
	data[0] = 4 << 3
	frame := &RawFrame{Data: data, Bits: 56}

	pkt, ok := Decode(frame)
	require.True(t, ok)
	assert.Equal(t, KindOther, pkt.Kind)
}
