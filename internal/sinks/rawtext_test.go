package sinks

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go1090/internal/adsb"
)

func TestEncodeRaw_Format(t *testing.T) {
	frame := &adsb.RawFrame{
		Bits: 112,
		Data: []byte{0x8d, 0x48, 0x40, 0xd6, 0x20, 0x2c, 0xc3, 0x71, 0xc3, 0x2c, 0xe0, 0x57, 0x60, 0x98},
	}
	got := string(EncodeRaw(frame))
	assert.Equal(t, "*8D4840D6202CC371C32CE0576098;\n", got)
}

func TestEncodeAVR_Format(t *testing.T) {
	frame := &adsb.RawFrame{
		TimestampTicks: 0xABCDEF012345,
		Bits:           56,
		Data:           []byte{0x02, 0xE1, 0x97, 0x4B, 0x56, 0xE4, 0x9C},
	}
	got := string(EncodeAVR(frame))
	assert.Equal(t, "@ABCDEF012345\n*02E1974B56E49C;\n", got)
}
