package adsb

import (
	"math"
	"strings"
)

// GetBits extracts bits [firstBit, lastBit] (1-based, dump1090 convention)
// from data, returning up to 8 bits.
func GetBits(data []byte, firstBit, lastBit int) uint8 {
	if firstBit < 1 || lastBit < firstBit || len(data) == 0 {
		return 0
	}

	fbi := firstBit - 1
	lbi := lastBit - 1
	nbi := lastBit - firstBit + 1
	if nbi > 8 {
		return 0
	}

	fby := fbi / 8
	lby := lbi / 8
	if lby >= len(data) {
		return 0
	}

	shift := 7 - (lbi % 8)
	topMask := uint8(0xFF >> (fbi % 8))

	switch {
	case fby == lby:
		return (data[fby] & topMask) >> shift
	case lby == fby+1:
		return ((data[fby] & topMask) << (8 - shift)) | (data[lby] >> shift)
	case lby == fby+2:
		return ((data[fby] & topMask) << (16 - shift)) | (data[fby+1] << (8 - shift)) | (data[lby] >> shift)
	}

	var result uint32
	for i := fby; i <= lby && i < len(data); i++ {
		if i == fby {
			result = uint32(data[i] & topMask)
		} else {
			result = (result << 8) | uint32(data[i])
		}
	}
	if nbi <= 32 {
		return uint8((result >> shift) & ((1 << nbi) - 1))
	}
	return uint8(result >> shift)
}

// GetBitsUint16 is GetBits for fields up to 16 bits wide.
func GetBitsUint16(data []byte, firstBit, lastBit int) uint16 {
	if firstBit < 1 || lastBit < firstBit || len(data) == 0 {
		return 0
	}

	fbi := firstBit - 1
	lbi := lastBit - 1
	nbi := lastBit - firstBit + 1
	if nbi > 16 {
		return 0
	}

	fby := fbi / 8
	lby := lbi / 8
	if lby >= len(data) {
		return 0
	}

	shift := 7 - (lbi % 8)
	topMask := uint8(0xFF >> (fbi % 8))

	var result uint32
	for i := fby; i <= lby && i < len(data); i++ {
		if i == fby {
			result = uint32(data[i] & topMask)
		} else {
			result = (result << 8) | uint32(data[i])
		}
	}
	return uint16((result >> shift) & ((1 << nbi) - 1))
}

// ExtractICAO returns the 24-bit ICAO address from bytes 1-3 of a frame.
func ExtractICAO(data []byte) uint32 {
	if len(data) < 4 {
		return 0
	}
	return (uint32(data[1]) << 16) | (uint32(data[2]) << 8) | uint32(data[3])
}

// ExtractCallsign decodes the 8-character flight identification from a
// DF17/18 identification ME field using the ADS-B 6-bit charset.
func ExtractCallsign(data []byte) string {
	if len(data) < 11 {
		return ""
	}
	me := data[4:]
	if len(me) < 7 {
		return ""
	}

	var callsign [8]byte
	callsign[0] = ADSBCharset[GetBits(me, 9, 14)]
	callsign[1] = ADSBCharset[GetBits(me, 15, 20)]
	callsign[2] = ADSBCharset[GetBits(me, 21, 26)]
	callsign[3] = ADSBCharset[GetBits(me, 27, 32)]
	callsign[4] = ADSBCharset[GetBits(me, 33, 38)]
	callsign[5] = ADSBCharset[GetBits(me, 39, 44)]
	callsign[6] = ADSBCharset[GetBits(me, 45, 50)]
	callsign[7] = ADSBCharset[GetBits(me, 51, 56)]

	for _, c := range callsign {
		if !((c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == ' ') {
			return ""
		}
	}

	return strings.TrimSpace(string(callsign[:]))
}

// ExtractCategory returns the 3-bit aircraft category subtype (ME bits
// 6-8) from a DF17/18 identification (TC 1-4) ME field. Combined with TC
// it selects a row of the ICAO emitter-category table.
func ExtractCategory(data []byte) uint8 {
	if len(data) < 5 {
		return 0
	}
	me := data[4:]
	if len(me) < 1 {
		return 0
	}
	return GetBits(me, 6, 8)
}

// ExtractAltitude decodes the altitude field from a surveillance reply
// (DF4/20) or an extended-squitter airborne position message (DF17/18),
// handling both the 25-foot (Q=1) and Gillham-coded 100-foot (Q=0)
// encodings. Returns 0 if the field is absent or unparseable.
func ExtractAltitude(data []byte) int {
	if len(data) < 6 {
		return 0
	}

	df := (data[0] >> 3) & 0x1F

	var altCode uint16
	switch df {
	case 4, 20:
		// AC13 field; dropping its M bit (0x40) gives the AC12 layout
		// decoded below.
		ac13 := (uint16(data[2]&0x1F) << 8) | uint16(data[3])
		altCode = ((ac13 & 0x1F80) >> 1) | (ac13 & 0x003F)
	case 17, 18:
		altCode = (uint16(data[5]&0x1F) << 7) | (uint16(data[6]) >> 1)
	default:
		return 0
	}

	if altCode == 0 {
		return 0
	}

	qBit := (altCode & 0x10) != 0
	if qBit {
		n := ((altCode & 0x0FE0) >> 1) | (altCode & 0x000F)
		return int(n)*25 - 1000
	}

	n13 := ((altCode & 0x0FC0) << 1) | (altCode & 0x003F)
	if n13 == 0 {
		return 0
	}
	hundreds := int((n13 >> 8) & 0x07)
	fiveHundreds := int((n13 >> 4) & 0x0F)
	altitude := (fiveHundreds*5 + hundreds) * 100
	if altitude < -2000 || altitude > 60000 {
		return 0
	}
	return altitude
}

// ExtractSquawk decodes the 4-digit squawk (transponder identity) code
// from a DF4/DF5/DF20/DF21 identity field.
func ExtractSquawk(data []byte) int {
	if len(data) < 4 {
		return 0
	}
	identity := (uint16(data[2]&0x1F) << 8) | uint16(data[3])

	// The identity bits are interleaved as C1 A1 C2 A2 C4 A4 X B1 D1 B2
	// D2 B4 D4 (bit 12 down to bit 0); regroup them into four contiguous
	// 3-bit octal digits before applying the digit masks below.
	bit := func(pos uint) uint16 { return (identity >> pos) & 1 }
	a := bit(7)<<2 | bit(9)<<1 | bit(11)
	b := bit(1)<<2 | bit(3)<<1 | bit(5)
	c := bit(8)<<2 | bit(10)<<1 | bit(12)
	d := bit(0)<<2 | bit(2)<<1 | bit(4)
	packed := a<<SquawkA4A2A1Shift | b<<SquawkB4B2B1Shift | c<<SquawkC4C2C1Shift | d<<SquawkD4D2D1Shift

	squawk := 0
	squawk += int((packed>>SquawkA4A2A1Shift)&SquawkA4A2A1Mask) * SquawkAMultiplier
	squawk += int((packed>>SquawkB4B2B1Shift)&SquawkB4B2B1Mask) * SquawkBMultiplier
	squawk += int((packed>>SquawkC4C2C1Shift)&SquawkC4C2C1Mask) * SquawkCMultiplier
	squawk += int((packed>>SquawkD4D2D1Shift)&SquawkD4D2D1Mask) * SquawkDMultiplier
	return squawk
}

// Velocity holds the decoded contents of a DF17/18 airborne velocity ME
// field (type code 19).
type Velocity struct {
	GroundSpeed  int
	Track        float64
	VerticalRate int
	Valid        bool
}

// ExtractVelocity decodes a type-code-19 airborne velocity message,
// handling both ground-speed (subtype 1/2) and airspeed (subtype 3/4)
// encodings.
func ExtractVelocity(data []byte) Velocity {
	if len(data) < 11 {
		return Velocity{}
	}

	subtype := data[4] & 0x07
	if subtype < 1 || subtype > 4 {
		return Velocity{}
	}

	me := data[4:]
	var groundSpeed int
	var track float64

	switch subtype {
	case 1, 2:
		ewRaw := GetBitsUint16(me, 15, 24)
		nsRaw := GetBitsUint16(me, 26, 35)
		if ewRaw != 0 && nsRaw != 0 {
			ewVel := int(ewRaw-1) * (1 << (subtype - 1))
			if GetBits(me, 14, 14) != 0 {
				ewVel = -ewVel
			}
			nsVel := int(nsRaw-1) * (1 << (subtype - 1))
			if GetBits(me, 25, 25) != 0 {
				nsVel = -nsVel
			}
			groundSpeed = int(math.Sqrt(float64(nsVel*nsVel+ewVel*ewVel)) + 0.5)
			if groundSpeed > 0 {
				track = math.Atan2(float64(ewVel), float64(nsVel)) * 180.0 / math.Pi
				if track < 0 {
					track += 360
				}
			}
		}
	case 3, 4:
		if GetBits(me, 14, 14) != 0 {
			track = float64(GetBitsUint16(me, 15, 24)) * 360.0 / 1024.0
		}
		airspeedRaw := GetBitsUint16(me, 26, 35)
		if airspeedRaw != 0 {
			groundSpeed = int(airspeedRaw-1) * (1 << (subtype - 3))
		}
	}

	vrRaw := GetBitsUint16(me, 38, 46)
	var verticalRate int
	if vrRaw != 0 {
		verticalRate = int(vrRaw-1) * 64
		if GetBits(me, 37, 37) != 0 {
			verticalRate = -verticalRate
		}
	}

	return Velocity{
		GroundSpeed:  groundSpeed,
		Track:        track,
		VerticalRate: verticalRate,
		Valid:        groundSpeed > 0 || track > 0 || verticalRate != 0,
	}
}

// ExtractCPRFrame pulls the raw F-flag and 17-bit lat/lon CPR fields out
// of a DF17/18 position ME field (airborne or surface; both share this
// layout).
func ExtractCPRFrame(data []byte) CPRFrame {
	if len(data) < 11 {
		return CPRFrame{}
	}
	fFlag := (data[6] >> 2) & 0x01
	latCPR := ((uint32(data[6]&0x03) << 15) | (uint32(data[7]) << 7) | (uint32(data[8]) >> 1)) & 0x1FFFF
	lonCPR := ((uint32(data[8]&0x01) << 16) | (uint32(data[9]) << 8) | uint32(data[10])) & 0x1FFFF
	return CPRFrame{LatCPR: latCPR, LonCPR: lonCPR, Odd: fFlag == 1}
}

// ExtractGroundState reports whether the frame indicates the aircraft is
// on the ground, based on DF-specific status fields or, for DF17/18, the
// position message's type code and capability field.
func ExtractGroundState(data []byte) bool {
	if len(data) < 5 {
		return false
	}

	df := (data[0] >> 3) & 0x1F

	if df == 4 || df == 5 || df == 20 || df == 21 {
		fs := data[0] & 0x07
		if fs == 1 || fs == 3 {
			return true
		}
	}

	if df == 17 || df == 18 {
		typeCode := (data[4] >> 3) & 0x1F
		if typeCode >= 5 && typeCode <= 8 {
			return true
		}
		if df == 17 {
			ca := data[0] & 0x07
			if ca == 4 {
				return true
			}
		}
	}

	return false
}
