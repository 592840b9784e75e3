package adsb

// Kind identifies which variant of DecodedPacket a message carries.
type Kind int

const (
	KindOther Kind = iota
	KindIdentification
	KindSurfacePosition
	KindAirbornePosition
	KindAirborneVelocity
)

// DecodedPacket is the tagged result of decoding one RawFrame's ME
// (Message Extended) field. Only the fields matching Kind are populated;
// internal/tracker dispatches on Kind to fold the packet into aircraft
// state.
type DecodedPacket struct {
	Kind Kind

	ICAO uint32
	DF   uint8
	TC   uint8 // type code, DF17/18 only

	// KindIdentification
	Callsign string
	Category uint8 // CA subtype (ME bits 6-8); TC (above) selects the emitter-category set

	// KindSurfacePosition / KindAirbornePosition
	CPR      CPRFrame
	Altitude int // KindAirbornePosition and DF4/20 replies; surface reports carry no altitude

	// KindAirborneVelocity
	Velocity Velocity

	OnGround bool
	Squawk   int // DF5/21 identity replies only; 0 if absent
}

// Decode interprets a CRC-validated RawFrame and extracts whichever
// fields its downlink format and (for DF17/18) type code carry. DF4/20
// replies are reported as KindOther with Altitude set, DF5/21 as
// KindOther with Squawk set, and DF0/11/16 as KindOther with only ICAO
// set; OnGround is populated where the format carries it. The second
// return is false for an empty frame or any other downlink format.
func Decode(frame *RawFrame) (*DecodedPacket, bool) {
	data := frame.Data
	if len(data) == 0 {
		return nil, false
	}
	df := frame.DF()

	pkt := &DecodedPacket{
		DF:       df,
		OnGround: ExtractGroundState(data),
	}

	switch df {
	case 17, 18:
		pkt.ICAO = ExtractICAO(data)
		if len(data) < 5 {
			return pkt, true
		}
		tc := (data[4] >> 3) & 0x1F
		pkt.TC = tc

		switch {
		case tc == 1 || tc == 2 || tc == 3 || tc == 4:
			pkt.Kind = KindIdentification
			pkt.Callsign = ExtractCallsign(data)
			pkt.Category = ExtractCategory(data)
		case tc >= 5 && tc <= 8:
			pkt.Kind = KindSurfacePosition
			pkt.CPR = ExtractCPRFrame(data)
		case tc >= 9 && tc <= 18:
			pkt.Kind = KindAirbornePosition
			pkt.CPR = ExtractCPRFrame(data)
			pkt.Altitude = ExtractAltitude(data)
		case tc == 19:
			pkt.Kind = KindAirborneVelocity
			pkt.Velocity = ExtractVelocity(data)
		case tc >= 20 && tc <= 22:
			pkt.Kind = KindAirbornePosition
			pkt.CPR = ExtractCPRFrame(data)
			pkt.Altitude = ExtractAltitude(data)
		default:
			pkt.Kind = KindOther
		}
		return pkt, true

	case 4, 20:
		pkt.ICAO = ExtractICAO(data)
		pkt.Altitude = ExtractAltitude(data)
		pkt.Kind = KindOther
		return pkt, true

	case 5, 21:
		pkt.ICAO = ExtractICAO(data)
		pkt.Squawk = ExtractSquawk(data)
		pkt.Kind = KindOther
		return pkt, true

	case 0, 11, 16:
		pkt.ICAO = ExtractICAO(data)
		pkt.Kind = KindOther
		return pkt, true

	default:
		return nil, false
	}
}
