package sinks

import (
	"net"

	"github.com/sirupsen/logrus"

	"go1090/internal/adsb"
)

// Beast protocol framing constants, adapted from the teacher's
// internal/beast package: sync byte plus per-length type bytes.
const (
	BeastSyncByte  = 0x1a
	BeastTypeShort = 0x32 // 56-bit Mode S
	BeastTypeLong  = 0x33 // 112-bit Mode S
)

// EncodeBeast renders one RawFrame in BEAST binary format: sync byte,
// type byte (unescaped), then the 6-byte 12 MHz timestamp, 1-byte signal
// level, and frame bytes with every 0x1a byte in that payload doubled.
func EncodeBeast(frame *adsb.RawFrame) []byte {
	typeByte := byte(BeastTypeShort)
	if frame.Bits == 112 {
		typeByte = BeastTypeLong
	}

	out := make([]byte, 0, 2+2*(6+1+len(frame.Data)))
	out = append(out, BeastSyncByte, typeByte)

	ts := frame.TimestampTicks & 0xFFFFFFFFFFFF
	for shift := 40; shift >= 0; shift -= 8 {
		out = appendEscaped(out, byte(ts>>shift))
	}
	out = appendEscaped(out, frame.SignalLevel)
	for _, b := range frame.Data {
		out = appendEscaped(out, b)
	}
	return out
}

func appendEscaped(buf []byte, b byte) []byte {
	if b == BeastSyncByte {
		buf = append(buf, BeastSyncByte)
	}
	return append(buf, b)
}

// DecodeBeast parses a single BEAST message from the front of buf,
// reversing the 0x1a doubling as it scans. It returns the number of
// bytes consumed so callers can advance a stream buffer; ok is false if
// buf does not begin with a complete message.
func DecodeBeast(buf []byte) (frame *adsb.RawFrame, consumed int, ok bool) {
	if len(buf) < 2 || buf[0] != BeastSyncByte {
		return nil, 0, false
	}

	typeByte := buf[1]
	var dataLen int
	switch typeByte {
	case BeastTypeShort:
		dataLen = 7
	case BeastTypeLong:
		dataLen = 14
	default:
		return nil, 0, false
	}

	logicalLen := 6 + 1 + dataLen
	raw := make([]byte, 0, logicalLen)
	i := 2
	for len(raw) < logicalLen {
		if i >= len(buf) {
			return nil, 0, false
		}
		b := buf[i]
		if b == BeastSyncByte {
			if i+1 >= len(buf) {
				return nil, 0, false
			}
			if buf[i+1] == BeastSyncByte {
				raw = append(raw, BeastSyncByte)
				i += 2
				continue
			}
			// Unescaped sync byte inside the payload region means this
			// message was truncated; caller should treat as incomplete.
			return nil, 0, false
		}
		raw = append(raw, b)
		i++
	}

	var ts uint64
	for k := 0; k < 6; k++ {
		ts = (ts << 8) | uint64(raw[k])
	}
	signal := raw[6]
	data := make([]byte, dataLen)
	copy(data, raw[7:7+dataLen])

	bits := 56
	if typeByte == BeastTypeLong {
		bits = 112
	}

	return &adsb.RawFrame{TimestampTicks: ts, SignalLevel: signal, Bits: bits, Data: data}, i, true
}

// BeastSink publishes CRC-valid RawFrames to every connected BEAST
// client. It bypasses the RateLimiter entirely, per spec.
type BeastSink struct {
	b *Broadcaster
}

// NewBeastSink binds a listener on addr and starts accepting clients.
func NewBeastSink(addr string, queueCap int, logger *logrus.Logger) (*BeastSink, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	b := NewBroadcaster("beast", l, queueCap, logger)
	b.Serve()
	return &BeastSink{b: b}, nil
}

// Publish encodes and broadcasts one RawFrame.
func (s *BeastSink) Publish(frame *adsb.RawFrame) {
	s.b.Send(EncodeBeast(frame))
}

// Snapshot returns the sink's broadcaster counters.
func (s *BeastSink) Snapshot() Counters { return s.b.Snapshot() }

// Close shuts the sink down.
func (s *BeastSink) Close() error { return s.b.Close() }
