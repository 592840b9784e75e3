package sinks

import (
	"encoding/hex"
	"fmt"
	"net"
	"strings"

	"github.com/sirupsen/logrus"

	"go1090/internal/adsb"
)

// EncodeRaw renders one RawFrame in the Raw-hex wire format: an asterisk,
// uppercase hex digits, a semicolon, and a trailing newline.
func EncodeRaw(frame *adsb.RawFrame) []byte {
	h := strings.ToUpper(hex.EncodeToString(frame.Data))
	return []byte("*" + h + ";\n")
}

// RawSink publishes CRC-valid RawFrames in Raw-hex format.
type RawSink struct {
	b *Broadcaster
}

// NewRawSink binds a listener on addr and starts accepting clients.
func NewRawSink(addr string, queueCap int, logger *logrus.Logger) (*RawSink, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	b := NewBroadcaster("raw", l, queueCap, logger)
	b.Serve()
	return &RawSink{b: b}, nil
}

// Publish encodes and broadcasts one RawFrame.
func (s *RawSink) Publish(frame *adsb.RawFrame) {
	s.b.Send(EncodeRaw(frame))
}

// Snapshot returns the sink's broadcaster counters.
func (s *RawSink) Snapshot() Counters { return s.b.Snapshot() }

// Close shuts the sink down.
func (s *RawSink) Close() error { return s.b.Close() }

// EncodeAVR renders one RawFrame in the AVR wire format: an `@` line
// carrying a 12-hex-digit timestamp, followed by the Raw-hex line.
func EncodeAVR(frame *adsb.RawFrame) []byte {
	ts := frame.TimestampTicks & 0xFFFFFFFFFFFF
	h := strings.ToUpper(hex.EncodeToString(frame.Data))
	return []byte(fmt.Sprintf("@%012X\n*%s;\n", ts, h))
}

// AVRSink publishes CRC-valid RawFrames in AVR format.
type AVRSink struct {
	b *Broadcaster
}

// NewAVRSink binds a listener on addr and starts accepting clients.
func NewAVRSink(addr string, queueCap int, logger *logrus.Logger) (*AVRSink, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	b := NewBroadcaster("avr", l, queueCap, logger)
	b.Serve()
	return &AVRSink{b: b}, nil
}

// Publish encodes and broadcasts one RawFrame.
func (s *AVRSink) Publish(frame *adsb.RawFrame) {
	s.b.Send(EncodeAVR(frame))
}

// Snapshot returns the sink's broadcaster counters.
func (s *AVRSink) Snapshot() Counters { return s.b.Snapshot() }

// Close shuts the sink down.
func (s *AVRSink) Close() error { return s.b.Close() }
