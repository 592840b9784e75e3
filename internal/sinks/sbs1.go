package sinks

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"go1090/internal/tracker"
)

// SBS-1 / BaseStation transmission type codes, adapted from the
// teacher's internal/basestation constants.
const (
	sbsTypeIdentification = 1
	sbsTypeSurface        = 5
	sbsTypeAirborne        = 3
	sbsTypeVelocity        = 4
	sbsTypeGeneric         = 8
)

// BuildSBS1 renders one StateUpdate as a single BaseStation-format CSV
// line, selecting the transmission type from the field class that
// changed per spec.md's table.
func BuildSBS1(u tracker.StateUpdate, loggedAt time.Time) string {
	st := u.State

	msgType := sbsTypeGeneric
	var callsign, altitude, groundSpeed, track, latitude, longitude, verticalRate string

	switch u.Class {
	case tracker.ClassIdentification:
		msgType = sbsTypeIdentification
		callsign = st.Callsign

	case tracker.ClassPosition:
		if st.OnGround {
			msgType = sbsTypeSurface
		} else {
			msgType = sbsTypeAirborne
		}
		if st.Position != nil {
			latitude = fmt.Sprintf("%.5f", st.Position.Lat)
			longitude = fmt.Sprintf("%.5f", st.Position.Lon)
			if st.Position.AltitudeFt != 0 {
				altitude = strconv.Itoa(st.Position.AltitudeFt)
			}
		}

	case tracker.ClassVelocity:
		msgType = sbsTypeVelocity
		if st.Velocity != nil {
			groundSpeed = strconv.Itoa(st.Velocity.GroundSpeedKt)
			track = fmt.Sprintf("%.1f", st.Velocity.TrackDeg)
			verticalRate = strconv.Itoa(st.Velocity.VerticalRateFpm)
		}
	}

	fields := []string{
		"MSG",
		strconv.Itoa(msgType),
		"1",
		"1",
		fmt.Sprintf("%06X", u.ICAO),
		"1",
		u.Timestamp.Format("2006/01/02"),
		u.Timestamp.Format("15:04:05.000"),
		loggedAt.Format("2006/01/02"),
		loggedAt.Format("15:04:05.000"),
		callsign,
		altitude,
		groundSpeed,
		track,
		latitude,
		longitude,
		verticalRate,
		"", "", "", "", "",
	}
	return strings.Join(fields, ",") + "\n"
}

// SBS1Sink publishes rate-limited StateUpdates as BaseStation CSV lines.
type SBS1Sink struct {
	b *Broadcaster
}

// NewSBS1Sink binds a listener on addr and starts accepting clients.
func NewSBS1Sink(addr string, queueCap int, logger *logrus.Logger) (*SBS1Sink, error) {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	b := NewBroadcaster("sbs1", l, queueCap, logger)
	b.Serve()
	return &SBS1Sink{b: b}, nil
}

// Publish formats and broadcasts one StateUpdate.
func (s *SBS1Sink) Publish(u tracker.StateUpdate) {
	s.b.Send([]byte(BuildSBS1(u, time.Now())))
}

// Snapshot returns the sink's broadcaster counters.
func (s *SBS1Sink) Snapshot() Counters { return s.b.Snapshot() }

// Close shuts the sink down.
func (s *SBS1Sink) Close() error { return s.b.Close() }
