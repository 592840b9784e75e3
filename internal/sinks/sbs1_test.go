package sinks

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go1090/internal/tracker"
)

func TestBuildSBS1_Identification(t *testing.T) {
	u := tracker.StateUpdate{
		ICAO:      0x4840D6,
		Class:     tracker.ClassIdentification,
		Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		State:     &tracker.AircraftState{ICAO: 0x4840D6, Callsign: "KLM1023"},
	}
	loggedAt := time.Date(2026, 1, 2, 3, 4, 6, 0, time.UTC)

	line := BuildSBS1(u, loggedAt)
	fields := strings.Split(strings.TrimRight(line, "\n"), ",")

	require.Len(t, fields, 22)
	assert.Equal(t, "MSG", fields[0])
	assert.Equal(t, "1", fields[1]) // type 1: identification
	assert.Equal(t, "4840D6", fields[4])
	assert.Equal(t, "KLM1023", fields[10])
}

func TestBuildSBS1_AirbornePosition(t *testing.T) {
	u := tracker.StateUpdate{
		ICAO:  1,
		Class: tracker.ClassPosition,
		State: &tracker.AircraftState{
			Position: &tracker.Position{Lat: 52.2572, Lon: 3.91937, AltitudeFt: 38000},
		},
	}
	line := BuildSBS1(u, time.Now())
	fields := strings.Split(strings.TrimRight(line, "\n"), ",")

	assert.Equal(t, "3", fields[1]) // type 3: airborne position
	assert.Equal(t, "38000", fields[11])
	assert.Contains(t, fields[14], "52.25")
}

func TestBuildSBS1_SurfacePosition(t *testing.T) {
	u := tracker.StateUpdate{
		ICAO:  1,
		Class: tracker.ClassPosition,
		State: &tracker.AircraftState{
			OnGround: true,
			Position: &tracker.Position{Lat: 1, Lon: 2},
		},
	}
	line := BuildSBS1(u, time.Now())
	fields := strings.Split(strings.TrimRight(line, "\n"), ",")
	assert.Equal(t, "5", fields[1]) // type 5: surface position
}

func TestBuildSBS1_Velocity(t *testing.T) {
	u := tracker.StateUpdate{
		ICAO:  1,
		Class: tracker.ClassVelocity,
		State: &tracker.AircraftState{
			Velocity: &tracker.Velocity{GroundSpeedKt: 450, TrackDeg: 270, VerticalRateFpm: -640},
		},
	}
	line := BuildSBS1(u, time.Now())
	fields := strings.Split(strings.TrimRight(line, "\n"), ",")

	assert.Equal(t, "4", fields[1]) // type 4: velocity
	assert.Equal(t, "450", fields[12])
	assert.Equal(t, "270.0", fields[13])
	assert.Equal(t, "-640", fields[16])
}
