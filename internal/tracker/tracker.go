package tracker

import (
	"container/list"
	"math"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"go1090/internal/adsb"
)

// FieldClass identifies which rate-limiter class a StateUpdate belongs
// to; internal/ratelimit schedules emissions per (icao, class).
type FieldClass int

const (
	ClassIdentification FieldClass = iota
	ClassPosition
	ClassVelocity
	ClassMetadata
)

func (c FieldClass) String() string {
	switch c {
	case ClassIdentification:
		return "identification"
	case ClassPosition:
		return "position"
	case ClassVelocity:
		return "velocity"
	case ClassMetadata:
		return "metadata"
	default:
		return "unknown"
	}
}

// StateUpdate describes a single field-class change to an aircraft,
// carrying a snapshot of the full state at the time of the change so
// sinks never need to re-enter the Tracker's lock.
type StateUpdate struct {
	ICAO      uint32
	Class     FieldClass
	State     *AircraftState
	Timestamp time.Time
}

// Config holds the Tracker's tunable windows and caps, all defaulted to
// spec's stated values when zero.
type Config struct {
	Lifetime            time.Duration // default 60s
	MaxAircraft         int           // LRU cap; 0 = unbounded
	AirbornePairMaxAge  time.Duration // default 10s
	SurfacePairMaxAge   time.Duration // default 25s
	LocalRefMaxAge      time.Duration // default 60s
	LocalRefMaxRangeNM  float64       // default 180nmi
}

func (c Config) withDefaults() Config {
	if c.Lifetime <= 0 {
		c.Lifetime = 60 * time.Second
	}
	if c.AirbornePairMaxAge <= 0 {
		c.AirbornePairMaxAge = 10 * time.Second
	}
	if c.SurfacePairMaxAge <= 0 {
		c.SurfacePairMaxAge = 25 * time.Second
	}
	if c.LocalRefMaxAge <= 0 {
		c.LocalRefMaxAge = 60 * time.Second
	}
	if c.LocalRefMaxRangeNM <= 0 {
		c.LocalRefMaxRangeNM = 180
	}
	return c
}

// Tracker is the single-writer aircraft-state map. Ingest is intended to
// be called from exactly one goroutine (the decode pipeline); Snapshot
// and Lookup may be called concurrently from any goroutine and take only
// a read lock.
type Tracker struct {
	mu     sync.RWMutex
	states map[uint32]*AircraftState

	lru      *list.List
	lruElems map[uint32]*list.Element

	cfg    Config
	logger *logrus.Logger

	onUpdate func(StateUpdate)
}

// New creates a Tracker. onUpdate, if non-nil, is invoked synchronously
// from within Ingest for every field-class change produced; callers
// feed it to the RateLimiter.
func New(cfg Config, logger *logrus.Logger, onUpdate func(StateUpdate)) *Tracker {
	if logger == nil {
		logger = logrus.New()
	}
	return &Tracker{
		states:   make(map[uint32]*AircraftState),
		lru:      list.New(),
		lruElems: make(map[uint32]*list.Element),
		cfg:      cfg.withDefaults(),
		logger:   logger,
		onUpdate: onUpdate,
	}
}

// Ingest folds one CRC-valid DecodedPacket into aircraft state per
// spec.md §4.5: locate-or-create, bump last_seen/message count, dispatch
// by packet kind, and emit a StateUpdate for whichever field class
// changed.
func (t *Tracker) Ingest(pkt *adsb.DecodedPacket, now time.Time) {
	if pkt.ICAO == 0 {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	state, exists := t.states[pkt.ICAO]
	if !exists {
		state = &AircraftState{ICAO: pkt.ICAO, FirstSeen: now}
		t.states[pkt.ICAO] = state
		t.touchLRU(pkt.ICAO)
		t.evictOverCapLocked()
	} else {
		t.touchLRU(pkt.ICAO)
	}

	state.LastSeen = now
	state.MessagesReceived++
	state.OnGround = pkt.OnGround
	if pkt.Squawk != 0 {
		state.Squawk = pkt.Squawk
		state.SquawkTimestamp = now
	}

	var class FieldClass
	changed := true

	switch pkt.Kind {
	case adsb.KindIdentification:
		class = ClassIdentification
		state.Callsign = pkt.Callsign
		state.CallsignTimestamp = now
		state.Category = pkt.Category
		state.EmitterType = pkt.TC

	case adsb.KindAirbornePosition:
		class = ClassPosition
		changed = t.updatePosition(state, pkt, now, false)

	case adsb.KindSurfacePosition:
		class = ClassPosition
		changed = t.updatePosition(state, pkt, now, true)

	case adsb.KindAirborneVelocity:
		class = ClassVelocity
		v := pkt.Velocity
		if v.Valid {
			state.Velocity = &Velocity{
				GroundSpeedKt:   v.GroundSpeed,
				TrackDeg:        v.Track,
				VerticalRateFpm: v.VerticalRate,
				Timestamp:       now,
			}
		} else {
			changed = false
		}

	default:
		class = ClassMetadata
	}

	if changed && t.onUpdate != nil {
		t.onUpdate(StateUpdate{
			ICAO:      pkt.ICAO,
			Class:     class,
			State:     state.Clone(),
			Timestamp: now,
		})
	}
}

// updatePosition implements the CPR pairing and decode-path selection
// from spec.md §4.5: store the new half by parity, attempt a global
// decode if the complementary half is fresh enough, else fall back to a
// local decode against a recent-enough, nearby reference position.
func (t *Tracker) updatePosition(state *AircraftState, pkt *adsb.DecodedPacket, now time.Time, surface bool) bool {
	half := &CPRHalf{LatCPR: pkt.CPR.LatCPR, LonCPR: pkt.CPR.LonCPR, Timestamp: now}

	pairMaxAge := t.cfg.AirbornePairMaxAge
	if surface {
		pairMaxAge = t.cfg.SurfacePairMaxAge
	}

	if pkt.CPR.Odd {
		state.LastOddCPR = half
	} else {
		state.LastEvenCPR = half
	}

	if state.LastEvenCPR != nil && state.LastOddCPR != nil {
		age := state.LastOddCPR.Timestamp.Sub(state.LastEvenCPR.Timestamp)
		if age < 0 {
			age = -age
		}
		if age <= pairMaxAge {
			even := adsb.CPRFrame{LatCPR: state.LastEvenCPR.LatCPR, LonCPR: state.LastEvenCPR.LonCPR, Odd: false}
			odd := adsb.CPRFrame{LatCPR: state.LastOddCPR.LatCPR, LonCPR: state.LastOddCPR.LonCPR, Odd: true}
			newerIsOdd := state.LastOddCPR.Timestamp.After(state.LastEvenCPR.Timestamp)

			var lat, lon float64
			var ok bool
			if surface {
				refLat, refLon, haveRef := t.referencePosition(state, now)
				if !haveRef {
					return false
				}
				lat, lon, ok = adsb.GlobalSurfacePosition(refLat, refLon, even, odd, newerIsOdd)
			} else {
				lat, lon, ok = adsb.GlobalAirbornePosition(even, odd, newerIsOdd)
			}

			if !ok {
				// NL disagreement or out-of-range: discard both halves,
				// retain only the newer (per spec.md §4.5 edge case).
				if newerIsOdd {
					state.LastEvenCPR = nil
				} else {
					state.LastOddCPR = nil
				}
				return false
			}

			state.Position = &Position{Lat: lat, Lon: lon, AltitudeFt: pkt.Altitude, Timestamp: now}
			return true
		}
	}

	// No fresh pair: try a local decode against a recent, nearby
	// reference position.
	refLat, refLon, haveRef := t.referencePosition(state, now)
	if !haveRef {
		return false
	}

	cprFrame := adsb.CPRFrame{LatCPR: half.LatCPR, LonCPR: half.LonCPR, Odd: pkt.CPR.Odd}
	lat, lon, ok := adsb.LocalAirbornePosition(refLat, refLon, cprFrame)
	if !ok {
		return false
	}
	if haversineNM(refLat, refLon, lat, lon) > t.cfg.LocalRefMaxRangeNM {
		return false
	}

	state.Position = &Position{Lat: lat, Lon: lon, AltitudeFt: pkt.Altitude, Timestamp: now}
	return true
}

// referencePosition returns the aircraft's last position if it is no
// older than LocalRefMaxAge, for use as a local-CPR-decode reference.
func (t *Tracker) referencePosition(state *AircraftState, now time.Time) (lat, lon float64, ok bool) {
	if state.Position == nil {
		return 0, 0, false
	}
	if now.Sub(state.Position.Timestamp) > t.cfg.LocalRefMaxAge {
		return 0, 0, false
	}
	return state.Position.Lat, state.Position.Lon, true
}

// haversineNM returns the great-circle distance between two points in
// nautical miles.
func haversineNM(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusNM = 3440.065
	rad := math.Pi / 180.0
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusNM * c
}

// touchLRU moves icao to the front of the recency list, inserting it if
// new. Caller must hold t.mu.
func (t *Tracker) touchLRU(icao uint32) {
	if el, ok := t.lruElems[icao]; ok {
		t.lru.MoveToFront(el)
		return
	}
	t.lruElems[icao] = t.lru.PushFront(icao)
}

// evictOverCapLocked drops the least-recently-seen aircraft while the
// map exceeds cfg.MaxAircraft. Caller must hold t.mu.
func (t *Tracker) evictOverCapLocked() {
	if t.cfg.MaxAircraft <= 0 {
		return
	}
	for len(t.states) > t.cfg.MaxAircraft {
		back := t.lru.Back()
		if back == nil {
			return
		}
		icao := back.Value.(uint32)
		t.lru.Remove(back)
		delete(t.lruElems, icao)
		delete(t.states, icao)
	}
}

// Sweep evicts aircraft whose last_seen predates now by more than the
// configured lifetime, returning the evicted ICAOs so callers (e.g. the
// RateLimiter) can free their own per-aircraft slots.
func (t *Tracker) Sweep(now time.Time) []uint32 {
	t.mu.Lock()
	defer t.mu.Unlock()

	var evicted []uint32
	for icao, state := range t.states {
		if now.Sub(state.LastSeen) > t.cfg.Lifetime {
			evicted = append(evicted, icao)
		}
	}
	for _, icao := range evicted {
		delete(t.states, icao)
		if el, ok := t.lruElems[icao]; ok {
			t.lru.Remove(el)
			delete(t.lruElems, icao)
		}
	}
	return evicted
}

// Snapshot returns a point-in-time copy of every active aircraft.
func (t *Tracker) Snapshot() []*AircraftState {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]*AircraftState, 0, len(t.states))
	for _, state := range t.states {
		out = append(out, state.Clone())
	}
	return out
}

// Lookup returns a copy of one aircraft's state, if present.
func (t *Tracker) Lookup(icao uint32) (*AircraftState, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	state, ok := t.states[icao]
	if !ok {
		return nil, false
	}
	return state.Clone(), true
}

// Len returns the number of currently active aircraft.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.states)
}
