// Package ratelimit implements the per-(icao, class) coalescing
// scheduler that sits between the Tracker and the state sinks: each
// aircraft/field-class pair emits immediately if its interval has
// elapsed, or coalesces into a single pending update that fires at the
// next interval boundary.
package ratelimit

import (
	"sync"
	"time"

	"go1090/internal/tracker"
)

// Intervals holds the per-class emission interval. A zero interval
// means "emit immediately, every time" (identification's default).
type Intervals struct {
	Position       time.Duration
	Velocity       time.Duration
	Identification time.Duration
	Metadata       time.Duration
}

// DefaultIntervals returns spec's default interval table.
func DefaultIntervals() Intervals {
	return Intervals{
		Position:       500 * time.Millisecond,
		Velocity:       1000 * time.Millisecond,
		Identification: 0,
		Metadata:       5000 * time.Millisecond,
	}
}

func (in Intervals) forClass(c tracker.FieldClass) time.Duration {
	switch c {
	case tracker.ClassPosition:
		return in.Position
	case tracker.ClassVelocity:
		return in.Velocity
	case tracker.ClassIdentification:
		return in.Identification
	case tracker.ClassMetadata:
		return in.Metadata
	default:
		return 0
	}
}

type slotKey struct {
	icao  uint32
	class tracker.FieldClass
}

type slot struct {
	lastEmitted time.Time
	pending     *tracker.StateUpdate
}

// Counters is a point-in-time snapshot of the limiter's observability
// metrics, suitable for direct JSON encoding on the control port.
type Counters struct {
	Total          uint64 `json:"total"`
	Immediate      uint64 `json:"immediate"`
	RateLimited    uint64 `json:"rate_limited"`
	PendingNow     int    `json:"pending_now"`
	ActiveAircraft int    `json:"active_aircraft"`
}

// Limiter is the per-(icao, class) rate-limiting slot map. Callers
// (internal/app) construct one only when rate limiting is enabled; when
// it is disabled, the pipeline wires Tracker's onUpdate directly to sinks
// instead.
type Limiter struct {
	mu        sync.Mutex
	intervals Intervals
	slots     map[slotKey]*slot
	emit      func(tracker.StateUpdate)

	total, immediate, rateLimited uint64

	stop chan struct{}
	wg   sync.WaitGroup
}

// New creates a Limiter that calls emit for every update it releases
// (either immediately or once coalesced). Call Start to begin the
// background sweep that fires coalesced updates once their interval
// elapses.
func New(intervals Intervals, emit func(tracker.StateUpdate)) *Limiter {
	return &Limiter{
		intervals: intervals,
		slots:     make(map[slotKey]*slot),
		emit:      emit,
		stop:      make(chan struct{}),
	}
}

// Submit applies the coalescing rule from spec.md §4.6 to one
// StateUpdate: emit now if the slot's interval has elapsed, otherwise
// replace whatever was pending.
func (l *Limiter) Submit(u tracker.StateUpdate) {
	l.submitAt(u, time.Now())
}

func (l *Limiter) submitAt(u tracker.StateUpdate, now time.Time) {
	interval := l.intervals.forClass(u.Class)
	key := slotKey{icao: u.ICAO, class: u.Class}

	l.mu.Lock()
	l.total++

	s, ok := l.slots[key]
	if !ok {
		s = &slot{}
		l.slots[key] = s
	}

	if interval <= 0 || now.Sub(s.lastEmitted) >= interval {
		s.lastEmitted = now
		s.pending = nil
		l.immediate++
		l.mu.Unlock()
		l.emit(u)
		return
	}

	s.pending = &u
	l.rateLimited++
	l.mu.Unlock()
}

// sweepInterval is how often the background goroutine checks for
// coalesced updates whose interval has elapsed. It is much finer than
// any configured class interval so emissions land close to the
// interval boundary.
const sweepInterval = 25 * time.Millisecond

// Start launches the background sweep goroutine. Call Stop to halt it.
func (l *Limiter) Start() {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-l.stop:
				return
			case now := <-ticker.C:
				l.sweep(now)
			}
		}
	}()
}

// Stop halts the background sweep and waits for it to exit.
func (l *Limiter) Stop() {
	close(l.stop)
	l.wg.Wait()
}

func (l *Limiter) sweep(now time.Time) {
	type release struct {
		key slotKey
		u   tracker.StateUpdate
	}
	var releases []release

	l.mu.Lock()
	for key, s := range l.slots {
		if s.pending == nil {
			continue
		}
		interval := l.intervals.forClass(key.class)
		if now.Sub(s.lastEmitted) >= interval {
			releases = append(releases, release{key: key, u: *s.pending})
			s.pending = nil
			s.lastEmitted = now
		}
	}
	l.mu.Unlock()

	for _, r := range releases {
		l.emit(r.u)
	}
}

// Free removes every slot belonging to icao. Call this when the Tracker
// evicts an aircraft so its rate-limiter state doesn't leak.
func (l *Limiter) Free(icao uint32) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key := range l.slots {
		if key.icao == icao {
			delete(l.slots, key)
		}
	}
}

// Snapshot returns the current counters.
func (l *Limiter) Snapshot() Counters {
	l.mu.Lock()
	defer l.mu.Unlock()

	pending := 0
	aircraft := make(map[uint32]struct{})
	for key, s := range l.slots {
		if s.pending != nil {
			pending++
		}
		aircraft[key.icao] = struct{}{}
	}

	return Counters{
		Total:          l.total,
		Immediate:      l.immediate,
		RateLimited:    l.rateLimited,
		PendingNow:     pending,
		ActiveAircraft: len(aircraft),
	}
}
