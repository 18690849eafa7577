// ABOUTME: Relay link quality from ping/pong heartbeats
// ABOUTME: Smooths round-trip time and grades the link as good, degraded or lost
package heartbeat

import (
	"sync"
	"time"
)

const (
	// DegradedRTT is the smoothed round trip above which the link is degraded
	DegradedRTT = 50 * time.Millisecond

	// Samples slower than this are treated as congestion and not smoothed in
	maxSampleRTT = 2 * time.Second

	defaultSmoothing = 0.1
)

// Quality represents link quality
type Quality int

const (
	QualityGood Quality = iota
	QualityDegraded
	QualityLost

	// QualityOff is reported by a tracker that never sends pings
	QualityOff
)

func (q Quality) String() string {
	switch q {
	case QualityGood:
		return "good"
	case QualityDegraded:
		return "degraded"
	case QualityOff:
		return "off"
	default:
		return "lost"
	}
}

// Stats is a snapshot of the link
type Stats struct {
	RTT         time.Duration
	SmoothedRTT time.Duration
	Quality     Quality
	LastPong    time.Time
	Samples     int
	Missed      int
}

// Tracker measures ping/pong round trips on one connection. The relay echoes
// "pong" without a payload, so only one ping is tracked at a time.
type Tracker struct {
	mu        sync.Mutex
	lostAfter time.Duration
	pending   time.Time
	rtt       time.Duration
	smoothed  time.Duration
	quality   Quality
	lastPong  time.Time
	samples   int
	missed    int
	smoothing float64
	off       bool
}

// NewTracker creates a tracker that reports the link lost when no pong
// arrives within lostAfter
func NewTracker(lostAfter time.Duration) *Tracker {
	return &Tracker{
		lostAfter: lostAfter,
		quality:   QualityLost,
		smoothing: defaultSmoothing,
	}
}

// NewDisabledTracker creates a tracker for a connection without heartbeats.
// It always reports QualityOff.
func NewDisabledTracker() *Tracker {
	return &Tracker{
		quality:   QualityOff,
		smoothing: defaultSmoothing,
		off:       true,
	}
}

// PingSent records a ping. A ping still unanswered counts as missed.
func (t *Tracker) PingSent(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.pending.IsZero() {
		t.missed++
	}
	t.pending = now
}

// PongReceived records a pong and returns its round trip. ok is false for
// a pong with no outstanding ping.
func (t *Tracker) PongReceived(now time.Time) (rtt time.Duration, ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.lastPong = now
	if t.off || t.pending.IsZero() {
		return 0, false
	}

	rtt = now.Sub(t.pending)
	t.pending = time.Time{}
	t.rtt = rtt

	if rtt > maxSampleRTT {
		t.quality = QualityDegraded
		return rtt, true
	}

	// First sample seeds the average
	if t.samples == 0 {
		t.smoothed = rtt
	} else {
		t.smoothed += time.Duration(t.smoothing * float64(rtt-t.smoothed))
	}
	t.samples++

	if t.smoothed < DegradedRTT {
		t.quality = QualityGood
	} else {
		t.quality = QualityDegraded
	}

	return rtt, true
}

// CheckQuality marks the link lost when the last pong is too old
func (t *Tracker) CheckQuality(now time.Time) Quality {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.lostAfter > 0 && !t.lastPong.IsZero() && now.Sub(t.lastPong) > t.lostAfter {
		t.quality = QualityLost
	}

	return t.quality
}

// Stats returns a snapshot of the link
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	return Stats{
		RTT:         t.rtt,
		SmoothedRTT: t.smoothed,
		Quality:     t.quality,
		LastPong:    t.lastPong,
		Samples:     t.samples,
		Missed:      t.missed,
	}
}

// Reset forgets all measurements, for a new connection
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pending = time.Time{}
	t.rtt = 0
	t.smoothed = 0
	t.quality = QualityLost
	if t.off {
		t.quality = QualityOff
	}
	t.lastPong = time.Time{}
	t.samples = 0
	t.missed = 0
}
