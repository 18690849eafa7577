// ABOUTME: Fill-level thresholds for the jitter buffer
// ABOUTME: Target/min/max fill in frames with millisecond conversion
package jitter

import (
	"errors"
	"fmt"

	"github.com/fmradio/fmradio-go/pkg/audio"
)

const (
	// Defaults match the browser worklet: 100ms target, 50ms min, 200ms max
	DefaultTargetMs = 100
	DefaultMinMs    = 50
	DefaultMaxMs    = 200
)

var (
	// ErrInvalidThresholds is returned when min <= target <= max does not hold
	ErrInvalidThresholds = errors.New("invalid buffer thresholds")
)

// Thresholds holds fill levels in frames
type Thresholds struct {
	Target int
	Min    int
	Max    int
}

// FromMillis builds thresholds from millisecond values at a sample rate
func FromMillis(sampleRate int, targetMs, minMs, maxMs float64) Thresholds {
	return Thresholds{
		Target: audio.MillisToFrames(targetMs, sampleRate),
		Min:    audio.MillisToFrames(minMs, sampleRate),
		Max:    audio.MillisToFrames(maxMs, sampleRate),
	}
}

// DefaultThresholds returns the 100/50/200ms thresholds at a sample rate
func DefaultThresholds(sampleRate int) Thresholds {
	return FromMillis(sampleRate, DefaultTargetMs, DefaultMinMs, DefaultMaxMs)
}

// IsZero reports whether no threshold was set
func (t Thresholds) IsZero() bool {
	return t == Thresholds{}
}

// Validate checks 0 <= min <= target <= max and target > 0
func (t Thresholds) Validate() error {
	if t.Min < 0 || t.Target <= 0 || t.Max <= 0 {
		return fmt.Errorf("%w: negative or empty (min=%d target=%d max=%d)",
			ErrInvalidThresholds, t.Min, t.Target, t.Max)
	}
	if t.Min > t.Target || t.Target > t.Max {
		return fmt.Errorf("%w: need min <= target <= max (min=%d target=%d max=%d)",
			ErrInvalidThresholds, t.Min, t.Target, t.Max)
	}
	return nil
}

// Millis returns the thresholds in milliseconds at a sample rate
func (t Thresholds) Millis(sampleRate int) (target, min, max float64) {
	return audio.FramesToMillis(t.Target, sampleRate),
		audio.FramesToMillis(t.Min, sampleRate),
		audio.FramesToMillis(t.Max, sampleRate)
}
