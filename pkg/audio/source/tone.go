// ABOUTME: Test tone generator for audio source
// ABOUTME: Generates a sine wave for testing without any input file
package source

import (
	"fmt"
	"math"
	"sync"

	"github.com/fmradio/fmradio-go/pkg/audio"
)

// DefaultToneFrequency is A4
const DefaultToneFrequency = 440.0

// TestTone generates a sine test tone at half volume
type TestTone struct {
	frameIndex uint64
	mu         sync.Mutex
	frequency  float64
	sampleRate int
}

// NewTestTone creates a new test tone generator
func NewTestTone(frequency float64, sampleRate int) *TestTone {
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}
	return &TestTone{
		frequency:  frequency,
		sampleRate: sampleRate,
	}
}

func (s *TestTone) Read(frames []audio.Frame) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range frames {
		t := float64(s.frameIndex+uint64(i)) / float64(s.sampleRate)
		v := float32(0.5 * math.Sin(2*math.Pi*s.frequency*t))
		frames[i] = audio.Frame{L: v, R: v}
	}
	s.frameIndex += uint64(len(frames))

	return len(frames), nil
}

func (s *TestTone) SampleRate() int { return s.sampleRate }
func (s *TestTone) Title() string   { return fmt.Sprintf("Test Tone (%.0f Hz)", s.frequency) }
func (s *TestTone) Close() error    { return nil }
