// ABOUTME: Audio type definitions
// ABOUTME: Defines the stereo frame, stream format and Int16 <-> float conversion
package audio

import (
	"math"
	"time"
)

const (
	// Default stream format used across the radio
	DefaultSampleRate = 48000
	DefaultChannels   = 2
	DefaultBitDepth   = 16

	// Int16 conversion constants. Decoding divides by 32768, encoding
	// multiplies by 32767 so a full-scale float never overflows int16.
	Int16Divisor    = 32768.0
	Int16Multiplier = 32767.0

	BytesPerSample = 2
)

// Frame is one stereo sample pair in [-1.0, 1.0]
type Frame struct {
	L float32
	R float32
}

// Silence is the zero frame
var Silence = Frame{}

// Scale returns the frame multiplied by g
func (f Frame) Scale(g float32) Frame {
	return Frame{L: f.L * g, R: f.R * g}
}

// Clamp limits both channels to [-1.0, 1.0]
func (f Frame) Clamp() Frame {
	return Frame{L: ClampSample(f.L), R: ClampSample(f.R)}
}

// Format describes an audio stream format
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

// DefaultFormat returns the 48kHz stereo 16-bit PCM format
func DefaultFormat() Format {
	return Format{
		Codec:      "pcm",
		SampleRate: DefaultSampleRate,
		Channels:   DefaultChannels,
		BitDepth:   DefaultBitDepth,
	}
}

// BytesPerFrame returns the size of one interleaved frame in bytes
func (f Format) BytesPerFrame() int {
	return f.Channels * BytesPerSample
}

// FramesToDuration converts a frame count to wall-clock time
func FramesToDuration(frames, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(sampleRate)
}

// FramesToMillis converts a frame count to milliseconds
func FramesToMillis(frames, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(frames) * 1000.0 / float64(sampleRate)
}

// MillisToFrames converts milliseconds to a frame count
func MillisToFrames(ms float64, sampleRate int) int {
	return int(math.Floor(ms * float64(sampleRate) / 1000.0))
}

// ClampSample limits a sample to [-1.0, 1.0]
func ClampSample(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}

// Int16ToFloat converts a signed 16-bit sample to float
func Int16ToFloat(s int16) float32 {
	return float32(float64(s) / Int16Divisor)
}

// FloatToInt16 converts a float sample to signed 16-bit, clamping first
func FloatToInt16(s float32) int16 {
	v := math.Round(float64(ClampSample(s)) * Int16Multiplier)
	return int16(v)
}
