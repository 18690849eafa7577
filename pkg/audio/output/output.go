// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for pull-based audio playback backends
package output

import "github.com/fmradio/fmradio-go/pkg/audio"

// Source produces exactly len(dst) frames per call. *jitter.Buffer is the
// usual source; the device callback drives it.
type Source interface {
	Tick(dst []audio.Frame)
}

// Output represents an audio output device that pulls from a Source
type Output interface {
	// Open initializes the output device and starts pulling
	Open(sampleRate, channels int) error

	// Close releases output resources
	Close() error
}

// New returns the named backend: "oto", "malgo", "portaudio" or "null"
func New(name string, src Source) (Output, bool) {
	switch name {
	case "oto", "":
		return NewOto(src), true
	case "malgo":
		return NewMalgo(src), true
	case "portaudio":
		return NewPortAudio(src), true
	case "null":
		return NewNull(src), true
	default:
		return nil, false
	}
}
