//go:build portaudio

// ABOUTME: PortAudio output implementation
// ABOUTME: Cross-platform audio output using PortAudio callbacks
package output

import (
	"fmt"

	"github.com/fmradio/fmradio-go/pkg/audio"
	"github.com/gordonklaus/portaudio"
)

// PortAudio output implementation
type PortAudio struct {
	src      Source
	stream   *portaudio.Stream
	channels int
	frames   []audio.Frame
}

// NewPortAudio creates a new PortAudio output pulling from src
func NewPortAudio(src Source) Output {
	return &PortAudio{src: src}
}

// Open initializes PortAudio
func (p *PortAudio) Open(sampleRate, channels int) error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	p.channels = channels
	stream, err := portaudio.OpenDefaultStream(0, channels, float64(sampleRate), 0, p.callback)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("failed to open stream: %w", err)
	}

	p.stream = stream
	return stream.Start()
}

func (p *PortAudio) callback(out []int16) {
	n := len(out) / p.channels
	if cap(p.frames) < n {
		p.frames = make([]audio.Frame, n)
	}
	frames := p.frames[:n]
	p.src.Tick(frames)

	for i, f := range frames {
		if p.channels == 1 {
			out[i] = audio.FloatToInt16((f.L + f.R) / 2)
			continue
		}
		out[i*p.channels] = audio.FloatToInt16(f.L)
		out[i*p.channels+1] = audio.FloatToInt16(f.R)
	}
}

// Close releases resources
func (p *PortAudio) Close() error {
	if p.stream != nil {
		if err := p.stream.Stop(); err != nil {
			return err
		}
		if err := p.stream.Close(); err != nil {
			return err
		}
	}
	return portaudio.Terminate()
}
