//go:build portaudio

// ABOUTME: Live input capture via PortAudio
// ABOUTME: Reads the default input device as the broadcast source
package source

import (
	"fmt"
	"sync"

	"github.com/fmradio/fmradio-go/pkg/audio"
	"github.com/gordonklaus/portaudio"
)

// captureBlock is the device read size in frames
const captureBlock = 1024

// Capture reads from the default input device
type Capture struct {
	stream     *portaudio.Stream
	in         []int16
	channels   int
	sampleRate int
	pending    []audio.Frame
	closeOnce  sync.Once
}

// NewCapture opens the default input device
func NewCapture(sampleRate, channels int) (Source, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	c := &Capture{
		in:         make([]int16, captureBlock*channels),
		channels:   channels,
		sampleRate: sampleRate,
	}

	stream, err := portaudio.OpenDefaultStream(channels, 0, float64(sampleRate), captureBlock, c.in)
	if err != nil {
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return nil, fmt.Errorf("failed to start input stream: %w", err)
	}

	c.stream = stream
	return c, nil
}

// Read blocks on the device until frames are filled
func (c *Capture) Read(frames []audio.Frame) (int, error) {
	read := 0
	for read < len(frames) {
		if len(c.pending) > 0 {
			n := copy(frames[read:], c.pending)
			c.pending = c.pending[n:]
			read += n
			continue
		}

		if err := c.stream.Read(); err != nil {
			return read, fmt.Errorf("capture read failed: %w", err)
		}

		block := make([]audio.Frame, 0, captureBlock)
		for i := 0; i+c.channels <= len(c.in); i += c.channels {
			l := audio.Int16ToFloat(c.in[i])
			r := l
			if c.channels > 1 {
				r = audio.Int16ToFloat(c.in[i+1])
			}
			block = append(block, audio.Frame{L: l, R: r})
		}
		c.pending = block
	}
	return read, nil
}

func (c *Capture) SampleRate() int { return c.sampleRate }
func (c *Capture) Title() string   { return "Live Input" }

func (c *Capture) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if c.stream != nil {
			c.stream.Stop()
			err = c.stream.Close()
		}
		portaudio.Terminate()
	})
	return err
}
