// ABOUTME: io.Reader adapter over a tick source
// ABOUTME: Lets reader-driven players such as oto pull 16-bit PCM from the jitter buffer
package output

import (
	"errors"
	"sync"

	"github.com/fmradio/fmradio-go/pkg/audio"
)

var errReaderClosed = errors.New("tick reader closed")

// TickReader renders a Source as little-endian interleaved Int16 bytes.
// Every Read ticks the source for as many frames as the caller asked for;
// bytes of a frame that did not fit are returned by the next Read.
type TickReader struct {
	src      Source
	channels int

	mu      sync.Mutex
	frames  []audio.Frame
	pcm     []byte
	pending []byte
	closed  bool
}

// NewTickReader creates a reader producing channels-wide PCM
func NewTickReader(src Source, channels int) *TickReader {
	if channels <= 0 {
		channels = audio.DefaultChannels
	}
	return &TickReader{src: src, channels: channels}
}

// Read never blocks on the network; it returns silence when the source has none
func (r *TickReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return 0, errReaderClosed
	}
	if len(p) == 0 {
		return 0, nil
	}

	if len(r.pending) == 0 {
		frameBytes := r.channels * audio.BytesPerSample
		n := (len(p) + frameBytes - 1) / frameBytes

		if cap(r.frames) < n {
			r.frames = make([]audio.Frame, n)
			r.pcm = make([]byte, n*frameBytes)
		}
		frames := r.frames[:n]
		r.src.Tick(frames)
		written := audio.PutPCM16(r.pcm[:n*frameBytes], frames, r.channels)
		r.pending = r.pcm[:written]
	}

	copied := copy(p, r.pending)
	r.pending = r.pending[copied:]
	return copied, nil
}

// Close makes further reads fail so the player goroutine exits
func (r *TickReader) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return nil
}
