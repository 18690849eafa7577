// ABOUTME: Null output that drives the source from a wall-clock ticker
// ABOUTME: Used for headless listeners and tests where no sound card exists
package output

import (
	"sync"
	"time"

	"github.com/fmradio/fmradio-go/pkg/audio"
)

// DefaultNullPeriod is the render period of the null output
const DefaultNullPeriod = 10 * time.Millisecond

// Null discards audio but ticks its source at the real-time rate
type Null struct {
	src    Source
	period time.Duration

	mu       sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup
	rendered int64
}

// NewNull creates a null output pulling from src
func NewNull(src Source) Output {
	return &Null{src: src, period: DefaultNullPeriod}
}

// Open starts the render loop
func (n *Null) Open(sampleRate, channels int) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.stopChan != nil {
		return nil
	}

	framesPerTick := audio.MillisToFrames(float64(n.period.Milliseconds()), sampleRate)
	if framesPerTick <= 0 {
		framesPerTick = 1
	}

	n.stopChan = make(chan struct{})
	n.wg.Add(1)
	go n.loop(n.stopChan, make([]audio.Frame, framesPerTick))
	return nil
}

func (n *Null) loop(stop <-chan struct{}, frames []audio.Frame) {
	defer n.wg.Done()

	ticker := time.NewTicker(n.period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			n.src.Tick(frames)
			n.mu.Lock()
			n.rendered += int64(len(frames))
			n.mu.Unlock()
		}
	}
}

// Rendered returns the number of frames pulled so far
func (n *Null) Rendered() int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.rendered
}

// Close stops the render loop
func (n *Null) Close() error {
	n.mu.Lock()
	stop := n.stopChan
	n.stopChan = nil
	n.mu.Unlock()

	if stop != nil {
		close(stop)
		n.wg.Wait()
	}
	return nil
}
