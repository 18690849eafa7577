// ABOUTME: Adaptive jitter buffer and playback scheduler
// ABOUTME: Ingests PCM chunks from the network and emits fixed-size render ticks
package jitter

import (
	"fmt"
	"sync"

	"github.com/fmradio/fmradio-go/pkg/audio"
	"github.com/sirupsen/logrus"
)

const (
	DefaultFadeCoefficient = 0.95
	DefaultGrowEvery       = 5
	DefaultGrowStepMs      = 10
)

// State is the playback state of the buffer
type State int

const (
	// Buffering emits silence until the target fill is reached
	Buffering State = iota
	// Playing emits buffered frames in arrival order
	Playing
)

func (s State) String() string {
	switch s {
	case Buffering:
		return "buffering"
	case Playing:
		return "playing"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Config configures a jitter buffer
type Config struct {
	// SampleRate of the stream (default: 48000)
	SampleRate int

	// Channels of ingested PCM chunks, 1 or 2 (default: 2)
	Channels int

	// Thresholds in frames (default: 100/50/200ms)
	Thresholds Thresholds

	// FadeOnUnderrun decays the last emitted frame instead of hard silence
	FadeOnUnderrun bool

	// FadeCoefficient is the per-frame decay factor, in (0, 1) (default: 0.95)
	FadeCoefficient float32

	// GrowEvery raises the target on every Nth underrun; negative disables
	// (default: 5)
	GrowEvery int

	// GrowStep is the target increment in frames (default: 10ms)
	GrowStep int

	// DecayAfterTicks lowers the target by GrowStep after that many
	// consecutive underrun-free playing ticks, never below the configured
	// target. Zero disables decay.
	DecayAfterTicks int

	// StatusEvery invokes OnStatus every N ticks. Zero disables.
	StatusEvery int

	// OnStatus receives periodic status from the render goroutine and must not block
	OnStatus func(Status)

	// Logger for buffer events (default: logrus standard logger)
	Logger logrus.FieldLogger
}

// DefaultConfig returns the recommended configuration (fade on underrun,
// adaptive growth every 5th underrun)
func DefaultConfig(sampleRate int) Config {
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}
	return Config{
		SampleRate:      sampleRate,
		Channels:        audio.DefaultChannels,
		Thresholds:      DefaultThresholds(sampleRate),
		FadeOnUnderrun:  true,
		FadeCoefficient: DefaultFadeCoefficient,
		GrowEvery:       DefaultGrowEvery,
		GrowStep:        audio.MillisToFrames(DefaultGrowStepMs, sampleRate),
	}
}

// Status is the diagnostic view of the buffer
type Status struct {
	BufferedMs float64
	State      State
	TargetMs   float64
	BelowMin   bool
	Underruns  int64
}

// Stats tracks buffer counters
type Stats struct {
	Ticks           int64
	FramesIngested  int64
	FramesPlayed    int64
	SilenceFrames   int64
	Underruns       int64
	OverflowDropped int64
	MalformedChunks int64
	Growths         int64
	Decays          int64
	Clears          int64
}

// Buffer is a per-session jitter buffer. Ingest is called from the network
// goroutine and Tick from the audio device; both take the same mutex.
type Buffer struct {
	mu sync.Mutex

	cfg        Config
	baseline   Thresholds
	thresholds Thresholds

	store  []audio.Frame
	cursor int
	state  State
	last   audio.Frame
	gain   float32

	healthyTicks int
	stats        Stats

	logger logrus.FieldLogger
}

// New creates a jitter buffer, filling zero config fields with defaults
func New(cfg Config) (*Buffer, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = audio.DefaultSampleRate
	}
	if cfg.Channels <= 0 {
		cfg.Channels = audio.DefaultChannels
	}
	if cfg.Channels > 2 {
		return nil, fmt.Errorf("unsupported channel count: %d (supported: 1, 2)", cfg.Channels)
	}
	if cfg.Thresholds.IsZero() {
		cfg.Thresholds = DefaultThresholds(cfg.SampleRate)
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}
	if cfg.FadeCoefficient == 0 {
		cfg.FadeCoefficient = DefaultFadeCoefficient
	}
	if cfg.FadeCoefficient < 0 || cfg.FadeCoefficient >= 1 {
		return nil, fmt.Errorf("fade coefficient must be in (0, 1), got %f", cfg.FadeCoefficient)
	}
	if cfg.GrowEvery == 0 {
		cfg.GrowEvery = DefaultGrowEvery
	}
	if cfg.GrowStep <= 0 {
		cfg.GrowStep = audio.MillisToFrames(DefaultGrowStepMs, cfg.SampleRate)
		if cfg.GrowStep == 0 {
			cfg.GrowStep = 1
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}

	return &Buffer{
		cfg:        cfg,
		baseline:   cfg.Thresholds,
		thresholds: cfg.Thresholds,
		store:      make([]audio.Frame, 0, cfg.Thresholds.Max+cfg.Thresholds.Target),
		state:      Buffering,
		gain:       1.0,
		logger:     cfg.Logger.WithField("component", "jitter"),
	}, nil
}

// Ingest converts an interleaved Int16 PCM chunk into frames and appends
// them. A trailing partial frame is dropped and counted. Returns the number
// of frames appended.
func (b *Buffer) Ingest(chunk []byte) int {
	b.mu.Lock()

	before := len(b.store)
	var droppedBytes int
	b.store, droppedBytes = audio.AppendPCM16(b.store, chunk, b.cfg.Channels)
	added := len(b.store) - before

	if droppedBytes > 0 {
		b.stats.MalformedChunks++
	}
	b.stats.FramesIngested += int64(added)
	overflow := b.enforceMaxLocked()
	b.maybeStartLocked()

	b.mu.Unlock()

	if droppedBytes > 0 {
		b.logger.WithFields(logrus.Fields{
			"chunk_bytes":   len(chunk),
			"dropped_bytes": droppedBytes,
		}).Debug("Dropped trailing partial frame from misaligned chunk")
	}
	if overflow > 0 {
		b.logger.WithField("dropped_frames", overflow).Debug("Buffer overflow, dropped oldest frames")
	}

	return added
}

// IngestFrames appends already decoded frames
func (b *Buffer) IngestFrames(frames []audio.Frame) int {
	b.mu.Lock()

	b.store = append(b.store, frames...)
	b.stats.FramesIngested += int64(len(frames))
	overflow := b.enforceMaxLocked()
	b.maybeStartLocked()

	b.mu.Unlock()

	if overflow > 0 {
		b.logger.WithField("dropped_frames", overflow).Debug("Buffer overflow, dropped oldest frames")
	}

	return len(frames)
}

// enforceMaxLocked drops oldest frames down to the target once fill exceeds
// max, and keeps the store itself within max frames
func (b *Buffer) enforceMaxLocked() int {
	dropped := 0
	if fill := len(b.store) - b.cursor; fill > b.thresholds.Max {
		dropped = fill - b.thresholds.Target
		b.cursor += dropped
		b.stats.OverflowDropped += int64(dropped)
	}
	if len(b.store) > b.thresholds.Max {
		b.compactLocked()
	}
	return dropped
}

// compactLocked drops the consumed prefix [0, cursor)
func (b *Buffer) compactLocked() {
	if b.cursor == 0 {
		return
	}
	n := copy(b.store, b.store[b.cursor:])
	b.store = b.store[:n]
	b.cursor = 0
}

func (b *Buffer) maybeStartLocked() {
	if b.state == Buffering && len(b.store)-b.cursor >= b.thresholds.Target {
		b.state = Playing
		b.healthyTicks = 0
	}
}

// Tick fills dst with exactly len(dst) frames of output. It never blocks on
// anything but the buffer mutex.
func (b *Buffer) Tick(dst []audio.Frame) {
	if len(dst) == 0 {
		return
	}

	b.mu.Lock()

	b.maybeStartLocked()

	underran := false
	grew := false
	for i := range dst {
		if b.state == Playing && b.cursor < len(b.store) {
			b.last = b.store[b.cursor]
			b.cursor++
			b.stats.FramesPlayed++
		} else {
			if b.cfg.FadeOnUnderrun {
				b.last = b.last.Scale(b.cfg.FadeCoefficient)
			} else {
				b.last = audio.Silence
			}
			b.stats.SilenceFrames++
			if b.state == Playing {
				b.state = Buffering
				underran = true
				if b.recordUnderrunLocked() {
					grew = true
				}
			}
		}
		dst[i] = b.last.Scale(b.gain).Clamp()
	}

	if b.cursor >= b.thresholds.Target {
		b.compactLocked()
	}

	decayed := false
	if !underran && b.state == Playing {
		decayed = b.maybeDecayLocked()
	} else {
		b.healthyTicks = 0
	}

	b.stats.Ticks++
	var status Status
	notify := b.cfg.OnStatus != nil && b.cfg.StatusEvery > 0 && b.stats.Ticks%int64(b.cfg.StatusEvery) == 0
	if notify {
		status = b.statusLocked()
	}
	target := b.thresholds.Target
	underruns := b.stats.Underruns

	b.mu.Unlock()

	if grew {
		b.logger.WithFields(logrus.Fields{
			"underruns":    underruns,
			"target_ms":    audio.FramesToMillis(target, b.cfg.SampleRate),
			"target_frame": target,
		}).Info("Raised buffer target after repeated underruns")
	}
	if decayed {
		b.logger.WithField("target_ms", audio.FramesToMillis(target, b.cfg.SampleRate)).
			Debug("Lowered buffer target after sustained playback")
	}
	if notify {
		b.cfg.OnStatus(status)
	}
}

// TickN returns a newly allocated tick of frameCount frames
func (b *Buffer) TickN(frameCount int) []audio.Frame {
	if frameCount <= 0 {
		return nil
	}
	dst := make([]audio.Frame, frameCount)
	b.Tick(dst)
	return dst
}

// recordUnderrunLocked counts an underrun and grows the target on every
// GrowEvery-th one. Reports whether the target grew.
func (b *Buffer) recordUnderrunLocked() bool {
	b.stats.Underruns++
	b.healthyTicks = 0

	if b.cfg.GrowEvery < 0 || b.stats.Underruns%int64(b.cfg.GrowEvery) != 0 {
		return false
	}
	if b.thresholds.Target >= b.thresholds.Max {
		return false
	}

	b.thresholds.Target += b.cfg.GrowStep
	if b.thresholds.Target > b.thresholds.Max {
		b.thresholds.Target = b.thresholds.Max
	}
	b.stats.Growths++
	return true
}

func (b *Buffer) maybeDecayLocked() bool {
	if b.cfg.DecayAfterTicks <= 0 {
		return false
	}
	b.healthyTicks++
	if b.healthyTicks < b.cfg.DecayAfterTicks || b.thresholds.Target <= b.baseline.Target {
		return false
	}

	b.healthyTicks = 0
	b.thresholds.Target -= b.cfg.GrowStep
	if b.thresholds.Target < b.baseline.Target {
		b.thresholds.Target = b.baseline.Target
	}
	b.stats.Decays++
	return true
}

// Clear discards buffered audio and returns to Buffering. Thresholds and
// counters are kept.
func (b *Buffer) Clear() {
	b.mu.Lock()
	b.clearLocked()
	b.stats.Clears++
	b.mu.Unlock()

	b.logger.Debug("Buffer cleared")
}

func (b *Buffer) clearLocked() {
	b.store = b.store[:0]
	b.cursor = 0
	b.state = Buffering
	b.last = audio.Silence
	b.healthyTicks = 0
}

// Reset clears the buffer and restores the configured thresholds and counters
func (b *Buffer) Reset() {
	b.mu.Lock()
	b.clearLocked()
	b.thresholds = b.baseline
	b.stats = Stats{}
	b.mu.Unlock()

	b.logger.Debug("Buffer reset to configured thresholds")
}

// SetGain sets the output gain applied before clamping (0.0 mutes)
func (b *Buffer) SetGain(gain float32) {
	if gain < 0 {
		gain = 0
	}
	b.mu.Lock()
	b.gain = gain
	b.mu.Unlock()
}

// State returns the current playback state. Ingest starts playback as soon
// as fill reaches Target, so Playing may be reported before the first frame
// is rendered.
func (b *Buffer) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Thresholds returns the current (possibly grown) thresholds
func (b *Buffer) Thresholds() Thresholds {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.thresholds
}

// Fill returns the number of buffered but unplayed frames
func (b *Buffer) Fill() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.store) - b.cursor
}

// Len returns the store length including the consumed prefix
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.store)
}

// Cursor returns the playback position within the store
func (b *Buffer) Cursor() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cursor
}

// SampleRate returns the configured sample rate
func (b *Buffer) SampleRate() int {
	return b.cfg.SampleRate
}

// Status returns the diagnostic status tuple
func (b *Buffer) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.statusLocked()
}

func (b *Buffer) statusLocked() Status {
	fill := len(b.store) - b.cursor
	return Status{
		BufferedMs: audio.FramesToMillis(fill, b.cfg.SampleRate),
		State:      b.state,
		TargetMs:   audio.FramesToMillis(b.thresholds.Target, b.cfg.SampleRate),
		BelowMin:   fill < b.thresholds.Min,
		Underruns:  b.stats.Underruns,
	}
}

// Stats returns a snapshot of the buffer counters
func (b *Buffer) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}
