// ABOUTME: Oto-based audio output implementation
// ABOUTME: Plays 16-bit PCM pulled from the jitter buffer through the oto library
package output

import (
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/sirupsen/logrus"
)

// Oto output implementation using oto library
type Oto struct {
	src        Source
	otoCtx     *oto.Context
	player     *oto.Player
	reader     *TickReader
	sampleRate int
	channels   int
	logger     logrus.FieldLogger
}

// NewOto creates a new Oto output pulling from src
func NewOto(src Source) Output {
	return &Oto{
		src:    src,
		logger: logrus.WithField("output", "oto"),
	}
}

// Open initializes the output device
func (o *Oto) Open(sampleRate, channels int) error {
	// oto only allows one context per process
	if o.otoCtx != nil {
		if o.sampleRate != sampleRate || o.channels != channels {
			o.logger.Warnf("Format change (%dHz %dch -> %dHz %dch) not supported by oto, keeping existing context",
				o.sampleRate, o.channels, sampleRate, channels)
		}
		return nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatSignedInt16LE,
		// Small device buffer; latency is managed by the jitter buffer
		BufferSize: 20 * time.Millisecond,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}

	<-readyChan

	o.otoCtx = ctx
	o.sampleRate = sampleRate
	o.channels = channels

	o.reader = NewTickReader(o.src, channels)
	o.player = o.otoCtx.NewPlayer(o.reader)
	o.player.Play()

	o.logger.Infof("Audio output initialized: %dHz, %d channels", sampleRate, channels)

	return nil
}

// Close releases output resources
func (o *Oto) Close() error {
	if o.reader != nil {
		o.reader.Close()
	}
	if o.player != nil {
		o.player.Pause()
		if err := o.player.Close(); err != nil {
			o.logger.Warnf("Player close error: %v", err)
		}
		o.player = nil
	}
	if o.otoCtx != nil {
		if err := o.otoCtx.Suspend(); err != nil {
			return fmt.Errorf("failed to suspend oto context: %w", err)
		}
	}
	return nil
}
