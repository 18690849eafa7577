// ABOUTME: Broadcaster session for the radio
// ABOUTME: Reads a source, encodes fixed-size chunks and sends them to the relay in real time
package broadcaster

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fmradio/fmradio-go/pkg/audio"
	"github.com/fmradio/fmradio-go/pkg/audio/encode"
	"github.com/fmradio/fmradio-go/pkg/audio/source"
	"github.com/fmradio/fmradio-go/pkg/protocol"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultChunkFrames matches the browser capture block size
	DefaultChunkFrames = 4096
)

// Config holds broadcaster configuration
type Config struct {
	// ServerURL of the relay
	ServerURL string

	// Source of the broadcast audio
	Source source.Source

	// ChunkFrames per binary message for PCM (default: 4096). Opus always
	// sends 20ms packets.
	ChunkFrames int

	// Codec, "pcm" or "opus" (default: "pcm")
	Codec string

	// SampleRate of the stream (default: 48000)
	SampleRate int

	// Unpaced sends as fast as the source delivers
	Unpaced bool

	Logger logrus.FieldLogger
}

// Stats tracks what was sent
type Stats struct {
	Chunks int64
	Frames int64
	Bytes  int64
}

// Broadcaster streams one source to the relay
type Broadcaster struct {
	config  Config
	source  source.Source
	encoder encode.Encoder
	chunk   int
	logger  logrus.FieldLogger

	mu    sync.RWMutex
	stats Stats
}

// New creates a broadcaster, resampling the source to the stream rate
func New(config Config) (*Broadcaster, error) {
	if config.ServerURL == "" {
		return nil, errors.New("server URL is required")
	}
	if config.Source == nil {
		return nil, errors.New("source is required")
	}
	if config.ChunkFrames <= 0 {
		config.ChunkFrames = DefaultChunkFrames
	}
	if config.Codec == "" {
		config.Codec = "pcm"
	}
	if config.SampleRate <= 0 {
		config.SampleRate = audio.DefaultSampleRate
	}
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}

	enc, err := encode.New(audio.Format{
		Codec:      config.Codec,
		SampleRate: config.SampleRate,
		Channels:   audio.DefaultChannels,
		BitDepth:   audio.DefaultBitDepth,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create encoder: %w", err)
	}

	chunk := config.ChunkFrames
	if n := enc.FrameSize(); n > 0 {
		chunk = n
	}

	return &Broadcaster{
		config:  config,
		source:  source.NewResampled(config.Source, config.SampleRate),
		encoder: enc,
		chunk:   chunk,
		logger:  config.Logger.WithField("component", "broadcaster"),
	}, nil
}

// ChunkFrames returns the frames sent per message
func (b *Broadcaster) ChunkFrames() int {
	return b.chunk
}

// Stats returns what has been sent so far
func (b *Broadcaster) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.stats
}

// Run connects, tells listeners to clear, and streams until the source
// ends, the connection drops or ctx is done. A source that ends returns nil.
func (b *Broadcaster) Run(ctx context.Context) error {
	client, err := protocol.Dial(ctx, protocol.Config{
		ServerURL: b.config.ServerURL,
		Logger:    b.config.Logger,
	})
	if err != nil {
		return err
	}
	defer client.Close()

	// Listeners drop whatever they buffered from a previous broadcast
	if err := client.SendControl(protocol.ControlClear); err != nil {
		return fmt.Errorf("failed to send clear: %w", err)
	}

	b.logger.WithFields(logrus.Fields{
		"source": b.source.Title(),
		"codec":  b.config.Codec,
		"frames": b.chunk,
	}).Info("Broadcast started")

	frames := make([]audio.Frame, b.chunk)

	var ticker *time.Ticker
	if !b.config.Unpaced {
		ticker = time.NewTicker(audio.FramesToDuration(b.chunk, b.config.SampleRate))
		defer ticker.Stop()
	}

	for {
		n, readErr := b.readChunk(frames)
		if n > 0 {
			if err := b.send(client, frames, n); err != nil {
				return err
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				b.logger.Info("Source ended")
				return nil
			}
			return fmt.Errorf("source read failed: %w", readErr)
		}

		if ticker == nil {
			select {
			case <-ctx.Done():
				return nil
			case <-client.Done():
				return connectionLost(client)
			default:
			}
			continue
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		case <-client.Done():
			return connectionLost(client)
		}
	}
}

// ErrConnectionLost is returned when the relay closes the connection
var ErrConnectionLost = errors.New("relay connection lost")

func connectionLost(client *protocol.Client) error {
	if err := client.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionLost, err)
	}
	return ErrConnectionLost
}

// readChunk fills frames from the source, stopping early only on error
func (b *Broadcaster) readChunk(frames []audio.Frame) (int, error) {
	total := 0
	for total < len(frames) {
		n, err := b.source.Read(frames[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
	}
	return total, nil
}

// send encodes and sends one chunk. A short final chunk is padded with
// silence when the codec needs a fixed frame size.
func (b *Broadcaster) send(client *protocol.Client, frames []audio.Frame, n int) error {
	if n < len(frames) && b.encoder.FrameSize() > 0 {
		for i := n; i < len(frames); i++ {
			frames[i] = audio.Silence
		}
		n = len(frames)
	}

	data, err := b.encoder.Encode(frames[:n])
	if err != nil {
		return fmt.Errorf("encode failed: %w", err)
	}
	if err := client.SendAudio(data); err != nil {
		return err
	}

	b.mu.Lock()
	b.stats.Chunks++
	b.stats.Frames += int64(n)
	b.stats.Bytes += int64(len(data))
	chunks := b.stats.Chunks
	b.mu.Unlock()

	if chunks%100 == 0 {
		b.logger.WithField("chunks", chunks).Debug("Broadcasting")
	}
	return nil
}

// Close releases the encoder and the source
func (b *Broadcaster) Close() error {
	encErr := b.encoder.Close()
	if err := b.source.Close(); err != nil {
		return err
	}
	return encErr
}
