// ABOUTME: Listener session for the radio
// ABOUTME: Keeps a relay connection alive and feeds received audio into a jitter buffer
package listener

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fmradio/fmradio-go/internal/heartbeat"
	"github.com/fmradio/fmradio-go/pkg/audio"
	"github.com/fmradio/fmradio-go/pkg/audio/decode"
	"github.com/fmradio/fmradio-go/pkg/jitter"
	"github.com/fmradio/fmradio-go/pkg/protocol"
	"github.com/sirupsen/logrus"
)

const (
	DefaultReconnectDelay      = 2 * time.Second
	DefaultErrorReconnectDelay = 3 * time.Second
	DefaultHeartbeatInterval   = 25 * time.Second
)

// Config holds listener configuration
type Config struct {
	// ServerURL of the relay
	ServerURL string

	// Jitter configures the playback buffer
	Jitter jitter.Config

	// Codec of the binary messages, "pcm" or "opus" (default: "pcm")
	Codec string

	// ReconnectDelay after a closed connection (default: 2s)
	ReconnectDelay time.Duration

	// ErrorReconnectDelay after a failed dial (default: 3s)
	ErrorReconnectDelay time.Duration

	// HeartbeatInterval between pings; negative disables (default: 25s)
	HeartbeatInterval time.Duration

	// ResetOnReconnect restores the configured thresholds on every
	// connection instead of only clearing the buffer
	ResetOnReconnect bool

	// OnConnect is called with true on connect and false on disconnect
	OnConnect func(connected bool)

	Logger logrus.FieldLogger
}

// Status is a snapshot of the session
type Status struct {
	Connected  bool
	Server     string
	Connects   int64
	Chunks     int64
	Bytes      int64
	DecodeErrs int64
	Link       heartbeat.Stats
	Buffer     jitter.Status
}

// Listener receives the broadcast and owns the jitter buffer that the
// output device pulls from
type Listener struct {
	config Config
	buf    *jitter.Buffer
	link   *heartbeat.Tracker
	logger logrus.FieldLogger

	mu     sync.RWMutex
	status Status
}

// New creates a listener and its jitter buffer
func New(config Config) (*Listener, error) {
	if config.ServerURL == "" {
		return nil, errors.New("server URL is required")
	}
	if _, err := protocol.WebSocketURL(config.ServerURL); err != nil {
		return nil, err
	}
	if config.Codec == "" {
		config.Codec = "pcm"
	}
	if config.Codec != "pcm" && config.Codec != "opus" {
		return nil, fmt.Errorf("unsupported codec: %s", config.Codec)
	}
	if config.ReconnectDelay <= 0 {
		config.ReconnectDelay = DefaultReconnectDelay
	}
	if config.ErrorReconnectDelay <= 0 {
		config.ErrorReconnectDelay = DefaultErrorReconnectDelay
	}
	if config.HeartbeatInterval == 0 {
		config.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}
	if config.Jitter.Logger == nil {
		config.Jitter.Logger = config.Logger
	}

	buf, err := jitter.New(config.Jitter)
	if err != nil {
		return nil, fmt.Errorf("failed to create jitter buffer: %w", err)
	}

	// Three missed heartbeats mark the link lost
	link := heartbeat.NewDisabledTracker()
	if config.HeartbeatInterval > 0 {
		link = heartbeat.NewTracker(3 * config.HeartbeatInterval)
	}

	return &Listener{
		config: config,
		buf:    buf,
		link:   link,
		logger: config.Logger.WithField("component", "listener"),
		status: Status{Server: config.ServerURL},
	}, nil
}

// Buffer returns the jitter buffer for the output device
func (l *Listener) Buffer() *jitter.Buffer {
	return l.buf
}

// Status returns a snapshot of the session
func (l *Listener) Status() Status {
	l.mu.RLock()
	s := l.status
	l.mu.RUnlock()

	l.link.CheckQuality(time.Now())
	s.Link = l.link.Stats()
	s.Buffer = l.buf.Status()
	return s
}

// Run connects and reconnects until ctx is done
func (l *Listener) Run(ctx context.Context) error {
	for {
		client, err := protocol.Dial(ctx, protocol.Config{
			ServerURL: l.config.ServerURL,
			Logger:    l.config.Logger,
		})

		delay := l.config.ReconnectDelay
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.logger.WithError(err).Warnf("Connection failed, retrying in %v", l.config.ErrorReconnectDelay)
			delay = l.config.ErrorReconnectDelay
		} else {
			if err := l.serve(ctx, client); err != nil {
				l.logger.WithError(err).Warn("Connection lost")
			}
			if ctx.Err() != nil {
				return nil
			}
			l.logger.Infof("Disconnected, reconnecting in %v", delay)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

// serve handles one connection until it closes or ctx is done
func (l *Listener) serve(ctx context.Context, client *protocol.Client) error {
	defer client.Close()

	// A new connection starts from an empty buffer
	if l.config.ResetOnReconnect {
		l.buf.Reset()
	} else {
		l.buf.Clear()
	}
	l.link.Reset()

	var decoder decode.Decoder
	if l.config.Codec == "opus" {
		d, err := decode.NewOpus(audio.Format{
			Codec:      "opus",
			SampleRate: l.buf.SampleRate(),
			Channels:   audio.DefaultChannels,
			BitDepth:   audio.DefaultBitDepth,
		})
		if err != nil {
			return fmt.Errorf("failed to create decoder: %w", err)
		}
		defer d.Close()
		decoder = d
	}

	l.setConnected(true)
	defer l.setConnected(false)

	l.logger.WithField("server", l.config.ServerURL).Info("Connected to relay")

	if l.config.HeartbeatInterval > 0 {
		go l.heartbeat(ctx, client)
	}

	for {
		select {
		case msg := <-client.Messages:
			if msg.IsAudio() {
				l.handleAudio(decoder, msg.Data)
			} else {
				l.handleControl(msg.Control)
			}

		case <-client.Done():
			return client.Err()

		case <-ctx.Done():
			return nil
		}
	}
}

// handleAudio ingests one binary message
func (l *Listener) handleAudio(decoder decode.Decoder, data []byte) {
	l.mu.Lock()
	l.status.Chunks++
	l.status.Bytes += int64(len(data))
	l.mu.Unlock()

	if decoder == nil {
		l.buf.Ingest(data)
		return
	}

	frames, err := decoder.Decode(data)
	if err != nil {
		l.mu.Lock()
		l.status.DecodeErrs++
		l.mu.Unlock()
		l.logger.WithError(err).Debug("Decode error")
		return
	}
	l.buf.IngestFrames(frames)
}

// handleControl processes a text control message
func (l *Listener) handleControl(ctrl protocol.Control) {
	switch ctrl {
	case protocol.ControlClear:
		l.logger.Info("Broadcaster requested buffer clear")
		l.buf.Clear()
	case protocol.ControlPong:
		if rtt, ok := l.link.PongReceived(time.Now()); ok {
			l.logger.WithField("rtt", rtt).Debug("Heartbeat")
		}
	}
}

// heartbeat pings the relay until the connection or ctx ends
func (l *Listener) heartbeat(ctx context.Context, client *protocol.Client) {
	ticker := time.NewTicker(l.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.link.PingSent(time.Now())
			if err := client.SendControl(protocol.ControlPing); err != nil {
				l.logger.WithError(err).Debug("Heartbeat failed")
				return
			}
		case <-client.Done():
			return
		case <-ctx.Done():
			return
		}
	}
}

func (l *Listener) setConnected(connected bool) {
	l.mu.Lock()
	l.status.Connected = connected
	if connected {
		l.status.Connects++
	}
	l.mu.Unlock()

	if l.config.OnConnect != nil {
		l.config.OnConnect(connected)
	}
}
