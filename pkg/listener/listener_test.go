package listener

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fmradio/fmradio-go/internal/heartbeat"
	"github.com/fmradio/fmradio-go/internal/relay"
	"github.com/fmradio/fmradio-go/pkg/audio"
	"github.com/fmradio/fmradio-go/pkg/audio/encode"
	"github.com/fmradio/fmradio-go/pkg/jitter"
	"github.com/fmradio/fmradio-go/pkg/protocol"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// startSession runs a relay, a listener against it and a sender client
func startSession(t *testing.T, config Config) (*Listener, *protocol.Client) {
	t.Helper()

	r, err := relay.NewServer(relay.Config{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("relay failed: %v", err)
	}
	ts := httptest.NewServer(r.Handler())
	t.Cleanup(func() {
		r.Close()
		ts.Close()
	})

	config.ServerURL = ts.URL
	config.Logger = quietLogger()
	l, err := New(config)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	waitFor(t, "listener connection", func() bool { return l.Status().Connected })

	sender, err := protocol.Dial(context.Background(), protocol.Config{ServerURL: ts.URL, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("sender dial failed: %v", err)
	}
	t.Cleanup(sender.Close)

	waitFor(t, "relay registration", func() bool { return r.ClientCount() == 2 })
	return l, sender
}

func TestNewValidation(t *testing.T) {
	tests := []struct {
		name   string
		config Config
	}{
		{"empty url", Config{}},
		{"bad scheme", Config{ServerURL: "ftp://localhost:10000"}},
		{"bad codec", Config{ServerURL: "localhost:10000", Codec: "mp3"}},
		{"bad thresholds", Config{
			ServerURL: "localhost:10000",
			Jitter:    jitter.Config{Thresholds: jitter.Thresholds{Target: 100, Min: 200, Max: 300}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.config.Logger = quietLogger()
			if _, err := New(tt.config); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNewDefaults(t *testing.T) {
	l, err := New(Config{ServerURL: "localhost:10000", Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if l.config.Codec != "pcm" {
		t.Errorf("expected pcm codec, got %s", l.config.Codec)
	}
	if l.config.ReconnectDelay != DefaultReconnectDelay {
		t.Errorf("expected reconnect delay %v, got %v", DefaultReconnectDelay, l.config.ReconnectDelay)
	}
	if l.config.ErrorReconnectDelay != DefaultErrorReconnectDelay {
		t.Errorf("expected error reconnect delay %v, got %v", DefaultErrorReconnectDelay, l.config.ErrorReconnectDelay)
	}
	if l.Buffer() == nil {
		t.Fatal("expected a jitter buffer")
	}
	if l.Buffer().State() != jitter.Buffering {
		t.Errorf("expected buffering, got %v", l.Buffer().State())
	}
}

func TestReceivesPCM(t *testing.T) {
	l, sender := startSession(t, Config{HeartbeatInterval: -1})

	frames := make([]audio.Frame, 100)
	for i := range frames {
		frames[i] = audio.Frame{L: 0.25, R: -0.25}
	}
	if err := sender.SendAudio(audio.EncodePCM16(frames, 2)); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	waitFor(t, "ingest", func() bool { return l.Buffer().Fill() == 100 })

	s := l.Status()
	if s.Chunks != 1 || s.Bytes != 400 {
		t.Errorf("expected 1 chunk of 400 bytes, got %d chunks %d bytes", s.Chunks, s.Bytes)
	}
}

func TestClearControl(t *testing.T) {
	l, sender := startSession(t, Config{HeartbeatInterval: -1})

	if err := sender.SendAudio(make([]byte, 400)); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	waitFor(t, "ingest", func() bool { return l.Buffer().Fill() == 100 })

	if err := sender.SendControl(protocol.ControlClear); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	waitFor(t, "clear", func() bool { return l.Buffer().Len() == 0 })

	if got := l.Buffer().Stats().Clears; got < 2 {
		t.Errorf("expected connect and control clears, got %d", got)
	}
}

func TestClearDiscardsOnlyEarlierAudio(t *testing.T) {
	l, sender := startSession(t, Config{HeartbeatInterval: -1})

	for i := 0; i < 50; i++ {
		if err := sender.SendAudio(make([]byte, 10*4)); err != nil {
			t.Fatalf("stale send %d failed: %v", i, err)
		}
	}
	if err := sender.SendControl(protocol.ControlClear); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := sender.SendAudio(make([]byte, 4)); err != nil {
			t.Fatalf("fresh send %d failed: %v", i, err)
		}
	}

	waitFor(t, "all chunks", func() bool { return l.Status().Chunks == 55 })

	if got := l.Buffer().Fill(); got != 5 {
		t.Errorf("expected only the 5 frames sent after clear, got %d", got)
	}
	if got := l.Buffer().Stats().Clears; got != 2 {
		t.Errorf("expected connect and control clears, got %d", got)
	}
}

func TestHeartbeatDisabledReportsOff(t *testing.T) {
	l, _ := startSession(t, Config{HeartbeatInterval: -1})

	if q := l.Status().Link.Quality; q != heartbeat.QualityOff {
		t.Errorf("expected link quality off, got %v", q)
	}
}

func TestHeartbeat(t *testing.T) {
	l, _ := startSession(t, Config{HeartbeatInterval: 20 * time.Millisecond})

	waitFor(t, "pong", func() bool { return l.Status().Link.Samples > 0 })

	link := l.Status().Link
	if link.LastPong.IsZero() {
		t.Error("expected last pong time")
	}
	if link.Samples > 0 && link.SmoothedRTT <= 0 {
		t.Error("expected a measured round trip")
	}
}

func TestReceivesOpus(t *testing.T) {
	l, sender := startSession(t, Config{Codec: "opus", HeartbeatInterval: -1})

	enc, err := encode.NewOpus(audio.Format{Codec: "opus", SampleRate: 48000, Channels: 2, BitDepth: 16})
	if err != nil {
		t.Fatalf("encoder failed: %v", err)
	}
	defer enc.Close()

	packet, err := enc.Encode(make([]audio.Frame, enc.FrameSize()))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if err := sender.SendAudio(packet); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	waitFor(t, "opus ingest", func() bool { return l.Buffer().Fill() == enc.FrameSize() })
}

func TestOpusDecodeErrorCounted(t *testing.T) {
	l, sender := startSession(t, Config{Codec: "opus", HeartbeatInterval: -1})

	// Code 3 packet claiming 63 frames of 20ms, longer than Opus allows
	if err := sender.SendAudio([]byte{0xff, 0xff, 0xff}); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	waitFor(t, "decode error", func() bool {
		s := l.Status()
		return s.Chunks == 1
	})
	if l.Status().DecodeErrs == 0 && l.Buffer().Fill() == 0 {
		t.Error("packet neither decoded nor counted as an error")
	}
}

func TestReconnects(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var accepts atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accepts.Add(1)
		conn.Close()
	}))
	defer ts.Close()

	var connects, disconnects atomic.Int32
	l, err := New(Config{
		ServerURL:         ts.URL,
		ReconnectDelay:    10 * time.Millisecond,
		HeartbeatInterval: -1,
		Logger:            quietLogger(),
		OnConnect: func(connected bool) {
			if connected {
				connects.Add(1)
			} else {
				disconnects.Add(1)
			}
		},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	waitFor(t, "three connections", func() bool { return accepts.Load() >= 3 })
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if connects.Load() < 3 {
		t.Errorf("expected at least 3 connects, got %d", connects.Load())
	}
	if connects.Load() != disconnects.Load() {
		t.Errorf("connects %d != disconnects %d", connects.Load(), disconnects.Load())
	}
	if l.Status().Connected {
		t.Error("should be disconnected after Run returns")
	}
}

func TestRunStopsWhileDialFails(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	l, err := New(Config{
		ServerURL:           url,
		ErrorReconnectDelay: time.Hour,
		Logger:              quietLogger(),
		OnConnect: func(bool) {
			t.Error("OnConnect should not be called")
		},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	if err := l.Run(ctx); err != nil {
		t.Errorf("Run returned %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("Run ignored context while waiting to redial")
	}
}

func TestResetOnReconnect(t *testing.T) {
	l, _ := startSession(t, Config{
		ResetOnReconnect:  true,
		HeartbeatInterval: -1,
	})

	if got := l.Buffer().Stats().Clears; got != 0 {
		t.Errorf("reset zeroes counters, expected 0 clears, got %d", got)
	}
}
