package broadcaster

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fmradio/fmradio-go/internal/relay"
	"github.com/fmradio/fmradio-go/pkg/audio"
	"github.com/fmradio/fmradio-go/pkg/audio/source"
	"github.com/fmradio/fmradio-go/pkg/protocol"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// rampSource yields total frames whose L channel encodes the frame index
type rampSource struct {
	total  int
	pos    int
	rate   int
	closed bool
}

func (r *rampSource) Read(frames []audio.Frame) (int, error) {
	if r.pos >= r.total {
		return 0, io.EOF
	}
	n := 0
	for n < len(frames) && r.pos < r.total {
		frames[n] = audio.Frame{L: float32(r.pos%1000) / 1000, R: 0}
		n++
		r.pos++
	}
	return n, nil
}

func (r *rampSource) SampleRate() int { return r.rate }
func (r *rampSource) Title() string   { return "ramp" }
func (r *rampSource) Close() error    { r.closed = true; return nil }

func startRelay(t *testing.T) (*relay.Server, string) {
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
	return r, ts.URL
}

func dialListener(t *testing.T, url string) *protocol.Client {
	t.Helper()
	c, err := protocol.Dial(context.Background(), protocol.Config{ServerURL: url, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func waitForClients(t *testing.T, r *relay.Server, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for r.ClientCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d clients", n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewValidation(t *testing.T) {
	src := &rampSource{total: 10, rate: 48000}

	tests := []struct {
		name   string
		config Config
	}{
		{"missing url", Config{Source: src}},
		{"missing source", Config{ServerURL: "localhost:10000"}},
		{"bad codec", Config{ServerURL: "localhost:10000", Source: src, Codec: "aac"}},
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

func TestChunkFrames(t *testing.T) {
	tests := []struct {
		codec string
		want  int
	}{
		{"pcm", DefaultChunkFrames},
		{"opus", 960},
	}

	for _, tt := range tests {
		t.Run(tt.codec, func(t *testing.T) {
			b, err := New(Config{
				ServerURL: "localhost:10000",
				Source:    &rampSource{total: 10, rate: 48000},
				Codec:     tt.codec,
				Logger:    quietLogger(),
			})
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			defer b.Close()

			if got := b.ChunkFrames(); got != tt.want {
				t.Errorf("expected %d frames per chunk, got %d", tt.want, got)
			}
		})
	}
}

func TestStreamsPCMChunks(t *testing.T) {
	r, url := startRelay(t)
	listener := dialListener(t, url)

	src := &rampSource{total: 10000, rate: 48000}
	b, err := New(Config{ServerURL: url, Source: src, Unpaced: true, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	waitForClients(t, r, 1)
	if err := b.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	select {
	case msg := <-listener.Messages:
		ctrl := msg.Control
		if ctrl != protocol.ControlClear {
			t.Errorf("expected clear first, got %v", ctrl)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no clear received")
	}

	wantSizes := []int{4096 * 4, 4096 * 4, 1808 * 4}
	var first []byte
	for i, want := range wantSizes {
		select {
		case msg := <-listener.Messages:
			data := msg.Data
			if len(data) != want {
				t.Errorf("chunk %d: expected %d bytes, got %d", i, want, len(data))
			}
			if i == 0 {
				first = data
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("chunk %d not received", i)
		}
	}

	frames, _ := audio.AppendPCM16(nil, first[:8], 2)
	if frames[0].L != 0 || frames[1].L < 0.0009 || frames[1].L > 0.0011 {
		t.Errorf("unexpected first frames %v", frames)
	}

	s := b.Stats()
	if s.Chunks != 3 || s.Frames != 10000 {
		t.Errorf("expected 3 chunks and 10000 frames, got %+v", s)
	}
}

func TestOpusPadsFinalChunk(t *testing.T) {
	_, url := startRelay(t)

	b, err := New(Config{
		ServerURL: url,
		Source:    &rampSource{total: 1000, rate: 48000},
		Codec:     "opus",
		Unpaced:   true,
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer b.Close()

	if err := b.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	s := b.Stats()
	if s.Chunks != 2 || s.Frames != 1920 {
		t.Errorf("expected 2 packets of 960 frames, got %+v", s)
	}
}

func TestPacedToRealTime(t *testing.T) {
	_, url := startRelay(t)

	// Four chunks of 10ms: three ticker waits between them
	b, err := New(Config{
		ServerURL:   url,
		Source:      &rampSource{total: 4 * 480, rate: 48000},
		ChunkFrames: 480,
		Logger:      quietLogger(),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	start := time.Now()
	if err := b.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 25*time.Millisecond {
		t.Errorf("expected pacing of about 30ms, finished in %v", elapsed)
	}
}

func TestResamplesSource(t *testing.T) {
	_, url := startRelay(t)

	b, err := New(Config{
		ServerURL: url,
		Source:    &rampSource{total: 24000, rate: 24000},
		Unpaced:   true,
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := b.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// One second at 24kHz becomes about one second at 48kHz
	if got := b.Stats().Frames; got < 47990 || got > 48010 {
		t.Errorf("expected about 48000 frames, got %d", got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	_, url := startRelay(t)

	b, err := New(Config{
		ServerURL: url,
		Source:    source.NewTestTone(440, 48000),
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	if err := b.Run(ctx); err != nil {
		t.Errorf("expected nil on cancel, got %v", err)
	}
	if b.Stats().Chunks == 0 {
		t.Error("expected at least one chunk before cancel")
	}
}

func TestRunDialFailure(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	b, err := New(Config{
		ServerURL: url,
		Source:    &rampSource{total: 10, rate: 48000},
		Logger:    quietLogger(),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := b.Run(context.Background()); err == nil {
		t.Error("expected dial error")
	}
}

func TestCloseClosesSource(t *testing.T) {
	src := &rampSource{total: 10, rate: 48000}
	b, err := New(Config{ServerURL: "localhost:10000", Source: src, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !src.closed {
		t.Error("source not closed")
	}
}
