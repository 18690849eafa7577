// ABOUTME: Tests for the relay WebSocket client
// ABOUTME: Runs the client against an httptest echo server
package protocol

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// newEchoServer answers ping with pong and echoes everything else
func newEchoServer(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if mt == websocket.TextMessage && string(data) == MsgPing {
				data = []byte(MsgPong)
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dialTest(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	c, err := Dial(ctx, Config{ServerURL: srv.URL, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestClientAudioRoundTrip(t *testing.T) {
	c := dialTest(t, newEchoServer(t))

	if !c.IsConnected() {
		t.Fatal("expected client to be connected")
	}

	if err := c.SendAudio([]byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	select {
	case msg := <-c.Messages:
		data := msg.Data
		if string(data) != string([]byte{1, 2, 3, 4}) {
			t.Errorf("unexpected echo %v", data)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for audio echo")
	}
}

func TestClientControl(t *testing.T) {
	c := dialTest(t, newEchoServer(t))

	if err := c.SendControl(ControlPing); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if err := c.SendControl(ControlClear); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	want := []Control{ControlPong, ControlClear}
	for _, w := range want {
		select {
		case msg := <-c.Messages:
			got := msg.Control
			if got != w {
				t.Errorf("expected %v, got %v", w, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout waiting for %v", w)
		}
	}
}

func TestClientPreservesWireOrder(t *testing.T) {
	c := dialTest(t, newEchoServer(t))

	// audio, clear, audio, unknown text (dropped), audio
	if err := c.SendAudio([]byte{1}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if err := c.SendControl(ControlClear); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if err := c.SendAudio([]byte{2}); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if err := c.write(websocket.TextMessage, []byte("hello")); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if err := c.SendAudio([]byte{3}); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	want := []Message{
		{Data: []byte{1}},
		{Control: ControlClear},
		{Data: []byte{2}},
		{Data: []byte{3}},
	}
	for i, w := range want {
		select {
		case got := <-c.Messages:
			if got.IsAudio() != w.IsAudio() || got.Control != w.Control || string(got.Data) != string(w.Data) {
				t.Errorf("message %d: expected %+v, got %+v", i, w, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout waiting for message %d", i)
		}
	}
}

func TestClientDoneOnServerClose(t *testing.T) {
	srv := newEchoServer(t)
	c := dialTest(t, srv)

	srv.CloseClientConnections()

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("expected Done after server closed the connection")
	}

	if c.IsConnected() {
		t.Error("expected client to be disconnected")
	}
	if err := c.SendAudio([]byte{0}); err != ErrNotConnected {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

func TestDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := Dial(context.Background(), Config{ServerURL: srv.URL, Logger: quietLogger()})
	if err == nil {
		t.Fatal("expected dial to fail against a non-WebSocket endpoint")
	}
	if !strings.Contains(err.Error(), "dial failed") {
		t.Errorf("expected wrapped dial error, got %v", err)
	}
}
