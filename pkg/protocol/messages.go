// ABOUTME: Radio wire protocol message definitions
// ABOUTME: Defines the text control messages and the relay health document
package protocol

import (
	"fmt"
	"net/url"
	"strings"
)

// Text control messages. Everything else on the wire is binary audio.
const (
	MsgPing  = "ping"
	MsgPong  = "pong"
	MsgClear = "clear"
)

// AudioFormatPCM is the format string reported by /health
const AudioFormatPCM = "PCM/Raw"

// DefaultPath is the WebSocket endpoint on the relay
const DefaultPath = "/ws"

// Control is a parsed text control message
type Control int

const (
	ControlUnknown Control = iota
	ControlPing
	ControlPong
	ControlClear
)

// ParseControl maps a text message to its control type
func ParseControl(msg string) Control {
	switch strings.TrimSpace(msg) {
	case MsgPing:
		return ControlPing
	case MsgPong:
		return ControlPong
	case MsgClear:
		return ControlClear
	default:
		return ControlUnknown
	}
}

func (c Control) String() string {
	switch c {
	case ControlPing:
		return MsgPing
	case ControlPong:
		return MsgPong
	case ControlClear:
		return MsgClear
	default:
		return "unknown"
	}
}

// Health is the relay's /health response
type Health struct {
	Status      string  `json:"status"`
	Clients     int     `json:"clients"`
	Uptime      float64 `json:"uptime"`
	Broadcasts  int64   `json:"broadcasts"`
	AudioFormat string  `json:"audioFormat"`
}

// WebSocketURL turns a relay address into a ws:// or wss:// URL. It accepts
// host:port, http(s):// and ws(s):// forms; a missing path becomes /ws.
func WebSocketURL(addr string) (string, error) {
	if addr == "" {
		return "", fmt.Errorf("empty server address")
	}
	if !strings.Contains(addr, "://") {
		addr = "ws://" + addr
	}

	u, err := url.Parse(addr)
	if err != nil {
		return "", fmt.Errorf("invalid server address %q: %w", addr, err)
	}

	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q in server address", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host in server address %q", addr)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = DefaultPath
	}

	return u.String(), nil
}
