// ABOUTME: WebSocket client for the radio relay
// ABOUTME: Handles connection, control messages and audio routing for listeners and broadcasters
package protocol

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// ErrNotConnected is returned when sending on a closed client
var ErrNotConnected = errors.New("not connected")

const (
	// DefaultHandshakeTimeout bounds the WebSocket upgrade
	DefaultHandshakeTimeout = 10 * time.Second

	writeTimeout = 10 * time.Second
)

// Config holds client configuration
type Config struct {
	// ServerURL in any form accepted by WebSocketURL
	ServerURL string

	// HandshakeTimeout for the dial (default: 10s)
	HandshakeTimeout time.Duration

	// MessageBuffer is the capacity of the Messages channel (default: 100)
	MessageBuffer int

	Logger logrus.FieldLogger
}

// Message is one message received from the relay, in wire order
type Message struct {
	// Control is ControlUnknown for binary audio
	Control Control
	Data    []byte
}

// IsAudio reports whether the message carries a binary audio chunk
func (m Message) IsAudio() bool {
	return m.Control == ControlUnknown
}

// Client represents a WebSocket connection to the relay
type Client struct {
	config Config
	conn   *websocket.Conn
	mu     sync.RWMutex
	wmu    sync.Mutex

	// Messages delivers audio and control messages in the order they arrived
	Messages chan Message

	// State
	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
	err       error
	logger    logrus.FieldLogger
}

// Dial connects to the relay and starts the message reader
func Dial(ctx context.Context, config Config) (*Client, error) {
	if config.HandshakeTimeout <= 0 {
		config.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if config.MessageBuffer <= 0 {
		config.MessageBuffer = 100
	}
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}

	wsURL, err := WebSocketURL(config.ServerURL)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{
		HandshakeTimeout:  config.HandshakeTimeout,
		EnableCompression: false,
	}

	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	cctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		config:    config,
		conn:      conn,
		Messages:  make(chan Message, config.MessageBuffer),
		connected: true,
		ctx:       cctx,
		cancel:    cancel,
		logger:    config.Logger.WithField("server", wsURL),
	}

	c.logger.Debug("Connected to relay")

	go c.readMessages()

	return c, nil
}

// readMessages reads and routes incoming messages until the connection ends
func (c *Client) readMessages() {
	var readErr error
	defer func() { c.closeWithError(readErr) }()

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			readErr = err
			return
		}

		var msg Message
		switch messageType {
		case websocket.BinaryMessage:
			msg.Data = data
		case websocket.TextMessage:
			msg.Control = ParseControl(string(data))
			if msg.Control == ControlUnknown {
				c.logger.WithField("message", string(data)).Debug("Ignoring unknown text message")
				continue
			}
		default:
			continue
		}

		select {
		case c.Messages <- msg:
		case <-c.ctx.Done():
			return
		}
	}
}

// SendAudio sends one binary audio message
func (c *Client) SendAudio(data []byte) error {
	return c.write(websocket.BinaryMessage, data)
}

// SendControl sends a text control message
func (c *Client) SendControl(ctrl Control) error {
	return c.write(websocket.TextMessage, []byte(ctrl.String()))
}

func (c *Client) write(messageType int, data []byte) error {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	if !connected {
		return ErrNotConnected
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteMessage(messageType, data); err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	return nil
}

// Done is closed when the connection ends
func (c *Client) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Err returns the read error that ended the connection, if any
func (c *Client) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Close sends a close frame and closes the connection
func (c *Client) Close() {
	c.wmu.Lock()
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.wmu.Unlock()

	c.closeWithError(nil)
}

func (c *Client) closeWithError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		c.connected = false
		if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			c.err = err
		}
		c.cancel()
		c.conn.Close()
		c.logger.Debug("Connection closed")
	}
}

// IsConnected returns connection status
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}
