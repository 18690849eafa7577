// ABOUTME: WebSocket relay for the radio
// ABOUTME: Fans binary audio from one client out to every other client and serves health and static pages
package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fmradio/fmradio-go/internal/discovery"
	"github.com/fmradio/fmradio-go/pkg/protocol"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	"github.com/sirupsen/logrus"
)

const (
	DefaultAddr       = ":10000"
	DefaultMaxPayload = 1 << 20
	DefaultSendBuffer = 64

	// Ping keepalive for idle connections
	DefaultPingInterval = 30 * time.Second

	// Every Nth broadcast is logged
	broadcastLogEvery = 100

	shutdownTimeout = 5 * time.Second
	writeDeadline   = 10 * time.Second
)

// Config configures a relay server
type Config struct {
	// Addr to listen on (default: ":10000")
	Addr string

	// Name of the relay for mDNS
	Name string

	// StaticDir holds the browser pages; empty disables static serving
	StaticDir string

	// MaxPayload is the largest accepted message in bytes (default: 1 MiB)
	MaxPayload int64

	// SendBuffer is the per-client outbound queue length (default: 64)
	SendBuffer int

	// PingInterval for WebSocket keepalive (default: 30s)
	PingInterval time.Duration

	// EnableMDNS advertises the relay on the local network
	EnableMDNS bool

	Logger logrus.FieldLogger
}

// Server is the radio relay
type Server struct {
	config   Config
	upgrader websocket.Upgrader

	echo       *echo.Echo
	httpServer *http.Server

	clients   map[string]*client
	clientsMu sync.RWMutex

	startTime  time.Time
	broadcasts atomic.Int64

	mdnsManager *discovery.Manager
	logger      logrus.FieldLogger

	// Control
	stopChan   chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// outbound is a queued message for a client writer
type outbound struct {
	messageType int
	data        []byte
}

// client represents a connected WebSocket peer
type client struct {
	ID          string
	RemoteAddr  string
	ConnectedAt time.Time
	Conn        *websocket.Conn

	sendChan  chan outbound
	closeOnce sync.Once

	sent    atomic.Int64
	dropped atomic.Int64
}

// ClientInfo represents information about a connected client
type ClientInfo struct {
	ID          string
	RemoteAddr  string
	ConnectedAt time.Time
	Sent        int64
	Dropped     int64
}

// NewServer creates a new relay server. A missing StaticDir disables
// static pages rather than failing.
func NewServer(config Config) (*Server, error) {
	if config.Addr == "" {
		config.Addr = DefaultAddr
	}
	if config.Name == "" {
		config.Name = "FM Radio"
	}
	if config.MaxPayload <= 0 {
		config.MaxPayload = DefaultMaxPayload
	}
	if config.SendBuffer <= 0 {
		config.SendBuffer = DefaultSendBuffer
	}
	if config.PingInterval <= 0 {
		config.PingInterval = DefaultPingInterval
	}
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}
	if config.StaticDir != "" {
		if info, err := os.Stat(config.StaticDir); err != nil || !info.IsDir() {
			config.Logger.WithField("dir", config.StaticDir).Warn("Static directory not found, serving no pages")
			config.StaticDir = ""
		}
	}

	s := &Server{
		config: config,
		upgrader: websocket.Upgrader{
			HandshakeTimeout:  5 * time.Second,
			EnableCompression: false,
			CheckOrigin: func(r *http.Request) bool {
				// Browser pages may be served from anywhere on the LAN
				return true
			},
		},
		clients:   make(map[string]*client),
		startTime: time.Now(),
		logger:    config.Logger.WithField("component", "relay"),
		stopChan:  make(chan struct{}),
	}

	s.echo = s.routes()
	return s, nil
}

// routes builds the HTTP surface
func (s *Server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	// Static registers "/" too, so it goes first and the root route overrides it
	if s.config.StaticDir != "" {
		e.Static("/", s.config.StaticDir)
	}

	e.GET("/health", s.handleHealth)
	e.GET(protocol.DefaultPath, s.handleWebSocket)
	e.GET("/", func(c echo.Context) error {
		// Browsers open the socket on the page origin root
		if websocket.IsWebSocketUpgrade(c.Request()) {
			return s.handleWebSocket(c)
		}
		return c.Redirect(http.StatusFound, "/user.html")
	})

	return e
}

// Handler returns the HTTP handler, for embedding or tests
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until Stop is called
func (s *Server) Start() error {
	s.logger.WithField("addr", s.config.Addr).Infof("Relay starting: %s", s.config.Name)

	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        portOf(s.config.Addr),
			Path:        protocol.DefaultPath,
			Logger:      s.config.Logger,
		})

		if err := s.mdnsManager.Advertise(); err != nil {
			s.logger.WithError(err).Warn("Failed to start mDNS advertisement")
		}
	}

	s.httpServer = &http.Server{
		Addr:    s.config.Addr,
		Handler: s.echo,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-s.stopChan:
		s.logger.Info("Relay shutting down...")
	case err := <-errChan:
		s.logger.WithError(err).Error("HTTP server error")
		s.shutdown()
		return fmt.Errorf("relay listen failed: %w", err)
	}

	s.shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.WithError(err).Warn("HTTP server shutdown error")
	}

	s.wg.Wait()
	s.logger.Info("Relay stopped cleanly")

	return nil
}

// shutdown rejects new connections and closes existing ones; hijacked
// WebSocket connections are not closed by http.Server.Shutdown
func (s *Server) shutdown() {
	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	s.clientsMu.RLock()
	for _, c := range s.clients {
		c.close()
	}
	s.clientsMu.RUnlock()
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// Close shuts down a relay used only through Handler
func (s *Server) Close() {
	s.Stop()
	s.shutdown()
	s.wg.Wait()
}

// handleHealth reports relay status
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, s.Health())
}

// Health returns the current health document
func (s *Server) Health() protocol.Health {
	return protocol.Health{
		Status:      "ok",
		Clients:     s.ClientCount(),
		Uptime:      time.Since(s.startTime).Seconds(),
		Broadcasts:  s.broadcasts.Load(),
		AudioFormat: protocol.AudioFormatPCM,
	}
}

// handleWebSocket upgrades the request and serves the connection
func (s *Server) handleWebSocket(c echo.Context) error {
	s.shutdownMu.RLock()
	shutdown := s.isShutdown
	s.shutdownMu.RUnlock()
	if shutdown {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "relay shutting down")
	}

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.WithError(err).Debug("WebSocket upgrade failed")
		// The upgrader already wrote the HTTP error
		return nil
	}

	s.handleConnection(conn, c.Request().RemoteAddr)
	return nil
}

// handleConnection manages a client connection until it closes
func (s *Server) handleConnection(conn *websocket.Conn, remoteAddr string) {
	conn.SetReadLimit(s.config.MaxPayload)

	c := &client{
		ID:          uuid.New().String(),
		RemoteAddr:  remoteAddr,
		ConnectedAt: time.Now(),
		Conn:        conn,
		sendChan:    make(chan outbound, s.config.SendBuffer),
	}

	s.clientsMu.Lock()
	s.clients[c.ID] = c
	total := len(s.clients)
	s.clientsMu.Unlock()

	log := s.logger.WithFields(logrus.Fields{"client": c.ID, "remote": remoteAddr})
	log.WithField("clients", total).Info("Client connected")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.clientWriter(c)
	}()

	defer func() {
		s.removeClient(c)
		c.close()
		log.WithField("clients", s.ClientCount()).Info("Client disconnected")
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.WithError(err).Debug("WebSocket error")
			}
			return
		}

		switch messageType {
		case websocket.TextMessage:
			s.handleText(c, string(data), log)
		case websocket.BinaryMessage:
			s.broadcast(c, outbound{messageType: websocket.BinaryMessage, data: data})
		}
	}
}

// handleText processes control messages
func (s *Server) handleText(c *client, msg string, log logrus.FieldLogger) {
	switch protocol.ParseControl(msg) {
	case protocol.ControlPing:
		s.enqueue(c, outbound{messageType: websocket.TextMessage, data: []byte(protocol.MsgPong)})
	case protocol.ControlClear:
		log.Debug("Relaying clear to listeners")
		s.broadcast(c, outbound{messageType: websocket.TextMessage, data: []byte(protocol.MsgClear)})
	default:
		log.WithField("message", msg).Debug("Ignoring unknown text message")
	}
}

// broadcast queues msg for every client except the sender. Audio
// broadcasts are counted and every 100th is logged.
func (s *Server) broadcast(from *client, msg outbound) {
	sent := 0

	s.clientsMu.RLock()
	for id, c := range s.clients {
		if id == from.ID {
			continue
		}
		if s.enqueue(c, msg) {
			sent++
		}
	}
	s.clientsMu.RUnlock()

	if msg.messageType != websocket.BinaryMessage {
		return
	}

	n := s.broadcasts.Add(1)
	if n%broadcastLogEvery == 0 {
		s.logger.WithFields(logrus.Fields{
			"broadcast": n,
			"listeners": sent,
			"bytes":     len(msg.data),
		}).Info("Relayed audio chunk")
	}
}

// enqueue never blocks; a client that cannot keep up is disconnected
func (s *Server) enqueue(c *client, msg outbound) bool {
	select {
	case c.sendChan <- msg:
		return true
	default:
		c.dropped.Add(1)
		s.logger.WithField("client", c.ID).Warn("Client send buffer full, disconnecting")
		c.close()
		return false
	}
}

// clientWriter sends queued messages and keepalive pings
func (s *Server) clientWriter(c *client) {
	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.sendChan:
			if !ok {
				return
			}
			c.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.Conn.WriteMessage(msg.messageType, msg.data); err != nil {
				c.close()
				return
			}
			c.sent.Add(1)

		case <-ticker.C:
			if err := c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeDeadline)); err != nil {
				c.close()
				return
			}
		}
	}
}

// removeClient unregisters a client and stops its writer
func (s *Server) removeClient(c *client) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	if _, ok := s.clients[c.ID]; ok {
		delete(s.clients, c.ID)
		close(c.sendChan)
	}
}

// close closes the underlying connection once, ending the read loop
func (c *client) close() {
	c.closeOnce.Do(func() {
		c.Conn.Close()
	})
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

// Broadcasts returns the number of relayed audio chunks
func (s *Server) Broadcasts() int64 {
	return s.broadcasts.Load()
}

// Clients returns information about all connected clients
func (s *Server) Clients() []ClientInfo {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	clients := make([]ClientInfo, 0, len(s.clients))
	for _, c := range s.clients {
		clients = append(clients, ClientInfo{
			ID:          c.ID,
			RemoteAddr:  c.RemoteAddr,
			ConnectedAt: c.ConnectedAt,
			Sent:        c.sent.Load(),
			Dropped:     c.dropped.Load(),
		})
	}

	return clients
}
