// ABOUTME: mDNS service discovery for the radio relay
// ABOUTME: Advertises the relay on the LAN and lets listeners find it
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/fmradio/fmradio-go/internal/version"
	"github.com/hashicorp/mdns"
	"github.com/sirupsen/logrus"
)

// ServiceType is the mDNS service advertised by relays
const ServiceType = "_fmradio._tcp"

// DefaultBrowseTimeout is the per-query browse window
const DefaultBrowseTimeout = 3 * time.Second

// ErrNoServer is returned when no relay answered before the deadline
var ErrNoServer = errors.New("no radio relay found on the network")

// Config holds discovery configuration
type Config struct {
	ServiceName string
	Port        int
	// Path is the WebSocket path advertised in the TXT record (default: /ws)
	Path   string
	Logger logrus.FieldLogger
}

// Manager handles mDNS operations
type Manager struct {
	config  Config
	ctx     context.Context
	cancel  context.CancelFunc
	servers chan *ServerInfo
	logger  logrus.FieldLogger
}

// ServerInfo describes a discovered relay
type ServerInfo struct {
	Name string
	Host string
	Port int
	Path string
}

// Addr returns host:port for dialing
func (s *ServerInfo) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// URL returns the WebSocket URL of the relay
func (s *ServerInfo) URL() string {
	return "ws://" + s.Addr() + s.Path
}

// NewManager creates a discovery manager
func NewManager(config Config) *Manager {
	if config.Path == "" {
		config.Path = "/ws"
	}
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())

	return &Manager{
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
		servers: make(chan *ServerInfo, 10),
		logger:  config.Logger.WithField("component", "mdns"),
	}
}

// Advertise advertises this relay via mDNS until Stop is called
func (m *Manager) Advertise() error {
	ips, err := getLocalIPs()
	if err != nil {
		return fmt.Errorf("failed to get local IPs: %w", err)
	}

	service, err := mdns.NewMDNSService(
		m.config.ServiceName,
		ServiceType,
		"",
		"",
		m.config.Port,
		ips,
		[]string{"path=" + m.config.Path, "version=" + version.Version},
	)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return fmt.Errorf("failed to create mdns server: %w", err)
	}

	m.logger.WithFields(logrus.Fields{
		"service": m.config.ServiceName,
		"port":    m.config.Port,
		"type":    ServiceType,
	}).Info("Advertising mDNS service")

	go func() {
		<-m.ctx.Done()
		server.Shutdown()
	}()

	return nil
}

// Browse searches for relays until Stop is called
func (m *Manager) Browse() error {
	go m.browseLoop()
	return nil
}

// browseLoop continuously browses for relays
func (m *Manager) browseLoop() {
	for {
		select {
		case <-m.ctx.Done():
			return
		default:
		}

		entries := make(chan *mdns.ServiceEntry, 10)
		done := make(chan struct{})

		go func() {
			defer close(done)
			for entry := range entries {
				server := entryToServer(entry)
				if server == nil {
					continue
				}

				m.logger.WithField("server", server.Addr()).Infof("Discovered relay: %s", server.Name)

				select {
				case m.servers <- server:
				case <-m.ctx.Done():
				}
			}
		}()

		params := mdns.DefaultParams(ServiceType)
		params.Timeout = DefaultBrowseTimeout
		params.Entries = entries
		params.DisableIPv6 = true

		if err := mdns.Query(params); err != nil {
			m.logger.WithError(err).Debug("mDNS query failed")
		}
		close(entries)
		<-done
	}
}

// entryToServer converts an mDNS entry, skipping entries without IPv4
func entryToServer(entry *mdns.ServiceEntry) *ServerInfo {
	if entry == nil || entry.AddrV4 == nil {
		return nil
	}
	if !strings.Contains(entry.Name, ServiceType) {
		return nil
	}

	path := "/ws"
	for _, field := range entry.InfoFields {
		if v, ok := strings.CutPrefix(field, "path="); ok && v != "" {
			path = v
		}
	}

	name := strings.TrimSuffix(entry.Name, "."+ServiceType+".local.")
	return &ServerInfo{
		Name: name,
		Host: entry.AddrV4.String(),
		Port: entry.Port,
		Path: path,
	}
}

// Discover browses until the first relay answers or ctx is done
func Discover(ctx context.Context, logger logrus.FieldLogger) (*ServerInfo, error) {
	m := NewManager(Config{Logger: logger})
	defer m.Stop()

	if err := m.Browse(); err != nil {
		return nil, err
	}

	select {
	case server := <-m.Servers():
		return server, nil
	case <-ctx.Done():
		return nil, ErrNoServer
	}
}

// Servers returns the channel of discovered relays
func (m *Manager) Servers() <-chan *ServerInfo {
	return m.servers
}

// Stop stops the discovery manager
func (m *Manager) Stop() {
	m.cancel()
}

// getLocalIPs returns local IP addresses
func getLocalIPs() ([]net.IP, error) {
	var ips []net.IP

	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					ips = append(ips, ipnet.IP)
				}
			}
		}
	}

	return ips, nil
}
