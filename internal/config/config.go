// ABOUTME: Command-line configuration for the radio binaries
// ABOUTME: Flag parsing and validation for the relay, listener and broadcaster
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/fmradio/fmradio-go/pkg/audio"
	"github.com/fmradio/fmradio-go/pkg/jitter"
	"github.com/fmradio/fmradio-go/pkg/listener"
)

var (
	// ErrInvalidPort is returned when port number is invalid.
	ErrInvalidPort = errors.New("invalid port number")
	// ErrInvalidLogLevel is returned when log level is invalid.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidCodec is returned for codecs other than pcm and opus.
	ErrInvalidCodec = errors.New("invalid codec")
	// ErrInvalidBuffer is returned when buffer thresholds are out of order.
	ErrInvalidBuffer = errors.New("invalid buffer thresholds")
	// ErrInvalidSampleRate is returned for non-positive sample rates.
	ErrInvalidSampleRate = errors.New("invalid sample rate")
	// ErrPositiveRequired is returned when a size or interval is not positive.
	ErrPositiveRequired = errors.New("value must be positive")
	// ErrInvalidOutput is returned for unknown audio output backends.
	ErrInvalidOutput = errors.New("invalid audio output")
	// ErrServerRequired is returned when no relay address is given and discovery is off.
	ErrServerRequired = errors.New("server address is required")
)

// Common holds flags shared by every binary
type Common struct {
	LogLevel    string
	LogFile     string
	ShowVersion bool
}

func (c *Common) register(fs *flag.FlagSet, logFile string) {
	fs.StringVar(&c.LogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	fs.StringVar(&c.LogFile, "log-file", logFile, "Log file path (empty disables)")
	fs.BoolVar(&c.ShowVersion, "version", false, "Print version and exit")
}

// Validate checks the shared flags
func (c *Common) Validate() error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("%w: %s (must be debug, info, warn, or error)", ErrInvalidLogLevel, c.LogLevel)
	}
	return nil
}

// Server is the relay configuration
type Server struct {
	Common
	Port       int
	Name       string
	StaticDir  string
	MaxPayload int64
	NoMDNS     bool
	TUI        bool
}

// ParseServer parses relay flags from args
func ParseServer(args []string) (*Server, error) {
	cfg := &Server{}
	fs := flag.NewFlagSet("fmradio-server", flag.ContinueOnError)

	cfg.Common.register(fs, "fmradio-server.log")
	fs.IntVar(&cfg.Port, "port", 10000, "Port to listen on")
	fs.StringVar(&cfg.Name, "name", "", "Relay friendly name (default: hostname-fmradio)")
	fs.StringVar(&cfg.StaticDir, "static", "public", "Directory with the browser pages (empty disables)")
	fs.Int64Var(&cfg.MaxPayload, "max-payload", 1<<20, "Largest accepted message in bytes")
	fs.BoolVar(&cfg.NoMDNS, "no-mdns", false, "Disable mDNS advertisement")
	fs.BoolVar(&cfg.TUI, "tui", false, "Show a live client table instead of streaming logs")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.ShowVersion {
		return cfg, nil
	}
	if cfg.Name == "" {
		cfg.Name = defaultName("fmradio")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the relay configuration is valid.
func (c *Server) Validate() error {
	if err := c.Common.Validate(); err != nil {
		return err
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Port)
	}
	if c.MaxPayload <= 0 {
		return fmt.Errorf("%w: max-payload %d", ErrPositiveRequired, c.MaxPayload)
	}
	return nil
}

// Addr returns the listen address
func (c *Server) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Listener is the listener configuration
type Listener struct {
	Common
	Server     string
	Codec      string
	Output     string
	SampleRate int
	TargetMs   float64
	MinMs      float64
	MaxMs      float64
	NoFade     bool
	NoGrow     bool
	DecayTicks int
	Volume     int
	Reset      bool
	NoTUI      bool
}

// ParseListener parses listener flags from args
func ParseListener(args []string) (*Listener, error) {
	cfg := &Listener{}
	fs := flag.NewFlagSet("fmradio-listener", flag.ContinueOnError)

	cfg.Common.register(fs, "fmradio-listener.log")
	fs.StringVar(&cfg.Server, "server", "", "Relay address (default: discover via mDNS)")
	fs.StringVar(&cfg.Codec, "codec", "pcm", "Stream codec (pcm, opus)")
	fs.StringVar(&cfg.Output, "output", "oto", "Audio output (oto, malgo, portaudio, null)")
	fs.IntVar(&cfg.SampleRate, "sample-rate", audio.DefaultSampleRate, "Stream sample rate")
	fs.Float64Var(&cfg.TargetMs, "target-ms", jitter.DefaultTargetMs, "Fill level at which playback starts")
	fs.Float64Var(&cfg.MinMs, "min-ms", jitter.DefaultMinMs, "Low-water mark reported in status")
	fs.Float64Var(&cfg.MaxMs, "max-ms", jitter.DefaultMaxMs, "Fill level above which old audio is dropped")
	fs.BoolVar(&cfg.NoFade, "no-fade", false, "Emit hard silence on underrun instead of a fade")
	fs.BoolVar(&cfg.NoGrow, "no-grow", false, "Disable adaptive target growth")
	fs.IntVar(&cfg.DecayTicks, "decay-ticks", 0, "Lower the target after this many healthy ticks (0 disables)")
	fs.IntVar(&cfg.Volume, "volume", 100, "Initial volume (0-100)")
	fs.BoolVar(&cfg.Reset, "reset-on-reconnect", false, "Restore buffer thresholds on every reconnect")
	fs.BoolVar(&cfg.NoTUI, "no-tui", false, "Disable TUI, stream logs instead")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.ShowVersion {
		return cfg, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the listener configuration is valid.
func (c *Listener) Validate() error {
	if err := c.Common.Validate(); err != nil {
		return err
	}
	if err := validateCodec(c.Codec); err != nil {
		return err
	}
	switch c.Output {
	case "oto", "malgo", "portaudio", "null":
	default:
		return fmt.Errorf("%w: %s (must be oto, malgo, portaudio or null)", ErrInvalidOutput, c.Output)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSampleRate, c.SampleRate)
	}
	if err := c.Thresholds().Validate(); err != nil {
		return fmt.Errorf("%w: target=%vms min=%vms max=%vms", ErrInvalidBuffer, c.TargetMs, c.MinMs, c.MaxMs)
	}
	if c.Volume < 0 || c.Volume > 100 {
		return fmt.Errorf("volume must be 0-100, got %d", c.Volume)
	}
	if c.DecayTicks < 0 {
		return fmt.Errorf("%w: decay-ticks %d", ErrPositiveRequired, c.DecayTicks)
	}
	return nil
}

// Thresholds converts the millisecond flags to frames
func (c *Listener) Thresholds() jitter.Thresholds {
	return jitter.FromMillis(c.SampleRate, c.TargetMs, c.MinMs, c.MaxMs)
}

// JitterConfig builds the buffer configuration
func (c *Listener) JitterConfig() jitter.Config {
	jc := jitter.DefaultConfig(c.SampleRate)
	jc.Thresholds = c.Thresholds()
	jc.FadeOnUnderrun = !c.NoFade
	jc.DecayAfterTicks = c.DecayTicks
	if c.NoGrow {
		jc.GrowEvery = -1
	}
	return jc
}

// ListenerConfig builds the session configuration for a relay address
func (c *Listener) ListenerConfig(serverURL string) listener.Config {
	return listener.Config{
		ServerURL:        serverURL,
		Jitter:           c.JitterConfig(),
		Codec:            c.Codec,
		ResetOnReconnect: c.Reset,
	}
}

// Broadcaster is the broadcaster configuration
type Broadcaster struct {
	Common
	Server      string
	Source      string
	Loop        bool
	Codec       string
	ChunkFrames int
	SampleRate  int
	Retry       time.Duration
}

// ParseBroadcaster parses broadcaster flags from args
func ParseBroadcaster(args []string) (*Broadcaster, error) {
	cfg := &Broadcaster{}
	fs := flag.NewFlagSet("fmradio-broadcaster", flag.ContinueOnError)

	cfg.Common.register(fs, "fmradio-broadcaster.log")
	fs.StringVar(&cfg.Server, "server", "", "Relay address (required)")
	fs.StringVar(&cfg.Source, "source", "", "Audio file, HTTP URL or \"capture\" (default: test tone)")
	fs.BoolVar(&cfg.Loop, "loop", true, "Restart file sources at the end")
	fs.StringVar(&cfg.Codec, "codec", "pcm", "Stream codec (pcm, opus)")
	fs.IntVar(&cfg.ChunkFrames, "chunk-frames", 4096, "Frames per PCM message")
	fs.IntVar(&cfg.SampleRate, "sample-rate", audio.DefaultSampleRate, "Stream sample rate")
	fs.DurationVar(&cfg.Retry, "retry", 3*time.Second, "Delay before reconnecting after a lost connection")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.ShowVersion {
		return cfg, nil
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the broadcaster configuration is valid.
func (c *Broadcaster) Validate() error {
	if err := c.Common.Validate(); err != nil {
		return err
	}
	if c.Server == "" {
		return ErrServerRequired
	}
	if err := validateCodec(c.Codec); err != nil {
		return err
	}
	if c.ChunkFrames <= 0 {
		return fmt.Errorf("%w: chunk-frames %d", ErrPositiveRequired, c.ChunkFrames)
	}
	if c.SampleRate <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidSampleRate, c.SampleRate)
	}
	if c.Retry <= 0 {
		return fmt.Errorf("%w: retry %v", ErrPositiveRequired, c.Retry)
	}
	return nil
}

func validateCodec(codec string) error {
	switch codec {
	case "pcm", "opus":
		return nil
	default:
		return fmt.Errorf("%w: %s (must be pcm or opus)", ErrInvalidCodec, codec)
	}
}

func defaultName(suffix string) string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return fmt.Sprintf("%s-%s", hostname, suffix)
}
