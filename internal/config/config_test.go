package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseServerDefaults(t *testing.T) {
	cfg, err := ParseServer(nil)
	if err != nil {
		t.Fatalf("ParseServer failed: %v", err)
	}
	if cfg.Port != 10000 {
		t.Errorf("expected port 10000, got %d", cfg.Port)
	}
	if cfg.Addr() != ":10000" {
		t.Errorf("expected addr :10000, got %s", cfg.Addr())
	}
	if cfg.StaticDir != "public" {
		t.Errorf("expected static dir public, got %s", cfg.StaticDir)
	}
	if cfg.MaxPayload != 1<<20 {
		t.Errorf("expected 1 MiB max payload, got %d", cfg.MaxPayload)
	}
	if !strings.HasSuffix(cfg.Name, "-fmradio") {
		t.Errorf("expected hostname-based name, got %s", cfg.Name)
	}
}

func TestServerValidate(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{"valid", []string{"-port", "8080"}, nil},
		{"port zero", []string{"-port", "0"}, ErrInvalidPort},
		{"port too high", []string{"-port", "70000"}, ErrInvalidPort},
		{"bad log level", []string{"-log-level", "trace"}, ErrInvalidLogLevel},
		{"zero payload", []string{"-max-payload", "0"}, ErrPositiveRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseServer(tt.args)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestParseServerUnknownFlag(t *testing.T) {
	if _, err := ParseServer([]string{"-bogus"}); err == nil {
		t.Error("expected error for unknown flag")
	}
}

func TestParseListenerDefaults(t *testing.T) {
	cfg, err := ParseListener(nil)
	if err != nil {
		t.Fatalf("ParseListener failed: %v", err)
	}

	th := cfg.Thresholds()
	if th.Target != 4800 || th.Min != 2400 || th.Max != 9600 {
		t.Errorf("unexpected thresholds %+v", th)
	}

	jc := cfg.JitterConfig()
	if !jc.FadeOnUnderrun {
		t.Error("fade should be on by default")
	}
	if jc.GrowEvery <= 0 {
		t.Errorf("growth should be on by default, got GrowEvery=%d", jc.GrowEvery)
	}
	if jc.DecayAfterTicks != 0 {
		t.Errorf("decay should be off by default, got %d", jc.DecayAfterTicks)
	}

	lc := cfg.ListenerConfig("localhost:10000")
	if lc.ServerURL != "localhost:10000" || lc.Codec != "pcm" {
		t.Errorf("unexpected listener config %+v", lc)
	}
}

func TestParseListenerFlags(t *testing.T) {
	cfg, err := ParseListener([]string{
		"-server", "radio.local:10000",
		"-codec", "opus",
		"-no-fade",
		"-no-grow",
		"-decay-ticks", "50",
		"-reset-on-reconnect",
	})
	if err != nil {
		t.Fatalf("ParseListener failed: %v", err)
	}

	jc := cfg.JitterConfig()
	if jc.FadeOnUnderrun {
		t.Error("expected fade disabled")
	}
	if jc.GrowEvery >= 0 {
		t.Errorf("expected growth disabled, got GrowEvery=%d", jc.GrowEvery)
	}
	if jc.DecayAfterTicks != 50 {
		t.Errorf("expected decay after 50 ticks, got %d", jc.DecayAfterTicks)
	}

	lc := cfg.ListenerConfig(cfg.Server)
	if !lc.ResetOnReconnect || lc.Codec != "opus" {
		t.Errorf("unexpected listener config %+v", lc)
	}
}

func TestListenerValidate(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{"bad codec", []string{"-codec", "mp3"}, ErrInvalidCodec},
		{"bad output", []string{"-output", "alsa"}, ErrInvalidOutput},
		{"min above target", []string{"-min-ms", "150"}, ErrInvalidBuffer},
		{"target above max", []string{"-target-ms", "300"}, ErrInvalidBuffer},
		{"zero target", []string{"-target-ms", "0", "-min-ms", "0"}, ErrInvalidBuffer},
		{"bad sample rate", []string{"-sample-rate", "0"}, ErrInvalidSampleRate},
		{"negative decay", []string{"-decay-ticks", "-1"}, ErrPositiveRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseListener(tt.args)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	if _, err := ParseListener([]string{"-volume", "101"}); err == nil {
		t.Error("expected error for volume above 100")
	}
}

func TestParseBroadcaster(t *testing.T) {
	cfg, err := ParseBroadcaster([]string{"-server", "localhost:10000"})
	if err != nil {
		t.Fatalf("ParseBroadcaster failed: %v", err)
	}
	if cfg.ChunkFrames != 4096 {
		t.Errorf("expected 4096 chunk frames, got %d", cfg.ChunkFrames)
	}
	if cfg.Retry != 3*time.Second {
		t.Errorf("expected 3s retry, got %v", cfg.Retry)
	}
	if !cfg.Loop {
		t.Error("expected looping by default")
	}
}

func TestBroadcasterValidate(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{"missing server", nil, ErrServerRequired},
		{"bad codec", []string{"-server", "x:1", "-codec", "flac"}, ErrInvalidCodec},
		{"zero chunk", []string{"-server", "x:1", "-chunk-frames", "0"}, ErrPositiveRequired},
		{"zero retry", []string{"-server", "x:1", "-retry", "0s"}, ErrPositiveRequired},
		{"bad sample rate", []string{"-server", "x:1", "-sample-rate", "-1"}, ErrInvalidSampleRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBroadcaster(tt.args)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")

	logger, closer, err := NewLogger("debug", path, false)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	logger.Debug("hello radio")
	if err := closer.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(string(data), "hello radio") {
		t.Errorf("log file missing message: %q", data)
	}
}

func TestNewLoggerErrors(t *testing.T) {
	if _, _, err := NewLogger("loud", "", false); !errors.Is(err, ErrInvalidLogLevel) {
		t.Errorf("expected ErrInvalidLogLevel, got %v", err)
	}

	badPath := filepath.Join(t.TempDir(), "missing", "dir", "x.log")
	if _, _, err := NewLogger("info", badPath, false); err == nil {
		t.Error("expected error for unwritable log path")
	}
}

func TestVersionSkipsValidation(t *testing.T) {
	cfg, err := ParseBroadcaster([]string{"-version"})
	if err != nil {
		t.Fatalf("expected -version to skip validation, got %v", err)
	}
	if !cfg.ShowVersion {
		t.Error("expected ShowVersion")
	}
}
