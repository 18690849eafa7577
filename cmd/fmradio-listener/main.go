// ABOUTME: Entry point for the radio listener
// ABOUTME: Connects to a relay, buffers the stream and plays it on the local audio device
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fmradio/fmradio-go/internal/config"
	"github.com/fmradio/fmradio-go/internal/discovery"
	"github.com/fmradio/fmradio-go/internal/ui"
	"github.com/fmradio/fmradio-go/internal/version"
	"github.com/fmradio/fmradio-go/pkg/audio"
	"github.com/fmradio/fmradio-go/pkg/audio/output"
	"github.com/fmradio/fmradio-go/pkg/listener"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const discoveryTimeout = 10 * time.Second

func main() {
	cfg, err := config.ParseListener(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}
	if cfg.ShowVersion {
		fmt.Println(version.String("fmradio-listener"))
		return
	}

	useTUI := !cfg.NoTUI

	// TUI mode logs only to the file
	logger, closer, err := config.NewLogger(cfg.LogLevel, cfg.LogFile, !useTUI)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging setup failed: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	logger.Infof("Starting %s", version.String("fmradio-listener"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, stop, cfg, logger, useTUI); err != nil {
		logger.WithError(err).Error("Listener failed")
		fmt.Fprintf(os.Stderr, "listener failed: %v\n", err)
		os.Exit(1)
	}

	logger.Info("Listener stopped")
}

func run(ctx context.Context, stop context.CancelFunc, cfg *config.Listener, logger *logrus.Logger, useTUI bool) error {
	serverURL := cfg.Server
	if serverURL == "" {
		logger.Info("Starting relay discovery...")
		dctx, cancel := context.WithTimeout(ctx, discoveryTimeout)
		server, err := discovery.Discover(dctx, logger)
		cancel()
		if err != nil {
			return err
		}
		serverURL = server.URL()
		logger.Infof("Discovered relay %s at %s", server.Name, serverURL)
	}

	var (
		tuiProg    *tea.Program
		volumeCtrl *ui.VolumeControl
	)
	if useTUI {
		volumeCtrl = ui.NewVolumeControl()
		tuiProg = ui.Run(volumeCtrl, cfg.Volume)
	}

	updateTUI := func(msg ui.StatusMsg) {
		if tuiProg != nil {
			tuiProg.Send(msg)
		}
	}

	lc := cfg.ListenerConfig(serverURL)
	lc.Logger = logger
	lc.OnConnect = func(connected bool) {
		updateTUI(ui.StatusMsg{Connected: &connected, ServerName: serverURL})
	}

	l, err := listener.New(lc)
	if err != nil {
		return err
	}
	l.Buffer().SetGain(float32(cfg.Volume) / 100)

	out, ok := output.New(cfg.Output, l.Buffer())
	if !ok {
		return fmt.Errorf("unknown output: %s", cfg.Output)
	}
	if err := out.Open(cfg.SampleRate, audio.DefaultChannels); err != nil {
		return fmt.Errorf("failed to open %s output: %w", cfg.Output, err)
	}
	defer out.Close()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return l.Run(ctx)
	})

	if tuiProg != nil {
		g.Go(func() error {
			_, err := tuiProg.Run()
			stop()
			return err
		})

		g.Go(func() error {
			<-ctx.Done()
			tuiProg.Quit()
			return nil
		})

		g.Go(func() error {
			handleVolumeControl(ctx, stop, l, volumeCtrl, logger)
			return nil
		})

		g.Go(func() error {
			statsUpdateLoop(ctx, l, cfg, updateTUI)
			return nil
		})
	}

	return g.Wait()
}

// handleVolumeControl applies volume changes from the TUI to the buffer gain
func handleVolumeControl(ctx context.Context, stop context.CancelFunc, l *listener.Listener, volumeCtrl *ui.VolumeControl, logger logrus.FieldLogger) {
	for {
		select {
		case vol := <-volumeCtrl.Changes:
			logger.Debugf("Volume change: %d%%, muted=%v", vol.Volume, vol.Muted)
			gain := float32(vol.Volume) / 100
			if vol.Muted {
				gain = 0
			}
			l.Buffer().SetGain(gain)
		case <-volumeCtrl.Quit:
			logger.Info("Received quit signal from TUI")
			stop()
			return
		case <-ctx.Done():
			return
		}
	}
}

// statsUpdateLoop periodically updates the TUI with session and buffer state
func statsUpdateLoop(ctx context.Context, l *listener.Listener, cfg *config.Listener, updateTUI func(ui.StatusMsg)) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()

	// Runtime stats are sampled less often
	runtimeStatsTicker := time.NewTicker(2 * time.Second)
	defer runtimeStatsTicker.Stop()

	var (
		goroutines int
		memAlloc   uint64
	)

	for {
		select {
		case <-runtimeStatsTicker.C:
			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			goroutines = runtime.NumGoroutine()
			memAlloc = m.Alloc

		case <-ticker.C:
			s := l.Status()
			stats := l.Buffer().Stats()
			updateTUI(ui.StatusMsg{
				Connects:   s.Connects,
				Link:       s.Link.Quality.String(),
				LinkRTT:    s.Link.SmoothedRTT,
				Codec:      cfg.Codec,
				SampleRate: cfg.SampleRate,
				State:      s.Buffer.State.String(),
				BufferedMs: s.Buffer.BufferedMs,
				TargetMs:   s.Buffer.TargetMs,
				MaxMs:      cfg.MaxMs,
				BelowMin:   s.Buffer.BelowMin,
				Underruns:  s.Buffer.Underruns,
				Chunks:     s.Chunks,
				Bytes:      s.Bytes,
				Dropped:    stats.OverflowDropped,
				DecodeErrs: s.DecodeErrs,
				Goroutines: goroutines,
				MemAlloc:   memAlloc,
			})

		case <-ctx.Done():
			return
		}
	}
}
