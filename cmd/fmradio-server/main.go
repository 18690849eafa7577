// ABOUTME: Entry point for the radio relay
// ABOUTME: Parses CLI flags and serves the WebSocket relay, health endpoint and browser pages
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fmradio/fmradio-go/internal/config"
	"github.com/fmradio/fmradio-go/internal/relay"
	"github.com/fmradio/fmradio-go/internal/ui"
	"github.com/fmradio/fmradio-go/internal/version"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.ParseServer(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}
	if cfg.ShowVersion {
		fmt.Println(version.String("fmradio-server"))
		return
	}

	logger, closer, err := config.NewLogger(cfg.LogLevel, cfg.LogFile, !cfg.TUI)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging setup failed: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	logger.Infof("Starting %s", version.String("fmradio-server"))
	logger.Infof("Logging to: %s", cfg.LogFile)

	srv, err := relay.NewServer(relay.Config{
		Addr:       cfg.Addr(),
		Name:       cfg.Name,
		StaticDir:  cfg.StaticDir,
		MaxPayload: cfg.MaxPayload,
		EnableMDNS: !cfg.NoMDNS,
		Logger:     logger,
	})
	if err != nil {
		logger.WithError(err).Fatal("Failed to create relay")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutdown signal received")
		srv.Stop()
		return nil
	})

	if cfg.TUI {
		tui := ui.NewRelayTUI(cfg.Name, cfg.Addr())

		g.Go(func() error {
			err := tui.Start()
			stop()
			return err
		})

		g.Go(func() error {
			statusLoop(ctx, srv, tui, cfg)
			tui.Stop()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.WithError(err).Fatal("Relay error")
	}

	logger.Info("Relay stopped")
}

// statusLoop pushes relay state to the TUI until ctx is done
func statusLoop(ctx context.Context, srv *relay.Server, tui *ui.RelayTUI, cfg *config.Server) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			infos := srv.Clients()
			clients := make([]ui.RelayClient, 0, len(infos))
			for _, c := range infos {
				clients = append(clients, ui.RelayClient{
					ID:          c.ID,
					RemoteAddr:  c.RemoteAddr,
					ConnectedAt: c.ConnectedAt,
					Sent:        c.Sent,
					Dropped:     c.Dropped,
				})
			}
			tui.Update(ui.RelayStatus{
				Name:       cfg.Name,
				Addr:       cfg.Addr(),
				Broadcasts: srv.Broadcasts(),
				Clients:    clients,
			})
		case <-ctx.Done():
			return
		}
	}
}
