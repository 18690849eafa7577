// ABOUTME: Entry point for the radio broadcaster
// ABOUTME: Streams a file, URL, capture device or test tone to the relay
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
	"github.com/fmradio/fmradio-go/internal/version"
	"github.com/fmradio/fmradio-go/pkg/audio/source"
	"github.com/fmradio/fmradio-go/pkg/broadcaster"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.ParseBroadcaster(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(2)
	}
	if cfg.ShowVersion {
		fmt.Println(version.String("fmradio-broadcaster"))
		return
	}

	logger, closer, err := config.NewLogger(cfg.LogLevel, cfg.LogFile, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging setup failed: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	logger.Infof("Starting %s", version.String("fmradio-broadcaster"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("Broadcast failed")
	}

	logger.Info("Broadcaster stopped")
}

// run broadcasts until the source ends or ctx is done, reconnecting after
// a lost relay connection
func run(ctx context.Context, cfg *config.Broadcaster, logger *logrus.Logger) error {
	src, err := source.Open(cfg.Source, source.Options{Loop: cfg.Loop, Logger: logger})
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}

	b, err := broadcaster.New(broadcaster.Config{
		ServerURL:   cfg.Server,
		Source:      src,
		ChunkFrames: cfg.ChunkFrames,
		Codec:       cfg.Codec,
		SampleRate:  cfg.SampleRate,
		Logger:      logger,
	})
	if err != nil {
		src.Close()
		return err
	}
	defer b.Close()

	logger.Infof("Broadcasting %q to %s (%s, %d frames per chunk)", src.Title(), cfg.Server, cfg.Codec, b.ChunkFrames())

	for {
		err := b.Run(ctx)
		if err == nil || ctx.Err() != nil {
			return nil
		}

		logger.WithError(err).Warnf("Broadcast interrupted, reconnecting in %v", cfg.Retry)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(cfg.Retry):
		}
	}
}
