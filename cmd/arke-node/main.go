// Command arke-node runs one Arke node on a CAN bus. The node address is
// kept in an EEPROM image on disk and survives restarts.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/notnil/arke"
	"github.com/notnil/arke/canbus"
	"github.com/notnil/arke/internal/config"
	"github.com/notnil/arke/messages"
	"github.com/notnil/arke/node"
	"github.com/notnil/arke/nvram"
)

func main() {
	config.Flags(pflag.CommandLine)
	pflag.Parse()

	cfg, err := config.LoadConfig(pflag.CommandLine)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	setupLogger(cfg.Log)

	if err := run(cfg); err != nil {
		slog.Error("arke-node stopped", "err", err)
		os.Exit(1)
	}
	slog.Info("Goodbye.")
}

func run(cfg *config.Config) error {
	family, err := cfg.Family()
	if err != nil {
		return err
	}
	version, err := cfg.Version()
	if err != nil {
		return err
	}
	store, err := nvram.Open(nvram.Kind(cfg.Storage.Type), cfg.Storage.Path, cfg.Storage.Offset)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.Default()
	r := &node.Runner{
		Open: func(context.Context) (canbus.Bus, error) {
			return cfg.Bus.Open(logger)
		},
		Store:        store,
		Family:       family,
		Version:      version,
		Mailboxes:    cfg.Node.Mailboxes,
		PollInterval: cfg.Node.PollInterval,
		RestartDelay: cfg.Node.RestartDelay,
		Application: &node.Decoder{
			Handler: func(e *arke.Engine, m messages.Message) {
				logger.Info("message", "from", int(m.Node), "class", m.Class.String(), "payload", m.Payload.String())
			},
			Logger: logger,
		},
		Logger: logger,
	}
	slog.Info("Starting Arke node...", "family", family.Name, "driver", cfg.Bus.Driver, "storage", cfg.Storage.Type)
	err = r.Run(ctx)
	if errors.Is(err, context.Canceled) {
		slog.Info("Shutting down...", "restarts", r.Restarts())
		return nil
	}
	return err
}

func setupLogger(cfg config.LogConfig) {
	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	switch cfg.Level {
	case "debug":
		opts.Level = slog.LevelDebug
	case "warn":
		opts.Level = slog.LevelWarn
	case "error":
		opts.Level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.File != "" && cfg.File != "-" {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			fmt.Printf("Failed to open log file, falling back to stdout: %v\n", err)
			handler = slog.NewTextHandler(os.Stdout, opts)
		} else {
			handler = slog.NewTextHandler(f, opts)
		}
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
