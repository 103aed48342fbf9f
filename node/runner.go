// Package node runs an Arke engine on a host: it owns the bus, the mailbox
// controller and the poll loop, and rebuilds everything from persisted
// storage whenever the engine asks for a restart.
package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"github.com/notnil/arke"
	"github.com/notnil/arke/canbus"
	"github.com/notnil/arke/mailbox"
	"github.com/notnil/arke/systime"
)

// Defaults applied by Run to zero-valued Runner fields.
const (
	DefaultPollInterval = time.Millisecond
	DefaultRestartDelay = 15 * time.Millisecond
)

// Application receives the inbound messages of a running node. Handle is
// called from the poll loop; in.Data is only valid during the call.
type Application interface {
	Handle(e *arke.Engine, in arke.Inbound)
}

// HandlerFunc adapts a function to Application.
type HandlerFunc func(e *arke.Engine, in arke.Inbound)

func (f HandlerFunc) Handle(e *arke.Engine, in arke.Inbound) { f(e, in) }

// Runner hosts one node.
type Runner struct {
	// Open returns a fresh bus for every start of the node.
	Open  func(ctx context.Context) (canbus.Bus, error)
	Store arke.AddressStore
	Clock arke.Clock // nil selects a systime.Monotonic

	Family  arke.Family
	Version arke.Version
	Layout  arke.Layout

	Mailboxes    int
	PollInterval time.Duration
	RestartDelay time.Duration

	Application Application
	Logger      *slog.Logger

	// Started, when set, is called with every new engine before polling.
	Started func(*arke.Engine)

	restarts atomic.Int64
}

// Restarts counts the restarts performed so far.
func (r *Runner) Restarts() int { return int(r.restarts.Load()) }

// Run starts the node and keeps it running until ctx is done, in which case
// it returns ctx.Err(). Setup failures are returned as is.
func (r *Runner) Run(ctx context.Context) error {
	if r.Open == nil || r.Store == nil {
		return errors.New("node: Open and Store are required")
	}
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	delay := r.RestartDelay
	if delay <= 0 {
		delay = DefaultRestartDelay
	}
	for {
		err := r.session(ctx, logger)
		if !errors.Is(err, arke.ErrRestart) {
			return err
		}
		r.restarts.Add(1)
		logger.Info("node restarting", "delay", delay, "cause", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (r *Runner) session(ctx context.Context, logger *slog.Logger) (err error) {
	bus, err := r.Open(ctx)
	if err != nil {
		return fmt.Errorf("node: open bus: %w", err)
	}
	mc := mailbox.New(bus, r.Mailboxes, logger)
	defer func() { err = multierr.Append(err, mc.Close()) }()

	layout := r.Layout
	if layout == (arke.Layout{}) {
		layout = arke.DefaultLayout
	}
	id, err := arke.LoadIdentity(r.Store, layout)
	if err != nil {
		return err
	}
	clock := r.Clock
	if clock == nil {
		clock = systime.NewMonotonic()
	}
	e, err := arke.New(arke.Config{
		Family:  r.Family,
		Layout:  layout,
		Version: r.Version,
		Restarter: arke.RestartFunc(func() {
			logger.Debug("node engine halted", "address", int(id.Address()))
		}),
		Logger: logger,
	}, mc, clock, id)
	if err != nil {
		return err
	}
	logger.Info("node started",
		"family", r.Family.Name,
		"address", int(e.Address()),
		"version", r.Version.String(),
	)
	if r.Started != nil {
		r.Started(e)
	}

	interval := r.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		for {
			in, ok, err := e.Poll()
			if err != nil {
				return err
			}
			if !ok {
				break
			}
			if r.Application != nil {
				r.Application.Handle(e, in)
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
