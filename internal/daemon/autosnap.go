package daemon

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/persistwin/persistwin/internal/monitor"
)

// Snapshotter commits the live window layout under the live topology
// fingerprint. The topology monitor implements it.
type Snapshotter interface {
	SnapshotNow(ctx context.Context) error
}

// AutosnapConfig holds configuration for the periodic snapshotter.
type AutosnapConfig struct {
	Interval time.Duration
	Clock    clockwork.Clock
	Logger   *slog.Logger
}

// Autosnap periodically refreshes the stored layout for the current topology.
// Topology-change commits capture whatever the windows look like at the
// moment of the change, which may already be mangled; the periodic pass keeps
// a recent known-good layout in the store.
type Autosnap struct {
	interval time.Duration
	clock    clockwork.Clock
	snap     Snapshotter
	logger   *slog.Logger
}

// NewAutosnap creates a periodic snapshotter.
func NewAutosnap(cfg AutosnapConfig, snap Snapshotter) *Autosnap {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 2 * time.Minute
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Autosnap{
		interval: interval,
		clock:    clock,
		snap:     snap,
		logger:   logger,
	}
}

// Run starts the snapshot loop. Blocks until context is cancelled.
func (a *Autosnap) Run(ctx context.Context) {
	ticker := a.clock.NewTicker(a.interval)
	defer ticker.Stop()

	a.logger.Info("autosnap started", "interval", a.interval)

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("autosnap stopped")
			return
		case <-ticker.Chan():
			a.pass(ctx)
		}
	}
}

// pass performs a single snapshot pass.
func (a *Autosnap) pass(ctx context.Context) {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			a.logger.Error("autosnap panic recovered", "error", err)
		}
	}()

	if err := a.snap.SnapshotNow(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		// A pending topology change owns the next commit; this tick is
		// redundant, not a failure.
		if errors.Is(err, monitor.ErrChangeInProgress) {
			a.logger.Debug("autosnap skipped, topology change pending")
			return
		}
		a.logger.Warn("autosnap pass failed", "error", err)
	}
}
