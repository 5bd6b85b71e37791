// Package monitor drives snapshot/restore cycles from display-change
// notifications. The state machine is explicit and all of its collaborators
// are injected, so tests can feed notification sequences against a fake clock
// without a real X server.
package monitor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/persistwin/persistwin/internal/restore"
	"github.com/persistwin/persistwin/internal/snapshot"
	"github.com/persistwin/persistwin/internal/topology"
)

// Notification is a raw OS change notification. Notifications carry no
// payload; they only re-arm the debounce.
type Notification int

const (
	// DisplayChanged signals a display configuration change (RandR).
	DisplayChanged Notification = iota
	// WindowChanged signals a window move/resize.
	WindowChanged
)

// State is the monitor's processing state.
type State int

const (
	StateIdle State = iota
	StateDebouncing
	StateCommitting
)

func (s State) String() string {
	switch s {
	case StateDebouncing:
		return "debouncing"
	case StateCommitting:
		return "committing"
	default:
		return "idle"
	}
}

// TopologyProvider queries the live monitor set.
type TopologyProvider interface {
	Monitors() ([]topology.Monitor, error)
}

// WindowSource enumerates the live manageable windows.
type WindowSource interface {
	ListWindows() ([]snapshot.Window, error)
}

// Store is the durable per-topology layout store.
type Store interface {
	UpsertLayout(fp topology.Fingerprint, monitors []topology.Monitor, records []snapshot.Record) error
	GetLayout(fp topology.Fingerprint) ([]snapshot.Record, bool, error)
}

// Restorer applies stored records to live windows.
type Restorer interface {
	Apply(records []snapshot.Record, live []snapshot.Window, monitors []topology.Monitor) restore.Report
}

// Config holds the monitor's tunables and injected dependencies.
type Config struct {
	// Debounce is how long to wait after the last raw notification before
	// committing. A single physical topology change produces a burst of
	// notifications; committing on each would thrash the store and race the
	// window manager.
	Debounce time.Duration
	Clock    clockwork.Clock
	Logger   *slog.Logger
}

const defaultDebounce = 750 * time.Millisecond

// Monitor owns the event-processing loop. All window enumeration,
// fingerprinting and geometry mutation happen on the loop goroutine; the
// debounce timer is the only asynchronous primitive.
type Monitor struct {
	topo     TopologyProvider
	windows  WindowSource
	store    Store
	restorer Restorer

	clock    clockwork.Clock
	debounce time.Duration
	logger   *slog.Logger

	notify   chan Notification
	requests chan request

	mu    sync.Mutex
	state State
	last  *topology.Snapshot
}

type request struct {
	fn   func()
	done chan struct{}
}

// New creates a monitor. Zero-value config fields fall back to a real clock
// and the default debounce.
func New(topo TopologyProvider, windows WindowSource, store Store, restorer Restorer, cfg Config) *Monitor {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Monitor{
		topo:     topo,
		windows:  windows,
		store:    store,
		restorer: restorer,
		clock:    clock,
		debounce: debounce,
		logger:   logger,
		notify:   make(chan Notification, 64),
		requests: make(chan request),
	}
}

// Init seeds the last-known topology from the live one. The very first
// observation never restores: a fresh process has no "previous" layout to
// commit, and restoring against an unverified startup state would misfire.
func (m *Monitor) Init() error {
	monitors, err := m.topo.Monitors()
	if err != nil {
		return err
	}

	snap, err := topology.Capture(monitors)
	if err != nil {
		// Started during the transient no-monitor state; the first commit
		// cycle will establish the baseline instead.
		m.logger.Warn("startup topology unavailable", "error", err)
		return nil
	}

	m.setLast(&snap)
	m.logger.Info("initial topology",
		"fingerprint", snap.Fingerprint.Short(),
		"monitors", len(snap.Monitors))
	return nil
}

// Notify feeds one raw notification into the loop. Never blocks; when the
// buffer is full a burst is already pending and the extra event coalesces
// into it.
func (m *Monitor) Notify(n Notification) {
	select {
	case m.notify <- n:
	default:
	}
}

// Run processes notifications until the context is cancelled. An in-flight
// commit always runs to completion; notifications arriving meanwhile queue up
// and re-enter Debouncing afterwards.
func (m *Monitor) Run(ctx context.Context) {
	var timer clockwork.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case <-m.notify:
			m.setState(StateDebouncing)
			if timer == nil {
				timer = m.clock.NewTimer(m.debounce)
				fire = timer.Chan()
			} else {
				timer.Reset(m.debounce)
			}

		case <-fire:
			m.commit()

		case req := <-m.requests:
			req.fn()
			close(req.done)
		}
	}
}

// commit is the Committing phase: decide whether the topology really changed,
// persist the outgoing layout under the old fingerprint, and apply the
// incoming one if known. No failure here is fatal; the monitor always returns
// to Idle and keeps observing.
func (m *Monitor) commit() {
	m.setState(StateCommitting)
	defer m.setState(StateIdle)

	monitors, err := m.topo.Monitors()
	if err != nil {
		m.logger.Error("failed to query monitors", "error", err)
		return
	}

	snap, err := topology.Capture(monitors)
	if err != nil {
		// Transient dummy-display state: never persist or restore against it.
		m.logger.Warn("topology unavailable, skipping cycle")
		return
	}

	last := m.lastSnapshot()
	if last != nil && last.Fingerprint == snap.Fingerprint {
		m.logger.Debug("topology unchanged, discarding burst",
			"fingerprint", snap.Fingerprint.Short())
		return
	}

	if last == nil {
		// No baseline yet (started while no monitors were reported).
		m.setLast(&snap)
		m.logger.Info("topology baseline established",
			"fingerprint", snap.Fingerprint.Short())
		return
	}

	m.logger.Info("topology changed",
		"old", last.Fingerprint.Short(),
		"new", snap.Fingerprint.Short(),
		"monitors", len(snap.Monitors))

	live, err := m.windows.ListWindows()
	if err != nil {
		m.logger.Error("window enumeration failed", "error", err)
		m.setLast(&snap)
		return
	}

	// Commit the outgoing layout under the old fingerprint. A failed write
	// is logged and skipped; stale data beats a crashed monitor.
	records := snapshot.Build(live, last.Monitors)
	if err := m.store.UpsertLayout(last.Fingerprint, last.Monitors, records); err != nil {
		m.logger.Error("failed to commit outgoing layout",
			"fingerprint", last.Fingerprint.Short(),
			"error", err)
	}

	// Apply the incoming layout if this topology has been seen before. A
	// read failure degrades to "no layout": windows are left alone.
	stored, found, err := m.store.GetLayout(snap.Fingerprint)
	if err != nil {
		m.logger.Error("failed to read incoming layout",
			"fingerprint", snap.Fingerprint.Short(),
			"error", err)
		found = false
	}
	if found {
		report := m.restorer.Apply(stored, live, snap.Monitors)
		m.logger.Info("layout restored",
			"fingerprint", snap.Fingerprint.Short(),
			"applied", len(report.Applied),
			"failed", len(report.Failed),
			"unmatched", report.Unmatched)
	} else {
		m.logger.Info("no stored layout for topology",
			"fingerprint", snap.Fingerprint.Short())
	}

	m.setLast(&snap)
}

// do runs fn on the loop goroutine and waits for it. Window manipulation is
// thread-affine, so manual operations funnel through the same loop that
// handles commits.
func (m *Monitor) do(ctx context.Context, fn func()) error {
	req := request{fn: fn, done: make(chan struct{})}
	select {
	case m.requests <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SnapshotNow commits the live windows under the live fingerprint,
// bypassing debounce. Returns ErrChangeInProgress while a topology change is
// being debounced. Exposed to the IPC surface for manual triggers and to the
// periodic snapshotter.
func (m *Monitor) SnapshotNow(ctx context.Context) error {
	var err error
	if doErr := m.do(ctx, func() { err = m.snapshotNow() }); doErr != nil {
		return doErr
	}
	return err
}

func (m *Monitor) snapshotNow() error {
	// Runs on the loop goroutine, so the state is exact: Debouncing means a
	// commit is pending and the live geometry cannot be trusted.
	if state, _ := m.Status(); state != StateIdle {
		return ErrChangeInProgress
	}

	monitors, err := m.topo.Monitors()
	if err != nil {
		return err
	}
	snap, err := topology.Capture(monitors)
	if err != nil {
		return err
	}

	live, err := m.windows.ListWindows()
	if err != nil {
		return err
	}

	records := snapshot.Build(live, snap.Monitors)
	if err := m.store.UpsertLayout(snap.Fingerprint, snap.Monitors, records); err != nil {
		return err
	}

	m.setLast(&snap)
	m.logger.Info("snapshot committed",
		"fingerprint", snap.Fingerprint.Short(),
		"windows", len(records))
	return nil
}

// RestoreNow applies the stored layout for the live fingerprint, bypassing
// debounce.
func (m *Monitor) RestoreNow(ctx context.Context) error {
	var err error
	if doErr := m.do(ctx, func() { err = m.restoreNow() }); doErr != nil {
		return doErr
	}
	return err
}

func (m *Monitor) restoreNow() error {
	monitors, err := m.topo.Monitors()
	if err != nil {
		return err
	}
	snap, err := topology.Capture(monitors)
	if err != nil {
		return err
	}

	stored, found, err := m.store.GetLayout(snap.Fingerprint)
	if err != nil {
		return err
	}
	if !found {
		return &NoLayoutError{Fingerprint: snap.Fingerprint}
	}

	live, err := m.windows.ListWindows()
	if err != nil {
		return err
	}

	report := m.restorer.Apply(stored, live, snap.Monitors)
	m.logger.Info("manual restore",
		"fingerprint", snap.Fingerprint.Short(),
		"applied", len(report.Applied),
		"failed", len(report.Failed),
		"unmatched", report.Unmatched)
	return nil
}

// CurrentTopology queries the live topology on the loop goroutine.
func (m *Monitor) CurrentTopology(ctx context.Context) (topology.Snapshot, error) {
	var snap topology.Snapshot
	var err error
	if doErr := m.do(ctx, func() {
		var monitors []topology.Monitor
		monitors, err = m.topo.Monitors()
		if err != nil {
			return
		}
		snap, err = topology.Capture(monitors)
	}); doErr != nil {
		return topology.Snapshot{}, doErr
	}
	return snap, err
}

// Status reports the monitor's current state and last-known fingerprint.
func (m *Monitor) Status() (State, topology.Fingerprint) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var fp topology.Fingerprint
	if m.last != nil {
		fp = m.last.Fingerprint
	}
	return m.state, fp
}

func (m *Monitor) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Monitor) lastSnapshot() *topology.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

func (m *Monitor) setLast(snap *topology.Snapshot) {
	m.mu.Lock()
	m.last = snap
	m.mu.Unlock()
}
