package x11

import (
	"sync"

	"github.com/persistwin/persistwin/internal/snapshot"
)

// TrackedWindows binds a Connection to enumeration options so callers that
// only need the tracked set can enumerate without carrying config. Options
// can be swapped at runtime on config reload.
type TrackedWindows struct {
	conn *Connection

	mu   sync.RWMutex
	opts EnumerateOptions
}

func NewTrackedWindows(conn *Connection, opts EnumerateOptions) *TrackedWindows {
	return &TrackedWindows{conn: conn, opts: opts}
}

func (t *TrackedWindows) ListWindows() ([]snapshot.Window, error) {
	t.mu.RLock()
	opts := t.opts
	t.mu.RUnlock()

	enum, err := t.conn.ListWindows(opts)
	if err != nil {
		return nil, err
	}
	return enum.Windows, nil
}

// UpdateOptions replaces the enumeration options (thread-safe).
func (t *TrackedWindows) UpdateOptions(opts EnumerateOptions) {
	t.mu.Lock()
	t.opts = opts
	t.mu.Unlock()
}
