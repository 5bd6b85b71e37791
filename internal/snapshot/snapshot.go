// Package snapshot defines the window records persisted per display topology
// and builds them from live window enumerations.
package snapshot

import (
	"fmt"

	"github.com/persistwin/persistwin/internal/topology"
)

// ShowState is the window show state captured alongside geometry.
type ShowState int

const (
	StateNormal ShowState = iota
	StateMinimized
	StateMaximized
)

func (s ShowState) String() string {
	switch s {
	case StateMinimized:
		return "minimized"
	case StateMaximized:
		return "maximized"
	default:
		return "normal"
	}
}

// Identity re-identifies a window across process lifetimes. X11 window IDs are
// recycled, so identity is reconstructed from the owning process executable,
// the WM_CLASS class name and the title. The title is a tie-breaker only,
// since titles mutate.
type Identity struct {
	ProcessPath string
	Class       string
	Title       string
}

// Key returns the full identity key (path + class + title).
func (id Identity) Key() string {
	return id.ProcessPath + "\x00" + id.Class + "\x00" + id.Title
}

// PairKey returns the title-insensitive key (path + class), used as the
// fallback match when a title has drifted.
func (id Identity) PairKey() string {
	return id.ProcessPath + "\x00" + id.Class
}

func (id Identity) String() string {
	return fmt.Sprintf("%s [%s] %q", id.ProcessPath, id.Class, id.Title)
}

// Window is a live top-level window as produced by the enumerator. The X11
// window ID is only valid for the current enumeration and is never persisted.
type Window struct {
	ID       uint32
	Identity Identity
	Rect     topology.Rect
	State    ShowState
}

// Record is the persisted form of one window under one topology fingerprint.
// Besides the absolute rectangle it keeps the offset from the owning monitor's
// origin and that monitor's scale, so the position can be re-derived when the
// absolute coordinates no longer make sense on the target topology.
type Record struct {
	Identity Identity
	Rect     topology.Rect
	State    ShowState

	// Monitor is the name of the output that owned the window at capture time.
	Monitor string
	// OffsetX/OffsetY is the rect origin relative to that monitor's origin.
	OffsetX int
	OffsetY int
	// Scale is the owning monitor's DPI scale at capture time.
	Scale float64
}

// Build converts a live enumeration into records for persistence. Duplicate
// identities collapse to the last observed window. Each record is annotated
// with its owning monitor so restoration can remap across topologies. The
// result order follows the enumeration order of the surviving windows.
func Build(windows []Window, monitors []topology.Monitor) []Record {
	records := make([]Record, 0, len(windows))
	index := make(map[string]int, len(windows))

	for _, w := range windows {
		rec := Record{
			Identity: w.Identity,
			Rect:     w.Rect,
			State:    w.State,
			Scale:    1.0,
		}

		if mon := topology.MonitorFor(monitors, w.Rect); mon != nil {
			rec.Monitor = mon.Name
			rec.OffsetX = w.Rect.Left - mon.Rect.Left
			rec.OffsetY = w.Rect.Top - mon.Rect.Top
			if mon.Scale > 0 {
				rec.Scale = mon.Scale
			}
		}

		key := w.Identity.Key()
		if i, seen := index[key]; seen {
			records[i] = rec
			continue
		}
		index[key] = len(records)
		records = append(records, rec)
	}

	return records
}
