package topology

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnavailable is returned when the display server reports zero monitors.
// This is the transient state some drivers enter while reconfiguring outputs;
// nothing must be persisted or restored against it.
var ErrUnavailable = errors.New("topology unavailable: no monitors reported")

// Rect is a rectangle in virtual-screen (root window) coordinates.
type Rect struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
}

// Width returns the rectangle width in pixels.
func (r Rect) Width() int {
	return r.Right - r.Left
}

// Height returns the rectangle height in pixels.
func (r Rect) Height() int {
	return r.Bottom - r.Top
}

// Contains reports whether the point (x, y) lies inside the rectangle.
func (r Rect) Contains(x, y int) bool {
	return x >= r.Left && x < r.Right && y >= r.Top && y < r.Bottom
}

// Intersects reports whether r and other share any area.
func (r Rect) Intersects(other Rect) bool {
	return r.Left < other.Right && other.Left < r.Right &&
		r.Top < other.Bottom && other.Top < r.Bottom
}

func (r Rect) String() string {
	return fmt.Sprintf("%dx%d+%d+%d", r.Width(), r.Height(), r.Left, r.Top)
}

// Monitor is an immutable snapshot of one display device at a single instant.
type Monitor struct {
	// Name is the output device identifier (e.g. "DP-1", "HDMI-2").
	Name string
	// Rect is the monitor's pixel area in virtual-screen coordinates.
	Rect Rect
	// WorkArea is the monitor area minus panels and docks.
	WorkArea Rect
	// Scale is the DPI scale factor relative to 96 dpi (1.0 = 96 dpi).
	Scale float64
	// Primary marks the primary output.
	Primary bool
}

// Snapshot is the set of monitors observed at one instant together with the
// fingerprint derived from it.
type Snapshot struct {
	Monitors    []Monitor
	Fingerprint Fingerprint
}

// Capture computes the fingerprint for the given monitor set and bundles both
// into a Snapshot. Returns ErrUnavailable for an empty set.
func Capture(monitors []Monitor) (Snapshot, error) {
	fp, err := Compute(monitors)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Monitors: monitors, Fingerprint: fp}, nil
}

// MonitorAt returns the monitor containing the point (x, y), or nil when the
// point lies outside every monitor.
func MonitorAt(monitors []Monitor, x, y int) *Monitor {
	for i := range monitors {
		if monitors[i].Rect.Contains(x, y) {
			return &monitors[i]
		}
	}
	return nil
}

// MonitorFor returns the monitor that should own the given rectangle: the one
// containing its center, falling back to the nearest monitor by origin
// distance, then the primary, then the first. Returns nil for an empty set.
func MonitorFor(monitors []Monitor, r Rect) *Monitor {
	if len(monitors) == 0 {
		return nil
	}

	cx := r.Left + r.Width()/2
	cy := r.Top + r.Height()/2
	if m := MonitorAt(monitors, cx, cy); m != nil {
		return m
	}

	// Off-screen rect: pick the monitor whose area overlaps it, if any.
	for i := range monitors {
		if monitors[i].Rect.Intersects(r) {
			return &monitors[i]
		}
	}

	for i := range monitors {
		if monitors[i].Primary {
			return &monitors[i]
		}
	}
	return &monitors[0]
}

// canonical returns the monitors in the canonical order used for hashing:
// by rectangle origin, then by name. The input slice is not modified.
func canonical(monitors []Monitor) []Monitor {
	sorted := make([]Monitor, len(monitors))
	copy(sorted, monitors)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Rect.Left != b.Rect.Left {
			return a.Rect.Left < b.Rect.Left
		}
		if a.Rect.Top != b.Rect.Top {
			return a.Rect.Top < b.Rect.Top
		}
		return a.Name < b.Name
	})
	return sorted
}
