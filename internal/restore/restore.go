// Package restore applies a stored topology layout to currently open windows.
package restore

import (
	"log/slog"
	"math"

	"github.com/persistwin/persistwin/internal/snapshot"
	"github.com/persistwin/persistwin/internal/topology"
)

// Placer mutates one window's geometry and show state. Implemented by the X11
// connection; faked in tests.
type Placer interface {
	ApplyPlacement(id uint32, rect topology.Rect, state snapshot.ShowState) error
}

// Placement is one computed window placement.
type Placement struct {
	WindowID uint32
	Identity snapshot.Identity
	Rect     topology.Rect
	State    snapshot.ShowState
}

// Failure is one placement that could not be applied.
type Failure struct {
	Placement
	Err error
}

// Report collects per-window outcomes of one restoration pass. A failed
// window never aborts the rest.
type Report struct {
	Applied   []Placement
	Failed    []Failure
	Unmatched int
}

// Engine matches live windows against stored records and applies geometry.
type Engine struct {
	placer Placer
	logger *slog.Logger
}

// NewEngine creates a restoration engine.
func NewEngine(placer Placer, logger *slog.Logger) *Engine {
	return &Engine{placer: placer, logger: logger}
}

// Apply restores the stored records onto the live windows, remapping each
// saved rectangle into the live topology's coordinate space. Live windows
// without a matching record are left untouched.
func (e *Engine) Apply(records []snapshot.Record, live []snapshot.Window, monitors []topology.Monitor) Report {
	matched := match(records, live)

	var report Report
	for _, w := range live {
		rec, ok := matched[w.ID]
		if !ok {
			report.Unmatched++
			continue
		}

		placement := Placement{
			WindowID: w.ID,
			Identity: w.Identity,
			Rect:     Remap(*rec, monitors),
			State:    rec.State,
		}

		if err := e.placer.ApplyPlacement(placement.WindowID, placement.Rect, placement.State); err != nil {
			e.logger.Warn("failed to restore window",
				"window", w.Identity.String(),
				"error", err)
			report.Failed = append(report.Failed, Failure{Placement: placement, Err: err})
			continue
		}

		e.logger.Debug("restored window",
			"window", w.Identity.String(),
			"rect", placement.Rect.String(),
			"state", placement.State.String())
		report.Applied = append(report.Applied, placement)
	}

	return report
}

// Remap converts a saved rectangle into the live topology's coordinate space.
// The window keeps its offset from its assigned monitor's origin; when the
// save-time and apply-time DPI scales differ, offset and size scale
// proportionally. The result is clamped so it never lands entirely outside
// every live monitor.
func Remap(rec snapshot.Record, monitors []topology.Monitor) topology.Rect {
	if len(monitors) == 0 {
		return rec.Rect
	}

	target := monitorByName(monitors, rec.Monitor)
	if target == nil {
		// Assigned monitor is gone. Keep the absolute rect when it still
		// lands on a live monitor, otherwise fall back to the primary.
		for i := range monitors {
			if monitors[i].Rect.Intersects(rec.Rect) {
				return rec.Rect
			}
		}
		target = primaryOf(monitors)
	}

	width := rec.Rect.Width()
	height := rec.Rect.Height()
	offsetX := rec.OffsetX
	offsetY := rec.OffsetY

	if rec.Scale > 0 && target.Scale > 0 && rec.Scale != target.Scale {
		ratio := target.Scale / rec.Scale
		width = scaleDim(width, ratio)
		height = scaleDim(height, ratio)
		offsetX = int(math.Round(float64(offsetX) * ratio))
		offsetY = int(math.Round(float64(offsetY) * ratio))
	}

	out := topology.Rect{
		Left:   target.Rect.Left + offsetX,
		Top:    target.Rect.Top + offsetY,
		Right:  target.Rect.Left + offsetX + width,
		Bottom: target.Rect.Top + offsetY + height,
	}

	// Clamp only stale geometry: a rect that still touches any live monitor
	// is kept as computed, including ones deliberately spanning monitors.
	for i := range monitors {
		if monitors[i].Rect.Intersects(out) {
			return out
		}
	}
	return clampToMonitor(out, *target)
}

func monitorByName(monitors []topology.Monitor, name string) *topology.Monitor {
	if name == "" {
		return nil
	}
	for i := range monitors {
		if monitors[i].Name == name {
			return &monitors[i]
		}
	}
	return nil
}

func primaryOf(monitors []topology.Monitor) *topology.Monitor {
	for i := range monitors {
		if monitors[i].Primary {
			return &monitors[i]
		}
	}
	return &monitors[0]
}

// clampToMonitor shifts the rect so at least its origin area is visible on
// the monitor, shrinking only when it exceeds the monitor entirely.
func clampToMonitor(r topology.Rect, mon topology.Monitor) topology.Rect {
	width := min(r.Width(), mon.Rect.Width())
	height := min(r.Height(), mon.Rect.Height())

	left := min(r.Left, mon.Rect.Right-width)
	left = max(left, mon.Rect.Left)
	top := min(r.Top, mon.Rect.Bottom-height)
	top = max(top, mon.Rect.Top)

	return topology.Rect{
		Left:   left,
		Top:    top,
		Right:  left + width,
		Bottom: top + height,
	}
}

func scaleDim(v int, ratio float64) int {
	out := int(math.Round(float64(v) * ratio))
	if out < 1 {
		out = 1
	}
	return out
}
