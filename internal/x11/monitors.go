package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgbutil/ewmh"

	"github.com/persistwin/persistwin/internal/topology"
)

const baseDPI = 96.0

// Monitors retrieves all active monitors using XRandR. The result is an
// immutable snapshot: output name, pixel rectangle, work area, DPI scale and
// primary flag per monitor. An empty result is valid and indicates the
// transient no-monitor state during reconfiguration.
func (c *Connection) Monitors() ([]topology.Monitor, error) {
	conn := c.XUtil.Conn()

	resources, err := randr.GetScreenResources(conn, c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("failed to get screen resources: %w", err)
	}

	var primary randr.Output
	if reply, err := randr.GetOutputPrimary(conn, c.Root).Reply(); err == nil {
		primary = reply.Output
	}

	workArea := c.currentWorkArea()

	var monitors []topology.Monitor
	for i, crtc := range resources.Crtcs {
		crtcInfo, err := randr.GetCrtcInfo(conn, crtc, resources.ConfigTimestamp).Reply()
		if err != nil {
			continue
		}
		// Skip disabled CRTCs.
		if crtcInfo.Width == 0 || crtcInfo.Height == 0 || len(crtcInfo.Outputs) == 0 {
			continue
		}

		output := crtcInfo.Outputs[0]
		name := fmt.Sprintf("Monitor%d", i)
		scale := 1.0
		if outputInfo, err := randr.GetOutputInfo(conn, output, resources.ConfigTimestamp).Reply(); err == nil {
			name = string(outputInfo.Name)
			scale = scaleFor(int(crtcInfo.Width), int(outputInfo.MmWidth))
		}

		rect := topology.Rect{
			Left:   int(crtcInfo.X),
			Top:    int(crtcInfo.Y),
			Right:  int(crtcInfo.X) + int(crtcInfo.Width),
			Bottom: int(crtcInfo.Y) + int(crtcInfo.Height),
		}

		monitors = append(monitors, topology.Monitor{
			Name:     name,
			Rect:     rect,
			WorkArea: intersectWorkArea(rect, workArea),
			Scale:    scale,
			Primary:  output == primary,
		})
	}

	return monitors, nil
}

// currentWorkArea returns the _NET_WORKAREA rectangle for the current desktop,
// or an empty rect when the window manager does not publish one.
func (c *Connection) currentWorkArea() topology.Rect {
	workAreas, err := ewmh.WorkareaGet(c.XUtil)
	if err != nil || len(workAreas) == 0 {
		return topology.Rect{}
	}

	idx := 0
	if desktop, err := ewmh.CurrentDesktopGet(c.XUtil); err == nil {
		if int(desktop) >= 0 && int(desktop) < len(workAreas) {
			idx = int(desktop)
		}
	}

	wa := workAreas[idx]
	return topology.Rect{
		Left:   int(wa.X),
		Top:    int(wa.Y),
		Right:  int(wa.X) + int(wa.Width),
		Bottom: int(wa.Y) + int(wa.Height),
	}
}

// intersectWorkArea clips the monitor rect to the desktop work area. The work
// area spans the whole virtual screen, so only the overlapping part applies to
// any one monitor. Falls back to the full monitor rect when they don't overlap.
func intersectWorkArea(monitor, workArea topology.Rect) topology.Rect {
	if workArea.Width() <= 0 || workArea.Height() <= 0 {
		return monitor
	}

	out := topology.Rect{
		Left:   max(monitor.Left, workArea.Left),
		Top:    max(monitor.Top, workArea.Top),
		Right:  min(monitor.Right, workArea.Right),
		Bottom: min(monitor.Bottom, workArea.Bottom),
	}
	if out.Width() <= 0 || out.Height() <= 0 {
		return monitor
	}
	return out
}

// scaleFor derives the DPI scale factor from pixel and physical width.
// Projectors and some KVMs report zero millimeters; treat those as 1.0.
func scaleFor(pixels, mm int) float64 {
	if pixels <= 0 || mm <= 0 {
		return 1.0
	}
	dpi := float64(pixels) * 25.4 / float64(mm)
	return dpi / baseDPI
}
