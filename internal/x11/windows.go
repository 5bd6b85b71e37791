package x11

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"

	"github.com/persistwin/persistwin/internal/snapshot"
	"github.com/persistwin/persistwin/internal/topology"
)

// EnumerateOptions narrows the window enumeration beyond the built-in
// exclusion policy (untitled, non-normal, unresolvable-process windows).
type EnumerateOptions struct {
	// ExcludeClasses skips windows whose WM_CLASS class matches (case-insensitive).
	ExcludeClasses []string
	// ExcludeTitleSubstrings skips windows whose title contains a substring.
	ExcludeTitleSubstrings []string
}

// SkippedWindow describes one window dropped during enumeration.
type SkippedWindow struct {
	ID     uint32
	Reason string
}

// Enumeration is the outcome of one window enumeration pass. A window that
// cannot be queried lands in Skipped instead of aborting the whole pass.
type Enumeration struct {
	Windows []snapshot.Window
	Skipped []SkippedWindow
}

// ListWindows enumerates all user-manageable top-level windows with their
// identity, geometry in virtual-screen coordinates, and show state.
func (c *Connection) ListWindows(opts EnumerateOptions) (Enumeration, error) {
	clients, err := ewmh.ClientListGet(c.XUtil)
	if err != nil {
		return Enumeration{}, fmt.Errorf("failed to query client list: %w", err)
	}

	var out Enumeration
	for _, id := range clients {
		win, reason := c.queryWindow(id, opts)
		if reason != "" {
			out.Skipped = append(out.Skipped, SkippedWindow{ID: uint32(id), Reason: reason})
			continue
		}
		out.Windows = append(out.Windows, win)
	}

	return out, nil
}

// queryWindow resolves one window into a snapshot.Window. A non-empty reason
// means the window is excluded or could not be queried.
func (c *Connection) queryWindow(id xproto.Window, opts EnumerateOptions) (snapshot.Window, string) {
	if !c.isManageable(id) {
		return snapshot.Window{}, "not a normal window"
	}

	title := c.windowTitle(id)
	if title == "" {
		return snapshot.Window{}, "untitled"
	}
	for _, sub := range opts.ExcludeTitleSubstrings {
		if sub != "" && strings.Contains(title, sub) {
			return snapshot.Window{}, "title excluded"
		}
	}

	class := ""
	if wmClass, err := icccm.WmClassGet(c.XUtil, id); err == nil {
		class = wmClass.Class
	}
	for _, excluded := range opts.ExcludeClasses {
		if strings.EqualFold(class, excluded) {
			return snapshot.Window{}, "class excluded"
		}
	}

	processPath, err := c.processPath(id)
	if err != nil {
		return snapshot.Window{}, fmt.Sprintf("process unresolved: %v", err)
	}

	rect, err := c.windowRect(id)
	if err != nil {
		return snapshot.Window{}, fmt.Sprintf("geometry query failed: %v", err)
	}

	return snapshot.Window{
		ID: uint32(id),
		Identity: snapshot.Identity{
			ProcessPath: processPath,
			Class:       class,
			Title:       title,
		},
		Rect:  rect,
		State: c.showState(id),
	}, ""
}

// isManageable filters out desktop, dock, splash and notification windows.
func (c *Connection) isManageable(id xproto.Window) bool {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, id)
	if err != nil {
		// No type set usually means a plain application window.
		return true
	}
	for _, t := range types {
		switch t {
		case "_NET_WM_WINDOW_TYPE_NORMAL":
			return true
		case "_NET_WM_WINDOW_TYPE_DESKTOP",
			"_NET_WM_WINDOW_TYPE_DOCK",
			"_NET_WM_WINDOW_TYPE_TOOLBAR",
			"_NET_WM_WINDOW_TYPE_MENU",
			"_NET_WM_WINDOW_TYPE_SPLASH",
			"_NET_WM_WINDOW_TYPE_NOTIFICATION":
			return false
		}
	}
	return len(types) == 0
}

func (c *Connection) windowTitle(id xproto.Window) string {
	if name, err := ewmh.WmNameGet(c.XUtil, id); err == nil && name != "" {
		return name
	}
	if name, err := icccm.WmNameGet(c.XUtil, id); err == nil {
		return name
	}
	return ""
}

// processPath resolves the owning process executable via _NET_WM_PID and
// /proc. Windows without a resolvable process are excluded from tracking,
// since the executable path is the primary identity component.
func (c *Connection) processPath(id xproto.Window) (string, error) {
	pid, err := ewmh.WmPidGet(c.XUtil, id)
	if err != nil || pid == 0 {
		return "", fmt.Errorf("no _NET_WM_PID")
	}

	path, err := os.Readlink(fmt.Sprintf("/proc/%d/exe", pid))
	if err != nil {
		return "", fmt.Errorf("failed to read /proc/%d/exe: %w", pid, err)
	}
	return path, nil
}

// windowRect returns the window's client rectangle in root coordinates.
func (c *Connection) windowRect(id xproto.Window) (topology.Rect, error) {
	conn := c.XUtil.Conn()

	geom, err := xproto.GetGeometry(conn, xproto.Drawable(id)).Reply()
	if err != nil {
		return topology.Rect{}, err
	}

	translate, err := xproto.TranslateCoordinates(conn, id, c.Root, 0, 0).Reply()
	if err != nil {
		return topology.Rect{}, err
	}

	x := int(translate.DstX)
	y := int(translate.DstY)
	return topology.Rect{
		Left:   x,
		Top:    y,
		Right:  x + int(geom.Width),
		Bottom: y + int(geom.Height),
	}, nil
}

func (c *Connection) showState(id xproto.Window) snapshot.ShowState {
	states, err := ewmh.WmStateGet(c.XUtil, id)
	if err != nil {
		return snapshot.StateNormal
	}

	maxH, maxV := false, false
	for _, s := range states {
		switch s {
		case "_NET_WM_STATE_HIDDEN":
			return snapshot.StateMinimized
		case "_NET_WM_STATE_MAXIMIZED_HORZ":
			maxH = true
		case "_NET_WM_STATE_MAXIMIZED_VERT":
			maxV = true
		}
	}
	if maxH && maxV {
		return snapshot.StateMaximized
	}
	return snapshot.StateNormal
}

// ApplyPlacement moves a window to the given rectangle and show state.
// Geometry is applied with the window in normal state first, since window
// managers ignore move requests for maximized or iconified windows; the
// target state is applied afterwards.
func (c *Connection) ApplyPlacement(id uint32, rect topology.Rect, state snapshot.ShowState) error {
	win := xproto.Window(id)

	current := c.showState(win)
	if current == snapshot.StateMinimized {
		xproto.MapWindow(c.XUtil.Conn(), win)
	}
	if current == snapshot.StateMaximized {
		if err := c.unmaximize(win); err != nil {
			return fmt.Errorf("failed to unmaximize: %w", err)
		}
	}

	if err := ewmh.MoveresizeWindow(c.XUtil, win, rect.Left, rect.Top, rect.Width(), rect.Height()); err != nil {
		return fmt.Errorf("failed to move window: %w", err)
	}

	switch state {
	case snapshot.StateMaximized:
		if err := ewmh.WmStateReqExtra(c.XUtil, win, ewmh.StateAdd,
			"_NET_WM_STATE_MAXIMIZED_VERT", "_NET_WM_STATE_MAXIMIZED_HORZ", 2); err != nil {
			return fmt.Errorf("failed to maximize: %w", err)
		}
	case snapshot.StateMinimized:
		if err := c.iconify(win); err != nil {
			return fmt.Errorf("failed to minimize: %w", err)
		}
	}

	return nil
}

func (c *Connection) unmaximize(win xproto.Window) error {
	return ewmh.WmStateReqExtra(c.XUtil, win, ewmh.StateRemove,
		"_NET_WM_STATE_MAXIMIZED_VERT", "_NET_WM_STATE_MAXIMIZED_HORZ", 2)
}

// iconify sends the ICCCM WM_CHANGE_STATE client message. EWMH has no direct
// minimize request; _NET_WM_STATE_HIDDEN is read-only for clients.
func (c *Connection) iconify(win xproto.Window) error {
	atom, err := xprop.Atm(c.XUtil, "WM_CHANGE_STATE")
	if err != nil {
		return err
	}

	cm, err := xevent.NewClientMessage(32, win, atom, icccm.StateIconic)
	if err != nil {
		return err
	}

	return xproto.SendEventChecked(c.XUtil.Conn(), false, c.Root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(cm.Bytes())).Check()
}
