package x11

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"

	"github.com/1broseidon/evepreview/internal/geometry"
)

// WindowTitle reads WM_NAME, falling back to _NET_WM_NAME when the legacy
// property is empty. Errors keep their protocol type so IsBadWindow works.
func (c *Connection) WindowTitle(win xproto.Window) (string, error) {
	reply, err := xproto.GetProperty(c.Conn(), false, win, c.Atoms.WMName,
		xproto.GetPropertyTypeAny, 0, 1024).Reply()
	if err != nil {
		return "", fmt.Errorf("get WM_NAME of %#x: %w", win, err)
	}
	if title := strings.TrimRight(string(reply.Value), "\x00"); title != "" {
		return title, nil
	}

	title, err := ewmh.WmNameGet(c.XUtil, win)
	if err != nil {
		// No title at all is not an error.
		if IsBadWindow(err) {
			return "", err
		}
		return "", nil
	}
	return title, nil
}

// WindowPID returns _NET_WM_PID, or 0 when the property is unset.
func (c *Connection) WindowPID(win xproto.Window) (uint32, error) {
	reply, err := xproto.GetProperty(c.Conn(), false, win, c.Atoms.NetWMPID,
		xproto.AtomCardinal, 0, 1).Reply()
	if err != nil {
		return 0, fmt.Errorf("get _NET_WM_PID of %#x: %w", win, err)
	}
	if reply.Format != 32 || len(reply.Value) < 4 {
		return 0, nil
	}
	v := reply.Value
	return uint32(v[0]) | uint32(v[1])<<8 | uint32(v[2])<<16 | uint32(v[3])<<24, nil
}

// WindowClass returns the class part of WM_CLASS, or "" when unset.
func (c *Connection) WindowClass(win xproto.Window) string {
	wmClass, err := icccm.WmClassGet(c.XUtil, win)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(wmClass.Class)
}

// IsMinimized checks _NET_WM_STATE_HIDDEN first and then ICCCM IconicState.
// A vanished window is reported as not minimized.
func (c *Connection) IsMinimized(win xproto.Window) (bool, error) {
	states, err := ewmh.WmStateGet(c.XUtil, win)
	if err == nil {
		for _, state := range states {
			if state == "_NET_WM_STATE_HIDDEN" {
				return true, nil
			}
		}
	} else if IsBadWindow(err) {
		return false, nil
	}

	wmState, err := icccm.WmStateGet(c.XUtil, win)
	if err != nil {
		return false, nil
	}
	return wmState.State == icccm.StateIconic, nil
}

// Geometry returns the window's size and its position translated to root
// coordinates, so reparented clients report where they are on screen.
func (c *Connection) Geometry(win xproto.Window) (geometry.Rect, error) {
	geom, err := xproto.GetGeometry(c.Conn(), xproto.Drawable(win)).Reply()
	if err != nil {
		return geometry.Rect{}, fmt.Errorf("get geometry of %#x: %w", win, err)
	}

	translate, err := xproto.TranslateCoordinates(c.Conn(), win, c.Root, 0, 0).Reply()
	if err != nil {
		return geometry.Rect{}, fmt.Errorf("translate coordinates of %#x: %w", win, err)
	}

	return geometry.Rect{
		X:      translate.DstX,
		Y:      translate.DstY,
		Width:  geom.Width,
		Height: geom.Height,
	}, nil
}

// Depth returns the window's pixel depth.
func (c *Connection) Depth(win xproto.Window) (byte, error) {
	geom, err := xproto.GetGeometry(c.Conn(), xproto.Drawable(win)).Reply()
	if err != nil {
		return 0, fmt.Errorf("get depth of %#x: %w", win, err)
	}
	return geom.Depth, nil
}

// Parent returns the window's parent. For reparenting window managers this is
// the frame, not the root.
func (c *Connection) Parent(win xproto.Window) (xproto.Window, error) {
	tree, err := xproto.QueryTree(c.Conn(), win).Reply()
	if err != nil {
		return 0, fmt.Errorf("query tree of %#x: %w", win, err)
	}
	return tree.Parent, nil
}

// TopLevelWindows returns the EWMH client list, or the root's children when
// the window manager does not publish one.
func (c *Connection) TopLevelWindows() ([]xproto.Window, error) {
	if clients, err := ewmh.ClientListGet(c.XUtil); err == nil && len(clients) > 0 {
		return clients, nil
	}
	tree, err := xproto.QueryTree(c.Conn(), c.Root).Reply()
	if err != nil {
		return nil, fmt.Errorf("query root tree: %w", err)
	}
	return tree.Children, nil
}

// SelectInput replaces the event mask this client holds on win.
func (c *Connection) SelectInput(win xproto.Window, mask uint32) error {
	err := xproto.ChangeWindowAttributesChecked(c.Conn(), win, xproto.CwEventMask, []uint32{mask}).Check()
	if err != nil {
		return fmt.Errorf("select input on %#x: %w", win, err)
	}
	return nil
}

// ActiveWindow returns _NET_ACTIVE_WINDOW.
func (c *Connection) ActiveWindow() (xproto.Window, error) {
	return ewmh.ActiveWindowGet(c.XUtil)
}
