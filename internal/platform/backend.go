// Package platform is the window-system boundary the daemon talks to. The
// daemon only sees this interface, so its event handling runs against fakes
// in tests.
package platform

import (
	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/evepreview/internal/font"
	"github.com/1broseidon/evepreview/internal/geometry"
	"github.com/1broseidon/evepreview/internal/preview"
	"github.com/1broseidon/evepreview/internal/x11"
)

// Backend abstracts the X server operations the preview daemon needs.
type Backend interface {
	Root() xproto.Window
	Atoms() x11.Atoms

	// WaitForEvent blocks for the next event or asynchronous error. Both nil
	// means the connection is gone.
	WaitForEvent() (xgb.Event, xgb.Error)

	WindowTitle(win xproto.Window) (string, error)
	WindowPID(win xproto.Window) (uint32, error)
	// WindowClass returns the class part of WM_CLASS, or "" when unset.
	WindowClass(win xproto.Window) string
	IsMinimized(win xproto.Window) (bool, error)
	Geometry(win xproto.Window) (geometry.Rect, error)
	Depth(win xproto.Window) (byte, error)
	ActiveWindow() (xproto.Window, error)
	TopLevelWindows() ([]xproto.Window, error)
	Monitors() ([]x11.Monitor, error)
	SelectInput(win xproto.Window, mask uint32) error
	Minimize(win xproto.Window) error
	Activate(win xproto.Window, ts xproto.Timestamp) error

	ResolveFont(path string, size float64) (*font.Renderer, error)
	NewSurface(identity string, src xproto.Window, depth byte, style *preview.Style, pos geometry.Position, dims geometry.Dimensions) (preview.Surface, error)

	// Flush waits until the server has processed every request.
	Flush()
}
