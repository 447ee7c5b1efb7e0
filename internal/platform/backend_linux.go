//go:build linux

package platform

import (
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/evepreview/internal/font"
	"github.com/1broseidon/evepreview/internal/geometry"
	"github.com/1broseidon/evepreview/internal/preview"
	"github.com/1broseidon/evepreview/internal/x11"
)

// LinuxBackend wraps an existing X11 connection behind the platform Backend interface.
type LinuxBackend struct {
	conn *x11.Connection
}

var _ Backend = (*LinuxBackend)(nil)

// NewLinuxBackend creates a Linux platform backend from an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection) *LinuxBackend {
	return &LinuxBackend{conn: conn}
}

// NewLinuxBackendFromDisplay opens a fresh X11 connection, checks the
// required extensions and subscribes to root window events.
func NewLinuxBackendFromDisplay() (*LinuxBackend, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	if err := conn.SelectRootEvents(); err != nil {
		conn.Close()
		return nil, err
	}
	return &LinuxBackend{conn: conn}, nil
}

// Disconnect closes the underlying X11 connection.
func (b *LinuxBackend) Disconnect() {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
}

// Connection returns the wrapped X11 connection.
func (b *LinuxBackend) Connection() *x11.Connection {
	return b.conn
}

func (b *LinuxBackend) Root() xproto.Window {
	return b.conn.Root
}

func (b *LinuxBackend) Atoms() x11.Atoms {
	return b.conn.Atoms
}

func (b *LinuxBackend) WaitForEvent() (xgb.Event, xgb.Error) {
	return b.conn.Conn().WaitForEvent()
}

func (b *LinuxBackend) WindowTitle(win xproto.Window) (string, error) {
	return b.conn.WindowTitle(win)
}

func (b *LinuxBackend) WindowPID(win xproto.Window) (uint32, error) {
	return b.conn.WindowPID(win)
}

func (b *LinuxBackend) IsMinimized(win xproto.Window) (bool, error) {
	return b.conn.IsMinimized(win)
}

func (b *LinuxBackend) Geometry(win xproto.Window) (geometry.Rect, error) {
	return b.conn.Geometry(win)
}

func (b *LinuxBackend) Depth(win xproto.Window) (byte, error) {
	return b.conn.Depth(win)
}

func (b *LinuxBackend) ActiveWindow() (xproto.Window, error) {
	return b.conn.ActiveWindow()
}

func (b *LinuxBackend) TopLevelWindows() ([]xproto.Window, error) {
	return b.conn.TopLevelWindows()
}

func (b *LinuxBackend) Monitors() ([]x11.Monitor, error) {
	return b.conn.GetMonitors()
}

func (b *LinuxBackend) WindowClass(win xproto.Window) string {
	return b.conn.WindowClass(win)
}

func (b *LinuxBackend) SelectInput(win xproto.Window, mask uint32) error {
	return b.conn.SelectInput(win, mask)
}

// Minimize asks the window manager to iconify a window.
func (b *LinuxBackend) Minimize(win xproto.Window) error {
	return b.conn.Minimize(win)
}

// Activate raises and focuses win through the window manager.
func (b *LinuxBackend) Activate(win xproto.Window, ts xproto.Timestamp) error {
	return b.conn.Activate(win, ts)
}

// ResolveFont loads the overlay font, degrading to the X core font.
func (b *LinuxBackend) ResolveFont(path string, size float64) (*font.Renderer, error) {
	return font.Resolve(b.conn.Conn(), path, size)
}

// NewSurface creates the preview window and its compositing resources.
func (b *LinuxBackend) NewSurface(identity string, src xproto.Window, depth byte, style *preview.Style, pos geometry.Position, dims geometry.Dimensions) (preview.Surface, error) {
	return preview.NewRenderer(b.conn, identity, src, depth, style, pos, dims)
}

func (b *LinuxBackend) Flush() {
	b.conn.Sync()
}
