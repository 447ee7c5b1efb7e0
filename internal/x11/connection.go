package x11

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/composite"
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
)

// ErrMissingExtension is returned by NewConnection when the server lacks an
// extension the preview engine cannot work without.
var ErrMissingExtension = errors.New("required X extension unavailable")

// Connection manages the X11 connection, the selected screen and the atoms
// and picture formats resolved once at startup.
type Connection struct {
	XUtil   *xgbutil.XUtil
	Root    xproto.Window
	Screen  *xproto.ScreenInfo
	Atoms   Atoms
	Formats Formats

	hasComposite bool
}

// NewConnection connects to the display named by $DISPLAY and initializes
// RENDER and DAMAGE. A missing RENDER or DAMAGE extension is fatal.
func NewConnection() (*Connection, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connect to X server: %w", err)
	}

	c := &Connection{
		XUtil:  xu,
		Root:   xu.RootWin(),
		Screen: xu.Screen(),
	}

	if err := c.initExtensions(); err != nil {
		xu.Conn().Close()
		return nil, err
	}

	if c.Atoms, err = internAtoms(xu); err != nil {
		xu.Conn().Close()
		return nil, err
	}

	reply, err := render.QueryPictFormats(xu.Conn()).Reply()
	if err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("query picture formats: %w", err)
	}
	if c.Formats, err = selectFormats(reply.Formats, c.Screen.RootDepth); err != nil {
		xu.Conn().Close()
		return nil, err
	}

	return c, nil
}

func (c *Connection) initExtensions() error {
	conn := c.XUtil.Conn()

	if err := render.Init(conn); err != nil {
		return fmt.Errorf("%w: RENDER: %v", ErrMissingExtension, err)
	}
	if err := damage.Init(conn); err != nil {
		return fmt.Errorf("%w: DAMAGE: %v", ErrMissingExtension, err)
	}
	if _, err := damage.QueryVersion(conn, 1, 1).Reply(); err != nil {
		return fmt.Errorf("%w: DAMAGE version negotiation: %v", ErrMissingExtension, err)
	}

	// COMPOSITE is optional: without a compositing manager, unmapped sources
	// simply stop producing content.
	if err := composite.Init(conn); err == nil {
		if _, err := composite.QueryVersion(conn, 0, 4).Reply(); err == nil {
			c.hasComposite = true
		}
	}
	return nil
}

// Conn returns the raw xgb connection.
func (c *Connection) Conn() *xgb.Conn {
	return c.XUtil.Conn()
}

// HasComposite reports whether the COMPOSITE extension was negotiated.
func (c *Connection) HasComposite() bool {
	return c.hasComposite
}

// SelectRootEvents subscribes to top-level window creation and destruction
// and, where the window manager allows it, to pointer events on the root.
func (c *Connection) SelectRootEvents() error {
	err := xproto.ChangeWindowAttributesChecked(c.Conn(), c.Root, xproto.CwEventMask,
		[]uint32{xproto.EventMaskSubstructureNotify}).Check()
	if err != nil {
		return fmt.Errorf("select root substructure events: %w", err)
	}

	// Most window managers already hold ButtonPress on the root and the server
	// answers with BadAccess. Preview windows select their own pointer events,
	// so this is best effort.
	_ = xproto.ChangeWindowAttributesChecked(c.Conn(), c.Root, xproto.CwEventMask,
		[]uint32{RootEventMask}).Check()
	return nil
}

// Sync waits for the server to process every request sent so far.
func (c *Connection) Sync() {
	_, _ = xproto.GetInputFocus(c.Conn()).Reply()
}

// Close cleanly disconnects from the X11 server
func (c *Connection) Close() {
	c.XUtil.Conn().Close()
}
