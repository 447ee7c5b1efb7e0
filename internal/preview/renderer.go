// Package preview owns the preview windows: the X resources behind each one
// (Renderer), its off-screen overlay, and the per-thumbnail state machine.
package preview

import (
	"fmt"
	"os"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/evepreview/internal/config"
	"github.com/1broseidon/evepreview/internal/font"
	"github.com/1broseidon/evepreview/internal/geometry"
	"github.com/1broseidon/evepreview/internal/x11"
)

// WMClass is set on every preview window so window rules can target them.
const WMClass = "evepreview\x00evepreview\x00"

const scaleFilter = "bilinear"

// Style is the display configuration and font every thumbnail draws with.
// It is shared by pointer and swapped as a whole when a profile is applied.
type Style struct {
	Display *config.DisplayConfig
	Font    *font.Renderer
}

// Surface is the protocol side of a thumbnail.
type Surface interface {
	Window() xproto.Window
	Source() xproto.Window
	Damage() damage.Damage
	Parent() xproto.Window
	SetParent(parent xproto.Window)

	Geometry() (geometry.Rect, error)
	Update(name string) error
	SubtractDamage() error
	DrawBorder(name string, focused, skipped bool) error
	UpdateName(name string, focused bool) error
	DrawMinimized(name string, skipped bool) error
	Reposition(pos geometry.Position) error
	Resize(dims geometry.Dimensions) error
	Map() error
	Unmap() error
	Activate(ts xproto.Timestamp) error
	SetStyle(style *Style) error
	Close() error
}

// Renderer owns the preview window, the source and destination pictures, the
// damage object and the overlay for one source window.
type Renderer struct {
	x        *x11.Connection
	identity string
	style    *Style
	dims     geometry.Dimensions

	src      xproto.Window
	srcDepth byte
	parent   xproto.Window

	window     xproto.Window
	srcPicture render.Picture
	dstPicture render.Picture
	damage     damage.Damage
	canvas     *xCanvas
	overlay    *overlay

	teardown x11.Cleanup
}

var _ Surface = (*Renderer)(nil)

// NewRenderer creates the preview for src. Every resource created before a
// failing step is released in reverse order, the preview window included.
func NewRenderer(x *x11.Connection, identity string, src xproto.Window, srcDepth byte, style *Style, pos geometry.Position, dims geometry.Dimensions) (*Renderer, error) {
	r := &Renderer{
		x:        x,
		identity: identity,
		style:    style,
		dims:     dims,
		src:      src,
		srcDepth: srcDepth,
	}

	var cleanup x11.Cleanup
	defer cleanup.Run()

	if err := r.createWindow(pos, &cleanup); err != nil {
		return nil, err
	}
	if err := r.setProperties(); err != nil {
		return nil, err
	}
	if err := xproto.MapWindowChecked(r.conn(), r.window).Check(); err != nil {
		return nil, fmt.Errorf("map preview window: %w", err)
	}
	if err := r.createPictures(&cleanup); err != nil {
		return nil, err
	}

	// A reparenting window manager wraps the source in a frame; its
	// destruction is what the root sees.
	if parent, err := x.Parent(src); err == nil && parent != x.Root {
		r.parent = parent
	}

	did, err := damage.NewDamageId(r.conn())
	if err != nil {
		return nil, fmt.Errorf("allocate damage id: %w", err)
	}
	if err := damage.CreateChecked(r.conn(), did, xproto.Drawable(src), damage.ReportLevelRawRectangles).Check(); err != nil {
		return nil, fmt.Errorf("create damage: %w", err)
	}
	r.damage = did
	cleanup.Push("damage", func() error { return damage.DestroyChecked(r.conn(), did).Check() })

	cv, err := newXCanvas(x, dims)
	if err != nil {
		return nil, fmt.Errorf("create overlay: %w", err)
	}
	r.canvas = cv
	r.overlay = newOverlay(cv, dims, style)
	cleanup.Push("overlay", func() error { return r.overlay.close() })

	// Ownership moves to the renderer; Close runs the same steps.
	r.teardown = cleanup
	cleanup.Release()
	return r, nil
}

func (r *Renderer) conn() *xgb.Conn {
	return r.x.Conn()
}

func (r *Renderer) createWindow(pos geometry.Position, cleanup *x11.Cleanup) error {
	conn := r.conn()
	screen := r.x.Screen

	wid, err := xproto.NewWindowId(conn)
	if err != nil {
		return fmt.Errorf("allocate window id: %w", err)
	}

	// Value list order follows the mask bits: back pixel, override redirect,
	// event mask.
	err = xproto.CreateWindowChecked(
		conn,
		screen.RootDepth,
		wid,
		r.x.Root,
		pos.X, pos.Y,
		r.dims.Width, r.dims.Height,
		0,
		xproto.WindowClassInputOutput,
		screen.RootVisual,
		xproto.CwBackPixel|xproto.CwOverrideRedirect|xproto.CwEventMask,
		[]uint32{0, 1, x11.RootEventMask},
	).Check()
	if err != nil {
		return fmt.Errorf("create preview window: %w", err)
	}
	r.window = wid
	cleanup.Push("preview window", func() error { return xproto.DestroyWindowChecked(conn, wid).Check() })
	return nil
}

func (r *Renderer) setProperties() error {
	atoms := r.x.Atoms
	props := []struct {
		name   string
		atom   xproto.Atom
		typ    xproto.Atom
		format byte
		data   []byte
	}{
		{"_NET_WM_PID", atoms.NetWMPID, xproto.AtomCardinal, 32, card32(uint32(os.Getpid()))},
		{"_NET_WM_WINDOW_OPACITY", atoms.NetWMWindowOpacity, xproto.AtomCardinal, 32, card32(r.style.Display.Opacity)},
		{"WM_CLASS", atoms.WMClass, xproto.AtomString, 8, []byte(WMClass)},
		{"_NET_WM_STATE", atoms.NetWMState, xproto.AtomAtom, 32, card32(uint32(atoms.NetWMStateAbove))},
	}
	for _, p := range props {
		length := uint32(len(p.data))
		if p.format == 32 {
			length /= 4
		}
		err := xproto.ChangePropertyChecked(r.conn(), xproto.PropModeReplace, r.window,
			p.atom, p.typ, p.format, length, p.data).Check()
		if err != nil {
			return fmt.Errorf("set %s: %w", p.name, err)
		}
	}
	return nil
}

func card32(v uint32) []byte {
	buf := make([]byte, 4)
	xgb.Put32(buf, v)
	return buf
}

func (r *Renderer) createPictures(cleanup *x11.Cleanup) error {
	conn := r.conn()

	srcPic, err := render.NewPictureId(conn)
	if err != nil {
		return fmt.Errorf("allocate picture id: %w", err)
	}
	err = render.CreatePictureChecked(conn, srcPic, xproto.Drawable(r.src),
		r.x.Formats.ForDepth(r.srcDepth), 0, nil).Check()
	if err != nil {
		return fmt.Errorf("create source picture: %w", err)
	}
	r.srcPicture = srcPic
	cleanup.Push("source picture", func() error { return render.FreePictureChecked(conn, srcPic).Check() })

	err = render.SetPictureFilterChecked(conn, srcPic, uint16(len(scaleFilter)), scaleFilter, nil).Check()
	if err != nil {
		return fmt.Errorf("set source filter: %w", err)
	}

	dstPic, err := render.NewPictureId(conn)
	if err != nil {
		return fmt.Errorf("allocate picture id: %w", err)
	}
	err = render.CreatePictureChecked(conn, dstPic, xproto.Drawable(r.window), r.x.Formats.RGB, 0, nil).Check()
	if err != nil {
		return fmt.Errorf("create destination picture: %w", err)
	}
	r.dstPicture = dstPic
	cleanup.Push("destination picture", func() error { return render.FreePictureChecked(conn, dstPic).Check() })
	return nil
}

func (r *Renderer) Window() xproto.Window          { return r.window }
func (r *Renderer) Source() xproto.Window          { return r.src }
func (r *Renderer) Damage() damage.Damage          { return r.damage }
func (r *Renderer) Parent() xproto.Window          { return r.parent }
func (r *Renderer) SetParent(parent xproto.Window) { r.parent = parent }

// Geometry returns the preview window's rectangle in root coordinates.
func (r *Renderer) Geometry() (geometry.Rect, error) {
	return r.x.Geometry(r.window)
}

// capture scales the source into the preview. A source smaller than 2x2 is
// mid-map or mid-resize and is skipped.
func (r *Renderer) capture(name string) error {
	conn := r.conn()

	if fill, ok := r.style.Display.StaticFill(name); ok {
		return render.FillRectanglesChecked(conn, render.PictOpSrc, r.dstPicture, fill.ToRender(),
			[]xproto.Rectangle{{Width: r.dims.Width, Height: r.dims.Height}}).Check()
	}

	geom, err := xproto.GetGeometry(conn, xproto.Drawable(r.src)).Reply()
	if err != nil {
		return fmt.Errorf("query source geometry: %w", err)
	}
	if geom.Width <= 1 || geom.Height <= 1 {
		return nil
	}

	transform := x11.ScaleTransform(geom.Width, geom.Height, r.dims.Width, r.dims.Height)
	if err := render.SetPictureTransformChecked(conn, r.srcPicture, transform).Check(); err != nil {
		return fmt.Errorf("set transform: %w", err)
	}
	err = render.CompositeChecked(conn, render.PictOpSrc, r.srcPicture, 0, r.dstPicture,
		0, 0, 0, 0, 0, 0, r.dims.Width, r.dims.Height).Check()
	if err != nil {
		return fmt.Errorf("composite source: %w", err)
	}
	return nil
}

// Update recaptures the source and composites the overlay on top.
func (r *Renderer) Update(name string) error {
	if err := r.capture(name); err != nil {
		return err
	}
	err := render.CompositeChecked(r.conn(), render.PictOpOver, r.canvas.picture, 0, r.dstPicture,
		0, 0, 0, 0, 0, 0, r.dims.Width, r.dims.Height).Check()
	if err != nil {
		return fmt.Errorf("composite overlay: %w", err)
	}
	return nil
}

// SubtractDamage acknowledges the pending damage so the server reports the
// next change.
func (r *Renderer) SubtractDamage() error {
	return damage.SubtractChecked(r.conn(), r.damage, 0, 0).Check()
}

func (r *Renderer) DrawBorder(name string, focused, skipped bool) error {
	return r.overlay.drawBorder(name, focused, skipped)
}

func (r *Renderer) UpdateName(name string, focused bool) error {
	return r.overlay.updateName(name, focused)
}

func (r *Renderer) DrawMinimized(name string, skipped bool) error {
	return r.overlay.drawMinimized(name, skipped)
}

// Reposition moves the preview window.
func (r *Renderer) Reposition(pos geometry.Position) error {
	err := xproto.ConfigureWindowChecked(r.conn(), r.window,
		xproto.ConfigWindowX|xproto.ConfigWindowY,
		[]uint32{uint32(int32(pos.X)), uint32(int32(pos.Y))}).Check()
	if err != nil {
		return fmt.Errorf("move preview: %w", err)
	}
	return nil
}

// Resize changes the preview window size and recreates the overlay surface.
func (r *Renderer) Resize(dims geometry.Dimensions) error {
	if dims.IsZero() {
		return fmt.Errorf("invalid preview size %dx%d", dims.Width, dims.Height)
	}
	err := xproto.ConfigureWindowChecked(r.conn(), r.window,
		xproto.ConfigWindowWidth|xproto.ConfigWindowHeight,
		[]uint32{uint32(dims.Width), uint32(dims.Height)}).Check()
	if err != nil {
		return fmt.Errorf("resize preview: %w", err)
	}
	r.dims = dims
	return r.overlay.resize(dims)
}

func (r *Renderer) Map() error {
	return xproto.MapWindowChecked(r.conn(), r.window).Check()
}

func (r *Renderer) Unmap() error {
	return xproto.UnmapWindowChecked(r.conn(), r.window).Check()
}

// Activate asks the window manager to focus the source window.
func (r *Renderer) Activate(ts xproto.Timestamp) error {
	return r.x.Activate(r.src, ts)
}

// SetStyle switches to a new shared style and updates the window opacity.
func (r *Renderer) SetStyle(style *Style) error {
	if style.Display.Opacity != r.style.Display.Opacity {
		err := xproto.ChangePropertyChecked(r.conn(), xproto.PropModeReplace, r.window,
			r.x.Atoms.NetWMWindowOpacity, xproto.AtomCardinal, 32, 1, card32(style.Display.Opacity)).Check()
		if err != nil {
			return fmt.Errorf("set opacity: %w", err)
		}
	}
	r.style = style
	r.overlay.setStyle(style)
	return nil
}

// Close releases every resource. Failures are logged and do not stop the
// remaining steps.
func (r *Renderer) Close() error {
	if err := r.teardown.Run(); err != nil {
		return fmt.Errorf("close preview for %q: %w", r.identity, err)
	}
	return nil
}
