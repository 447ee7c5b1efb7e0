package preview

import (
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/evepreview/internal/color"
	"github.com/1broseidon/evepreview/internal/font"
	"github.com/1broseidon/evepreview/internal/geometry"
	"github.com/1broseidon/evepreview/internal/x11"
)

// xCanvas is an ARGB pixmap with a RENDER picture on top of it. The GC is
// shared by core text and line drawing.
type xCanvas struct {
	x    *x11.Connection
	dims geometry.Dimensions

	pixmap  xproto.Pixmap
	picture render.Picture
	gc      xproto.Gcontext
}

var _ canvas = (*xCanvas)(nil)

func newXCanvas(x *x11.Connection, dims geometry.Dimensions) (*xCanvas, error) {
	c := &xCanvas{x: x, dims: dims}

	var cleanup x11.Cleanup
	defer cleanup.Run()

	if err := c.createSurface(); err != nil {
		return nil, err
	}
	cleanup.Push("overlay surface", c.freeSurface)

	gc, err := xproto.NewGcontextId(c.conn())
	if err != nil {
		return nil, fmt.Errorf("allocate gc id: %w", err)
	}
	if err := xproto.CreateGCChecked(c.conn(), gc, xproto.Drawable(c.pixmap), 0, nil).Check(); err != nil {
		return nil, fmt.Errorf("create gc: %w", err)
	}
	c.gc = gc

	cleanup.Release()
	return c, nil
}

func (c *xCanvas) conn() *xgb.Conn {
	return c.x.Conn()
}

func (c *xCanvas) createSurface() error {
	conn := c.conn()
	pix, err := xproto.NewPixmapId(conn)
	if err != nil {
		return fmt.Errorf("allocate pixmap id: %w", err)
	}
	err = xproto.CreatePixmapChecked(conn, x11.ARGBDepth, pix, xproto.Drawable(c.x.Root),
		c.dims.Width, c.dims.Height).Check()
	if err != nil {
		return fmt.Errorf("create overlay pixmap: %w", err)
	}

	pic, err := render.NewPictureId(conn)
	if err != nil {
		xproto.FreePixmap(conn, pix)
		return fmt.Errorf("allocate picture id: %w", err)
	}
	err = render.CreatePictureChecked(conn, pic, xproto.Drawable(pix), c.x.Formats.ARGB, 0, nil).Check()
	if err != nil {
		xproto.FreePixmap(conn, pix)
		return fmt.Errorf("create overlay picture: %w", err)
	}

	c.pixmap, c.picture = pix, pic
	return nil
}

func (c *xCanvas) freeSurface() error {
	var first error
	if c.picture != 0 {
		if err := render.FreePictureChecked(c.conn(), c.picture).Check(); err != nil {
			first = fmt.Errorf("free overlay picture: %w", err)
		}
		c.picture = 0
	}
	if c.pixmap != 0 {
		if err := xproto.FreePixmapChecked(c.conn(), c.pixmap).Check(); err != nil && first == nil {
			first = fmt.Errorf("free overlay pixmap: %w", err)
		}
		c.pixmap = 0
	}
	return first
}

// resize recreates the surface at the new size. The GC stays valid because
// the depth does not change.
func (c *xCanvas) resize(dims geometry.Dimensions) error {
	if err := c.freeSurface(); err != nil {
		return err
	}
	c.dims = dims
	return c.createSurface()
}

func (c *xCanvas) clear(r xproto.Rectangle) error {
	return render.FillRectanglesChecked(c.conn(), render.PictOpClear, c.picture, render.Color{},
		[]xproto.Rectangle{r}).Check()
}

func (c *xCanvas) fill(col color.Hex, rects []xproto.Rectangle) error {
	if len(rects) == 0 {
		return nil
	}
	return render.FillRectanglesChecked(c.conn(), render.PictOpSrc, c.picture, col.ToRender(), rects).Check()
}

func (c *xCanvas) lines(col color.Hex, width uint16, segs []xproto.Segment) error {
	err := xproto.ChangeGCChecked(c.conn(), c.gc, xproto.GcForeground|xproto.GcLineWidth,
		[]uint32{col.ARGB32(), uint32(width)}).Check()
	if err != nil {
		return fmt.Errorf("set line gc: %w", err)
	}
	return xproto.PolySegmentChecked(c.conn(), xproto.Drawable(c.pixmap), c.gc, segs).Check()
}

// text draws s with its top-left corner at (x, y).
func (c *xCanvas) text(f *font.Renderer, s string, col color.Hex, x, y int) error {
	if sf, ok := f.ServerFont(); ok {
		return c.serverText(sf, s, col, x, y+f.Ascent())
	}

	bmp, err := f.Render(s, col)
	if err != nil {
		return fmt.Errorf("render text: %w", err)
	}
	if bmp.Empty() {
		return nil
	}
	return c.compositeBitmap(bmp, x, y)
}

func (c *xCanvas) serverText(f xproto.Font, s string, col color.Hex, x, baseline int) error {
	if len(s) > 255 {
		s = s[:255]
	}
	// Depth-32 surface: the pixel carries alpha. Background 0 keeps the
	// glyph box transparent.
	err := xproto.ChangeGCChecked(c.conn(), c.gc,
		xproto.GcForeground|xproto.GcBackground|xproto.GcFont,
		[]uint32{col.ARGB32(), 0, uint32(f)}).Check()
	if err != nil {
		return fmt.Errorf("set text gc: %w", err)
	}
	err = xproto.ImageText8Checked(c.conn(), byte(len(s)), xproto.Drawable(c.pixmap), c.gc,
		int16(x), int16(baseline), s).Check()
	if err != nil {
		return fmt.Errorf("draw text: %w", err)
	}
	return nil
}

// compositeBitmap uploads bmp into a scratch pixmap and composites it Over
// the canvas at (x, y).
func (c *xCanvas) compositeBitmap(bmp font.Bitmap, x, y int) error {
	conn := c.conn()
	w, h := uint16(bmp.Width), uint16(bmp.Height)

	var cleanup x11.Cleanup
	defer cleanup.Run()

	pix, err := xproto.NewPixmapId(conn)
	if err != nil {
		return fmt.Errorf("allocate text pixmap id: %w", err)
	}
	if err := xproto.CreatePixmapChecked(conn, x11.ARGBDepth, pix, xproto.Drawable(c.x.Root), w, h).Check(); err != nil {
		return fmt.Errorf("create text pixmap: %w", err)
	}
	cleanup.Push("text pixmap", func() error { return xproto.FreePixmapChecked(conn, pix).Check() })

	err = xproto.PutImageChecked(conn, xproto.ImageFormatZPixmap, xproto.Drawable(pix), c.gc,
		w, h, 0, 0, 0, x11.ARGBDepth, bmp.Data).Check()
	if err != nil {
		return fmt.Errorf("upload text: %w", err)
	}

	pic, err := render.NewPictureId(conn)
	if err != nil {
		return fmt.Errorf("allocate text picture id: %w", err)
	}
	if err := render.CreatePictureChecked(conn, pic, xproto.Drawable(pix), c.x.Formats.ARGB, 0, nil).Check(); err != nil {
		return fmt.Errorf("create text picture: %w", err)
	}
	cleanup.Push("text picture", func() error { return render.FreePictureChecked(conn, pic).Check() })

	err = render.CompositeChecked(conn, render.PictOpOver, pic, 0, c.picture,
		0, 0, 0, 0, int16(x), int16(y), w, h).Check()
	if err != nil {
		return fmt.Errorf("composite text: %w", err)
	}
	return nil
}

// close frees everything; each failure is reported and the rest still runs.
func (c *xCanvas) close() error {
	var cleanup x11.Cleanup
	cleanup.Push("overlay surface", c.freeSurface)
	if c.gc != 0 {
		gc := c.gc
		cleanup.Push("gc", func() error { return xproto.FreeGCChecked(c.conn(), gc).Check() })
		c.gc = 0
	}
	return cleanup.Run()
}
