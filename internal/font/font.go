// Package font rasterizes overlay text, either through a TrueType/OpenType
// face or, when none is usable, through an X core font drawn server side.
package font

import (
	"errors"
	"fmt"
	"image"
	"log"
	"os"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/1broseidon/evepreview/internal/color"
)

// coreFontNames is tried in order when no TrueType font loads.
var coreFontNames = []string{"fixed", "9x15", "8x13", "6x13"}

// Bitmap is premultiplied BGRA, 4 bytes per pixel, rows packed without
// padding. It matches a depth-32 ZPixmap on little-endian servers.
type Bitmap struct {
	Width  int
	Height int
	Data   []byte
}

// Empty reports whether there is nothing to draw.
func (b Bitmap) Empty() bool {
	return b.Width == 0 || b.Height == 0
}

// Renderer is either a TrueType renderer or a server-font renderer.
type Renderer struct {
	face xfont.Face
	size float64
	path string

	conn       *xgb.Conn
	serverFont xproto.Font
	charWidth  int
	ascent     int
	descent    int
}

// Resolve picks a renderer. A readable font file at path wins; with an empty
// path the candidate families are searched; otherwise, or when parsing
// fails, the X core font is opened. Only a failure of the core font is an
// error.
func Resolve(conn *xgb.Conn, path string, size float64) (*Renderer, error) {
	if path == "" {
		if found, err := FindDefault(); err == nil {
			path = found
		} else {
			log.Printf("font: %v, using X core font", err)
		}
	}

	if path != "" {
		r, err := LoadFile(path, size)
		if err == nil {
			return r, nil
		}
		log.Printf("font: %v, using X core font", err)
	}

	return OpenServerFont(conn, size)
}

// LoadFile parses a TrueType or OpenType file.
func LoadFile(path string, size float64) (*Renderer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", path, err)
	}
	r, err := NewTrueType(data, size)
	if err != nil {
		return nil, fmt.Errorf("load font %s: %w", path, err)
	}
	r.path = path
	return r, nil
}

// NewTrueType builds a renderer from font file contents.
func NewTrueType(data []byte, size float64) (*Renderer, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid font size %v", size)
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: xfont.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create face: %w", err)
	}
	return &Renderer{face: face, size: size}, nil
}

// OpenServerFont opens the first available X core font.
func OpenServerFont(conn *xgb.Conn, size float64) (*Renderer, error) {
	if conn == nil {
		return nil, errors.New("no X connection for core font")
	}
	fid, err := xproto.NewFontId(conn)
	if err != nil {
		return nil, fmt.Errorf("allocate font id: %w", err)
	}

	opened := false
	for _, name := range coreFontNames {
		if err = xproto.OpenFontChecked(conn, fid, uint16(len(name)), name).Check(); err == nil {
			opened = true
			break
		}
	}
	if !opened {
		return nil, fmt.Errorf("open core font: %w", err)
	}

	r := &Renderer{conn: conn, serverFont: fid, size: size}
	if info, err := xproto.QueryFont(conn, xproto.Fontable(fid)).Reply(); err == nil {
		r.charWidth = int(info.MaxBounds.CharacterWidth)
		r.ascent = int(info.FontAscent)
		r.descent = int(info.FontDescent)
	} else {
		r.charWidth, r.ascent, r.descent = 6, 10, 3
	}
	return r, nil
}

// ServerFont returns the core font and true when this is a server-font
// renderer.
func (r *Renderer) ServerFont() (xproto.Font, bool) {
	return r.serverFont, r.face == nil && r.serverFont != 0
}

// Size returns the requested pixel size.
func (r *Renderer) Size() float64 {
	return r.size
}

// Path returns the font file in use, or "" for the core font.
func (r *Renderer) Path() string {
	return r.path
}

// Measure returns the pixel width and height Render would produce.
func (r *Renderer) Measure(text string) (width, height int) {
	if r.face == nil {
		return r.charWidth * len(text), r.ascent + r.descent
	}
	m := r.face.Metrics()
	return xfont.MeasureString(r.face, text).Ceil(), m.Ascent.Ceil() + m.Descent.Ceil()
}

// Ascent returns the distance from the top of a rendered line to its
// baseline.
func (r *Renderer) Ascent() int {
	if r.face == nil {
		return r.ascent
	}
	return r.face.Metrics().Ascent.Ceil()
}

// Render rasterizes text in c. Server-font renderers cannot rasterize and
// return an error; callers draw with ServerFont instead.
func (r *Renderer) Render(text string, c color.Hex) (Bitmap, error) {
	if r.face == nil {
		return Bitmap{}, errors.New("core font renderer cannot rasterize")
	}
	w, h := r.Measure(text)
	if text == "" || w <= 0 || h <= 0 {
		return Bitmap{}, nil
	}

	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	d := xfont.Drawer{
		Dst:  mask,
		Src:  image.Opaque,
		Face: r.face,
		Dot:  fixed.P(0, r.face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)

	return premultiply(mask, c), nil
}

// premultiply turns a coverage mask into BGRA scaled by the colour, so every
// channel is already multiplied by the final alpha.
func premultiply(mask *image.Alpha, c color.Hex) Bitmap {
	b := mask.Bounds()
	out := Bitmap{Width: b.Dx(), Height: b.Dy(), Data: make([]byte, b.Dx()*b.Dy()*4)}
	a, red, green, blue := uint32(c.A()), uint32(c.R()), uint32(c.G()), uint32(c.B())

	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			coverage := uint32(mask.AlphaAt(b.Min.X+x, b.Min.Y+y).A)
			if coverage == 0 {
				continue
			}
			alpha := a * coverage / 255
			i := (y*out.Width + x) * 4
			out.Data[i] = byte(blue * alpha / 255)
			out.Data[i+1] = byte(green * alpha / 255)
			out.Data[i+2] = byte(red * alpha / 255)
			out.Data[i+3] = byte(alpha)
		}
	}
	return out
}

// Close releases the face or the core font.
func (r *Renderer) Close() {
	if r.face != nil {
		if err := r.face.Close(); err != nil {
			log.Printf("font: close face: %v", err)
		}
		r.face = nil
	}
	if r.serverFont != 0 && r.conn != nil {
		xproto.CloseFont(r.conn, r.serverFont)
		r.serverFont = 0
	}
}
