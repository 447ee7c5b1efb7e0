package preview

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/evepreview/internal/color"
	"github.com/1broseidon/evepreview/internal/font"
	"github.com/1broseidon/evepreview/internal/geometry"
)

const minimizedLabel = "MINIMIZED"

// Skipped previews are crossed out in opaque red.
var (
	skippedColor = color.MustParseHex("#FF0000")
	skippedWidth = uint16(3)
)

// canvas is the off-screen surface an overlay paints on. xCanvas is the
// server-side implementation.
type canvas interface {
	clear(r xproto.Rectangle) error
	fill(c color.Hex, rects []xproto.Rectangle) error
	lines(c color.Hex, width uint16, segs []xproto.Segment) error
	text(f *font.Renderer, s string, c color.Hex, x, y int) error
	resize(dims geometry.Dimensions) error
	close() error
}

// overlay holds the border, the skipped cross and the name. It is
// composited over the live capture on every update.
//
// Paint order is clear, cross, border, label: the label stays readable on
// top of everything else.
type overlay struct {
	canvas  canvas
	dims    geometry.Dimensions
	style   *Style
	skipped bool
}

func newOverlay(c canvas, dims geometry.Dimensions, style *Style) *overlay {
	return &overlay{canvas: c, dims: dims, style: style}
}

func (o *overlay) setStyle(style *Style) {
	o.style = style
}

func (o *overlay) resize(dims geometry.Dimensions) error {
	if err := o.canvas.resize(dims); err != nil {
		return err
	}
	o.dims = dims
	return nil
}

func (o *overlay) close() error {
	return o.canvas.close()
}

// drawBorder repaints the whole overlay for the given focus and skip state.
func (o *overlay) drawBorder(name string, focused, skipped bool) error {
	o.skipped = skipped
	if err := o.canvas.clear(xproto.Rectangle{Width: o.dims.Width, Height: o.dims.Height}); err != nil {
		return fmt.Errorf("clear overlay: %w", err)
	}
	if skipped {
		if err := o.canvas.lines(skippedColor, skippedWidth, crossSegments(o.dims)); err != nil {
			return fmt.Errorf("draw skipped cross: %w", err)
		}
	}
	if border := o.style.Display.Border(name, focused); border.Visible {
		if err := o.canvas.fill(border.Color, borderStrips(o.dims, border.Size)); err != nil {
			return fmt.Errorf("paint border: %w", err)
		}
	}
	return o.drawLabel(name)
}

// updateName clears the interior inside the current border and redraws the
// label, leaving the border untouched. A skipped overlay is repainted in
// full because the cross runs through the interior.
func (o *overlay) updateName(name string, focused bool) error {
	if o.skipped {
		return o.drawBorder(name, focused, true)
	}
	inset := uint16(0)
	if border := o.style.Display.Border(name, focused); border.Visible {
		inset = border.Size
	}
	if inset*2 < o.dims.Width && inset*2 < o.dims.Height {
		interior := xproto.Rectangle{
			X: int16(inset), Y: int16(inset),
			Width: o.dims.Width - 2*inset, Height: o.dims.Height - 2*inset,
		}
		if err := o.canvas.clear(interior); err != nil {
			return fmt.Errorf("clear overlay interior: %w", err)
		}
	}
	return o.drawLabel(name)
}

func (o *overlay) drawLabel(name string) error {
	text, c := o.style.Display.Label(name)
	if text == "" {
		return nil
	}
	off := o.style.Display.TextOffset
	return o.canvas.text(o.style.Font, text, c, int(off.X), int(off.Y))
}

// drawMinimized draws the unfocused border and, when enabled, a centred
// MINIMIZED label.
func (o *overlay) drawMinimized(name string, skipped bool) error {
	if err := o.drawBorder(name, false, skipped); err != nil {
		return err
	}
	if !o.style.Display.MinimizedOverlay {
		return nil
	}
	_, c := o.style.Display.Label(name)
	w, h := o.style.Font.Measure(minimizedLabel)
	x := (int(o.dims.Width) - w) / 2
	y := (int(o.dims.Height) - h) / 2
	return o.canvas.text(o.style.Font, minimizedLabel, c, x, y)
}

// borderStrips returns the four edges of a border of the given thickness,
// clamped to half the shorter side. Empty strips are dropped, so a zero
// thickness yields nothing.
func borderStrips(dims geometry.Dimensions, size uint16) []xproto.Rectangle {
	w, h := dims.Width, dims.Height
	if size*2 > w || size*2 > h {
		size = min(w, h) / 2
	}
	all := []xproto.Rectangle{
		{X: 0, Y: 0, Width: w, Height: size},
		{X: 0, Y: int16(h - size), Width: w, Height: size},
		{X: 0, Y: int16(size), Width: size, Height: h - 2*size},
		{X: int16(w - size), Y: int16(size), Width: size, Height: h - 2*size},
	}
	strips := all[:0]
	for _, s := range all {
		if s.Width > 0 && s.Height > 0 {
			strips = append(strips, s)
		}
	}
	return strips
}

// crossSegments are the two corner-to-corner diagonals.
func crossSegments(dims geometry.Dimensions) []xproto.Segment {
	w, h := int16(dims.Width), int16(dims.Height)
	return []xproto.Segment{
		{X1: 0, Y1: 0, X2: w, Y2: h},
		{X1: w, Y1: 0, X2: 0, Y2: h},
	}
}
