package preview

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/evepreview/internal/color"
	"github.com/1broseidon/evepreview/internal/config"
	"github.com/1broseidon/evepreview/internal/font"
	"github.com/1broseidon/evepreview/internal/geometry"
)

// recordCanvas logs every paint operation in order.
type recordCanvas struct {
	ops   []string
	fills [][]xproto.Rectangle
}

func (c *recordCanvas) clear(r xproto.Rectangle) error {
	c.ops = append(c.ops, fmt.Sprintf("clear %d,%d %dx%d", r.X, r.Y, r.Width, r.Height))
	return nil
}

func (c *recordCanvas) fill(col color.Hex, rects []xproto.Rectangle) error {
	c.ops = append(c.ops, "fill "+col.String())
	c.fills = append(c.fills, rects)
	return nil
}

func (c *recordCanvas) lines(col color.Hex, width uint16, segs []xproto.Segment) error {
	c.ops = append(c.ops, fmt.Sprintf("lines %s w%d n%d", col, width, len(segs)))
	return nil
}

func (c *recordCanvas) text(_ *font.Renderer, s string, _ color.Hex, x, y int) error {
	c.ops = append(c.ops, fmt.Sprintf("text %s @%d,%d", s, x, y))
	return nil
}

func (c *recordCanvas) resize(geometry.Dimensions) error { return nil }
func (c *recordCanvas) close() error                     { return nil }

func newTestOverlay(edit func(*config.Profile)) (*overlay, *recordCanvas) {
	p := config.DefaultProfile("test")
	if edit != nil {
		edit(&p)
	}
	style := &Style{Display: p.DisplayConfig(), Font: new(font.Renderer)}
	c := &recordCanvas{}
	return newOverlay(c, geometry.Dimensions{Width: 250, Height: 140}, style), c
}

func TestOverlayPaintOrder(t *testing.T) {
	active := color.MustParseHex(config.DefaultActiveColor).String()
	inactive := color.MustParseHex(config.DefaultInactiveColor).String()
	skipped := fmt.Sprintf("lines %s w3 n2", skippedColor)

	tests := []struct {
		name    string
		edit    func(*config.Profile)
		draw    func(o *overlay) error
		wantOps []string
	}{
		{
			name:    "focused",
			draw:    func(o *overlay) error { return o.drawBorder("Alice", true, false) },
			wantOps: []string{"clear 0,0 250x140", "fill " + active, "text Alice @10,10"},
		},
		{
			name:    "unfocused without inactive border",
			draw:    func(o *overlay) error { return o.drawBorder("Alice", false, false) },
			wantOps: []string{"clear 0,0 250x140", "text Alice @10,10"},
		},
		{
			name:    "unfocused with inactive border",
			edit:    func(p *config.Profile) { p.Thumbnails.InactiveBorder.Enabled = true },
			draw:    func(o *overlay) error { return o.drawBorder("Alice", false, false) },
			wantOps: []string{"clear 0,0 250x140", "fill " + inactive, "text Alice @10,10"},
		},
		{
			name:    "skipped cross under border and label",
			draw:    func(o *overlay) error { return o.drawBorder("Alice", true, true) },
			wantOps: []string{"clear 0,0 250x140", skipped, "fill " + active, "text Alice @10,10"},
		},
		{
			name:    "zero thickness border",
			edit:    func(p *config.Profile) { p.Thumbnails.ActiveBorder.Size = 0 },
			draw:    func(o *overlay) error { return o.drawBorder("Alice", true, false) },
			wantOps: []string{"clear 0,0 250x140", "text Alice @10,10"},
		},
		{
			name: "zero thickness override",
			edit: func(p *config.Profile) {
				zero := uint16(0)
				p.Characters["Alice"] = config.CharacterSettings{OverrideActiveBorderSize: &zero}
			},
			draw:    func(o *overlay) error { return o.drawBorder("Alice", true, false) },
			wantOps: []string{"clear 0,0 250x140", "text Alice @10,10"},
		},
		{
			name: "override colour",
			edit: func(p *config.Profile) {
				p.Characters["Alice"] = config.CharacterSettings{OverrideActiveBorderColor: "#112233"}
			},
			draw:    func(o *overlay) error { return o.drawBorder("Alice", true, false) },
			wantOps: []string{"clear 0,0 250x140", "fill #FF112233", "text Alice @10,10"},
		},
		{
			name:    "minimized label centred last",
			draw:    func(o *overlay) error { return o.drawMinimized("Alice", false) },
			wantOps: []string{"clear 0,0 250x140", "text Alice @10,10", "text MINIMIZED @125,70"},
		},
		{
			name:    "minimized without label",
			edit:    func(p *config.Profile) { p.Thumbnails.MinimizedOverlay = false },
			draw:    func(o *overlay) error { return o.drawMinimized("Alice", false) },
			wantOps: []string{"clear 0,0 250x140", "text Alice @10,10"},
		},
		{
			name:    "minimized and skipped",
			draw:    func(o *overlay) error { return o.drawMinimized("Alice", true) },
			wantOps: []string{"clear 0,0 250x140", skipped, "text Alice @10,10", "text MINIMIZED @125,70"},
		},
		{
			name:    "logged out draws no label",
			draw:    func(o *overlay) error { return o.drawBorder("", true, false) },
			wantOps: []string{"clear 0,0 250x140", "fill " + active},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, c := newTestOverlay(tt.edit)
			if err := tt.draw(o); err != nil {
				t.Fatalf("draw: %v", err)
			}
			if !reflect.DeepEqual(c.ops, tt.wantOps) {
				t.Fatalf("ops = %q\nwant  %q", c.ops, tt.wantOps)
			}
		})
	}
}

func TestOverlayUpdateName(t *testing.T) {
	o, c := newTestOverlay(nil)
	if err := o.updateName("Alice", true); err != nil {
		t.Fatal(err)
	}
	want := []string{"clear 3,3 244x134", "text Alice @10,10"}
	if !reflect.DeepEqual(c.ops, want) {
		t.Fatalf("ops = %q, want %q", c.ops, want)
	}

	// The cross spans the interior, so a skipped overlay is repainted whole.
	if err := o.drawBorder("Alice", true, true); err != nil {
		t.Fatal(err)
	}
	c.ops = nil
	if err := o.updateName("Alice", true); err != nil {
		t.Fatal(err)
	}
	if len(c.ops) < 2 || c.ops[0] != "clear 0,0 250x140" || c.ops[1][:5] != "lines" {
		t.Fatalf("skipped rename ops = %q", c.ops)
	}
}

func TestBorderStrips(t *testing.T) {
	strips := borderStrips(geometry.Dimensions{Width: 250, Height: 140}, 3)
	want := []xproto.Rectangle{
		{X: 0, Y: 0, Width: 250, Height: 3},
		{X: 0, Y: 137, Width: 250, Height: 3},
		{X: 0, Y: 3, Width: 3, Height: 134},
		{X: 247, Y: 3, Width: 3, Height: 134},
	}
	if !reflect.DeepEqual(strips, want) {
		t.Fatalf("strips = %+v", strips)
	}

	// Thicker than half the side: clamped, and the empty side strips drop.
	strips = borderStrips(geometry.Dimensions{Width: 4, Height: 4}, 5)
	want = []xproto.Rectangle{
		{X: 0, Y: 0, Width: 4, Height: 2},
		{X: 0, Y: 2, Width: 4, Height: 2},
	}
	if !reflect.DeepEqual(strips, want) {
		t.Fatalf("clamped strips = %+v", strips)
	}

	if got := borderStrips(geometry.Dimensions{Width: 250, Height: 140}, 0); len(got) != 0 {
		t.Fatalf("zero thickness strips = %+v", got)
	}
}
