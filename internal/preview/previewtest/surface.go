// Package previewtest provides an in-memory preview.Surface for tests.
package previewtest

import (
	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/evepreview/internal/geometry"
	"github.com/1broseidon/evepreview/internal/preview"
)

// Surface records every call and keeps a fake window rectangle.
type Surface struct {
	Win       xproto.Window
	Src       xproto.Window
	DamageID  damage.Damage
	ParentWin xproto.Window

	Rect   geometry.Rect
	Mapped bool
	Closed bool
	Style  *preview.Style

	Calls       []string
	Repositions []geometry.Position
	Activations []xproto.Timestamp
	Updates     int
	Subtracts   int
	Borders     []Border
	Minimized   int
	// Skipped is the skip flag of the latest full overlay draw.
	Skipped bool

	// Err, when set, is returned by Reposition and Geometry.
	Err error
	// CloseErr is returned by Close.
	CloseErr error
}

// Border is one DrawBorder call.
type Border struct {
	Name    string
	Focused bool
	Skipped bool
}

var _ preview.Surface = (*Surface)(nil)

// New returns a mapped surface at rect.
func New(win, src xproto.Window, rect geometry.Rect) *Surface {
	return &Surface{Win: win, Src: src, DamageID: damage.Damage(win), Rect: rect, Mapped: true}
}

func (s *Surface) Window() xproto.Window          { return s.Win }
func (s *Surface) Source() xproto.Window          { return s.Src }
func (s *Surface) Damage() damage.Damage          { return s.DamageID }
func (s *Surface) Parent() xproto.Window          { return s.ParentWin }
func (s *Surface) SetParent(parent xproto.Window) { s.ParentWin = parent }

func (s *Surface) Geometry() (geometry.Rect, error) {
	s.Calls = append(s.Calls, "geometry")
	if s.Err != nil {
		return geometry.Rect{}, s.Err
	}
	return s.Rect, nil
}

func (s *Surface) Update(string) error {
	s.Updates++
	return nil
}

func (s *Surface) SubtractDamage() error {
	s.Subtracts++
	return nil
}

func (s *Surface) DrawBorder(name string, focused, skipped bool) error {
	s.Calls = append(s.Calls, "border")
	s.Borders = append(s.Borders, Border{Name: name, Focused: focused, Skipped: skipped})
	s.Skipped = skipped
	return nil
}

func (s *Surface) UpdateName(name string, focused bool) error {
	s.Calls = append(s.Calls, "name")
	return nil
}

func (s *Surface) DrawMinimized(_ string, skipped bool) error {
	s.Calls = append(s.Calls, "minimized")
	s.Minimized++
	s.Skipped = skipped
	return nil
}

func (s *Surface) Reposition(pos geometry.Position) error {
	if s.Err != nil {
		return s.Err
	}
	s.Repositions = append(s.Repositions, pos)
	s.Rect.X, s.Rect.Y = pos.X, pos.Y
	return nil
}

func (s *Surface) Resize(dims geometry.Dimensions) error {
	s.Calls = append(s.Calls, "resize")
	s.Rect.Width, s.Rect.Height = dims.Width, dims.Height
	return nil
}

func (s *Surface) Map() error {
	s.Mapped = true
	return nil
}

func (s *Surface) Unmap() error {
	s.Mapped = false
	return nil
}

func (s *Surface) Activate(ts xproto.Timestamp) error {
	s.Activations = append(s.Activations, ts)
	return nil
}

func (s *Surface) SetStyle(style *preview.Style) error {
	s.Style = style
	return nil
}

func (s *Surface) Close() error {
	s.Closed = true
	return s.CloseErr
}

// LastBorder returns the most recent DrawBorder call.
func (s *Surface) LastBorder() (Border, bool) {
	if len(s.Borders) == 0 {
		return Border{}, false
	}
	return s.Borders[len(s.Borders)-1], true
}
