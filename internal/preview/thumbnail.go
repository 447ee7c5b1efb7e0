package preview

import (
	"fmt"
	"math"

	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/evepreview/internal/geometry"
	"github.com/1broseidon/evepreview/internal/snapping"
)

// Thumbnail is one preview: its state machine, drag state and cached
// position. All protocol work goes through the Surface.
type Thumbnail struct {
	Character string
	Input     InputState

	surface  Surface
	state    State
	hidden   bool
	skipped  bool
	position geometry.Position
	dims     geometry.Dimensions
}

// NewThumbnail wraps a surface that was created at pos with size dims.
func NewThumbnail(character string, surface Surface, pos geometry.Position, dims geometry.Dimensions) *Thumbnail {
	return &Thumbnail{
		Character: character,
		surface:   surface,
		position:  pos,
		dims:      dims,
	}
}

func (t *Thumbnail) Window() xproto.Window { return t.surface.Window() }
func (t *Thumbnail) Source() xproto.Window { return t.surface.Source() }
func (t *Thumbnail) Damage() damage.Damage { return t.surface.Damage() }
func (t *Thumbnail) Parent() xproto.Window { return t.surface.Parent() }

// SetParent records the frame the window manager reparented the source into.
func (t *Thumbnail) SetParent(parent xproto.Window) { t.surface.SetParent(parent) }

func (t *Thumbnail) State() State                    { return t.state }
func (t *Thumbnail) Hidden() bool                    { return t.hidden }
func (t *Thumbnail) Skipped() bool                   { return t.skipped }
func (t *Thumbnail) Position() geometry.Position     { return t.position }
func (t *Thumbnail) Dimensions() geometry.Dimensions { return t.dims }

// Rect is the cached rectangle used for hit-testing.
func (t *Thumbnail) Rect() geometry.Rect {
	return geometry.NewRect(t.position, t.dims)
}

// Geometry queries the live window rectangle.
func (t *Thumbnail) Geometry() (geometry.Rect, error) {
	return t.surface.Geometry()
}

// Hovered reports whether (x, y) lies over the visible thumbnail.
func (t *Thumbnail) Hovered(x, y int16) bool {
	return !t.hidden && t.Rect().Contains(x, y)
}

// Focus marks the source as the active client.
func (t *Thumbnail) Focus() error {
	return t.transition(StateNormal(true))
}

// Unfocus marks the source as inactive.
func (t *Thumbnail) Unfocus() error {
	return t.transition(StateNormal(false))
}

// Minimize switches to the minimized overlay from any state.
func (t *Thumbnail) Minimize() error {
	return t.transition(StateMinimized())
}

// Restore leaves the minimized state, unfocused.
func (t *Thumbnail) Restore() error {
	return t.transition(StateNormal(false))
}

func (t *Thumbnail) transition(s State) error {
	t.state = s
	return t.Redraw()
}

// Redraw repaints the overlay for the current state and recomposites.
func (t *Thumbnail) Redraw() error {
	var err error
	if t.state.Minimized() {
		err = t.surface.DrawMinimized(t.Character, t.skipped)
	} else {
		err = t.surface.DrawBorder(t.Character, t.state.Focused(), t.skipped)
	}
	if err != nil {
		return fmt.Errorf("draw overlay for %q: %w", t.Character, err)
	}
	return t.Update()
}

// Update recomposites without touching the overlay.
func (t *Thumbnail) Update() error {
	if err := t.surface.Update(t.Character); err != nil {
		return fmt.Errorf("update %q: %w", t.Character, err)
	}
	return nil
}

// HandleDamage recomposites and acknowledges the damage.
func (t *Thumbnail) HandleDamage() error {
	if err := t.Update(); err != nil {
		return err
	}
	return t.surface.SubtractDamage()
}

// SetSkipped marks the preview as left out of cycling and repaints it with
// the skipped cross.
func (t *Thumbnail) SetSkipped(skipped bool) error {
	if skipped == t.skipped {
		return nil
	}
	t.skipped = skipped
	return t.Redraw()
}

// SetHidden maps or unmaps the preview. State is left alone.
func (t *Thumbnail) SetHidden(hidden bool) error {
	if hidden == t.hidden {
		return nil
	}
	var err error
	if hidden {
		err = t.surface.Unmap()
	} else {
		err = t.surface.Map()
	}
	if err != nil {
		return fmt.Errorf("set hidden=%v for %q: %w", hidden, t.Character, err)
	}
	t.hidden = hidden
	if !hidden {
		return t.Update()
	}
	return nil
}

// Reposition moves the preview and, on success, the cached position.
func (t *Thumbnail) Reposition(pos geometry.Position) error {
	if err := t.surface.Reposition(pos); err != nil {
		return fmt.Errorf("reposition %q: %w", t.Character, err)
	}
	t.position = pos
	return nil
}

// Resize changes the preview size and repaints the overlay.
func (t *Thumbnail) Resize(dims geometry.Dimensions) error {
	if dims == t.dims {
		return nil
	}
	if err := t.surface.Resize(dims); err != nil {
		return fmt.Errorf("resize %q: %w", t.Character, err)
	}
	t.dims = dims
	return t.Redraw()
}

// SetCharacter renames the thumbnail. A non-nil pos moves it there; non-zero
// dims resize it.
func (t *Thumbnail) SetCharacter(name string, pos *geometry.Position, dims geometry.Dimensions) error {
	t.Character = name
	if pos != nil {
		if err := t.Reposition(*pos); err != nil {
			return err
		}
	}
	if !dims.IsZero() && dims != t.dims {
		if err := t.surface.Resize(dims); err != nil {
			return fmt.Errorf("resize %q: %w", name, err)
		}
		t.dims = dims
	}
	return t.Redraw()
}

// ApplyStyle switches to a new shared style and repaints.
func (t *Thumbnail) ApplyStyle(style *Style) error {
	if err := t.surface.SetStyle(style); err != nil {
		return fmt.Errorf("apply style to %q: %w", t.Character, err)
	}
	return t.Redraw()
}

// ActivateSource asks the window manager to focus the source window.
func (t *Thumbnail) ActivateSource(ts xproto.Timestamp) error {
	return t.surface.Activate(ts)
}

// BeginDrag starts a drag from cursor. targets are the other visible
// previews; they are cached for the duration of the drag.
func (t *Thumbnail) BeginDrag(cursor geometry.Position, targets []geometry.Rect) error {
	rect, err := t.surface.Geometry()
	if err != nil {
		return fmt.Errorf("query geometry of %q: %w", t.Character, err)
	}
	t.position = rect.Position()
	t.Input = InputState{
		Dragging:    true,
		DragStart:   cursor,
		WinStart:    rect.Position(),
		SnapTargets: targets,
	}
	return nil
}

// DragTo moves the preview with the cursor, snapping to cached targets.
func (t *Thumbnail) DragTo(cursor geometry.Position, threshold uint16) error {
	if !t.Input.Dragging {
		return nil
	}
	pos := geometry.Position{
		X: clamp16(int32(t.Input.WinStart.X) + int32(cursor.X) - int32(t.Input.DragStart.X)),
		Y: clamp16(int32(t.Input.WinStart.Y) + int32(cursor.Y) - int32(t.Input.DragStart.Y)),
	}
	if snapped, ok := snapping.FindSnapPosition(geometry.NewRect(pos, t.dims), t.Input.SnapTargets, threshold); ok {
		pos = snapped
	}
	return t.Reposition(pos)
}

// EndDrag clears the drag state and reports whether a drag was active.
func (t *Thumbnail) EndDrag() bool {
	was := t.Input.Dragging
	t.Input = InputState{}
	return was
}

// Close releases the surface.
func (t *Thumbnail) Close() error {
	return t.surface.Close()
}

func clamp16(v int32) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
