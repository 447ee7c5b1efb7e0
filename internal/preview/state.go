package preview

import "github.com/1broseidon/evepreview/internal/geometry"

// State is either Normal (focused or not) or Minimized. The zero value is
// Normal and unfocused; a minimized, focused thumbnail cannot be built.
type State struct {
	minimized bool
	focused   bool
}

// StateNormal returns the normal state.
func StateNormal(focused bool) State {
	return State{focused: focused}
}

// StateMinimized returns the minimized state.
func StateMinimized() State {
	return State{minimized: true}
}

// Minimized reports whether the source is minimized.
func (s State) Minimized() bool { return s.minimized }

// Focused is always false for a minimized thumbnail.
func (s State) Focused() bool { return !s.minimized && s.focused }

func (s State) String() string {
	switch {
	case s.minimized:
		return "minimized"
	case s.focused:
		return "focused"
	default:
		return "normal"
	}
}

// InputState tracks a pointer drag. SnapTargets is only populated while a
// drag is in progress.
type InputState struct {
	Dragging    bool
	DragStart   geometry.Position // cursor, root coordinates
	WinStart    geometry.Position // thumbnail origin at drag start
	SnapTargets []geometry.Rect
}
