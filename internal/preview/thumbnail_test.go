package preview_test

import (
	"errors"
	"testing"

	"github.com/1broseidon/evepreview/internal/geometry"
	"github.com/1broseidon/evepreview/internal/preview"
	"github.com/1broseidon/evepreview/internal/preview/previewtest"
)

func newThumb(name string, rect geometry.Rect) (*preview.Thumbnail, *previewtest.Surface) {
	s := previewtest.New(0x100, 0x200, rect)
	return preview.NewThumbnail(name, s, rect.Position(), geometry.Dimensions{Width: rect.Width, Height: rect.Height}), s
}

func TestStateConstructors(t *testing.T) {
	if preview.StateMinimized().Focused() {
		t.Fatalf("minimized state must never be focused")
	}
	if !preview.StateNormal(true).Focused() {
		t.Fatalf("expected focused normal state")
	}
	var zero preview.State
	if zero.Minimized() || zero.Focused() {
		t.Fatalf("zero state should be normal and unfocused, got %s", zero)
	}
}

func TestThumbnailTransitions(t *testing.T) {
	th, s := newThumb("Alice", geometry.Rect{X: 10, Y: 10, Width: 250, Height: 140})

	steps := []struct {
		name          string
		do            func() error
		wantFocused   bool
		wantMinimized bool
	}{
		{"focus", th.Focus, true, false},
		{"minimize from focused", th.Minimize, false, true},
		{"focus while minimized", th.Focus, true, false},
		{"unfocus", th.Unfocus, false, false},
		{"minimize from unfocused", th.Minimize, false, true},
		{"restore", th.Restore, false, false},
	}
	for _, step := range steps {
		if err := step.do(); err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		st := th.State()
		if st.Focused() != step.wantFocused || st.Minimized() != step.wantMinimized {
			t.Fatalf("%s: got state %s", step.name, st)
		}
	}
	if s.Minimized != 2 {
		t.Fatalf("expected 2 minimized draws, got %d", s.Minimized)
	}
	if s.Updates != len(steps) {
		t.Fatalf("expected one update per transition, got %d", s.Updates)
	}
	last, _ := s.LastBorder()
	if last.Focused || last.Name != "Alice" {
		t.Fatalf("unexpected last border %+v", last)
	}
}

func TestSetHiddenIsIndependentOfState(t *testing.T) {
	th, s := newThumb("Alice", geometry.Rect{Width: 100, Height: 50})
	if err := th.Minimize(); err != nil {
		t.Fatalf("minimize: %v", err)
	}
	if err := th.SetHidden(true); err != nil {
		t.Fatalf("hide: %v", err)
	}
	if s.Mapped || !th.Hidden() {
		t.Fatalf("expected preview to be unmapped")
	}
	if !th.State().Minimized() {
		t.Fatalf("hiding must not change state")
	}
	if th.Hovered(10, 10) {
		t.Fatalf("hidden preview must not be hovered")
	}
	if err := th.SetHidden(false); err != nil {
		t.Fatalf("show: %v", err)
	}
	if !s.Mapped || !th.Hovered(10, 10) {
		t.Fatalf("expected preview to be mapped and hoverable")
	}
}

func TestRepositionIsIdempotent(t *testing.T) {
	th, s := newThumb("Alice", geometry.Rect{X: 0, Y: 0, Width: 100, Height: 50})
	target := geometry.Position{X: 300, Y: 400}

	for i := 0; i < 2; i++ {
		if err := th.Reposition(target); err != nil {
			t.Fatalf("reposition %d: %v", i, err)
		}
		if th.Position() != target {
			t.Fatalf("cached position %+v, want %+v", th.Position(), target)
		}
		if s.Rect.Position() != target {
			t.Fatalf("window position %+v, want %+v", s.Rect.Position(), target)
		}
	}
	if !th.Hovered(310, 410) || th.Hovered(5, 5) {
		t.Fatalf("hit testing should follow the cached position")
	}
}

func TestRepositionFailureKeepsCache(t *testing.T) {
	th, s := newThumb("Alice", geometry.Rect{X: 5, Y: 5, Width: 100, Height: 50})
	s.Err = errors.New("BadWindow")
	if err := th.Reposition(geometry.Position{X: 50, Y: 50}); err == nil {
		t.Fatalf("expected error")
	}
	if th.Position() != (geometry.Position{X: 5, Y: 5}) {
		t.Fatalf("cached position changed on failure: %+v", th.Position())
	}
}

func TestDragSnapsAndClearsCache(t *testing.T) {
	th, s := newThumb("Alice", geometry.Rect{X: 100, Y: 100, Width: 50, Height: 50})
	targets := []geometry.Rect{{X: 160, Y: 100, Width: 50, Height: 50}}

	if err := th.BeginDrag(geometry.Position{X: 120, Y: 120}, targets); err != nil {
		t.Fatalf("begin drag: %v", err)
	}
	if !th.Input.Dragging || len(th.Input.SnapTargets) != 1 {
		t.Fatalf("unexpected input state %+v", th.Input)
	}

	// Cursor moves 3px right: dragged right edge lands 7px from the target.
	if err := th.DragTo(geometry.Position{X: 123, Y: 120}, 15); err != nil {
		t.Fatalf("drag: %v", err)
	}
	if got := th.Position(); got != (geometry.Position{X: 110, Y: 100}) {
		t.Fatalf("expected snap to x=110, got %+v", got)
	}

	// Far away: no snap, plain delta.
	if err := th.DragTo(geometry.Position{X: 420, Y: 520}, 15); err != nil {
		t.Fatalf("drag: %v", err)
	}
	if got := th.Position(); got != (geometry.Position{X: 400, Y: 500}) {
		t.Fatalf("expected unsnapped 400,500, got %+v", got)
	}

	if !th.EndDrag() {
		t.Fatalf("expected EndDrag to report an active drag")
	}
	if th.Input.Dragging || th.Input.SnapTargets != nil {
		t.Fatalf("expected drag state cleared, got %+v", th.Input)
	}
	if th.EndDrag() {
		t.Fatalf("second EndDrag should report no drag")
	}
	if len(s.Repositions) != 2 {
		t.Fatalf("expected 2 repositions, got %d", len(s.Repositions))
	}
}

func TestDragToWithoutDragIsNoop(t *testing.T) {
	th, s := newThumb("Alice", geometry.Rect{Width: 50, Height: 50})
	if err := th.DragTo(geometry.Position{X: 99, Y: 99}, 15); err != nil {
		t.Fatalf("drag: %v", err)
	}
	if len(s.Repositions) != 0 {
		t.Fatalf("expected no reposition outside a drag")
	}
}

func TestSetCharacter(t *testing.T) {
	th, s := newThumb("", geometry.Rect{X: 1, Y: 1, Width: 250, Height: 140})
	pos := geometry.Position{X: 500, Y: 60}
	if err := th.SetCharacter("Bob", &pos, geometry.Dimensions{Width: 300, Height: 170}); err != nil {
		t.Fatalf("set character: %v", err)
	}
	if th.Character != "Bob" || th.Position() != pos {
		t.Fatalf("unexpected thumbnail %q at %+v", th.Character, th.Position())
	}
	if th.Dimensions() != (geometry.Dimensions{Width: 300, Height: 170}) {
		t.Fatalf("unexpected dims %+v", th.Dimensions())
	}
	last, ok := s.LastBorder()
	if !ok || last.Name != "Bob" {
		t.Fatalf("expected redraw with the new name, got %+v", last)
	}

	// Logout keeps the thumbnail where it is.
	if err := th.SetCharacter("", nil, geometry.Dimensions{}); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if th.Position() != pos || th.Character != "" {
		t.Fatalf("logout should keep position, got %q at %+v", th.Character, th.Position())
	}
}

func TestHandleDamageSubtracts(t *testing.T) {
	th, s := newThumb("Alice", geometry.Rect{Width: 50, Height: 50})
	if err := th.HandleDamage(); err != nil {
		t.Fatalf("damage: %v", err)
	}
	if s.Updates != 1 || s.Subtracts != 1 {
		t.Fatalf("expected one update and one subtract, got %d/%d", s.Updates, s.Subtracts)
	}
}

func TestSetSkippedRedrawsEveryState(t *testing.T) {
	th, s := newThumb("Alice", geometry.Rect{Width: 250, Height: 140})
	if err := th.Focus(); err != nil {
		t.Fatal(err)
	}
	draws := len(s.Calls)
	if err := th.SetSkipped(false); err != nil || len(s.Calls) != draws {
		t.Fatalf("unchanged skip flag should not redraw (err %v)", err)
	}

	if err := th.SetSkipped(true); err != nil {
		t.Fatalf("skip: %v", err)
	}
	last, _ := s.LastBorder()
	if !th.Skipped() || !last.Skipped || !last.Focused {
		t.Fatalf("expected focused skipped redraw, got %+v", last)
	}

	// The cross survives state changes until the flag is cleared.
	if err := th.Minimize(); err != nil {
		t.Fatal(err)
	}
	if !s.Skipped {
		t.Fatal("minimized redraw dropped the skipped cross")
	}
	if err := th.SetSkipped(false); err != nil {
		t.Fatal(err)
	}
	if s.Skipped || s.Minimized != 2 {
		t.Fatalf("unskip should redraw minimized without the cross, skipped=%v minimized=%d", s.Skipped, s.Minimized)
	}
}
