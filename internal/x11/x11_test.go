package x11

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/BurntSushi/xgb/damage"
	"github.com/BurntSushi/xgb/render"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/evepreview/internal/geometry"
)

func TestToFixed(t *testing.T) {
	tests := []struct {
		in   float64
		want render.Fixed
	}{
		{1, 65536},
		{0.5, 32768},
		{2.25, 147456},
		{0, 0},
	}
	for _, tt := range tests {
		if got := ToFixed(tt.in); got != tt.want {
			t.Errorf("ToFixed(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestScaleTransformDiagonalOnly(t *testing.T) {
	tr := ScaleTransform(1000, 560, 250, 140)
	if tr.Matrix11 != ToFixed(4) || tr.Matrix22 != ToFixed(4) || tr.Matrix33 != ToFixed(1) {
		t.Fatalf("unexpected diagonal: %+v", tr)
	}
	if tr.Matrix12 != 0 || tr.Matrix13 != 0 || tr.Matrix21 != 0 ||
		tr.Matrix23 != 0 || tr.Matrix31 != 0 || tr.Matrix32 != 0 {
		t.Fatalf("off-diagonal terms set: %+v", tr)
	}
}

func TestSelectFormats(t *testing.T) {
	infos := []render.Pictforminfo{
		{Id: 1, Type: render.PictTypeIndexed, Depth: 8},
		{Id: 2, Type: render.PictTypeDirect, Depth: 24},
		{Id: 3, Type: render.PictTypeDirect, Depth: 32, Direct: render.Directformat{AlphaMask: 0xFF}},
		{Id: 4, Type: render.PictTypeDirect, Depth: 24},
	}
	f, err := selectFormats(infos, 24)
	if err != nil {
		t.Fatalf("selectFormats: %v", err)
	}
	if f.RGB != 2 || f.ARGB != 3 {
		t.Fatalf("got %+v, want RGB=2 ARGB=3", f)
	}
	if f.ForDepth(32) != 3 || f.ForDepth(24) != 2 {
		t.Fatalf("ForDepth picked the wrong format")
	}
}

func TestSelectFormatsMissingARGB(t *testing.T) {
	infos := []render.Pictforminfo{{Id: 2, Type: render.PictTypeDirect, Depth: 24}}
	if _, err := selectFormats(infos, 24); err == nil {
		t.Fatal("expected an error without an ARGB format")
	}
}

func TestIsBadWindow(t *testing.T) {
	typed := fmt.Errorf("get geometry: %w", xproto.WindowError{NiceName: "Window"})
	if !IsBadWindow(typed) {
		t.Fatal("wrapped WindowError not recognised")
	}
	if !IsBadWindow(xproto.DrawableError{NiceName: "Drawable"}) {
		t.Fatal("DrawableError not recognised")
	}
	flattened := errors.New("GetProperty: Error retrieving property: BadWindow {NiceName: Window, Sequence: 12}")
	if !IsBadWindow(flattened) {
		t.Fatal("flattened BadWindow string not recognised")
	}
	if IsBadWindow(nil) || IsBadWindow(errors.New("connection reset")) {
		t.Fatal("unrelated errors reported as BadWindow")
	}
}

func TestIsTeardownRace(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"bad window", xproto.WindowError{NiceName: "Window"}, true},
		{"bad damage", fmt.Errorf("subtract damage: %w", damage.BadDamageError{NiceName: "BadDamage"}), true},
		{"bad picture", fmt.Errorf("free source picture: %w", render.PictureError{NiceName: "Picture"}), true},
		{"flattened picture", errors.New("BadPicture {NiceName: Picture, Sequence: 9}"), true},
		{"bad pixmap", xproto.PixmapError{NiceName: "Pixmap"}, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		if got := IsTeardownRace(tt.err); got != tt.want {
			t.Errorf("%s: IsTeardownRace() = %v, want %v", tt.name, got, tt.want)
		}
	}
	if IsBadWindow(damage.BadDamageError{}) {
		t.Error("BadDamage is not a window error")
	}
}

func TestCleanupIgnoresFreedResources(t *testing.T) {
	var c Cleanup
	c.Push("window", func() error { return nil })
	c.Push("source picture", func() error { return render.PictureError{NiceName: "Picture"} })
	c.Push("damage", func() error { return damage.BadDamageError{NiceName: "BadDamage"} })
	if err := c.Run(); err != nil {
		t.Fatalf("Run() = %v, want nil for resources freed with the window", err)
	}
}

func TestCleanupRunsInReverseAndContinues(t *testing.T) {
	var order []string
	var c Cleanup
	c.Push("window", func() error { order = append(order, "window"); return nil })
	c.Push("picture", func() error { order = append(order, "picture"); return errors.New("boom") })
	c.Push("damage", func() error { order = append(order, "damage"); return nil })

	err := c.Run()
	if got := strings.Join(order, ","); got != "damage,picture,window" {
		t.Fatalf("order = %s", got)
	}
	if err == nil || !strings.Contains(err.Error(), "picture: boom") {
		t.Fatalf("err = %v, want picture failure", err)
	}
	if c.Len() != 0 {
		t.Fatalf("steps left after Run: %d", c.Len())
	}
}

func TestCleanupReleaseSkipsSteps(t *testing.T) {
	ran := false
	var c Cleanup
	c.Push("window", func() error { ran = true; return nil })
	c.Release()
	if err := c.Run(); err != nil {
		t.Fatalf("Run after Release: %v", err)
	}
	if ran {
		t.Fatal("released step ran")
	}
}

func TestClampToMonitors(t *testing.T) {
	monitors := []Monitor{
		{ID: 0, X: 0, Y: 0, Width: 1920, Height: 1080},
		{ID: 1, X: 1920, Y: 0, Width: 1280, Height: 1024},
	}
	tests := []struct {
		name string
		in   geometry.Rect
		want geometry.Position
	}{
		{"inside", geometry.Rect{X: 100, Y: 100, Width: 250, Height: 140}, geometry.Position{X: 100, Y: 100}},
		{"overflows right of first", geometry.Rect{X: 1800, Y: 10, Width: 250, Height: 140}, geometry.Position{X: 1670, Y: 10}},
		{"second monitor bottom", geometry.Rect{X: 2000, Y: 1000, Width: 250, Height: 140}, geometry.Position{X: 2000, Y: 884}},
		{"off every screen", geometry.Rect{X: -400, Y: -50, Width: 250, Height: 140}, geometry.Position{X: 0, Y: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampToMonitors(tt.in, monitors); got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
