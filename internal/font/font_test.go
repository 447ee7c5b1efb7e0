package font

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font/gofont/gomono"

	"github.com/1broseidon/evepreview/internal/color"
)

func TestRenderPremultipliedBGRA(t *testing.T) {
	r, err := NewTrueType(gomono.TTF, 22)
	if err != nil {
		t.Fatalf("NewTrueType: %v", err)
	}
	defer r.Close()

	bmp, err := r.Render("Alice", color.MustParseHex("#8040FF00"))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	w, h := r.Measure("Alice")
	if bmp.Width != w || bmp.Height != h {
		t.Fatalf("bitmap %dx%d, Measure %dx%d", bmp.Width, bmp.Height, w, h)
	}
	if len(bmp.Data) != w*h*4 {
		t.Fatalf("len(Data) = %d, want %d", len(bmp.Data), w*h*4)
	}

	inked := 0
	for i := 0; i < len(bmp.Data); i += 4 {
		b, g, red, a := bmp.Data[i], bmp.Data[i+1], bmp.Data[i+2], bmp.Data[i+3]
		if a == 0 {
			if b|g|red != 0 {
				t.Fatalf("colour without alpha at pixel %d", i/4)
			}
			continue
		}
		inked++
		if a > 0x80 {
			t.Fatalf("alpha %#x exceeds colour alpha", a)
		}
		if b != 0 || red > a || g > a {
			t.Fatalf("pixel %d not premultiplied: b=%d g=%d r=%d a=%d", i/4, b, g, red, a)
		}
	}
	if inked == 0 {
		t.Fatal("no pixels drawn")
	}
}

func TestRenderEmptyString(t *testing.T) {
	r, err := NewTrueType(gomono.TTF, 12)
	if err != nil {
		t.Fatalf("NewTrueType: %v", err)
	}
	bmp, err := r.Render("", color.MustParseHex("#FFFFFF"))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bmp.Empty() {
		t.Fatalf("expected empty bitmap, got %dx%d", bmp.Width, bmp.Height)
	}
}

func TestNewTrueTypeRejectsGarbage(t *testing.T) {
	if _, err := NewTrueType([]byte("not a font"), 12); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := NewTrueType(gomono.TTF, 0); err == nil {
		t.Fatal("expected size error")
	}
}

func TestResolveFallsBackWithoutConnection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.ttf")
	if err := os.WriteFile(path, []byte("junk"), 0o644); err != nil {
		t.Fatal(err)
	}
	// The broken file is skipped and, with no X connection, the core font
	// cannot be opened either.
	if _, err := Resolve(nil, path, 12); err == nil {
		t.Fatal("expected an error without a core font")
	}
}

func TestLoadFileSetsPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "GoMono.ttf")
	if err := os.WriteFile(path, gomono.TTF, 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := Resolve(nil, path, 14)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if r.Path() != path {
		t.Fatalf("Path() = %q, want %q", r.Path(), path)
	}
	if _, ok := r.ServerFont(); ok {
		t.Fatal("TrueType renderer reports a server font")
	}
}

func TestFindPrefersCandidateOrder(t *testing.T) {
	dir := t.TempDir()
	for _, rel := range []string{"truetype/noto/NotoSansMono-Regular.ttf", "truetype/liberation/LiberationMono-Regular.ttf"} {
		p := filepath.Join(dir, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, nil, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	got, err := find(Candidates, []string{dir})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if filepath.Base(got) != "LiberationMono-Regular.ttf" {
		t.Fatalf("got %s, want Liberation before Noto", got)
	}

	if _, err := find(Candidates, []string{t.TempDir()}); err == nil {
		t.Fatal("expected error for empty directory")
	}
}
