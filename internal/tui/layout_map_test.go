package tui

import (
	"testing"

	"github.com/1broseidon/evepreview/internal/config"
	"github.com/1broseidon/evepreview/internal/geometry"
)

func TestRenderLayoutMap(t *testing.T) {
	ps := []placement{{
		name:  "Alice",
		label: "Alice",
		rect:  geometry.Rect{X: 0, Y: 0, Width: 960, Height: 540},
	}}

	lines := renderLayoutMap(ps, "", 42, 12)
	if len(lines) != 12 {
		t.Fatalf("got %d lines, want 12", len(lines))
	}
	grid := make([][]rune, len(lines))
	for i, l := range lines {
		grid[i] = []rune(l)
		if len(grid[i]) != 42 {
			t.Fatalf("line %d has %d cells, want 42", i, len(grid[i]))
		}
	}

	if grid[0][0] != '╔' || grid[11][41] != '╝' {
		t.Fatalf("outer border missing: %q / %q", lines[0], lines[11])
	}
	if grid[1][1] != '┌' || grid[1][20] != '┐' || grid[5][1] != '└' || grid[5][20] != '┘' {
		t.Fatalf("tile corners misplaced:\n%s\n%s", lines[1], lines[5])
	}
	if got := string(grid[3][8:13]); got != "Alice" {
		t.Fatalf("label = %q, want Alice centred in the tile", got)
	}

	selected := renderLayoutMap(ps, "Alice", 42, 12)
	if got := []rune(selected[1])[1]; got != '┏' {
		t.Fatalf("selected tile corner = %q, want heavy line", got)
	}
}

func TestRenderLayoutMapGrowsForOffscreenPreviews(t *testing.T) {
	ps := []placement{
		{name: "Left", label: "Left", rect: geometry.Rect{X: -1920, Y: 0, Width: 500, Height: 400}},
		{name: "Right", label: "Right", rect: geometry.Rect{X: 1700, Y: 1000, Width: 250, Height: 140}},
	}
	lines := renderLayoutMap(ps, "", 60, 14)
	if len(lines) != 14 {
		t.Fatalf("got %d lines", len(lines))
	}
	// Left starts at the canvas origin once the view includes it.
	if got := []rune(lines[1])[1]; got != '┌' {
		t.Fatalf("left preview not at origin: %q", lines[1])
	}
}

func TestRenderLayoutMapTooSmall(t *testing.T) {
	lines := renderLayoutMap(nil, "", 3, 2)
	if len(lines) != 2 || lines[0] != "   " {
		t.Fatalf("unexpected canvas %q", lines)
	}
}

func TestPlacementsUseProfileDefaults(t *testing.T) {
	p := config.DefaultProfile("main")
	p.Characters["Bob"] = config.CharacterSettings{X: 5, Y: 6}
	p.Characters["Alice"] = config.CharacterSettings{X: 1, Y: 2, Width: 300, Height: 200, Alias: "Main"}

	ps := placements(&p)
	if len(ps) != 2 || ps[0].name != "Alice" || ps[1].name != "Bob" {
		t.Fatalf("placements not sorted: %+v", ps)
	}
	if ps[0].label != "Main" || ps[1].label != "Bob" {
		t.Fatalf("labels = %q, %q", ps[0].label, ps[1].label)
	}
	want := geometry.Rect{X: 5, Y: 6, Width: config.DefaultThumbnailWidth, Height: config.DefaultThumbnailHeight}
	if ps[1].rect != want {
		t.Fatalf("Bob rect = %+v, want %+v", ps[1].rect, want)
	}
}
