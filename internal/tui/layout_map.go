package tui

import (
	"sort"
	"strings"

	"github.com/1broseidon/evepreview/internal/config"
	"github.com/1broseidon/evepreview/internal/geometry"
)

// placement is a saved preview rectangle.
type placement struct {
	name  string
	label string
	rect  geometry.Rect
}

// placements lists the saved previews of p, sorted by character name.
// Records without a size use the profile's default thumbnail size.
func placements(p *config.Profile) []placement {
	if p == nil {
		return nil
	}
	out := make([]placement, 0, len(p.Characters))
	for name, cs := range p.Characters {
		w, h := cs.Width, cs.Height
		if w == 0 || h == 0 {
			w, h = p.Thumbnails.Width, p.Thumbnails.Height
		}
		out = append(out, placement{
			name:  name,
			label: displayOrDefault(cs.Alias, name),
			rect:  geometry.Rect{X: cs.X, Y: cs.Y, Width: w, Height: h},
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

type tileRunes struct {
	h, v, tl, tr, bl, br rune
}

var (
	thinTile  = tileRunes{'─', '│', '┌', '┐', '└', '┘'}
	heavyTile = tileRunes{'━', '┃', '┏', '┓', '┗', '┛'}
)

// renderLayoutMap draws the saved previews scaled onto a width x height
// character canvas. The canvas covers at least one 1920x1080 screen and
// grows to include every preview; selected is drawn last in heavy lines.
func renderLayoutMap(ps []placement, selected string, width, height int) []string {
	if width < 5 || height < 3 {
		return emptyCanvas(width, height)
	}

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}

	minX, minY, maxX, maxY := 0, 0, 1920, 1080
	for _, p := range ps {
		r := p.rect
		minX = min(minX, int(r.X))
		minY = min(minY, int(r.Y))
		maxX = max(maxX, int(r.X)+int(r.Width))
		maxY = max(maxY, int(r.Y)+int(r.Height))
	}
	view := canvasView{
		originX: minX,
		originY: minY,
		spanW:   maxX - minX,
		spanH:   maxY - minY,
		cols:    width - 2,
		rows:    height - 2,
	}

	var sel *placement
	for i := range ps {
		if ps[i].name == selected {
			sel = &ps[i]
			continue
		}
		drawTile(canvas, view.cells(ps[i].rect), ps[i].label, thinTile)
	}
	if sel != nil {
		drawTile(canvas, view.cells(sel.rect), sel.label, heavyTile)
	}

	drawBorder(canvas, width, height)

	lines := make([]string, height)
	for i, row := range canvas {
		lines[i] = string(row)
	}
	return lines
}

// canvasView maps screen pixels onto the canvas interior.
type canvasView struct {
	originX, originY int
	spanW, spanH     int
	cols, rows       int
}

// box is an inclusive rectangle of canvas cells.
type box struct {
	x1, y1, x2, y2 int
}

// cells returns the canvas box covering r.
func (v canvasView) cells(r geometry.Rect) box {
	x1 := 1 + (int(r.X)-v.originX)*v.cols/v.spanW
	y1 := 1 + (int(r.Y)-v.originY)*v.rows/v.spanH
	x2 := (int(r.X) + int(r.Width) - v.originX) * v.cols / v.spanW
	y2 := (int(r.Y) + int(r.Height) - v.originY) * v.rows / v.spanH
	return box{x1: max(x1, 1), y1: max(y1, 1), x2: min(x2, v.cols), y2: min(y2, v.rows)}
}

func drawTile(canvas [][]rune, b box, label string, r tileRunes) {
	x1, y1, x2, y2 := b.x1, b.y1, b.x2, b.y2
	// Need at least 2x2 for a tile
	if x2 <= x1 || y2 <= y1 {
		return
	}

	for x := x1; x <= x2; x++ {
		canvas[y1][x] = r.h
		canvas[y2][x] = r.h
	}
	for y := y1; y <= y2; y++ {
		canvas[y][x1] = r.v
		canvas[y][x2] = r.v
	}
	canvas[y1][x1] = r.tl
	canvas[y1][x2] = r.tr
	canvas[y2][x1] = r.bl
	canvas[y2][x2] = r.br

	// Clear the inside so overlapping tiles stay readable.
	for y := y1 + 1; y < y2; y++ {
		for x := x1 + 1; x < x2; x++ {
			canvas[y][x] = ' '
		}
	}

	inner := x2 - x1 - 1
	centerY := (y1 + y2) / 2
	if inner < 1 || centerY <= y1 || centerY >= y2 {
		return
	}
	text := []rune(label)
	if len(text) > inner {
		text = text[:inner]
	}
	startX := x1 + 1 + (inner-len(text))/2
	for i, c := range text {
		canvas[centerY][startX+i] = c
	}
}

func drawBorder(canvas [][]rune, width, height int) {
	for x := 0; x < width; x++ {
		canvas[0][x] = '═'
		canvas[height-1][x] = '═'
	}
	for y := 0; y < height; y++ {
		canvas[y][0] = '║'
		canvas[y][width-1] = '║'
	}
	canvas[0][0] = '╔'
	canvas[0][width-1] = '╗'
	canvas[height-1][0] = '╚'
	canvas[height-1][width-1] = '╝'
}

func emptyCanvas(width, height int) []string {
	if width < 0 || height < 0 {
		return nil
	}
	lines := make([]string, height)
	empty := strings.Repeat(" ", width)
	for i := range lines {
		lines[i] = empty
	}
	return lines
}
