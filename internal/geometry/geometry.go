package geometry

import "math"

// Position is a point in root window coordinates.
type Position struct {
	X int16 `json:"x" yaml:"x"`
	Y int16 `json:"y" yaml:"y"`
}

// Dimensions is a width/height pair in pixels.
type Dimensions struct {
	Width  uint16 `json:"width" yaml:"width"`
	Height uint16 `json:"height" yaml:"height"`
}

// IsZero reports whether either side is zero.
func (d Dimensions) IsZero() bool {
	return d.Width == 0 || d.Height == 0
}

// TextOffset is the text origin relative to the thumbnail's top-left corner.
type TextOffset struct {
	X int16 `json:"x" yaml:"x"`
	Y int16 `json:"y" yaml:"y"`
}

// Rect represents a window position and size
type Rect struct {
	X      int16
	Y      int16
	Width  uint16
	Height uint16
}

// NewRect builds a Rect from a position and dimensions.
func NewRect(p Position, d Dimensions) Rect {
	return Rect{X: p.X, Y: p.Y, Width: d.Width, Height: d.Height}
}

// Position returns the rectangle origin.
func (r Rect) Position() Position {
	return Position{X: r.X, Y: r.Y}
}

// Right returns x+width, saturating at the int16 limits.
func (r Rect) Right() int16 {
	return saturatingAdd(r.X, r.Width)
}

// Bottom returns y+height, saturating at the int16 limits.
func (r Rect) Bottom() int16 {
	return saturatingAdd(r.Y, r.Height)
}

// Contains reports whether the point lies inside the rectangle. The right and
// bottom edges are exclusive.
func (r Rect) Contains(x, y int16) bool {
	return x >= r.X && x < r.Right() && y >= r.Y && y < r.Bottom()
}

func saturatingAdd(v int16, d uint16) int16 {
	sum := int32(v) + int32(d)
	if sum > math.MaxInt16 {
		return math.MaxInt16
	}
	return int16(sum)
}
