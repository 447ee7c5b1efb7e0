// Package snapping aligns a dragged thumbnail with the edges of its siblings.
package snapping

import "github.com/1broseidon/evepreview/internal/geometry"

type candidate struct {
	offset   int32
	distance int32
}

type axis struct {
	best *candidate
}

// consider keeps the snap if it is within threshold and strictly closer than
// the current best, so the first of two equally close targets wins.
func (a *axis) consider(edge, target int16, threshold int32) {
	distance := abs32(int32(edge) - int32(target))
	if distance > threshold {
		return
	}
	if a.best == nil || distance < a.best.distance {
		a.best = &candidate{offset: int32(target) - int32(edge), distance: distance}
	}
}

// FindSnapPosition returns the corrected position for dragged when any of its
// edges is within threshold pixels of a target edge. Axes snap independently.
// A zero threshold disables snapping. ok is false when neither axis snaps.
func FindSnapPosition(dragged geometry.Rect, targets []geometry.Rect, threshold uint16) (pos geometry.Position, ok bool) {
	if threshold == 0 {
		return geometry.Position{}, false
	}
	th := int32(threshold)

	var x, y axis
	for _, other := range targets {
		// Edge-to-edge on X is always allowed; alignment needs the rects to
		// share or nearly share a row.
		x.consider(dragged.X, other.Right(), th)
		x.consider(dragged.Right(), other.X, th)
		if overlaps(dragged.Y, dragged.Bottom(), other.Y, other.Bottom(), th) {
			x.consider(dragged.X, other.X, th)
			x.consider(dragged.Right(), other.Right(), th)
		}

		y.consider(dragged.Y, other.Bottom(), th)
		y.consider(dragged.Bottom(), other.Y, th)
		if overlaps(dragged.X, dragged.Right(), other.X, other.Right(), th) {
			y.consider(dragged.Y, other.Y, th)
			y.consider(dragged.Bottom(), other.Bottom(), th)
		}
	}

	if x.best == nil && y.best == nil {
		return geometry.Position{}, false
	}
	pos = dragged.Position()
	if x.best != nil {
		pos.X = int16(int32(dragged.X) + x.best.offset)
	}
	if y.best != nil {
		pos.Y = int16(int32(dragged.Y) + y.best.offset)
	}
	return pos, true
}

// overlaps reports whether [aStart,aEnd] and [bStart,bEnd] intersect or come
// within threshold of each other at their facing ends.
func overlaps(aStart, aEnd, bStart, bEnd int16, threshold int32) bool {
	if aEnd >= bStart && aStart <= bEnd {
		return true
	}
	return abs32(int32(aStart)-int32(bEnd)) <= threshold ||
		abs32(int32(aEnd)-int32(bStart)) <= threshold
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
