package cropper

import (
	"math"

	"github.com/menta2k/image-editor/pkg/geometry"
)

// Constraints bounds the rectangles the solver may produce. Supplied per
// drag and treated as immutable while a gesture is active
type Constraints struct {
	// AspectRatio is the target width/height ratio; zero or negative means free
	AspectRatio float64
	// MinSize is the smallest allowed rectangle, in display pixels
	MinSize geometry.Size
	// Bounds is the display rectangle of the fitted image
	Bounds geometry.Rect
}

// NextRect computes the rectangle that results from dragging handle by delta
// starting from start, all in display space. It is a pure function: the same
// inputs always produce the same output, and the output never has a
// non-positive dimension.
//
// Clamps apply in a fixed order: per-handle delta, aspect ratio, minimum
// size, bounds. Bounds win over the minimum size, so a rectangle pushed
// against the image edge may legitimately be smaller than the configured
// minimum — re-applying the minimum there would oscillate forever
func NextRect(start geometry.Rect, handle Handle, delta geometry.Point, c Constraints) geometry.Rect {
	r := applyDelta(start, handle, delta)
	r = applyAspect(r, handle, c.AspectRatio)
	r = applyMinSize(r, handle, c)
	r = applyBounds(r, c.Bounds)
	return ensureMinimal(r, c.Bounds)
}

// ClampRect sanitizes an externally supplied display-space rectangle: raises
// it to the minimum size keeping its origin, slides it inside the bounds and
// trims whatever still overhangs. The aspect ratio is deliberately not
// enforced, so callers may set rectangles outside a configured lock
func ClampRect(r geometry.Rect, c Constraints) geometry.Rect {
	r = applyMinSize(r, HandleNone, c)
	if !c.Bounds.IsEmpty() {
		if r.Width <= c.Bounds.Width {
			r.X = clamp(r.X, c.Bounds.X, c.Bounds.Right()-r.Width)
		}
		if r.Height <= c.Bounds.Height {
			r.Y = clamp(r.Y, c.Bounds.Y, c.Bounds.Bottom()-r.Height)
		}
	}
	r = applyBounds(r, c.Bounds)
	return ensureMinimal(r, c.Bounds)
}

// applyDelta moves the edges selected by the handle. Corner handles move two
// adjacent edges, edge handles one, the body both offsets. Dimensions may go
// negative here; later steps repair them
func applyDelta(r geometry.Rect, h Handle, d geometry.Point) geometry.Rect {
	switch h {
	case HandleTopLeft:
		r.X += d.X
		r.Y += d.Y
		r.Width -= d.X
		r.Height -= d.Y
	case HandleTopRight:
		r.Y += d.Y
		r.Width += d.X
		r.Height -= d.Y
	case HandleBottomLeft:
		r.X += d.X
		r.Width -= d.X
		r.Height += d.Y
	case HandleBottomRight:
		r.Width += d.X
		r.Height += d.Y
	case HandleTop:
		r.Y += d.Y
		r.Height -= d.Y
	case HandleBottom:
		r.Height += d.Y
	case HandleLeft:
		r.X += d.X
		r.Width -= d.X
	case HandleRight:
		r.Width += d.X
	case HandleBody:
		r.X += d.X
		r.Y += d.Y
	}
	return r
}

// applyAspect locks the rectangle to the target ratio. Edge handles keep
// their drag axis authoritative and recompute the other dimension; corner
// handles give way on whichever dimension overshoots the target ratio
func applyAspect(r geometry.Rect, h Handle, ratio float64) geometry.Rect {
	if !(ratio > 0) || h == HandleBody || h == HandleNone {
		return r
	}
	switch h {
	case HandleLeft, HandleRight:
		return setHeight(r, h, r.Width/ratio)
	case HandleTop, HandleBottom:
		return setWidth(r, h, r.Height*ratio)
	}
	if r.Width/r.Height > ratio {
		return setWidth(r, h, r.Height*ratio)
	}
	return setHeight(r, h, r.Width/ratio)
}

// applyMinSize raises undersized dimensions to the minimum, anchored at the
// edge opposite the dragged one. Body drags never resize. When an aspect
// ratio is locked the minimum is raised ratio-aware so the clamp does not
// break the lock
func applyMinSize(r geometry.Rect, h Handle, c Constraints) geometry.Rect {
	if h == HandleBody {
		return r
	}
	minW := math.Max(c.MinSize.Width, 1)
	minH := math.Max(c.MinSize.Height, 1)

	if c.AspectRatio > 0 && (h.IsCorner() || h.IsEdge()) {
		minW = math.Max(minW, minH*c.AspectRatio)
		if r.Width < minW {
			r = setWidth(r, h, minW)
			r = setHeight(r, h, minW/c.AspectRatio)
		}
		return r
	}

	if r.Width < minW {
		r = setWidth(r, h, minW)
	}
	if r.Height < minH {
		r = setHeight(r, h, minH)
	}
	return r
}

// applyBounds confines the rectangle to the bounds by clipping each edge.
// Dimensions may come out non-positive when the rectangle sits entirely
// outside; ensureMinimal resolves that
func applyBounds(r geometry.Rect, b geometry.Rect) geometry.Rect {
	if b.IsEmpty() {
		return r
	}
	x1 := math.Max(r.X, b.X)
	y1 := math.Max(r.Y, b.Y)
	x2 := math.Min(r.Right(), b.Right())
	y2 := math.Min(r.Bottom(), b.Bottom())
	return geometry.Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// ensureMinimal is the last-resort guard: the solver never returns a
// degenerate rectangle, so anything thinner than a pixel becomes a 1 px
// sliver pinned inside the bounds
func ensureMinimal(r geometry.Rect, b geometry.Rect) geometry.Rect {
	if r.Width < 1 {
		r.Width = 1
		if !b.IsEmpty() {
			r.X = clamp(r.X, b.X, b.Right()-1)
		}
	}
	if r.Height < 1 {
		r.Height = 1
		if !b.IsEmpty() {
			r.Y = clamp(r.Y, b.Y, b.Bottom()-1)
		}
	}
	return r
}

// setWidth changes the width while keeping the anchor implied by the handle:
// left-side handles pin the right edge, right-side handles the left edge,
// vertical edge handles stay centered, anything else keeps the origin
func setWidth(r geometry.Rect, h Handle, w float64) geometry.Rect {
	right := r.Right()
	switch h {
	case HandleTopLeft, HandleBottomLeft, HandleLeft:
		r.X = right - w
	case HandleTop, HandleBottom:
		r.X += (r.Width - w) / 2
	}
	r.Width = w
	return r
}

// setHeight mirrors setWidth on the vertical axis
func setHeight(r geometry.Rect, h Handle, height float64) geometry.Rect {
	bottom := r.Bottom()
	switch h {
	case HandleTopLeft, HandleTopRight, HandleTop:
		r.Y = bottom - height
	case HandleLeft, HandleRight:
		r.Y += (r.Height - height) / 2
	}
	r.Height = height
	return r
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
