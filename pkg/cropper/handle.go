package cropper

import (
	"math"

	"github.com/menta2k/image-editor/pkg/geometry"
)

// Handle identifies which control of the crop rectangle a pointer grabbed
type Handle int

const (
	HandleNone Handle = iota
	HandleTopLeft
	HandleTopRight
	HandleBottomLeft
	HandleBottomRight
	HandleTop
	HandleBottom
	HandleLeft
	HandleRight
	HandleBody
)

// DefaultHitRadius is the handle hit-test radius in display pixels, sized
// for a minimum touch target
const DefaultHitRadius = 44.0

// String returns a human-readable handle name
func (h Handle) String() string {
	switch h {
	case HandleTopLeft:
		return "top-left"
	case HandleTopRight:
		return "top-right"
	case HandleBottomLeft:
		return "bottom-left"
	case HandleBottomRight:
		return "bottom-right"
	case HandleTop:
		return "top"
	case HandleBottom:
		return "bottom"
	case HandleLeft:
		return "left"
	case HandleRight:
		return "right"
	case HandleBody:
		return "body"
	default:
		return "none"
	}
}

// IsCorner reports whether the handle is one of the four corners
func (h Handle) IsCorner() bool {
	switch h {
	case HandleTopLeft, HandleTopRight, HandleBottomLeft, HandleBottomRight:
		return true
	}
	return false
}

// IsEdge reports whether the handle is one of the four edge midlines
func (h Handle) IsEdge() bool {
	switch h {
	case HandleTop, HandleBottom, HandleLeft, HandleRight:
		return true
	}
	return false
}

// ClassifyHandle determines which handle a pointer at p grabs on the given
// display-space rectangle. Corners are checked first by Euclidean distance,
// then edges by perpendicular distance with the projection inside the edge
// span, then the body. Corners beating edges is what keeps small rectangles
// usable: a pointer near a corner always resolves to the corner even when it
// is also within reach of the two adjacent edges
func ClassifyHandle(p geometry.Point, rect geometry.Rect, hitRadius float64) Handle {
	if p.Distance(rect.TopLeft()) < hitRadius {
		return HandleTopLeft
	}
	if p.Distance(rect.TopRight()) < hitRadius {
		return HandleTopRight
	}
	if p.Distance(rect.BottomLeft()) < hitRadius {
		return HandleBottomLeft
	}
	if p.Distance(rect.BottomRight()) < hitRadius {
		return HandleBottomRight
	}

	withinX := p.X >= rect.X && p.X <= rect.Right()
	withinY := p.Y >= rect.Y && p.Y <= rect.Bottom()
	if withinX && math.Abs(p.Y-rect.Y) < hitRadius {
		return HandleTop
	}
	if withinX && math.Abs(p.Y-rect.Bottom()) < hitRadius {
		return HandleBottom
	}
	if withinY && math.Abs(p.X-rect.X) < hitRadius {
		return HandleLeft
	}
	if withinY && math.Abs(p.X-rect.Right()) < hitRadius {
		return HandleRight
	}

	if rect.Contains(p) {
		return HandleBody
	}
	return HandleNone
}
