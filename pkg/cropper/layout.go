package cropper

import (
	"github.com/menta2k/image-editor/pkg/geometry"
)

// Layout describes how the source image is fitted into the viewport using
// "contain" scaling: the image is scaled to fit entirely inside the viewport,
// preserving its aspect ratio, and centered. A Layout is a derived value,
// recreated whenever the image or viewport size changes, never mutated
type Layout struct {
	ImageWidth     float64
	ImageHeight    float64
	ViewportWidth  float64
	ViewportHeight float64
	Scale          float64
	OffsetX        float64
	OffsetY        float64
}

// FitLayout computes the contain-fit layout for an image inside a viewport.
// If any dimension is zero or negative it returns the null layout (Scale 0);
// all mapping calls on a null layout return the zero rect, so callers must
// check Valid before trusting a mapped value
func FitLayout(imageW, imageH, viewportW, viewportH float64) Layout {
	scale := geometry.FitScale(imageW, imageH, viewportW, viewportH)
	if scale == 0 {
		return Layout{}
	}
	return Layout{
		ImageWidth:     imageW,
		ImageHeight:    imageH,
		ViewportWidth:  viewportW,
		ViewportHeight: viewportH,
		Scale:          scale,
		OffsetX:        (viewportW - imageW*scale) / 2,
		OffsetY:        (viewportH - imageH*scale) / 2,
	}
}

// Valid reports whether the layout can map between image and display space
func (l Layout) Valid() bool {
	return l.Scale > 0
}

// ImageBounds returns the display-space rectangle covered by the fitted image
func (l Layout) ImageBounds() geometry.Rect {
	if !l.Valid() {
		return geometry.Rect{}
	}
	return geometry.NewRect(l.OffsetX, l.OffsetY, l.ImageWidth*l.Scale, l.ImageHeight*l.Scale)
}

// ToDisplay maps an image-space rectangle to display space
func (l Layout) ToDisplay(r geometry.Rect) geometry.Rect {
	if !l.Valid() {
		return geometry.Rect{}
	}
	return geometry.Rect{
		X:      r.X*l.Scale + l.OffsetX,
		Y:      r.Y*l.Scale + l.OffsetY,
		Width:  r.Width * l.Scale,
		Height: r.Height * l.Scale,
	}
}

// ToImage maps a display-space rectangle to image space. It is the exact
// inverse of ToDisplay: ToImage(ToDisplay(r)) round-trips within floating
// point error
func (l Layout) ToImage(r geometry.Rect) geometry.Rect {
	if !l.Valid() {
		return geometry.Rect{}
	}
	return geometry.Rect{
		X:      (r.X - l.OffsetX) / l.Scale,
		Y:      (r.Y - l.OffsetY) / l.Scale,
		Width:  r.Width / l.Scale,
		Height: r.Height / l.Scale,
	}
}

// PointToImage maps a display-space point to image space
func (l Layout) PointToImage(p geometry.Point) geometry.Point {
	if !l.Valid() {
		return geometry.Point{}
	}
	return geometry.Point{
		X: (p.X - l.OffsetX) / l.Scale,
		Y: (p.Y - l.OffsetY) / l.Scale,
	}
}
