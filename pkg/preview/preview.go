package preview

import (
	"fmt"
	"image"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/menta2k/image-editor/pkg/cropper"
	"github.com/menta2k/image-editor/pkg/filter"
	"github.com/menta2k/image-editor/pkg/geometry"
)

// Zoom limits relative to the contain-fit scale
const (
	MinZoom = 1.0
	MaxZoom = 8.0
)

// View presents a filtered image inside a viewport with pan and zoom.
// Zoom 1 means the whole image fits the viewport; panning only moves the
// image when it overflows the viewport
type View struct {
	img      image.Image
	chain    filter.Chain
	cache    *image.NRGBA
	dirty    bool
	viewport geometry.Size
	zoom     float64
	panX     float64
	panY     float64
}

// New creates an empty view at zoom 1
func New() *View {
	return &View{zoom: MinZoom}
}

// SetImage replaces the displayed image and resets zoom and pan
func (v *View) SetImage(img image.Image) {
	v.img = img
	v.cache = nil
	v.dirty = true
	v.zoom = MinZoom
	v.panX = 0
	v.panY = 0
}

// SetViewport sets the viewport size in display pixels
func (v *View) SetViewport(width, height float64) {
	v.viewport = geometry.NewSize(width, height)
	v.normalizePan()
}

// SetFilters replaces the filter chain applied to the image
func (v *View) SetFilters(chain filter.Chain) {
	v.chain = chain
	v.dirty = true
}

// Filters returns the current filter chain
func (v *View) Filters() filter.Chain {
	return v.chain
}

// Zoom returns the current zoom factor
func (v *View) Zoom() float64 {
	return v.zoom
}

// SetZoom sets the zoom factor, clamped to [MinZoom, MaxZoom]. The view
// center is preserved where the pan limits allow
func (v *View) SetZoom(zoom float64) {
	zoom = clamp(zoom, MinZoom, MaxZoom)
	if v.zoom > 0 && zoom != v.zoom {
		ratio := zoom / v.zoom
		v.panX *= ratio
		v.panY *= ratio
	}
	v.zoom = zoom
	v.normalizePan()
}

// ZoomBy multiplies the current zoom by factor
func (v *View) ZoomBy(factor float64) {
	v.SetZoom(v.zoom * factor)
}

// Pan moves the image by (dx, dy) display pixels, clamped so the image
// never detaches from the viewport edges
func (v *View) Pan(dx, dy float64) {
	v.panX += dx
	v.panY += dy
	v.normalizePan()
}

// Layout returns the current image-to-display mapping. At zoom 1 with no
// pan this is exactly the contain-fit layout
func (v *View) Layout() cropper.Layout {
	if v.img == nil {
		return cropper.Layout{}
	}
	bounds := v.img.Bounds()
	imageW := float64(bounds.Dx())
	imageH := float64(bounds.Dy())

	base := geometry.FitScale(imageW, imageH, v.viewport.Width, v.viewport.Height)
	if base == 0 {
		return cropper.Layout{}
	}

	scale := base * v.zoom
	return cropper.Layout{
		ImageWidth:     imageW,
		ImageHeight:    imageH,
		ViewportWidth:  v.viewport.Width,
		ViewportHeight: v.viewport.Height,
		Scale:          scale,
		OffsetX:        v.offsetX(imageW * scale),
		OffsetY:        v.offsetY(imageH * scale),
	}
}

// VisibleRect returns the portion of the image currently visible, in
// image pixel coordinates
func (v *View) VisibleRect() geometry.Rect {
	layout := v.Layout()
	if !layout.Valid() {
		return geometry.Rect{}
	}
	viewport := geometry.NewRect(0, 0, layout.ViewportWidth, layout.ViewportHeight)
	visible := viewport.Intersect(layout.ImageBounds())
	return layout.ToImage(visible)
}

// Render draws the visible portion of the filtered image into a
// viewport-sized canvas. Letterbox areas are left transparent
func (v *View) Render() (*image.NRGBA, error) {
	layout := v.Layout()
	if !layout.Valid() {
		return nil, fmt.Errorf("nothing to render: image or viewport missing")
	}

	dst := image.NewNRGBA(image.Rect(0, 0, round(layout.ViewportWidth), round(layout.ViewportHeight)))
	src := v.filtered()

	dr := image.Rect(
		round(layout.OffsetX),
		round(layout.OffsetY),
		round(layout.OffsetX+layout.ImageWidth*layout.Scale),
		round(layout.OffsetY+layout.ImageHeight*layout.Scale),
	)

	// Interactive zooms favor speed over quality
	scaler := xdraw.Scaler(xdraw.CatmullRom)
	if v.zoom > MinZoom {
		scaler = xdraw.ApproxBiLinear
	}
	scaler.Scale(dst, dr, src, src.Bounds(), xdraw.Src, nil)

	return dst, nil
}

// filtered returns the filter chain's output, cached until the image or
// the chain changes
func (v *View) filtered() *image.NRGBA {
	if v.dirty || v.cache == nil {
		v.cache = v.chain.Apply(v.img)
		v.dirty = false
	}
	return v.cache
}

// offsetX returns the horizontal placement of the image in display space:
// centered while it fits, pan-adjusted and edge-clamped once it overflows
func (v *View) offsetX(displayW float64) float64 {
	base := (v.viewport.Width - displayW) / 2
	if displayW <= v.viewport.Width {
		return base
	}
	return clamp(base+v.panX, v.viewport.Width-displayW, 0)
}

func (v *View) offsetY(displayH float64) float64 {
	base := (v.viewport.Height - displayH) / 2
	if displayH <= v.viewport.Height {
		return base
	}
	return clamp(base+v.panY, v.viewport.Height-displayH, 0)
}

// normalizePan folds the stored pan back to the clamped effective value
// so it cannot accumulate drift past the limits
func (v *View) normalizePan() {
	layout := v.Layout()
	if !layout.Valid() {
		v.panX = 0
		v.panY = 0
		return
	}
	displayW := layout.ImageWidth * layout.Scale
	displayH := layout.ImageHeight * layout.Scale
	v.panX = v.offsetX(displayW) - (v.viewport.Width-displayW)/2
	v.panY = v.offsetY(displayH) - (v.viewport.Height-displayH)/2
}

func round(v float64) int {
	return int(math.Round(v))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
