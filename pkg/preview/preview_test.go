package preview

import (
	"image"
	"image/color"
	"testing"

	"github.com/menta2k/image-editor/pkg/cropper"
	"github.com/menta2k/image-editor/pkg/filter"
	"github.com/menta2k/image-editor/pkg/geometry"
)

func solidImage(width, height int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func newTestView() *View {
	v := New()
	v.SetImage(solidImage(1000, 800, color.NRGBA{R: 200, G: 40, B: 40, A: 255}))
	v.SetViewport(500, 500)
	return v
}

func TestLayoutMatchesContainFitAtZoomOne(t *testing.T) {
	v := newTestView()

	got := v.Layout()
	want := cropper.FitLayout(1000, 800, 500, 500)
	if got != want {
		t.Errorf("Expected contain-fit layout %+v, got %+v", want, got)
	}
}

func TestLayoutWithoutImageIsInvalid(t *testing.T) {
	v := New()
	v.SetViewport(500, 500)

	if v.Layout().Valid() {
		t.Errorf("Expected invalid layout without an image")
	}
}

func TestSetZoomClampsRange(t *testing.T) {
	v := newTestView()

	v.SetZoom(0.5)
	if v.Zoom() != MinZoom {
		t.Errorf("Expected zoom clamped to %f, got %f", MinZoom, v.Zoom())
	}

	v.SetZoom(100)
	if v.Zoom() != MaxZoom {
		t.Errorf("Expected zoom clamped to %f, got %f", MaxZoom, v.Zoom())
	}
}

func TestZoomScalesLayout(t *testing.T) {
	v := newTestView()
	v.SetZoom(2)

	layout := v.Layout()
	if layout.Scale != 1.0 {
		t.Errorf("Expected scale 1.0 at zoom 2, got %f", layout.Scale)
	}

	// Centered: 1000x800 display in a 500x500 viewport
	if layout.OffsetX != -250 || layout.OffsetY != -150 {
		t.Errorf("Expected centered offsets (-250, -150), got (%f, %f)", layout.OffsetX, layout.OffsetY)
	}
}

func TestPanIgnoredWhileImageFits(t *testing.T) {
	v := newTestView()

	v.Pan(100, 100)
	layout := v.Layout()
	if layout.OffsetX != 0 || layout.OffsetY != 50 {
		t.Errorf("Expected pan ignored at zoom 1, got offsets (%f, %f)", layout.OffsetX, layout.OffsetY)
	}
}

func TestPanClampsAtEdges(t *testing.T) {
	v := newTestView()
	v.SetZoom(2)

	v.Pan(-10000, -10000)
	layout := v.Layout()
	if layout.OffsetX != -500 || layout.OffsetY != -300 {
		t.Errorf("Expected pan clamped to far edge, got (%f, %f)", layout.OffsetX, layout.OffsetY)
	}

	v.Pan(20000, 20000)
	layout = v.Layout()
	if layout.OffsetX != 0 || layout.OffsetY != 0 {
		t.Errorf("Expected pan clamped to near edge, got (%f, %f)", layout.OffsetX, layout.OffsetY)
	}
}

func TestVisibleRectAtZoomTwo(t *testing.T) {
	v := newTestView()
	v.SetZoom(2)

	visible := v.VisibleRect()
	want := geometry.NewRect(250, 150, 500, 500)
	if !visible.ApproxEqual(want, 1e-9) {
		t.Errorf("Expected visible rect %+v, got %+v", want, visible)
	}
}

func TestVisibleRectCoversWholeImageAtZoomOne(t *testing.T) {
	v := newTestView()

	visible := v.VisibleRect()
	want := geometry.NewRect(0, 0, 1000, 800)
	if !visible.ApproxEqual(want, 1e-6) {
		t.Errorf("Expected full image visible, got %+v", visible)
	}
}

func TestRenderCanvasSizeAndLetterbox(t *testing.T) {
	v := newTestView()

	canvas, err := v.Render()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	bounds := canvas.Bounds()
	if bounds.Dx() != 500 || bounds.Dy() != 500 {
		t.Errorf("Expected 500x500 canvas, got %dx%d", bounds.Dx(), bounds.Dy())
	}

	// The 1000x800 image displays at 500x400 with 50px bars top and bottom
	if got := canvas.NRGBAAt(250, 10); got.A != 0 {
		t.Errorf("Expected transparent letterbox, got %v", got)
	}
	if got := canvas.NRGBAAt(250, 250); got.R < 150 {
		t.Errorf("Expected image pixel in the center, got %v", got)
	}
}

func TestRenderAppliesFilters(t *testing.T) {
	v := newTestView()
	v.SetFilters(filter.Chain{filter.Grayscale()})

	canvas, err := v.Render()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	got := canvas.NRGBAAt(250, 250)
	if got.R != got.G || got.G != got.B {
		t.Errorf("Expected grayscale pixel, got %v", got)
	}
}

func TestSetFiltersInvalidatesCache(t *testing.T) {
	v := newTestView()

	first, err := v.Render()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	v.SetFilters(filter.Chain{filter.Invert()})
	second, err := v.Render()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	a := first.NRGBAAt(250, 250)
	b := second.NRGBAAt(250, 250)
	if a == b {
		t.Errorf("Expected filtered output to differ, got %v twice", a)
	}
}

func TestRenderWithoutImageFails(t *testing.T) {
	v := New()
	v.SetViewport(100, 100)

	if _, err := v.Render(); err == nil {
		t.Errorf("Expected error without an image")
	}
}

func TestSetImageResetsZoomAndPan(t *testing.T) {
	v := newTestView()
	v.SetZoom(4)
	v.Pan(-300, -300)

	v.SetImage(solidImage(600, 600, color.NRGBA{R: 10, G: 200, B: 10, A: 255}))
	if v.Zoom() != MinZoom {
		t.Errorf("Expected zoom reset, got %f", v.Zoom())
	}

	layout := v.Layout()
	base := cropper.FitLayout(600, 600, 500, 500)
	if layout != base {
		t.Errorf("Expected fresh contain fit %+v, got %+v", base, layout)
	}
}
