package transform

import (
	"image"
	"image/color"
	"testing"

	"github.com/menta2k/image-editor/pkg/geometry"
)

// createTestImage builds an image whose pixel at (x, y) encodes its own
// coordinates, so geometric operations can be verified exactly
func createTestImage(width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 0, A: 255})
		}
	}
	return img
}

func TestCropExtractsRegion(t *testing.T) {
	img := createTestImage(100, 80)

	cropped, err := Crop(img, geometry.NewRect(10, 20, 30, 40))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	bounds := cropped.Bounds()
	if bounds.Dx() != 30 || bounds.Dy() != 40 {
		t.Errorf("Expected 30x40 crop, got %dx%d", bounds.Dx(), bounds.Dy())
	}

	// Top-left pixel of the crop was at (10, 20) in the source
	got := cropped.NRGBAAt(0, 0)
	if got.R != 10 || got.G != 20 {
		t.Errorf("Expected source pixel (10, 20), got (%d, %d)", got.R, got.G)
	}
}

func TestCropClipsToImageBounds(t *testing.T) {
	img := createTestImage(50, 50)

	cropped, err := Crop(img, geometry.NewRect(-10, -10, 40, 40))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	bounds := cropped.Bounds()
	if bounds.Dx() != 30 || bounds.Dy() != 30 {
		t.Errorf("Expected clipped 30x30 crop, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestCropOutsideImageFails(t *testing.T) {
	img := createTestImage(50, 50)

	if _, err := Crop(img, geometry.NewRect(100, 100, 20, 20)); err == nil {
		t.Errorf("Expected error for crop outside image")
	}
	if _, err := Crop(img, geometry.NewRect(10, 10, 0, 0)); err == nil {
		t.Errorf("Expected error for zero-size crop")
	}
}

func TestCropRoundsToWholePixels(t *testing.T) {
	img := createTestImage(100, 100)

	cropped, err := Crop(img, geometry.NewRect(9.6, 9.6, 20.8, 20.8))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	bounds := cropped.Bounds()
	// 9.6 rounds to 10, 30.4 rounds to 30
	if bounds.Dx() != 20 || bounds.Dy() != 20 {
		t.Errorf("Expected 20x20 crop after rounding, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestResizeExactDimensions(t *testing.T) {
	img := createTestImage(100, 80)

	resized := Resize(img, 50, 40)
	bounds := resized.Bounds()
	if bounds.Dx() != 50 || bounds.Dy() != 40 {
		t.Errorf("Expected 50x40, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestResizePreservesRatioWithZeroDimension(t *testing.T) {
	img := createTestImage(100, 80)

	resized := Resize(img, 50, 0)
	bounds := resized.Bounds()
	if bounds.Dx() != 50 || bounds.Dy() != 40 {
		t.Errorf("Expected 50x40, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestFitStaysWithinBox(t *testing.T) {
	img := createTestImage(200, 100)

	fitted := Fit(img, 80, 80)
	bounds := fitted.Bounds()
	if bounds.Dx() != 80 || bounds.Dy() != 40 {
		t.Errorf("Expected 80x40, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestFillMatchesExactDimensions(t *testing.T) {
	img := createTestImage(200, 100)

	filled := Fill(img, 60, 60)
	bounds := filled.Bounds()
	if bounds.Dx() != 60 || bounds.Dy() != 60 {
		t.Errorf("Expected 60x60, got %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestThumbnailLimitsLongestSide(t *testing.T) {
	img := createTestImage(400, 200)

	thumb := Thumbnail(img, 100)
	bounds := thumb.Bounds()
	if bounds.Dx() != 100 || bounds.Dy() != 50 {
		t.Errorf("Expected 100x50, got %dx%d", bounds.Dx(), bounds.Dy())
	}

	// Already within the limit: unchanged
	small := Thumbnail(createTestImage(50, 30), 100)
	if small.Bounds().Dx() != 50 || small.Bounds().Dy() != 30 {
		t.Errorf("Expected small image untouched, got %dx%d", small.Bounds().Dx(), small.Bounds().Dy())
	}
}

func TestRotateQuarterTurns(t *testing.T) {
	img := createTestImage(100, 60)

	tests := []struct {
		turns         int
		width, height int
	}{
		{0, 100, 60},
		{1, 60, 100},
		{2, 100, 60},
		{3, 60, 100},
		{4, 100, 60},
		{5, 60, 100},
		{-1, 60, 100},
		{-2, 100, 60},
	}

	for _, tt := range tests {
		rotated := Rotate(img, tt.turns)
		bounds := rotated.Bounds()
		if bounds.Dx() != tt.width || bounds.Dy() != tt.height {
			t.Errorf("Rotate(%d): expected %dx%d, got %dx%d",
				tt.turns, tt.width, tt.height, bounds.Dx(), bounds.Dy())
		}
	}
}

func TestRotate90MovesCorner(t *testing.T) {
	img := createTestImage(10, 4)

	rotated := Rotate90(img)
	// Counter-clockwise: the top-right source pixel lands at the top-left
	got := rotated.NRGBAAt(0, 0)
	if got.R != 9 || got.G != 0 {
		t.Errorf("Expected source pixel (9, 0) at top-left, got (%d, %d)", got.R, got.G)
	}
}

func TestFlipHorizontal(t *testing.T) {
	img := createTestImage(10, 4)

	flipped := FlipHorizontal(img)
	got := flipped.NRGBAAt(0, 0)
	if got.R != 9 || got.G != 0 {
		t.Errorf("Expected source pixel (9, 0) at left edge, got (%d, %d)", got.R, got.G)
	}
}

func TestFlipVertical(t *testing.T) {
	img := createTestImage(10, 4)

	flipped := FlipVertical(img)
	got := flipped.NRGBAAt(0, 0)
	if got.R != 0 || got.G != 3 {
		t.Errorf("Expected source pixel (0, 3) at top edge, got (%d, %d)", got.R, got.G)
	}
}
