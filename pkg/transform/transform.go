package transform

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/menta2k/image-editor/pkg/geometry"
)

// Crop extracts the region r, given in image pixels, from img. The region
// is rounded to whole pixels and clipped to the image bounds
func Crop(img image.Image, r geometry.Rect) (*image.NRGBA, error) {
	bounds := img.Bounds()
	w := float64(bounds.Dx())
	h := float64(bounds.Dy())

	x0 := int(clamp(r.X, 0, w) + 0.5)
	y0 := int(clamp(r.Y, 0, h) + 0.5)
	x1 := int(clamp(r.Right(), 0, w) + 0.5)
	y1 := int(clamp(r.Bottom(), 0, h) + 0.5)

	rect := image.Rect(x0, y0, x1, y1).Add(bounds.Min)
	if rect.Empty() {
		return nil, fmt.Errorf("empty crop rectangle %.0fx%.0f at (%.0f, %.0f)", r.Width, r.Height, r.X, r.Y)
	}

	return imaging.Crop(img, rect), nil
}

// Resize scales the image to the exact dimensions. A zero width or height
// preserves the aspect ratio from the other dimension
func Resize(img image.Image, width, height int) *image.NRGBA {
	return imaging.Resize(img, width, height, imaging.Lanczos)
}

// Fit scales the image down to fit within the given dimensions while
// preserving aspect ratio. Images already within the box are returned
// at original size
func Fit(img image.Image, width, height int) *image.NRGBA {
	return imaging.Fit(img, width, height, imaging.Lanczos)
}

// Fill scales and center-crops the image to exactly the given dimensions
func Fill(img image.Image, width, height int) *image.NRGBA {
	return imaging.Fill(img, width, height, imaging.Center, imaging.Lanczos)
}

// Thumbnail scales the image down so its longest side is at most maxDim
// pixels. Smaller images are returned as an unscaled copy
func Thumbnail(img image.Image, maxDim int) *image.NRGBA {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if maxDim <= 0 || (w <= maxDim && h <= maxDim) {
		return imaging.Clone(img)
	}
	if w >= h {
		return imaging.Resize(img, maxDim, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, maxDim, imaging.Lanczos)
}

// Rotate rotates the image by the given number of quarter turns
// counter-clockwise. Negative values rotate clockwise
func Rotate(img image.Image, turns int) *image.NRGBA {
	switch ((turns % 4) + 4) % 4 {
	case 1:
		return imaging.Rotate90(img)
	case 2:
		return imaging.Rotate180(img)
	case 3:
		return imaging.Rotate270(img)
	default:
		return imaging.Clone(img)
	}
}

// Rotate90 rotates the image 90 degrees counter-clockwise
func Rotate90(img image.Image) *image.NRGBA {
	return imaging.Rotate90(img)
}

// Rotate180 rotates the image 180 degrees
func Rotate180(img image.Image) *image.NRGBA {
	return imaging.Rotate180(img)
}

// Rotate270 rotates the image 270 degrees counter-clockwise
func Rotate270(img image.Image) *image.NRGBA {
	return imaging.Rotate270(img)
}

// FlipHorizontal mirrors the image left to right
func FlipHorizontal(img image.Image) *image.NRGBA {
	return imaging.FlipH(img)
}

// FlipVertical mirrors the image top to bottom
func FlipVertical(img image.Image) *image.NRGBA {
	return imaging.FlipV(img)
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
