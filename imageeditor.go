// Package imageeditor provides mobile-style image editing building blocks:
// an interactive crop engine, color filters, geometric transforms and
// subject-aware crop suggestions.
//
// Basic usage:
//
//	package main
//
//	import (
//		"fmt"
//		"log"
//
//		"github.com/menta2k/image-editor"
//		"github.com/menta2k/image-editor/pkg/geometry"
//	)
//
//	func main() {
//		editor := imageeditor.New()
//
//		// Load an image from a file or URL
//		img, err := editor.LoadImage("photo.jpg")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		info := editor.Info(img)
//		fmt.Printf("Image: %dx%d (ratio: %.2f)\n", info.Width, info.Height, info.AspectRatio)
//
//		// Crop a region and warm it up with a filter
//		cropped, err := editor.Crop(img, geometry.NewRect(100, 50, 800, 800))
//		if err != nil {
//			log.Fatal(err)
//		}
//		warmed, err := editor.ApplyFilters(cropped, "sepia")
//		if err != nil {
//			log.Fatal(err)
//		}
//
//		if err := editor.SaveImage(warmed, "photo_square.jpg"); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// The package consists of these components:
//
// 1. Cropper (pkg/cropper): Interactive crop sessions with handle hit-testing and constraint solving
// 2. Filter (pkg/filter): Color-matrix filters and presets
// 3. Transform (pkg/transform): Crop, resize, rotate and flip operations
// 4. Loader (pkg/loader): Cached image loading from files and URLs
// 5. Export (pkg/export): Encoding and saving in JPEG, PNG and WebP
// 6. Saliency (pkg/saliency): Local region-of-interest detection
// 7. Autocrop (pkg/autocrop): Subject-aware crop suggestions, optionally backed by a vision model
// 8. Preview (pkg/preview): Zoomable, filtered viewport rendering
//
// Features:
//
//   - Touch-friendly crop gestures with aspect-ratio locking and minimum-size rules
//   - Composable color filters applied in a single pass
//   - Automatic crop suggestions around the detected subject
//   - In-memory caching for repeated loads of the same source
//   - CLI tool and HTTP bridge for batch and interactive use
//
// Interactive crop state lives in a cropper.Session: pointer events go in,
// image-space rectangles come out. The Editor wraps the stateless operations
// around it, so a UI embeds the session while the rest of the pipeline stays
// functional.
package imageeditor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"

	"github.com/menta2k/image-editor/internal/utils"
	"github.com/menta2k/image-editor/pkg/autocrop"
	"github.com/menta2k/image-editor/pkg/cropper"
	"github.com/menta2k/image-editor/pkg/export"
	"github.com/menta2k/image-editor/pkg/filter"
	"github.com/menta2k/image-editor/pkg/geometry"
	"github.com/menta2k/image-editor/pkg/loader"
	"github.com/menta2k/image-editor/pkg/saliency"
	"github.com/menta2k/image-editor/pkg/transform"
)

// Version of the image editor library
const Version = "1.0.0"

// Editor provides a high-level interface for loading, editing and saving
// images
type Editor struct {
	loader    *loader.Loader
	suggester *autocrop.Suggester
}

// New creates a new Editor with default configuration
func New() *Editor {
	return &Editor{
		loader:    loader.New(),
		suggester: autocrop.New(autocrop.NewSaliencySource()),
	}
}

// NewWithConfig creates a new Editor with custom configuration
func NewWithConfig(loaderConfig loader.Config, suggestConfig autocrop.Config) *Editor {
	return &Editor{
		loader:    loader.NewWithConfig(loaderConfig),
		suggester: autocrop.NewWithConfig(autocrop.NewSaliencySource(), suggestConfig),
	}
}

// SetSubjectSource replaces the detection backend used for crop
// suggestions, e.g. with a vision-model source
func (e *Editor) SetSubjectSource(source autocrop.Source) {
	e.suggester = autocrop.New(source)
}

// Info contains basic information about an image
type Info struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	AspectRatio float64 `json:"aspect_ratio"`
}

// LoadImage loads an image from a file path or an http(s) URL
func (e *Editor) LoadImage(source string) (image.Image, error) {
	return e.loader.Load(source)
}

// LoadImageFromReader loads an image from an io.Reader
func (e *Editor) LoadImageFromReader(reader io.Reader) (image.Image, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return loader.Decode(data)
}

// SaveImage saves an image to a file, inferring the format from the
// extension
func (e *Editor) SaveImage(img image.Image, path string) error {
	return export.Save(img, path, export.Options{})
}

// EncodeImage encodes an image into the given format
func (e *Editor) EncodeImage(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := export.Encode(&buf, img, export.Options{Format: format, Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Info returns basic information about an image
func (e *Editor) Info(img image.Image) Info {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	ratio := 0.0
	if height > 0 {
		ratio = float64(width) / float64(height)
	}
	return Info{Width: width, Height: height, AspectRatio: ratio}
}

// NewCropSession creates an interactive crop session sized to the image.
// The embedder supplies the viewport and pointer events
func (e *Editor) NewCropSession(img image.Image) *cropper.Session {
	session := cropper.New()
	bounds := img.Bounds()
	session.SetImageSize(float64(bounds.Dx()), float64(bounds.Dy()))
	return session
}

// Crop extracts the rectangle from the image
func (e *Editor) Crop(img image.Image, rect geometry.Rect) (*image.NRGBA, error) {
	return transform.Crop(img, rect)
}

// SuggestCrop proposes a crop of the given aspect ratio around the
// detected subject. A non-positive ratio keeps the image's own ratio
func (e *Editor) SuggestCrop(ctx context.Context, img image.Image, ratio float64) (geometry.Rect, error) {
	return e.suggester.Suggest(ctx, img, ratio)
}

// AutoCrop suggests and applies a crop in one step
func (e *Editor) AutoCrop(ctx context.Context, img image.Image, ratio float64) (*image.NRGBA, error) {
	rect, err := e.SuggestCrop(ctx, img, ratio)
	if err != nil {
		return nil, err
	}
	return transform.Crop(img, rect)
}

// ApplyFilters applies named filter presets in order
func (e *Editor) ApplyFilters(img image.Image, names ...string) (*image.NRGBA, error) {
	chain := make(filter.Chain, 0, len(names))
	for _, name := range names {
		m, ok := filter.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown filter %q", name)
		}
		chain = append(chain, m)
	}
	return chain.Apply(img), nil
}

// Rotate rotates an image by the given number of quarter turns
// counter-clockwise
func (e *Editor) Rotate(img image.Image, turns int) *image.NRGBA {
	return transform.Rotate(img, turns)
}

// Resize resizes an image to the exact dimensions
func (e *Editor) Resize(img image.Image, width, height int) *image.NRGBA {
	return transform.Resize(img, width, height)
}

// DominantColors returns the most frequent colors of the whole image
func (e *Editor) DominantColors(img image.Image, max int) []string {
	bounds := img.Bounds()
	full := geometry.NewRect(0, 0, float64(bounds.Dx()), float64(bounds.Dy()))
	colors := saliency.DominantColors(img, full, max)
	hexes := make([]string, len(colors))
	for i, c := range colors {
		hexes[i] = fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return hexes
}

// ProcessImageFile loads an image, auto-crops it to each ratio and saves
// the results into outputDir
func (e *Editor) ProcessImageFile(ctx context.Context, inputPath, outputDir string, ratios []cropper.AspectRatio) error {
	img, err := e.LoadImage(inputPath)
	if err != nil {
		return fmt.Errorf("failed to load image: %w", err)
	}

	if err := utils.EnsureDir(outputDir); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	for _, ratio := range ratios {
		cropped, err := e.AutoCrop(ctx, img, ratio.Ratio())
		if err != nil {
			return fmt.Errorf("failed to crop to %s: %w", ratio.Name, err)
		}
		outputPath := utils.GenerateOutputFilename(inputPath, outputDir, "", "_"+ratio.Name, "")
		if err := e.SaveImage(cropped, outputPath); err != nil {
			return fmt.Errorf("failed to save crop %s: %w", ratio.Name, err)
		}
	}

	return nil
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
