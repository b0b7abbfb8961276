package saliency

import (
	"image"
	"image/color"
	"testing"

	"github.com/menta2k/image-editor/pkg/geometry"
)

// createTestImage builds a dark image with a bright square subject
func createTestImage(width, height int, subject geometry.Rect) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBA{R: 15, G: 15, B: 20, A: 255}
			if subject.Contains(geometry.NewPoint(float64(x), float64(y))) {
				c = color.NRGBA{R: 240, G: 230, B: 200, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestDetectFindsBrightSubject(t *testing.T) {
	subject := geometry.NewRect(120, 80, 100, 100)
	img := createTestImage(320, 240, subject)

	d := New()
	regions := d.Detect(img)
	if len(regions) == 0 {
		t.Fatalf("Expected at least one region")
	}

	// The strongest region should overlap the bright square
	best := regions[0]
	if !best.Rect.Intersects(subject) {
		t.Errorf("Expected top region to overlap subject, got %+v", best.Rect)
	}
	if best.Score <= 0 {
		t.Errorf("Expected positive score, got %f", best.Score)
	}
}

func TestDetectReturnsStrongestFirst(t *testing.T) {
	img := createTestImage(320, 240, geometry.NewRect(40, 40, 120, 120))

	d := New()
	regions := d.Detect(img)
	for i := 1; i < len(regions); i++ {
		if regions[i].Score > regions[i-1].Score {
			t.Errorf("Expected descending scores, got %f after %f", regions[i].Score, regions[i-1].Score)
		}
	}
}

func TestDetectRespectsMaxRegions(t *testing.T) {
	img := createTestImage(320, 240, geometry.NewRect(40, 40, 200, 150))

	d := NewWithConfig(Config{
		EdgeWeight:       0.7,
		BrightnessWeight: 0.3,
		ScoreThreshold:   0.001,
		MinRegionRatio:   0.01,
		MaxRegions:       3,
	})
	regions := d.Detect(img)
	if len(regions) > 3 {
		t.Errorf("Expected at most 3 regions, got %d", len(regions))
	}
}

func TestDetectTinyImage(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))

	d := New()
	if regions := d.Detect(img); regions != nil {
		t.Errorf("Expected nil for tiny image, got %d regions", len(regions))
	}
}

func TestBestCropHonorsAspectRatio(t *testing.T) {
	img := createTestImage(400, 200, geometry.NewRect(50, 50, 80, 80))

	d := New()
	crop := d.BestCrop(img, 1.0)

	ratio := crop.Rect.Width / crop.Rect.Height
	if ratio < 0.99 || ratio > 1.01 {
		t.Errorf("Expected square crop, got ratio %f", ratio)
	}
	if crop.Rect.Width != 200 {
		t.Errorf("Expected crop constrained by height to 200, got %f", crop.Rect.Width)
	}
}

func TestBestCropStaysInsideImage(t *testing.T) {
	img := createTestImage(400, 300, geometry.NewRect(300, 200, 90, 90))

	d := New()
	crop := d.BestCrop(img, 16.0/9.0)

	imageBounds := geometry.NewRect(0, 0, 400, 300)
	if !imageBounds.ContainsRect(crop.Rect) {
		t.Errorf("Expected crop inside image, got %+v", crop.Rect)
	}
}

func TestBestCropCoversSubject(t *testing.T) {
	// Subject sits on the right; a square crop should shift toward it
	subject := geometry.NewRect(280, 60, 100, 100)
	img := createTestImage(400, 200, subject)

	d := New()
	crop := d.BestCrop(img, 1.0)

	if !crop.Rect.Intersects(subject) {
		t.Errorf("Expected crop to overlap subject, got %+v", crop.Rect)
	}
	if crop.Rect.X == 0 {
		t.Errorf("Expected crop shifted toward right-side subject")
	}
}

func TestBestCropFallsBackToCenter(t *testing.T) {
	// Uniform black image has no salient regions
	img := image.NewNRGBA(image.Rect(0, 0, 400, 200))

	d := New()
	crop := d.BestCrop(img, 1.0)

	want := geometry.NewRect(100, 0, 200, 200)
	if !crop.Rect.ApproxEqual(want, 0.5) {
		t.Errorf("Expected centered crop %+v, got %+v", want, crop.Rect)
	}
	if crop.Score != 0 {
		t.Errorf("Expected zero score for fallback crop, got %f", crop.Score)
	}
}

func TestBestCropDefaultRatio(t *testing.T) {
	img := createTestImage(300, 200, geometry.NewRect(50, 50, 60, 60))

	d := New()
	crop := d.BestCrop(img, 0)

	ratio := crop.Rect.Width / crop.Rect.Height
	if ratio < 1.49 || ratio > 1.51 {
		t.Errorf("Expected image's own ratio 1.5, got %f", ratio)
	}
}

func TestDominantColors(t *testing.T) {
	img := createTestImage(100, 100, geometry.NewRect(0, 0, 100, 50))

	colors := DominantColors(img, geometry.NewRect(0, 0, 100, 100), 2)
	if len(colors) != 2 {
		t.Fatalf("Expected 2 colors, got %d", len(colors))
	}

	// Both tones are equally frequent; quantized values of the bright and
	// dark fills must both be present
	seen := map[color.NRGBA]bool{}
	for _, c := range colors {
		seen[c] = true
	}
	if !seen[color.NRGBA{R: 240, G: 224, B: 192, A: 255}] {
		t.Errorf("Expected quantized bright tone, got %v", colors)
	}
	if !seen[color.NRGBA{R: 0, G: 0, B: 16, A: 255}] {
		t.Errorf("Expected quantized dark tone, got %v", colors)
	}
}

func TestDominantColorsEmptyRegion(t *testing.T) {
	img := createTestImage(50, 50, geometry.NewRect(0, 0, 10, 10))

	if colors := DominantColors(img, geometry.NewRect(200, 200, 10, 10), 5); colors != nil {
		t.Errorf("Expected nil for region outside image, got %v", colors)
	}
}

func BenchmarkDetect(b *testing.B) {
	img := createTestImage(640, 480, geometry.NewRect(200, 150, 150, 150))
	d := New()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.Detect(img)
	}
}
