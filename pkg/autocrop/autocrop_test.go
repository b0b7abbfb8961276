package autocrop

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"testing"

	"github.com/menta2k/image-editor/pkg/geometry"
)

// stubSource returns a fixed subject or error
type stubSource struct {
	subject Subject
	err     error
}

func (s stubSource) DetectSubject(ctx context.Context, img image.Image) (Subject, error) {
	return s.subject, s.err
}

func testImage(width, height int) *image.NRGBA {
	return image.NewNRGBA(image.Rect(0, 0, width, height))
}

func TestSuggestFramesSubject(t *testing.T) {
	source := stubSource{subject: Subject{
		Label:      "dog",
		Confidence: 0.9,
		Box:        geometry.NewRect(0.4, 0.4, 0.2, 0.2),
	}}
	s := New(source)

	crop, err := s.Suggest(context.Background(), testImage(1000, 500), 1.0)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	want := geometry.NewRect(380, 130, 240, 240)
	if !crop.ApproxEqual(want, 1e-9) {
		t.Errorf("Expected %+v, got %+v", want, crop)
	}

	// The padded subject must be fully covered
	padded := geometry.NewRect(380, 190, 240, 120)
	if !crop.ContainsRect(padded) {
		t.Errorf("Expected crop to contain padded subject %+v, got %+v", padded, crop)
	}
}

func TestSuggestSlidesCropInsideImage(t *testing.T) {
	source := stubSource{subject: Subject{
		Label:      "corner",
		Confidence: 1.0,
		Box:        geometry.NewRect(0.9, 0.9, 0.1, 0.1),
	}}
	s := New(source)

	crop, err := s.Suggest(context.Background(), testImage(1000, 500), 1.0)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	want := geometry.NewRect(880, 380, 120, 120)
	if !crop.ApproxEqual(want, 1e-9) {
		t.Errorf("Expected %+v, got %+v", want, crop)
	}
	if !geometry.NewRect(0, 0, 1000, 500).ContainsRect(crop) {
		t.Errorf("Expected crop inside image, got %+v", crop)
	}
}

func TestSuggestCapsOversizedSubject(t *testing.T) {
	source := stubSource{subject: Subject{
		Label:      "everything",
		Confidence: 1.0,
		Box:        geometry.NewRect(0, 0, 1, 1),
	}}
	s := New(source)

	crop, err := s.Suggest(context.Background(), testImage(1000, 500), 1.0)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	want := geometry.NewRect(250, 0, 500, 500)
	if !crop.ApproxEqual(want, 1e-9) {
		t.Errorf("Expected %+v, got %+v", want, crop)
	}
}

func TestSuggestLowConfidenceFallsBackToCenter(t *testing.T) {
	source := stubSource{subject: Subject{
		Label:      "maybe",
		Confidence: 0.1,
		Box:        geometry.NewRect(0.8, 0.8, 0.1, 0.1),
	}}
	s := New(source)

	crop, err := s.Suggest(context.Background(), testImage(1000, 500), 0)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	want := geometry.NewRect(200, 100, 600, 300)
	if !crop.ApproxEqual(want, 1e-9) {
		t.Errorf("Expected centered crop %+v, got %+v", want, crop)
	}
}

func TestSuggestPropagatesSourceError(t *testing.T) {
	source := stubSource{err: fmt.Errorf("model offline")}
	s := New(source)

	if _, err := s.Suggest(context.Background(), testImage(100, 100), 1.0); err == nil {
		t.Errorf("Expected error from failing source")
	}
}

func TestSuggestInvalidImage(t *testing.T) {
	s := New(stubSource{})
	if _, err := s.Suggest(context.Background(), testImage(0, 0), 1.0); err == nil {
		t.Errorf("Expected error for empty image")
	}
}

func TestSaliencySourceFindsBrightSubject(t *testing.T) {
	img := testImage(320, 240)
	for y := 0; y < 240; y++ {
		for x := 0; x < 320; x++ {
			c := color.NRGBA{R: 10, G: 10, B: 10, A: 255}
			if x >= 100 && x < 220 && y >= 60 && y < 180 {
				c = color.NRGBA{R: 250, G: 240, B: 220, A: 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}

	source := NewSaliencySource()
	subject, err := source.DetectSubject(context.Background(), img)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if subject.Confidence <= 0 {
		t.Errorf("Expected positive confidence, got %f", subject.Confidence)
	}

	// Normalized subject box must overlap the bright area
	bright := geometry.NewRect(100.0/320, 60.0/240, 120.0/320, 120.0/240)
	if !subject.Box.Intersects(bright) {
		t.Errorf("Expected subject box to overlap bright area, got %+v", subject.Box)
	}
}

func TestSaliencySourceFallsBackOnFlatImage(t *testing.T) {
	source := NewSaliencySource()
	subject, err := source.DetectSubject(context.Background(), testImage(320, 240))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if subject.Label != "none" {
		t.Errorf("Expected label none, got %q", subject.Label)
	}
	if subject.Confidence != 0 {
		t.Errorf("Expected zero confidence, got %f", subject.Confidence)
	}
	if !subject.Box.ApproxEqual(geometry.NewRect(0.25, 0.25, 0.5, 0.5), 1e-9) {
		t.Errorf("Expected centered fallback box, got %+v", subject.Box)
	}
}
