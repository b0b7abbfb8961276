package autocrop

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/menta2k/image-editor/pkg/geometry"
	"github.com/menta2k/image-editor/pkg/saliency"
)

// Subject describes the primary subject detected in an image. The box is
// normalized to [0,1] in both axes
type Subject struct {
	Label      string        `json:"label"`
	Confidence float64       `json:"confidence"`
	Box        geometry.Rect `json:"box"`
	Tags       []string      `json:"tags"`
}

// Source proposes the primary subject of an image
type Source interface {
	DetectSubject(ctx context.Context, img image.Image) (Subject, error)
}

// Config holds tuning for crop suggestions
type Config struct {
	Padding       float64 // fraction of the subject size added on each side
	MinConfidence float64 // below this the suggestion falls back to a centered crop
}

// DefaultConfig returns the default suggester configuration
func DefaultConfig() Config {
	return Config{
		Padding:       0.1,
		MinConfidence: 0.2,
	}
}

// Suggester turns detected subjects into crop rectangles of a requested
// aspect ratio
type Suggester struct {
	source Source
	config Config
}

// New creates a suggester with default configuration
func New(source Source) *Suggester {
	return NewWithConfig(source, DefaultConfig())
}

// NewWithConfig creates a suggester with custom configuration
func NewWithConfig(source Source, config Config) *Suggester {
	return &Suggester{source: source, config: config}
}

// Suggest returns a crop rectangle in image pixels that frames the
// detected subject at the given aspect ratio. A non-positive ratio keeps
// the image's own ratio. Low-confidence detections produce a centered crop
func (s *Suggester) Suggest(ctx context.Context, img image.Image, targetRatio float64) (geometry.Rect, error) {
	bounds := img.Bounds()
	width := float64(bounds.Dx())
	height := float64(bounds.Dy())
	if width <= 0 || height <= 0 {
		return geometry.Rect{}, fmt.Errorf("invalid image dimensions %dx%d", bounds.Dx(), bounds.Dy())
	}

	subject, err := s.source.DetectSubject(ctx, img)
	if err != nil {
		return geometry.Rect{}, fmt.Errorf("subject detection failed: %w", err)
	}

	box := geometry.NewRect(subject.Box.X*width, subject.Box.Y*height, subject.Box.Width*width, subject.Box.Height*height)
	if subject.Confidence < s.config.MinConfidence || box.IsEmpty() {
		box = geometry.NewRect(width*0.25, height*0.25, width*0.5, height*0.5)
	}

	padX := box.Width * s.config.Padding
	padY := box.Height * s.config.Padding
	padded := geometry.NewRect(box.X-padX, box.Y-padY, box.Width+2*padX, box.Height+2*padY)
	return fitRatioAround(padded, targetRatio, width, height), nil
}

// SaliencySource detects subjects with the local saliency detector, so
// suggestions work without a vision model
type SaliencySource struct {
	detector *saliency.Detector
}

// NewSaliencySource creates a saliency-backed subject source
func NewSaliencySource() *SaliencySource {
	return &SaliencySource{detector: saliency.New()}
}

// NewSaliencySourceWithDetector creates a source around an existing detector
func NewSaliencySourceWithDetector(detector *saliency.Detector) *SaliencySource {
	return &SaliencySource{detector: detector}
}

// DetectSubject returns the strongest salient region, normalized to [0,1].
// With nothing detectable it returns a centered half-image box with zero
// confidence
func (s *SaliencySource) DetectSubject(ctx context.Context, img image.Image) (Subject, error) {
	bounds := img.Bounds()
	width := float64(bounds.Dx())
	height := float64(bounds.Dy())
	if width <= 0 || height <= 0 {
		return Subject{}, fmt.Errorf("invalid image dimensions %dx%d", bounds.Dx(), bounds.Dy())
	}

	regions := s.detector.Detect(img)
	if len(regions) == 0 {
		return Subject{
			Label: "none",
			Box:   geometry.NewRect(0.25, 0.25, 0.5, 0.5),
			Tags:  []string{"generic", "center"},
		}, nil
	}

	best := regions[0]
	return Subject{
		Label:      "salient region",
		Confidence: clamp(best.Score, 0, 1),
		Box: geometry.NewRect(
			best.Rect.X/width,
			best.Rect.Y/height,
			best.Rect.Width/width,
			best.Rect.Height/height,
		),
		Tags: []string{"saliency"},
	}, nil
}

// fitRatioAround returns the smallest rectangle of the given aspect ratio
// that contains target, centered on it, shrunk and slid as needed to stay
// inside the image
func fitRatioAround(target geometry.Rect, ratio float64, imgW, imgH float64) geometry.Rect {
	if !(ratio > 0) {
		ratio = imgW / imgH
	}

	w := math.Max(target.Width, target.Height*ratio)
	h := w / ratio
	if w > imgW {
		w = imgW
		h = w / ratio
	}
	if h > imgH {
		h = imgH
		w = h * ratio
	}

	center := target.Center()
	x := clamp(center.X-w/2, 0, imgW-w)
	y := clamp(center.Y-h/2, 0, imgH-h)
	return geometry.NewRect(x, y, w, h)
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
