package saliency

import (
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/menta2k/image-editor/pkg/geometry"
	"github.com/menta2k/image-editor/pkg/transform"
)

// analysisMaxDim bounds the resolution the detector works at; larger
// images are downscaled first and the results mapped back
const analysisMaxDim = 256

// Config holds tuning for the saliency detector
type Config struct {
	EdgeWeight       float64
	BrightnessWeight float64
	ScoreThreshold   float64
	MinRegionRatio   float64
	MaxRegions       int
}

// DefaultConfig returns the default detector configuration
func DefaultConfig() Config {
	return Config{
		EdgeWeight:       0.7,
		BrightnessWeight: 0.3,
		ScoreThreshold:   0.01,
		MinRegionRatio:   0.05,
		MaxRegions:       10,
	}
}

// Detector finds visually important regions in an image using edge and
// brightness saliency
type Detector struct {
	config Config
}

// New creates a new detector with default configuration
func New() *Detector {
	return &Detector{config: DefaultConfig()}
}

// NewWithConfig creates a new detector with custom configuration
func NewWithConfig(config Config) *Detector {
	return &Detector{config: config}
}

// Region is a rectangular area of interest with an importance score
type Region struct {
	Rect  geometry.Rect
	Score float64
}

// Detect returns the most salient regions of img in image pixel
// coordinates, strongest first
func (d *Detector) Detect(img image.Image) []Region {
	bounds := img.Bounds()
	if bounds.Dx() < 3 || bounds.Dy() < 3 {
		return nil
	}

	scaled := transform.Thumbnail(img, analysisMaxDim)
	factorX := float64(bounds.Dx()) / float64(scaled.Bounds().Dx())
	factorY := float64(bounds.Dy()) / float64(scaled.Bounds().Dy())

	m := computeMap(scaled, d.config)
	regions := d.slidingWindows(m)
	regions = d.filterRegions(regions, m.width, m.height)

	// Back to full-resolution coordinates
	for i := range regions {
		r := regions[i].Rect
		regions[i].Rect = geometry.NewRect(r.X*factorX, r.Y*factorY, r.Width*factorX, r.Height*factorY)
	}
	return regions
}

// BestCrop returns the crop of the given aspect ratio that covers the most
// important detected regions. A non-positive ratio keeps the image's own
// ratio; with no detectable subjects the crop is centered
func (d *Detector) BestCrop(img image.Image, targetRatio float64) Region {
	bounds := img.Bounds()
	width := float64(bounds.Dx())
	height := float64(bounds.Dy())
	if width <= 0 || height <= 0 {
		return Region{}
	}
	if !(targetRatio > 0) {
		targetRatio = width / height
	}

	var cropW, cropH float64
	if targetRatio > width/height {
		cropW = width
		cropH = width / targetRatio
	} else {
		cropH = height
		cropW = height * targetRatio
	}

	centered := geometry.NewRect((width-cropW)/2, (height-cropH)/2, cropW, cropH)
	subjects := d.Detect(img)
	if len(subjects) == 0 {
		return Region{Rect: centered}
	}

	step := math.Max(math.Max(cropW, cropH)/20, 10)
	best := Region{Rect: centered}
	for y := 0.0; y <= height-cropH; y += step {
		for x := 0.0; x <= width-cropW; x += step {
			candidate := geometry.NewRect(x, y, cropW, cropH)
			score := coverageScore(subjects, candidate)
			if score > best.Score {
				best = Region{Rect: candidate, Score: score}
			}
		}
	}
	return best
}

// DominantColors extracts up to max dominant colors from a region of img.
// Colors are quantized to 4 bits per channel to suppress noise
func DominantColors(img image.Image, region geometry.Rect, max int) []color.NRGBA {
	bounds := img.Bounds()
	startX := bounds.Min.X + int(math.Max(region.X, 0))
	startY := bounds.Min.Y + int(math.Max(region.Y, 0))
	endX := bounds.Min.X + int(math.Min(region.Right(), float64(bounds.Dx())))
	endY := bounds.Min.Y + int(math.Min(region.Bottom(), float64(bounds.Dy())))

	histogram := make(map[uint32]int)
	for y := startY; y < endY; y++ {
		for x := startX; x < endX; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			rq := (r >> 8) & 0xf0
			gq := (g >> 8) & 0xf0
			bq := (b >> 8) & 0xf0
			histogram[(rq<<16)|(gq<<8)|bq]++
		}
	}
	if len(histogram) == 0 {
		return nil
	}

	type bucket struct {
		key   uint32
		count int
	}
	buckets := make([]bucket, 0, len(histogram))
	for key, count := range histogram {
		buckets = append(buckets, bucket{key, count})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].count > buckets[j].count })

	if max <= 0 {
		max = 5
	}
	if len(buckets) > max {
		buckets = buckets[:max]
	}

	colors := make([]color.NRGBA, 0, len(buckets))
	for _, b := range buckets {
		colors = append(colors, color.NRGBA{
			R: uint8(b.key >> 16),
			G: uint8(b.key >> 8),
			B: uint8(b.key),
			A: 255,
		})
	}
	return colors
}

// saliencyMap holds per-pixel importance in a flat row-major buffer
type saliencyMap struct {
	values []float64
	width  int
	height int
}

func (m saliencyMap) at(x, y int) float64 {
	return m.values[y*m.width+x]
}

// computeMap scores each pixel by local edge strength and brightness
func computeMap(img *image.NRGBA, config Config) saliencyMap {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	m := saliencyMap{
		values: make([]float64, width*height),
		width:  width,
		height: height,
	}

	const maxColorDist = 441.673 // sqrt(3 * 255^2)
	neighbors := [8][2]int{{-1, -1}, {-1, 0}, {-1, 1}, {0, -1}, {0, 1}, {1, -1}, {1, 0}, {1, 1}}

	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*img.Stride + x*4
			r := float64(img.Pix[i])
			g := float64(img.Pix[i+1])
			b := float64(img.Pix[i+2])

			var edge float64
			for _, offset := range neighbors {
				j := (y+offset[1])*img.Stride + (x+offset[0])*4
				dr := r - float64(img.Pix[j])
				dg := g - float64(img.Pix[j+1])
				db := b - float64(img.Pix[j+2])
				edge += math.Sqrt(dr*dr + dg*dg + db*db)
			}
			edge /= 8 * maxColorDist

			brightness := (r + g + b) / (3 * 255)
			m.values[y*width+x] = config.EdgeWeight*edge + config.BrightnessWeight*brightness
		}
	}
	return m
}

// slidingWindows scans the map at several window sizes and keeps windows
// whose mean saliency clears the threshold. Windows derive from the longer
// side so portrait and landscape images yield the same region sizes
func (d *Detector) slidingWindows(m saliencyMap) []Region {
	var regions []Region

	longSide := m.width
	if m.height > longSide {
		longSide = m.height
	}

	for _, div := range []int{12, 8, 6, 4} {
		window := longSide / div
		if window < 8 || window > m.width || window > m.height {
			continue
		}
		step := window / 4
		if step < 1 {
			step = 1
		}

		for y := 0; y+window <= m.height; y += step {
			for x := 0; x+window <= m.width; x += step {
				score := m.regionMean(x, y, window, window)
				if score > d.config.ScoreThreshold {
					regions = append(regions, Region{
						Rect:  geometry.NewRect(float64(x), float64(y), float64(window), float64(window)),
						Score: score,
					})
				}
			}
		}
	}
	return regions
}

func (m saliencyMap) regionMean(x, y, width, height int) float64 {
	var total float64
	count := 0
	for ry := y; ry < y+height && ry < m.height; ry++ {
		for rx := x; rx < x+width && rx < m.width; rx++ {
			total += m.at(rx, ry)
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

// filterRegions drops regions below the minimum area, sorts by score and
// caps the result count
func (d *Detector) filterRegions(regions []Region, width, height int) []Region {
	minArea := float64(width*height) * d.config.MinRegionRatio

	filtered := regions[:0]
	for _, region := range regions {
		if region.Rect.Width*region.Rect.Height >= minArea {
			filtered = append(filtered, region)
		}
	}

	sort.Slice(filtered, func(i, j int) bool { return filtered[i].Score > filtered[j].Score })

	if d.config.MaxRegions > 0 && len(filtered) > d.config.MaxRegions {
		filtered = filtered[:d.config.MaxRegions]
	}
	return filtered
}

func coverageScore(subjects []Region, crop geometry.Rect) float64 {
	var score float64
	for _, subject := range subjects {
		overlap := crop.Intersect(subject.Rect)
		if overlap.IsEmpty() {
			continue
		}
		area := subject.Rect.Width * subject.Rect.Height
		if area <= 0 {
			continue
		}
		score += (overlap.Width * overlap.Height) / area * subject.Score
	}
	return score
}
