package cropper

import "strings"

// AspectRatio represents a named aspect-ratio preset
type AspectRatio struct {
	Width  int
	Height int
	Name   string
}

// Common aspect ratios
var (
	Square     = AspectRatio{1, 1, "square"}
	Portrait   = AspectRatio{3, 4, "portrait"}
	Landscape  = AspectRatio{4, 3, "landscape"}
	Widescreen = AspectRatio{16, 9, "widescreen"}
	Instagram  = AspectRatio{4, 5, "instagram"}
	Story      = AspectRatio{9, 16, "story"}
)

// CommonAspectRatios returns a list of commonly used aspect ratios
func CommonAspectRatios() []AspectRatio {
	return []AspectRatio{Square, Portrait, Landscape, Widescreen, Instagram, Story}
}

// Ratio returns the width/height ratio as a float
func (a AspectRatio) Ratio() float64 {
	if a.Height == 0 {
		return 0
	}
	return float64(a.Width) / float64(a.Height)
}

// LookupAspectRatio finds a preset by name, matched case-insensitively;
// ok is false when no preset matches
func LookupAspectRatio(name string) (AspectRatio, bool) {
	for _, ratio := range CommonAspectRatios() {
		if strings.EqualFold(ratio.Name, name) {
			return ratio, true
		}
	}
	return AspectRatio{}, false
}
