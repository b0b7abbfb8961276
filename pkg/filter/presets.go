package filter

import (
	"math"
	"sort"
	"strings"
)

// Luminance weights (ITU-R BT.709) used by the grayscale-family presets
const (
	lumR = 0.2126
	lumG = 0.7152
	lumB = 0.0722
)

// Normal returns the identity filter
func Normal() Matrix {
	return Identity()
}

// Grayscale converts the image to luminance-weighted gray
func Grayscale() Matrix {
	return Matrix{
		lumR, lumG, lumB, 0, 0,
		lumR, lumG, lumB, 0, 0,
		lumR, lumG, lumB, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// Sepia applies the classic warm brown tone
func Sepia() Matrix {
	return Matrix{
		0.393, 0.769, 0.189, 0, 0,
		0.349, 0.686, 0.168, 0, 0,
		0.272, 0.534, 0.131, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// Invert produces the photographic negative
func Invert() Matrix {
	return Matrix{
		-1, 0, 0, 0, 255,
		0, -1, 0, 0, 255,
		0, 0, -1, 0, 255,
		0, 0, 0, 1, 0,
	}
}

// Brightness scales all color channels by factor; 1 is unchanged
func Brightness(factor float64) Matrix {
	return Matrix{
		factor, 0, 0, 0, 0,
		0, factor, 0, 0, 0,
		0, 0, factor, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// Contrast scales channel distance from middle gray by factor; 1 is
// unchanged, 0 collapses everything to gray
func Contrast(factor float64) Matrix {
	t := 127.5 * (1 - factor)
	return Matrix{
		factor, 0, 0, 0, t,
		0, factor, 0, 0, t,
		0, 0, factor, 0, t,
		0, 0, 0, 1, 0,
	}
}

// Saturate adjusts color saturation; 1 is unchanged, 0 equals Grayscale
func Saturate(factor float64) Matrix {
	inv := 1 - factor
	r := inv * lumR
	g := inv * lumG
	b := inv * lumB
	return Matrix{
		r + factor, g, b, 0, 0,
		r, g + factor, b, 0, 0,
		r, g, b + factor, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// HueRotate rotates all hues by the given angle in degrees
func HueRotate(degrees float64) Matrix {
	rad := degrees * math.Pi / 180
	cos := math.Cos(rad)
	sin := math.Sin(rad)
	return Matrix{
		lumR + cos*(1-lumR) - sin*lumR, lumG - cos*lumG - sin*lumG, lumB - cos*lumB + sin*(1-lumB), 0, 0,
		lumR - cos*lumR + sin*0.143, lumG + cos*(1-lumG) + sin*0.140, lumB - cos*lumB - sin*0.283, 0, 0,
		lumR - cos*lumR - sin*(1-lumR), lumG - cos*lumG + sin*lumG, lumB + cos*(1-lumB) + sin*lumB, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// Temperature shifts colors warm (positive amount) or cool (negative).
// Useful range is roughly [-1, 1]
func Temperature(amount float64) Matrix {
	return Matrix{
		1 + amount, 0, 0, 0, 0,
		0, 1, 0, 0, 0,
		0, 0, 1 - amount, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// Tint shifts colors toward green (positive amount) or magenta (negative).
// Useful range is roughly [-1, 1]
func Tint(amount float64) Matrix {
	return Matrix{
		1, 0, 0, 0, 0,
		0, 1 + amount, 0, 0, 0,
		0, 0, 1, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// Opacity scales the alpha channel; 1 is opaque, 0 fully transparent
func Opacity(alpha float64) Matrix {
	return Matrix{
		1, 0, 0, 0, 0,
		0, 1, 0, 0, 0,
		0, 0, 1, 0, 0,
		0, 0, 0, alpha, 0,
	}
}

// Polaroid emulates instant-film color response
func Polaroid() Matrix {
	return Matrix{
		1.438, -0.062, -0.062, 0, 0,
		-0.122, 1.378, -0.122, 0, 0,
		-0.016, -0.016, 1.483, 0, 0,
		0, 0, 0, 1, 0,
	}
}

// LuminanceToAlpha writes pixel luminance into the alpha channel and
// clears the color channels, useful as a mask source
func LuminanceToAlpha() Matrix {
	return Matrix{
		0, 0, 0, 0, 0,
		0, 0, 0, 0, 0,
		0, 0, 0, 0, 0,
		lumR, lumG, lumB, 0, 0,
	}
}

// Lookup returns the named parameterless preset. Names are matched
// case-insensitively
func Lookup(name string) (Matrix, bool) {
	switch strings.ToLower(name) {
	case "normal", "none":
		return Normal(), true
	case "grayscale", "greyscale":
		return Grayscale(), true
	case "sepia":
		return Sepia(), true
	case "invert", "negative":
		return Invert(), true
	case "warm":
		return Temperature(0.2), true
	case "cool":
		return Temperature(-0.2), true
	case "polaroid":
		return Polaroid(), true
	case "vivid":
		return Saturate(1.4), true
	case "muted":
		return Saturate(0.6), true
	case "luminance-to-alpha":
		return LuminanceToAlpha(), true
	}
	return Matrix{}, false
}

// Names returns the preset names accepted by Lookup, sorted alphabetically
func Names() []string {
	names := []string{
		"normal", "grayscale", "sepia", "invert", "warm", "cool",
		"polaroid", "vivid", "muted", "luminance-to-alpha",
	}
	sort.Strings(names)
	return names
}
