package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/menta2k/image-editor/internal/config"
	"github.com/menta2k/image-editor/pkg/geometry"
)

func TestParseRect(t *testing.T) {
	rect, err := parseRect("10, 20, 300, 200")
	if err != nil {
		t.Fatalf("Failed to parse rect: %v", err)
	}
	expected := geometry.NewRect(10, 20, 300, 200)
	if rect != expected {
		t.Errorf("Expected %+v, got %+v", expected, rect)
	}

	if _, err := parseRect("10,20,300"); err == nil {
		t.Error("Expected error for three components")
	}
	if _, err := parseRect("10,20,abc,200"); err == nil {
		t.Error("Expected error for non-numeric component")
	}
}

func TestParseRatio(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"", 0},
		{"1.5", 1.5},
		{"16:9", 16.0 / 9.0},
		{"square", 1.0},
		{"Widescreen", 16.0 / 9.0},
		{"4:5", 0.8},
	}
	for _, test := range tests {
		ratio, err := parseRatio(test.input)
		if err != nil {
			t.Errorf("parseRatio(%q) returned error: %v", test.input, err)
			continue
		}
		if ratio != test.expected {
			t.Errorf("parseRatio(%q) = %v, expected %v", test.input, ratio, test.expected)
		}
	}

	for _, input := range []string{"abc", "-1", "0", "16:0", ":9", "16:"} {
		if _, err := parseRatio(input); err == nil {
			t.Errorf("Expected error for parseRatio(%q)", input)
		}
	}
}

func TestCenteredRatioRect(t *testing.T) {
	square := centeredRatioRect(1000, 800, 1.0)
	expected := geometry.NewRect(100, 0, 800, 800)
	if !square.ApproxEqual(expected, 1e-9) {
		t.Errorf("Expected %+v, got %+v", expected, square)
	}

	wide := centeredRatioRect(1000, 800, 2.0)
	expected = geometry.NewRect(0, 150, 1000, 500)
	if !wide.ApproxEqual(expected, 1e-9) {
		t.Errorf("Expected %+v, got %+v", expected, wide)
	}
}

func TestCollectInputs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.jpg", "b.png", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
	}

	inputs, err := collectInputs(dir)
	if err != nil {
		t.Fatalf("Failed to collect inputs: %v", err)
	}
	if len(inputs) != 2 {
		t.Errorf("Expected 2 image files, got %d: %v", len(inputs), inputs)
	}

	single, err := collectInputs(filepath.Join(dir, "a.jpg"))
	if err != nil {
		t.Fatalf("Failed to collect single input: %v", err)
	}
	if len(single) != 1 {
		t.Errorf("Expected 1 input, got %d", len(single))
	}

	if _, err := collectInputs(filepath.Join(dir, "missing.jpg")); err == nil {
		t.Error("Expected error for missing input")
	}
}

func TestCropperConfigMapping(t *testing.T) {
	cfg := config.Default()
	cfg.Cropper.MinCropSize = 80
	cfg.Cropper.HitRadius = 30
	cfg.Cropper.AspectRatio = "square"

	sessionConfig := cropperConfig(cfg)
	if sessionConfig.MinCropSize.Width != 80 || sessionConfig.MinCropSize.Height != 80 {
		t.Errorf("Expected min crop size 80x80, got %+v", sessionConfig.MinCropSize)
	}
	if sessionConfig.HitRadius != 30 {
		t.Errorf("Expected hit radius 30, got %v", sessionConfig.HitRadius)
	}
	if sessionConfig.AspectRatio != 1.0 {
		t.Errorf("Expected aspect ratio 1.0, got %v", sessionConfig.AspectRatio)
	}
}

func TestLoaderConfigMapping(t *testing.T) {
	cfg := config.Default()
	cfg.Loader.CacheLimitMB = 1

	loaderCfg := loaderConfig(cfg)
	if loaderCfg.CacheLimit != 1<<20 {
		t.Errorf("Expected cache limit %d, got %d", 1<<20, loaderCfg.CacheLimit)
	}
}
