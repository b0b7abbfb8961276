package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config holds the application configuration
type Config struct {
	Editor  EditorConfig  `json:"editor"`
	Cropper CropperConfig `json:"cropper"`
	Loader  LoaderConfig  `json:"loader"`
	Vision  VisionConfig  `json:"vision"`
	Server  ServerConfig  `json:"server"`
}

// EditorConfig holds output defaults for editing operations
type EditorConfig struct {
	DefaultFormat  string `json:"default_format"`
	DefaultQuality int    `json:"default_quality"`
	OutputDir      string `json:"output_dir"`
	Suffix         string `json:"suffix"`
}

// CropperConfig holds defaults for interactive cropping
type CropperConfig struct {
	MinCropSize float64 `json:"min_crop_size"`
	HitRadius   float64 `json:"hit_radius"`
	ShowGrid    bool    `json:"show_grid"`
	AspectRatio string  `json:"aspect_ratio"`
}

// LoaderConfig holds image loading and caching settings
type LoaderConfig struct {
	CacheLimitMB   int `json:"cache_limit_mb"`
	TimeoutSeconds int `json:"timeout_seconds"`
}

// VisionConfig holds settings for the vision-model subject source
type VisionConfig struct {
	URL            string `json:"url"`
	Model          string `json:"model"`
	MaxDim         int    `json:"max_dim"`
	Quality        int    `json:"quality"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// ServerConfig holds the HTTP bridge settings
type ServerConfig struct {
	Listen string `json:"listen"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Editor: EditorConfig{
			DefaultFormat:  "jpg",
			DefaultQuality: 90,
			OutputDir:      "./output",
			Suffix:         "_edited",
		},
		Cropper: CropperConfig{
			MinCropSize: 50,
			HitRadius:   44,
			ShowGrid:    true,
			AspectRatio: "",
		},
		Loader: LoaderConfig{
			CacheLimitMB:   64,
			TimeoutSeconds: 30,
		},
		Vision: VisionConfig{
			URL:            "http://localhost:11434",
			Model:          "minicpm-v",
			MaxDim:         1024,
			Quality:        85,
			TimeoutSeconds: 300,
		},
		Server: ServerConfig{
			Listen: ":8080",
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Editor.DefaultQuality < 1 || c.Editor.DefaultQuality > 100 {
		return fmt.Errorf("editor.default_quality must be between 1 and 100")
	}

	if c.Editor.DefaultFormat == "" {
		return fmt.Errorf("editor.default_format cannot be empty")
	}

	if c.Cropper.MinCropSize < 1 {
		return fmt.Errorf("cropper.min_crop_size must be at least 1")
	}

	if c.Cropper.HitRadius <= 0 {
		return fmt.Errorf("cropper.hit_radius must be positive")
	}

	if c.Loader.CacheLimitMB < 0 {
		return fmt.Errorf("loader.cache_limit_mb cannot be negative")
	}

	if c.Loader.TimeoutSeconds < 1 {
		return fmt.Errorf("loader.timeout_seconds must be positive")
	}

	if c.Vision.Quality < 1 || c.Vision.Quality > 100 {
		return fmt.Errorf("vision.quality must be between 1 and 100")
	}

	if c.Vision.MaxDim < 1 {
		return fmt.Errorf("vision.max_dim must be positive")
	}

	if c.Server.Listen == "" {
		return fmt.Errorf("server.listen cannot be empty")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "image-editor", "config.json")
}
