package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"github.com/menta2k/image-editor/internal/config"
	"github.com/menta2k/image-editor/internal/server"
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

type cropCmd struct {
	Input    string `arg:"" help:"Input image file or directory" type:"path"`
	Out      string `help:"Output directory" default:"output"`
	Rect     string `help:"Crop rectangle as x,y,width,height in image pixels"`
	Ratio    string `help:"Aspect ratio as W:H, a decimal, or a preset name (square, portrait, ...)"`
	Auto     bool   `help:"Place the crop around the detected subject"`
	Vision   bool   `help:"Detect subjects with the Ollama vision model instead of local saliency"`
	Format   string `help:"Output format: jpg|png|webp" default:"jpg"`
	Quality  int    `help:"JPEG/WebP quality (1-100)" default:"90"`
	Lossless bool   `help:"WebP lossless mode"`
}

func (cmd *cropCmd) Run(g *globals) error {
	setupLogging(g.Verbose)
	cfg, err := loadConfig(g.Config)
	if err != nil {
		return err
	}

	ratio, err := parseRatio(cmd.Ratio)
	if err != nil {
		return err
	}
	var rect geometry.Rect
	hasRect := cmd.Rect != ""
	if hasRect {
		if rect, err = parseRect(cmd.Rect); err != nil {
			return err
		}
	}

	inputs, err := collectInputs(cmd.Input)
	if err != nil {
		return err
	}
	if err := utils.EnsureDir(cmd.Out); err != nil {
		return err
	}

	var suggester *autocrop.Suggester
	if cmd.Auto {
		source, err := subjectSource(cmd.Vision, cfg)
		if err != nil {
			return err
		}
		suggester = autocrop.New(source)
	}

	ldr := loader.New()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	return processBatch(ctx, inputs, func(ctx context.Context, path string) error {
		img, err := ldr.Load(path)
		if err != nil {
			return err
		}
		bounds := img.Bounds()
		width := float64(bounds.Dx())
		height := float64(bounds.Dy())

		target := geometry.NewRect(0, 0, width, height)
		switch {
		case hasRect:
			target = rect
		case suggester != nil:
			if target, err = suggester.Suggest(ctx, img, ratio); err != nil {
				return err
			}
		case ratio > 0:
			target = centeredRatioRect(width, height, ratio)
		}

		// The session clamps external rectangles to bounds and minimum size
		session := cropper.NewWithConfig(cropperConfig(cfg))
		session.SetImageSize(width, height)
		session.SetViewportSize(width, height)
		session.SetCropRect(target)
		target = session.CropRect()

		cropped, err := transform.Crop(img, target)
		if err != nil {
			return err
		}

		outPath := utils.GenerateOutputFilename(path, cmd.Out, "", "_cropped", cmd.Format)
		opts := export.Options{Format: cmd.Format, Quality: cmd.Quality, Lossless: cmd.Lossless}
		if err := export.Save(cropped, outPath, opts); err != nil {
			return err
		}

		log.Ctx(ctx).Info().
			Str("input", path).
			Str("output", outPath).
			Float64("x", target.X).
			Float64("y", target.Y).
			Float64("width", target.Width).
			Float64("height", target.Height).
			Msg("Cropped image")
		return nil
	})
}

type filterCmd struct {
	Input    string   `arg:"" optional:"" help:"Input image file or directory" type:"path"`
	Names    []string `help:"Filters to apply, in order (e.g. sepia,vivid)"`
	List     bool     `help:"List available filters and exit"`
	Out      string   `help:"Output directory" default:"output"`
	Format   string   `help:"Output format: jpg|png|webp" default:"jpg"`
	Quality  int      `help:"JPEG/WebP quality (1-100)" default:"90"`
	Lossless bool     `help:"WebP lossless mode"`
}

func (cmd *filterCmd) Run(g *globals) error {
	setupLogging(g.Verbose)

	if cmd.List {
		for _, name := range filter.Names() {
			fmt.Println(name)
		}
		return nil
	}
	if cmd.Input == "" {
		return fmt.Errorf("input is required unless --list is given")
	}
	if len(cmd.Names) == 0 {
		return fmt.Errorf("at least one filter name is required, see --list")
	}

	chain := make(filter.Chain, 0, len(cmd.Names))
	for _, name := range cmd.Names {
		m, ok := filter.Lookup(name)
		if !ok {
			return fmt.Errorf("unknown filter %q, see --list", name)
		}
		chain = append(chain, m)
	}

	inputs, err := collectInputs(cmd.Input)
	if err != nil {
		return err
	}
	if err := utils.EnsureDir(cmd.Out); err != nil {
		return err
	}

	ldr := loader.New()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	return processBatch(ctx, inputs, func(ctx context.Context, path string) error {
		img, err := ldr.Load(path)
		if err != nil {
			return err
		}

		filtered := chain.Apply(img)

		outPath := utils.GenerateOutputFilename(path, cmd.Out, "", "_filtered", cmd.Format)
		opts := export.Options{Format: cmd.Format, Quality: cmd.Quality, Lossless: cmd.Lossless}
		if err := export.Save(filtered, outPath, opts); err != nil {
			return err
		}

		log.Ctx(ctx).Info().
			Str("input", path).
			Str("output", outPath).
			Strs("filters", cmd.Names).
			Msg("Filtered image")
		return nil
	})
}

type suggestCmd struct {
	Input  string `arg:"" help:"Input image file" type:"path"`
	Ratio  string `help:"Aspect ratio as W:H, a decimal, or a preset name"`
	Vision bool   `help:"Use the Ollama vision model instead of local saliency"`
}

// detectedSource replays an already-detected subject, so the suggestion
// does not trigger a second detection
type detectedSource struct {
	subject autocrop.Subject
}

func (s detectedSource) DetectSubject(context.Context, image.Image) (autocrop.Subject, error) {
	return s.subject, nil
}

func (cmd *suggestCmd) Run(g *globals) error {
	setupLogging(g.Verbose)
	cfg, err := loadConfig(g.Config)
	if err != nil {
		return err
	}

	ratio, err := parseRatio(cmd.Ratio)
	if err != nil {
		return err
	}

	img, err := loader.New().Load(cmd.Input)
	if err != nil {
		return err
	}

	source, err := subjectSource(cmd.Vision, cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	subject, err := source.DetectSubject(ctx, img)
	if err != nil {
		return err
	}

	suggestion, err := autocrop.New(detectedSource{subject: subject}).Suggest(ctx, img, ratio)
	if err != nil {
		return err
	}

	return json.NewEncoder(os.Stdout).Encode(struct {
		Source   string           `json:"source"`
		Subject  autocrop.Subject `json:"subject"`
		CropRect geometry.Rect    `json:"crop_rect"`
	}{
		Source:   cmd.Input,
		Subject:  subject,
		CropRect: suggestion,
	})
}

type infoCmd struct {
	Input  string `arg:"" help:"Input image file" type:"path"`
	Colors int    `help:"Number of dominant colors to report" default:"5"`
}

func (cmd *infoCmd) Run(g *globals) error {
	setupLogging(g.Verbose)

	stat, err := os.Stat(cmd.Input)
	if err != nil {
		return err
	}

	img, err := loader.New().Load(cmd.Input)
	if err != nil {
		return err
	}
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	fmt.Printf("File:       %s\n", cmd.Input)
	fmt.Printf("Format:     %s\n", utils.GetFileExtension(cmd.Input))
	fmt.Printf("Dimensions: %dx%d\n", width, height)
	fmt.Printf("Size:       %s\n", utils.FormatFileSize(stat.Size()))

	full := geometry.NewRect(0, 0, float64(width), float64(height))
	colors := saliency.DominantColors(img, full, cmd.Colors)
	if len(colors) > 0 {
		hexes := make([]string, len(colors))
		for i, c := range colors {
			hexes[i] = fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
		}
		fmt.Printf("Colors:     %s\n", strings.Join(hexes, " "))
	}

	return nil
}

type serveCmd struct {
	Listen string `help:"Address to listen on (defaults to the config value)"`
	Vision bool   `help:"Back crop suggestions with the Ollama vision model"`
}

func (cmd *serveCmd) Run(g *globals) error {
	setupLogging(g.Verbose)
	cfg, err := loadConfig(g.Config)
	if err != nil {
		return err
	}

	listen := cmd.Listen
	if listen == "" {
		listen = cfg.Server.Listen
	}

	var suggester *autocrop.Suggester
	if cmd.Vision {
		source, err := subjectSource(true, cfg)
		if err != nil {
			return err
		}
		suggester = autocrop.New(source)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	srv := server.New(server.Config{
		Listen:    listen,
		Cropper:   cropperConfig(cfg),
		Loader:    loaderConfig(cfg),
		Suggester: suggester,
		OnReady: func(addr string) {
			log.Info().Msgf("Editing bridge listening at %s", addr)
		},
		OnBeforeShutdown: func() {
			log.Info().Msg("Shutting down editing bridge...")
		},
	})

	return srv.Run(ctx)
}

// subjectSource picks the detection backend for crop suggestions
func subjectSource(vision bool, cfg *config.Config) (autocrop.Source, error) {
	if !vision {
		return autocrop.NewSaliencySource(), nil
	}
	return autocrop.NewVisionSource(autocrop.VisionConfig{
		URL:     cfg.Vision.URL,
		Model:   cfg.Vision.Model,
		MaxDim:  cfg.Vision.MaxDim,
		Quality: cfg.Vision.Quality,
		Timeout: time.Duration(cfg.Vision.TimeoutSeconds) * time.Second,
	})
}

// cropperConfig maps the file configuration onto session settings
func cropperConfig(cfg *config.Config) cropper.Config {
	sessionConfig := cropper.DefaultConfig()
	if cfg.Cropper.MinCropSize > 0 {
		sessionConfig.MinCropSize = geometry.NewSize(cfg.Cropper.MinCropSize, cfg.Cropper.MinCropSize)
	}
	if cfg.Cropper.HitRadius > 0 {
		sessionConfig.HitRadius = cfg.Cropper.HitRadius
	}
	sessionConfig.ShowGrid = cfg.Cropper.ShowGrid
	if ratio, err := parseRatio(cfg.Cropper.AspectRatio); err == nil && ratio > 0 {
		sessionConfig.AspectRatio = ratio
	}
	return sessionConfig
}

func loaderConfig(cfg *config.Config) loader.Config {
	loaderCfg := loader.DefaultConfig()
	if cfg.Loader.CacheLimitMB > 0 {
		loaderCfg.CacheLimit = int64(cfg.Loader.CacheLimitMB) << 20
	}
	if cfg.Loader.TimeoutSeconds > 0 {
		loaderCfg.Timeout = time.Duration(cfg.Loader.TimeoutSeconds) * time.Second
	}
	return loaderCfg
}

// processBatch runs fn over every input on a bounded worker pool
func processBatch(ctx context.Context, inputs []string, fn func(ctx context.Context, path string) error) error {
	pooler := pool.New().WithErrors().WithContext(ctx).WithMaxGoroutines(runtime.NumCPU())
	for _, input := range inputs {
		pooler.Go(func(ctx context.Context) error {
			if err := fn(ctx, input); err != nil {
				log.Ctx(ctx).Error().Err(err).Str("file", input).Msg("Failed to process image")
				return err
			}
			return nil
		})
	}
	return pooler.Wait()
}

// collectInputs expands a directory into its image files
func collectInputs(input string) ([]string, error) {
	if utils.DirExists(input) {
		files, err := utils.ListImageFiles(input)
		if err != nil {
			return nil, err
		}
		if len(files) == 0 {
			return nil, fmt.Errorf("no images found in %s", input)
		}
		return files, nil
	}
	if !utils.FileExists(input) {
		return nil, fmt.Errorf("input %s does not exist", input)
	}
	return []string{input}, nil
}

// parseRect parses "x,y,width,height" into a rectangle
func parseRect(s string) (geometry.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geometry.Rect{}, fmt.Errorf("expected x,y,width,height, got %q", s)
	}
	values := make([]float64, 4)
	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return geometry.Rect{}, fmt.Errorf("invalid rectangle component %q", part)
		}
		values[i] = v
	}
	return geometry.NewRect(values[0], values[1], values[2], values[3]), nil
}

// parseRatio accepts "W:H", a bare decimal, or a preset name like "square".
// An empty string means no ratio
func parseRatio(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	if preset, ok := cropper.LookupAspectRatio(s); ok {
		return preset.Ratio(), nil
	}
	if before, after, found := strings.Cut(s, ":"); found {
		w, err1 := strconv.ParseFloat(before, 64)
		h, err2 := strconv.ParseFloat(after, 64)
		if err1 != nil || err2 != nil || w <= 0 || h <= 0 {
			return 0, fmt.Errorf("invalid aspect ratio %q", s)
		}
		return w / h, nil
	}
	ratio, err := strconv.ParseFloat(s, 64)
	if err != nil || ratio <= 0 {
		return 0, fmt.Errorf("invalid aspect ratio %q", s)
	}
	return ratio, nil
}

// centeredRatioRect returns the largest centered rectangle of the given
// ratio that fits the image
func centeredRatioRect(width, height, ratio float64) geometry.Rect {
	w := width
	h := w / ratio
	if h > height {
		h = height
		w = h * ratio
	}
	return geometry.NewRect((width-w)/2, (height-h)/2, w, h)
}
