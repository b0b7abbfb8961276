package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/menta2k/image-editor/pkg/autocrop"
	"github.com/menta2k/image-editor/pkg/cropper"
	"github.com/menta2k/image-editor/pkg/export"
	"github.com/menta2k/image-editor/pkg/filter"
	"github.com/menta2k/image-editor/pkg/geometry"
	"github.com/menta2k/image-editor/pkg/loader"
	"github.com/menta2k/image-editor/pkg/preview"
	"github.com/menta2k/image-editor/pkg/transform"
)

// Config holds configuration for the editing bridge
type Config struct {
	Listen           string
	Cropper          cropper.Config
	Loader           loader.Config
	Suggester        *autocrop.Suggester // nil means saliency-backed default
	OnReady          func(addr string)
	OnBeforeShutdown func()
}

// Server exposes a single editing session over HTTP. The session and the
// attached views are not safe for concurrent use, so every handler runs
// under one mutex; the bridge is the session's serializing thread
type Server struct {
	config       Config
	shutdownCh   chan struct{}
	shutdownOnce sync.Once

	mu          sync.Mutex
	session     *cropper.Session
	view        *preview.View
	loader      *loader.Loader
	suggester   *autocrop.Suggester
	chain       filter.Chain
	filterNames []string
	img         image.Image
	source      string
	viewport    geometry.Size // zero until a client declares one
}

// New creates a server around a fresh session
func New(config Config) *Server {
	if config.Listen == "" {
		config.Listen = ":8080"
	}
	suggester := config.Suggester
	if suggester == nil {
		suggester = autocrop.New(autocrop.NewSaliencySource())
	}

	if config.Loader == (loader.Config{}) {
		config.Loader = loader.DefaultConfig()
	}

	session := cropper.NewWithConfig(config.Cropper)
	session.SetSink(logSink{})

	return &Server{
		config:     config,
		shutdownCh: make(chan struct{}),
		session:    session,
		view:       preview.New(),
		loader:     loader.NewWithConfig(config.Loader),
		suggester:  suggester,
	}
}

// Shutdown asks a running server to stop. Safe to call more than once
func (s *Server) Shutdown() {
	s.shutdownOnce.Do(func() {
		close(s.shutdownCh)
	})
}

// Run serves the bridge until ctx is cancelled or Shutdown is called
func (s *Server) Run(ctx context.Context) error {
	app := s.buildApp()

	app.Hooks().OnListen(func(listen fiber.ListenData) error {
		if fn := s.config.OnReady; fn != nil {
			fn(fmt.Sprintf("http://%s:%s", listen.Host, listen.Port))
		}
		return nil
	})

	go func() {
		select {
		case <-ctx.Done():
		case <-s.shutdownCh:
		}
		if fn := s.config.OnBeforeShutdown; fn != nil {
			fn()
		}
		if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
			log.Error().Err(err).Msg("Failed to shutdown editing bridge")
		}
	}()

	listener, err := net.Listen("tcp", s.config.Listen)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Listen, err)
	}

	if err := app.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

func (s *Server) buildApp() *fiber.App {
	app := fiber.New(fiber.Config{
		Immutable:             true,
		DisableStartupMessage: true,
		BodyLimit:             64 << 20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Error().
				Err(err).
				Str("path", c.Path()).
				Str("method", c.Method()).
				Msg("Request failed")
			var fiberErr *fiber.Error
			if errors.As(err, &fiberErr) {
				return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
			}
			return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "Internal Server Error"})
		},
	})

	app.Get("/api/state", s.handleState)
	app.Post("/api/open", s.handleOpen)
	app.Post("/api/image", s.handleUpload)
	app.Post("/api/viewport", s.handleViewport)
	app.Post("/api/pointer", s.handlePointer)
	app.Get("/api/crop", s.handleGetCrop)
	app.Post("/api/crop", s.handleSetCrop)
	app.Post("/api/crop/reset", s.handleResetCrop)
	app.Post("/api/aspect", s.handleAspect)
	app.Post("/api/filters", s.handleFilters)
	app.Post("/api/suggest", s.handleSuggest)
	app.Post("/api/view", s.handleView)
	app.Get("/api/preview", s.handlePreview)
	app.Get("/api/export", s.handleExport)
	app.Post("/api/shutdown", func(c *fiber.Ctx) error {
		s.Shutdown()
		return c.SendStatus(http.StatusNoContent)
	})

	return app
}

type stateResponse struct {
	Source      string        `json:"source"`
	ImageWidth  float64       `json:"image_width"`
	ImageHeight float64       `json:"image_height"`
	CropRect    geometry.Rect `json:"crop_rect"`
	State       string        `json:"state"`
	AspectRatio float64       `json:"aspect_ratio"`
	ShowGrid    bool          `json:"show_grid"`
	Filters     []string      `json:"filters"`
	Zoom        float64       `json:"zoom"`
}

func (s *Server) handleState(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	layout := s.session.Layout()
	return c.JSON(stateResponse{
		Source:      s.source,
		ImageWidth:  layout.ImageWidth,
		ImageHeight: layout.ImageHeight,
		CropRect:    s.session.CropRect(),
		State:       s.session.State().String(),
		AspectRatio: s.session.AspectRatio(),
		ShowGrid:    s.session.ShowGrid(),
		Filters:     s.filterNames,
		Zoom:        s.view.Zoom(),
	})
}

func (s *Server) handleOpen(c *fiber.Ctx) error {
	var request struct {
		Source string `json:"source"`
	}
	if err := c.BodyParser(&request); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}
	if request.Source == "" {
		return fiber.NewError(http.StatusBadRequest, "source is required")
	}

	img, err := s.loader.Load(request.Source)
	if err != nil {
		return fiber.NewError(http.StatusUnprocessableEntity, fmt.Sprintf("failed to load image: %v", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setImage(img, request.Source)

	log.Info().Str("source", request.Source).
		Int("width", img.Bounds().Dx()).
		Int("height", img.Bounds().Dy()).
		Msg("Image opened")

	return c.JSON(fiber.Map{"crop_rect": s.session.CropRect()})
}

func (s *Server) handleUpload(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return fiber.NewError(http.StatusBadRequest, "empty body")
	}

	img, err := loader.Decode(body)
	if err != nil {
		return fiber.NewError(http.StatusUnprocessableEntity, fmt.Sprintf("failed to decode image: %v", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setImage(img, "upload")

	return c.JSON(fiber.Map{"crop_rect": s.session.CropRect()})
}

// setImage points the session and the preview at a new image. Headless
// clients never declare a viewport; until one arrives the image's own size
// serves as the viewport, so crop commands work in image coordinates.
// Callers hold s.mu
func (s *Server) setImage(img image.Image, source string) {
	s.img = img
	s.source = source
	bounds := img.Bounds()
	width := float64(bounds.Dx())
	height := float64(bounds.Dy())
	s.session.SetImageSize(width, height)
	s.view.SetImage(img)
	s.view.SetFilters(s.chain)
	if s.viewport.IsZero() {
		s.session.SetViewportSize(width, height)
		s.view.SetViewport(width, height)
	}
}

func (s *Server) handleViewport(c *fiber.Ctx) error {
	var request struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	if err := c.BodyParser(&request); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.viewport = geometry.NewSize(request.Width, request.Height)
	s.session.SetViewportSize(request.Width, request.Height)
	s.view.SetViewport(request.Width, request.Height)

	return c.JSON(fiber.Map{"crop_rect": s.session.CropRect()})
}

func (s *Server) handlePointer(c *fiber.Ctx) error {
	var request struct {
		Action string  `json:"action"`
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
	}
	if err := c.BodyParser(&request); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	point := geometry.NewPoint(request.X, request.Y)
	switch request.Action {
	case "down":
		s.session.PointerDown(point)
	case "move":
		s.session.PointerMove(point)
	case "up":
		s.session.PointerUp(point)
	case "cancel":
		s.session.PointerCancel()
	default:
		return fiber.NewError(http.StatusBadRequest, fmt.Sprintf("unknown pointer action %q", request.Action))
	}

	return c.JSON(fiber.Map{
		"state":     s.session.State().String(),
		"handle":    s.session.ActiveHandle().String(),
		"crop_rect": s.session.CropRect(),
	})
}

func (s *Server) handleGetCrop(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(fiber.Map{"crop_rect": s.session.CropRect()})
}

func (s *Server) handleSetCrop(c *fiber.Ctx) error {
	var request geometry.Rect
	if err := c.BodyParser(&request); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.SetCropRect(request)

	return c.JSON(fiber.Map{"crop_rect": s.session.CropRect()})
}

func (s *Server) handleResetCrop(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.Reset()

	return c.JSON(fiber.Map{"crop_rect": s.session.CropRect()})
}

func (s *Server) handleAspect(c *fiber.Ctx) error {
	var request struct {
		Ratio  float64 `json:"ratio"`
		Preset string  `json:"preset"`
	}
	if err := c.BodyParser(&request); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	ratio := request.Ratio
	if request.Preset != "" {
		preset, ok := cropper.LookupAspectRatio(request.Preset)
		if !ok {
			return fiber.NewError(http.StatusBadRequest, fmt.Sprintf("unknown aspect preset %q", request.Preset))
		}
		ratio = preset.Ratio()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.SetAspectRatio(ratio)

	return c.JSON(fiber.Map{"aspect_ratio": s.session.AspectRatio()})
}

func (s *Server) handleFilters(c *fiber.Ctx) error {
	var request struct {
		Names []string `json:"names"`
	}
	if err := c.BodyParser(&request); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	chain := make(filter.Chain, 0, len(request.Names))
	for _, name := range request.Names {
		m, ok := filter.Lookup(name)
		if !ok {
			return fiber.NewError(http.StatusBadRequest, fmt.Sprintf("unknown filter %q", name))
		}
		chain = append(chain, m)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.chain = chain
	s.filterNames = append([]string(nil), request.Names...)
	s.view.SetFilters(chain)

	return c.JSON(fiber.Map{"filters": s.filterNames})
}

func (s *Server) handleSuggest(c *fiber.Ctx) error {
	var request struct {
		Ratio float64 `json:"ratio"`
	}
	if err := c.BodyParser(&request); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	s.mu.Lock()
	img := s.img
	s.mu.Unlock()
	if img == nil {
		return fiber.NewError(http.StatusConflict, "no image loaded")
	}

	// Detection can be slow; run it outside the session lock
	suggestion, err := s.suggester.Suggest(c.Context(), img, request.Ratio)
	if err != nil {
		return fiber.NewError(http.StatusUnprocessableEntity, fmt.Sprintf("suggestion failed: %v", err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.SetCropRect(suggestion)

	return c.JSON(fiber.Map{
		"suggested": suggestion,
		"crop_rect": s.session.CropRect(),
	})
}

func (s *Server) handleView(c *fiber.Ctx) error {
	var request struct {
		Zoom float64 `json:"zoom"`
		PanX float64 `json:"pan_x"`
		PanY float64 `json:"pan_y"`
	}
	if err := c.BodyParser(&request); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid request body")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if request.Zoom > 0 {
		s.view.SetZoom(request.Zoom)
	}
	if request.PanX != 0 || request.PanY != 0 {
		s.view.Pan(request.PanX, request.PanY)
	}

	return c.JSON(fiber.Map{"zoom": s.view.Zoom()})
}

func (s *Server) handlePreview(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	canvas, err := s.view.Render()
	if err != nil {
		return fiber.NewError(http.StatusConflict, fmt.Sprintf("nothing to preview: %v", err))
	}

	var buf bytes.Buffer
	if err := export.Encode(&buf, canvas, export.Options{Format: "png"}); err != nil {
		return fmt.Errorf("failed to encode preview: %w", err)
	}

	c.Set(fiber.HeaderContentType, export.MIMEType("png"))
	return c.Send(buf.Bytes())
}

func (s *Server) handleExport(c *fiber.Ctx) error {
	format := c.Query("format", "png")
	quality := c.QueryInt("quality", export.DefaultQuality)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.img == nil {
		return fiber.NewError(http.StatusConflict, "no image loaded")
	}

	rect := s.session.CropRect()
	if rect.IsEmpty() {
		return fiber.NewError(http.StatusConflict, "no crop selected")
	}

	cropped, err := transform.Crop(s.img, rect)
	if err != nil {
		return fiber.NewError(http.StatusUnprocessableEntity, fmt.Sprintf("crop failed: %v", err))
	}

	result := image.Image(cropped)
	if len(s.chain) > 0 {
		result = s.chain.Apply(cropped)
	}

	var buf bytes.Buffer
	if err := export.Encode(&buf, result, export.Options{Format: format, Quality: quality}); err != nil {
		return fiber.NewError(http.StatusBadRequest, fmt.Sprintf("encode failed: %v", err))
	}

	c.Set(fiber.HeaderContentType, export.MIMEType(format))
	return c.Send(buf.Bytes())
}

// logSink traces session events for debugging clients
type logSink struct{}

func (logSink) CropRectChanged(rect geometry.Rect) {
	log.Debug().
		Float64("x", rect.X).
		Float64("y", rect.Y).
		Float64("width", rect.Width).
		Float64("height", rect.Height).
		Msg("Crop rect changed")
}

func (logSink) GestureEnded(rect geometry.Rect) {
	log.Debug().
		Float64("x", rect.X).
		Float64("y", rect.Y).
		Float64("width", rect.Width).
		Float64("height", rect.Height).
		Msg("Gesture ended")
}
