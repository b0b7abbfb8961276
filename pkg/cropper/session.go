package cropper

import (
	"github.com/menta2k/image-editor/pkg/geometry"
)

// DefaultMinCropSize is the smallest crop dimension in image pixels
const DefaultMinCropSize = 50.0

// EventSink receives crop-state notifications from a Session. Rectangles are
// always delivered in image space. Implementations are called synchronously
// from the pointer handlers and must not call back into the Session
type EventSink interface {
	// CropRectChanged fires on every pointer move while a drag is active
	CropRectChanged(rect geometry.Rect)
	// GestureEnded fires once per completed or cancelled gesture
	GestureEnded(rect geometry.Rect)
}

// State identifies the gesture state of a Session
type State int

const (
	StateIdle State = iota
	StateDragging
)

// String returns a human-readable state name
func (s State) String() string {
	if s == StateDragging {
		return "dragging"
	}
	return "idle"
}

// Config holds the embedder-supplied session settings
type Config struct {
	// AspectRatio locks the crop to width/height; zero or negative means free
	AspectRatio float64
	// MinCropSize is the smallest crop in image pixels
	MinCropSize geometry.Size
	// HitRadius is the handle hit-test radius in display pixels
	HitRadius float64
	// ShowGrid tells renderers to draw the rule-of-thirds grid
	ShowGrid bool
	// InitialCropRect, when set, replaces the full-image crop applied when a
	// new image arrives; image space, clamped like any external rectangle
	InitialCropRect *geometry.Rect
}

// DefaultConfig returns the default session settings
func DefaultConfig() Config {
	return Config{
		AspectRatio: 0,
		MinCropSize: geometry.NewSize(DefaultMinCropSize, DefaultMinCropSize),
		HitRadius:   DefaultHitRadius,
		ShowGrid:    true,
	}
}

// dragSession captures one pointer gesture from down to up/cancel. The
// constraints are snapshotted at pointer-down so configuration changes never
// affect a gesture already in flight
type dragSession struct {
	handle       Handle
	startPointer geometry.Point
	startRect    geometry.Rect
	cons         Constraints
}

// Session owns the crop rectangle and the active drag. It is the single
// stateful piece of the engine: pointer events go in, image-space rectangles
// come out through the EventSink and the command surface.
//
// A Session is single-threaded by contract: every method must be called from
// the same goroutine (the UI thread). Methods never block and the session
// takes no locks; the async image loader must post its result back onto the
// caller's goroutine before touching the session
type Session struct {
	config   Config
	image    geometry.Size
	viewport geometry.Size
	layout   Layout
	rect     geometry.Rect // display space; zero until a valid layout exists
	drag     *dragSession
	sink     EventSink
}

// New creates a session with default configuration
func New() *Session {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a session with custom configuration. Out-of-range
// values fall back to the defaults rather than failing
func NewWithConfig(config Config) *Session {
	if !(config.AspectRatio > 0) {
		config.AspectRatio = 0
	}
	if config.MinCropSize.IsZero() {
		config.MinCropSize = geometry.NewSize(DefaultMinCropSize, DefaultMinCropSize)
	}
	if config.HitRadius <= 0 {
		config.HitRadius = DefaultHitRadius
	}
	return &Session{config: config}
}

// SetSink installs the event sink. A nil sink silently drops events
func (s *Session) SetSink(sink EventSink) {
	s.sink = sink
}

// SetImageSize installs a new source image's dimensions and resets the crop
// to the full image (or the configured initial rect). An active drag is
// force-cancelled first: its layout is stale
func (s *Session) SetImageSize(width, height float64) {
	s.image = geometry.NewSize(width, height)
	s.relayout(true)
}

// SetViewportSize installs new viewport dimensions. The crop region is
// preserved in image space and re-clamped through the new layout. An active
// drag is force-cancelled first
func (s *Session) SetViewportSize(width, height float64) {
	s.viewport = geometry.NewSize(width, height)
	s.relayout(false)
}

// SetAspectRatio changes the aspect lock for subsequent drags. Zero or
// negative (or NaN) unlocks. The current rectangle is left untouched
func (s *Session) SetAspectRatio(ratio float64) {
	if ratio > 0 {
		s.config.AspectRatio = ratio
	} else {
		s.config.AspectRatio = 0
	}
}

// SetMinCropSize changes the minimum crop size in image pixels
func (s *Session) SetMinCropSize(size geometry.Size) {
	if size.IsZero() {
		size = geometry.NewSize(DefaultMinCropSize, DefaultMinCropSize)
	}
	s.config.MinCropSize = size
}

// SetShowGrid toggles the renderer grid hint
func (s *Session) SetShowGrid(show bool) {
	s.config.ShowGrid = show
}

// ShowGrid reports whether renderers should draw the grid overlay
func (s *Session) ShowGrid() bool {
	return s.config.ShowGrid
}

// AspectRatio returns the current aspect lock, zero when free
func (s *Session) AspectRatio() float64 {
	return s.config.AspectRatio
}

// State returns Idle or Dragging
func (s *Session) State() State {
	if s.drag != nil {
		return StateDragging
	}
	return StateIdle
}

// ActiveHandle returns the handle of the gesture in progress, HandleNone
// when idle
func (s *Session) ActiveHandle() Handle {
	if s.drag == nil {
		return HandleNone
	}
	return s.drag.handle
}

// Layout returns the current image layout; the null layout when no valid
// image/viewport pair has been set
func (s *Session) Layout() Layout {
	return s.layout
}

// DisplayRect returns the crop rectangle in display space, for renderers
func (s *Session) DisplayRect() geometry.Rect {
	return s.rect
}

// PointerDown opens a drag if the pointer grabs a handle. Grabbing nothing
// keeps the session idle and fires no events. A second pointer while a drag
// is active is ignored: one gesture at a time
func (s *Session) PointerDown(p geometry.Point) {
	if s.drag != nil {
		return
	}
	if !s.layout.Valid() {
		return
	}
	handle := ClassifyHandle(p, s.rect, s.config.HitRadius)
	if handle == HandleNone {
		return
	}
	s.drag = &dragSession{
		handle:       handle,
		startPointer: p,
		startRect:    s.rect,
		cons:         s.constraints(),
	}
}

// PointerMove advances the active drag. The next rectangle is always solved
// from the gesture's start rect and the cumulative delta, so moves are
// order-independent and a stalled event stream cannot accumulate drift
func (s *Session) PointerMove(p geometry.Point) {
	if s.drag == nil {
		return
	}
	delta := p.Sub(s.drag.startPointer)
	s.rect = NextRect(s.drag.startRect, s.drag.handle, delta, s.drag.cons)
	s.emitCropRectChanged()
}

// PointerUp commits the active drag at the final pointer position
func (s *Session) PointerUp(p geometry.Point) {
	if s.drag == nil {
		return
	}
	delta := p.Sub(s.drag.startPointer)
	s.rect = NextRect(s.drag.startRect, s.drag.handle, delta, s.drag.cons)
	s.drag = nil
	s.emitGestureEnded()
}

// PointerCancel aborts the active drag and restores the pre-drag rectangle
// exactly; cancel is not commit. The gesture-ended event still fires so
// embedders can release any gesture bookkeeping
func (s *Session) PointerCancel() {
	if s.drag == nil {
		return
	}
	s.cancelDrag()
}

// CropRect returns the current crop rectangle in image space. It is computed
// from the display rect at read time; the zero rect before a layout exists
func (s *Session) CropRect() geometry.Rect {
	return s.layout.ToImage(s.rect)
}

// Reset sets the crop to the full image. Without a valid layout it is a
// silent no-op. Reset is idempotent
func (s *Session) Reset() {
	if !s.layout.Valid() {
		return
	}
	if s.drag != nil {
		s.cancelDrag()
	}
	s.rect = s.layout.ImageBounds()
}

// SetCropRect replaces the crop with an externally supplied image-space
// rectangle. The input is never trusted: it goes through the minimum-size
// and bounds clamps before being accepted. The aspect lock is intentionally
// not applied, so callers may set off-ratio rectangles
func (s *Session) SetCropRect(r geometry.Rect) {
	if !s.layout.Valid() {
		return
	}
	if s.drag != nil {
		s.cancelDrag()
	}
	s.rect = ClampRect(s.layout.ToDisplay(r), s.constraints())
}

// relayout rebuilds the layout after an image or viewport change. Any active
// drag is cancelled first, while the old layout is still in place, so the
// cancellation event maps through the geometry the gesture was started with
func (s *Session) relayout(newImage bool) {
	if s.drag != nil {
		s.cancelDrag()
	}
	prev := s.layout
	prevRect := s.rect
	s.layout = FitLayout(s.image.Width, s.image.Height, s.viewport.Width, s.viewport.Height)
	if !s.layout.Valid() {
		s.rect = geometry.Rect{}
		return
	}
	if newImage || !prev.Valid() || prevRect.IsEmpty() {
		s.rect = s.layout.ImageBounds()
		if ic := s.config.InitialCropRect; ic != nil {
			s.rect = ClampRect(s.layout.ToDisplay(*ic), s.constraints())
		}
		return
	}
	imageRect := prev.ToImage(prevRect)
	s.rect = ClampRect(s.layout.ToDisplay(imageRect), s.constraints())
}

// cancelDrag restores the pre-drag rectangle and emits the final event
func (s *Session) cancelDrag() {
	d := s.drag
	s.drag = nil
	s.rect = d.startRect
	s.emitGestureEnded()
}

// constraints assembles the solver constraints for the current layout. The
// minimum size is configured in image pixels and scaled here into display
// pixels; the aspect ratio is scale-invariant under contain fitting
func (s *Session) constraints() Constraints {
	return Constraints{
		AspectRatio: s.config.AspectRatio,
		MinSize: geometry.NewSize(
			s.config.MinCropSize.Width*s.layout.Scale,
			s.config.MinCropSize.Height*s.layout.Scale,
		),
		Bounds: s.layout.ImageBounds(),
	}
}

func (s *Session) emitCropRectChanged() {
	if s.sink == nil {
		return
	}
	s.sink.CropRectChanged(s.layout.ToImage(s.rect))
}

func (s *Session) emitGestureEnded() {
	if s.sink == nil {
		return
	}
	s.sink.GestureEnded(s.layout.ToImage(s.rect))
}
