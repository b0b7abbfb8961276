package loader

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// DefaultCacheLimit is the default in-memory cache footprint in bytes
const DefaultCacheLimit = 64 << 20

// Config holds configuration for the image loader
type Config struct {
	CacheLimit int64
	Timeout    time.Duration
	UserAgent  string
}

// DefaultConfig returns the default loader configuration
func DefaultConfig() Config {
	return Config{
		CacheLimit: DefaultCacheLimit,
		Timeout:    30 * time.Second,
		UserAgent:  "Image-Editor/1.0 (+https://github.com/menta2k/image-editor)",
	}
}

// Loader loads images from files and URLs with decoded results held in a
// bounded in-memory cache keyed by source
type Loader struct {
	client    *http.Client
	userAgent string

	mu    sync.Mutex
	cache map[string]cacheEntry
	order []string
	size  int64
	limit int64
}

type cacheEntry struct {
	img  image.Image
	size int64
}

// Result carries the outcome of an asynchronous load
type Result struct {
	Image  image.Image
	Width  int
	Height int
	Source string
	Err    error
}

// New creates a new loader with default configuration
func New() *Loader {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a new loader with custom configuration
func NewWithConfig(config Config) *Loader {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultConfig().UserAgent
	}
	return &Loader{
		client:    &http.Client{Timeout: config.Timeout},
		userAgent: config.UserAgent,
		cache:     make(map[string]cacheEntry),
		limit:     config.CacheLimit,
	}
}

// Load loads an image from either a file path or an http(s) URL, serving
// repeated loads of the same source from the cache
func (l *Loader) Load(source string) (image.Image, error) {
	if img, ok := l.cached(source); ok {
		return img, nil
	}

	var img image.Image
	var err error
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		img, err = l.LoadURL(source)
	} else {
		img, err = l.LoadFile(source)
	}
	if err != nil {
		return nil, err
	}

	l.store(source, img)
	return img, nil
}

// LoadFile loads an image from a file path with WebP support
func (l *Loader) LoadFile(path string) (image.Image, error) {
	// Try imaging.Open (registered decoders)
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	// Fallback: explicit WebP decode
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.Contains(strings.ToLower(path), ".webp") {
		if img, err := webp.Decode(f); err == nil {
			return img, nil
		}
	}
	if _, err := f.Seek(0, 0); err == nil {
		if img, _, err := image.Decode(f); err == nil {
			return img, nil
		}
	}
	return nil, fmt.Errorf("image: unknown format for %s", path)
}

// LoadURL downloads and decodes an image from an http(s) URL
func (l *Loader) LoadURL(imageURL string) (image.Image, error) {
	parsedURL, err := url.Parse(imageURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (only http and https are supported)", parsedURL.Scheme)
	}

	req, err := http.NewRequest("GET", imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", l.userAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: HTTP %d %s", resp.StatusCode, resp.Status)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return nil, fmt.Errorf("URL does not point to an image (Content-Type: %s)", contentType)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return Decode(imageData)
}

// LoadAsync loads source on a background goroutine and delivers the result
// through done. When post is non-nil the done callback is wrapped and handed
// to it, letting the caller marshal delivery onto its own loop; a nil post
// invokes done directly on the worker goroutine
func (l *Loader) LoadAsync(source string, post func(func()), done func(Result)) {
	go func() {
		img, err := l.Load(source)
		result := Result{Source: source, Err: err}
		if img != nil {
			bounds := img.Bounds()
			result.Image = img
			result.Width = bounds.Dx()
			result.Height = bounds.Dy()
		}

		if done == nil {
			return
		}
		if post != nil {
			post(func() { done(result) })
			return
		}
		done(result)
	}()
}

// Decode decodes an image from byte data with WebP support
func Decode(data []byte) (image.Image, error) {
	// Try standard image.Decode first
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	// Try WebP decode
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}

	return nil, fmt.Errorf("image: unknown or unsupported format")
}

// Evict drops a single source from the cache
func (l *Loader) Evict(source string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.evictLocked(source)
}

// Flush drops the whole cache
func (l *Loader) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]cacheEntry)
	l.order = nil
	l.size = 0
}

// CacheSize returns the current cache footprint in bytes
func (l *Loader) CacheSize() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

// CacheLen returns the number of cached images
func (l *Loader) CacheLen() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.cache)
}

func (l *Loader) cached(source string) (image.Image, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.cache[source]
	if !ok {
		return nil, false
	}
	return entry.img, true
}

// store inserts img, evicting oldest entries first until the footprint
// fits the limit. Images larger than the whole limit are not cached
func (l *Loader) store(source string, img image.Image) {
	footprint := imageFootprint(img)
	if l.limit <= 0 || footprint > l.limit {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.cache[source]; ok {
		return
	}
	for l.size+footprint > l.limit && len(l.order) > 0 {
		l.evictLocked(l.order[0])
	}
	l.cache[source] = cacheEntry{img: img, size: footprint}
	l.order = append(l.order, source)
	l.size += footprint
}

func (l *Loader) evictLocked(source string) {
	entry, ok := l.cache[source]
	if !ok {
		return
	}
	delete(l.cache, source)
	l.size -= entry.size
	for i, key := range l.order {
		if key == source {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
}

func imageFootprint(img image.Image) int64 {
	switch typed := img.(type) {
	case *image.NRGBA:
		return int64(len(typed.Pix))
	case *image.RGBA:
		return int64(len(typed.Pix))
	case *image.YCbCr:
		return int64(len(typed.Y) + len(typed.Cb) + len(typed.Cr))
	case *image.Gray:
		return int64(len(typed.Pix))
	default:
		bounds := img.Bounds()
		return int64(bounds.Dx()) * int64(bounds.Dy()) * 4
	}
}
