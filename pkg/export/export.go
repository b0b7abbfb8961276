package export

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"

	"github.com/menta2k/image-editor/pkg/transform"
)

// DefaultQuality is the default JPEG/WebP encoding quality
const DefaultQuality = 90

// Options controls how images are encoded
type Options struct {
	Format   string // "jpg", "png" or "webp"; Save derives it from the path when empty
	Quality  int    // JPEG/WebP quality in 1..100; 0 means DefaultQuality
	Lossless bool   // WebP only
}

// DefaultOptions returns the default encoding options
func DefaultOptions() Options {
	return Options{Quality: DefaultQuality}
}

// Save writes img to path. The format comes from opts.Format, falling back
// to the file extension
func Save(img image.Image, path string, opts Options) error {
	if opts.Format == "" {
		opts.Format = strings.TrimPrefix(filepath.Ext(path), ".")
	}
	if opts.Format == "" {
		return fmt.Errorf("cannot derive format for %s: no extension and no explicit format", path)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return Encode(f, img, opts)
}

// Encode writes img to w in the format named by opts.Format
func Encode(w io.Writer, img image.Image, opts Options) error {
	quality := opts.Quality
	if quality <= 0 {
		quality = DefaultQuality
	}

	switch normalizeFormat(opts.Format) {
	case "png":
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		return enc.Encode(w, img)
	case "webp":
		return webp.Encode(w, img, &webp.Options{Lossless: opts.Lossless, Quality: float32(quality)})
	case "jpg":
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	default:
		return fmt.Errorf("unsupported format: %s", opts.Format)
	}
}

// Base64 encodes img and returns the raw base64 payload
func Base64(img image.Image, opts Options) (string, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, opts); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// DataURL encodes img as a base64 data URL suitable for embedding
func DataURL(img image.Image, opts Options) (string, error) {
	payload, err := Base64(img, opts)
	if err != nil {
		return "", err
	}
	return "data:" + MIMEType(opts.Format) + ";base64," + payload, nil
}

// PrepareForModel downscales img so its longest side is at most maxDim
// pixels and returns it base64-encoded for vision-model payloads
func PrepareForModel(img image.Image, format string, maxDim, quality int) (string, error) {
	if maxDim > 0 {
		img = transform.Thumbnail(img, maxDim)
	}
	return Base64(img, Options{Format: format, Quality: quality})
}

// MIMEType returns the MIME type for a format name, defaulting to JPEG
func MIMEType(format string) string {
	switch normalizeFormat(format) {
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

func normalizeFormat(format string) string {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "png":
		return "png"
	case "webp":
		return "webp"
	case "jpg", "jpeg", "":
		return "jpg"
	default:
		return strings.ToLower(format)
	}
}
