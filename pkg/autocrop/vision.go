package autocrop

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/menta2k/image-editor/pkg/export"
	"github.com/menta2k/image-editor/pkg/geometry"
	"github.com/menta2k/image-editor/pkg/transform"
)

// DefaultSubjectPrompt asks the vision model for the dominant subject's
// bounding box in the JSON shape Subject unmarshals from
const DefaultSubjectPrompt = `You are an image subject locator.

Return JSON only:
{
  "label": "string",
  "confidence": 0.0,
  "box": {"x": 0.0, "y": 0.0, "width": 0.0, "height": 0.0},
  "tags": ["tag1", "tag2", "tag3"]
}

HARD RULES
- All box coordinates are normalized to [0,1] (NOT pixels).
- The box should tightly include the visually dominant subject (prefer people/vehicles/animals; else the most central salient object).
- Tags: lowercase, concise, no punctuation or duplicates.
- If no subject is found, return:
  {"label":"none","confidence":0.0,"box":{"x":0.25,"y":0.25,"width":0.50,"height":0.50},"tags":["generic","center"]}
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// VisionConfig holds configuration for the vision-model subject source
type VisionConfig struct {
	URL     string
	Model   string
	Prompt  string
	MaxDim  int
	Quality int
	Timeout time.Duration
}

// DefaultVisionConfig returns the default vision source configuration
func DefaultVisionConfig() VisionConfig {
	return VisionConfig{
		URL:     "http://localhost:11434",
		Model:   "minicpm-v",
		Prompt:  DefaultSubjectPrompt,
		MaxDim:  1024,
		Quality: 85,
		Timeout: 300 * time.Second,
	}
}

// VisionSource detects subjects by asking an Ollama vision model
type VisionSource struct {
	client *api.Client
	config VisionConfig
}

// NewVisionSource creates a vision source talking to the Ollama server at
// config.URL
func NewVisionSource(config VisionConfig) (*VisionSource, error) {
	parsedURL, err := url.Parse(config.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	// Base URL only; paths like /api/chat come from the SDK
	baseURL := &url.URL{
		Scheme: parsedURL.Scheme,
		Host:   parsedURL.Host,
	}

	if config.Prompt == "" {
		config.Prompt = DefaultSubjectPrompt
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultVisionConfig().Timeout
	}

	return &VisionSource{
		client: api.NewClient(baseURL, http.DefaultClient),
		config: config,
	}, nil
}

// DetectSubject sends a downscaled copy of img to the model and parses the
// subject from its reply. Malformed replies degrade to a centered fallback
// subject rather than an error
func (v *VisionSource) DetectSubject(ctx context.Context, img image.Image) (Subject, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.config.Timeout)
		defer cancel()
	}

	small := transform.Thumbnail(img, v.config.MaxDim)
	var buf bytes.Buffer
	if err := export.Encode(&buf, small, export.Options{Format: "jpg", Quality: v.config.Quality}); err != nil {
		return Subject{}, fmt.Errorf("failed to encode image for model: %w", err)
	}

	streamFalse := false
	req := &api.ChatRequest{
		Model: v.config.Model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: v.config.Prompt,
				Images:  []api.ImageData{api.ImageData(buf.Bytes())},
			},
		},
		Stream: &streamFalse,
	}

	var responseContent string
	err := v.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		responseContent = resp.Message.Content
		return nil
	})
	if err != nil {
		return Subject{}, fmt.Errorf("ollama chat error: %w", err)
	}
	if responseContent == "" {
		return Subject{}, fmt.Errorf("empty response from ollama")
	}

	return parseSubject(responseContent), nil
}

// fallbackSubject is returned when the model's reply cannot be parsed
func fallbackSubject(label string) Subject {
	return Subject{
		Label: label,
		Box:   geometry.NewRect(0.25, 0.25, 0.5, 0.5),
		Tags:  []string{"fallback"},
	}
}

// parseSubject extracts a Subject from a model reply, tolerating fences,
// comments and stray prose around the JSON
func parseSubject(raw string) Subject {
	raw = sanitizeModelJSON(raw)

	if !strings.HasPrefix(raw, "{") {
		return fallbackSubject("non-json response")
	}

	var subject Subject
	if err := json.Unmarshal([]byte(raw), &subject); err != nil {
		return fallbackSubject("parse error")
	}

	return normalizeSubject(subject)
}

// normalizeSubject clamps the box into [0,1] and cleans the tag list
func normalizeSubject(subject Subject) Subject {
	subject.Box = geometry.NewRect(
		clamp(subject.Box.X, 0, 1),
		clamp(subject.Box.Y, 0, 1),
		clamp(subject.Box.Width, 0, 1),
		clamp(subject.Box.Height, 0, 1),
	)
	subject.Confidence = clamp(subject.Confidence, 0, 1)

	seen := map[string]struct{}{}
	tags := make([]string, 0, 5)
	for _, tag := range subject.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
		if len(tags) == 5 {
			break
		}
	}
	subject.Tags = tags

	return subject
}

// sanitizeModelJSON removes code fences, comments, and trailing commas
// from a model reply and keeps only the outermost JSON object
func sanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	// Strip triple-backtick fences if present
	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	// Remove /* ... */ block comments
	reBlock := regexp.MustCompile(`(?s)/\*.*?\*/`)
	raw = reBlock.ReplaceAllString(raw, "")

	// Remove // line comments
	reLine := regexp.MustCompile(`(?m)^\s*//.*$`)
	raw = reLine.ReplaceAllString(raw, "")

	// Remove trailing commas before } or ]
	reTrailing := regexp.MustCompile(`,(\s*[}\]])`)
	raw = reTrailing.ReplaceAllString(raw, "$1")

	// Keep only the outermost {...}
	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}
