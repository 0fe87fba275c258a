// Package studio builds the prompts for every creative tab, calls the model and
// records image results in the gallery.
package studio

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/xhad/studio/internal/models"
	"github.com/xhad/studio/pkg/llm"
	"github.com/xhad/studio/pkg/processor"
)

var (
	ErrNoInput           = errors.New("no input image")
	ErrPollExhausted     = errors.New("video generation did not finish in time")
	ErrSelectionTooSmall = errors.New("selection too small")
)

// Models names the model used for each kind of call.
type Models struct {
	Fast     string
	Image    string
	Pro      string
	ProImage string
	Video    string
}

type StudioConfig struct {
	Models Models
	// APIKey is appended to video URIs so they can be fetched directly.
	APIKey          string
	RequestTimeout  time.Duration
	PollInterval    time.Duration
	MaxPollAttempts int
	BatchPause      time.Duration
}

// Gallery receives every generated result.
type Gallery interface {
	AddGenerated(ctx context.Context, img models.GeneratedImage) models.GeneratedImage
}

type Studio struct {
	config  StudioConfig
	model   llm.Model
	gallery Gallery
	docs    *processor.Processor
	logger  *slog.Logger
}

func NewWithConfig(config StudioConfig, model llm.Model, gallery Gallery, docs *processor.Processor) *Studio {
	if config.Models.Fast == "" {
		config.Models.Fast = "gemini-3-flash-preview"
	}
	if config.Models.Image == "" {
		config.Models.Image = "gemini-2.5-flash-image"
	}
	if config.Models.Pro == "" {
		config.Models.Pro = "gemini-3-pro-preview"
	}
	if config.Models.ProImage == "" {
		config.Models.ProImage = "gemini-3-pro-image-preview"
	}
	if config.Models.Video == "" {
		config.Models.Video = "veo-3.1-fast-generate-preview"
	}
	if config.PollInterval == 0 {
		config.PollInterval = 5 * time.Second
	}
	if config.MaxPollAttempts == 0 {
		config.MaxPollAttempts = 120
	}
	if config.BatchPause == 0 {
		config.BatchPause = time.Second
	}
	if docs == nil {
		p := processor.NewWithConfig(processor.ProcessorConfig{})
		docs = &p
	}

	return &Studio{
		config:  config,
		model:   model,
		gallery: gallery,
		docs:    docs,
		logger:  slog.Default().With("component", "studio"),
	}
}

// withTimeout bounds a single model call. A zero RequestTimeout means no bound.
func (s *Studio) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.config.RequestTimeout)
}

func (s *Studio) generateText(ctx context.Context, op, model string, parts []llm.Part, json bool) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	text, err := s.model.GenerateText(ctx, llm.TextRequest{Model: model, Parts: parts, JSON: json})
	if err != nil {
		return "", llm.Wrap(op, err)
	}
	return text, nil
}

// generateImage returns the first inline image of the response as a data URL.
func (s *Studio) generateImage(ctx context.Context, op, model string, parts []llm.Part, aspectRatio string) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	res, err := s.model.GenerateImage(ctx, llm.ImageRequest{Model: model, Parts: parts, AspectRatio: aspectRatio})
	if err != nil {
		return "", llm.Wrap(op, err)
	}
	if res == nil || res.Data == "" {
		return "", llm.Wrap(op, llm.ErrNoImage)
	}
	return res.DataURL(), nil
}

// record adds img to the gallery, or stamps it when there is none.
func (s *Studio) record(ctx context.Context, img models.GeneratedImage) models.GeneratedImage {
	if s.gallery != nil {
		return s.gallery.AddGenerated(ctx, img)
	}
	if img.ID == "" {
		img.ID = uuid.NewString()
	}
	img.Timestamp = time.Now().UnixMilli()
	return img
}

// formatNumber prints degrees and percentages without trailing zeros.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
