package studio

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/xhad/studio/internal/models"
	"github.com/xhad/studio/pkg/llm"
)

// Upscale re-renders image at a higher resolution with the pro image model.
func (s *Studio) Upscale(ctx context.Context, image string, opts models.UpscaleOptions) (models.GeneratedImage, error) {
	return s.upscale(ctx, image, opts, "Upscale", models.TypeUpscale)
}

func (s *Studio) upscale(ctx context.Context, image string, opts models.UpscaleOptions, label string, kind models.ResultType) (models.GeneratedImage, error) {
	if image == "" {
		return models.GeneratedImage{}, ErrNoInput
	}

	model := s.config.Models.ProImage
	result, err := s.generateImage(ctx, "upscale", model, []llm.Part{
		llm.InlineImage(image),
		llm.TextPart(upscalePrompt(opts)),
	}, "")
	if err != nil {
		return models.GeneratedImage{}, err
	}

	return s.record(ctx, models.GeneratedImage{
		OriginalURL: image,
		ResultURL:   result,
		Prompt:      label,
		Type:        kind,
		ModelUsed:   model,
	}), nil
}

func upscalePrompt(opts models.UpscaleOptions) string {
	var b strings.Builder
	b.WriteString("Upscale this image. High resolution, 4k, sharp details.")
	if opts.CustomPrompt != "" {
		b.WriteString(" " + opts.CustomPrompt)
	}
	fmt.Fprintf(&b, "\nStyle: %s.", opts.Model)
	fmt.Fprintf(&b, "\nCreativity Level: %d.", opts.Creativity)
	fmt.Fprintf(&b, "\nSharpen: %d%%, Denoise: %d%%.", opts.Sharpen, opts.Denoise)

	var extra []string
	if opts.FaceRecovery {
		extra = append(extra, "Enhance faces.")
	}
	if opts.TextRecovery {
		extra = append(extra, "Enhance text clarity.")
	}
	if len(extra) > 0 {
		b.WriteString("\n" + strings.Join(extra, " "))
	}
	return b.String()
}

// BatchUpscale upscales each image in turn, pausing between calls. Failed items
// are logged and skipped; the error reports how many failed.
func (s *Studio) BatchUpscale(ctx context.Context, images []string, opts models.UpscaleOptions) ([]models.GeneratedImage, error) {
	if len(images) == 0 {
		return nil, ErrNoInput
	}

	var results []models.GeneratedImage
	failed := 0
	for i, img := range images {
		if i > 0 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(s.config.BatchPause):
			}
		}

		res, err := s.upscale(ctx, img, opts, "Batch Upscale", models.TypeUpscale)
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			s.logger.Warn("batch upscale item failed", "index", i, "error", err)
			failed++
			continue
		}
		results = append(results, res)
	}

	if failed > 0 {
		return results, fmt.Errorf("failed to upscale %d of %d images", failed, len(images))
	}
	return results, nil
}
