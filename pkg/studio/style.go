package studio

import (
	"context"
	"fmt"

	"github.com/xhad/studio/internal/models"
	"github.com/xhad/studio/pkg/llm"
)

// StylePreset is a named look offered by the style transfer tab.
type StylePreset struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var stylePresets = []StylePreset{
	{ID: "Anti-Gravity / Levitation", Name: "Levitation"},
	{ID: "Neon Cyberpunk", Name: "Cyberpunk"},
	{ID: "Soft Minimalist", Name: "Minimalist"},
	{ID: "3D Clay Render", Name: "Clay"},
	{ID: "Dark Luxury", Name: "Luxury"},
	{ID: "Architectural Sketch", Name: "Sketch"},
}

func StylePresets() []StylePreset {
	out := make([]StylePreset, len(stylePresets))
	copy(out, stylePresets)
	return out
}

// StyleTransfer repaints image in the preset style, optionally guided by a reference.
func (s *Studio) StyleTransfer(ctx context.Context, image string, opts models.StyleOptions) (models.GeneratedImage, error) {
	if image == "" {
		return models.GeneratedImage{}, ErrNoInput
	}

	parts := []llm.Part{llm.InlineImage(image)}
	if opts.ReferenceImage != "" {
		parts = append(parts, llm.InlineImage(opts.ReferenceImage))
	}
	parts = append(parts, llm.TextPart(fmt.Sprintf("Style Transfer. Apply this style: %s. %s", opts.Preset, opts.CustomPrompt)))

	model := s.config.Models.Image
	result, err := s.generateImage(ctx, "style", model, parts, "")
	if err != nil {
		return models.GeneratedImage{}, err
	}

	return s.record(ctx, models.GeneratedImage{
		OriginalURL: image,
		ResultURL:   result,
		Prompt:      "Style: " + opts.Preset,
		Type:        models.TypeStyleTransfer,
		ModelUsed:   model,
	}), nil
}
