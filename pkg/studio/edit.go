package studio

import (
	"context"
	"fmt"

	"github.com/xhad/studio/internal/models"
	"github.com/xhad/studio/pkg/llm"
)

// Edit applies an instruction, optionally masked, or removes the background.
func (s *Studio) Edit(ctx context.Context, image string, opts models.EditOptions) (models.GeneratedImage, error) {
	if image == "" {
		return models.GeneratedImage{}, ErrNoInput
	}

	var prompt string
	if opts.RemoveBg {
		prompt = "Remove the background. Return the object on a white background (or transparent if supported)."
	} else {
		prompt = fmt.Sprintf("Edit this image. Instruction: %s. Maintain style and realism.", opts.Instruction)
		if opts.TextEditMode {
			prompt += " Replace text in the image matching the style."
		}
		if n := len(opts.SourceImages); n > 0 {
			prompt += fmt.Sprintf("\n\nREFERENCE DATA: You have been provided with %d original source images following the main image. "+
				"If the user refers to \"the original\", \"the source\", \"product A\", etc., refer to these images to recover details or fix hallucinations. "+
				"Preserve the original product identity from these sources.", n)
		}
	}

	parts := []llm.Part{llm.InlineImage(image)}
	if opts.MaskImage != "" {
		parts = append(parts, llm.InlineData("image/png", opts.MaskImage))
		prompt += " Use the provided mask for inpainting."
	}
	if !opts.RemoveBg {
		for _, src := range opts.SourceImages {
			parts = append(parts, llm.InlineImage(src))
		}
	}
	parts = append(parts, llm.TextPart(prompt))

	model := s.config.Models.Image
	result, err := s.generateImage(ctx, "edit", model, parts, "")
	if err != nil {
		return models.GeneratedImage{}, err
	}

	img := models.GeneratedImage{
		OriginalURL: image,
		ResultURL:   result,
		Prompt:      opts.Instruction,
		Type:        models.TypeEdit,
		ModelUsed:   model,
	}
	if opts.RemoveBg {
		img.Prompt = "Remove BG"
		img.Type = models.TypeRemoveBg
	}
	if len(opts.SourceImages) > 0 {
		img.SourceImages = opts.SourceImages
	}
	return s.record(ctx, img), nil
}
