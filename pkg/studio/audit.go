package studio

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xhad/studio/internal/models"
	"github.com/xhad/studio/pkg/llm"
)

const auditPrompt = `Analyze this design (social media post/s or advertisement). Act as a world-class Design Director.
Evaluate the visual work based on: Composition, Typography, Color Harmony, Visual Hierarchy, and Brand Consistency.
Pinpoint specific areas where the design can be improved.

Return a valid JSON object with this exact structure:
{
  "score": number (0-100),
  "summary": "A concise executive summary of the design quality and impact.",
  "strengths": ["List 2-3 strong points"],
  "weaknesses": ["List 2-3 weak points"],
  "improvements": ["List 3-5 specific, actionable improvements for the designer"]
}
Do not use markdown blocks or formatting. Just return the raw JSON string.`

const heatmapPrompt = `Generate a visual saliency heatmap overlay for this design.
Show where a user's eyes would likely focus first (Red/Hot areas) vs last (Blue/Cool areas) based on contrast, faces, and text hierarchy.
Superimpose this semi-transparent heatmap on top of the original image to create a UX Attention Map.
Keep the original content visible underneath.`

// AnalyzeDesign critiques one or more designs with the pro text model.
func (s *Studio) AnalyzeDesign(ctx context.Context, images []string) (models.DesignCritique, error) {
	if len(images) == 0 {
		return models.DesignCritique{}, ErrNoInput
	}

	parts := make([]llm.Part, 0, len(images)+1)
	for _, img := range images {
		parts = append(parts, llm.InlineImage(img))
	}
	parts = append(parts, llm.TextPart(auditPrompt))

	text, err := s.generateText(ctx, "audit", s.config.Models.Pro, parts, true)
	if err != nil {
		return models.DesignCritique{}, err
	}
	if text == "" {
		return models.DesignCritique{}, llm.Wrap("audit", llm.ErrEmptyResponse)
	}

	var critique models.DesignCritique
	if err := json.Unmarshal([]byte(stripFences(text)), &critique); err != nil {
		return models.DesignCritique{}, llm.Wrap("audit", fmt.Errorf("failed to parse critique: %w", err))
	}
	return critique, nil
}

// Heatmap overlays a saliency map on image. The result is not added to the gallery.
func (s *Studio) Heatmap(ctx context.Context, image string) (string, error) {
	if image == "" {
		return "", ErrNoInput
	}
	return s.generateImage(ctx, "heatmap", s.config.Models.Image, []llm.Part{
		llm.InlineImage(image),
		llm.TextPart(heatmapPrompt),
	}, "")
}
