package studio

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xhad/studio/internal/models"
	"github.com/xhad/studio/pkg/llm"
)

// DetectAngle estimates the camera angle of image. Any failure yields the zero angle.
func (s *Studio) DetectAngle(ctx context.Context, image string) models.Angle {
	text, err := s.generateText(ctx, "detect-angle", s.config.Models.Fast, []llm.Part{
		llm.InlineImage(image),
		llm.TextPart("Estimate the camera angle relative to the object. Return JSON with 'yaw' (0-360) and 'pitch' (-90 to 90)."),
	}, true)
	if err != nil {
		s.logger.Warn("angle detection failed", "error", err)
		return models.Angle{}
	}

	var angle models.Angle
	if err := json.Unmarshal([]byte(stripFences(text)), &angle); err != nil {
		s.logger.Warn("angle detection returned invalid json", "error", err)
		return models.Angle{}
	}
	return angle
}

// GenerateAngleView renders the same object from the requested yaw and pitch.
func (s *Studio) GenerateAngleView(ctx context.Context, image string, yaw, pitch float64) (models.GeneratedImage, error) {
	if image == "" {
		return models.GeneratedImage{}, ErrNoInput
	}

	y, p := formatNumber(yaw), formatNumber(pitch)
	prompt := fmt.Sprintf(`Novel View Synthesis Task.
Input: Reference product image.
Task: Generate a high-fidelity view of the EXACT SAME object from a new camera angle.
Target Geometry: Azimuth (Yaw) %[1]s degrees, Elevation (Pitch) %[2]s degrees.
Strict Guidelines:
1. Identity Preservation: Do not alter the object's design, logo, label text, colors, or proportions.
2. Rotation Accuracy: Yaw %[1]s°, Pitch %[2]s°.
3. Background: Neutral studio background.
4. Style: Photorealistic, 8k resolution.`, y, p)

	model := s.config.Models.Image
	result, err := s.generateImage(ctx, "angle", model, []llm.Part{
		llm.InlineImage(image),
		llm.TextPart(prompt),
	}, "")
	if err != nil {
		return models.GeneratedImage{}, err
	}

	return s.record(ctx, models.GeneratedImage{
		OriginalURL: image,
		ResultURL:   result,
		Prompt:      fmt.Sprintf("Angle: Yaw %s, Pitch %s", y, p),
		Type:        models.TypeAngle,
		ModelUsed:   model,
	}), nil
}
