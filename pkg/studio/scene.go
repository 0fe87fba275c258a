package studio

import (
	"context"
	"fmt"
	"strings"

	"github.com/xhad/studio/internal/models"
	"github.com/xhad/studio/pkg/llm"
)

// DetectProductType names the main product in image, falling back to "Product".
func (s *Studio) DetectProductType(ctx context.Context, image string) string {
	text, err := s.generateText(ctx, "detect-product", s.config.Models.Fast, []llm.Part{
		llm.InlineImage(image),
		llm.TextPart("Identify the main product in this image. Return only the product name (e.g. 'Coffee Maker', 'Sneakers'). Keep it short."),
	}, false)
	if err != nil {
		s.logger.Warn("product detection failed", "error", err)
		return "Product"
	}
	if text = strings.TrimSpace(text); text == "" {
		return "Product"
	}
	return text
}

// SuggestRoom picks a room for a product photo, falling back to the studio.
func (s *Studio) SuggestRoom(ctx context.Context, image, label string) models.RoomType {
	prompt := fmt.Sprintf(`Analyze this %s and suggest the best room environment for a product photo.
Choose exactly one from this list:
'Modern Living Room', 'Cozy Bedroom', 'Elegant Dining Area', 'Modern Kitchen', 'Professional Studio', 'Luxury Toilet / Bathroom', 'Construction Site', 'Minimalist 3D Podium Stage'.
Return only the string.`, label)

	text, err := s.generateText(ctx, "suggest-room", s.config.Models.Fast, []llm.Part{
		llm.InlineImage(image),
		llm.TextPart(prompt),
	}, false)
	if err != nil {
		s.logger.Warn("room suggestion failed", "error", err)
		return models.RoomStudio
	}
	return roomFromText(strings.TrimSpace(text))
}

func roomFromText(text string) models.RoomType {
	switch {
	case strings.Contains(text, "Living"):
		return models.RoomLiving
	case strings.Contains(text, "Bedroom"):
		return models.RoomBedroom
	case strings.Contains(text, "Dining"):
		return models.RoomDining
	case strings.Contains(text, "Kitchen"):
		return models.RoomKitchen
	case strings.Contains(text, "Toilet"), strings.Contains(text, "Bathroom"):
		return models.RoomToilet
	case strings.Contains(text, "Construction"):
		return models.RoomConstruction
	case strings.Contains(text, "Stage"), strings.Contains(text, "Podium"):
		return models.RoomStage
	}
	return models.RoomStudio
}

// GenerateScene places the product images in a photographed environment.
func (s *Studio) GenerateScene(ctx context.Context, images []string, opts models.SceneOptions) (models.GeneratedImage, error) {
	if len(images) == 0 || images[0] == "" {
		return models.GeneratedImage{}, ErrNoInput
	}

	model := s.config.Models.Image
	aspect := ""
	if opts.FidelityMode == "high" {
		model = s.config.Models.ProImage
		aspect = proAspectRatio(opts.AspectRatio)
	}

	parts := make([]llm.Part, 0, len(images)+2)
	for _, img := range images {
		parts = append(parts, llm.InlineImage(img))
	}
	if opts.ReferenceImage != "" {
		parts = append(parts, llm.InlineImage(opts.ReferenceImage))
	}
	parts = append(parts, llm.TextPart(scenePrompt(len(images), opts)))

	result, err := s.generateImage(ctx, "scene", model, parts, aspect)
	if err != nil {
		return models.GeneratedImage{}, err
	}

	img := models.GeneratedImage{
		OriginalURL: images[0],
		ResultURL:   result,
		Prompt:      "Scene Generation",
		Type:        models.TypeMockup,
		ModelUsed:   model,
	}
	if len(images) > 1 {
		img.SourceImages = images
	}
	return s.record(ctx, img), nil
}

func proAspectRatio(ar models.AspectRatio) string {
	switch ar {
	case models.AspectSquare, models.AspectLandscape, models.AspectPortrait:
		return string(ar)
	}
	return string(models.AspectSquare)
}

func scenePrompt(count int, opts models.SceneOptions) string {
	var b strings.Builder
	b.WriteString("Professional Product Photography, 8k Resolution, Photorealistic, Octane Render. ")

	if opts.AlphaMode {
		b.WriteString(`
IMPORTANT: ISOLATION MODE.
Generate the object(s) on a SOLID PURE WHITE BACKGROUND (Hex #FFFFFF).
NO shadows, NO props, NO environment.
The output must be a clean cut-out ready image.
`)
	} else {
		room := opts.RoomType
		if room == "" || room == models.RoomAuto {
			room = models.RoomStudio
		}
		fmt.Fprintf(&b, " Room/Environment: %s. ", room)
	}

	if opts.FullVisibilityMode && count > 1 {
		fmt.Fprintf(&b, `
GROUP SHOT COMPOSITION:
- Wide Angle Lens.
- Ensure ALL %d items are fully visible within the frame.
- Arrange them aesthetically (e.g., side-by-side or artistic cluster) but DO NOT overlap significantly.
- DO NOT CROP any item. Keep safe margins around the composition.
`, count)
	} else {
		b.WriteString(`
HERO SHOT COMPOSITION:
- Center the product perfectly in the frame.
- Focus on the product details.
- Use a shallow depth of field to separate from background (unless Alpha mode).
`)
	}

	if opts.CustomPrompt != "" {
		fmt.Fprintf(&b, " Details: %s.", opts.CustomPrompt)
	}
	if opts.ProductLabel != "" {
		fmt.Fprintf(&b, " Subject: %s.", opts.ProductLabel)
	}
	if opts.AntiDuplicateStrength == "high" {
		b.WriteString(" STRICT INSTRUCTION: Maintain the exact identity, shape, and structure of the input product(s). Do not add imaginary parts.")
	}
	if opts.AngleMode == models.AngleCustom && opts.CustomAngle != nil {
		fmt.Fprintf(&b, " Camera Angle: Yaw %s°, Pitch %s°.",
			formatNumber(opts.CustomAngle.Yaw), formatNumber(opts.CustomAngle.Pitch))
	}
	if opts.Lighting != nil {
		temperature := "Cool Studio White"
		if opts.Lighting.Temperature > 50 {
			temperature = "Warm Golden Hour"
		}
		fmt.Fprintf(&b, " Lighting: Brightness %d%%, Temperature %s.", opts.Lighting.Brightness, temperature)
	}
	if opts.ReferenceImage != "" {
		b.WriteString(" Use the second image as a strict style and lighting reference.")
	}

	return b.String()
}
