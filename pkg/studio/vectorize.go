package studio

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/xhad/studio/pkg/llm"
)

// Vectorize traces image into SVG markup. Any failure yields an empty string.
func (s *Studio) Vectorize(ctx context.Context, image string) string {
	if image == "" {
		return ""
	}

	text, err := s.generateText(ctx, "vectorize", s.config.Models.Fast, []llm.Part{
		llm.InlineImage(image),
		llm.TextPart("Trace this image and convert it to a simple, clean SVG code. Return ONLY the raw SVG xml string starting with <svg> and ending with </svg>. Do not use markdown blocks."),
	}, false)
	if err != nil {
		s.logger.Warn("vectorize failed", "error", err)
		return ""
	}

	svg, err := extractSVG(stripFences(text))
	if err != nil {
		s.logger.Warn("vectorize returned no svg", "error", err)
		return ""
	}
	return svg
}

// extractSVG returns the outer markup of the first svg element in text.
func extractSVG(text string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(text))
	if err != nil {
		return "", err
	}

	sel := doc.Find("svg").First()
	if sel.Length() == 0 {
		return "", llm.ErrEmptyResponse
	}
	return goquery.OuterHtml(sel)
}

// stripFences removes a surrounding markdown code block, if any.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	for _, prefix := range []string{"```xml", "```svg", "```json", "```"} {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			break
		}
	}
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
