package studio

import (
	"context"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/xhad/studio/internal/models"
	"github.com/xhad/studio/pkg/imageutil"
	"github.com/xhad/studio/pkg/llm"
)

var ErrAnalyzeDocuments = errors.New("failed to analyze documents")

const noAnswer = "I couldn't generate a response."

// minSelection is the smallest region edge, in page pixels, worth upscaling.
const minSelection = 10

// regionUpscale are the settings used for inspector crops.
var regionUpscale = models.UpscaleOptions{
	ScaleFactor:  "4x",
	Model:        "High Fidelity",
	Creativity:   1,
	Sharpen:      50,
	Denoise:      30,
	TextRecovery: true,
}

// ChatWithDocuments answers query from the given documents and prior turns.
// Visual mode attaches page snapshots and switches to the pro image model.
func (s *Studio) ChatWithDocuments(ctx context.Context, query string, docs []models.Document, history []models.ChatMessage, visual bool) (string, error) {
	parts := []llm.Part{llm.TextPart(analystInstructions(visual))}

	for i, doc := range docs {
		parts = append(parts, llm.TextPart(fmt.Sprintf("\n=== DOCUMENT %d: %s ===\n%s\n=================\n",
			i+1, doc.Name, s.docs.Budget(doc.Content))))

		if !visual {
			continue
		}
		for j, snap := range s.docs.Snapshots(ctx, doc) {
			parts = append(parts,
				llm.InlineImage(snap),
				llm.TextPart(fmt.Sprintf("[Image: Document %d - Page %d]", i+1, j+1)))
		}
	}

	if len(history) > 0 {
		lines := make([]string, len(history))
		for i, msg := range history {
			speaker := "Assistant"
			if msg.Role == models.RoleUser {
				speaker = "User"
			}
			lines[i] = speaker + ": " + msg.Text
		}
		parts = append(parts, llm.TextPart("\nConversation History:\n"+strings.Join(lines, "\n")+"\n"))
	}
	parts = append(parts, llm.TextPart("\nUser Question: "+query))

	model := s.config.Models.Fast
	if visual {
		model = s.config.Models.ProImage
	}

	answer, err := s.generateText(ctx, "pdf-chat", model, parts, false)
	if err != nil {
		s.logger.Error("document chat failed", "documents", len(docs), "visual", visual, "error", err)
		return "", fmt.Errorf("%w: %w", ErrAnalyzeDocuments, err)
	}
	if strings.TrimSpace(answer) == "" {
		return noAnswer, nil
	}
	return answer, nil
}

func analystInstructions(visual bool) string {
	var b strings.Builder
	b.WriteString("You are an expert Document Analyst and PDF Intelligence Assistant.\n")
	b.WriteString("Your goal is to provide precise, evidence-based answers from the provided documents.\n")
	if visual {
		b.WriteString("VISUAL ANALYSIS MODE ENABLED: You have been provided with visual snapshots (images) of the document pages in addition to text. ")
		b.WriteString("Use these images to analyze charts, diagrams, product photos, and layout details that text extraction might miss. ")
		b.WriteString("If the text extraction is sparse or garbled, RELY ON THE IMAGES.\n")
	}
	b.WriteString("\nCRITICAL INSTRUCTIONS:\n")
	b.WriteString("1. CITATIONS: Cite the page number in format [[Page X]] for every fact.\n")
	b.WriteString("2. COMPARISONS: When comparing products or documents, look at both the text specs and the visual images provided.\n")
	b.WriteString("3. FORMATTING: Use Markdown.\n")
	return b.String()
}

// UpscaleRegion crops rect out of a rendered page and upscales it.
func (s *Studio) UpscaleRegion(ctx context.Context, page image.Image, pageNum int, rect image.Rectangle) (models.GeneratedImage, error) {
	if page == nil {
		return models.GeneratedImage{}, ErrNoInput
	}

	rect = rect.Canon().Intersect(page.Bounds())
	if rect.Dx() < minSelection || rect.Dy() < minSelection {
		return models.GeneratedImage{}, ErrSelectionTooSmall
	}

	crop, err := imageutil.EncodeJPEG(imageutil.Crop(page, rect), 92)
	if err != nil {
		return models.GeneratedImage{}, fmt.Errorf("failed to encode selection: %w", err)
	}
	return s.upscale(ctx, crop, regionUpscale, fmt.Sprintf("PDF Extract - Page %d", pageNum), models.TypePdfAnalysis)
}
