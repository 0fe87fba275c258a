package processor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/xhad/studio/internal/models"
	"github.com/xhad/studio/pkg/imageutil"
	"github.com/xhad/studio/pkg/render"
)

type ProcessorConfig struct {
	// MaxContextChars caps the text sent to the model per document. Zero means no cap.
	MaxContextChars int
	SnapshotPages   int
	SnapshotScale   float64
	SnapshotQuality int
}

type Processor struct {
	config ProcessorConfig
	logger *slog.Logger
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.SnapshotPages == 0 {
		config.SnapshotPages = 3
	}
	if config.SnapshotScale == 0 {
		config.SnapshotScale = 1.5
	}
	if config.SnapshotQuality == 0 {
		config.SnapshotQuality = 80
	}

	return Processor{
		config: config,
		logger: slog.Default().With("component", "processor"),
	}
}

// Extract parses a PDF upload and returns its text with page markers.
func (p *Processor) Extract(name string, data []byte) (models.Document, *PDF, error) {
	file, err := Open(name, data)
	if err != nil {
		return models.Document{}, nil, err
	}

	var content strings.Builder
	for i := 1; i <= file.NumPages(); i++ {
		text, err := file.Text(i)
		if err != nil {
			return models.Document{}, nil, fmt.Errorf("failed to extract page %d of %s: %w", i, name, err)
		}
		fmt.Fprintf(&content, "--- Page %d ---\n%s\n\n", i, cleanText(text))
	}

	doc := models.Document{
		ID:        uuid.NewString(),
		Name:      name,
		Content:   content.String(),
		PageCount: file.NumPages(),
		FileSize:  fmt.Sprintf("%.2f MB", float64(len(data))/1024/1024),
		Data:      data,
	}
	return doc, file, nil
}

// Snapshots renders the first pages of a PDF as JPEG data URLs.
// Any failure yields no snapshots.
func (p *Processor) Snapshots(ctx context.Context, doc models.Document) []string {
	file, err := Open(doc.Name, doc.Data)
	if err != nil {
		p.logger.Warn("snapshot open failed", "document", doc.Name, "error", err)
		return nil
	}

	count := min(file.NumPages(), p.config.SnapshotPages)
	images := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		img, err := render.RenderPage(ctx, file, i, p.config.SnapshotScale)
		if err != nil {
			p.logger.Warn("snapshot render failed", "document", doc.Name, "page", i, "error", err)
			return nil
		}
		encoded, err := imageutil.EncodeJPEG(img, p.config.SnapshotQuality)
		if err != nil {
			p.logger.Warn("snapshot encode failed", "document", doc.Name, "page", i, "error", err)
			return nil
		}
		images = append(images, encoded)
	}
	return images
}

// Budget trims content to MaxContextChars, cutting at the last sentence that fits.
func (p *Processor) Budget(content string) string {
	limit := p.config.MaxContextChars
	if limit <= 0 || len(content) <= limit {
		return content
	}

	var kept strings.Builder
	for _, sentence := range splitIntoSentences(content) {
		if kept.Len()+len(sentence)+1 > limit {
			break
		}
		kept.WriteString(sentence)
		kept.WriteString(" ")
	}

	out := strings.TrimSpace(kept.String())
	if out == "" {
		out = content[:limit]
	}
	return out + "\n[... truncated ...]"
}

func cleanText(text string) string {
	// Replace runs of whitespace with a single space
	return strings.Join(strings.Fields(text), " ")
}

func splitIntoSentences(text string) []string {
	sentenceEnders := []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}
	var sentences []string

	current := strings.Builder{}

	for i := 0; i < len(text); i++ {
		current.WriteByte(text[i])

		for _, ender := range sentenceEnders {
			if strings.HasSuffix(current.String(), ender) {
				sentences = append(sentences, strings.TrimSpace(current.String()))
				current.Reset()
				break
			}
		}
	}

	if current.Len() > 0 {
		sentences = append(sentences, strings.TrimSpace(current.String()))
	}

	return sentences
}
