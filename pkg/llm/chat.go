package llm

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	APIKey       string
	DefaultModel string
}

// ChatEngine serves text and JSON generation through a langchaingo model.
type ChatEngine struct {
	config ChatConfig
	llm    llms.Model
}

// NewWithConfig creates a ChatEngine backed by the Google AI provider.
func NewWithConfig(ctx context.Context, config ChatConfig) (*ChatEngine, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if config.DefaultModel == "" {
		config.DefaultModel = "gemini-3-flash-preview"
	}

	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(config.APIKey),
		googleai.WithDefaultModel(config.DefaultModel))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return NewChatEngine(config, llm), nil
}

// NewChatEngine wraps an existing langchaingo model.
func NewChatEngine(config ChatConfig, model llms.Model) *ChatEngine {
	return &ChatEngine{
		config: config,
		llm:    model,
	}
}

// GenerateText sends the parts as one user turn and returns the first choice.
func (ce *ChatEngine) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	parts, err := contentParts(req.Parts)
	if err != nil {
		return "", err
	}

	content := []llms.MessageContent{
		{Role: llms.ChatMessageTypeHuman, Parts: parts},
	}

	model := req.Model
	if model == "" {
		model = ce.config.DefaultModel
	}
	opts := []llms.CallOption{llms.WithModel(model)}
	if req.JSON {
		opts = append(opts, llms.WithJSONMode())
	}

	response, err := ce.llm.GenerateContent(ctx, content, opts...)
	if err != nil {
		return "", fmt.Errorf("chat error: %w", err)
	}
	if response == nil || len(response.Choices) == 0 || response.Choices[0] == nil {
		return "", ErrEmptyResponse
	}

	return response.Choices[0].Content, nil
}

func contentParts(parts []Part) ([]llms.ContentPart, error) {
	out := make([]llms.ContentPart, 0, len(parts))
	for _, p := range parts {
		if !p.IsInline() {
			out = append(out, llms.TextPart(p.Text))
			continue
		}
		data, err := base64.StdEncoding.DecodeString(p.Data)
		if err != nil {
			return nil, fmt.Errorf("decode inline %s part: %w", p.MIMEType, err)
		}
		out = append(out, llms.BinaryPart(p.MIMEType, data))
	}
	return out, nil
}
