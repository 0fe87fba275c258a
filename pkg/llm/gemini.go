package llm

import (
	"context"
)

// Gemini implements Model: text through langchaingo, images and video through the genai SDK.
type Gemini struct {
	*ChatEngine
	*MediaEngine
}

var _ Model = (*Gemini)(nil)

func NewGemini(ctx context.Context, apiKey, defaultModel string) (*Gemini, error) {
	chat, err := NewWithConfig(ctx, ChatConfig{APIKey: apiKey, DefaultModel: defaultModel})
	if err != nil {
		return nil, err
	}
	media, err := NewMediaEngine(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return &Gemini{ChatEngine: chat, MediaEngine: media}, nil
}
