package llm

import (
	"context"
	"encoding/base64"
	"fmt"

	"google.golang.org/genai"
)

// MediaEngine serves image and video generation through the Gemini API.
type MediaEngine struct {
	client *genai.Client
}

func NewMediaEngine(ctx context.Context, apiKey string) (*MediaEngine, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize media client: %w", err)
	}
	return &MediaEngine{client: client}, nil
}

// GenerateImage returns the first inline data part of the first candidate.
func (m *MediaEngine) GenerateImage(ctx context.Context, req ImageRequest) (*InlineResult, error) {
	parts, err := genaiParts(req.Parts)
	if err != nil {
		return nil, err
	}

	var config *genai.GenerateContentConfig
	if req.AspectRatio != "" {
		config = &genai.GenerateContentConfig{
			ImageConfig: &genai.ImageConfig{AspectRatio: req.AspectRatio},
		}
	}

	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	resp, err := m.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return nil, err
	}

	return firstInline(resp)
}

func (m *MediaEngine) StartVideo(ctx context.Context, req VideoRequest) (*VideoOperation, error) {
	start, err := genaiImage(req.Start)
	if err != nil {
		return nil, err
	}

	config := &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
		Resolution:     req.Resolution,
		AspectRatio:    req.AspectRatio,
	}
	if req.End != nil {
		if config.LastFrame, err = genaiImage(*req.End); err != nil {
			return nil, err
		}
	}

	op, err := m.client.Models.GenerateVideos(ctx, req.Model, req.Prompt, start, config)
	if err != nil {
		return nil, err
	}
	return videoOperation(op), nil
}

func (m *MediaEngine) PollVideo(ctx context.Context, op *VideoOperation) (*VideoOperation, error) {
	raw, ok := op.handle.(*genai.GenerateVideosOperation)
	if !ok {
		return nil, fmt.Errorf("operation %q was not started by this engine", op.Name)
	}
	next, err := m.client.Operations.GetVideosOperation(ctx, raw, nil)
	if err != nil {
		return nil, err
	}
	return videoOperation(next), nil
}

func videoOperation(op *genai.GenerateVideosOperation) *VideoOperation {
	out := &VideoOperation{
		Name:   op.Name,
		Done:   op.Done,
		handle: op,
	}
	if op.Error != nil {
		out.Error = fmt.Sprint(op.Error["message"])
	}
	if op.Response != nil && len(op.Response.GeneratedVideos) > 0 {
		if v := op.Response.GeneratedVideos[0].Video; v != nil {
			out.URI = v.URI
		}
	}
	return out
}

func firstInline(resp *genai.GenerateContentResponse) (*InlineResult, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrNoImage
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		return &InlineResult{
			MIMEType: part.InlineData.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(part.InlineData.Data),
		}, nil
	}
	return nil, ErrNoImage
}

func genaiParts(parts []Part) ([]*genai.Part, error) {
	out := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		if !p.IsInline() {
			out = append(out, genai.NewPartFromText(p.Text))
			continue
		}
		data, err := base64.StdEncoding.DecodeString(p.Data)
		if err != nil {
			return nil, fmt.Errorf("decode inline %s part: %w", p.MIMEType, err)
		}
		out = append(out, genai.NewPartFromBytes(data, p.MIMEType))
	}
	return out, nil
}

func genaiImage(p Part) (*genai.Image, error) {
	data, err := base64.StdEncoding.DecodeString(p.Data)
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return &genai.Image{ImageBytes: data, MIMEType: p.MIMEType}, nil
}
