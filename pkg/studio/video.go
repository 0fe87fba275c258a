package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xhad/studio/internal/models"
	"github.com/xhad/studio/pkg/llm"
	"golang.org/x/time/rate"
)

const defaultVideoPrompt = "Smooth cinematic camera movement, high quality, photorealistic"

// TransitionPresets maps preset ids to their motion prompt.
var TransitionPresets = map[string]string{
	"smart-morph": "Smoothly morph the first image into the second image. Keep the camera steady, focus on transforming the objects naturally. High quality, cinematic.",
	"dissolve":    "Cinematic cross-dissolve fade from the first image to the second image. Slow, dreamlike atmosphere.",
	"pan-left":    "Camera pans smoothly to the left, revealing the second image as if it were panoramic.",
	"pan-right":   "Camera pans smoothly to the right, creating a continuous motion effect.",
	"zoom-in":     "Cinematic slow zoom in, transitioning from the wide shot of the first image into the detail of the second image.",
	"zoom-out":    "Cinematic slow zoom out, revealing the context of the second image.",
	"orbit":       "Orbital camera movement, rotating around the subject to transition between angles.",
}

type VideoParams struct {
	Start  string `json:"start"`
	End    string `json:"end,omitempty"`
	Prompt string `json:"prompt,omitempty"`
	Preset string `json:"preset,omitempty"`
}

// Progress is called after every status poll of a running video job.
type Progress func(attempt, maxAttempts int)

// videoPrompt picks the custom prompt, then the preset, then the default.
func videoPrompt(custom, preset string) string {
	if strings.TrimSpace(custom) != "" {
		return custom
	}
	if p, ok := TransitionPresets[preset]; ok {
		return p
	}
	return defaultVideoPrompt
}

// Interpolate animates from the start frame, optionally towards an end frame,
// and waits for the job to finish. The returned entry's ResultURL carries the API key.
func (s *Studio) Interpolate(ctx context.Context, params VideoParams, progress Progress) (models.GeneratedImage, error) {
	if params.Start == "" {
		return models.GeneratedImage{}, ErrNoInput
	}

	req := llm.VideoRequest{
		Model:       s.config.Models.Video,
		Prompt:      videoPrompt(params.Prompt, params.Preset),
		Start:       llm.InlineImage(params.Start),
		Resolution:  "720p",
		AspectRatio: "16:9",
	}
	if params.End != "" {
		end := llm.InlineImage(params.End)
		req.End = &end
	}

	callCtx, cancel := s.withTimeout(ctx)
	op, err := s.model.StartVideo(callCtx, req)
	cancel()
	if err != nil {
		return models.GeneratedImage{}, llm.Wrap("video", err)
	}

	op, err = s.pollVideo(ctx, op, progress)
	if err != nil {
		return models.GeneratedImage{}, llm.Wrap("video", err)
	}
	if op.Error != "" {
		return models.GeneratedImage{}, llm.Wrap("video", errors.New(op.Error))
	}
	if op.URI == "" {
		return models.GeneratedImage{}, llm.Wrap("video", llm.ErrNoVideo)
	}

	preset := params.Preset
	if preset == "" {
		preset = "custom"
	}
	return s.record(ctx, models.GeneratedImage{
		OriginalURL: params.Start,
		ResultURL:   withKey(op.URI, s.config.APIKey),
		Prompt:      "Transition: " + preset,
		Type:        models.TypeVideo,
		ModelUsed:   req.Model,
	}), nil
}

func (s *Studio) pollVideo(ctx context.Context, op *llm.VideoOperation, progress Progress) (*llm.VideoOperation, error) {
	limiter := rate.NewLimiter(rate.Every(s.config.PollInterval), 1)
	limiter.Allow()

	for attempt := 1; !op.Done; attempt++ {
		if attempt > s.config.MaxPollAttempts {
			return nil, ErrPollExhausted
		}
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}

		callCtx, cancel := s.withTimeout(ctx)
		next, err := s.model.PollVideo(callCtx, op)
		cancel()
		if err != nil {
			return nil, fmt.Errorf("failed to poll video operation: %w", err)
		}
		op = next

		s.logger.Debug("video poll", "operation", op.Name, "attempt", attempt, "done", op.Done)
		if progress != nil {
			progress(attempt, s.config.MaxPollAttempts)
		}
	}
	return op, nil
}

// withKey appends the API key so the URI can be fetched without extra headers.
func withKey(uri, key string) string {
	if key == "" {
		return uri
	}
	sep := "&"
	if !strings.Contains(uri, "?") {
		sep = "?"
	}
	return uri + sep + "key=" + key
}
