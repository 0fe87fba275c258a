package llm

import "context"

type TextRequest struct {
	Model string
	Parts []Part
	JSON  bool
}

type ImageRequest struct {
	Model       string
	Parts       []Part
	AspectRatio string
}

type VideoRequest struct {
	Model       string
	Prompt      string
	Start       Part
	End         *Part
	Resolution  string
	AspectRatio string
}

// VideoOperation tracks an asynchronously produced video.
type VideoOperation struct {
	Name  string
	Done  bool
	URI   string
	Error string

	handle any
}

// Model is the generative service boundary every studio tab talks to.
type Model interface {
	GenerateText(ctx context.Context, req TextRequest) (string, error)
	GenerateImage(ctx context.Context, req ImageRequest) (*InlineResult, error)
	StartVideo(ctx context.Context, req VideoRequest) (*VideoOperation, error)
	PollVideo(ctx context.Context, op *VideoOperation) (*VideoOperation, error)
}
