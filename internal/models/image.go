package models

// ResultType tags the tab that produced a gallery entry.
type ResultType string

const (
	TypeMockup        ResultType = "mockup"
	TypeRemoveBg      ResultType = "remove-bg"
	TypeUpscale       ResultType = "upscale"
	TypeAngle         ResultType = "angle"
	TypeEdit          ResultType = "edit"
	TypeSmartEdited   ResultType = "smartedited"
	TypeStyleTransfer ResultType = "style-transfer"
	TypeVideo         ResultType = "video"
	TypePdfAnalysis   ResultType = "pdf-analysis"
)

// GeneratedImage is one entry of the results gallery.
type GeneratedImage struct {
	ID            string     `json:"id"`
	OriginalURL   string     `json:"originalUrl"`
	SourceImages  []string   `json:"sourceImages,omitempty"`
	ResultURL     string     `json:"resultUrl"`
	Prompt        string     `json:"prompt"`
	Type          ResultType `json:"type"`
	Timestamp     int64      `json:"timestamp"`
	FidelityScore float64    `json:"fidelityScore,omitempty"`
	ModelUsed     string     `json:"modelUsed,omitempty"`
	IsFallback    bool       `json:"isFallback,omitempty"`
}

// Tab names the input lists kept per tab.
type Tab string

const (
	TabGenerator     Tab = "generator"
	TabAngleStudio   Tab = "angle_studio"
	TabUpscale       Tab = "upscale"
	TabEditor        Tab = "editor"
	TabStyleTransfer Tab = "style_transfer"
)

func (t Tab) Valid() bool {
	switch t {
	case TabGenerator, TabAngleStudio, TabUpscale, TabEditor, TabStyleTransfer:
		return true
	}
	return false
}
