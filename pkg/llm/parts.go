package llm

import (
	"github.com/xhad/studio/pkg/imageutil"
)

// Part is one unit of model input: either inline data or a text instruction.
type Part struct {
	MIMEType string
	Data     string // base64 payload without a data-URL prefix
	Text     string
}

func (p Part) IsInline() bool {
	return p.MIMEType != ""
}

// InlineImage builds a JPEG-tagged inline part from an encoded image, stripping any data-URL prefix.
func InlineImage(image string) Part {
	return InlineData("image/jpeg", image)
}

// InlineData builds an inline part with an explicit MIME type.
func InlineData(mimeType, image string) Part {
	return Part{MIMEType: mimeType, Data: imageutil.Strip(image)}
}

func TextPart(text string) Part {
	return Part{Text: text}
}

// InlineResult is binary output returned by the model.
type InlineResult struct {
	MIMEType string
	Data     string // base64
}

// DataURL re-wraps the result for storage and display.
func (r *InlineResult) DataURL() string {
	return imageutil.Wrap(r.MIMEType, r.Data)
}
