package processor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"math"
	"sync"

	"github.com/ledongthuc/pdf"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/xhad/studio/pkg/render"
)

var ErrInvalidPDF = errors.New("invalid pdf")

// US Letter in points, used when a page declares no MediaBox.
const (
	defaultPageWidth  = 612
	defaultPageHeight = 792
)

// PDF is a parsed upload that serves pages for rendering.
type PDF struct {
	name   string
	mu     sync.Mutex
	reader *pdf.Reader
}

var _ render.Document = (*PDF)(nil)

func Open(name string, data []byte) (f *PDF, err error) {
	defer func() {
		if r := recover(); r != nil {
			f, err = nil, fmt.Errorf("%w: %s: %v", ErrInvalidPDF, name, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPDF, name, err)
	}
	return &PDF{name: name, reader: reader}, nil
}

func (f *PDF) Name() string { return f.name }

func (f *PDF) NumPages() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reader.NumPage()
}

// Text returns the plain text of 1-based page n.
func (f *PDF) Text(n int) (text string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("read page %d: %v", n, r)
		}
	}()

	page := f.reader.Page(n)
	if page.V.IsNull() {
		return "", fmt.Errorf("page %d not found", n)
	}
	return page.GetPlainText(nil)
}

// Page loads the text layer and geometry of page n.
func (f *PDF) Page(ctx context.Context, n int) (p render.Page, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			p, err = nil, fmt.Errorf("load page %d: %v", n, r)
		}
	}()

	page := f.reader.Page(n)
	if page.V.IsNull() {
		return nil, fmt.Errorf("page %d not found", n)
	}

	width, height := mediaBox(page.V)
	tp := &textPage{width: width, height: height}

	rows, err := page.GetTextByRow()
	if err != nil {
		return nil, fmt.Errorf("load page %d text: %w", n, err)
	}
	for _, row := range rows {
		for _, t := range row.Content {
			if t.S == "" {
				continue
			}
			tp.runs = append(tp.runs, textRun{x: t.X, y: t.Y, s: t.S})
		}
	}
	return tp, nil
}

// mediaBox returns the page size in points, following inherited attributes.
func mediaBox(v pdf.Value) (float64, float64) {
	for node := v; !node.IsNull(); node = node.Key("Parent") {
		box := node.Key("MediaBox")
		if box.Kind() != pdf.Array || box.Len() != 4 {
			continue
		}
		w := box.Index(2).Float64() - box.Index(0).Float64()
		h := box.Index(3).Float64() - box.Index(1).Float64()
		if w > 0 && h > 0 {
			return w, h
		}
	}
	return defaultPageWidth, defaultPageHeight
}

type textRun struct {
	x, y float64
	s    string
}

// textPage rasterizes a page's text layer on a white background.
type textPage struct {
	width, height float64
	runs          []textRun
}

func (p *textPage) Viewport(scale float64) render.Viewport {
	return render.Viewport{
		Width:  int(math.Ceil(p.width * scale)),
		Height: int(math.Ceil(p.height * scale)),
		Scale:  scale,
	}
}

func (p *textPage) Render(ctx context.Context, dst draw.Image, vp render.Viewport) *render.RenderTask {
	return render.Go(ctx, func(ctx context.Context) error {
		draw.Draw(dst, dst.Bounds(), image.White, image.Point{}, draw.Src)

		d := &font.Drawer{Dst: dst, Src: image.Black, Face: basicfont.Face7x13}
		for i, run := range p.runs {
			if i%64 == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			// PDF space has its origin at the bottom left.
			x := run.x * vp.Scale
			y := (p.height - run.y) * vp.Scale
			d.Dot = fixed.P(int(x), int(y))
			d.DrawString(run.s)
		}
		return ctx.Err()
	})
}
