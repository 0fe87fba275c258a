// Package render draws document pages into a shared Surface while guaranteeing
// that only the most recently requested page is ever committed.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"sync"
)

// ErrRenderCancelled is reported by a task that stopped because it was cancelled.
var ErrRenderCancelled = errors.New("rendering cancelled")

// ErrViewportTooLarge is reported for viewports that are empty or exceed MaxViewportPixels.
var ErrViewportTooLarge = errors.New("viewport too large")

// MaxViewportPixels caps the area of a single rendered frame (128 MiB of RGBA).
const MaxViewportPixels = 1 << 25

// Viewport is the pixel rectangle of one page at a zoom scale.
type Viewport struct {
	Width  int
	Height int
	Scale  float64
}

func (v Viewport) Bounds() image.Rectangle {
	return image.Rect(0, 0, v.Width, v.Height)
}

// Check reports whether a frame of this size can be allocated.
func (v Viewport) Check() error {
	if v.Width <= 0 || v.Height <= 0 ||
		v.Width > MaxViewportPixels || v.Height > MaxViewportPixels ||
		v.Width*v.Height > MaxViewportPixels {
		return fmt.Errorf("%w: %dx%d at scale %g", ErrViewportTooLarge, v.Width, v.Height, v.Scale)
	}
	return nil
}

// Document supports random-access page retrieval.
type Document interface {
	NumPages() int
	// Page returns the 1-based page n.
	Page(ctx context.Context, n int) (Page, error)
}

type Page interface {
	Viewport(scale float64) Viewport
	// Render starts drawing the page into dst and returns immediately.
	Render(ctx context.Context, dst draw.Image, vp Viewport) *RenderTask
}

// RenderTask is an in-flight page render.
type RenderTask struct {
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Go runs fn in its own goroutine under a cancellable context.
// A fn that returns after its context was cancelled is reported as ErrRenderCancelled.
func Go(ctx context.Context, fn func(ctx context.Context) error) *RenderTask {
	ctx, cancel := context.WithCancel(ctx)
	t := &RenderTask{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(t.done)
		defer cancel()

		err := fn(ctx)
		if ctx.Err() != nil && (err == nil || errors.Is(err, context.Canceled)) {
			err = ErrRenderCancelled
		}
		t.err = err
	}()

	return t
}

// Cancel asks the task to stop. It does not wait for it.
func (t *RenderTask) Cancel() {
	t.cancel()
}

// Wait blocks until the task finishes and returns its result.
func (t *RenderTask) Wait() error {
	<-t.done
	return t.err
}

// Done is closed when the task finishes.
func (t *RenderTask) Done() <-chan struct{} {
	return t.done
}

// Surface is the caller-owned drawing target shared by all renders.
type Surface struct {
	mu      sync.RWMutex
	img     *image.RGBA
	page    int
	scale   float64
	version uint64
}

func NewSurface() *Surface {
	return &Surface{img: image.NewRGBA(image.Rectangle{})}
}

// Frame describes what the surface currently shows.
type Frame struct {
	Image   *image.RGBA
	Page    int
	Scale   float64
	Version uint64
}

// Snapshot returns a copy of the current frame.
func (s *Surface) Snapshot() Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()

	img := image.NewRGBA(s.img.Bounds())
	copy(img.Pix, s.img.Pix)
	return Frame{Image: img, Page: s.page, Scale: s.scale, Version: s.version}
}

// resize reallocates the pixel buffer to vp when its size differs.
func (s *Surface) resize(vp Viewport) {
	if s.img.Bounds() != vp.Bounds() {
		s.img = image.NewRGBA(vp.Bounds())
	}
}

func (s *Surface) commit(frame *image.RGBA, vp Viewport, page int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resize(vp)
	draw.Draw(s.img, s.img.Bounds(), frame, image.Point{}, draw.Src)
	s.page = page
	s.scale = vp.Scale
	s.version++
}

// RenderPage draws page n of doc into a new image outside any canceller.
func RenderPage(ctx context.Context, doc Document, n int, scale float64) (*image.RGBA, error) {
	page, err := doc.Page(ctx, n)
	if err != nil {
		return nil, err
	}
	vp := page.Viewport(scale)
	if err := vp.Check(); err != nil {
		return nil, err
	}
	img := image.NewRGBA(vp.Bounds())
	if err := page.Render(ctx, img, vp).Wait(); err != nil {
		return nil, err
	}
	return img, nil
}
