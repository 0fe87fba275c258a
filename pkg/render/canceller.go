package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"sync"
)

// Outcome is the settled result of one render request.
type Outcome struct {
	// Drawn is true only when this request's frame was committed to the surface.
	Drawn bool
	Err   error
}

// ticket identifies one request in the current-task register.
type ticket struct {
	cancel context.CancelFunc
}

// Canceller keeps at most one render active and drops work from superseded requests.
type Canceller struct {
	mu      sync.Mutex
	current *ticket
	logger  *slog.Logger
}

func NewCanceller(logger *slog.Logger) *Canceller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Canceller{logger: logger}
}

// Request cancels any in-flight render, registers this one as current and
// renders page n of doc at scale into surf in the background.
// Out-of-range pages and non-positive scales are ignored.
func (c *Canceller) Request(ctx context.Context, doc Document, n int, scale float64, surf *Surface) <-chan Outcome {
	out := make(chan Outcome, 1)

	if n < 1 || n > doc.NumPages() || scale <= 0 {
		out <- Outcome{}
		close(out)
		return out
	}

	ctx, cancel := context.WithCancel(ctx)
	t := &ticket{cancel: cancel}

	c.mu.Lock()
	if c.current != nil {
		c.current.cancel()
	}
	c.current = t
	c.mu.Unlock()

	go func() {
		defer close(out)
		defer cancel()
		out <- c.run(ctx, t, doc, n, scale, surf)
	}()

	return out
}

// Render is the blocking form of Request.
func (c *Canceller) Render(ctx context.Context, doc Document, n int, scale float64, surf *Surface) (bool, error) {
	o := <-c.Request(ctx, doc, n, scale, surf)
	return o.Drawn, o.Err
}

// Cancel stops whatever render is current.
func (c *Canceller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		c.current.cancel()
		c.current = nil
	}
}

func (c *Canceller) isCurrent(t *ticket) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current == t
}

func (c *Canceller) run(ctx context.Context, t *ticket, doc Document, n int, scale float64, surf *Surface) Outcome {
	page, err := doc.Page(ctx, n)
	if err != nil {
		return c.fail(t, n, err)
	}

	// A newer request may have arrived while the page was loading.
	if !c.isCurrent(t) {
		return Outcome{}
	}

	vp := page.Viewport(scale)
	if err := vp.Check(); err != nil {
		return c.fail(t, n, err)
	}
	frame := image.NewRGBA(vp.Bounds())

	task := page.Render(ctx, frame, vp)
	if err := task.Wait(); err != nil {
		return c.fail(t, n, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != t {
		return Outcome{}
	}
	surf.commit(frame, vp, n)
	c.current = nil

	return Outcome{Drawn: true}
}

func (c *Canceller) fail(t *ticket, n int, err error) Outcome {
	if errors.Is(err, ErrRenderCancelled) || errors.Is(err, context.Canceled) {
		return Outcome{}
	}

	c.mu.Lock()
	superseded := c.current != t
	if !superseded {
		c.current = nil
	}
	c.mu.Unlock()

	if superseded {
		c.logger.Debug("superseded render failed", "page", n, "error", err)
		return Outcome{}
	}

	c.logger.Error("render failed", "page", n, "error", err)
	return Outcome{Err: fmt.Errorf("render page %d: %w", n, err)}
}
