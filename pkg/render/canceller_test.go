package render

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDoc struct {
	pages        int
	gates        map[int]chan struct{}
	renderErr    map[int]error
	ignoreCancel map[int]bool
}

func newFakeDoc(pages int) *fakeDoc {
	return &fakeDoc{
		pages:        pages,
		gates:        map[int]chan struct{}{},
		renderErr:    map[int]error{},
		ignoreCancel: map[int]bool{},
	}
}

func (d *fakeDoc) gate(n int) chan struct{} {
	ch := make(chan struct{})
	d.gates[n] = ch
	return ch
}

func (d *fakeDoc) NumPages() int { return d.pages }

func (d *fakeDoc) Page(ctx context.Context, n int) (Page, error) {
	return &fakePage{doc: d, n: n}, nil
}

type fakePage struct {
	doc *fakeDoc
	n   int
}

func (p *fakePage) Viewport(scale float64) Viewport {
	return Viewport{Width: int(10 * scale), Height: int(20 * scale), Scale: scale}
}

func (p *fakePage) Render(ctx context.Context, dst draw.Image, vp Viewport) *RenderTask {
	gate := p.doc.gates[p.n]
	ignore := p.doc.ignoreCancel[p.n]
	renderErr := p.doc.renderErr[p.n]

	return Go(ctx, func(ctx context.Context) error {
		if gate != nil {
			if ignore {
				<-gate
			} else {
				select {
				case <-gate:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
		if renderErr != nil {
			return renderErr
		}
		draw.Draw(dst, dst.Bounds(), image.NewUniform(pageColor(p.n)), image.Point{}, draw.Src)
		return nil
	})
}

func pageColor(n int) color.RGBA {
	return color.RGBA{R: uint8(n * 40), G: 10, B: 10, A: 255}
}

func wait(t *testing.T, ch <-chan Outcome) Outcome {
	t.Helper()
	select {
	case o := <-ch:
		return o
	case <-time.After(5 * time.Second):
		t.Fatal("render did not settle")
		return Outcome{}
	}
}

func TestLatestRequestWins(t *testing.T) {
	doc := newFakeDoc(5)
	gates := []chan struct{}{doc.gate(1), doc.gate(2), doc.gate(3)}

	c := NewCanceller(nil)
	surf := NewSurface()
	ctx := context.Background()

	r1 := c.Request(ctx, doc, 1, 1.0, surf)
	r2 := c.Request(ctx, doc, 2, 1.0, surf)
	r3 := c.Request(ctx, doc, 3, 1.5, surf)

	for i := len(gates) - 1; i >= 0; i-- {
		close(gates[i])
	}

	o1, o2, o3 := wait(t, r1), wait(t, r2), wait(t, r3)
	assert.Equal(t, Outcome{}, o1)
	assert.Equal(t, Outcome{}, o2)
	assert.Equal(t, Outcome{Drawn: true}, o3)

	frame := surf.Snapshot()
	assert.Equal(t, 3, frame.Page)
	assert.Equal(t, 1.5, frame.Scale)
	assert.Equal(t, uint64(1), frame.Version)
	assert.Equal(t, image.Rect(0, 0, 15, 30), frame.Image.Bounds())
	assert.Equal(t, pageColor(3), frame.Image.RGBAAt(7, 7))
}

func TestSupersededRenderNeverCommits(t *testing.T) {
	doc := newFakeDoc(3)
	slow := doc.gate(1)
	doc.ignoreCancel[1] = true

	c := NewCanceller(nil)
	surf := NewSurface()
	ctx := context.Background()

	r1 := c.Request(ctx, doc, 1, 1.0, surf)
	r2 := c.Request(ctx, doc, 2, 1.0, surf)

	assert.Equal(t, Outcome{Drawn: true}, wait(t, r2))

	// Page 1 finishes its pixels after being superseded.
	close(slow)
	assert.Equal(t, Outcome{}, wait(t, r1))

	frame := surf.Snapshot()
	assert.Equal(t, 2, frame.Page)
	assert.Equal(t, pageColor(2), frame.Image.RGBAAt(0, 0))
}

func TestOutOfRangeIsNoop(t *testing.T) {
	doc := newFakeDoc(2)
	inflight := doc.gate(1)

	c := NewCanceller(nil)
	surf := NewSurface()
	ctx := context.Background()

	r1 := c.Request(ctx, doc, 1, 1.0, surf)

	for _, n := range []int{0, 3, -1} {
		drawn, err := c.Render(ctx, doc, n, 1.0, surf)
		assert.False(t, drawn)
		assert.NoError(t, err)
	}
	drawn, err := c.Render(ctx, doc, 2, 0, surf)
	assert.False(t, drawn)
	assert.NoError(t, err)

	// The in-flight request was not disturbed.
	close(inflight)
	assert.Equal(t, Outcome{Drawn: true}, wait(t, r1))
	assert.Equal(t, 1, surf.Snapshot().Page)
}

func TestRenderFailureKeepsLastFrame(t *testing.T) {
	doc := newFakeDoc(2)
	boom := errors.New("corrupt page")
	doc.renderErr[2] = boom

	c := NewCanceller(nil)
	surf := NewSurface()
	ctx := context.Background()

	drawn, err := c.Render(ctx, doc, 1, 1.0, surf)
	require.NoError(t, err)
	assert.True(t, drawn)

	drawn, err = c.Render(ctx, doc, 2, 1.0, surf)
	assert.False(t, drawn)
	assert.ErrorIs(t, err, boom)

	frame := surf.Snapshot()
	assert.Equal(t, 1, frame.Page)
	assert.Equal(t, pageColor(1), frame.Image.RGBAAt(0, 0))
}

func TestCancelIsSilent(t *testing.T) {
	doc := newFakeDoc(1)
	doc.gate(1)

	c := NewCanceller(nil)
	surf := NewSurface()

	r := c.Request(context.Background(), doc, 1, 1.0, surf)
	c.Cancel()

	assert.Equal(t, Outcome{}, wait(t, r))
	assert.Equal(t, uint64(0), surf.Snapshot().Version)
}

func TestGoReportsCancellation(t *testing.T) {
	task := Go(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	task.Cancel()
	assert.ErrorIs(t, task.Wait(), ErrRenderCancelled)

	task = Go(context.Background(), func(ctx context.Context) error { return nil })
	assert.NoError(t, task.Wait())
}

func TestOversizeViewportIsRejected(t *testing.T) {
	doc := newFakeDoc(1)
	c := NewCanceller(nil)
	surf := NewSurface()
	ctx := context.Background()

	drawn, err := c.Render(ctx, doc, 1, 1.0, surf)
	require.NoError(t, err)
	require.True(t, drawn)

	for _, scale := range []float64{1e6, 1e8, 1e300} {
		drawn, err = c.Render(ctx, doc, 1, scale, surf)
		assert.False(t, drawn)
		assert.ErrorIs(t, err, ErrViewportTooLarge)
	}

	frame := surf.Snapshot()
	assert.Equal(t, 1.0, frame.Scale)
	assert.Equal(t, uint64(1), frame.Version)

	_, err = RenderPage(ctx, doc, 1, 1e8)
	assert.ErrorIs(t, err, ErrViewportTooLarge)
}

func TestViewportCheck(t *testing.T) {
	tests := []struct {
		name    string
		vp      Viewport
		wantErr bool
	}{
		{"normal page", Viewport{Width: 1240, Height: 1754, Scale: 1.5}, false},
		{"at the cap", Viewport{Width: 1 << 12, Height: 1 << 13, Scale: 1}, false},
		{"over the cap", Viewport{Width: 1 << 13, Height: 1 << 13, Scale: 1}, true},
		{"one huge side", Viewport{Width: 1, Height: 1 << 26, Scale: 1}, true},
		{"empty", Viewport{Width: 0, Height: 10, Scale: 1}, true},
		{"negative", Viewport{Width: -10, Height: 10, Scale: 1}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.vp.Check()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrViewportTooLarge)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
