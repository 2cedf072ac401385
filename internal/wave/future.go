package wave

import (
	"context"
	"image"
	"sync"
	"time"
)

// Future is the eventual result of one render task. It completes exactly
// once; a cancelled or failed render completes with a nil image. Waiting with
// a timeout never cancels the underlying work — the result stays available
// for later lookups.
type Future struct {
	done chan struct{}
	once sync.Once
	img  *image.RGBA
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// complete resolves the future. Calls after the first are ignored.
func (f *Future) complete(img *image.RGBA, err error) {
	f.once.Do(func() {
		f.img = img
		f.err = err
		close(f.done)
	})
}

// Done returns a channel closed when the result is available.
func (f *Future) Done() <-chan struct{} { return f.done }

// Ready reports whether the result is already available.
func (f *Future) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Await blocks until the result is available or ctx is done.
func (f *Future) Await(ctx context.Context) (*image.RGBA, error) {
	select {
	case <-f.done:
		return f.img, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// AwaitTimeout waits up to d for the result. The second return is false when
// the deadline passed first; the render keeps running in the background.
func (f *Future) AwaitTimeout(d time.Duration) (*image.RGBA, bool) {
	select {
	case <-f.done:
		return f.img, true
	case <-time.After(d):
		return nil, false
	}
}
