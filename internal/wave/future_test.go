package wave

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"
)

func TestFutureAwaitTimeout(t *testing.T) {
	f := newFuture()
	if _, ok := f.AwaitTimeout(5 * time.Millisecond); ok {
		t.Fatal("unresolved future must time out")
	}
	if f.Ready() {
		t.Fatal("future must not be ready yet")
	}

	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	f.complete(img, nil)
	got, ok := f.AwaitTimeout(5 * time.Millisecond)
	if !ok || got != img {
		t.Fatal("resolved future must return its image immediately")
	}
	if !f.Ready() {
		t.Fatal("future must be ready after completion")
	}
}

func TestFutureCompletesOnce(t *testing.T) {
	f := newFuture()
	first := image.NewRGBA(image.Rect(0, 0, 1, 1))
	f.complete(first, nil)
	f.complete(nil, errors.New("late"))

	got, err := f.Await(context.Background())
	if err != nil || got != first {
		t.Fatal("second completion must be ignored")
	}
}

func TestFutureAwaitHonorsContext(t *testing.T) {
	f := newFuture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Await(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}
