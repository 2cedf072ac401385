package wave

import (
	"context"
	"fmt"
	"image"
	"sync"
	"testing"
	"time"
)

// stubSource returns a flat amplitude for every pixel column and counts
// chunk requests.
type stubSource struct {
	duration   float64
	amp        float64
	failChunks map[int]bool

	mu    sync.Mutex
	calls int
}

func (s *stubSource) Duration() float64 { return s.duration }

func (s *stubSource) ChunkAmplitudes(ctx context.Context, req ChunkRequest) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.failChunks[req.Chunk] {
		return nil, fmt.Errorf("chunk %d unavailable", req.Chunk)
	}
	amps := make([]float64, req.PixelWidth)
	for i := range amps {
		amps[i] = s.amp
	}
	return amps, nil
}

func (s *stubSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// testCompositor uses 1s macro-chunks so segment i at 200 px/s maps to
// chunk i exactly.
func testCompositor(t *testing.T, src *stubSource) (*Compositor, *Pool) {
	t.Helper()
	pool := NewPool(2)
	t.Cleanup(pool.Close)
	comp := NewCompositor(src, pool, Options{
		ChunkSeconds:  1,
		ViewportWidth: 1000,
	})
	return comp, pool
}

func viewport05() ViewportContext {
	return ViewportContext{
		StartSeconds:    0,
		EndSeconds:      5,
		WidthPixels:     1000,
		HeightPixels:    100,
		PixelsPerSecond: 200,
	}
}

func awaitComposite(t *testing.T, fut *Future) *image.RGBA {
	t.Helper()
	img, ok := fut.AwaitTimeout(5 * time.Second)
	if !ok {
		t.Fatal("composite did not resolve")
	}
	return img
}

func TestCompositeSizedToViewport(t *testing.T) {
	src := &stubSource{duration: 60, amp: 0.5}
	comp, _ := testCompositor(t, src)

	img := awaitComposite(t, comp.RenderViewport(viewport05()))
	if got := img.Bounds(); got.Dx() != 1000 || got.Dy() != 100 {
		t.Fatalf("composite bounds = %v, want 1000x100", got)
	}

	// Flat amplitude fills every column; probe one pixel per segment.
	for i := range 5 {
		if got := img.RGBAAt(i*200+100, 25); got != waveColor {
			t.Fatalf("segment %d not drawn: pixel = %v", i, got)
		}
	}
	for i := range 5 {
		key := SegmentKey{StartSeconds: float64(i), PixelsPerSecond: 200, HeightPixels: 100}
		if _, ok := comp.Cache().Get(key); !ok {
			t.Fatalf("segment %d missing from cache after render", i)
		}
	}
}

func TestCompositeClipsTrailingSegment(t *testing.T) {
	src := &stubSource{duration: 60, amp: 0.5}
	comp, _ := testCompositor(t, src)

	vc := viewport05()
	vc.EndSeconds = 4.5
	vc.WidthPixels = 900 // not a multiple of the 200px segment width
	img := awaitComposite(t, comp.RenderViewport(vc))
	if got := img.Bounds().Dx(); got != 900 {
		t.Fatalf("composite width = %d, want 900", got)
	}
	if got := img.RGBAAt(899, 50); got != waveColor {
		t.Fatalf("clipped trailing segment not drawn: pixel = %v", got)
	}
}

func TestIdenticalViewportServedFromCache(t *testing.T) {
	// Duration matches the viewport so no prefetch keys are in range and
	// the chunk call count is deterministic.
	src := &stubSource{duration: 5, amp: 0.5}
	comp, _ := testCompositor(t, src)

	awaitComposite(t, comp.RenderViewport(viewport05()))
	before := src.callCount()
	if before != 5 {
		t.Fatalf("first render made %d chunk calls, want 5", before)
	}

	awaitComposite(t, comp.RenderViewport(viewport05()))
	if after := src.callCount(); after != before {
		t.Fatalf("re-rendering an identical viewport made %d new chunk calls", after-before)
	}
}

func TestConcurrentViewportsShareRenders(t *testing.T) {
	src := &stubSource{duration: 5, amp: 0.5}
	comp, _ := testCompositor(t, src)

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			awaitComposite(t, comp.RenderViewport(viewport05()))
		}()
	}
	wg.Wait()

	if got := src.callCount(); got != 5 {
		t.Fatalf("%d chunk calls for 5 distinct segments; concurrent requests must share renders", got)
	}
}

func TestFailedSegmentLeavesGap(t *testing.T) {
	src := &stubSource{duration: 60, amp: 0.5, failChunks: map[int]bool{2: true}}
	comp, _ := testCompositor(t, src)

	img := awaitComposite(t, comp.RenderViewport(viewport05()))
	if got := img.RGBAAt(500, 50); got != backgroundColor {
		t.Fatalf("failed segment should be a background gap, pixel = %v", got)
	}
	if got := img.RGBAAt(100, 50); got != waveColor {
		t.Fatalf("healthy segment should still draw, pixel = %v", got)
	}
}

func TestPrefetchForward(t *testing.T) {
	src := &stubSource{duration: 60, amp: 0.5}
	comp, _ := testCompositor(t, src)

	vc := viewport05()
	vc.Scroll = ScrollForward
	comp.prefetch(vc, 0, 4)

	for _, idx := range []int{5, 6, 7} {
		key := SegmentKey{StartSeconds: float64(idx), PixelsPerSecond: 200, HeightPixels: 100}
		if _, ok := comp.Cache().Get(key); !ok {
			t.Fatalf("forward scroll should prefetch segment %d", idx)
		}
	}
}

func TestPrefetchBackward(t *testing.T) {
	src := &stubSource{duration: 60, amp: 0.5}
	comp, _ := testCompositor(t, src)

	vc := viewport05()
	vc.StartSeconds, vc.EndSeconds = 10, 15
	vc.Scroll = ScrollBackward
	comp.prefetch(vc, 10, 14)

	for _, idx := range []int{7, 8, 9, 15} {
		key := SegmentKey{StartSeconds: float64(idx), PixelsPerSecond: 200, HeightPixels: 100}
		if _, ok := comp.Cache().Get(key); !ok {
			t.Fatalf("backward scroll should prefetch segment %d", idx)
		}
	}
}

func TestPrefetchSkipsPastEndOfAudio(t *testing.T) {
	src := &stubSource{duration: 5, amp: 0.5}
	comp, _ := testCompositor(t, src)

	vc := viewport05()
	vc.Scroll = ScrollForward
	comp.prefetch(vc, 0, 4)

	key := SegmentKey{StartSeconds: 5, PixelsPerSecond: 200, HeightPixels: 100}
	if _, ok := comp.Cache().Get(key); ok {
		t.Fatal("prefetch must not render past the end of the audio")
	}
}

func TestRenderCancelled(t *testing.T) {
	src := &stubSource{duration: 60, amp: 0.5}
	comp, _ := testCompositor(t, src)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	key := SegmentKey{StartSeconds: 0, PixelsPerSecond: 200, HeightPixels: 100}
	img, err := comp.rend.render(ctx, key)
	if err == nil || img != nil {
		t.Fatal("cancelled render must produce no image")
	}
}
