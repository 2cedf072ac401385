package wave

import (
	"context"
	"errors"
	"image"
	"image/draw"
	"log/slog"
	"math"
)

// Options configures a Compositor. Zero values pick the defaults.
type Options struct {
	SegmentWidth   int     // pixels per segment (default 200)
	ChunkSeconds   float64 // macro-chunk duration (default 10)
	PreRollSeconds float64 // filter warm-up before each chunk (default 0.25)
	PrefetchAhead  int     // segments prefetched in the scroll direction (default 3)
	PrefetchBehind int     // segments prefetched opposite the scroll (default 1)
	ViewportWidth  int     // initial viewport width the cache is sized for (default 800)
	Logger         *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.SegmentWidth <= 0 {
		o.SegmentWidth = 200
	}
	if o.ChunkSeconds <= 0 {
		o.ChunkSeconds = 10
	}
	if o.PreRollSeconds < 0 {
		o.PreRollSeconds = 0
	} else if o.PreRollSeconds == 0 {
		o.PreRollSeconds = 0.25
	}
	if o.PrefetchAhead <= 0 {
		o.PrefetchAhead = 3
	}
	if o.PrefetchBehind <= 0 {
		o.PrefetchBehind = 1
	}
	if o.ViewportWidth <= 0 {
		o.ViewportWidth = 800
	}
	if o.Logger == nil {
		o.Logger = NopLogger()
	}
	return o
}

// Compositor resolves a viewport into cached-or-rendered segments and
// stitches the ready ones into a single image. One compositor exists per
// loaded audio file; collaborators arrive through the constructor.
type Compositor struct {
	src   SampleSource
	pool  *Pool
	cache *SegmentCache
	rend  *renderer
	opts  Options
	log   *slog.Logger
}

// NewCompositor wires a compositor to its sample source and worker pool.
func NewCompositor(src SampleSource, pool *Pool, opts Options) *Compositor {
	opts = opts.withDefaults()
	c := &Compositor{
		src:   src,
		pool:  pool,
		cache: NewSegmentCache(opts.SegmentWidth, opts.ViewportWidth, opts.Logger),
		opts:  opts,
		log:   opts.Logger,
	}
	c.rend = &renderer{
		src:            src,
		peaks:          newPeakTable(),
		segmentWidth:   opts.SegmentWidth,
		chunkSeconds:   opts.ChunkSeconds,
		preRollSeconds: opts.PreRollSeconds,
		log:            opts.Logger,
	}
	return c
}

// Cache exposes the segment cache for teardown and inspection.
func (c *Compositor) Cache() *SegmentCache { return c.cache }

// Duration returns the audio duration reported by the sample source.
func (c *Compositor) Duration() float64 { return c.src.Duration() }

// Close drops all cached segments. The worker pool is owned by the caller and
// closed separately.
func (c *Compositor) Close() { c.cache.Clear() }

// RenderViewport returns a future composite image for the given viewport. It
// never blocks: every visible segment's future is registered in the cache
// before this call returns (so concurrent overlapping requests share in-flight
// renders), prefetch is kicked off in the background, and the composite
// resolves once all visible segments have settled. A segment that failed to
// render leaves a background-filled gap rather than failing the composite.
func (c *Compositor) RenderViewport(vc ViewportContext) *Future {
	c.cache.UpdateViewport(vc)

	segDur := vc.SecondsPerSegment(c.opts.SegmentWidth)
	start := math.Max(vc.StartSeconds, 0)
	firstIdx := int(math.Floor(start / segDur))

	var keys []SegmentKey
	for i := firstIdx; float64(i)*segDur < vc.EndSeconds; i++ {
		keys = append(keys, SegmentKey{
			StartSeconds:    float64(i) * segDur,
			PixelsPerSecond: vc.PixelsPerSecond,
			HeightPixels:    vc.HeightPixels,
		})
	}

	futs := make([]*Future, len(keys))
	for i, key := range keys {
		futs[i] = c.resolve(key, PriorityVisible)
	}

	go c.prefetch(vc, firstIdx, firstIdx+len(keys)-1)

	out := newFuture()
	go c.composite(vc, keys, futs, out)
	return out
}

// resolve returns the shared future for key, enqueueing a render when no
// entry exists yet. Registration and the existence check happen under one
// cache lock: at most one render per key.
func (c *Compositor) resolve(key SegmentKey, pri Priority) *Future {
	fut, created := c.cache.GetOrPut(key, newFuture)
	if !created {
		return fut
	}
	c.pool.Submit(pri, func(ctx context.Context) {
		img, err := c.rend.render(ctx, key)
		if err != nil && !errors.Is(err, context.Canceled) {
			c.log.Warn("segment render failed", "start", key.StartSeconds, "error", err)
		}
		fut.complete(img, err)
	})
	return fut
}

// prefetch speculatively renders segments adjacent to the visible range.
// Scrolling forward favors segments past the visible end; backward inverts.
// Keys that already have a cache entry are skipped, so prefetch never
// duplicates a visible or in-flight render.
func (c *Compositor) prefetch(vc ViewportContext, firstIdx, lastIdx int) {
	type span struct {
		from, to int // inclusive segment index range
		pri      Priority
	}
	ahead, behind := c.opts.PrefetchAhead, c.opts.PrefetchBehind
	var spans []span
	switch vc.Scroll {
	case ScrollForward:
		spans = []span{
			{lastIdx + 1, lastIdx + ahead, PriorityPrefetchNear},
			{firstIdx - behind, firstIdx - 1, PriorityPrefetchFar},
		}
	case ScrollBackward:
		spans = []span{
			{firstIdx - ahead, firstIdx - 1, PriorityPrefetchNear},
			{lastIdx + 1, lastIdx + behind, PriorityPrefetchFar},
		}
	default:
		half := (ahead + behind) / 2
		spans = []span{
			{lastIdx + 1, lastIdx + half, PriorityPrefetchFar},
			{firstIdx - half, firstIdx - 1, PriorityPrefetchFar},
		}
	}

	segDur := vc.SecondsPerSegment(c.opts.SegmentWidth)
	total := c.src.Duration()
	for _, s := range spans {
		for i := s.from; i <= s.to; i++ {
			startSec := float64(i) * segDur
			if i < 0 || startSec >= total {
				continue
			}
			c.resolve(SegmentKey{
				StartSeconds:    startSec,
				PixelsPerSecond: vc.PixelsPerSecond,
				HeightPixels:    vc.HeightPixels,
			}, s.pri)
		}
	}
}

// composite waits for the visible futures and stitches them left to right
// into an image sized exactly to the viewport. The first segment may start
// before the viewport (keys sit on a fixed grid) and the last may extend past
// it; both are clipped by the destination bounds.
func (c *Compositor) composite(vc ViewportContext, keys []SegmentKey, futs []*Future, out *Future) {
	dst := image.NewRGBA(image.Rect(0, 0, vc.WidthPixels, vc.HeightPixels))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	for i, fut := range futs {
		img, err := fut.Await(context.Background())
		if err != nil || img == nil {
			continue // gap stays background-filled
		}
		x := int(math.Round((keys[i].StartSeconds - vc.StartSeconds) * float64(vc.PixelsPerSecond)))
		r := image.Rect(x, 0, x+c.opts.SegmentWidth, vc.HeightPixels)
		draw.Draw(dst, r, img, image.Point{}, draw.Src)
	}
	out.complete(dst, nil)
}
