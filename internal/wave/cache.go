package wave

import (
	"log/slog"
	"math"
	"sync"
)

// prefetchMargin is how many extra segment slots the cache holds beyond the
// visible count, split across both scroll directions.
const prefetchMargin = 4

type cacheEntry struct {
	key SegmentKey
	fut *Future
}

// SegmentCache is a fixed-capacity store of rendered segment futures.
//
// Storage is a circular buffer in insertion order: putting into a full cache
// overwrites the oldest entry. Eviction is strictly FIFO — access recency is
// irrelevant, which matches scrolling locality (the oldest insertion is the
// segment the viewport left behind longest ago).
//
// Entries rendered at one zoom or height are useless at another, so a
// viewport parameter change clears the whole cache rather than filtering
// per entry.
type SegmentCache struct {
	mu      sync.RWMutex
	entries []cacheEntry
	next    int // next insertion slot

	segmentWidth int
	pps          int // zoom the cached entries were rendered at
	height       int
	width        int // viewport width the capacity was sized for

	log *slog.Logger
}

// NewSegmentCache creates a cache sized for the given viewport width.
func NewSegmentCache(segmentWidth, viewportWidth int, log *slog.Logger) *SegmentCache {
	if log == nil {
		log = slog.New(nopHandler{})
	}
	c := &SegmentCache{segmentWidth: segmentWidth, width: viewportWidth, log: log}
	c.entries = make([]cacheEntry, capacityFor(viewportWidth, segmentWidth))
	return c
}

func capacityFor(viewportWidth, segmentWidth int) int {
	n := int(math.Ceil(float64(viewportWidth)/float64(segmentWidth))) + prefetchMargin
	if n < prefetchMargin+1 {
		n = prefetchMargin + 1
	}
	return n
}

// Capacity returns the number of segment slots.
func (c *SegmentCache) Capacity() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Get returns the future registered for key, if any.
func (c *SegmentCache) Get(key SegmentKey) (*Future, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.entries {
		if c.entries[i].fut != nil && c.entries[i].key == key {
			return c.entries[i].fut, true
		}
	}
	return nil, false
}

// Put registers fut under key, evicting the oldest entry if the cache is full.
func (c *SegmentCache) Put(key SegmentKey, fut *Future) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.insert(key, fut)
}

// GetOrPut returns the existing future for key, or registers the one produced
// by create. The second return is true when create was used. The whole
// operation holds the write lock, so two concurrent callers for the same key
// always end up sharing one future.
func (c *SegmentCache) GetOrPut(key SegmentKey, create func() *Future) (*Future, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.entries {
		if c.entries[i].fut != nil && c.entries[i].key == key {
			return c.entries[i].fut, false
		}
	}
	fut := create()
	c.insert(key, fut)
	return fut, true
}

// insert writes into the next circular slot. Caller holds the write lock.
func (c *SegmentCache) insert(key SegmentKey, fut *Future) {
	c.entries[c.next] = cacheEntry{key: key, fut: fut}
	c.next = (c.next + 1) % len(c.entries)
}

// Clear drops every entry.
func (c *SegmentCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

func (c *SegmentCache) clearLocked() {
	for i := range c.entries {
		c.entries[i] = cacheEntry{}
	}
	c.next = 0
}

// UpdateViewport reconciles the cache with a new viewport. A zoom or height
// change invalidates everything. A width-only change resizes the backing
// buffer, keeping entries whose time range still falls inside the new
// visible-plus-prefetch window.
func (c *SegmentCache) UpdateViewport(vc ViewportContext) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if vc.PixelsPerSecond != c.pps || vc.HeightPixels != c.height {
		if c.pps != 0 || c.height != 0 {
			c.log.Debug("segment cache invalidated",
				"pps", vc.PixelsPerSecond, "height", vc.HeightPixels)
		}
		c.clearLocked()
		c.pps = vc.PixelsPerSecond
		c.height = vc.HeightPixels
	}

	if vc.WidthPixels == c.width {
		return
	}
	c.resizeLocked(vc)
	c.width = vc.WidthPixels
}

// resizeLocked rebuilds the circular buffer at the capacity for the new
// width, replaying surviving entries oldest-first so FIFO order is kept.
func (c *SegmentCache) resizeLocked(vc ViewportContext) {
	old := c.entries
	oldNext := c.next
	c.entries = make([]cacheEntry, capacityFor(vc.WidthPixels, c.segmentWidth))
	c.next = 0

	segDur := vc.SecondsPerSegment(c.segmentWidth)
	half := float64(prefetchMargin) / 2 * segDur
	lo := vc.StartSeconds - half
	hi := vc.EndSeconds + half

	for i := range old {
		e := old[(oldNext+i)%len(old)]
		if e.fut == nil {
			continue
		}
		if e.key.StartSeconds+segDur <= lo || e.key.StartSeconds >= hi {
			continue
		}
		c.insert(e.key, e.fut)
	}
}
