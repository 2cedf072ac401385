// Package viewport tracks the visible time window of the waveform and smooths
// playback position updates for frame-rate rendering.
package viewport

import (
	"math"
	"sync"

	"github.com/ldayton/waveview/internal/wave"
)

// Zoom bounds and step. Zoom is expressed in pixels per second of audio.
const (
	MinPixelsPerSecond = 10
	MaxPixelsPerSecond = 1000
	zoomFactor         = 1.5
)

// Viewport tracks the visible time range, zoom, and pixel width.
//
// startSeconds may go negative internally: during playback near time zero the
// playhead is centered before the viewport start reaches zero. TimeRange and
// Context clamp, so renderers never see a negative start.
type Viewport struct {
	mu           sync.Mutex
	startSeconds float64
	pps          int
	widthPixels  int
	prevStart    float64 // start at the previous Context build, for scroll direction
}

// New creates a viewport of the given pixel width at the given zoom.
func New(widthPixels, pixelsPerSecond int) *Viewport {
	return &Viewport{
		widthPixels: widthPixels,
		pps:         clampZoom(pixelsPerSecond),
	}
}

func clampZoom(pps int) int {
	if pps < MinPixelsPerSecond {
		return MinPixelsPerSecond
	}
	if pps > MaxPixelsPerSecond {
		return MaxPixelsPerSecond
	}
	return pps
}

// SetWidth updates the viewport pixel width on resize.
func (v *Viewport) SetWidth(pixels int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if pixels > 0 {
		v.widthPixels = pixels
	}
}

// Width returns the viewport pixel width.
func (v *Viewport) Width() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.widthPixels
}

// PixelsPerSecond returns the current zoom.
func (v *Viewport) PixelsPerSecond() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.pps
}

// SetZoom sets the zoom, clamped to the configured range.
func (v *Viewport) SetZoom(pps int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pps = clampZoom(pps)
}

// ZoomIn multiplies the zoom by the zoom factor, clamped.
func (v *Viewport) ZoomIn() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pps = clampZoom(int(math.Round(float64(v.pps) * zoomFactor)))
}

// ZoomOut divides the zoom by the zoom factor, clamped.
func (v *Viewport) ZoomOut() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pps = clampZoom(int(math.Round(float64(v.pps) / zoomFactor)))
}

// FollowPlayback centers the playhead at half the viewport width. It is a
// no-op when not playing or when the total duration is unknown, so a paused
// viewport stays where the user put it. The resulting start may be negative
// when playback has not yet reached the viewport midpoint.
func (v *Viewport) FollowPlayback(positionSeconds, totalSeconds float64, playing bool) {
	if !playing || totalSeconds <= 0 {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.startSeconds = positionSeconds - v.widthSecondsLocked()/2
}

// OnSeek recenters the viewport around the seek target immediately,
// independent of playing state, so manual navigation responds while paused.
func (v *Viewport) OnSeek(positionSeconds float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.startSeconds = positionSeconds - v.widthSecondsLocked()/2
}

func (v *Viewport) widthSecondsLocked() float64 {
	return float64(v.widthPixels) / float64(v.pps)
}

// TimeRange returns the clamped, non-negative visible range used for
// rendering.
func (v *Viewport) TimeRange() (startSeconds, endSeconds float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	start := math.Max(0, v.startSeconds)
	return start, start + v.widthSecondsLocked()
}

// Start returns the raw (possibly negative) viewport start.
func (v *Viewport) Start() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.startSeconds
}

// Context snapshots the viewport into a render request of the given pixel
// height. Scroll direction is derived from the start movement since the last
// Context call.
func (v *Viewport) Context(heightPixels int) wave.ViewportContext {
	v.mu.Lock()
	defer v.mu.Unlock()

	scroll := wave.ScrollStationary
	switch {
	case v.startSeconds > v.prevStart:
		scroll = wave.ScrollForward
	case v.startSeconds < v.prevStart:
		scroll = wave.ScrollBackward
	}
	v.prevStart = v.startSeconds

	start := math.Max(0, v.startSeconds)
	return wave.ViewportContext{
		StartSeconds:    start,
		EndSeconds:      start + v.widthSecondsLocked(),
		WidthPixels:     v.widthPixels,
		HeightPixels:    heightPixels,
		PixelsPerSecond: v.pps,
		Scroll:          scroll,
	}
}
