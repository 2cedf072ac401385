package viewport

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/ldayton/waveview/internal/wave"
)

// driftThreshold is the discrepancy between the interpolated estimate and an
// incoming real position beyond which the update is considered a jump rather
// than clock jitter.
const driftThreshold = 0.1 // seconds

// Interpolator smooths sparse, jittery position reports from the transport
// into a continuous estimate the renderer can read at frame rate.
//
// Every real update snaps the estimate to the reported value, whether the
// drift was small or large; smoothness between updates comes from
// extrapolation against the wall clock, not from blending across updates.
// Updates arrive from the transport's monitor goroutine while reads come from
// the UI tick, so a single mutex covers all state.
type Interpolator struct {
	mu           sync.Mutex
	realPos      float64
	interpolated float64
	lastUpdate   time.Time
	playing      bool
	rate         float64

	now func() time.Time // injectable clock
	log *slog.Logger
}

// NewInterpolator creates an interpolator at position zero, not playing.
func NewInterpolator(log *slog.Logger) *Interpolator {
	if log == nil {
		log = wave.NopLogger()
	}
	return &Interpolator{rate: 1.0, now: time.Now, log: log}
}

// UpdateRealPosition records an authoritative position report and re-anchors
// extrapolation at it.
func (ip *Interpolator) UpdateRealPosition(p float64) {
	ip.mu.Lock()
	defer ip.mu.Unlock()

	if drift := math.Abs(ip.estimateLocked() - p); drift > driftThreshold {
		ip.log.Debug("playback position drift", "drift", drift, "position", p)
	}
	ip.realPos = p
	ip.interpolated = p
	ip.lastUpdate = ip.now()
}

// InterpolatedPosition returns the current position estimate. Safe to call at
// frame rate: it never mutates the reference timestamp, so repeated reads do
// not accumulate drift.
func (ip *Interpolator) InterpolatedPosition() float64 {
	ip.mu.Lock()
	defer ip.mu.Unlock()
	return ip.estimateLocked()
}

func (ip *Interpolator) estimateLocked() float64 {
	if !ip.playing {
		return ip.realPos
	}
	elapsed := ip.now().Sub(ip.lastUpdate).Seconds()
	return ip.realPos + elapsed*ip.rate
}

// SetPlaying flips the playing flag. Starting resets the time reference and
// re-anchors at the last real position; stopping freezes the current estimate
// as the new real position.
func (ip *Interpolator) SetPlaying(playing bool) {
	ip.mu.Lock()
	defer ip.mu.Unlock()

	if playing && !ip.playing {
		ip.lastUpdate = ip.now()
		ip.interpolated = ip.realPos
	} else if !playing && ip.playing {
		ip.realPos = ip.estimateLocked()
		ip.interpolated = ip.realPos
	}
	ip.playing = playing
}

// Playing reports the playing flag.
func (ip *Interpolator) Playing() bool {
	ip.mu.Lock()
	defer ip.mu.Unlock()
	return ip.playing
}

// Reset jumps to a new position with no interpolation across the
// discontinuity. Used on explicit seeks.
func (ip *Interpolator) Reset(positionSeconds float64) {
	ip.mu.Lock()
	defer ip.mu.Unlock()
	ip.realPos = positionSeconds
	ip.interpolated = positionSeconds
	ip.lastUpdate = ip.now()
}
