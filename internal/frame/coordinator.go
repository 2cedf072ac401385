// Package frame produces one renderable frame per UI tick from the session
// state, viewport, position interpolator, and compositor.
package frame

import (
	"image"
	"log/slog"
	"time"

	"github.com/ldayton/waveview/internal/session"
	"github.com/ldayton/waveview/internal/viewport"
	"github.com/ldayton/waveview/internal/wave"
)

// paintTimeout bounds how long a tick waits for the composite. On timeout the
// frame shows a loading placeholder while the render keeps running; the next
// tick picks the result up from the cache.
const paintTimeout = 100 * time.Millisecond

// Frame is the result of one tick: either a composited waveform image or a
// placeholder state.
type Frame struct {
	State           session.State
	Image           *image.RGBA // nil for placeholder frames
	Rendering       bool        // composite missed the paint deadline this tick
	PositionSeconds float64
	DurationSeconds float64
}

// Coordinator gathers the per-tick inputs and drives the compositor. All
// collaborators are injected; the coordinator holds no global state.
type Coordinator struct {
	machine *session.Machine
	vp      *viewport.Viewport
	interp  *viewport.Interpolator
	comp    *wave.Compositor
	timeout time.Duration
	log     *slog.Logger
}

// NewCoordinator wires a coordinator to its collaborators.
func NewCoordinator(m *session.Machine, vp *viewport.Viewport, ip *viewport.Interpolator, comp *wave.Compositor, log *slog.Logger) *Coordinator {
	if log == nil {
		log = wave.NopLogger()
	}
	return &Coordinator{
		machine: m,
		vp:      vp,
		interp:  ip,
		comp:    comp,
		timeout: paintTimeout,
		log:     log,
	}
}

// Tick produces one frame for a waveform area of the given pixel dimensions.
// NO_AUDIO, LOADING, and ERROR states short-circuit to placeholder frames.
// When paused the position comes from the last real report, never from
// extrapolation.
func (c *Coordinator) Tick(widthPixels, heightPixels int) Frame {
	state := c.machine.State()
	switch state {
	case session.NoAudio, session.Loading, session.Errored:
		return Frame{State: state}
	}

	playing := state == session.Playing
	// InterpolatedPosition returns the frozen real position when not playing.
	pos := c.interp.InterpolatedPosition()
	total := c.comp.Duration()

	c.vp.SetWidth(widthPixels)
	c.vp.FollowPlayback(pos, total, playing)
	vc := c.vp.Context(heightPixels)

	img, ready := c.comp.RenderViewport(vc).AwaitTimeout(c.timeout)
	return Frame{
		State:           state,
		Image:           img,
		Rendering:       !ready,
		PositionSeconds: pos,
		DurationSeconds: total,
	}
}
