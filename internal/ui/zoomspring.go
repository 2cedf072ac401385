package ui

import (
	"math"

	"github.com/charmbracelet/harmonica"
)

// zoomSpring eases the viewport zoom toward its target so zoom steps animate
// instead of jumping. The segment cache clears on every intermediate zoom
// anyway, so the animation is kept short and snappy.
type zoomSpring struct {
	spring harmonica.Spring
	pos    float64
	vel    float64
	target float64
}

func newZoomSpring(fps int, initial float64) *zoomSpring {
	return &zoomSpring{
		spring: harmonica.NewSpring(harmonica.FPS(fps), 10.0, 1.0),
		pos:    initial,
		target: initial,
	}
}

func (z *zoomSpring) retarget(t float64) {
	z.target = t
}

// step advances the spring one frame and returns the eased zoom value,
// snapping once the spring has effectively settled.
func (z *zoomSpring) step() float64 {
	if z.settled() {
		z.pos = z.target
		z.vel = 0
		return z.pos
	}
	z.pos, z.vel = z.spring.Update(z.pos, z.vel, z.target)
	return z.pos
}

func (z *zoomSpring) settled() bool {
	return math.Abs(z.pos-z.target) < 0.5 && math.Abs(z.vel) < 0.5
}
