package viewport

import (
	"math"
	"testing"
	"time"
)

// fakeClock drives the interpolator's injected now func.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func testInterpolator() (*Interpolator, *fakeClock) {
	clk := &fakeClock{t: time.Unix(1000, 0)}
	ip := NewInterpolator(nil)
	ip.now = clk.now
	return ip, clk
}

func TestInterpolatorExtrapolatesWhilePlaying(t *testing.T) {
	ip, clk := testInterpolator()
	ip.SetPlaying(true)
	ip.UpdateRealPosition(10)

	clk.advance(300 * time.Millisecond)
	if got := ip.InterpolatedPosition(); math.Abs(got-10.3) > 1e-9 {
		t.Fatalf("position = %v, want 10.3", got)
	}

	// Repeated reads at the same instant must agree: reading never
	// re-anchors the estimate.
	for range 3 {
		if got := ip.InterpolatedPosition(); math.Abs(got-10.3) > 1e-9 {
			t.Fatalf("repeated read = %v, want 10.3", got)
		}
	}
}

func TestInterpolatorFrozenWhenPaused(t *testing.T) {
	ip, clk := testInterpolator()
	ip.UpdateRealPosition(10)

	clk.advance(2 * time.Second)
	if got := ip.InterpolatedPosition(); got != 10 {
		t.Fatalf("paused position = %v, want 10", got)
	}
}

func TestInterpolatorSnapsToRealUpdates(t *testing.T) {
	ip, clk := testInterpolator()
	ip.SetPlaying(true)
	ip.UpdateRealPosition(10)

	// Small drift: transport reports slightly behind the estimate.
	clk.advance(250 * time.Millisecond)
	ip.UpdateRealPosition(10.2)
	if got := ip.InterpolatedPosition(); math.Abs(got-10.2) > 1e-9 {
		t.Fatalf("position = %v, want snap to 10.2", got)
	}

	// Large drift (a stall or external seek) snaps the same way.
	clk.advance(250 * time.Millisecond)
	ip.UpdateRealPosition(25)
	if got := ip.InterpolatedPosition(); math.Abs(got-25) > 1e-9 {
		t.Fatalf("position = %v, want snap to 25", got)
	}
}

func TestInterpolatorPauseFreezesEstimate(t *testing.T) {
	ip, clk := testInterpolator()
	ip.SetPlaying(true)
	ip.UpdateRealPosition(10)

	clk.advance(500 * time.Millisecond)
	ip.SetPlaying(false)
	if got := ip.InterpolatedPosition(); math.Abs(got-10.5) > 1e-9 {
		t.Fatalf("frozen position = %v, want 10.5", got)
	}

	// Resuming re-anchors the clock so no phantom elapsed time leaks in.
	clk.advance(5 * time.Second)
	ip.SetPlaying(true)
	if got := ip.InterpolatedPosition(); math.Abs(got-10.5) > 1e-9 {
		t.Fatalf("position after resume = %v, want 10.5", got)
	}
	clk.advance(100 * time.Millisecond)
	if got := ip.InterpolatedPosition(); math.Abs(got-10.6) > 1e-9 {
		t.Fatalf("position = %v, want 10.6", got)
	}
}

func TestInterpolatorReset(t *testing.T) {
	ip, clk := testInterpolator()
	ip.SetPlaying(true)
	ip.UpdateRealPosition(10)

	clk.advance(400 * time.Millisecond)
	ip.Reset(30)
	if got := ip.InterpolatedPosition(); math.Abs(got-30) > 1e-9 {
		t.Fatalf("position after reset = %v, want 30", got)
	}
	clk.advance(100 * time.Millisecond)
	if got := ip.InterpolatedPosition(); math.Abs(got-30.1) > 1e-9 {
		t.Fatalf("position = %v, want 30.1", got)
	}
}
