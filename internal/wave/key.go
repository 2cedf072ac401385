package wave

// SegmentKey identifies one rendered waveform slice. Two keys are equal only
// if all three fields match exactly; there is no tolerance on StartSeconds.
type SegmentKey struct {
	StartSeconds    float64
	PixelsPerSecond int
	HeightPixels    int
}

// ScrollDirection describes which way the viewport moved since the last frame.
type ScrollDirection int

const (
	ScrollBackward ScrollDirection = iota - 1
	ScrollStationary
	ScrollForward
)

func (d ScrollDirection) String() string {
	switch d {
	case ScrollBackward:
		return "backward"
	case ScrollForward:
		return "forward"
	default:
		return "stationary"
	}
}

// ViewportContext is the value snapshot of the visible window, rebuilt each
// frame. EndSeconds > StartSeconds and PixelsPerSecond > 0 always hold for
// contexts produced by viewport.Viewport.
type ViewportContext struct {
	StartSeconds    float64
	EndSeconds      float64
	WidthPixels     int
	HeightPixels    int
	PixelsPerSecond int
	Scroll          ScrollDirection
}

// SecondsPerSegment returns the duration one fixed-width segment spans at
// this context's zoom.
func (vc ViewportContext) SecondsPerSegment(segmentWidth int) float64 {
	return float64(segmentWidth) / float64(vc.PixelsPerSecond)
}
