package wave

import (
	"math"
	"sync"
)

// minPeak floors the vertical scale reference so that near-silent audio does
// not blow noise up to full height (and guards the divide).
const minPeak = 1e-4

// peakTable caches the vertical scale reference per zoom level. The peak is
// computed once from the first macro-chunk touched at a zoom and reused for
// every segment at that zoom, so amplitude stays visually consistent while
// scrolling. First writer wins: a later chunk must not rescale segments
// already on screen.
type peakTable struct {
	mu     sync.Mutex
	byZoom map[int]float64
}

func newPeakTable() *peakTable {
	return &peakTable{byZoom: make(map[int]float64)}
}

// peakFor returns the cached peak for the zoom, computing and recording it
// from amps on first use.
func (t *peakTable) peakFor(pps int, amps []float64) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.byZoom[pps]; ok {
		return p
	}
	p := pairMinPeak(amps)
	t.byZoom[pps] = p
	return p
}

// pairMinPeak is the max over consecutive-pixel-pair minimums. A single-pixel
// spike contributes only its neighbor's (smaller) value, so isolated noise is
// suppressed while genuine sustained peaks survive.
func pairMinPeak(amps []float64) float64 {
	peak := minPeak
	for i := 0; i+1 < len(amps); i++ {
		if v := math.Min(amps[i], amps[i+1]); v > peak {
			peak = v
		}
	}
	return peak
}
