package wave

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"math"
)

var (
	backgroundColor = color.RGBA{R: 14, G: 17, B: 23, A: 255}
	zeroLineColor   = color.RGBA{R: 58, G: 64, B: 78, A: 255}
	waveColor       = color.RGBA{R: 94, G: 205, B: 255, A: 255}
)

// ChunkRequest asks a sample source for the per-pixel amplitudes of one
// macro-chunk. The source covers [Chunk*ChunkSeconds, (Chunk+1)*ChunkSeconds)
// with exactly PixelWidth columns, reading PreRollSeconds of audio before the
// chunk to warm up its filtering so the first columns carry no edge artifacts.
type ChunkRequest struct {
	Chunk          int
	ChunkSeconds   float64
	PreRollSeconds float64
	PixelWidth     int
}

// SampleSource supplies decoded audio amplitudes and metadata. Implementations
// must be safe for concurrent use by render workers.
type SampleSource interface {
	ChunkAmplitudes(ctx context.Context, req ChunkRequest) ([]float64, error)
	Duration() float64
}

// renderer turns a cache-miss SegmentKey into a drawn image. It runs on pool
// workers and checks ctx between pixel columns so an abandoned viewport stops
// costing work quickly.
type renderer struct {
	src            SampleSource
	peaks          *peakTable
	segmentWidth   int
	chunkSeconds   float64
	preRollSeconds float64
	log            *slog.Logger
}

func (r *renderer) render(ctx context.Context, key SegmentKey) (*image.RGBA, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cols, peak, err := r.columns(ctx, key)
	if err != nil {
		return nil, err
	}

	img := image.NewRGBA(image.Rect(0, 0, r.segmentWidth, key.HeightPixels))
	draw.Draw(img, img.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	mid := key.HeightPixels / 2
	for x := range r.segmentWidth {
		img.SetRGBA(x, mid, zeroLineColor)
	}

	halfSpan := float64(key.HeightPixels)/2 - 1
	for x, amp := range cols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h := int(math.Round(amp / peak * halfSpan))
		if h > int(halfSpan) {
			h = int(halfSpan)
		}
		for y := mid - h; y <= mid+h; y++ {
			img.SetRGBA(x, y, waveColor)
		}
	}
	return img, nil
}

// columns gathers this segment's pixel columns from the macro-chunk(s) it
// overlaps, and resolves the per-zoom peak from the first chunk touched.
func (r *renderer) columns(ctx context.Context, key SegmentKey) ([]float64, float64, error) {
	pps := key.PixelsPerSecond
	chunkPx := int(math.Round(r.chunkSeconds * float64(pps)))
	startCol := int(math.Round(key.StartSeconds * float64(pps)))

	cols := make([]float64, r.segmentWidth)
	peak := 0.0
	for filled := 0; filled < r.segmentWidth; {
		col := startCol + filled
		chunk := col / chunkPx
		amps, err := r.src.ChunkAmplitudes(ctx, ChunkRequest{
			Chunk:          chunk,
			ChunkSeconds:   r.chunkSeconds,
			PreRollSeconds: r.preRollSeconds,
			PixelWidth:     chunkPx,
		})
		if err != nil {
			return nil, 0, fmt.Errorf("chunk %d amplitudes: %w", chunk, err)
		}
		if peak == 0 {
			peak = r.peaks.peakFor(pps, amps)
		}
		off := col - chunk*chunkPx
		if off >= len(amps) {
			break
		}
		n := copy(cols[filled:], amps[off:])
		if n == 0 {
			break
		}
		filled += n
	}
	if peak == 0 {
		peak = minPeak
	}
	return cols, peak, nil
}
