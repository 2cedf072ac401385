package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"testing"

	"github.com/ldayton/waveview/internal/wave"
)

// memDecoder serves 16-bit LE PCM from memory.
type memDecoder struct {
	*bytes.Reader
	rate     int
	channels int
}

func (d *memDecoder) Close() error    { return nil }
func (d *memDecoder) Length() int64   { return d.Size() }
func (d *memDecoder) SampleRate() int { return d.rate }
func (d *memDecoder) Channels() int   { return d.channels }

func pcm16(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

// nyquistTone alternates +v/-v every sample. The high-pass filter leaves a
// full-rate alternation essentially untouched.
func nyquistTone(frames int, v int16) []int16 {
	out := make([]int16, frames)
	for i := range out {
		if i%2 == 0 {
			out[i] = v
		} else {
			out[i] = -v
		}
	}
	return out
}

func monoSource(t *testing.T, samples []int16, rate int) *Source {
	t.Helper()
	dec := &memDecoder{Reader: bytes.NewReader(pcm16(samples)), rate: rate, channels: 1}
	return NewSource(dec, nil)
}

func chunkReq(chunk, width int) wave.ChunkRequest {
	return wave.ChunkRequest{Chunk: chunk, ChunkSeconds: 1, PreRollSeconds: 0.25, PixelWidth: width}
}

func TestSourceDuration(t *testing.T) {
	src := monoSource(t, make([]int16, 16000), 8000)
	if got := src.Duration(); got != 2 {
		t.Fatalf("duration = %v, want 2", got)
	}
}

func TestChunkAmplitudesTone(t *testing.T) {
	src := monoSource(t, nyquistTone(16000, 16384), 8000) // 0.5 amplitude, 2s

	amps, err := src.ChunkAmplitudes(context.Background(), chunkReq(0, 100))
	if err != nil {
		t.Fatal(err)
	}
	if len(amps) != 100 {
		t.Fatalf("got %d columns, want 100", len(amps))
	}
	for i, a := range amps {
		if math.Abs(a-0.5) > 0.05 {
			t.Fatalf("column %d amplitude = %v, want ~0.5", i, a)
		}
	}
}

func TestChunkAmplitudesRemovesDCOffset(t *testing.T) {
	flat := make([]int16, 16000)
	for i := range flat {
		flat[i] = 16384 // constant +0.5: pure DC
	}
	src := monoSource(t, flat, 8000)

	// Chunk 1 has a full pre-roll behind it, so the filter is warm and the
	// offset is gone from every column.
	amps, err := src.ChunkAmplitudes(context.Background(), chunkReq(1, 100))
	if err != nil {
		t.Fatal(err)
	}
	for i, a := range amps {
		if a > 0.01 {
			t.Fatalf("column %d amplitude = %v; DC offset should filter out", i, a)
		}
	}
}

func TestChunkAmplitudesZeroPastEndOfAudio(t *testing.T) {
	src := monoSource(t, nyquistTone(12000, 16384), 8000) // 1.5s

	// Chunk 1 covers [1s, 2s) but audio ends at 1.5s.
	amps, err := src.ChunkAmplitudes(context.Background(), chunkReq(1, 100))
	if err != nil {
		t.Fatal(err)
	}
	if amps[10] < 0.4 {
		t.Fatalf("column 10 amplitude = %v, want tone before EOF", amps[10])
	}
	for _, i := range []int{60, 99} {
		if amps[i] != 0 {
			t.Fatalf("column %d amplitude = %v, want 0 past EOF", i, amps[i])
		}
	}
}

func TestChunkAmplitudesStereoMixdown(t *testing.T) {
	// Left and right in perfect antiphase cancel to silence in mono.
	frames := 16000
	samples := make([]int16, frames*2)
	for i := range frames {
		v := int16(16384)
		if i%2 == 1 {
			v = -16384
		}
		samples[i*2] = v
		samples[i*2+1] = -v
	}
	dec := &memDecoder{Reader: bytes.NewReader(pcm16(samples)), rate: 8000, channels: 2}
	src := NewSource(dec, nil)

	if got := src.Duration(); got != 2 {
		t.Fatalf("stereo duration = %v, want 2", got)
	}
	amps, err := src.ChunkAmplitudes(context.Background(), chunkReq(0, 100))
	if err != nil {
		t.Fatal(err)
	}
	for i, a := range amps {
		if a != 0 {
			t.Fatalf("column %d amplitude = %v, want exact cancellation", i, a)
		}
	}
}

func TestChunkAmplitudesCancelled(t *testing.T) {
	src := monoSource(t, make([]int16, 16000), 8000)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.ChunkAmplitudes(ctx, chunkReq(0, 100)); err == nil {
		t.Fatal("cancelled context must abort the read")
	}
}
