// Package audio supplies decoded samples: format decoders, the per-pixel
// amplitude source feeding the waveform renderer, and the playback transport.
package audio

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/ldayton/waveview/internal/wave"
)

// highpassCoeff is the one-pole high-pass coefficient applied before
// amplitude reduction. It strips DC offset so a biased recording doesn't
// render as a solid band; the chunk pre-roll warms the filter up so the first
// pixel columns carry no edge artifact.
const highpassCoeff = 0.995

// Source computes per-pixel-column amplitudes from a decoder, one macro-chunk
// at a time. The decoder's seek position is shared state, so all chunk reads
// serialize on one mutex; render workers calling concurrently simply queue.
type Source struct {
	mu       sync.Mutex
	dec      Decoder
	rate     int
	channels int
	duration float64
	log      *slog.Logger
}

// NewSource wraps a decoder. The decoder must be dedicated to this source —
// the playback transport needs its own instance of the same file.
func NewSource(dec Decoder, log *slog.Logger) *Source {
	if log == nil {
		log = wave.NopLogger()
	}
	rate := dec.SampleRate()
	channels := dec.Channels()
	frames := dec.Length() / int64(channels*2)
	return &Source{
		dec:      dec,
		rate:     rate,
		channels: channels,
		duration: float64(frames) / float64(rate),
		log:      log,
	}
}

// Duration returns the audio duration in seconds.
func (s *Source) Duration() float64 { return s.duration }

// SampleRate returns the decoded sample rate.
func (s *Source) SampleRate() int { return s.rate }

// Close closes the underlying decoder.
func (s *Source) Close() error { return s.dec.Close() }

// ChunkAmplitudes returns req.PixelWidth amplitude values in [0,1] covering
// the requested macro-chunk. Columns past the end of the audio are zero.
func (s *Source) ChunkAmplitudes(ctx context.Context, req wave.ChunkRequest) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	chunkStart := float64(req.Chunk) * req.ChunkSeconds
	readStart := math.Max(0, chunkStart-req.PreRollSeconds)

	mono, err := s.readMono(readStart, chunkStart-readStart+req.ChunkSeconds)
	if err != nil {
		return nil, err
	}

	// High-pass over the whole read, pre-roll included; the pre-roll frames
	// only warm the filter and are excluded from the columns below.
	filtered := make([]float64, len(mono))
	var prevIn, prevOut float64
	for i, x := range mono {
		prevOut = highpassCoeff * (prevOut + x - prevIn)
		prevIn = x
		filtered[i] = prevOut
	}

	skip := int(math.Round((chunkStart - readStart) * float64(s.rate)))
	chunkFrames := filtered[min(skip, len(filtered)):]

	amps := make([]float64, req.PixelWidth)
	framesPerCol := req.ChunkSeconds * float64(s.rate) / float64(req.PixelWidth)
	for c := range req.PixelWidth {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lo := int(float64(c) * framesPerCol)
		hi := int(float64(c+1) * framesPerCol)
		if lo >= len(chunkFrames) {
			break
		}
		if hi > len(chunkFrames) {
			hi = len(chunkFrames)
		}
		var cmin, cmax float64
		for _, v := range chunkFrames[lo:hi] {
			if v < cmin {
				cmin = v
			}
			if v > cmax {
				cmax = v
			}
		}
		amps[c] = math.Min(1, math.Max(cmax, -cmin))
	}
	return amps, nil
}

// readMono seeks to startSeconds and reads up to seconds of audio, mixed down
// to mono float64 in [-1,1]. A short read near EOF is not an error.
func (s *Source) readMono(startSeconds, seconds float64) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frameBytes := int64(s.channels * 2)
	startFrame := int64(startSeconds * float64(s.rate))
	totalFrames := s.dec.Length() / frameBytes
	if startFrame >= totalFrames {
		return nil, nil
	}
	nFrames := int64(seconds * float64(s.rate))
	if startFrame+nFrames > totalFrames {
		nFrames = totalFrames - startFrame
	}

	if _, err := s.dec.Seek(startFrame*frameBytes, io.SeekStart); err != nil {
		return nil, err
	}

	buf := make([]byte, nFrames*frameBytes)
	n, err := io.ReadFull(s.dec, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	buf = buf[:n-n%int(frameBytes)]

	mono := make([]float64, len(buf)/int(frameBytes))
	for i := range mono {
		var sum float64
		for ch := range s.channels {
			off := i*int(frameBytes) + ch*2
			sum += float64(int16(uint16(buf[off]) | uint16(buf[off+1])<<8))
		}
		mono[i] = sum / float64(s.channels) / 32768.0
	}
	return mono, nil
}
