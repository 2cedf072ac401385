package audio

import (
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// positionInterval is how often the monitor goroutine reports the playback
// position to the registered listener.
const positionInterval = 250 * time.Millisecond

// countingReader wraps the decoder stream and tracks bytes handed to the
// audio device, which is the authoritative playback position.
type countingReader struct {
	reader io.ReadSeeker
	pos    int64
	mu     sync.Mutex
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.reader.Read(p)
	cr.mu.Lock()
	cr.pos += int64(n)
	cr.mu.Unlock()
	return n, err
}

func (cr *countingReader) Pos() int64 {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	return cr.pos
}

func (cr *countingReader) SetPos(pos int64) {
	cr.mu.Lock()
	cr.pos = pos
	cr.mu.Unlock()
}

// Oto allows one context per process, so it is created once for the first
// transport's format.
var (
	globalOtoCtx *oto.Context
	otoOnce      sync.Once
	otoInitErr   error
)

func initOto(sampleRate, channels int) (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channels,
			Format:       oto.FormatSignedInt16LE,
		}
		var ready chan struct{}
		globalOtoCtx, ready, otoInitErr = oto.NewContext(op)
		if otoInitErr == nil {
			<-ready
		}
	})
	return globalOtoCtx, otoInitErr
}

// Transport plays a decoded stream and reports position. It owns its decoder;
// the waveform sample source uses a separate decoder instance so playback and
// rendering never fight over one seek position.
//
// The position listener is invoked from the monitor goroutine — neither the
// UI loop nor a render worker — every positionInterval while the transport is
// open.
type Transport struct {
	dec         Decoder
	counter     *countingReader
	otoCtx      *oto.Context
	otoPlayer   *oto.Player
	duration    time.Duration
	bytesPerSec int
	onPosition  func(seconds float64)

	mu     sync.Mutex
	paused bool
	closed bool
	done   chan struct{}
}

// NewTransport prepares playback for the given decoder, initially paused.
// onPosition may be nil.
func NewTransport(dec Decoder, onPosition func(float64)) (*Transport, error) {
	ctx, err := initOto(dec.SampleRate(), dec.Channels())
	if err != nil {
		return nil, err
	}

	bytesPerSec := dec.SampleRate() * dec.Channels() * 2
	cr := &countingReader{reader: dec}
	t := &Transport{
		dec:         dec,
		counter:     cr,
		otoCtx:      ctx,
		duration:    time.Duration(float64(dec.Length()) / float64(bytesPerSec) * float64(time.Second)),
		bytesPerSec: bytesPerSec,
		onPosition:  onPosition,
		paused:      true,
		done:        make(chan struct{}),
	}
	t.otoPlayer = ctx.NewPlayer(cr)

	go t.monitor()
	return t, nil
}

// monitor reports position and watches for end of playback.
func (t *Transport) monitor() {
	for {
		t.mu.Lock()
		if t.closed {
			t.mu.Unlock()
			return
		}
		pos := t.counter.Pos()
		paused := t.paused
		t.mu.Unlock()

		if t.onPosition != nil {
			t.onPosition(float64(pos) / float64(t.bytesPerSec))
		}
		if !paused && pos >= t.dec.Length() {
			close(t.done)
			return
		}
		time.Sleep(positionInterval)
	}
}

// Done returns a channel that closes when playback reaches the end.
func (t *Transport) Done() <-chan struct{} { return t.done }

// Play starts or resumes playback.
func (t *Transport) Play() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.otoPlayer.Play()
	t.paused = false
}

// Pause suspends playback.
func (t *Transport) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.otoPlayer.Pause()
	t.paused = true
}

// Paused returns whether playback is paused.
func (t *Transport) Paused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paused
}

// Position returns the current playback position.
func (t *Transport) Position() time.Duration {
	secs := float64(t.counter.Pos()) / float64(t.bytesPerSec)
	return time.Duration(secs * float64(time.Second))
}

// Duration returns the total track duration.
func (t *Transport) Duration() time.Duration { return t.duration }

// SeekBy moves playback by delta from the current position.
func (t *Transport) SeekBy(delta time.Duration) {
	t.SeekTo(t.Position() + delta)
}

// SeekTo moves playback to an absolute position, clamped and frame-aligned.
func (t *Transport) SeekTo(pos time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}

	newPos := int64(pos.Seconds() * float64(t.bytesPerSec))
	if newPos < 0 {
		newPos = 0
	}
	if total := t.dec.Length(); newPos > total {
		newPos = total
	}
	frameSize := int64(t.dec.Channels() * 2)
	newPos -= newPos % frameSize

	if _, err := t.dec.Seek(newPos, io.SeekStart); err != nil {
		return
	}
	t.counter.SetPos(newPos)

	// Recreate the oto player to flush its buffered audio.
	wasPaused := t.paused
	t.otoPlayer.Pause()
	t.otoPlayer = t.otoCtx.NewPlayer(t.counter)
	if !wasPaused {
		t.otoPlayer.Play()
	}
}

// Close stops playback and releases the decoder.
func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	t.otoPlayer.Pause()
	return t.dec.Close()
}
