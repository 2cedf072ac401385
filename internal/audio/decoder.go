package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

// Decoder is a seekable stream of 16-bit LE interleaved PCM, normalized from
// whatever the source format stores. Length, SampleRate, and Channels
// describe the normalized output.
type Decoder interface {
	io.ReadSeeker
	io.Closer
	Length() int64 // total output PCM bytes
	SampleRate() int
	Channels() int
}

// Open opens an audio file and returns a decoder chosen by extension.
func Open(path string) (Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	var dec Decoder
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		dec, err = newMP3Decoder(f)
	case ".wav":
		dec, err = newWAVDecoder(f)
	case ".flac":
		dec, err = newFLACDecoder(f)
	case ".ogg":
		dec, err = newOGGDecoder(f)
	default:
		err = fmt.Errorf("unsupported format: %s", ext)
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	return dec, nil
}

// pcmTail buffers output bytes that did not fit the caller's slice on the
// previous Read, and tracks the output byte position.
type pcmTail struct {
	buf []byte
	pos int64
}

func (t *pcmTail) drain(p []byte) (int, bool) {
	if len(t.buf) == 0 {
		return 0, false
	}
	n := copy(p, t.buf)
	t.buf = t.buf[n:]
	t.pos += int64(n)
	return n, true
}

func (t *pcmTail) emit(p, raw []byte) int {
	n := copy(p, raw)
	if n < len(raw) {
		t.buf = raw[n:]
	}
	t.pos += int64(n)
	return n
}

func clampPos(pos, total int64) int64 {
	if pos < 0 {
		return 0
	}
	if pos > total {
		return total
	}
	return pos
}

func resolveWhence(pos, total, offset int64, whence int) int64 {
	switch whence {
	case io.SeekCurrent:
		return pos + offset
	case io.SeekEnd:
		return total + offset
	default:
		return offset
	}
}

func clamp16(v int) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// --- MP3 ---

type mp3Decoder struct {
	f   *os.File
	dec *mp3.Decoder
}

func newMP3Decoder(f *os.File) (*mp3Decoder, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, err
	}
	return &mp3Decoder{f: f, dec: dec}, nil
}

func (d *mp3Decoder) Read(p []byte) (int, error) { return d.dec.Read(p) }
func (d *mp3Decoder) Seek(offset int64, whence int) (int64, error) {
	return d.dec.Seek(offset, whence)
}
func (d *mp3Decoder) Length() int64   { return d.dec.Length() }
func (d *mp3Decoder) SampleRate() int { return d.dec.SampleRate() }
func (d *mp3Decoder) Channels() int   { return 2 } // go-mp3 always emits stereo
func (d *mp3Decoder) Close() error    { return d.f.Close() }

// --- WAV ---

type wavDecoder struct {
	f    *os.File
	tail pcmTail

	total      int64
	pcmStart   int64 // file offset where PCM data begins
	rate       int
	channels   int
	srcDepth   int   // source bits per sample
	srcFrameSz int64 // source bytes per sample frame
}

func newWAVDecoder(f *os.File) (*wavDecoder, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("reading WAV PCM data: %w", err)
	}

	channels := int(dec.NumChans)
	depth := int(dec.BitDepth)
	srcFrameSz := int64(channels) * int64(depth) / 8
	totalFrames := dec.PCMLen() / srcFrameSz

	pcmStart, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("getting PCM start position: %w", err)
	}

	return &wavDecoder{
		f:          f,
		total:      totalFrames * int64(channels) * 2,
		pcmStart:   pcmStart,
		rate:       int(dec.SampleRate),
		channels:   channels,
		srcDepth:   depth,
		srcFrameSz: srcFrameSz,
	}, nil
}

func (d *wavDecoder) Read(p []byte) (int, error) {
	if n, ok := d.tail.drain(p); ok {
		return n, nil
	}

	srcBytes := d.srcDepth / 8
	want := len(p) / 2
	if want == 0 {
		want = 1
	}
	src := make([]byte, want*srcBytes)
	n, err := io.ReadFull(d.f, src)
	samples := n / srcBytes
	if samples == 0 {
		if err == nil || err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return 0, err
	}

	raw := make([]byte, samples*2)
	for i := range samples {
		off := i * srcBytes
		var v int
		switch d.srcDepth {
		case 8:
			v = (int(src[off]) - 128) << 8 // 8-bit WAV is unsigned
		case 16:
			v = int(int16(binary.LittleEndian.Uint16(src[off:])))
		case 24:
			s := int32(src[off]) | int32(src[off+1])<<8 | int32(src[off+2])<<16
			if s&0x800000 != 0 {
				s |= ^int32(0xFFFFFF) // sign extend
			}
			v = int(s >> 8)
		case 32:
			v = int(int32(binary.LittleEndian.Uint32(src[off:])) >> 16)
		}
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(clamp16(v)))
	}

	written := d.tail.emit(p, raw)
	if err == io.ErrUnexpectedEOF {
		err = nil // short read near EOF; next Read reports it
	}
	return written, err
}

func (d *wavDecoder) Seek(offset int64, whence int) (int64, error) {
	newPos := clampPos(resolveWhence(d.tail.pos, d.total, offset, whence), d.total)
	frame := newPos / (int64(d.channels) * 2)
	if _, err := d.f.Seek(d.pcmStart+frame*d.srcFrameSz, io.SeekStart); err != nil {
		return d.tail.pos, err
	}
	d.tail.buf = nil
	d.tail.pos = newPos
	return newPos, nil
}

func (d *wavDecoder) Length() int64   { return d.total }
func (d *wavDecoder) SampleRate() int { return d.rate }
func (d *wavDecoder) Channels() int   { return d.channels }
func (d *wavDecoder) Close() error    { return d.f.Close() }

// --- FLAC ---

type flacDecoder struct {
	f      *os.File
	stream *flac.Stream
	tail   pcmTail

	total    int64
	rate     int
	channels int
	bps      int
}

func newFLACDecoder(f *os.File) (*flacDecoder, error) {
	stream, err := flac.NewSeek(f)
	if err != nil {
		return nil, fmt.Errorf("decoding FLAC: %w", err)
	}
	info := stream.Info
	channels := int(info.NChannels)
	return &flacDecoder{
		f:        f,
		stream:   stream,
		total:    int64(info.NSamples) * int64(channels) * 2,
		rate:     int(info.SampleRate),
		channels: channels,
		bps:      int(info.BitsPerSample),
	}, nil
}

func (d *flacDecoder) Read(p []byte) (int, error) {
	if n, ok := d.tail.drain(p); ok {
		return n, nil
	}

	frame, err := d.stream.ParseNext()
	if err != nil {
		return 0, err
	}
	nSamples := int(frame.Subframes[0].NSamples)
	raw := make([]byte, nSamples*d.channels*2)
	for i := range nSamples {
		for ch := range d.channels {
			v := int(frame.Subframes[ch].Samples[i])
			switch {
			case d.bps > 16:
				v >>= d.bps - 16
			case d.bps < 16:
				v <<= 16 - d.bps
			}
			binary.LittleEndian.PutUint16(raw[(i*d.channels+ch)*2:], uint16(clamp16(v)))
		}
	}
	return d.tail.emit(p, raw), nil
}

func (d *flacDecoder) Seek(offset int64, whence int) (int64, error) {
	newPos := clampPos(resolveWhence(d.tail.pos, d.total, offset, whence), d.total)
	sample := uint64(newPos / (int64(d.channels) * 2))
	if _, err := d.stream.Seek(sample); err != nil {
		return d.tail.pos, err
	}
	d.tail.buf = nil
	d.tail.pos = newPos
	return newPos, nil
}

func (d *flacDecoder) Length() int64   { return d.total }
func (d *flacDecoder) SampleRate() int { return d.rate }
func (d *flacDecoder) Channels() int   { return d.channels }
func (d *flacDecoder) Close() error    { return d.f.Close() }

// --- OGG Vorbis ---

type oggDecoder struct {
	f      *os.File
	reader *oggvorbis.Reader
	tail   pcmTail

	total    int64
	rate     int
	channels int
}

func newOGGDecoder(f *os.File) (*oggDecoder, error) {
	reader, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decoding OGG: %w", err)
	}
	channels := reader.Channels()
	return &oggDecoder{
		f:        f,
		reader:   reader,
		total:    reader.Length() * int64(channels) * 2,
		rate:     reader.SampleRate(),
		channels: channels,
	}, nil
}

func (d *oggDecoder) Read(p []byte) (int, error) {
	if n, ok := d.tail.drain(p); ok {
		return n, nil
	}

	samples := make([]float32, len(p)/2)
	n, err := d.reader.Read(samples)
	if n == 0 {
		if err != nil {
			return 0, err
		}
		return 0, io.EOF
	}

	raw := make([]byte, n*2)
	for i := range n {
		s := samples[i]
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		binary.LittleEndian.PutUint16(raw[i*2:], uint16(int16(s*32767)))
	}
	return d.tail.emit(p, raw), err
}

func (d *oggDecoder) Seek(offset int64, whence int) (int64, error) {
	newPos := clampPos(resolveWhence(d.tail.pos, d.total, offset, whence), d.total)
	d.reader.SetPosition(newPos / (int64(d.channels) * 2))
	d.tail.buf = nil
	d.tail.pos = newPos
	return newPos, nil
}

func (d *oggDecoder) Length() int64   { return d.total }
func (d *oggDecoder) SampleRate() int { return d.rate }
func (d *oggDecoder) Channels() int   { return d.channels }
func (d *oggDecoder) Close() error    { return d.f.Close() }
