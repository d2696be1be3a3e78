// ABOUTME: Playback sources rendered by the audio callback
// ABOUTME: Buffered sample playback with looping and live input pass-through
package transport

import (
	"time"

	"github.com/google/uuid"

	"github.com/Resonate-Protocol/tapedeck/pkg/audio"
)

// Kind identifies a source variant
type Kind int

const (
	KindNone Kind = iota
	KindBuffered
	KindStreaming
	KindLive
)

func (k Kind) String() string {
	switch k {
	case KindBuffered:
		return "buffered"
	case KindStreaming:
		return "streaming"
	case KindLive:
		return "live"
	default:
		return "none"
	}
}

// Source provides samples to the audio callback. Render runs on the driver
// goroutine and must not allocate, lock or block. Close runs on a control
// goroutine once no callback can still reach the source.
type Source interface {
	Kind() Kind

	// NumSamples is the loop length in device frames, 0 if unbounded
	NumSamples() int64

	// Render fills block.Frames frames of every output channel starting at
	// pos, scaled by gain, and returns the position after the block
	Render(block *audio.Block, pos int64, gain float32) int64

	Close() error
}

// SourceInfo describes an installed source for display
type SourceInfo struct {
	ID         uuid.UUID
	Path       string
	Name       string
	Kind       Kind
	SampleRate int // file rate; playback runs at the device rate
	Channels   int
	NumSamples int64 // device frames
	Duration   time.Duration
	LoadedAt   time.Time
}

// BufferedSource loops over a fully decoded buffer
type BufferedSource struct {
	buf *audio.SampleBuffer
}

// NewBufferedSource wraps buf, which must already be at the device rate.
// The source owns buf from here on.
func NewBufferedSource(buf *audio.SampleBuffer) *BufferedSource {
	return &BufferedSource{buf: buf}
}

func (s *BufferedSource) Kind() Kind { return KindBuffered }

func (s *BufferedSource) NumSamples() int64 { return int64(s.buf.NumSamples()) }

// Buffer exposes the samples read-only
func (s *BufferedSource) Buffer() *audio.SampleBuffer { return s.buf }

// Render copies from pos, wrapping to 0 at the end and continuing within the
// same block until every output frame is written.
func (s *BufferedSource) Render(b *audio.Block, pos int64, gain float32) int64 {
	n := s.buf.NumSamples()
	srcCh := s.buf.NumChannels()
	if n == 0 || srcCh == 0 {
		b.ClearOutput()
		return 0
	}

	p := int(pos)
	if p < 0 || p >= n {
		p = 0
	}

	for off := 0; off < b.Frames; {
		count := min(b.Frames-off, n-p)
		for c, out := range b.Output {
			src := s.buf.Channel(c % srcCh)
			scaleInto(out[off:off+count], src[p:p+count], gain)
		}
		off += count
		p += count
		if p >= n {
			p = 0
		}
	}
	return int64(p)
}

func (s *BufferedSource) Close() error { return nil }

// LiveSource passes device input straight to the outputs
type LiveSource struct{}

// NewLiveSource creates a pass-through source
func NewLiveSource() *LiveSource { return &LiveSource{} }

func (s *LiveSource) Kind() Kind { return KindLive }

func (s *LiveSource) NumSamples() int64 { return 0 }

// Render maps output c to input c mod the active input span. Inactive
// outputs, inactive inputs and blocks without inputs produce silence.
func (s *LiveSource) Render(b *audio.Block, _ int64, gain float32) int64 {
	maxIn := min(b.ActiveInputs.Span(), len(b.Input))

	for c, out := range b.Output {
		out = out[:b.Frames]
		if !b.ActiveOutputs.Has(c) || maxIn == 0 {
			clear(out)
			continue
		}
		in := c % maxIn
		if !b.ActiveInputs.Has(in) {
			clear(out)
			continue
		}
		scaleInto(out, b.Input[in][:b.Frames], gain)
	}
	return 0
}

func (s *LiveSource) Close() error { return nil }
