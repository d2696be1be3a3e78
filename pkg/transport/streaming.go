// ABOUTME: Streaming source backed by a decoder reader
// ABOUTME: A feeder goroutine decodes, resamples and loops into an SPSC ring
package transport

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Resonate-Protocol/tapedeck/pkg/audio"
	"github.com/Resonate-Protocol/tapedeck/pkg/audio/decode"
	"github.com/Resonate-Protocol/tapedeck/pkg/audio/resample"
)

const (
	// streamChunkFrames is how many source frames the feeder decodes at once
	streamChunkFrames = 4096
	// streamRingMs is the ring depth in milliseconds of device audio
	streamRingMs = 500
	// streamPoll is how often a blocked feeder rechecks the ring
	streamPoll = 5 * time.Millisecond
)

// StreamingSource plays a decoder reader without decoding it up front
type StreamingSource struct {
	reader     decode.Reader
	ring       *ring
	resampler  *resample.Resampler
	srcRate    int
	deviceRate int
	length     int64

	seekReq   atomic.Int64
	underruns atomic.Int64

	mu  sync.Mutex
	err error

	quit      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewStreamingSource takes ownership of r and starts feeding. Output is
// resampled to deviceRate.
func NewStreamingSource(r decode.Reader, deviceRate int) *StreamingSource {
	s := &StreamingSource{
		reader:     r,
		ring:       newRing(r.NumChannels(), max(deviceRate*streamRingMs/1000, streamChunkFrames)),
		srcRate:    r.SampleRate(),
		deviceRate: deviceRate,
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	s.seekReq.Store(-1)

	if length := r.LengthInSamples(); length > 0 {
		s.length = resample.OutputFrames(length, s.srcRate, deviceRate)
	}
	if s.srcRate != deviceRate {
		s.resampler = resample.New(s.srcRate, deviceRate, r.NumChannels())
	}

	go s.feed()
	return s
}

func (s *StreamingSource) Kind() Kind { return KindStreaming }

func (s *StreamingSource) NumSamples() int64 { return s.length }

// Render pops frames from the ring. An underrun is zero-filled and the
// position only advances by frames actually consumed.
func (s *StreamingSource) Render(b *audio.Block, pos int64, gain float32) int64 {
	if p, ok := s.ring.takeFlush(); ok {
		pos = p
	}

	got := s.ring.ReadScaled(b.Output, b.Frames, gain)
	if got < b.Frames {
		s.underruns.Add(1)
	}

	pos += int64(got)
	if s.length > 0 {
		pos %= s.length
	}
	return pos
}

// Seek asks the feeder to restart at pos device frames. Control goroutine.
func (s *StreamingSource) Seek(pos int64) {
	s.seekReq.Store(max(pos, 0))
}

// Underruns counts blocks that were not fully served
func (s *StreamingSource) Underruns() int64 {
	return s.underruns.Load()
}

// Buffered returns frames waiting in the ring
func (s *StreamingSource) Buffered() int {
	return s.ring.Available()
}

// Err returns the error that stopped the feeder, if any
func (s *StreamingSource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops the feeder and closes the reader. Safe to call repeatedly.
func (s *StreamingSource) Close() error {
	s.closeOnce.Do(func() {
		close(s.quit)
		<-s.done
		s.closeErr = s.reader.Close()
	})
	return s.closeErr
}

func (s *StreamingSource) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	log.Printf("Streaming source stopped: %v", err)
}

func (s *StreamingSource) feed() {
	defer close(s.done)

	ticker := time.NewTicker(streamPoll)
	defer ticker.Stop()

	wait := func() bool {
		select {
		case <-s.quit:
			return false
		case <-ticker.C:
			return true
		}
	}

	chunk := audio.NewSampleBuffer(s.reader.NumChannels(), streamChunkFrames)
	var converted *audio.SampleBuffer
	if s.resampler != nil {
		converted = audio.NewSampleBuffer(s.reader.NumChannels(), s.resampler.MaxOutputFrames(streamChunkFrames))
	}

	var pending *audio.SampleBuffer
	pendingOff, pendingLen := 0, 0
	sinceRewind := 0
	stalled := false

	for {
		select {
		case <-s.quit:
			return
		default:
		}

		if target := s.seekReq.Swap(-1); target >= 0 {
			pendingOff, pendingLen = 0, 0
			sinceRewind = 0
			if err := s.reposition(target, chunk); err != nil {
				s.fail(err)
				stalled = true
			} else {
				stalled = false
			}
			s.ring.Flush(target)
			continue
		}

		if pendingOff < pendingLen {
			n := s.ring.Write(pending.Channels(), pendingOff, pendingLen-pendingOff)
			pendingOff += n
			if n == 0 && !wait() {
				return
			}
			continue
		}

		if stalled {
			if !wait() {
				return
			}
			continue
		}

		n, err := s.reader.Read(chunk, 0, streamChunkFrames)
		if n > 0 {
			sinceRewind += n
			pending, pendingLen = chunk, n
			if s.resampler != nil {
				pending = converted
				pendingLen = s.resampler.Resample(chunk, n, converted)
			}
			pendingOff = 0
		}

		switch {
		case errors.Is(err, io.EOF) || (err == nil && n == 0):
			if sinceRewind == 0 {
				// Nothing to loop over
				stalled = true
				continue
			}
			if rerr := s.reader.Rewind(); rerr != nil {
				s.fail(fmt.Errorf("rewind: %w", rerr))
				stalled = true
			}
			sinceRewind = 0
		case err != nil:
			s.fail(fmt.Errorf("read: %w", err))
			stalled = true
		}
	}
}

// reposition rewinds the reader and skips to the source frame matching
// target device frames
func (s *StreamingSource) reposition(target int64, chunk *audio.SampleBuffer) error {
	if err := s.reader.Rewind(); err != nil {
		return fmt.Errorf("rewind for seek: %w", err)
	}
	if s.resampler != nil {
		s.resampler.Reset()
	}

	skip := target
	if s.srcRate != s.deviceRate {
		skip = target * int64(s.srcRate) / int64(s.deviceRate)
	}

	for skip > 0 {
		n, err := s.reader.Read(chunk, 0, int(min(skip, int64(chunk.NumSamples()))))
		skip -= int64(n)
		if errors.Is(err, io.EOF) || (err == nil && n == 0) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("skip for seek: %w", err)
		}
	}
	return nil
}
