// ABOUTME: Lock-free single-producer single-consumer planar sample ring
// ABOUTME: Carries decoded frames from the feeder goroutine to the audio callback
package transport

import (
	"sync/atomic"

	"github.com/tphakala/simd/f32"
)

// ring is a planar SPSC ring. The producer owns write, the consumer owns
// read; each only loads the other's index. Indices count frames forever and
// are reduced modulo capacity on access.
type ring struct {
	channels [][]float32
	capacity uint64

	write atomic.Uint64
	read  atomic.Uint64

	// flushTo, when >= 0, is a write index the consumer jumps to,
	// discarding everything before it. seekPos is the position of that
	// frame and is stored before flushTo.
	flushTo atomic.Int64
	seekPos atomic.Int64
}

func newRing(channels, capacity int) *ring {
	r := &ring{
		channels: make([][]float32, channels),
		capacity: uint64(capacity),
	}
	for c := range r.channels {
		r.channels[c] = make([]float32, capacity)
	}
	r.flushTo.Store(-1)
	return r
}

// Available returns frames ready for the consumer
func (r *ring) Available() int {
	return int(r.write.Load() - r.read.Load())
}

// Free returns frames the producer may write
func (r *ring) Free() int {
	return int(r.capacity - (r.write.Load() - r.read.Load()))
}

// Write copies up to frames frames from src (one slice per ring channel,
// starting at offset) and returns how many fit. Producer only.
func (r *ring) Write(src [][]float32, offset, frames int) int {
	w := r.write.Load()
	n := min(frames, int(r.capacity-(w-r.read.Load())))
	if n <= 0 {
		return 0
	}

	start := int(w % r.capacity)
	first := min(n, int(r.capacity)-start)
	for c, ch := range r.channels {
		s := src[c%len(src)][offset : offset+n]
		copy(ch[start:start+first], s[:first])
		copy(ch[:n-first], s[first:])
	}

	r.write.Store(w + uint64(n))
	return n
}

// Flush makes the consumer discard everything written so far and report
// pos for the next frame. Producer only.
func (r *ring) Flush(pos int64) {
	r.seekPos.Store(pos)
	r.flushTo.Store(int64(r.write.Load()))
}

// takeFlush applies a pending flush. Consumer only.
func (r *ring) takeFlush() (int64, bool) {
	f := r.flushTo.Swap(-1)
	if f < 0 {
		return 0, false
	}
	// A block read before the flush was seen may already have consumed
	// frames written after it
	rd := r.read.Load()
	if uint64(f) >= rd {
		r.read.Store(uint64(f))
		return r.seekPos.Load(), true
	}
	return r.seekPos.Load() + int64(rd-uint64(f)), true
}

// ReadScaled copies up to frames frames into dst scaled by gain, mapping
// output channel c to ring channel c mod channels, and zero-fills any
// shortfall. Returns frames consumed. Consumer only.
func (r *ring) ReadScaled(dst [][]float32, frames int, gain float32) int {
	rd := r.read.Load()
	n := min(frames, int(r.write.Load()-rd))
	if len(r.channels) == 0 {
		n = 0
	}

	start := int(rd % r.capacity)
	first := min(n, int(r.capacity)-start)

	for c, out := range dst {
		out = out[:frames]
		if n > 0 {
			src := r.channels[c%len(r.channels)]
			scaleInto(out[:first], src[start:start+first], gain)
			scaleInto(out[first:n], src[:n-first], gain)
		}
		clear(out[n:])
	}

	r.read.Store(rd + uint64(n))
	return n
}

// scaleInto writes src*gain to dst; unity gain is a plain copy
func scaleInto(dst, src []float32, gain float32) {
	if gain == 1 {
		copy(dst, src)
		return
	}
	f32.Scale(dst, src, gain)
}
