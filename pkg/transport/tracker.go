// ABOUTME: Read-only position view over the transport engine
// ABOUTME: Converts frame positions to time and normalized seek fractions
package transport

import (
	"time"

	"github.com/samber/lo"
)

// PositionTracker exposes elapsed time, duration and seeking for the UI
type PositionTracker struct {
	engine *Engine
}

// Elapsed returns the playback position as time
func (t *PositionTracker) Elapsed() time.Duration {
	if !t.engine.HasSource() {
		return 0
	}
	return framesToDuration(t.engine.Position(), t.engine.SampleRate())
}

// Duration returns the source length as time, 0 with no source
func (t *PositionTracker) Duration() time.Duration {
	return framesToDuration(t.numSamples(), t.engine.SampleRate())
}

// Fraction returns the position as a fraction of the duration in [0,1]
func (t *PositionTracker) Fraction() float64 {
	n := t.numSamples()
	if n <= 0 {
		return 0
	}
	return lo.Clamp(float64(t.engine.Position())/float64(n), 0, 1)
}

// Seek repositions to fraction f of the source, clamped to [0,1]. It is a
// no-op returning ErrNoActiveSource without a seekable source.
func (t *PositionTracker) Seek(f float64) error {
	n := t.numSamples()
	if n <= 0 {
		return ErrNoActiveSource
	}
	target := int64(lo.Clamp(f, 0, 1) * float64(n))
	return t.engine.SeekFrames(min(target, n-1))
}

// Nudge seeks by delta as a fraction of the duration
func (t *PositionTracker) Nudge(delta float64) error {
	return t.Seek(t.Fraction() + delta)
}

func (t *PositionTracker) numSamples() int64 {
	active := t.engine.src.Load()
	if active == nil {
		return 0
	}
	return active.src.NumSamples()
}

func framesToDuration(frames int64, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(frames) / float64(sampleRate) * float64(time.Second))
}
