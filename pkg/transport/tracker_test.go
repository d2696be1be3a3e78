// ABOUTME: Tests for the position tracker
// ABOUTME: Covers elapsed time, fractions and seek clamping
package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/tapedeck/pkg/audio"
)

func TestTrackerWithoutSource(t *testing.T) {
	tr := newTestEngine(nil).Tracker()

	assert.Zero(t, tr.Elapsed())
	assert.Zero(t, tr.Duration())
	assert.Zero(t, tr.Fraction())
	assert.ErrorIs(t, tr.Seek(0.2), ErrNoActiveSource)
	assert.ErrorIs(t, tr.Nudge(0.05), ErrNoActiveSource)
}

func TestTrackerTimes(t *testing.T) {
	e := newTestEngine(nil) // 1000 Hz
	e.Install(NewBufferedSource(audio.SampleBufferFrom([][]float32{ramp(2000)})), SourceInfo{})
	require.NoError(t, e.Play())
	step(e, newBlock(1, 0, 500))

	tr := e.Tracker()
	assert.Equal(t, 500*time.Millisecond, tr.Elapsed())
	assert.Equal(t, 2*time.Second, tr.Duration())
	assert.InDelta(t, 0.25, tr.Fraction(), 1e-9)

	snap := e.Snapshot()
	assert.Equal(t, tr.Elapsed(), snap.Elapsed)
	assert.Equal(t, tr.Duration(), snap.Duration)
	assert.True(t, snap.HasSource)
}

func TestTrackerSeekClamps(t *testing.T) {
	e := newTestEngine(nil)
	e.Install(NewBufferedSource(audio.SampleBufferFrom([][]float32{ramp(100)})), SourceInfo{})
	tr := e.Tracker()

	tests := []struct {
		fraction float64
		want     int64
	}{
		{0, 0},
		{0.25, 25},
		{-3, 0},
		{1, 99},
		{7, 99},
	}
	for _, tt := range tests {
		require.NoError(t, tr.Seek(tt.fraction))
		assert.Equal(t, tt.want, e.Position(), "seek %v", tt.fraction)
	}

	require.NoError(t, tr.Seek(0.5))
	require.NoError(t, tr.Nudge(0.05))
	assert.EqualValues(t, 55, e.Position())
	require.NoError(t, tr.Nudge(-1))
	assert.EqualValues(t, 0, e.Position())
}
