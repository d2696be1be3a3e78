// ABOUTME: Tests for buffered, streaming and live sources
// ABOUTME: Covers looping, underrun, seeking and input mapping
package transport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/tapedeck/pkg/audio"
)

func TestLiveChannelMapping(t *testing.T) {
	tests := []struct {
		name          string
		outputs       int
		activeOutputs audio.ChannelMask
		activeInputs  audio.ChannelMask
		want          [][]float32
	}{
		{
			name:          "outputs wrap over inputs",
			outputs:       3,
			activeOutputs: audio.AllChannels(3),
			activeInputs:  audio.AllChannels(2),
			want:          [][]float32{{1, 1}, {2, 2}, {1, 1}},
		},
		{
			name:          "inactive output is silent",
			outputs:       2,
			activeOutputs: 0b01,
			activeInputs:  audio.AllChannels(2),
			want:          [][]float32{{1, 1}, {0, 0}},
		},
		{
			name:          "mapping onto an inactive input is silent",
			outputs:       3,
			activeOutputs: audio.AllChannels(3),
			activeInputs:  0b10,
			want:          [][]float32{{0, 0}, {2, 2}, {0, 0}},
		},
		{
			name:          "span follows the highest active input",
			outputs:       2,
			activeOutputs: audio.AllChannels(2),
			activeInputs:  0b01,
			want:          [][]float32{{1, 1}, {1, 1}},
		},
		{
			name:          "no active inputs",
			outputs:       2,
			activeOutputs: audio.AllChannels(2),
			activeInputs:  0,
			want:          [][]float32{{0, 0}, {0, 0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newBlock(tt.outputs, 2, 2)
			copy(b.Input[0], []float32{1, 1})
			copy(b.Input[1], []float32{2, 2})
			b.ActiveOutputs = tt.activeOutputs
			b.ActiveInputs = tt.activeInputs

			pos := NewLiveSource().Render(b, 0, 1)

			assert.EqualValues(t, 0, pos)
			assert.Equal(t, tt.want, b.Output)
		})
	}
}

func TestLiveWithoutInputBuffers(t *testing.T) {
	b := newBlock(2, 0, 4)
	b.ActiveInputs = audio.AllChannels(2) // driver claims inputs it did not supply

	NewLiveSource().Render(b, 0, 1)
	assert.Equal(t, [][]float32{make([]float32, 4), make([]float32, 4)}, b.Output)
}

func TestBufferedRenderRecoversFromOutOfRangePosition(t *testing.T) {
	src := NewBufferedSource(audio.SampleBufferFrom([][]float32{ramp(4)}))
	b := newBlock(1, 0, 2)

	pos := src.Render(b, 17, 1)
	assert.Equal(t, []float32{1, 2}, b.Output[0])
	assert.EqualValues(t, 2, pos)
}

func TestBufferedRenderShorterThanBlock(t *testing.T) {
	src := NewBufferedSource(audio.SampleBufferFrom([][]float32{{5}}))
	b := newBlock(2, 0, 5)

	pos := src.Render(b, 0, 1)
	assert.Equal(t, []float32{5, 5, 5, 5, 5}, b.Output[0])
	assert.Equal(t, []float32{5, 5, 5, 5, 5}, b.Output[1])
	assert.EqualValues(t, 0, pos)
}

func waitBuffered(t *testing.T, s *StreamingSource, frames int) {
	t.Helper()
	require.Eventually(t, func() bool { return s.Buffered() >= frames }, 2*time.Second, time.Millisecond)
}

func TestStreamingLoopsAndKeepsPositionInRange(t *testing.T) {
	r := newSliceReader(1000, ramp(10))
	s := NewStreamingSource(r, 1000)
	defer s.Close()

	assert.Equal(t, KindStreaming, s.Kind())
	assert.EqualValues(t, 10, s.NumSamples())

	waitBuffered(t, s, 25)
	b := newBlock(2, 0, 25)
	pos := s.Render(b, 0, 1)

	want := append(append(ramp(10), ramp(10)...), ramp(5)...)
	assert.Equal(t, want, b.Output[0])
	assert.Equal(t, want, b.Output[1])
	assert.EqualValues(t, 5, pos)

	for range 20 {
		waitBuffered(t, s, 25)
		pos = s.Render(b, pos, 1)
		require.GreaterOrEqual(t, pos, int64(0))
		require.Less(t, pos, int64(10))
	}
	assert.Zero(t, s.Underruns())
}

func TestStreamingUnderrunIsSilent(t *testing.T) {
	r := newSliceReader(1000, ramp(10))
	r.gate = make(chan struct{})
	s := NewStreamingSource(r, 1000)

	b := newBlock(1, 0, 8)
	pos := s.Render(b, 3, 1)

	assert.Equal(t, make([]float32, 8), b.Output[0])
	assert.EqualValues(t, 3, pos, "position holds during underrun")
	assert.EqualValues(t, 1, s.Underruns())

	close(r.gate)
	require.NoError(t, s.Close())
	assert.EqualValues(t, 1, r.closed.Load())
}

func TestStreamingSeekFlushesRing(t *testing.T) {
	r := newSliceReader(1000, ramp(10))
	s := NewStreamingSource(r, 1000)
	defer s.Close()
	waitBuffered(t, s, 10)

	s.Seek(4)
	require.Eventually(t, func() bool { return s.ring.flushTo.Load() >= 0 }, 2*time.Second, time.Millisecond)

	// Stale frames are dropped; blocks may underrun until the feeder catches up
	b := newBlock(1, 0, 5)
	var got []float32
	pos := int64(0)
	require.Eventually(t, func() bool {
		pos = s.Render(b, pos, 1)
		got = append(got, b.Output[0][:countNonZero(b.Output[0])]...)
		return len(got) >= 5
	}, 2*time.Second, time.Millisecond)

	assert.Equal(t, []float32{5, 6, 7, 8, 9}, got[:5])
	assert.EqualValues(t, (4+len(got))%10, pos)
}

func countNonZero(s []float32) int {
	n := 0
	for _, v := range s {
		if v != 0 {
			n++
		}
	}
	return n
}

func TestStreamingResamplesToDeviceRate(t *testing.T) {
	r := newSliceReader(500, ramp(100))
	s := NewStreamingSource(r, 1000)
	defer s.Close()

	assert.EqualValues(t, 200, s.NumSamples())

	waitBuffered(t, s, 50)
	b := newBlock(1, 0, 50)
	s.Render(b, 0, 1)

	// Linear interpolation doubles every step of the ramp
	assert.InDelta(t, 1.0, b.Output[0][0], 1e-6)
	assert.InDelta(t, 1.5, b.Output[0][1], 1e-6)
	assert.InDelta(t, 2.0, b.Output[0][2], 1e-6)
}

func TestStreamingEmptyReaderStalls(t *testing.T) {
	r := newSliceReader(1000, []float32{})
	s := NewStreamingSource(r, 1000)

	b := newBlock(1, 0, 4)
	time.Sleep(20 * time.Millisecond)
	s.Render(b, 0, 1)
	assert.Equal(t, make([]float32, 4), b.Output[0])

	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "close is idempotent")
	assert.EqualValues(t, 1, r.closed.Load())
}

func TestStreamingThroughEngine(t *testing.T) {
	e := newTestEngine(nil)
	s := NewStreamingSource(newSliceReader(1000, ramp(10)), 1000)
	e.Install(s, SourceInfo{Name: "stream"})
	require.NoError(t, e.Play())

	waitBuffered(t, s, 4)
	b := newBlock(1, 0, 4)
	step(e, b)
	assert.Equal(t, []float32{1, 2, 3, 4}, b.Output[0])
	assert.EqualValues(t, 4, e.Position())

	require.NoError(t, e.Stop())
	step(e, b)
	assert.Equal(t, Stopped, e.State())
	assert.EqualValues(t, 0, e.Position())

	require.NoError(t, e.Close())
}
