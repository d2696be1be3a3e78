// ABOUTME: Tests for the transport engine
// ABOUTME: Covers the state machine, rendering and source replacement
package transport

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/tapedeck/pkg/audio"
)

// recorder collects OnStateChange calls
type recorder struct {
	mu     sync.Mutex
	states []State
}

func (r *recorder) record(s State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) get() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func newTestEngine(rec *recorder) *Engine {
	cfg := Config{SampleRate: 1000}
	if rec != nil {
		cfg.OnStateChange = rec.record
	}
	return NewEngine(cfg)
}

// step processes one block and dispatches any resulting notification
func step(e *Engine, b *audio.Block) {
	e.Process(b)
	e.Dispatch()
}

func TestNewEngineDefaults(t *testing.T) {
	e := NewEngine(Config{})

	assert.Equal(t, 48000, e.SampleRate())
	assert.Equal(t, Stopped, e.State())
	assert.False(t, e.HasSource())

	snap := e.Snapshot()
	assert.Equal(t, 100, snap.Gain)
	assert.False(t, snap.Muted)
	assert.Equal(t, Controls{}, snap.Controls)
	assert.Zero(t, snap.Duration)
}

func TestNewEngineSilentVolume(t *testing.T) {
	e := NewEngine(Config{SampleRate: 1000, Volume: lo.ToPtr(0)})
	assert.Equal(t, 0, e.Snapshot().Gain)

	e.Install(NewBufferedSource(audio.SampleBufferFrom([][]float32{ramp(8)})), SourceInfo{})
	require.NoError(t, e.Play())

	b := newBlock(1, 0, 8)
	e.Process(b)
	assert.Equal(t, make([]float32, 8), b.Output[0])

	e = NewEngine(Config{Volume: lo.ToPtr(250)})
	assert.Equal(t, 100, e.Snapshot().Gain)
}

func TestProcessWithoutSourceIsSilent(t *testing.T) {
	e := newTestEngine(nil)
	b := newBlock(2, 0, 64)

	e.Process(b)

	for c := range b.Output {
		assert.Equal(t, make([]float32, 64), b.Output[c])
	}
	assert.False(t, e.Dispatch(), "idle engine should not signal")
}

func TestCommandsWithoutSource(t *testing.T) {
	e := newTestEngine(nil)

	assert.ErrorIs(t, e.Play(), ErrNoActiveSource)
	assert.ErrorIs(t, e.Stop(), ErrNoActiveSource)
	assert.ErrorIs(t, e.SeekFrames(10), ErrNoActiveSource)
	assert.ErrorIs(t, e.Tracker().Seek(0.5), ErrNoActiveSource)
	assert.Equal(t, Stopped, e.State())

	// Gain is accepted with nothing loaded
	e.SetGain(40)
	assert.Equal(t, 40, e.Snapshot().Gain)
}

func TestTransportSequence(t *testing.T) {
	rec := &recorder{}
	e := newTestEngine(rec)
	e.Install(NewBufferedSource(audio.SampleBufferFrom([][]float32{ramp(100)})), SourceInfo{Name: "ramp"})
	b := newBlock(1, 0, 10)

	seen := []State{e.State()}
	observe := func() {
		if s := e.State(); s != seen[len(seen)-1] {
			seen = append(seen, s)
		}
	}

	require.NoError(t, e.Play())
	observe()
	assert.Equal(t, Controls{}, ControlsFor(e.State(), true), "play disabled while starting")

	step(e, b)
	observe()
	assert.Equal(t, Playing, e.State())
	assert.Equal(t, Controls{Stop: true}, e.Snapshot().Controls)

	step(e, b)
	step(e, b)
	assert.EqualValues(t, 30, e.Position())

	require.NoError(t, e.Stop())
	observe()
	step(e, b)
	observe()

	assert.Equal(t, []State{Stopped, Starting, Playing, Stopping, Stopped}, seen)
	assert.Equal(t, []State{Playing, Stopped}, rec.get())
	assert.EqualValues(t, 0, e.Position())
	assert.Equal(t, Controls{Play: true}, e.Snapshot().Controls)

	// The block after Stop is silent
	assert.Equal(t, make([]float32, 10), b.Output[0])
}

func TestCommandsAreIdempotent(t *testing.T) {
	rec := &recorder{}
	e := newTestEngine(rec)
	e.Install(NewBufferedSource(audio.SampleBufferFrom([][]float32{ramp(100)})), SourceInfo{})
	b := newBlock(1, 0, 10)

	require.NoError(t, e.Play())
	require.NoError(t, e.Play())
	assert.Equal(t, Starting, e.State())

	step(e, b)
	require.NoError(t, e.Play())
	assert.Equal(t, Playing, e.State())
	assert.EqualValues(t, 10, e.Position(), "second Play must not restart")

	require.NoError(t, e.Stop())
	require.NoError(t, e.Stop())
	assert.Equal(t, Stopping, e.State())

	step(e, b)
	require.NoError(t, e.Stop())
	assert.Equal(t, Stopped, e.State())

	assert.Equal(t, []State{Playing, Stopped}, rec.get())
}

func TestDuplicateNotificationsAreNoOps(t *testing.T) {
	rec := &recorder{}
	e := newTestEngine(rec)
	e.Install(NewBufferedSource(audio.SampleBufferFrom([][]float32{ramp(10)})), SourceInfo{})
	require.NoError(t, e.Play())
	e.Process(newBlock(1, 0, 4))

	e.transportChanged()
	e.transportChanged()
	e.signal()
	e.Dispatch()

	assert.Equal(t, Playing, e.State())
	assert.Equal(t, []State{Playing}, rec.get())
}

func TestBufferedWrapFillsWholeBlock(t *testing.T) {
	e := newTestEngine(nil)
	e.Install(NewBufferedSource(audio.SampleBufferFrom([][]float32{{1, 2, 3}})), SourceInfo{})
	require.NoError(t, e.Play())

	b := newBlock(1, 0, 8)
	e.Process(b)

	assert.Equal(t, []float32{1, 2, 3, 1, 2, 3, 1, 2}, b.Output[0])
	assert.EqualValues(t, 2, e.Position())
}

func TestSnapshotReportsUnderruns(t *testing.T) {
	e := newTestEngine(nil)
	r := newSliceReader(1000, ramp(10))
	r.gate = make(chan struct{})
	e.Install(NewStreamingSource(r, 1000), SourceInfo{Kind: KindStreaming})
	t.Cleanup(func() {
		close(r.gate)
		e.Close()
	})
	require.NoError(t, e.Play())

	assert.Zero(t, e.Snapshot().Underruns)
	e.Process(newBlock(1, 0, 8))
	e.Process(newBlock(1, 0, 8))
	assert.EqualValues(t, 2, e.Snapshot().Underruns)
}

func TestBufferedPositionWrapsAfterFullPass(t *testing.T) {
	const n = 50
	e := newTestEngine(nil)
	e.Install(NewBufferedSource(audio.SampleBufferFrom([][]float32{ramp(n)})), SourceInfo{})
	require.NoError(t, e.Play())

	var emitted []float32
	b := newBlock(1, 0, 10)
	for range n / 10 {
		e.Process(b)
		emitted = append(emitted, b.Output[0]...)
	}

	assert.EqualValues(t, 0, e.Position())

	distinct := map[float32]bool{}
	for _, s := range emitted {
		require.False(t, distinct[s], "sample %v repeated before a full pass", s)
		distinct[s] = true
	}
	assert.Len(t, distinct, n)
}

func TestGainZeroAndUnity(t *testing.T) {
	data := []float32{0.1, -0.7, 0.33333334, -1, 1, 1e-7}
	e := newTestEngine(nil)
	e.Install(NewBufferedSource(audio.SampleBufferFrom([][]float32{data})), SourceInfo{})
	require.NoError(t, e.Play())

	b := newBlock(1, 0, len(data))
	e.Process(b)
	assert.Equal(t, data, b.Output[0], "unity gain must be bit-exact")

	e.SetGain(0)
	e.Process(b)
	assert.Equal(t, make([]float32, len(data)), b.Output[0])

	e.SetGain(50)
	e.SetMuted(true)
	e.Process(b)
	assert.Equal(t, make([]float32, len(data)), b.Output[0])

	e.SetMuted(false)
	e.Process(b)
	for i, s := range data {
		assert.InDelta(t, s*0.5, b.Output[0][i], 1e-7)
	}
}

func TestGainClamped(t *testing.T) {
	e := newTestEngine(nil)
	e.SetGain(150)
	assert.Equal(t, 100, e.Snapshot().Gain)
	e.SetGain(-5)
	assert.Equal(t, 0, e.Snapshot().Gain)
}

func TestMonoSourceDuplicatedToStereo(t *testing.T) {
	e := newTestEngine(nil)
	e.Install(NewBufferedSource(audio.SampleBufferFrom([][]float32{ramp(4)})), SourceInfo{})
	require.NoError(t, e.Play())

	b := newBlock(2, 0, 4)
	e.Process(b)

	assert.Equal(t, ramp(4), b.Output[0])
	assert.Equal(t, b.Output[0], b.Output[1])
}

func TestStereoSourceWrapsOntoMoreOutputs(t *testing.T) {
	e := newTestEngine(nil)
	left, right := []float32{1, 1}, []float32{2, 2}
	e.Install(NewBufferedSource(audio.SampleBufferFrom([][]float32{left, right})), SourceInfo{})
	require.NoError(t, e.Play())

	b := newBlock(3, 0, 2)
	e.Process(b)

	assert.Equal(t, left, b.Output[0])
	assert.Equal(t, right, b.Output[1])
	assert.Equal(t, left, b.Output[2])
}

func TestZeroChannelSourceIsSilent(t *testing.T) {
	e := newTestEngine(nil)
	e.Install(NewBufferedSource(audio.NewSampleBuffer(0, 0)), SourceInfo{})
	require.NoError(t, e.Play())

	b := newBlock(2, 0, 16)
	e.Process(b)
	assert.Equal(t, make([]float32, 16), b.Output[1])
}

func TestInstallReplacesAndClosesOnce(t *testing.T) {
	e := newTestEngine(nil)
	first := newCountingSource(ramp(10))
	second := newCountingSource(ramp(20))

	e.Install(first, SourceInfo{Name: "first"})
	require.NoError(t, e.Play())
	step(e, newBlock(1, 0, 4))
	require.EqualValues(t, 4, e.Position())

	e.Install(second, SourceInfo{Name: "second"})
	assert.EqualValues(t, 1, first.closes.Load())
	assert.EqualValues(t, 0, second.closes.Load())
	assert.Equal(t, Playing, e.State(), "install keeps the transport state")
	assert.EqualValues(t, 0, e.Position())

	info, ok := e.Source()
	require.True(t, ok)
	assert.Equal(t, "second", info.Name)
	assert.Equal(t, KindBuffered, info.Kind)
	assert.EqualValues(t, 20, info.NumSamples)

	b := newBlock(1, 0, 2)
	e.Process(b)
	assert.Equal(t, []float32{1, 2}, b.Output[0])

	require.NoError(t, e.Close())
	assert.EqualValues(t, 1, first.closes.Load())
	assert.EqualValues(t, 1, second.closes.Load())
	assert.False(t, e.HasSource())
}

// gatedSource blocks inside Render until released
type gatedSource struct {
	*countingSource
	entered chan struct{}
	release chan struct{}
}

func (s *gatedSource) Render(b *audio.Block, pos int64, gain float32) int64 {
	close(s.entered)
	<-s.release
	return s.countingSource.Render(b, pos, gain)
}

func TestInstallWaitsForInFlightBlock(t *testing.T) {
	e := newTestEngine(nil)
	old := &gatedSource{
		countingSource: newCountingSource(ramp(10)),
		entered:        make(chan struct{}),
		release:        make(chan struct{}),
	}
	e.Install(old, SourceInfo{})
	require.NoError(t, e.Play())

	go e.Process(newBlock(1, 0, 4))
	<-old.entered

	installed := make(chan struct{})
	go func() {
		e.Install(newCountingSource(ramp(5)), SourceInfo{})
		close(installed)
	}()

	// The new source is published immediately but the old one stays open
	require.Eventually(t, func() bool {
		info, _ := e.Source()
		return info.NumSamples == 5
	}, time.Second, time.Millisecond)
	assert.EqualValues(t, 0, old.closes.Load())

	close(old.release)
	select {
	case <-installed:
	case <-time.After(2 * time.Second):
		t.Fatal("install did not complete after the block finished")
	}
	assert.EqualValues(t, 1, old.closes.Load())
}

func TestSeekAppliedAtBlockStart(t *testing.T) {
	e := newTestEngine(nil)
	e.Install(NewBufferedSource(audio.SampleBufferFrom([][]float32{ramp(100)})), SourceInfo{})
	require.NoError(t, e.Play())

	require.NoError(t, e.Tracker().Seek(0.5))
	assert.EqualValues(t, 50, e.Position(), "pending seek reported immediately")

	b := newBlock(1, 0, 3)
	e.Process(b)
	assert.Equal(t, []float32{51, 52, 53}, b.Output[0])
	assert.EqualValues(t, 53, e.Position())

	require.NoError(t, e.SeekFrames(1000))
	e.Process(b)
	assert.Equal(t, []float32{100, 1, 2}, b.Output[0], "seek clamps to the last frame")
}

func TestSeekWhileStoppedStartsThere(t *testing.T) {
	e := newTestEngine(nil)
	e.Install(NewBufferedSource(audio.SampleBufferFrom([][]float32{ramp(10)})), SourceInfo{})

	require.NoError(t, e.SeekFrames(7))
	b := newBlock(1, 0, 2)
	e.Process(b)
	assert.Equal(t, []float32{0, 0}, b.Output[0])

	require.NoError(t, e.Play())
	e.Process(b)
	assert.Equal(t, []float32{8, 9}, b.Output[0])
}

func TestLivePassThroughThroughEngine(t *testing.T) {
	e := newTestEngine(nil)
	e.InstallLive()
	e.SetGain(50)

	b := newBlock(2, 1, 4)
	copy(b.Input[0], []float32{0.2, 0.4, 0.6, 0.8})

	e.Process(b)
	assert.Equal(t, make([]float32, 4), b.Output[0], "live input is silent until playing")

	require.NoError(t, e.Play())
	step(e, b)
	assert.Equal(t, Playing, e.State())
	for c := range 2 {
		assert.InDeltaSlice(t, []float32{0.1, 0.2, 0.3, 0.4}, b.Output[c], 1e-7)
	}

	assert.ErrorIs(t, e.Tracker().Seek(0.3), ErrNoActiveSource, "live input is not seekable")
	assert.Zero(t, e.Snapshot().Duration)
}

func TestRunHandlesNotifications(t *testing.T) {
	rec := &recorder{}
	e := newTestEngine(rec)
	e.Install(NewBufferedSource(audio.SampleBufferFrom([][]float32{ramp(10)})), SourceInfo{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	require.NoError(t, e.Play())
	e.Process(newBlock(1, 0, 4))
	require.Eventually(t, func() bool { return e.State() == Playing }, time.Second, time.Millisecond)

	require.NoError(t, e.Stop())
	e.Process(newBlock(1, 0, 4))
	require.Eventually(t, func() bool { return e.State() == Stopped }, time.Second, time.Millisecond)

	cancel()
	assert.True(t, errors.Is(<-done, context.Canceled))
	assert.Equal(t, []State{Playing, Stopped}, rec.get())
}

func TestToggle(t *testing.T) {
	e := newTestEngine(nil)
	e.Install(NewBufferedSource(audio.SampleBufferFrom([][]float32{ramp(10)})), SourceInfo{})

	require.NoError(t, e.Toggle())
	assert.Equal(t, Starting, e.State())
	step(e, newBlock(1, 0, 1))
	require.NoError(t, e.Toggle())
	assert.Equal(t, Stopping, e.State())
}

func TestProcessDoesNotAllocate(t *testing.T) {
	e := newTestEngine(nil)
	e.Install(NewBufferedSource(audio.SampleBufferFrom([][]float32{ramp(7), ramp(7)})), SourceInfo{})
	e.SetGain(80)
	require.NoError(t, e.Play())
	b := newBlock(2, 0, 64)

	allocs := testing.AllocsPerRun(100, func() {
		e.Process(b)
	})
	assert.Zero(t, allocs)
}
