// ABOUTME: Transport engine with play/stop state machine and real-time callback
// ABOUTME: Publishes sources atomically and retires them after in-flight blocks finish
package transport

import (
	"context"
	"log"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"

	"github.com/Resonate-Protocol/tapedeck/pkg/audio"
)

// Config holds engine configuration
type Config struct {
	// SampleRate is the device rate all positions are measured in
	SampleRate int

	// Volume is the initial gain level (0-100, nil for 100)
	Volume *int

	// OnStateChange is called when the transport enters Playing or Stopped.
	// It runs on the goroutine that drove the change, never the audio
	// callback, and outside the engine lock.
	OnStateChange func(State)
}

// installed pairs a published source with its metadata
type installed struct {
	src  Source
	info SourceInfo
}

// Snapshot is a point-in-time view for display
type Snapshot struct {
	State     State
	Controls  Controls
	Position  int64
	Elapsed   time.Duration
	Duration  time.Duration
	HasSource bool
	Gain      int
	Muted     bool
	Source    SourceInfo
	// Underruns counts blocks a streaming source could not fill
	Underruns int64
}

// Engine owns the transport state and renders audio blocks.
//
// Control methods may be called from any goroutine; they serialize on mu.
// Process is called by the output driver and only touches atomics.
type Engine struct {
	config Config

	mu     sync.Mutex
	state  State
	volume int
	muted  bool

	// Shared with the audio callback
	src     atomic.Pointer[installed]
	gain    atomic.Uint32 // float32 bits
	pos     atomic.Int64
	seekReq atomic.Int64 // -1 when none
	running atomic.Bool  // control -> callback
	rolling atomic.Bool  // callback -> control
	seq     atomic.Uint64

	notify chan struct{}
}

// NewEngine creates a stopped engine with no source
func NewEngine(config Config) *Engine {
	if config.SampleRate <= 0 {
		config.SampleRate = 48000
	}
	volume := 100
	if config.Volume != nil {
		volume = lo.Clamp(*config.Volume, 0, 100)
	}

	e := &Engine{
		config: config,
		state:  Stopped,
		volume: volume,
		notify: make(chan struct{}, 1),
	}
	e.seekReq.Store(-1)
	e.storeGain()
	return e
}

// SampleRate returns the device rate
func (e *Engine) SampleRate() int {
	return e.config.SampleRate
}

// Process renders one block. It is the output device callback and must stay
// allocation-free and non-blocking.
func (e *Engine) Process(b *audio.Block) {
	e.seq.Add(1)

	if p := e.seekReq.Swap(-1); p >= 0 {
		e.pos.Store(p)
	}

	active := e.src.Load()
	running := e.running.Load()

	if active == nil || !running {
		b.ClearOutput()
	} else {
		gain := math.Float32frombits(e.gain.Load())
		e.pos.Store(active.src.Render(b, e.pos.Load(), gain))
		if gain == 0 {
			b.ClearOutput()
		}
	}

	rolling := running && active != nil
	if e.rolling.Load() != rolling {
		e.rolling.Store(rolling)
		e.signal()
	}

	e.seq.Add(1)
}

// signal posts a coalescing change notification without blocking
func (e *Engine) signal() {
	select {
	case e.notify <- struct{}{}:
	default:
	}
}

// Run handles change notifications from the audio callback until ctx is done
func (e *Engine) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.notify:
			e.transportChanged()
		}
	}
}

// Dispatch handles a pending change notification, if any, on the calling
// goroutine. It reports whether one was pending.
func (e *Engine) Dispatch() bool {
	select {
	case <-e.notify:
		e.transportChanged()
		return true
	default:
		return false
	}
}

// transportChanged maps the callback's rolling flag onto the state machine
func (e *Engine) transportChanged() {
	e.mu.Lock()
	var fired bool
	var entered State
	if e.rolling.Load() {
		fired, entered = e.changeState(Playing)
	} else {
		fired, entered = e.changeState(Stopped)
	}
	e.mu.Unlock()

	e.fire(fired, entered)
}

// changeState performs the side effects of entering s. Setting the current
// state again does nothing. Must hold mu. Reports whether OnStateChange
// should fire.
func (e *Engine) changeState(s State) (bool, State) {
	if e.state == s {
		return false, s
	}
	prev := e.state
	e.state = s

	switch s {
	case Stopped:
		e.resetPosition()
	case Starting:
		e.running.Store(true)
	case Playing:
	case Stopping:
		e.running.Store(false)
	}

	log.Printf("Transport %s -> %s", prev, s)
	return s == Playing || s == Stopped, s
}

func (e *Engine) fire(fired bool, s State) {
	if fired && e.config.OnStateChange != nil {
		e.config.OnStateChange(s)
	}
}

// resetPosition rewinds to 0 at the next block. Must hold mu.
func (e *Engine) resetPosition() {
	e.seekTo(0)
}

// seekTo requests position p. Must hold mu.
func (e *Engine) seekTo(p int64) {
	if active := e.src.Load(); active != nil {
		if s, ok := active.src.(*StreamingSource); ok {
			s.Seek(p)
		}
	}
	e.pos.Store(p)
	e.seekReq.Store(p)
}

// Play starts the transport from Stopped
func (e *Engine) Play() error {
	e.mu.Lock()
	if e.src.Load() == nil {
		e.mu.Unlock()
		return ErrNoActiveSource
	}
	if e.state == Stopped {
		e.changeState(Starting)
	}
	e.mu.Unlock()
	return nil
}

// Stop requests the transport stop from Playing
func (e *Engine) Stop() error {
	e.mu.Lock()
	if e.src.Load() == nil {
		e.mu.Unlock()
		return ErrNoActiveSource
	}
	if e.state == Playing {
		e.changeState(Stopping)
	}
	e.mu.Unlock()
	return nil
}

// Toggle plays when stopped and stops when playing
func (e *Engine) Toggle() error {
	e.mu.Lock()
	state := e.state
	e.mu.Unlock()

	if state == Stopped {
		return e.Play()
	}
	return e.Stop()
}

// SetGain sets the gain level (0-100, clamped). Gain may be set without a
// source.
func (e *Engine) SetGain(volume int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.volume = lo.Clamp(volume, 0, 100)
	e.storeGain()
}

// SetMuted forces the gain to zero while set
func (e *Engine) SetMuted(muted bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.muted = muted
	e.storeGain()
}

func (e *Engine) storeGain() {
	e.gain.Store(math.Float32bits(audio.GainFromVolume(e.volume, e.muted)))
}

// SeekFrames requests a reposition to frame p of a seekable source
func (e *Engine) SeekFrames(p int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	active := e.src.Load()
	if active == nil || active.src.NumSamples() <= 0 {
		return ErrNoActiveSource
	}
	e.seekTo(lo.Clamp(p, 0, active.src.NumSamples()-1))
	return nil
}

// Install publishes src as the active source, resets the position and
// closes the previous source once no callback can reach it. The transport
// state is preserved.
func (e *Engine) Install(src Source, info SourceInfo) {
	info.Kind = src.Kind()
	if info.NumSamples == 0 {
		info.NumSamples = src.NumSamples()
	}

	e.mu.Lock()
	old := e.src.Swap(&installed{src: src, info: info})
	e.pos.Store(0)
	e.seekReq.Store(0)
	e.mu.Unlock()

	e.retire(old)
	log.Printf("Installed %s source %q (%d frames)", info.Kind, info.Name, info.NumSamples)
}

// InstallLive switches to input pass-through
func (e *Engine) InstallLive() {
	e.Install(NewLiveSource(), SourceInfo{Name: "live input"})
}

// Close stops playback and releases the active source
func (e *Engine) Close() error {
	e.mu.Lock()
	e.running.Store(false)
	old := e.src.Swap(nil)
	e.mu.Unlock()

	return e.retire(old)
}

// retire waits until no in-flight callback can hold old, then closes it
func (e *Engine) retire(old *installed) error {
	if old == nil {
		return nil
	}
	e.waitQuiescent()
	if err := old.src.Close(); err != nil {
		log.Printf("Error closing previous source: %v", err)
		return err
	}
	return nil
}

// waitQuiescent returns once any callback running at the time of the call
// has finished. seq is odd while a callback is in flight.
func (e *Engine) waitQuiescent() {
	s := e.seq.Load()
	if s%2 == 0 {
		return
	}
	for e.seq.Load() == s {
		runtime.Gosched()
	}
}

// State returns the current transport state
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// HasSource reports whether a source is installed
func (e *Engine) HasSource() bool {
	return e.src.Load() != nil
}

// Source returns the active source info
func (e *Engine) Source() (SourceInfo, bool) {
	active := e.src.Load()
	if active == nil {
		return SourceInfo{}, false
	}
	return active.info, true
}

// Position returns the playback position in device frames. A pending seek
// is reported as already applied.
func (e *Engine) Position() int64 {
	if p := e.seekReq.Load(); p >= 0 {
		return p
	}
	return e.pos.Load()
}

// Tracker returns the position view over this engine
func (e *Engine) Tracker() *PositionTracker {
	return &PositionTracker{engine: e}
}

// Snapshot returns the state polled by the UI
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	snap := Snapshot{
		State: e.state,
		Gain:  e.volume,
		Muted: e.muted,
	}
	e.mu.Unlock()

	tracker := e.Tracker()
	info, ok := e.Source()
	snap.HasSource = ok
	snap.Source = info
	snap.Controls = ControlsFor(snap.State, ok)
	snap.Position = e.Position()
	snap.Elapsed = tracker.Elapsed()
	snap.Duration = tracker.Duration()
	if active := e.src.Load(); active != nil {
		if s, ok := active.src.(*StreamingSource); ok {
			snap.Underruns = s.Underruns()
		}
	}
	return snap
}
