// ABOUTME: High-level Player API for tapedeck
// ABOUTME: Wires the loader, transport engine, output device and file watcher
package tapedeck

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/Resonate-Protocol/tapedeck/pkg/audio/decode"
	"github.com/Resonate-Protocol/tapedeck/pkg/audio/output"
	"github.com/Resonate-Protocol/tapedeck/pkg/audio/resample"
	"github.com/Resonate-Protocol/tapedeck/pkg/audio/waveform"
	"github.com/Resonate-Protocol/tapedeck/pkg/transport"
)

// Config holds player configuration
type Config struct {
	// Backend names the output device (default: malgo)
	Backend string

	// Output overrides Backend with a ready-made device
	Output output.Output

	// Mode selects buffered, streaming or live playback
	Mode transport.Mode

	// SampleRate is the device rate (default: 48000)
	SampleRate int

	// Channels is the device output channel count (default: 2)
	Channels int

	// InputChannels opens device inputs for live mode (default: 2 in live mode)
	InputChannels int

	// BlockFrames is the callback block size (default: 512)
	BlockFrames int

	// MaxDuration rejects longer files (default: 10 minutes, negative disables)
	MaxDuration time.Duration

	// Volume is the initial gain level (0-100, default: 100 when nil)
	Volume *int

	// ResampleQuality selects the resampler for buffered files
	ResampleQuality resample.Quality

	// Watch reloads the open file when it changes on disk
	Watch bool

	// WatchDebounce coalesces bursts of file events (default: 250ms)
	WatchDebounce time.Duration

	// OnStateChange is called when the transport enters Playing or Stopped
	OnStateChange func(transport.State)

	// OnLoad is called after a file is installed
	OnLoad func(transport.SourceInfo)

	// OnError is called when loading fails
	OnError func(error)
}

// ErrClosed is returned by Open after Close
var ErrClosed = errors.New("player closed")

// Player plays one file at a time through an output device
type Player struct {
	config Config
	engine *transport.Engine
	loader *transport.Loader
	output output.Output

	mu      sync.Mutex
	path    string
	thumb   *waveform.Thumbnail
	watcher *watcher
	started bool
	closed  bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewPlayer creates a new player with the given configuration
func NewPlayer(config Config) (*Player, error) {
	// Set defaults
	if config.Backend == "" {
		config.Backend = "malgo"
	}
	if config.SampleRate == 0 {
		config.SampleRate = output.DefaultSampleRate
	}
	if config.Channels == 0 {
		config.Channels = output.DefaultChannels
	}
	if config.BlockFrames == 0 {
		config.BlockFrames = output.DefaultBlockFrames
	}
	if config.Mode == transport.ModeLive && config.InputChannels == 0 {
		config.InputChannels = 2
	}
	if config.MaxDuration == 0 {
		config.MaxDuration = 10 * time.Minute
	}
	if config.MaxDuration < 0 {
		config.MaxDuration = 0
	}
	if config.Volume == nil {
		config.Volume = lo.ToPtr(100)
	}
	if config.WatchDebounce == 0 {
		config.WatchDebounce = 250 * time.Millisecond
	}

	out := config.Output
	if out == nil {
		var err error
		out, err = output.New(config.Backend)
		if err != nil {
			return nil, fmt.Errorf("failed to create output: %w", err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	p := &Player{
		config: config,
		output: out,
		loader: &transport.Loader{
			DeviceRate:  config.SampleRate,
			MaxDuration: config.MaxDuration,
			Mode:        config.Mode,
			Quality:     config.ResampleQuality,
		},
		ctx:    ctx,
		cancel: cancel,
	}

	p.engine = transport.NewEngine(transport.Config{
		SampleRate:    config.SampleRate,
		Volume:        config.Volume,
		OnStateChange: config.OnStateChange,
	})

	return p, nil
}

// Start opens the output device and begins processing blocks
func (p *Player) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	if p.started {
		return nil
	}

	cfg := output.Config{
		SampleRate:    p.config.SampleRate,
		Channels:      p.config.Channels,
		InputChannels: p.config.InputChannels,
		BlockFrames:   p.config.BlockFrames,
	}
	if err := p.output.Open(cfg, p.engine.Process); err != nil {
		return fmt.Errorf("failed to open %s output: %w", p.output.Name(), err)
	}
	if err := p.output.Start(); err != nil {
		p.output.Close()
		return fmt.Errorf("failed to start %s output: %w", p.output.Name(), err)
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.engine.Run(p.ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Transport loop stopped: %v", err)
		}
	}()

	if p.config.Mode == transport.ModeLive {
		p.engine.InstallLive()
	}

	p.started = true
	log.Printf("Player started: %s output, %s mode", p.output.Name(), p.config.Mode)
	return nil
}

// Open loads path and installs it as the active source. On failure the
// previous source keeps playing.
func (p *Player) Open(path string) error {
	if p.isClosed() {
		return ErrClosed
	}
	if p.config.Mode == transport.ModeLive {
		return p.notifyError(fmt.Errorf("cannot open %s in live mode", path))
	}

	src, info, err := p.loader.Load(path)
	if err != nil {
		return p.notifyError(err)
	}

	// Close may have run while loading; nothing is installed after it
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		src.Close()
		return ErrClosed
	}
	p.engine.Install(src, info)
	p.path = path
	p.thumb = nil
	p.buildThumbnail(src, info)
	p.mu.Unlock()

	if p.config.Watch {
		if err := p.watch(path); err != nil {
			log.Printf("Failed to watch %s: %v", path, err)
		}
	}

	if p.config.OnLoad != nil {
		p.config.OnLoad(info)
	}
	return nil
}

func (p *Player) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// buildThumbnail computes the waveform off the control path. Must hold mu.
func (p *Player) buildThumbnail(src transport.Source, info transport.SourceInfo) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		var thumb *waveform.Thumbnail
		if b, ok := src.(*transport.BufferedSource); ok {
			thumb = waveform.FromBuffer(b.Buffer(), p.config.SampleRate, waveform.SamplesPerBin)
		} else {
			r, err := decode.Open(info.Path)
			if err != nil {
				log.Printf("Thumbnail skipped: %v", err)
				return
			}
			defer r.Close()
			thumb, err = waveform.FromReader(r, waveform.SamplesPerBin)
			if err != nil {
				log.Printf("Thumbnail failed: %v", err)
				return
			}
		}

		// Drop results for a source that has since been replaced
		if current, ok := p.engine.Source(); !ok || current.ID != info.ID {
			return
		}
		p.mu.Lock()
		p.thumb = thumb
		p.mu.Unlock()
	}()
}

// Play starts playback
func (p *Player) Play() error {
	return p.engine.Play()
}

// Stop stops playback and rewinds
func (p *Player) Stop() error {
	return p.engine.Stop()
}

// Toggle switches between playing and stopped
func (p *Player) Toggle() error {
	return p.engine.Toggle()
}

// SetGain sets the gain level (0-100)
func (p *Player) SetGain(volume int) {
	p.engine.SetGain(volume)
}

// SetMuted sets mute state
func (p *Player) SetMuted(muted bool) {
	p.engine.SetMuted(muted)
}

// Seek jumps to fraction f of the file
func (p *Player) Seek(f float64) error {
	return p.engine.Tracker().Seek(f)
}

// Nudge seeks relative to the current position by a fraction of the file
func (p *Player) Nudge(delta float64) error {
	return p.engine.Tracker().Nudge(delta)
}

// Snapshot returns the current transport state for display
func (p *Player) Snapshot() transport.Snapshot {
	return p.engine.Snapshot()
}

// Thumbnail returns the waveform of the current file, nil until ready
func (p *Player) Thumbnail() *waveform.Thumbnail {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.thumb
}

// Path returns the open file path
func (p *Player) Path() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.path
}

// Engine exposes the transport engine
func (p *Player) Engine() *transport.Engine {
	return p.engine
}

// Close stops the player and releases all resources
func (p *Player) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	w := p.watcher
	p.watcher = nil
	p.mu.Unlock()

	p.cancel()

	if w != nil {
		w.Close()
	}

	var errs []error
	if err := p.output.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close output: %w", err))
	}
	if err := p.engine.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close source: %w", err))
	}

	p.wg.Wait()
	return errors.Join(errs...)
}

func (p *Player) notifyError(err error) error {
	log.Printf("Player error: %v", err)
	if p.config.OnError != nil {
		p.config.OnError(err)
	}
	return err
}
