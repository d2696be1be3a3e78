// ABOUTME: Oto-based audio output implementation
// ABOUTME: Pulls float32 blocks from the callback through an io.Reader player
package output

import (
	"fmt"
	"log"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// Oto output implementation using oto library
type Oto struct {
	mu     sync.Mutex
	otoCtx *oto.Context
	player *oto.Player
	drv    *driver
	cfg    Config
}

// NewOto creates a new Oto output
func NewOto() Output {
	return &Oto{}
}

// Name returns the backend name
func (o *Oto) Name() string { return "oto" }

// Open initializes the output device
func (o *Oto) Open(cfg Config, cb Callback) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	cfg = cfg.WithDefaults()
	if cfg.InputChannels > 0 {
		log.Printf("Warning: oto is playback-only, ignoring %d input channels", cfg.InputChannels)
		cfg.InputChannels = 0
	}

	// oto allows one context per process
	if o.otoCtx != nil {
		return fmt.Errorf("oto output already opened at %dHz %dch", o.cfg.SampleRate, o.cfg.Channels)
	}

	op := &oto.NewContextOptions{
		SampleRate:   cfg.SampleRate,
		ChannelCount: cfg.Channels,
		Format:       oto.FormatFloat32LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("failed to create oto context: %w", err)
	}

	<-readyChan

	o.otoCtx = ctx
	o.cfg = cfg
	o.drv = newDriver(cfg, cb)

	// The player pulls directly from the callback
	o.player = o.otoCtx.NewPlayer(&blockReader{drv: o.drv})
	o.player.SetBufferSize(cfg.BlockFrames * cfg.Channels * 4 * 4)

	log.Printf("Audio output initialized: %dHz, %d channels (oto/f32)", cfg.SampleRate, cfg.Channels)

	return nil
}

// Start begins playback
func (o *Oto) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player == nil {
		return ErrNotOpen
	}
	o.player.Play()
	return nil
}

// Close releases output resources
func (o *Oto) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.player != nil {
		o.player.Pause()
		if err := o.player.Close(); err != nil {
			log.Printf("Warning: oto player close error: %v", err)
		}
		o.player = nil
	}
	if o.otoCtx != nil {
		if err := o.otoCtx.Suspend(); err != nil {
			log.Printf("Warning: oto suspend error: %v", err)
		}
	}
	return nil
}

// blockReader adapts the block callback to the io.Reader oto pulls from
type blockReader struct {
	drv *driver
}

func (r *blockReader) Read(p []byte) (int, error) {
	return r.drv.fillFloat32LE(p, nil), nil
}
