// ABOUTME: Beep speaker output implementation
// ABOUTME: Exposes the block callback as a beep.Streamer on the shared speaker
package output

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
)

// Beep output implementation using the beep speaker
type Beep struct {
	mu       sync.Mutex
	streamer *blockStreamer
	cfg      Config
	playing  bool
}

// NewBeep creates a new Beep output
func NewBeep() Output {
	return &Beep{}
}

// Name returns the backend name
func (b *Beep) Name() string { return "beep" }

// Open initializes the speaker. beep mixes in stereo, so mono callbacks are
// duplicated and channels beyond the second are dropped.
func (b *Beep) Open(cfg Config, cb Callback) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	cfg = cfg.WithDefaults()
	cfg.InputChannels = 0

	sr := beep.SampleRate(cfg.SampleRate)
	if err := speaker.Init(sr, cfg.BlockFrames); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}

	b.cfg = cfg
	b.streamer = &blockStreamer{drv: newDriver(cfg, cb)}

	log.Printf("Audio output initialized: %dHz, %d channels (beep, latency %v)",
		cfg.SampleRate, cfg.Channels, sr.D(cfg.BlockFrames).Round(time.Millisecond))

	return nil
}

// Start begins streaming to the speaker
func (b *Beep) Start() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.streamer == nil {
		return ErrNotOpen
	}
	if !b.playing {
		speaker.Play(b.streamer)
		b.playing = true
	}
	return nil
}

// Close stops the speaker
func (b *Beep) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.streamer == nil {
		return nil
	}
	speaker.Clear()
	speaker.Close()
	b.streamer = nil
	b.playing = false
	return nil
}

// blockStreamer never drains; silence comes from the callback
type blockStreamer struct {
	drv *driver
}

func (s *blockStreamer) Stream(samples [][2]float64) (int, bool) {
	s.drv.fillStereo(samples)
	return len(samples), true
}

func (s *blockStreamer) Err() error {
	return nil
}
