//go:build portaudio

// ABOUTME: PortAudio output implementation
// ABOUTME: Cross-platform duplex callback output using PortAudio
package output

import (
	"fmt"
	"log"

	"github.com/gordonklaus/portaudio"
)

// PortAudio output implementation
type PortAudio struct {
	stream *portaudio.Stream
	drv    *driver
}

// NewPortAudio creates a new PortAudio output
func NewPortAudio() Output {
	return &PortAudio{}
}

// Name returns the backend name
func (p *PortAudio) Name() string { return "portaudio" }

// Open initializes PortAudio
func (p *PortAudio) Open(cfg Config, cb Callback) error {
	cfg = cfg.WithDefaults()

	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	p.drv = newDriver(cfg, cb)

	// Non-interleaved float32 buffers map directly onto the block
	stream, err := portaudio.OpenDefaultStream(cfg.InputChannels, cfg.Channels, float64(cfg.SampleRate), cfg.BlockFrames,
		func(in, out [][]float32) {
			p.drv.renderPlanar(in, out)
		})
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("failed to open stream: %w", err)
	}

	p.stream = stream
	log.Printf("Audio output initialized: %dHz, %d out / %d in channels (portaudio)",
		cfg.SampleRate, cfg.Channels, cfg.InputChannels)
	return nil
}

// Start starts the stream
func (p *PortAudio) Start() error {
	if p.stream == nil {
		return ErrNotOpen
	}
	return p.stream.Start()
}

// Close releases resources
func (p *PortAudio) Close() error {
	if p.stream != nil {
		if err := p.stream.Stop(); err != nil {
			return err
		}
		if err := p.stream.Close(); err != nil {
			return err
		}
		p.stream = nil
	}
	return portaudio.Terminate()
}
