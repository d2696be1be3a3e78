//go:build !portaudio

// ABOUTME: PortAudio stub when library not available
// ABOUTME: Provides compile-time placeholder when PortAudio not installed
package output

import (
	"errors"
)

// ErrPortAudioDisabled is returned when built without the portaudio tag
var ErrPortAudioDisabled = errors.New("PortAudio support not enabled (build with -tags portaudio)")

// PortAudio output implementation (stub)
type PortAudio struct{}

// NewPortAudio creates a new PortAudio output
func NewPortAudio() Output {
	return &PortAudio{}
}

// Name returns the backend name
func (p *PortAudio) Name() string { return "portaudio" }

// Open initializes PortAudio
func (p *PortAudio) Open(cfg Config, cb Callback) error {
	return ErrPortAudioDisabled
}

// Start starts the stream
func (p *PortAudio) Start() error {
	return ErrPortAudioDisabled
}

// Close releases resources
func (p *PortAudio) Close() error {
	return nil
}
