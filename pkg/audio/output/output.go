// ABOUTME: Audio output interface definition
// ABOUTME: Common callback-driven interface for audio playback backends
package output

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Resonate-Protocol/tapedeck/pkg/audio"
)

// Callback fills one block of output. It runs on the backend's driver
// goroutine and must not block.
type Callback func(block *audio.Block)

// Config describes the device format
type Config struct {
	SampleRate    int
	Channels      int
	InputChannels int // 0 opens a playback-only device
	BlockFrames   int // frames per callback, a hint for some backends
}

// Default device format
const (
	DefaultSampleRate  = 48000
	DefaultChannels    = 2
	DefaultBlockFrames = 512
)

// WithDefaults fills zero fields
func (c Config) WithDefaults() Config {
	if c.SampleRate <= 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.Channels <= 0 {
		c.Channels = DefaultChannels
	}
	if c.BlockFrames <= 0 {
		c.BlockFrames = DefaultBlockFrames
	}
	if c.InputChannels < 0 {
		c.InputChannels = 0
	}
	return c
}

// Output represents an audio output device
type Output interface {
	// Open initializes the device; cb is invoked once per block after Start
	Open(cfg Config, cb Callback) error

	// Start begins invoking the callback
	Start() error

	// Close stops the device and releases resources
	Close() error

	// Name returns the backend name
	Name() string
}

var (
	ErrUnknownBackend = errors.New("unknown output backend")
	ErrNotOpen        = errors.New("output not opened")
)

var backends = map[string]func() Output{
	"oto":       NewOto,
	"malgo":     NewMalgo,
	"beep":      NewBeep,
	"portaudio": NewPortAudio,
	"null":      NewNull,
}

// New creates an output for the named backend
func New(backend string) (Output, error) {
	ctor, ok := backends[strings.ToLower(backend)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownBackend, backend, strings.Join(Backends(), ", "))
	}
	return ctor(), nil
}

// Backends lists the registered backend names
func Backends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
