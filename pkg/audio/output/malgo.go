// ABOUTME: Malgo-based audio output implementation with duplex support
// ABOUTME: Uses miniaudio via malgo, feeding capture input to the callback
package output

import (
	"fmt"
	"log"
	"sync"

	"github.com/gen2brain/malgo"
)

// Malgo output implementation using malgo/miniaudio library
type Malgo struct {
	mu       sync.Mutex
	malgoCtx *malgo.AllocatedContext
	device   *malgo.Device
	drv      *driver
	cfg      Config
}

// NewMalgo creates a new Malgo output
func NewMalgo() Output {
	return &Malgo{}
}

// Name returns the backend name
func (m *Malgo) Name() string { return "malgo" }

// Open initializes the device. A non-zero InputChannels opens a duplex
// device so live input reaches the callback.
func (m *Malgo) Open(cfg Config, cb Callback) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cfg = cfg.WithDefaults()

	if m.device != nil {
		log.Printf("Reopening malgo device (%dHz/%dch -> %dHz/%dch)",
			m.cfg.SampleRate, m.cfg.Channels, cfg.SampleRate, cfg.Channels)
		m.closeDevice()
	}

	// Create malgo context if needed
	if m.malgoCtx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return fmt.Errorf("failed to initialize malgo context: %w", err)
		}
		m.malgoCtx = ctx
	}

	deviceType := malgo.Playback
	if cfg.InputChannels > 0 {
		deviceType = malgo.Duplex
	}

	deviceConfig := malgo.DefaultDeviceConfig(deviceType)
	deviceConfig.Playback.Format = malgo.FormatF32
	deviceConfig.Playback.Channels = uint32(cfg.Channels)
	if deviceType == malgo.Duplex {
		deviceConfig.Capture.Format = malgo.FormatF32
		deviceConfig.Capture.Channels = uint32(cfg.InputChannels)
	}
	deviceConfig.SampleRate = uint32(cfg.SampleRate)
	deviceConfig.PeriodSizeInFrames = uint32(cfg.BlockFrames)
	deviceConfig.Alsa.NoMMap = 1

	drv := newDriver(cfg, cb)

	deviceCallbacks := malgo.DeviceCallbacks{
		Data: func(pOutputSample, pInputSamples []byte, frameCount uint32) {
			drv.fillFloat32LE(pOutputSample, pInputSamples)
		},
	}

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, deviceCallbacks)
	if err != nil {
		return fmt.Errorf("failed to initialize %s device: %w", deviceTypeName(deviceType), err)
	}

	m.device = device
	m.drv = drv
	m.cfg = cfg

	log.Printf("Audio output initialized: %dHz, %d out / %d in channels (malgo/%s)",
		cfg.SampleRate, cfg.Channels, cfg.InputChannels, deviceTypeName(deviceType))

	return nil
}

// Start starts the device
func (m *Malgo) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device == nil {
		return ErrNotOpen
	}
	if err := m.device.Start(); err != nil {
		return fmt.Errorf("failed to start device: %w", err)
	}
	return nil
}

// Close releases output resources
func (m *Malgo) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeDevice()

	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			log.Printf("Warning: malgo context uninit error: %v", err)
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}
	return nil
}

// closeDevice stops and uninitializes the device (must hold m.mu)
func (m *Malgo) closeDevice() {
	if m.device != nil {
		if err := m.device.Stop(); err != nil {
			log.Printf("Warning: device stop error: %v", err)
		}
		m.device.Uninit()
		m.device = nil
	}
}

func deviceTypeName(t malgo.DeviceType) string {
	switch t {
	case malgo.Playback:
		return "playback"
	case malgo.Duplex:
		return "duplex"
	case malgo.Capture:
		return "capture"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}
