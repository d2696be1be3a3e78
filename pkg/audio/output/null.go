// ABOUTME: Null audio output driven by a virtual clock
// ABOUTME: Renders blocks at real-time pace without a sound device
package output

import (
	"log"
	"sync"
	"time"
)

// Null discards rendered audio. After Start a ticker invokes the callback at
// the pace a device of the configured rate would. Tick renders one block
// synchronously and must not be mixed with Start.
type Null struct {
	mu     sync.Mutex
	drv    *driver
	cfg    Config
	stop   chan struct{}
	done   chan struct{}
	OnTick func(frames int64) // called after each ticker-driven block
}

// NewNull creates a new Null output
func NewNull() Output {
	return &Null{}
}

// Name returns the backend name
func (n *Null) Name() string { return "null" }

// Open prepares the block buffers
func (n *Null) Open(cfg Config, cb Callback) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.cfg = cfg.WithDefaults()
	n.drv = newDriver(n.cfg, cb)
	log.Printf("Audio output initialized: %dHz, %d channels (null)", n.cfg.SampleRate, n.cfg.Channels)
	return nil
}

// Start launches the virtual clock
func (n *Null) Start() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.drv == nil {
		return ErrNotOpen
	}
	if n.stop != nil {
		return nil
	}

	n.stop = make(chan struct{})
	n.done = make(chan struct{})
	period := time.Duration(float64(time.Second) * float64(n.cfg.BlockFrames) / float64(n.cfg.SampleRate))

	go n.run(period, n.stop, n.done)
	return nil
}

func (n *Null) run(period time.Duration, stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			n.drv.render(n.cfg.BlockFrames)
			if n.OnTick != nil {
				n.OnTick(n.drv.rendered.Load())
			}
		}
	}
}

// Tick renders one block on the calling goroutine and returns its output
func (n *Null) Tick() [][]float32 {
	if n.drv == nil {
		return nil
	}
	return n.drv.render(n.cfg.BlockFrames).Output
}

// Rendered returns the total frames rendered so far
func (n *Null) Rendered() int64 {
	if n.drv == nil {
		return 0
	}
	return n.drv.rendered.Load()
}

// Close stops the virtual clock
func (n *Null) Close() error {
	n.mu.Lock()
	stop, done := n.stop, n.done
	n.stop, n.done = nil, nil
	n.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	return nil
}
