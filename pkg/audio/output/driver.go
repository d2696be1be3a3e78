// ABOUTME: Shared block driver for output backends
// ABOUTME: Owns preallocated block buffers and converts to device layouts
package output

import (
	"encoding/binary"
	"math"
	"sync/atomic"

	"github.com/Resonate-Protocol/tapedeck/pkg/audio"
)

// driver adapts a device's buffer layout to the planar Block callback.
// Every buffer is allocated in newDriver so the render paths never allocate.
type driver struct {
	cb       Callback
	cfg      Config
	block    audio.Block
	out      [][]float32
	in       [][]float32
	rendered atomic.Int64
}

func newDriver(cfg Config, cb Callback) *driver {
	d := &driver{
		cb:  cb,
		cfg: cfg,
		out: make([][]float32, cfg.Channels),
		in:  make([][]float32, cfg.InputChannels),
	}
	for c := range d.out {
		d.out[c] = make([]float32, cfg.BlockFrames)
	}
	for c := range d.in {
		d.in[c] = make([]float32, cfg.BlockFrames)
	}
	d.block = audio.Block{
		Output:        make([][]float32, cfg.Channels),
		Input:         make([][]float32, cfg.InputChannels),
		ActiveOutputs: audio.AllChannels(cfg.Channels),
		ActiveInputs:  audio.AllChannels(cfg.InputChannels),
	}
	return d
}

// render runs the callback over the preallocated buffers for frames frames
// (at most BlockFrames)
func (d *driver) render(frames int) *audio.Block {
	for c := range d.out {
		d.block.Output[c] = d.out[c][:frames]
	}
	for c := range d.in {
		d.block.Input[c] = d.in[c][:frames]
	}
	d.block.Frames = frames
	d.cb(&d.block)
	d.rendered.Add(int64(frames))
	return &d.block
}

// renderPlanar runs the callback directly on device-owned planar buffers
func (d *driver) renderPlanar(in, out [][]float32) {
	frames := 0
	if len(out) > 0 {
		frames = len(out[0])
	}
	d.block.Output = d.block.Output[:0]
	d.block.Output = append(d.block.Output, out...)
	d.block.Input = d.block.Input[:0]
	d.block.Input = append(d.block.Input, in...)
	d.block.ActiveOutputs = audio.AllChannels(len(out))
	d.block.ActiveInputs = audio.AllChannels(len(in))
	d.block.Frames = frames
	d.cb(&d.block)
	d.rendered.Add(int64(frames))
}

// fillFloat32LE renders into an interleaved little-endian float32 byte
// buffer and optionally consumes interleaved float32 input bytes. Returns
// the number of bytes written.
func (d *driver) fillFloat32LE(dst, src []byte) int {
	channels := d.cfg.Channels
	frameBytes := channels * 4
	frames := len(dst) / frameBytes
	inFrameBytes := d.cfg.InputChannels * 4

	done := 0
	for done < frames {
		n := min(frames-done, d.cfg.BlockFrames)

		if inFrameBytes > 0 && len(src) >= (done+n)*inFrameBytes {
			deinterleaveFloat32LE(d.in, src[done*inFrameBytes:(done+n)*inFrameBytes], n)
		} else {
			for c := range d.in {
				clear(d.in[c][:n])
			}
		}

		block := d.render(n)
		interleaveFloat32LE(dst[done*frameBytes:], block.Output, n)
		done += n
	}
	return frames * frameBytes
}

// fillStereo renders into beep's stereo frame layout
func (d *driver) fillStereo(dst [][2]float64) {
	done := 0
	for done < len(dst) {
		n := min(len(dst)-done, d.cfg.BlockFrames)
		block := d.render(n)

		left := block.Output[0]
		right := block.Output[1%len(block.Output)]
		for i := 0; i < n; i++ {
			dst[done+i][0] = float64(left[i])
			dst[done+i][1] = float64(right[i])
		}
		done += n
	}
}

func interleaveFloat32LE(dst []byte, channels [][]float32, frames int) {
	stride := len(channels) * 4
	for c, ch := range channels {
		off := c * 4
		for i := 0; i < frames; i++ {
			binary.LittleEndian.PutUint32(dst[i*stride+off:], math.Float32bits(ch[i]))
		}
	}
}

func deinterleaveFloat32LE(dst [][]float32, src []byte, frames int) {
	stride := len(dst) * 4
	for c, ch := range dst {
		off := c * 4
		for i := 0; i < frames; i++ {
			ch[i] = math.Float32frombits(binary.LittleEndian.Uint32(src[i*stride+off:]))
		}
	}
}
