// ABOUTME: Audio type definitions
// ABOUTME: Defines audio formats, planar sample buffers and callback blocks
package audio

import (
	"math"
	"math/bits"
)

const (
	// 24-bit audio range constants
	Max24Bit = 8388607  // 2^23 - 1
	Min24Bit = -8388608 // -2^23
)

// Format describes audio stream format
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
}

// SampleBuffer holds planar float32 samples. Every channel has the same
// length.
type SampleBuffer struct {
	channels   [][]float32
	numSamples int
}

// NewSampleBuffer allocates a zeroed buffer of numChannels x numSamples
func NewSampleBuffer(numChannels, numSamples int) *SampleBuffer {
	if numChannels < 0 {
		numChannels = 0
	}
	if numSamples < 0 {
		numSamples = 0
	}
	data := make([]float32, numChannels*numSamples)
	chans := make([][]float32, numChannels)
	for c := range chans {
		chans[c] = data[c*numSamples : (c+1)*numSamples : (c+1)*numSamples]
	}
	return &SampleBuffer{channels: chans, numSamples: numSamples}
}

// SampleBufferFrom wraps existing channel slices. All channels are truncated
// to the shortest one.
func SampleBufferFrom(channels [][]float32) *SampleBuffer {
	n := 0
	for i, ch := range channels {
		if i == 0 || len(ch) < n {
			n = len(ch)
		}
	}
	chans := make([][]float32, len(channels))
	for c, ch := range channels {
		chans[c] = ch[:n:n]
	}
	return &SampleBuffer{channels: chans, numSamples: n}
}

// NumChannels returns the channel count
func (b *SampleBuffer) NumChannels() int {
	if b == nil {
		return 0
	}
	return len(b.channels)
}

// NumSamples returns the per-channel length
func (b *SampleBuffer) NumSamples() int {
	if b == nil {
		return 0
	}
	return b.numSamples
}

// Channel returns the sample slice of channel c. The slice aliases the
// buffer.
func (b *SampleBuffer) Channel(c int) []float32 {
	return b.channels[c]
}

// Channels returns all channel slices
func (b *SampleBuffer) Channels() [][]float32 {
	return b.channels
}

// ReadAt copies samples of channel c starting at offset into dst and returns
// the number copied.
func (b *SampleBuffer) ReadAt(c int, offset int, dst []float32) int {
	if offset < 0 || offset >= b.numSamples {
		return 0
	}
	return copy(dst, b.channels[c][offset:])
}

// Clear zeroes every channel
func (b *SampleBuffer) Clear() {
	for _, ch := range b.channels {
		clear(ch)
	}
}

// ChannelMask marks which driver channels are active, bit c for channel c
type ChannelMask uint64

// AllChannels returns a mask with the first n channels active
func AllChannels(n int) ChannelMask {
	if n <= 0 {
		return 0
	}
	if n >= 64 {
		return ^ChannelMask(0)
	}
	return ChannelMask(1)<<uint(n) - 1
}

// Has reports whether channel c is active
func (m ChannelMask) Has(c int) bool {
	if c < 0 || c >= 64 {
		return false
	}
	return m&(1<<uint(c)) != 0
}

// Span returns the highest active channel index plus one (0 when empty)
func (m ChannelMask) Span() int {
	return 64 - bits.LeadingZeros64(uint64(m))
}

// Block is the unit of work handed to a real-time callback. Output channels
// must all be filled for Frames samples.
type Block struct {
	Input         [][]float32
	Output        [][]float32
	Frames        int
	ActiveInputs  ChannelMask
	ActiveOutputs ChannelMask
}

// ClearOutput zero-fills the first Frames samples of every output channel
func (b *Block) ClearOutput() {
	for _, ch := range b.Output {
		clear(ch[:b.Frames])
	}
}

// GainFromVolume maps a 0-100 volume to a linear multiplier
func GainFromVolume(volume int, muted bool) float32 {
	if muted {
		return 0
	}
	if volume < 0 {
		volume = 0
	}
	if volume > 100 {
		volume = 100
	}
	return float32(volume) / 100.0
}

// SampleFromInt16 converts a 16-bit sample to float32 in [-1, 1)
func SampleFromInt16(sample int16) float32 {
	return float32(sample) / 32768.0
}

// SampleToInt16 converts a float32 sample to 16-bit with clipping
func SampleToInt16(sample float32) int16 {
	v := math.Round(float64(sample) * 32768.0)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// SampleFromInt converts an integer PCM sample of the given bit depth to float32
func SampleFromInt(sample int, bitDepth int) float32 {
	if bitDepth <= 0 || bitDepth > 32 {
		bitDepth = 16
	}
	return float32(float64(sample) / float64(int64(1)<<uint(bitDepth-1)))
}

// SampleFrom24Bit converts 24-bit packed bytes (little-endian) to float32
func SampleFrom24Bit(b [3]byte) float32 {
	val := int32(b[0]) | int32(b[1])<<8 | int32(b[2])<<16
	// Sign extend from 24-bit to 32-bit
	if val&0x800000 != 0 {
		val |= ^0xFFFFFF
	}
	return float32(val) / 8388608.0
}
