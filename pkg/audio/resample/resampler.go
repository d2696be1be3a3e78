// ABOUTME: Streaming linear resampler for converting audio sample rates
// ABOUTME: Interpolates planar float32 chunks, carrying the last frame between calls
package resample

import (
	"math"

	"github.com/Resonate-Protocol/tapedeck/pkg/audio"
)

// Resampler performs linear interpolation to convert between sample rates
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int
	ratio      float64 // input frames per output frame
	position   float64 // read position in the current chunk, -1 addresses lastSample
	lastSample []float32
	primed     bool
}

// New creates a new resampler
func New(inputRate, outputRate, channels int) *Resampler {
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		ratio:      float64(inputRate) / float64(outputRate),
		lastSample: make([]float32, channels),
	}
}

// Resample converts the first frames of input into output and returns the
// number of output frames written. Output must hold MaxOutputFrames(frames)
// frames or the tail of the chunk is dropped.
func (r *Resampler) Resample(input *audio.SampleBuffer, frames int, output *audio.SampleBuffer) int {
	if frames <= 0 {
		return 0
	}

	if !r.primed {
		for ch := 0; ch < r.channels; ch++ {
			r.lastSample[ch] = sampleAt(input, ch, 0)
		}
		r.position = 0
		r.primed = true
	}

	capacity := output.NumSamples()
	outIdx := 0

	for outIdx < capacity {
		idx := int(math.Floor(r.position))
		// Need idx and idx+1 inside the chunk (idx may be -1)
		if idx+1 > frames-1 {
			break
		}
		frac := float32(r.position - float64(idx))

		for ch := 0; ch < output.NumChannels(); ch++ {
			var s1 float32
			if idx < 0 {
				s1 = r.lastSample[ch%r.channels]
			} else {
				s1 = sampleAt(input, ch, idx)
			}
			s2 := sampleAt(input, ch, idx+1)
			output.Channel(ch)[outIdx] = s1 + (s2-s1)*frac
		}

		outIdx++
		r.position += r.ratio
	}

	// Rebase so that -1 refers to the last frame of this chunk
	r.position -= float64(frames)
	for ch := 0; ch < r.channels; ch++ {
		r.lastSample[ch] = sampleAt(input, ch, frames-1)
	}

	return outIdx
}

// Reset resets the resampler state
func (r *Resampler) Reset() {
	r.position = 0
	r.primed = false
	for i := range r.lastSample {
		r.lastSample[i] = 0
	}
}

// MaxOutputFrames is an upper bound on frames produced from inputFrames
func (r *Resampler) MaxOutputFrames(inputFrames int) int {
	return int(math.Ceil(float64(inputFrames)/r.ratio)) + 2
}

// OutputFrames is the expected output length for a whole stream
func OutputFrames(inputFrames int64, inputRate, outputRate int) int64 {
	if inputRate <= 0 || outputRate <= 0 {
		return inputFrames
	}
	return int64(math.Round(float64(inputFrames) * float64(outputRate) / float64(inputRate)))
}

func sampleAt(buf *audio.SampleBuffer, ch, idx int) float32 {
	n := buf.NumChannels()
	if n == 0 {
		return 0
	}
	return buf.Channel(ch % n)[idx]
}
