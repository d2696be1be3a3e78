// ABOUTME: Whole-buffer sample rate conversion
// ABOUTME: Chooses the linear resampler or go-audio-resampler by quality
package resample

import (
	"errors"
	"fmt"
	"strings"

	resampler "github.com/tphakala/go-audio-resampler"

	"github.com/Resonate-Protocol/tapedeck/pkg/audio"
)

// Quality selects the conversion algorithm
type Quality int

const (
	// QualityLinear uses linear interpolation
	QualityLinear Quality = iota
	// QualityHigh uses a polyphase FIR filter
	QualityHigh
)

var ErrUnknownQuality = errors.New("unknown resample quality")

// ParseQuality accepts "linear" or "high"
func ParseQuality(s string) (Quality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "linear", "fast", "":
		return QualityLinear, nil
	case "high", "hq":
		return QualityHigh, nil
	default:
		return QualityLinear, fmt.Errorf("%w: %q", ErrUnknownQuality, s)
	}
}

func (q Quality) String() string {
	if q == QualityHigh {
		return "high"
	}
	return "linear"
}

// Buffer converts buf from one rate to another. The result is exactly
// OutputFrames(n, from, to) frames long. buf is returned as-is when the
// rates match.
func Buffer(buf *audio.SampleBuffer, from, to int, q Quality) (*audio.SampleBuffer, error) {
	if from <= 0 || to <= 0 {
		return nil, fmt.Errorf("invalid sample rates %d -> %d", from, to)
	}
	if from == to || buf.NumSamples() == 0 {
		return buf, nil
	}

	want := int(OutputFrames(int64(buf.NumSamples()), from, to))

	if q == QualityHigh {
		return highQuality(buf, from, to, want)
	}

	r := New(from, to, buf.NumChannels())
	out := audio.NewSampleBuffer(buf.NumChannels(), r.MaxOutputFrames(buf.NumSamples()))
	n := r.Resample(buf, buf.NumSamples(), out)
	return fit(out, n, want), nil
}

func highQuality(buf *audio.SampleBuffer, from, to, want int) (*audio.SampleBuffer, error) {
	channels := make([][]float32, buf.NumChannels())

	for c := range channels {
		out, err := resampler.ResampleMonoFloat32(buf.Channel(c), float64(from), float64(to), resampler.QualityHigh)
		if err != nil {
			return nil, fmt.Errorf("resample channel %d: %w", c, err)
		}
		channels[c] = out
	}

	merged := audio.SampleBufferFrom(channels)
	return fit(merged, merged.NumSamples(), want), nil
}

// fit copies the first n frames of src into a buffer of exactly want
// frames, zero-padding a short result
func fit(src *audio.SampleBuffer, n, want int) *audio.SampleBuffer {
	out := audio.NewSampleBuffer(src.NumChannels(), want)
	for c := 0; c < src.NumChannels(); c++ {
		copy(out.Channel(c), src.Channel(c)[:min(n, want)])
	}
	return out
}
