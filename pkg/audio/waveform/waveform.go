// ABOUTME: Waveform thumbnail generation
// ABOUTME: Reduces sample data to per-bin min/max peaks for display
package waveform

import (
	"errors"
	"fmt"
	"io"

	"github.com/tphakala/simd/f32"
	"gonum.org/v1/gonum/floats"

	"github.com/Resonate-Protocol/tapedeck/pkg/audio"
	"github.com/Resonate-Protocol/tapedeck/pkg/audio/decode"
)

// SamplesPerBin is the default number of source frames folded into one bin
const SamplesPerBin = 512

// Bin holds the extremes of one run of frames
type Bin struct {
	Min float32
	Max float32
}

// Thumbnail is a reduced view of a SampleBuffer, one bin slice per channel
type Thumbnail struct {
	SampleRate    int
	SamplesPerBin int
	NumSamples    int64
	Channels      [][]Bin
}

// NumBins returns the number of bins per channel
func (t *Thumbnail) NumBins() int {
	if t == nil || len(t.Channels) == 0 {
		return 0
	}
	return len(t.Channels[0])
}

// Duration returns the covered time in seconds
func (t *Thumbnail) Duration() float64 {
	if t == nil || t.SampleRate <= 0 {
		return 0
	}
	return float64(t.NumSamples) / float64(t.SampleRate)
}

// Peak returns the largest absolute value across channels for bin i
func (t *Thumbnail) Peak(i int) float32 {
	var peak float32
	for _, bins := range t.Channels {
		if i < 0 || i >= len(bins) {
			continue
		}
		b := bins[i]
		peak = max(peak, b.Max, -b.Min)
	}
	return peak
}

// Resize folds the thumbnail into n display columns of peaks in [0,1]
func (t *Thumbnail) Resize(n int) []float64 {
	out := make([]float64, n)
	bins := t.NumBins()
	if bins == 0 || n <= 0 {
		return out
	}

	for col := 0; col < n; col++ {
		start := col * bins / n
		end := max((col+1)*bins/n, start+1)
		for i := start; i < end && i < bins; i++ {
			out[col] = max(out[col], float64(t.Peak(i)))
		}
		out[col] = min(out[col], 1)
	}
	return out
}

// Normalize scales peaks in place so the loudest column reaches 1.
// Silent input is left unchanged.
func Normalize(peaks []float64) {
	if len(peaks) == 0 {
		return
	}
	if top := floats.Max(peaks); top > 0 {
		floats.Scale(1/top, peaks)
	}
}

// FromBuffer builds a thumbnail using samplesPerBin frames per bin
func FromBuffer(buf *audio.SampleBuffer, sampleRate, samplesPerBin int) *Thumbnail {
	if samplesPerBin <= 0 {
		samplesPerBin = SamplesPerBin
	}

	b := newBuilder(buf.NumChannels(), sampleRate, samplesPerBin)
	b.add(buf, buf.NumSamples())
	return b.finish()
}

// FromReader decodes r from the start and builds a thumbnail. The reader is
// rewound before and after.
func FromReader(r decode.Reader, samplesPerBin int) (*Thumbnail, error) {
	if samplesPerBin <= 0 {
		samplesPerBin = SamplesPerBin
	}
	if err := r.Rewind(); err != nil {
		return nil, fmt.Errorf("rewind before thumbnail: %w", err)
	}

	b := newBuilder(r.NumChannels(), r.SampleRate(), samplesPerBin)
	chunk := audio.NewSampleBuffer(r.NumChannels(), samplesPerBin*32)

	for {
		n, err := r.Read(chunk, 0, chunk.NumSamples())
		b.add(chunk, n)
		if errors.Is(err, io.EOF) || (err == nil && n == 0) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read for thumbnail: %w", err)
		}
	}

	if err := r.Rewind(); err != nil {
		return nil, fmt.Errorf("rewind after thumbnail: %w", err)
	}
	return b.finish(), nil
}

type builder struct {
	thumb   *Thumbnail
	open    []Bin // bin being filled, per channel
	pending int   // frames folded into open
}

func newBuilder(channels, sampleRate, samplesPerBin int) *builder {
	return &builder{
		thumb: &Thumbnail{
			SampleRate:    sampleRate,
			SamplesPerBin: samplesPerBin,
			Channels:      make([][]Bin, channels),
		},
		open: make([]Bin, channels),
	}
}

func (b *builder) add(buf *audio.SampleBuffer, frames int) {
	per := b.thumb.SamplesPerBin
	for off := 0; off < frames; {
		n := min(per-b.pending, frames-off)
		for c := range b.open {
			seg := buf.Channel(c)[off : off+n]
			lo, hi := f32.Min(seg), f32.Max(seg)
			if b.pending == 0 {
				b.open[c] = Bin{Min: lo, Max: hi}
			} else {
				b.open[c].Min = min(b.open[c].Min, lo)
				b.open[c].Max = max(b.open[c].Max, hi)
			}
		}
		b.pending += n
		off += n
		if b.pending == per {
			b.flush()
		}
	}
	b.thumb.NumSamples += int64(frames)
}

func (b *builder) flush() {
	if b.pending == 0 {
		return
	}
	for c, bin := range b.open {
		b.thumb.Channels[c] = append(b.thumb.Channels[c], bin)
	}
	b.pending = 0
}

func (b *builder) finish() *Thumbnail {
	b.flush()
	return b.thumb
}
