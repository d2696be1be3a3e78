// ABOUTME: Shared fixtures for transport tests
// ABOUTME: Blocks, ramp buffers, fake sources and readers
package transport

import (
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"

	"github.com/Resonate-Protocol/tapedeck/pkg/audio"
)

// newBlock allocates a block with all channels active
func newBlock(outputs, inputs, frames int) *audio.Block {
	b := &audio.Block{
		Output:        make([][]float32, outputs),
		Input:         make([][]float32, inputs),
		Frames:        frames,
		ActiveOutputs: audio.AllChannels(outputs),
		ActiveInputs:  audio.AllChannels(inputs),
	}
	for c := range b.Output {
		b.Output[c] = make([]float32, frames)
		// Poison so unwritten samples are visible
		for i := range b.Output[c] {
			b.Output[c][i] = 99
		}
	}
	for c := range b.Input {
		b.Input[c] = make([]float32, frames)
	}
	return b
}

// ramp returns 1..n as float32, so 0 never appears in real content
func ramp(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i + 1)
	}
	return out
}

// countingSource records how often it was closed
type countingSource struct {
	*BufferedSource
	closes atomic.Int32
}

func newCountingSource(data ...[]float32) *countingSource {
	return &countingSource{BufferedSource: NewBufferedSource(audio.SampleBufferFrom(data))}
}

func (s *countingSource) Close() error {
	s.closes.Add(1)
	return nil
}

// sliceReader serves a SampleBuffer through decode.Reader
type sliceReader struct {
	buf        *audio.SampleBuffer
	sampleRate int
	pos        int
	closed     atomic.Int32
	gate       chan struct{} // when set, Read waits for it to close
}

func newSliceReader(sampleRate int, data ...[]float32) *sliceReader {
	return &sliceReader{buf: audio.SampleBufferFrom(data), sampleRate: sampleRate}
}

func (r *sliceReader) SampleRate() int        { return r.sampleRate }
func (r *sliceReader) NumChannels() int       { return r.buf.NumChannels() }
func (r *sliceReader) LengthInSamples() int64 { return int64(r.buf.NumSamples()) }

func (r *sliceReader) Read(dst *audio.SampleBuffer, start, n int) (int, error) {
	if r.gate != nil {
		<-r.gate
	}
	if r.pos >= r.buf.NumSamples() {
		return 0, io.EOF
	}
	got := 0
	for c := 0; c < dst.NumChannels(); c++ {
		got = r.buf.ReadAt(c%r.buf.NumChannels(), r.pos, dst.Channel(c)[start:start+n])
	}
	r.pos += got
	return got, nil
}

func (r *sliceReader) Rewind() error {
	r.pos = 0
	return nil
}

func (r *sliceReader) Close() error {
	r.closed.Add(1)
	return nil
}

// writeTestWAV writes interleaved 16-bit samples and returns the file path
func writeTestWAV(t *testing.T, sampleRate, channels int, data []int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	require.NoError(t, enc.Write(&goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}
