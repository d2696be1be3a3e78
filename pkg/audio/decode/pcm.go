// ABOUTME: Shared reader for integer PCM containers
// ABOUTME: Converts go-audio IntBuffers from WAV and AIFF decoders to float32
package decode

import (
	"fmt"
	"io"
	"os"

	goaudio "github.com/go-audio/audio"

	"github.com/Resonate-Protocol/tapedeck/pkg/audio"
)

// pcmDecoder is the part of the go-audio wav/aiff decoders we use
type pcmDecoder interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

// pcmReader adapts a go-audio decoder. reset positions a fresh decoder at
// the first PCM frame of file.
type pcmReader struct {
	file       *os.File
	dec        pcmDecoder
	reset      func(f *os.File) (pcmDecoder, error)
	sampleRate int
	channels   int
	bitDepth   int
	unsigned8  bool // 8-bit WAV stores offset binary
	length     int64
	intBuf     *goaudio.IntBuffer
	tmp        []float32
}

func (r *pcmReader) SampleRate() int        { return r.sampleRate }
func (r *pcmReader) NumChannels() int       { return r.channels }
func (r *pcmReader) LengthInSamples() int64 { return r.length }

func (r *pcmReader) Read(buf *audio.SampleBuffer, start, numSamples int) (int, error) {
	frames, err := checkRead(buf, start, numSamples)
	if err != nil || frames == 0 {
		return 0, err
	}

	want := frames * r.channels
	if r.intBuf == nil || cap(r.intBuf.Data) < want {
		r.intBuf = &goaudio.IntBuffer{
			Data:   make([]int, want),
			Format: &goaudio.Format{NumChannels: r.channels, SampleRate: r.sampleRate},
		}
		r.tmp = make([]float32, want)
	}
	r.intBuf.Data = r.intBuf.Data[:want]

	n, err := r.dec.PCMBuffer(r.intBuf)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("pcm decode error: %w", err)
	}
	got := n / r.channels
	if got == 0 {
		return 0, io.EOF
	}

	for i := 0; i < got*r.channels; i++ {
		v := r.intBuf.Data[i]
		if r.unsigned8 {
			v -= 128
		}
		r.tmp[i] = audio.SampleFromInt(v, r.bitDepth)
	}
	deinterleave(buf, start, r.tmp, r.channels, got)
	return got, nil
}

func (r *pcmReader) Rewind() error {
	if _, err := r.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}
	dec, err := r.reset(r.file)
	if err != nil {
		return fmt.Errorf("failed to create new decoder: %w", err)
	}
	r.dec = dec
	return nil
}

func (r *pcmReader) Close() error {
	return r.file.Close()
}

func validDepth(bitDepth int) error {
	switch bitDepth {
	case 8, 16, 24, 32:
		return nil
	default:
		return fmt.Errorf("%w: %d (supported: 8, 16, 24, 32)", ErrUnsupportedDepth, bitDepth)
	}
}
