// ABOUTME: Ogg Vorbis file reader
// ABOUTME: Decodes Vorbis audio to planar float32 using jfreymuth/oggvorbis
package decode

import (
	"fmt"
	"io"
	"os"

	"github.com/jfreymuth/oggvorbis"

	"github.com/Resonate-Protocol/tapedeck/pkg/audio"
)

// VorbisReader decodes Ogg Vorbis audio
type VorbisReader struct {
	file    *os.File
	decoder *oggvorbis.Reader
	tmp     []float32
}

func openVorbis(f *os.File) (Reader, error) {
	decoder, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create vorbis decoder: %w", err)
	}
	if decoder.Channels() <= 0 {
		return nil, fmt.Errorf("%w: no channels", ErrInvalidFile)
	}
	return &VorbisReader{file: f, decoder: decoder}, nil
}

func (r *VorbisReader) SampleRate() int        { return r.decoder.SampleRate() }
func (r *VorbisReader) NumChannels() int       { return r.decoder.Channels() }
func (r *VorbisReader) LengthInSamples() int64 { return r.decoder.Length() }

// Read decodes interleaved float32 values and splits them per channel
func (r *VorbisReader) Read(buf *audio.SampleBuffer, start, numSamples int) (int, error) {
	frames, err := checkRead(buf, start, numSamples)
	if err != nil || frames == 0 {
		return 0, err
	}

	channels := r.decoder.Channels()
	want := frames * channels
	if cap(r.tmp) < want {
		r.tmp = make([]float32, want)
	}
	r.tmp = r.tmp[:want]

	// The decoder may return short reads, fill as much as it gives us
	read := 0
	for read < want {
		n, err := r.decoder.Read(r.tmp[read:])
		read += n
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("vorbis decode error: %w", err)
		}
		if n == 0 {
			break
		}
	}

	got := read / channels
	if got == 0 {
		return 0, io.EOF
	}
	deinterleave(buf, start, r.tmp, channels, got)
	return got, nil
}

// Rewind seeks back to the first sample
func (r *VorbisReader) Rewind() error {
	if err := r.decoder.SetPosition(0); err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}
	return nil
}

// Close releases decoder resources
func (r *VorbisReader) Close() error {
	return r.file.Close()
}
