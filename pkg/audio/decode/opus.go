//go:build opus

// ABOUTME: Ogg Opus file reader
// ABOUTME: Decodes .opus files through libopusfile via hraban/opus
package decode

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/hraban/opus.v2"

	"github.com/Resonate-Protocol/tapedeck/pkg/audio"
)

// opusReader decodes an Ogg Opus file at 48kHz
type opusReader struct {
	file     *os.File
	stream   *opus.Stream
	channels int
	length   int64
	pcm      []float32
}

// newOpusStream starts decoding f from its first byte. The stream must not
// close f, so it only sees the io.Reader.
func newOpusStream(f *os.File) (*opus.Stream, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek to start: %w", err)
	}
	s, err := opus.NewStream(struct{ io.Reader }{f})
	if err != nil {
		return nil, fmt.Errorf("failed to create opus stream: %w", err)
	}
	return s, nil
}

func openOpus(f *os.File) (Reader, error) {
	head, err := parseOpusHead(f)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat opus file: %w", err)
	}

	stream, err := newOpusStream(f)
	if err != nil {
		return nil, err
	}

	return &opusReader{
		file:     f,
		stream:   stream,
		channels: head.Channels,
		length:   opusLength(f, info.Size(), head),
	}, nil
}

func (r *opusReader) SampleRate() int        { return opusRate }
func (r *opusReader) NumChannels() int       { return r.channels }
func (r *opusReader) LengthInSamples() int64 { return r.length }

func (r *opusReader) Read(buf *audio.SampleBuffer, start, numSamples int) (int, error) {
	frames, err := checkRead(buf, start, numSamples)
	if err != nil || frames == 0 {
		return 0, err
	}

	want := frames * r.channels
	if cap(r.pcm) < want {
		r.pcm = make([]float32, want)
	}

	// Returns frames per channel, at most one packet's worth
	n, err := r.stream.ReadFloat32(r.pcm[:want])
	if n == 0 {
		if err == nil || err == io.EOF {
			return 0, io.EOF
		}
		return 0, fmt.Errorf("opus decode error: %w", err)
	}
	deinterleave(buf, start, r.pcm, r.channels, n)
	return n, nil
}

func (r *opusReader) Rewind() error {
	stream, err := newOpusStream(r.file)
	if err != nil {
		return err
	}
	r.stream.Close()
	r.stream = stream
	return nil
}

func (r *opusReader) Close() error {
	r.stream.Close()
	return r.file.Close()
}
