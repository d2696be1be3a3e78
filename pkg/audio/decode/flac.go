// ABOUTME: FLAC file reader
// ABOUTME: Decodes FLAC frames to planar float32 using mewkiz/flac
package decode

import (
	"fmt"
	"io"
	"os"

	"github.com/mewkiz/flac"

	"github.com/Resonate-Protocol/tapedeck/pkg/audio"
)

// FLACReader decodes FLAC audio frame by frame
type FLACReader struct {
	file       *os.File
	stream     *flac.Stream
	sampleRate int
	channels   int
	bitDepth   int
	length     int64

	// Decoded samples of the current frame not yet handed out
	pending    [][]int32
	pendingPos int
}

func openFLAC(f *os.File) (Reader, error) {
	stream, err := flac.New(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	info := stream.Info
	if info.NChannels == 0 {
		return nil, fmt.Errorf("%w: no channels", ErrInvalidFile)
	}

	return &FLACReader{
		file:       f,
		stream:     stream,
		sampleRate: int(info.SampleRate),
		channels:   int(info.NChannels),
		bitDepth:   int(info.BitsPerSample),
		length:     int64(info.NSamples),
	}, nil
}

func (r *FLACReader) SampleRate() int        { return r.sampleRate }
func (r *FLACReader) NumChannels() int       { return r.channels }
func (r *FLACReader) LengthInSamples() int64 { return r.length }

// Read parses frames until numSamples are produced or the stream ends
func (r *FLACReader) Read(buf *audio.SampleBuffer, start, numSamples int) (int, error) {
	frames, err := checkRead(buf, start, numSamples)
	if err != nil || frames == 0 {
		return 0, err
	}

	read := 0
	for read < frames {
		if r.pending == nil || r.pendingPos >= len(r.pending[0]) {
			frame, err := r.stream.ParseNext()
			if err == io.EOF {
				break
			}
			if err != nil {
				return read, fmt.Errorf("flac decode error: %w", err)
			}
			r.pending = r.pending[:0]
			for _, sub := range frame.Subframes {
				r.pending = append(r.pending, sub.Samples)
			}
			r.pendingPos = 0
			if len(r.pending) == 0 {
				continue
			}
		}

		n := min(frames-read, len(r.pending[0])-r.pendingPos)
		for c := 0; c < buf.NumChannels(); c++ {
			dst := buf.Channel(c)[start+read : start+read+n]
			if c >= len(r.pending) {
				clear(dst)
				continue
			}
			src := r.pending[c][r.pendingPos : r.pendingPos+n]
			for i, s := range src {
				dst[i] = audio.SampleFromInt(int(s), r.bitDepth)
			}
		}
		r.pendingPos += n
		read += n
	}

	if read == 0 {
		return 0, io.EOF
	}
	return read, nil
}

// Rewind seeks back to start and creates a new stream
func (r *FLACReader) Rewind() error {
	if _, err := r.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}
	stream, err := flac.New(r.file)
	if err != nil {
		return fmt.Errorf("failed to create new stream: %w", err)
	}
	r.stream = stream
	r.pending = nil
	r.pendingPos = 0
	return nil
}

// Close releases decoder resources
func (r *FLACReader) Close() error {
	return r.file.Close()
}
