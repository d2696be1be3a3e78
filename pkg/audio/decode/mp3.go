// ABOUTME: MP3 file reader
// ABOUTME: Decodes MP3 audio to planar float32 using go-mp3
package decode

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"

	"github.com/Resonate-Protocol/tapedeck/pkg/audio"
)

// go-mp3 always produces 16-bit little-endian stereo
const (
	mp3Channels   = 2
	mp3FrameBytes = 4
)

// MP3Reader decodes MP3 audio
type MP3Reader struct {
	file    *os.File
	decoder *mp3.Decoder
	buf     []byte
	tmp     []float32
}

func openMP3(f *os.File) (Reader, error) {
	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}
	return &MP3Reader{file: f, decoder: decoder}, nil
}

func (r *MP3Reader) SampleRate() int  { return r.decoder.SampleRate() }
func (r *MP3Reader) NumChannels() int { return mp3Channels }

func (r *MP3Reader) LengthInSamples() int64 {
	if n := r.decoder.Length(); n > 0 {
		return n / mp3FrameBytes
	}
	return 0
}

// Read converts decoded int16 PCM to float32
func (r *MP3Reader) Read(buf *audio.SampleBuffer, start, numSamples int) (int, error) {
	frames, err := checkRead(buf, start, numSamples)
	if err != nil || frames == 0 {
		return 0, err
	}

	numBytes := frames * mp3FrameBytes
	if cap(r.buf) < numBytes {
		r.buf = make([]byte, numBytes)
		r.tmp = make([]float32, frames*mp3Channels)
	}
	r.buf = r.buf[:numBytes]

	n, err := io.ReadFull(r.decoder, r.buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return 0, fmt.Errorf("mp3 decode error: %w", err)
	}

	got := n / mp3FrameBytes
	if got == 0 {
		return 0, io.EOF
	}
	for i := 0; i < got*mp3Channels; i++ {
		r.tmp[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(r.buf[i*2:])))
	}
	deinterleave(buf, start, r.tmp, mp3Channels, got)
	return got, nil
}

// Rewind seeks back to start and creates a new decoder
func (r *MP3Reader) Rewind() error {
	if _, err := r.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to start: %w", err)
	}
	decoder, err := mp3.NewDecoder(r.file)
	if err != nil {
		return fmt.Errorf("failed to create new decoder: %w", err)
	}
	r.decoder = decoder
	return nil
}

// Close releases decoder resources
func (r *MP3Reader) Close() error {
	return r.file.Close()
}
