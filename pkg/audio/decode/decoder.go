// ABOUTME: Decoder interface definition and format registry
// ABOUTME: Opens files by extension and decodes them into sample buffers
package decode

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Resonate-Protocol/tapedeck/pkg/audio"
)

// Reader streams decoded audio as planar float32 frames
type Reader interface {
	// SampleRate of the decoded stream in Hz
	SampleRate() int

	// NumChannels of the decoded stream
	NumChannels() int

	// LengthInSamples is the per-channel length, 0 if unknown
	LengthInSamples() int64

	// Read decodes up to numSamples frames into buf starting at
	// startSampleInBuffer. Returns frames actually read; io.EOF once the
	// stream is exhausted.
	Read(buf *audio.SampleBuffer, startSampleInBuffer, numSamples int) (int, error)

	// Rewind restarts decoding from the first frame
	Rewind() error

	// Close releases decoder resources
	Close() error
}

// OpenFunc creates a Reader over an open file. The reader owns the file.
type OpenFunc func(f *os.File) (Reader, error)

// Registry maps lowercase file extensions to openers
type Registry struct {
	mu      sync.RWMutex
	openers map[string]OpenFunc
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{openers: make(map[string]OpenFunc)}
}

// DefaultRegistry knows every built-in format
var DefaultRegistry = func() *Registry {
	r := NewRegistry()
	r.Register(".wav", openWAV)
	r.Register(".wave", openWAV)
	r.Register(".aif", openAIFF)
	r.Register(".aiff", openAIFF)
	r.Register(".mp3", openMP3)
	r.Register(".ogg", openVorbis)
	r.Register(".oga", openVorbis)
	r.Register(".flac", openFLAC)
	r.Register(".opus", openOpus)
	return r
}()

// Register adds or replaces the opener for ext (with leading dot)
func (r *Registry) Register(ext string, fn OpenFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.openers[strings.ToLower(ext)] = fn
}

// Get returns the opener for ext
func (r *Registry) Get(ext string) (OpenFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.openers[strings.ToLower(ext)]
	return fn, ok
}

// Extensions lists registered extensions
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.openers))
	for ext := range r.openers {
		exts = append(exts, ext)
	}
	return exts
}

// Open opens path with the reader registered for its extension
func (r *Registry) Open(path string) (Reader, error) {
	ext := strings.ToLower(filepath.Ext(path))
	fn, ok := r.Get(ext)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio file: %w", err)
	}

	reader, err := fn(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return reader, nil
}

// Open opens path using DefaultRegistry
func Open(path string) (Reader, error) {
	return DefaultRegistry.Open(path)
}

// readChunkFrames bounds a single Read call in ReadAll
const readChunkFrames = 16384

// ReadAll decodes the remaining stream into one buffer
func ReadAll(r Reader) (*audio.SampleBuffer, error) {
	channels := r.NumChannels()
	length := int(r.LengthInSamples())

	if length > 0 {
		buf := audio.NewSampleBuffer(channels, length)
		filled := 0
		for filled < length {
			n, err := r.Read(buf, filled, min(readChunkFrames, length-filled))
			filled += n
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, fmt.Errorf("decode failed after %d frames: %w", filled, err)
			}
			if n == 0 {
				break
			}
		}
		if filled < length {
			return truncate(buf, filled), nil
		}
		return buf, nil
	}

	// Unknown length: grow chunk by chunk
	chunks := make([][]float32, channels)
	chunk := audio.NewSampleBuffer(channels, readChunkFrames)
	for {
		n, err := r.Read(chunk, 0, readChunkFrames)
		for c := range channels {
			chunks[c] = append(chunks[c], chunk.Channel(c)[:n]...)
		}
		if err == io.EOF || (err == nil && n == 0) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode failed: %w", err)
		}
	}
	return audio.SampleBufferFrom(chunks), nil
}

func truncate(buf *audio.SampleBuffer, frames int) *audio.SampleBuffer {
	chans := make([][]float32, buf.NumChannels())
	for c := range chans {
		chans[c] = buf.Channel(c)[:frames]
	}
	return audio.SampleBufferFrom(chans)
}

// deinterleave spreads interleaved src frames into buf at start. Buffer
// channels beyond the source channel count are zeroed.
func deinterleave(buf *audio.SampleBuffer, start int, src []float32, srcChannels, frames int) {
	for c := 0; c < buf.NumChannels(); c++ {
		dst := buf.Channel(c)[start : start+frames]
		if c >= srcChannels {
			clear(dst)
			continue
		}
		for i := range dst {
			dst[i] = src[i*srcChannels+c]
		}
	}
}

// checkRead validates a Read request against buf
func checkRead(buf *audio.SampleBuffer, start, numSamples int) (int, error) {
	if start < 0 || start > buf.NumSamples() {
		return 0, fmt.Errorf("start sample %d outside buffer of %d", start, buf.NumSamples())
	}
	return min(numSamples, buf.NumSamples()-start), nil
}
