// ABOUTME: File loading path from decoder reader to installable source
// ABOUTME: Applies the duration policy, decodes or streams, and resamples to the device rate
package transport

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Resonate-Protocol/tapedeck/pkg/audio/decode"
	"github.com/Resonate-Protocol/tapedeck/pkg/audio/resample"
)

// Mode selects how files are turned into sources
type Mode int

const (
	// ModeBuffered decodes the whole file before playback
	ModeBuffered Mode = iota
	// ModeStreaming decodes on a feeder goroutine during playback
	ModeStreaming
	// ModeLive ignores files and passes device input through
	ModeLive
)

var ErrUnknownMode = errors.New("unknown playback mode")

// ParseMode accepts "buffered", "streaming" or "live"
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buffered", "buffer", "":
		return ModeBuffered, nil
	case "streaming", "stream":
		return ModeStreaming, nil
	case "live", "passthrough":
		return ModeLive, nil
	default:
		return ModeBuffered, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

func (m Mode) String() string {
	switch m {
	case ModeStreaming:
		return "streaming"
	case ModeLive:
		return "live"
	default:
		return "buffered"
	}
}

// Loader builds sources from files off the audio thread
type Loader struct {
	// DeviceRate is the rate sources are converted to
	DeviceRate int

	// MaxDuration rejects longer files; 0 disables the check
	MaxDuration time.Duration

	// Mode selects buffered or streaming sources
	Mode Mode

	// Quality selects the resampler for buffered sources
	Quality resample.Quality

	// Open opens a decoder; defaults to decode.Open
	Open func(path string) (decode.Reader, error)
}

// Load opens path and returns a source ready to install. On failure nothing
// is left open.
func (l *Loader) Load(path string) (Source, SourceInfo, error) {
	open := l.Open
	if open == nil {
		open = decode.Open
	}

	r, err := open(path)
	if err != nil {
		return nil, SourceInfo{}, &DecodeError{Path: path, Err: err}
	}

	info := SourceInfo{
		ID:         uuid.New(),
		Path:       path,
		Name:       filepath.Base(path),
		SampleRate: r.SampleRate(),
		Channels:   r.NumChannels(),
		LoadedAt:   time.Now(),
	}

	if r.SampleRate() <= 0 {
		r.Close()
		return nil, SourceInfo{}, &DecodeError{Path: path, Err: fmt.Errorf("invalid sample rate %d", r.SampleRate())}
	}

	if err := l.checkDuration(r.LengthInSamples(), r.SampleRate()); err != nil {
		r.Close()
		return nil, SourceInfo{}, err
	}

	rate := l.DeviceRate
	if rate <= 0 {
		rate = r.SampleRate()
	}

	var src Source
	if l.Mode == ModeStreaming {
		src = NewStreamingSource(r, rate)
	} else {
		src, err = l.buffered(r, path, rate)
		if err != nil {
			return nil, SourceInfo{}, err
		}
	}

	info.Kind = src.Kind()
	info.NumSamples = src.NumSamples()
	info.Duration = framesToDuration(info.NumSamples, rate)

	log.Printf("Loaded %s: %dHz %dch, %v (%s)", info.Name, info.SampleRate, info.Channels,
		info.Duration.Round(time.Millisecond), info.Kind)

	return src, info, nil
}

// buffered decodes r fully and closes it
func (l *Loader) buffered(r decode.Reader, path string, rate int) (Source, error) {
	defer r.Close()

	buf, err := decode.ReadAll(r)
	if err != nil {
		return nil, &DecodeError{Path: path, Err: err}
	}

	// Lengths the header did not report are only known now
	if r.LengthInSamples() <= 0 {
		if err := l.checkDuration(int64(buf.NumSamples()), r.SampleRate()); err != nil {
			return nil, err
		}
	}

	buf, err = resample.Buffer(buf, r.SampleRate(), rate, l.Quality)
	if err != nil {
		return nil, fmt.Errorf("resample %s: %w", filepath.Base(path), err)
	}
	return NewBufferedSource(buf), nil
}

func (l *Loader) checkDuration(frames int64, sampleRate int) error {
	if l.MaxDuration <= 0 || frames <= 0 {
		return nil
	}
	d := framesToDuration(frames, sampleRate)
	if d > l.MaxDuration {
		return fmt.Errorf("%w: %v > %v", ErrDurationExceeded, d.Round(time.Millisecond), l.MaxDuration)
	}
	return nil
}
