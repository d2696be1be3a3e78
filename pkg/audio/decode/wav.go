// ABOUTME: WAV file reader
// ABOUTME: Decodes PCM WAV files using go-audio/wav
package decode

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

// WAV format tags accepted as integer PCM
const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

func newWAVDecoder(f *os.File) (*wav.Decoder, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a WAV file", ErrInvalidFile)
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("failed to locate PCM data: %w", err)
	}
	return dec, nil
}

func openWAV(f *os.File) (Reader, error) {
	dec, err := newWAVDecoder(f)
	if err != nil {
		return nil, err
	}

	if dec.WavAudioFormat != wavFormatPCM && dec.WavAudioFormat != wavFormatExtensible {
		return nil, fmt.Errorf("%w: WAV format tag %d is not integer PCM", ErrUnsupportedFormat, dec.WavAudioFormat)
	}

	format := dec.Format()
	bitDepth := int(dec.BitDepth)
	if err := validDepth(bitDepth); err != nil {
		return nil, err
	}
	if format.NumChannels <= 0 {
		return nil, fmt.Errorf("%w: no channels", ErrInvalidFile)
	}

	frameBytes := int64(bitDepth/8) * int64(format.NumChannels)

	return &pcmReader{
		file: f,
		dec:  dec,
		reset: func(f *os.File) (pcmDecoder, error) {
			return newWAVDecoder(f)
		},
		sampleRate: format.SampleRate,
		channels:   format.NumChannels,
		bitDepth:   bitDepth,
		unsigned8:  bitDepth == 8,
		length:     dec.PCMLen() / frameBytes,
	}, nil
}
