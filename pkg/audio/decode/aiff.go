// ABOUTME: AIFF file reader
// ABOUTME: Decodes PCM AIFF files using go-audio/aiff
package decode

import (
	"fmt"
	"os"

	"github.com/go-audio/aiff"
)

func newAIFFDecoder(f *os.File) (*aiff.Decoder, error) {
	dec := aiff.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not an AIFF file", ErrInvalidFile)
	}
	dec.ReadInfo()
	return dec, nil
}

func openAIFF(f *os.File) (Reader, error) {
	dec, err := newAIFFDecoder(f)
	if err != nil {
		return nil, err
	}

	bitDepth := int(dec.BitDepth)
	if err := validDepth(bitDepth); err != nil {
		return nil, err
	}
	format := dec.Format()
	if format == nil || format.NumChannels <= 0 {
		return nil, fmt.Errorf("%w: unsupported AIFF layout", ErrInvalidFile)
	}

	return &pcmReader{
		file: f,
		dec:  dec,
		reset: func(f *os.File) (pcmDecoder, error) {
			return newAIFFDecoder(f)
		},
		sampleRate: format.SampleRate,
		channels:   format.NumChannels,
		bitDepth:   bitDepth,
		length:     int64(dec.NumSampleFrames),
	}, nil
}
