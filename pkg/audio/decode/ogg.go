// ABOUTME: Minimal Ogg page inspection for Opus files
// ABOUTME: Reads the OpusHead packet and the final granule position
package decode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// opusRate is the rate every Opus stream decodes at
const opusRate = 48000

// opusHead holds the identification header fields we need
type opusHead struct {
	Channels  int
	PreSkip   int64
	InputRate int
}

// parseOpusHead finds the OpusHead packet in the first page of r
func parseOpusHead(r io.ReaderAt) (opusHead, error) {
	buf := make([]byte, 512)
	n, err := r.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return opusHead{}, err
	}
	buf = buf[:n]

	if !bytes.HasPrefix(buf, []byte("OggS")) {
		return opusHead{}, fmt.Errorf("%w: not an Ogg stream", ErrInvalidFile)
	}
	i := bytes.Index(buf, []byte("OpusHead"))
	if i < 0 || i+19 > len(buf) {
		return opusHead{}, fmt.Errorf("%w: missing OpusHead", ErrInvalidFile)
	}

	head := opusHead{
		Channels:  int(buf[i+9]),
		PreSkip:   int64(binary.LittleEndian.Uint16(buf[i+10:])),
		InputRate: int(binary.LittleEndian.Uint32(buf[i+12:])),
	}
	if head.Channels == 0 {
		return opusHead{}, fmt.Errorf("%w: no channels", ErrInvalidFile)
	}
	return head, nil
}

// lastGranule returns the granule position of the last page in r
func lastGranule(r io.ReaderAt, size int64) (int64, error) {
	const tail = 64 << 10
	off := max(size-tail, 0)
	buf := make([]byte, size-off)
	n, err := r.ReadAt(buf, off)
	if err != nil && err != io.EOF {
		return 0, err
	}
	buf = buf[:n]

	i := bytes.LastIndex(buf, []byte("OggS"))
	if i < 0 || i+14 > len(buf) {
		return 0, fmt.Errorf("%w: no Ogg page in tail", ErrInvalidFile)
	}
	return int64(binary.LittleEndian.Uint64(buf[i+6:])), nil
}

// opusLength is the decoded length in 48kHz frames, 0 if unknown
func opusLength(r io.ReaderAt, size int64, head opusHead) int64 {
	granule, err := lastGranule(r, size)
	if err != nil || granule <= head.PreSkip {
		return 0
	}
	return granule - head.PreSkip
}
