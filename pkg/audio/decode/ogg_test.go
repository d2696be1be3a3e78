// ABOUTME: Tests for Ogg page inspection used by the Opus reader
// ABOUTME: Builds synthetic pages so no codec library is needed
package decode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// oggPage builds one Ogg page carrying payload as a single packet
func oggPage(granule int64, payload []byte) []byte {
	var b bytes.Buffer
	b.WriteString("OggS")
	b.WriteByte(0) // version
	b.WriteByte(0) // header type
	binary.Write(&b, binary.LittleEndian, granule)
	binary.Write(&b, binary.LittleEndian, uint32(1)) // serial
	binary.Write(&b, binary.LittleEndian, uint32(0)) // sequence
	binary.Write(&b, binary.LittleEndian, uint32(0)) // crc, unchecked
	b.WriteByte(1)
	b.WriteByte(byte(len(payload)))
	b.Write(payload)
	return b.Bytes()
}

func opusHeadPacket(channels byte, preSkip uint16, rate uint32) []byte {
	var b bytes.Buffer
	b.WriteString("OpusHead")
	b.WriteByte(1)
	b.WriteByte(channels)
	binary.Write(&b, binary.LittleEndian, preSkip)
	binary.Write(&b, binary.LittleEndian, rate)
	binary.Write(&b, binary.LittleEndian, uint16(0)) // gain
	b.WriteByte(0)                                   // mapping family
	return b.Bytes()
}

func TestParseOpusHead(t *testing.T) {
	data := oggPage(0, opusHeadPacket(2, 312, 44100))

	head, err := parseOpusHead(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 2, head.Channels)
	assert.Equal(t, int64(312), head.PreSkip)
	assert.Equal(t, 44100, head.InputRate)
}

func TestParseOpusHeadRejectsOtherStreams(t *testing.T) {
	_, err := parseOpusHead(bytes.NewReader([]byte("RIFF....WAVE")))
	assert.True(t, errors.Is(err, ErrInvalidFile))

	vorbis := oggPage(0, append([]byte{1}, []byte("vorbis")...))
	_, err = parseOpusHead(bytes.NewReader(vorbis))
	assert.True(t, errors.Is(err, ErrInvalidFile))
}

func TestOpusLengthFromLastPage(t *testing.T) {
	var data []byte
	data = append(data, oggPage(0, opusHeadPacket(1, 312, 48000))...)
	data = append(data, oggPage(0, []byte("OpusTags"))...)
	data = append(data, oggPage(24000, make([]byte, 40))...)
	data = append(data, oggPage(48312, make([]byte, 40))...)

	r := bytes.NewReader(data)
	head, err := parseOpusHead(r)
	require.NoError(t, err)

	granule, err := lastGranule(r, int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, int64(48312), granule)
	assert.Equal(t, int64(48000), opusLength(r, int64(len(data)), head))
}

func TestOpusLengthUnknown(t *testing.T) {
	head := opusHead{Channels: 1, PreSkip: 312}
	assert.Equal(t, int64(0), opusLength(bytes.NewReader([]byte("no pages")), 8, head))

	// granule inside the pre-skip region
	data := oggPage(100, nil)
	assert.Equal(t, int64(0), opusLength(bytes.NewReader(data), int64(len(data)), head))
}
