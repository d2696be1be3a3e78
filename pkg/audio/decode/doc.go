// ABOUTME: Audio decoder package for multiple file formats
// ABOUTME: Provides the Reader interface, a format registry and WAV/AIFF/MP3/Vorbis/FLAC readers
// Package decode turns audio files into planar float32 samples.
//
// Supports: WAV and AIFF (8/16/24/32-bit PCM), MP3, Ogg Vorbis, FLAC
//
// Every format implements the Reader interface. Readers are not safe for
// concurrent use and must never be driven from a real-time audio callback.
//
// Example:
//
//	r, err := decode.Open("loop.wav")
//	buf := audio.NewSampleBuffer(r.NumChannels(), int(r.LengthInSamples()))
//	n, err := r.Read(buf, 0, buf.NumSamples())
//
// ReadAll decodes a whole file into one SampleBuffer.
package decode
