// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines SampleBuffer, Block and gain/sample conversion helpers
// Package audio provides fundamental audio types shared by the decoder,
// transport and output packages.
//
// This package defines:
//   - SampleBuffer: planar float32 samples, one slice per channel
//   - Block: the input/output buffers handed to a real-time callback
//   - ChannelMask: which driver channels are active for a block
//   - Format: sample rate, channel count and bit depth of a stream
//
// It also provides sample conversion between float32 and 16/24-bit PCM and
// the 0-100 gain mapping used by the UI.
//
// Example:
//
//	buf := audio.NewSampleBuffer(2, 48000)
//	left := buf.Channel(0)
//	left[0] = audio.SampleFromInt16(16384) // 0.5
package audio
