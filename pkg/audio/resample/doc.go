// ABOUTME: Audio resampling package
// ABOUTME: Converts audio between sample rates with linear or polyphase filtering
// Package resample provides audio sample rate conversion.
//
// Resampler is a streaming linear interpolator that keeps state across
// chunks, suitable for feeding a ring buffer piece by piece. Buffer converts
// a whole SampleBuffer and can use the high quality polyphase resampler from
// go-audio-resampler.
//
// Example:
//
//	r := resample.New(44100, 48000, 2)
//	n := r.Resample(in, inFrames, out)
//
//	converted, err := resample.Buffer(buf, 44100, 48000, resample.QualityHigh)
package resample
