// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides the callback-driven Output interface and its backends
// Package output provides callback-driven audio devices.
//
// Each backend invokes a Callback once per block on its own driver
// goroutine, handing it planar float32 buffers. Backends: oto, malgo
// (duplex when input channels are requested), beep, portaudio (build with
// -tags portaudio) and null (a virtual clock for headless use and tests).
//
// Example:
//
//	out, err := output.New("malgo")
//	err = out.Open(output.Config{SampleRate: 48000, Channels: 2}, engine.Process)
//	err = out.Start()
package output
