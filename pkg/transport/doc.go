// ABOUTME: Transport package documentation
// ABOUTME: Describes the real-time callback and control threading
// Package transport is the playback core: a play/stop state machine, the
// real-time block callback and the sources it renders from.
//
// The output device calls Engine.Process once per block on its driver
// goroutine. Process only touches atomics: the active source is published
// with a single pointer swap and the previous one is closed on the control
// goroutine after any in-flight block has finished.
//
// State flows Stopped -> Starting -> Playing -> Stopping -> Stopped. Play and
// Stop move to the intermediate states; the callback raises a rolling flag
// once it has emitted (or stopped emitting) audio and Run or Dispatch
// completes the transition.
//
// Example:
//
//	engine := transport.NewEngine(transport.Config{SampleRate: 48000})
//	go engine.Run(ctx)
//	out.Open(output.Config{SampleRate: 48000, Channels: 2}, engine.Process)
//
//	loader := &transport.Loader{DeviceRate: 48000, MaxDuration: 10 * time.Minute}
//	src, info, err := loader.Load("song.wav")
//	engine.Install(src, info)
//	engine.Play()
package transport
