// ABOUTME: High-level API for tapedeck playback
// ABOUTME: Package documentation and usage examples
// Package tapedeck provides a simple audio file player.
//
// A Player owns an output device and a transport engine. Files are decoded
// (or streamed) off the audio thread and swapped in atomically; the device
// callback renders whatever source is active, looping at the end.
//
// Example:
//
//	player, err := tapedeck.NewPlayer(tapedeck.Config{
//		Backend: "malgo",
//		OnStateChange: func(s transport.State) {
//			log.Printf("Transport: %s", s)
//		},
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer player.Close()
//
//	if err := player.Start(); err != nil {
//		log.Fatal(err)
//	}
//	if err := player.Open("loop.wav"); err != nil {
//		log.Fatal(err)
//	}
//	player.Play()
package tapedeck
