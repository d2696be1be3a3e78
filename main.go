// ABOUTME: Entry point for the tapedeck player
// ABOUTME: Parses CLI flags and runs the player with or without the TUI
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Resonate-Protocol/tapedeck/internal/ui"
	"github.com/Resonate-Protocol/tapedeck/internal/version"
	"github.com/Resonate-Protocol/tapedeck/pkg/audio/output"
	"github.com/Resonate-Protocol/tapedeck/pkg/audio/resample"
	"github.com/Resonate-Protocol/tapedeck/pkg/tapedeck"
	"github.com/Resonate-Protocol/tapedeck/pkg/transport"
)

// options holds the root command flags
type options struct {
	backend         string
	mode            string
	sampleRate      int
	channels        int
	inputChannels   int
	blockFrames     int
	maxDuration     time.Duration
	gain            int
	resampleQuality string
	watch           bool
	logFile         string
	noTUI           bool
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:          "tapedeck [file]",
		Short:        "Play one audio file on a loop with transport controls",
		Version:      version.Version,
		Args:         cobra.MaximumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			}
			return run(opts, path)
		},
	}

	cmd.SetVersionTemplate(version.String() + "\n")

	flags := cmd.Flags()
	flags.StringVar(&opts.backend, "backend", "malgo", fmt.Sprintf("Output backend (%s)", joinBackends()))
	flags.StringVar(&opts.mode, "mode", "buffered", "Playback mode (buffered, streaming, live)")
	flags.IntVar(&opts.sampleRate, "sample-rate", output.DefaultSampleRate, "Device sample rate in Hz")
	flags.IntVar(&opts.channels, "channels", output.DefaultChannels, "Device output channels")
	flags.IntVar(&opts.inputChannels, "input-channels", 0, "Device input channels (live mode defaults to 2)")
	flags.IntVar(&opts.blockFrames, "block-frames", output.DefaultBlockFrames, "Frames per audio callback")
	flags.DurationVar(&opts.maxDuration, "max-duration", 10*time.Minute, "Reject longer files (negative disables)")
	flags.IntVar(&opts.gain, "gain", 100, "Initial gain (0-100)")
	flags.StringVar(&opts.resampleQuality, "resample-quality", "high", "Resampler for buffered files (linear, high)")
	flags.BoolVar(&opts.watch, "watch", false, "Reload the file when it changes on disk")
	flags.StringVar(&opts.logFile, "log-file", "tapedeck.log", "Log file path")
	flags.BoolVar(&opts.noTUI, "no-tui", false, "Disable TUI, use streaming logs instead")

	cmd.AddCommand(infoCmd())
	return cmd
}

func joinBackends() string {
	return strings.Join(output.Backends(), ", ")
}

func run(opts *options, path string) error {
	mode, err := transport.ParseMode(opts.mode)
	if err != nil {
		return err
	}
	quality, err := resample.ParseQuality(opts.resampleQuality)
	if err != nil {
		return err
	}
	if path == "" && mode != transport.ModeLive {
		return errors.New("a file is required unless --mode=live")
	}

	useTUI := !opts.noTUI

	// Set up logging
	f, err := os.OpenFile(opts.logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("error opening log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if useTUI {
		// TUI mode: log only to file
		log.SetOutput(f)
	} else {
		// Streaming logs mode: log to both stdout and file
		log.SetOutput(io.MultiWriter(os.Stdout, f))
		log.Printf("Starting %s", version.String())
	}

	player, err := tapedeck.NewPlayer(tapedeck.Config{
		Backend:         opts.backend,
		Mode:            mode,
		SampleRate:      opts.sampleRate,
		Channels:        opts.channels,
		InputChannels:   opts.inputChannels,
		BlockFrames:     opts.blockFrames,
		MaxDuration:     opts.maxDuration,
		Volume:          &opts.gain,
		ResampleQuality: quality,
		Watch:           opts.watch,
		OnStateChange: func(s transport.State) {
			log.Printf("State: %s", s)
		},
		OnLoad: func(info transport.SourceInfo) {
			log.Printf("Ready: %s (%v)", info.Name, info.Duration.Round(time.Millisecond))
		},
	})
	if err != nil {
		return err
	}

	if err := player.Start(); err != nil {
		_ = player.Close()
		return err
	}

	if path != "" {
		if err := player.Open(path); err != nil {
			_ = player.Close()
			return err
		}
	}

	// TUI setup
	var ctrl *ui.Control
	done := make(chan struct{})
	defer close(done)
	if useTUI {
		ctrl = ui.NewControl()
		prog := ui.Run(player, ctrl)
		go func() {
			if _, err := prog.Run(); err != nil {
				log.Printf("TUI error: %v", err)
			}
		}()
		go handleCommands(player, ctrl, done)
	} else if err := player.Play(); err != nil {
		log.Printf("Failed to start playback: %v", err)
	}

	// Handle shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Wait for quit signal from TUI or OS
	if ctrl != nil {
		select {
		case <-ctrl.Quit:
			log.Printf("Received quit signal from TUI")
		case <-sigChan:
			log.Printf("Shutdown signal received")
		}
	} else {
		<-sigChan
		log.Printf("Shutdown signal received")
	}

	if err := player.Close(); err != nil {
		log.Printf("Error closing player: %v", err)
	}

	log.Printf("Player stopped")
	return nil
}

// handleCommands applies TUI commands to the player
func handleCommands(player *tapedeck.Player, ctrl *ui.Control, done <-chan struct{}) {
	for {
		select {
		case cmd := <-ctrl.Commands:
			if err := apply(player, cmd); err != nil && !errors.Is(err, transport.ErrNoActiveSource) {
				log.Printf("Command failed: %v", err)
			}
		case <-done:
			return
		}
	}
}

func apply(player *tapedeck.Player, cmd ui.Command) error {
	switch cmd.Kind {
	case ui.CommandToggle:
		return player.Toggle()
	case ui.CommandGain:
		player.SetGain(cmd.Gain)
	case ui.CommandMute:
		player.SetMuted(cmd.Muted)
	case ui.CommandSeek:
		return player.Seek(cmd.Amount)
	case ui.CommandNudge:
		return player.Nudge(cmd.Amount)
	}
	return nil
}
