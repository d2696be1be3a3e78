// ABOUTME: TUI initialization and control
// ABOUTME: Wraps the bubbletea program and the command channel to the player
package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Resonate-Protocol/tapedeck/pkg/audio/waveform"
	"github.com/Resonate-Protocol/tapedeck/pkg/transport"
)

// pollInterval is how often the model refreshes from the player
const pollInterval = 40 * time.Millisecond

// Source is the read side of the player polled by the TUI
type Source interface {
	Snapshot() transport.Snapshot
	Thumbnail() *waveform.Thumbnail
}

// CommandKind identifies a user command
type CommandKind int

const (
	CommandToggle CommandKind = iota
	CommandGain
	CommandMute
	CommandSeek
	CommandNudge
)

// Command is a user request forwarded to the player
type Command struct {
	Kind   CommandKind
	Gain   int
	Muted  bool
	Amount float64 // seek target or nudge delta as a fraction
}

// QuitMsg signals the user asked to quit
type QuitMsg struct{}

// Control holds channels for communication with the player goroutine
type Control struct {
	Commands chan Command
	Quit     chan QuitMsg
}

// NewControl creates a new control handler
func NewControl() *Control {
	return &Control{
		Commands: make(chan Command, 16),
		Quit:     make(chan QuitMsg, 1),
	}
}

// NewModel creates a new TUI model. src and ctrl may be nil in tests.
func NewModel(src Source, ctrl *Control) Model {
	return Model{
		src:    src,
		ctrl:   ctrl,
		keys:   DefaultKeyMap(),
		volume: 100,
		state:  transport.Stopped,
	}
}

// Run creates the TUI program
func Run(src Source, ctrl *Control) *tea.Program {
	return tea.NewProgram(NewModel(src, ctrl), tea.WithAltScreen())
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type tickMsg time.Time
