// ABOUTME: Transport state machine states
// ABOUTME: Defines the four transport states and the controls each enables
package transport

// State is the transport state
type State int

const (
	Stopped State = iota
	Starting
	Playing
	Stopping
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Starting:
		return "starting"
	case Playing:
		return "playing"
	case Stopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// Controls reports which UI controls are enabled
type Controls struct {
	Play bool
	Stop bool
}

// ControlsFor returns the enabled controls for a state. Play additionally
// requires a loaded source.
func ControlsFor(s State, hasSource bool) Controls {
	switch s {
	case Stopped:
		return Controls{Play: hasSource}
	case Playing:
		return Controls{Stop: true}
	default:
		// Starting and Stopping wait for the audio callback
		return Controls{}
	}
}
