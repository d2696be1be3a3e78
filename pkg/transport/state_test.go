// ABOUTME: Tests for transport states
// ABOUTME: Covers state names and available controls
package transport

import (
	"testing"
)

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Stopped, "stopped"},
		{Starting, "starting"},
		{Playing, "playing"},
		{Stopping, "stopping"},
		{State(42), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestControlsFor(t *testing.T) {
	tests := []struct {
		state     State
		hasSource bool
		want      Controls
	}{
		{Stopped, true, Controls{Play: true}},
		{Stopped, false, Controls{}},
		{Starting, true, Controls{}},
		{Playing, true, Controls{Stop: true}},
		{Stopping, true, Controls{}},
	}

	for _, tt := range tests {
		if got := ControlsFor(tt.state, tt.hasSource); got != tt.want {
			t.Errorf("ControlsFor(%v, %v) = %+v, want %+v", tt.state, tt.hasSource, got, tt.want)
		}
	}
}

func TestKindString(t *testing.T) {
	kinds := map[Kind]string{
		KindNone:      "none",
		KindBuffered:  "buffered",
		KindStreaming: "streaming",
		KindLive:      "live",
	}
	for k, want := range kinds {
		if k.String() != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, k.String(), want)
		}
	}
}
