// ABOUTME: Key bindings for the player TUI
// ABOUTME: Maps keys to transport, gain and seek commands
package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings for the player
type KeyMap struct {
	Toggle   key.Binding
	GainUp   key.Binding
	GainDown key.Binding
	Preset   key.Binding
	Mute     key.Binding
	Back     key.Binding
	Forward  key.Binding
	Jump     key.Binding
	Quit     key.Binding
}

// DefaultKeyMap returns the default keybindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Toggle: key.NewBinding(
			key.WithKeys(" ", "enter"),
			key.WithHelp("space", "play/stop"),
		),
		GainUp: key.NewBinding(
			key.WithKeys("up", "+"),
			key.WithHelp("↑/↓", "gain"),
		),
		GainDown: key.NewBinding(
			key.WithKeys("down", "-"),
		),
		Preset: key.NewBinding(
			key.WithKeys("g"),
			key.WithHelp("g", "preset"),
		),
		Mute: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "mute"),
		),
		Back: key.NewBinding(
			key.WithKeys("left"),
			key.WithHelp("←/→", "seek"),
		),
		Forward: key.NewBinding(
			key.WithKeys("right"),
		),
		Jump: key.NewBinding(
			key.WithKeys("0", "1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("0-9", "jump"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp lists the bindings shown in the footer
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.GainUp, k.Preset, k.Mute, k.Back, k.Jump, k.Quit}
}
