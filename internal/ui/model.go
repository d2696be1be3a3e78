// ABOUTME: Bubbletea model for the player TUI
// ABOUTME: Renders transport state, position, gain and waveform; emits commands
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/samber/lo"

	"github.com/Resonate-Protocol/tapedeck/pkg/audio/waveform"
	"github.com/Resonate-Protocol/tapedeck/pkg/transport"
)

const (
	gainStep = 5
	seekStep = 0.05
)

// gainPresets are cycled by the preset key
var gainPresets = []int{25, 50, 75, 100}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	playedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
	restStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	helpStyle   = lipgloss.NewStyle().Faint(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// Model represents the TUI state
type Model struct {
	src  Source
	ctrl *Control
	keys KeyMap

	// Transport
	state     transport.State
	controls  transport.Controls
	hasSource bool
	info      transport.SourceInfo
	elapsed   time.Duration
	duration  time.Duration

	// Gain
	volume int
	muted  bool

	underruns int64

	thumb *waveform.Thumbnail

	// Dimensions
	width  int
	height int

	quitting bool
}

// StatusMsg replaces the displayed player state
type StatusMsg struct {
	Snapshot  transport.Snapshot
	Thumbnail *waveform.Thumbnail
}

// Init starts polling the player
func (m Model) Init() tea.Cmd {
	return tick()
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tickMsg:
		if m.src != nil {
			m.applyStatus(StatusMsg{Snapshot: m.src.Snapshot(), Thumbnail: m.src.Thumbnail()})
		}
		return m, tick()
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// applyStatus updates the model from a player snapshot
func (m *Model) applyStatus(msg StatusMsg) {
	s := msg.Snapshot
	m.state = s.State
	m.controls = s.Controls
	m.hasSource = s.HasSource
	m.info = s.Source
	m.elapsed = s.Elapsed
	m.duration = s.Duration
	m.volume = s.Gain
	m.muted = s.Muted
	m.underruns = s.Underruns
	m.thumb = msg.Thumbnail
}

// fraction returns the playback position in [0,1]
func (m Model) fraction() float64 {
	if m.duration <= 0 {
		return 0
	}
	return lo.Clamp(float64(m.elapsed)/float64(m.duration), 0, 1)
}

// handleKey maps keys to player commands
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		if m.ctrl != nil {
			select {
			case m.ctrl.Quit <- QuitMsg{}:
			default:
			}
		}
		return m, tea.Quit

	case key.Matches(msg, m.keys.Toggle):
		m.send(Command{Kind: CommandToggle})

	case key.Matches(msg, m.keys.GainUp):
		m.volume = lo.Clamp(m.volume+gainStep, 0, 100)
		m.send(Command{Kind: CommandGain, Gain: m.volume})

	case key.Matches(msg, m.keys.GainDown):
		m.volume = lo.Clamp(m.volume-gainStep, 0, 100)
		m.send(Command{Kind: CommandGain, Gain: m.volume})

	case key.Matches(msg, m.keys.Preset):
		m.volume = nextPreset(m.volume)
		m.send(Command{Kind: CommandGain, Gain: m.volume})

	case key.Matches(msg, m.keys.Mute):
		m.muted = !m.muted
		m.send(Command{Kind: CommandMute, Muted: m.muted})

	case key.Matches(msg, m.keys.Back):
		m.send(Command{Kind: CommandNudge, Amount: -seekStep})

	case key.Matches(msg, m.keys.Forward):
		m.send(Command{Kind: CommandNudge, Amount: seekStep})

	case key.Matches(msg, m.keys.Jump):
		digit := int(msg.String()[0] - '0')
		m.send(Command{Kind: CommandSeek, Amount: float64(digit) / 10})
	}

	return m, nil
}

// send forwards a command without blocking the UI
func (m Model) send(cmd Command) {
	if m.ctrl == nil {
		return
	}
	select {
	case m.ctrl.Commands <- cmd:
	default:
	}
}

func nextPreset(volume int) int {
	for _, p := range gainPresets {
		if p > volume {
			return p
		}
	}
	return gainPresets[0]
}

// View renders the TUI
func (m Model) View() string {
	if m.quitting {
		return "Stopping...\n"
	}
	if m.width == 0 {
		return "Loading..."
	}

	width := lo.Clamp(m.width-4, 20, 120)

	var b strings.Builder
	b.WriteString(titleStyle.Render("tapedeck"))
	b.WriteString("\n\n")

	b.WriteString(m.renderSource())
	b.WriteString("\n")
	b.WriteString(m.renderWaveform(width))
	b.WriteString(m.renderPosition(width))
	b.WriteString("\n")
	b.WriteString(m.renderTransport())
	b.WriteString(m.renderGain())
	b.WriteString("\n")
	b.WriteString(m.renderHelp())

	return b.String()
}

func (m Model) renderSource() string {
	if !m.hasSource {
		return headerStyle.Render("File: ") + valueStyle.Render("(none)") + "\n"
	}

	s := headerStyle.Render("File:   ") + valueStyle.Render(truncate(m.info.Name, 60)) + "\n"
	if m.info.Kind == transport.KindLive {
		return s + headerStyle.Render("Source: ") + valueStyle.Render("live input") + "\n"
	}
	s += headerStyle.Render("Format: ") + valueStyle.Render(fmt.Sprintf("%dHz %s (%s)",
		m.info.SampleRate, channelName(m.info.Channels), m.info.Kind)) + "\n"
	return s
}

// renderWaveform draws one row of peaks, played part highlighted
func (m Model) renderWaveform(width int) string {
	if m.thumb == nil || m.info.Kind == transport.KindLive {
		return ""
	}

	const levels = "▁▂▃▄▅▆▇█"
	glyphs := []rune(levels)
	peaks := m.thumb.Resize(width)
	waveform.Normalize(peaks)
	played := int(m.fraction() * float64(len(peaks)))

	var head, tail strings.Builder
	for i, p := range peaks {
		g := glyphs[int(lo.Clamp(p, 0, 1)*float64(len(glyphs)-1))]
		if i < played {
			head.WriteRune(g)
		} else {
			tail.WriteRune(g)
		}
	}
	return playedStyle.Render(head.String()) + restStyle.Render(tail.String()) + "\n"
}

func (m Model) renderPosition(width int) string {
	if m.info.Kind == transport.KindLive {
		return ""
	}
	bar := renderBar(int(m.fraction()*1000), 1000, width)
	return playedStyle.Render(bar) + "\n" +
		valueStyle.Render(fmt.Sprintf("%s / %s", formatTime(m.elapsed), formatTime(m.duration))) + "\n"
}

func (m Model) renderTransport() string {
	icon := "■"
	switch m.state {
	case transport.Playing:
		icon = "▶"
	case transport.Starting, transport.Stopping:
		icon = "…"
	}

	var avail []string
	if m.controls.Play {
		avail = append(avail, "play")
	}
	if m.controls.Stop {
		avail = append(avail, "stop")
	}
	if len(avail) == 0 {
		avail = append(avail, "none")
	}

	line := headerStyle.Render("State:  ") + valueStyle.Render(fmt.Sprintf("%s %s", icon, m.state)) +
		restStyle.Render("  ["+strings.Join(avail, ", ")+"]")
	if m.underruns > 0 {
		line += warnStyle.Render(fmt.Sprintf("  underruns: %d", m.underruns))
	}
	return line + "\n"
}

func (m Model) renderGain() string {
	muteIcon := ""
	if m.muted {
		muteIcon = " 🔇"
	}
	return headerStyle.Render("Gain:   ") +
		valueStyle.Render(fmt.Sprintf("[%s] %d%%%s", renderBar(m.volume, 100, 10), m.volume, muteIcon)) + "\n"
}

func (m Model) renderHelp() string {
	var parts []string
	for _, k := range m.keys.ShortHelp() {
		h := k.Help()
		parts = append(parts, h.Key+":"+h.Desc)
	}
	return helpStyle.Render(strings.Join(parts, "  "))
}

// Utility functions
func renderBar(value, max, width int) string {
	filled := lo.Clamp((value*width)/max, 0, width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func formatTime(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

// truncate shortens s to at most width terminal cells
func truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "...")
}

func channelName(channels int) string {
	switch channels {
	case 1:
		return "Mono"
	case 2:
		return "Stereo"
	}
	return fmt.Sprintf("%dch", channels)
}
