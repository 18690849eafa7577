// ABOUTME: Bubbletea model for the listener TUI
// ABOUTME: Shows connection, jitter buffer depth and volume
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("220"))

	helpStyle = lipgloss.NewStyle().Faint(true)
)

// Model represents the TUI state
type Model struct {
	// Connection
	connected  bool
	serverName string
	connects   int64
	link       string
	linkRTT    time.Duration

	// Stream
	codec      string
	sampleRate int

	// Buffer
	state      string
	bufferedMs float64
	targetMs   float64
	maxMs      float64
	belowMin   bool
	underruns  int64

	// Playback
	volume int
	muted  bool

	// Stats
	chunks     int64
	bytes      int64
	dropped    int64
	decodeErrs int64

	// Debug
	showDebug  bool
	goroutines int
	memAlloc   uint64

	volumeCtrl *VolumeControl

	// Dimensions
	width  int
	height int
}

// StatusMsg updates TUI state. Zero strings and a nil Connected leave the
// previous value; counters are always applied.
type StatusMsg struct {
	Connected  *bool
	ServerName string
	Connects   int64
	Link       string
	LinkRTT    time.Duration
	Codec      string
	SampleRate int
	State      string
	BufferedMs float64
	TargetMs   float64
	MaxMs      float64
	BelowMin   bool
	Underruns  int64
	Chunks     int64
	Bytes      int64
	Dropped    int64
	DecodeErrs int64
	Volume     int
	Goroutines int
	MemAlloc   uint64
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case StatusMsg:
		m.applyStatus(msg)
	}

	return m, nil
}

// View renders the TUI
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("FM Radio"))
	b.WriteString("\n\n")

	b.WriteString(m.renderConnection())
	b.WriteString(m.renderBuffer())
	b.WriteString(m.renderVolume())
	b.WriteString(m.renderStats())

	if m.showDebug {
		b.WriteString(m.renderDebug())
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓:Volume  m:Mute  d:Debug  q:Quit"))

	return b.String()
}

func (m Model) renderConnection() string {
	status := warnStyle.Render("Disconnected, retrying...")
	if m.connected {
		status = valueStyle.Render(fmt.Sprintf("Connected to %s", truncate(m.serverName, 40)))
	}

	s := headerStyle.Render("Status: ") + status + "\n"
	if m.connected && m.link != "" {
		link := fmt.Sprintf("%s (rtt %s)", m.link, m.linkRTT.Round(time.Millisecond))
		switch m.link {
		case "good":
			link = valueStyle.Render(link)
		case "off":
			link = helpStyle.Render("off (no heartbeat)")
		default:
			link = warnStyle.Render(link)
		}
		s += headerStyle.Render("Link:   ") + link + "\n"
	}
	if m.codec != "" {
		s += headerStyle.Render("Format: ") +
			valueStyle.Render(fmt.Sprintf("%s %dHz", m.codec, m.sampleRate)) + "\n"
	}
	return s + "\n"
}

func (m Model) renderBuffer() string {
	state := m.state
	if state == "" {
		state = "idle"
	}

	fill := fmt.Sprintf("[%s] %.0fms / target %.0fms",
		renderBar(int(m.bufferedMs), int(m.maxMs), 20), m.bufferedMs, m.targetMs)
	if m.belowMin {
		fill = warnStyle.Render(fill + " low")
	} else {
		fill = valueStyle.Render(fill)
	}

	return headerStyle.Render("Buffer: ") + valueStyle.Render(state) + "\n" +
		"        " + fill + "\n"
}

func (m Model) renderVolume() string {
	muteIcon := ""
	if m.muted {
		muteIcon = " (muted)"
	}

	return headerStyle.Render("Volume: ") +
		valueStyle.Render(fmt.Sprintf("[%s] %d%%%s", renderBar(m.volume, 100, 10), m.volume, muteIcon)) +
		"\n\n"
}

func (m Model) renderStats() string {
	return headerStyle.Render("Stats:  ") +
		valueStyle.Render(fmt.Sprintf("RX: %d (%s)  Underruns: %d  Dropped: %d",
			m.chunks, formatBytes(m.bytes), m.underruns, m.dropped)) + "\n"
}

func (m Model) renderDebug() string {
	return headerStyle.Render("Debug:  ") +
		valueStyle.Render(fmt.Sprintf("Connects: %d  Decode errors: %d  Goroutines: %d  Heap: %s",
			m.connects, m.decodeErrs, m.goroutines, formatBytes(int64(m.memAlloc)))) + "\n"
}

// handleKey handles keyboard input
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.volumeCtrl != nil {
			select {
			case m.volumeCtrl.Quit <- QuitMsg{}:
			default:
			}
		}
		return m, tea.Quit
	case "up":
		if m.volume < 100 {
			m.volume = min(m.volume+5, 100)
			m.sendVolume()
		}
	case "down":
		if m.volume > 0 {
			m.volume = max(m.volume-5, 0)
			m.sendVolume()
		}
	case "m":
		m.muted = !m.muted
		m.sendVolume()
	case "d":
		m.showDebug = !m.showDebug
	}

	return m, nil
}

// sendVolume notifies the player without blocking the UI
func (m Model) sendVolume() {
	if m.volumeCtrl == nil {
		return
	}
	select {
	case m.volumeCtrl.Changes <- VolumeChangeMsg{Volume: m.volume, Muted: m.muted}:
	default:
	}
}

// applyStatus updates model from status message
func (m *Model) applyStatus(msg StatusMsg) {
	if msg.Connected != nil {
		m.connected = *msg.Connected
	}
	if msg.ServerName != "" {
		m.serverName = msg.ServerName
	}
	if msg.Link != "" {
		m.link = msg.Link
		m.linkRTT = msg.LinkRTT
	}
	if msg.Codec != "" {
		m.codec = msg.Codec
		m.sampleRate = msg.SampleRate
	}
	if msg.State != "" {
		m.state = msg.State
		m.bufferedMs = msg.BufferedMs
		m.targetMs = msg.TargetMs
		m.maxMs = msg.MaxMs
		m.belowMin = msg.BelowMin
	}
	if msg.Volume != 0 {
		m.volume = msg.Volume
	}

	m.connects = msg.Connects
	m.underruns = msg.Underruns
	m.chunks = msg.Chunks
	m.bytes = msg.Bytes
	m.dropped = msg.Dropped
	m.decodeErrs = msg.DecodeErrs

	if msg.Goroutines != 0 {
		m.goroutines = msg.Goroutines
		m.memAlloc = msg.MemAlloc
	}
}

// Utility functions
func renderBar(value, max, width int) string {
	if max <= 0 {
		return strings.Repeat("░", width)
	}
	filled := (value * width) / max
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func truncate(s string, length int) string {
	if len(s) <= length {
		return s
	}
	return s[:length-3] + "..."
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
