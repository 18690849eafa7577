// ABOUTME: Relay TUI for displaying connected clients and stats
// ABOUTME: Real-time relay status display using bubbletea
package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// RelayTUI manages the relay TUI
type RelayTUI struct {
	program *tea.Program
	updates chan RelayStatus
}

// RelayStatus holds relay state for the TUI
type RelayStatus struct {
	Name       string
	Addr       string
	Broadcasts int64
	Clients    []RelayClient
}

// RelayClient holds client information for display
type RelayClient struct {
	ID          string
	RemoteAddr  string
	ConnectedAt time.Time
	Sent        int64
	Dropped     int64
}

type relayModel struct {
	status    RelayStatus
	startTime time.Time
	quitting  bool
}

type tickMsg time.Time
type relayStatusMsg RelayStatus

func (m relayModel) Init() tea.Cmd {
	return tickEvery()
}

func tickEvery() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m relayModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		return m, tickEvery()

	case relayStatusMsg:
		m.status = RelayStatus(msg)
	}

	return m, nil
}

func (m relayModel) View() string {
	if m.quitting {
		return "Shutting down relay...\n"
	}

	clientHeaderStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("220"))

	var b strings.Builder

	b.WriteString(titleStyle.Render("FM Radio Relay"))
	b.WriteString("\n\n")

	writeField := func(name, value string) {
		b.WriteString(headerStyle.Render(name + ": "))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}

	writeField("Relay", m.status.Name)
	writeField("Listening", m.status.Addr)
	writeField("Uptime", time.Since(m.startTime).Round(time.Second).String())
	writeField("Broadcasts", fmt.Sprintf("%d", m.status.Broadcasts))
	b.WriteString("\n")

	b.WriteString(clientHeaderStyle.Render(fmt.Sprintf("Connected Clients (%d)", len(m.status.Clients))))
	b.WriteString("\n\n")

	if len(m.status.Clients) == 0 {
		b.WriteString(valueStyle.Render("  No clients connected"))
		b.WriteString("\n")
	}
	for _, c := range m.status.Clients {
		b.WriteString(fmt.Sprintf("  • %s", truncate(c.ID, 8)))
		b.WriteString(valueStyle.Render(fmt.Sprintf(" %s  up %s  sent %d  dropped %d",
			c.RemoteAddr, time.Since(c.ConnectedAt).Round(time.Second), c.Sent, c.Dropped)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("Press 'q' or Ctrl+C to quit"))

	return b.String()
}

// NewRelayTUI creates a new relay TUI
func NewRelayTUI(name, addr string) *RelayTUI {
	t := &RelayTUI{
		updates: make(chan RelayStatus, 10),
	}

	m := relayModel{
		status:    RelayStatus{Name: name, Addr: addr},
		startTime: time.Now(),
	}
	t.program = tea.NewProgram(m, tea.WithAltScreen())

	return t
}

// Start runs the TUI until the user quits or Stop is called
func (t *RelayTUI) Start() error {
	go func() {
		for status := range t.updates {
			t.program.Send(relayStatusMsg(status))
		}
	}()

	_, err := t.program.Run()
	return err
}

// Update sends a status update to the TUI
func (t *RelayTUI) Update(status RelayStatus) {
	select {
	case t.updates <- status:
	default:
		// Don't block if channel is full
	}
}

// Stop stops the TUI
func (t *RelayTUI) Stop() {
	t.program.Quit()
}
