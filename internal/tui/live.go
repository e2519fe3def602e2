// Package tui renders a live view of a running protocol: stage, timestep,
// setpoint, box, and walltime, fed by status updates between run chunks.
package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/polymerlab/polymd/internal/protocol"
)

const historyCapacity = 600

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(12)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	stageStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type statusMsg protocol.Status

type doneMsg struct{ err error }

// Model drains protocol statuses over a channel and renders the latest one,
// with a temperature history sparkline.
type Model struct {
	name      string
	statusCh  <-chan protocol.Status
	doneCh    <-chan error
	last      protocol.Status
	ktHistory []float64
	done      bool
	err       error
}

// NewModel builds a live view for one named scenario. The view quits once
// doneCh reports the protocol outcome.
func NewModel(name string, statusCh <-chan protocol.Status, doneCh <-chan error) Model {
	return Model{
		name:      name,
		statusCh:  statusCh,
		doneCh:    doneCh,
		ktHistory: make([]float64, 0, historyCapacity),
	}
}

// Err reports the protocol outcome once the view has quit.
func (m Model) Err() error { return m.err }

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitStatus(), m.waitDone())
}

func (m Model) waitStatus() tea.Cmd {
	return func() tea.Msg {
		s, ok := <-m.statusCh
		if !ok {
			return nil
		}
		return statusMsg(s)
	}
}

func (m Model) waitDone() tea.Cmd {
	return func() tea.Msg {
		return doneMsg{err: <-m.doneCh}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case statusMsg:
		m.last = protocol.Status(msg)
		m.ktHistory = append(m.ktHistory, m.last.KT)
		if len(m.ktHistory) > historyCapacity {
			m.ktHistory = m.ktHistory[len(m.ktHistory)-historyCapacity:]
		}
		return m, m.waitStatus()
	case doneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("polymd :: " + m.name))
	b.WriteString("\n")

	rows := []struct {
		label, value string
	}{
		{"stage", stageStyle.Render(m.last.State.String())},
		{"timestep", fmt.Sprintf("%d", m.last.Timestep)},
		{"kT", fmt.Sprintf("%.3f", m.last.KT)},
		{"box", fmt.Sprintf("%.3f x %.3f x %.3f", m.last.Box.Lx, m.last.Box.Ly, m.last.Box.Lz)},
		{"walltime", m.last.Walltime.Round(time.Second).String()},
	}
	for _, row := range rows {
		b.WriteString(labelStyle.Render(row.label))
		b.WriteString(valueStyle.Render(row.value))
		b.WriteString("\n")
	}

	if len(m.ktHistory) > 1 {
		graph := asciigraph.Plot(m.ktHistory,
			asciigraph.Height(8),
			asciigraph.Width(60),
			asciigraph.Caption("kT"),
		)
		b.WriteString(graphStyle.Render(graph))
		b.WriteString("\n")
	}

	if m.done {
		if m.err != nil {
			b.WriteString(failStyle.Render("failed: " + m.err.Error()))
		} else {
			b.WriteString(valueStyle.Render("complete"))
		}
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("q quit"))
	return panelStyle.Render(b.String())
}
