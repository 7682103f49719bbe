// Package eventlog provides a scrollable event log overlay. Inside the TUI
// it replaces stderr logging: session transitions, channel events and
// suppressed refreshes all land here.
package eventlog

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/kaber420/mikroisp-manager-sub000/internal/theme"
)

const maxEntries = 200

// Entry is a single event log line.
type Entry struct {
	Time    time.Time
	Kind    string // "live", "scan", "push", "err"
	Message string
}

// Model holds event log state.
type Model struct {
	Entries []Entry
	Offset  int // scroll offset (from bottom)
}

// New creates an empty event log.
func New() Model {
	return Model{}
}

// Add appends a log entry and caps the buffer.
func (m *Model) Add(kind, format string, args ...any) {
	m.Entries = append(m.Entries, Entry{
		Time:    time.Now(),
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
	})
	if len(m.Entries) > maxEntries {
		m.Entries = m.Entries[len(m.Entries)-maxEntries:]
	}
	m.Offset = 0
}

// ScrollUp moves the viewport up.
func (m *Model) ScrollUp(n int) {
	m.Offset += n
	if limit := len(m.Entries) - 1; m.Offset > limit {
		m.Offset = max(limit, 0)
	}
}

// ScrollDown moves the viewport down.
func (m *Model) ScrollDown(n int) {
	m.Offset -= n
	if m.Offset < 0 {
		m.Offset = 0
	}
}

func panelStyle(width int) lipgloss.Style {
	return lipgloss.NewStyle().
		Width(width).
		Padding(1, 2).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder)
}

// View renders the event log as an overlay panel.
func (m Model) View(width, height int) string {
	innerW := width - 4
	if innerW < 20 {
		innerW = 20
	}
	visibleLines := height - 6
	if visibleLines < 3 {
		visibleLines = 3
	}

	title := theme.StyleHeader.Render(" EVENT LOG ")
	help := theme.StyleDimmed.Render(fmt.Sprintf("j/k:scroll  esc:close  %d entries", len(m.Entries)))

	if len(m.Entries) == 0 {
		body := theme.StyleDimmed.Render("  No events recorded yet.")
		content := lipgloss.JoinVertical(lipgloss.Left, title, "", body, "", help)
		return panelStyle(innerW).Render(content)
	}

	end := len(m.Entries) - m.Offset
	start := end - visibleLines
	if start < 0 {
		start = 0
	}
	if end < 0 {
		end = 0
	}

	var lines []string
	for i := start; i < end; i++ {
		e := m.Entries[i]
		tsStr := theme.StyleDimmed.Render(e.Time.Format("15:04:05.000"))
		kindStr := lipgloss.NewStyle().Foreground(kindToColor(e.Kind)).Width(5).Render(e.Kind)
		msgStr := e.Message
		if len(msgStr) > innerW-20 && innerW > 20 {
			msgStr = msgStr[:innerW-23] + "..."
		}
		lines = append(lines, fmt.Sprintf("%s %s %s", tsStr, kindStr, msgStr))
	}

	body := strings.Join(lines, "\n")
	scrollIndicator := ""
	if m.Offset > 0 {
		scrollIndicator = theme.StyleDimmed.Render(fmt.Sprintf(" ↓ %d more", m.Offset))
	}

	content := lipgloss.JoinVertical(lipgloss.Left, title, body, scrollIndicator, help)
	return panelStyle(innerW).Render(content)
}

func kindToColor(kind string) lipgloss.Color {
	switch kind {
	case "live":
		return theme.ColorAccent
	case "scan":
		return theme.ColorScanning
	case "push":
		return theme.ColorStarting
	case "err":
		return theme.ColorDanger
	default:
		return theme.ColorDimmed
	}
}
