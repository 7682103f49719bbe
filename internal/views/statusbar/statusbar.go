// Package statusbar renders the top bar: device identity, push-channel
// state and the session gate indicator.
package statusbar

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/kaber420/mikroisp-manager-sub000/internal/theme"
)

// Model holds the status bar state.
type Model struct {
	Width int

	DeviceName  string
	DeviceModel string
	Connected   bool // push channel
	GateHeld    bool
	Suppressed  int // refreshes dropped while the gate was held
}

// New creates a status bar model.
func New() Model {
	return Model{}
}

// View renders the status bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	var connStr string
	if m.Connected {
		connStr = lipgloss.NewStyle().Foreground(theme.ColorHealthy).Render("● push")
	} else {
		connStr = lipgloss.NewStyle().Foreground(theme.ColorDanger).Render("○ push")
	}

	device := theme.StyleHeader.Render(m.DeviceName)
	if m.DeviceModel != "" {
		device += theme.StyleDimmed.Render(" (" + m.DeviceModel + ")")
	}

	gate := theme.StyleDimmed.Render("idle")
	if m.GateHeld {
		gate = lipgloss.NewStyle().Foreground(theme.ColorWarning).Render("session active")
		if m.Suppressed > 0 {
			gate += theme.StyleDimmed.Render(fmt.Sprintf(" (%d refresh dropped)", m.Suppressed))
		}
	}

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	content := device + sep + connStr + sep + gate

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}
