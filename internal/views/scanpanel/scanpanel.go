// Package scanpanel renders the spectral-scan panel and defines the mapping
// from protocol-machine state to UI affordances.
package scanpanel

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kaber420/mikroisp-manager-sub000/internal/client"
	"github.com/kaber420/mikroisp-manager-sub000/internal/session"
	"github.com/kaber420/mikroisp-manager-sub000/internal/theme"
)

// DurationChoices are the capture lengths offered in the config panel.
var DurationChoices = []int{30, 60, 120, 300}

// Controls are the UI affordances for the current scan state: the single
// start/stop button, the configuration panel and the chart. ControlsFor is a
// pure function of the state tuple; rendering consumes it without adding
// behavior.
type Controls struct {
	ButtonLabel   string
	ButtonIcon    string
	ButtonEnabled bool
	ShowConfig    bool
	ShowChart     bool
	Status        string
}

// ControlsFor maps (session active, stage, countdown, gate busy elsewhere)
// onto the panel's affordances.
func ControlsFor(active bool, stage session.Stage, remaining int, otherSessionActive bool) Controls {
	if !active {
		return Controls{
			ButtonLabel:   "Start scan",
			ButtonIcon:    "▶",
			ButtonEnabled: !otherSessionActive,
			ShowConfig:    true,
			ShowChart:     false,
			Status:        busyStatus(otherSessionActive),
		}
	}

	c := Controls{ButtonLabel: "Stop scan", ButtonIcon: "■", ButtonEnabled: true}
	switch stage {
	case session.StageConnecting:
		c.ShowConfig = true
		c.Status = "Connecting to device..."
	case session.StageAwaitingConfig:
		c.ShowConfig = true
		c.Status = "Sending scan configuration..."
	case session.StageStarting:
		c.ShowConfig = true
		c.Status = "Starting scan..."
	case session.StagePreparing:
		// Committed: the device is reconfiguring and connected clients
		// will be disrupted, so the config controls go away.
		c.ShowConfig = false
		c.Status = "Preparing device (connected clients will be disrupted)..."
	case session.StageScanning:
		c.ShowConfig = false
		c.ShowChart = true
		c.Status = fmt.Sprintf("Scanning... %ds left", remaining)
	case session.StageTerminal:
		// The app flips active off on the terminal transition; this arm
		// only covers the instant in between.
		c.ButtonEnabled = false
		c.ShowConfig = true
	}
	return c
}

func busyStatus(otherSessionActive bool) string {
	if otherSessionActive {
		return "Another live session is running; stop it first."
	}
	return ""
}

// Model holds the scan panel state.
type Model struct {
	Width int

	Interfaces  []client.WirelessInterface
	SelectedIdx int
	DurationIdx int

	Active     bool
	Stage      session.Stage
	Remaining  int
	Duration   int
	GateBusy   bool
	FinalNote  string // terminal outcome text, shown until the next start
	FinalIsErr bool

	spinner  spinner.Model
	progress progress.Model
}

// New creates the panel.
func New() Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorAccent)
	return Model{
		DurationIdx: 1, // 60s
		spinner:     sp,
		progress:    progress.New(progress.WithDefaultGradient()),
	}
}

// SelectedInterface returns the chosen interface name, "" for device default.
func (m Model) SelectedInterface() string {
	if m.SelectedIdx <= 0 || m.SelectedIdx > len(m.Interfaces) {
		return ""
	}
	return m.Interfaces[m.SelectedIdx-1].Name
}

// SelectedDuration returns the chosen capture length in seconds.
func (m Model) SelectedDuration() int {
	return DurationChoices[m.DurationIdx]
}

// SelectDuration preselects the configured capture length. A value that is
// not one of the offered choices leaves the default selection alone.
func (m *Model) SelectDuration(seconds int) {
	for i, d := range DurationChoices {
		if d == seconds {
			m.DurationIdx = i
			return
		}
	}
}

// CycleInterface advances the interface choice (index 0 is "auto").
func (m *Model) CycleInterface() {
	m.SelectedIdx = (m.SelectedIdx + 1) % (len(m.Interfaces) + 1)
}

// CycleDuration advances the duration choice.
func (m *Model) CycleDuration() {
	m.DurationIdx = (m.DurationIdx + 1) % len(DurationChoices)
}

// Update advances the spinner while the handshake is in flight.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

// SpinnerTick starts the spinner animation.
func (m Model) SpinnerTick() tea.Cmd {
	return m.spinner.Tick
}

// Handshaking reports whether the panel should animate its spinner.
func (m Model) Handshaking() bool {
	return m.Active && m.Stage != session.StageScanning && m.Stage != session.StageTerminal
}

// View renders the panel chrome: status line, config controls and countdown.
// The spectrum chart itself is composed next to the panel by the app.
func (m Model) View() string {
	c := ControlsFor(m.Active, m.Stage, m.Remaining, m.GateBusy)

	var lines []string
	title := theme.StyleHeader.Render(" SPECTRAL SCAN ")
	lines = append(lines, title)

	if c.Status != "" {
		status := lipgloss.NewStyle().Foreground(theme.StageColor(m.Stage.String())).Render(c.Status)
		if m.Handshaking() {
			status = m.spinner.View() + " " + status
		}
		lines = append(lines, status)
	} else if m.FinalNote != "" {
		style := theme.StyleDimmed
		if m.FinalIsErr {
			style = theme.StyleDanger
		}
		lines = append(lines, style.Render(m.FinalNote))
	}

	if c.ShowConfig {
		lines = append(lines, m.configView())
	}

	if c.ShowChart && m.Duration > 0 {
		pct := 1 - float64(m.Remaining)/float64(m.Duration)
		lines = append(lines, m.progress.ViewAs(pct))
	}

	button := renderButton(c)
	lines = append(lines, button)

	return theme.StyleBorder.Width(max(m.Width-2, 30)).Padding(0, 1).Render(
		lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m Model) configView() string {
	iface := "auto"
	if name := m.SelectedInterface(); name != "" {
		iface = name
	}
	var known []string
	for _, wi := range m.Interfaces {
		known = append(known, wi.Name)
	}
	ifLine := fmt.Sprintf("interface: %s  (i to cycle: auto %s)", theme.StyleAccent.Render(iface), strings.Join(known, " "))
	durLine := fmt.Sprintf("duration:  %s  (t to cycle)", theme.StyleAccent.Render(fmt.Sprintf("%ds", DurationChoices[m.DurationIdx])))
	return theme.StyleDimmed.Render(ifLine + "\n" + durLine)
}

func renderButton(c Controls) string {
	label := fmt.Sprintf("[ %s %s ]", c.ButtonIcon, c.ButtonLabel)
	if !c.ButtonEnabled {
		return theme.StyleDimmed.Render(label)
	}
	return theme.StyleHeader.Render(label)
}
