// Package livepanel renders the diagnostic live-telemetry panel: rolling
// sparkline charts, the countdown and the start/stop control.
package livepanel

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"

	"github.com/kaber420/mikroisp-manager-sub000/internal/client"
	"github.com/kaber420/mikroisp-manager-sub000/internal/session"
	"github.com/kaber420/mikroisp-manager-sub000/internal/theme"
)

// Controls are the live panel's UI affordances for a given state tuple.
type Controls struct {
	ButtonLabel   string
	ButtonIcon    string
	ButtonEnabled bool
	ShowCharts    bool
	Status        string
}

// ControlsFor maps (session active, countdown, gate busy elsewhere, device
// configured) onto the panel's affordances. Pure function.
func ControlsFor(active bool, remaining int, otherSessionActive, configured bool) Controls {
	if active {
		return Controls{
			ButtonLabel:   "Stop live",
			ButtonIcon:    "■",
			ButtonEnabled: true,
			ShowCharts:    true,
			Status:        fmt.Sprintf("Live... %s left", clock(remaining)),
		}
	}
	c := Controls{ButtonLabel: "Start live", ButtonIcon: "▶"}
	switch {
	case !configured:
		c.Status = "No polling interval configured on this device."
	case otherSessionActive:
		c.Status = "A spectral scan is running; stop it first."
	default:
		c.ButtonEnabled = true
	}
	return c
}

func clock(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

var metricLabels = map[session.LiveMetric]string{
	session.MetricSignal: "signal dBm",
	session.MetricCCQ:    "ccq %",
	session.MetricCPU:    "cpu %",
	session.MetricMemory: "mem %",
	session.MetricTxRate: "tx bps",
	session.MetricRxRate: "rx bps",
}

// Model holds the live panel state.
type Model struct {
	Width int

	Active     bool
	Remaining  int
	Duration   int
	GateBusy   bool
	Configured bool

	Stats     *client.DeviceStatistics // historical view, shown when idle
	Live      *session.LiveSession
	FinalNote string

	progress progress.Model
}

// New creates the panel.
func New() Model {
	return Model{
		Configured: true,
		progress:   progress.New(progress.WithDefaultGradient()),
	}
}

// View renders the panel.
func (m Model) View() string {
	c := ControlsFor(m.Active, m.Remaining, m.GateBusy, m.Configured)

	var lines []string
	lines = append(lines, theme.StyleHeader.Render(" LIVE TELEMETRY "))

	if c.Status != "" {
		lines = append(lines, theme.StyleAccent.Render(c.Status))
	} else if m.FinalNote != "" {
		lines = append(lines, theme.StyleDimmed.Render(m.FinalNote))
	}

	if c.ShowCharts && m.Live != nil {
		if m.Duration > 0 {
			pct := 1 - float64(m.Remaining)/float64(m.Duration)
			lines = append(lines, m.progress.ViewAs(pct))
		}
		for _, metric := range session.LiveMetrics {
			lines = append(lines, m.metricLine(metric))
		}
	} else {
		lines = append(lines, m.historicalView())
	}

	lines = append(lines, renderButton(c))
	return theme.StyleBorder.Width(max(m.Width-2, 30)).Padding(0, 1).Render(
		lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m Model) metricLine(metric session.LiveMetric) string {
	w := m.Live.Series(metric)
	pts := w.Points()
	label := fmt.Sprintf("%-10s", metricLabels[metric])
	if len(pts) == 0 {
		return theme.StyleDimmed.Render(label + " (waiting for data)")
	}
	last := pts[len(pts)-1].Value
	spark := Sparkline(pts)
	color := theme.ColorAccent
	if metric == session.MetricSignal {
		color = theme.SignalColor(last)
	}
	value := lipgloss.NewStyle().Foreground(color).Render(fmt.Sprintf("%9.1f", last))
	return fmt.Sprintf("%s %s %s", theme.StyleDimmed.Render(label), spark, value)
}

// historicalView shows the non-live statistics. It is never rendered next to
// a running countdown: the session's cleanup-then-reload ordering guarantees
// the two cannot coexist.
func (m Model) historicalView() string {
	if m.Stats == nil {
		return theme.StyleDimmed.Render("No historical data loaded.")
	}
	s := m.Stats
	lines := []string{
		fmt.Sprintf("last seen:  %s", s.LastSeen.Format("2006-01-02 15:04:05")),
		fmt.Sprintf("uptime:     %dh%02dm", s.UptimeSec/3600, s.UptimeSec%3600/60),
		fmt.Sprintf("avg signal: %.1f dBm   avg ccq: %.0f%%", s.AvgSignalDBm, s.AvgCCQ),
		fmt.Sprintf("avg cpu:    %.0f%%", s.AvgCPULoad),
		fmt.Sprintf("traffic:    %s tx / %s rx", bytesHuman(s.TxBytes), bytesHuman(s.RxBytes)),
	}
	return theme.StyleDimmed.Render(strings.Join(lines, "\n"))
}

func bytesHuman(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func renderButton(c Controls) string {
	label := fmt.Sprintf("[ %s %s ]", c.ButtonIcon, c.ButtonLabel)
	if !c.ButtonEnabled {
		return theme.StyleDimmed.Render(label)
	}
	return theme.StyleHeader.Render(label)
}

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders a series window as a single-row sparkline, scaled to the
// window's own min/max.
func Sparkline(pts []session.SeriesPoint) string {
	if len(pts) == 0 {
		return ""
	}
	lo, hi := pts[0].Value, pts[0].Value
	for _, p := range pts {
		if p.Value < lo {
			lo = p.Value
		}
		if p.Value > hi {
			hi = p.Value
		}
	}
	span := hi - lo
	var b strings.Builder
	for _, p := range pts {
		idx := 0
		if span > 0 {
			idx = int((p.Value - lo) / span * float64(len(sparkRunes)-1))
		}
		b.WriteRune(sparkRunes[idx])
	}
	return b.String()
}
