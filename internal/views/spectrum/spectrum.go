// Package spectrum renders the spectral scan chart: one column per frequency
// bin, spring-animated toward the latest signal level, with a peak-hold mark.
package spectrum

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"

	"github.com/kaber420/mikroisp-manager-sub000/internal/session"
	"github.com/kaber420/mikroisp-manager-sub000/internal/theme"
)

// Display range in dBm. Everything below floorDBm renders as an empty
// column; ceilDBm pegs the top of the chart.
const (
	floorDBm = -110.0
	ceilDBm  = -20.0
)

const chartRows = 8

type bar struct {
	pos float64 // animated height, 0..1
	vel float64
	sig float64 // latest signal, dBm
	pk  float64 // peak-hold, dBm
}

// Model holds the animated chart state.
type Model struct {
	Width int

	spring harmonica.Spring
	bars   map[float64]*bar
	order  []float64 // ascending frequencies, mirrors the SampleWindow
}

// New creates a chart.
func New() Model {
	return Model{
		spring: harmonica.NewSpring(harmonica.FPS(30), 8.0, 0.6),
		bars:   make(map[float64]*bar),
	}
}

// SetSamples replaces the animation targets from the scan's sample window.
// Column order follows the window's ascending frequency order.
func (m *Model) SetSamples(samples []session.SpectrumSample) {
	m.order = m.order[:0]
	seen := make(map[float64]bool, len(samples))
	for _, s := range samples {
		m.order = append(m.order, s.Frequency)
		seen[s.Frequency] = true
		b, ok := m.bars[s.Frequency]
		if !ok {
			b = &bar{}
			m.bars[s.Frequency] = b
		}
		b.sig = s.Signal
		b.pk = s.Peak
	}
	for f := range m.bars {
		if !seen[f] {
			delete(m.bars, f)
		}
	}
}

// Reset clears the chart for a new scan.
func (m *Model) Reset() {
	m.bars = make(map[float64]*bar)
	m.order = m.order[:0]
}

// Step advances the spring animation one frame. It returns true while any
// bar is still visibly moving, so the app can stop ticking when settled.
func (m *Model) Step() bool {
	moving := false
	for _, b := range m.bars {
		target := normalize(b.sig)
		b.pos, b.vel = m.spring.Update(b.pos, b.vel, target)
		if diff := b.pos - target; diff > 0.004 || diff < -0.004 || b.vel > 0.004 || b.vel < -0.004 {
			moving = true
		}
	}
	return moving
}

func normalize(dbm float64) float64 {
	v := (dbm - floorDBm) / (ceilDBm - floorDBm)
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// View renders the chart. Columns are the tracked frequencies ascending;
// the peak-hold level is marked on each column.
func (m Model) View() string {
	if len(m.order) == 0 {
		return theme.StyleDimmed.Render("  waiting for samples...")
	}

	cols := m.order
	if m.Width > 0 && len(cols) > m.Width-8 {
		cols = cols[len(cols)-(m.Width-8):]
	}

	rows := make([]strings.Builder, chartRows)
	for _, f := range cols {
		b := m.bars[f]
		h := int(b.pos*chartRows + 0.5)
		peakRow := chartRows - 1 - int(normalize(b.pk)*float64(chartRows-1)+0.5)
		color := theme.SignalColor(b.sig)
		for r := 0; r < chartRows; r++ {
			filled := chartRows-r <= h
			switch {
			case filled:
				rows[r].WriteString(lipgloss.NewStyle().Foreground(color).Render("█"))
			case r == peakRow:
				rows[r].WriteString(theme.StyleDimmed.Render("▔"))
			default:
				rows[r].WriteString(" ")
			}
		}
	}

	var lines []string
	for i := range rows {
		lines = append(lines, rows[i].String())
	}
	lines = append(lines, m.axisView(cols))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) axisView(cols []float64) string {
	if len(cols) == 0 {
		return ""
	}
	lo := cols[0]
	hi := cols[len(cols)-1]
	axis := fmt.Sprintf("%.0f MHz%s%.0f MHz", lo, strings.Repeat("─", max(len(cols)-16, 1)), hi)
	return theme.StyleDimmed.Render(axis)
}
