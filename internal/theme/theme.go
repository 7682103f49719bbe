// Package theme provides the Lip Gloss color palette and reusable styles for
// the monitoring TUI. It is a leaf package with no internal imports to avoid
// import cycles.
package theme

import "github.com/charmbracelet/lipgloss"

// Signal strength thresholds (dBm).
var (
	ColorSignalGood = lipgloss.Color("#22c55e") // > -65
	ColorSignalFair = lipgloss.Color("#d97706") // -65 .. -80
	ColorSignalPoor = lipgloss.Color("#dc2626") // < -80
)

// Scan stage colors.
var (
	ColorConnecting = lipgloss.Color("#7c3aed")
	ColorWaiting    = lipgloss.Color("#854d0e")
	ColorStarting   = lipgloss.Color("#2563eb")
	ColorPreparing  = lipgloss.Color("#d97706")
	ColorScanning   = lipgloss.Color("#06b6d4")
	ColorTerminal   = lipgloss.Color("#4b5563")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorHealthy = lipgloss.Color("#22c55e")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
	ColorAccent  = lipgloss.Color("#06b6d4")
)

// SignalColor returns the color for a signal level in dBm.
func SignalColor(dbm float64) lipgloss.Color {
	switch {
	case dbm > -65:
		return ColorSignalGood
	case dbm > -80:
		return ColorSignalFair
	default:
		return ColorSignalPoor
	}
}

// StageColor returns the color for a scan stage name.
func StageColor(stage string) lipgloss.Color {
	switch stage {
	case "connecting":
		return ColorConnecting
	case "waiting_config":
		return ColorWaiting
	case "starting":
		return ColorStarting
	case "preparing":
		return ColorPreparing
	case "scanning":
		return ColorScanning
	case "terminal":
		return ColorTerminal
	default:
		return ColorDimmed
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
			Foreground(ColorDimmed)

	StyleDanger = lipgloss.NewStyle().
			Foreground(ColorDanger)

	StyleAccent = lipgloss.NewStyle().
			Foreground(ColorAccent)
)
