// Package help renders the markdown help overlay.
package help

import (
	"github.com/charmbracelet/glamour"

	"github.com/kaber420/mikroisp-manager-sub000/internal/theme"
)

const helpMarkdown = `# Device monitor

Exactly **one** intrusive session can run against the device at a time:
a diagnostic live session or a spectral scan. While either is active,
background refreshes from the manager are dropped; the session reloads
the historical view itself when it ends.

## Keys

| Key | Action |
|-----|--------|
| l   | start / stop a diagnostic live session (5 min limit) |
| s   | start / stop a spectral scan |
| i   | cycle scan interface (auto, then each wireless interface) |
| t   | cycle scan duration |
| e   | event log overlay |
| r   | reload historical view (disabled during a session) |
| ?   | this help |
| q   | quit |

## Notes

- A live session ends on its own after the countdown, or immediately on
  the first failed poll.
- Starting a scan disrupts clients connected to the device once the
  device begins preparing; the configuration controls disappear at that
  point because the scan is committed.
`

// Model holds the rendered help text.
type Model struct {
	rendered string
}

// New renders the help markdown once, falling back to the raw text when the
// renderer cannot be built (e.g. no TTY profile).
func New(width int) Model {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(max(width-8, 40)),
	)
	if err != nil {
		return Model{rendered: helpMarkdown}
	}
	out, err := r.Render(helpMarkdown)
	if err != nil {
		return Model{rendered: helpMarkdown}
	}
	return Model{rendered: out}
}

// View returns the overlay content.
func (m Model) View(width int) string {
	innerW := width - 4
	if innerW < 40 {
		innerW = 40
	}
	return theme.StyleBorder.Width(innerW).Render(m.rendered)
}
