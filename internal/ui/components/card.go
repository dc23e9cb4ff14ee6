package components

import (
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/learnfast/internal/ui/theme"
)

// ContentWidth clamps a terminal width to the width used for cards.
func ContentWidth(termWidth int) int {
	w := termWidth - 4
	if w > 72 {
		w = 72
	}
	if w < 30 {
		w = 30
	}
	return w
}

// Card renders a titled, bordered block.
func Card(title string, lines []string, width int) string {
	body := theme.Title.Render(title)
	if len(lines) > 0 {
		body += "\n" + strings.Join(lines, "\n")
	}
	return theme.Card.Width(width).Render(body)
}

// KeyValue renders "key  value" with the key dimmed and padded.
func KeyValue(key, value string, keyWidth int) string {
	k := theme.Subtitle.Render(key)
	pad := keyWidth - lipgloss.Width(k)
	if pad < 1 {
		pad = 1
	}
	return k + strings.Repeat(" ", pad) + theme.Body.Render(value)
}
