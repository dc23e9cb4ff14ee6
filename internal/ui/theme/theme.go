// Package theme holds the lipgloss palette and styles used by CLI output.
package theme

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/learnfast/internal/progress"
)

// Color palette
var (
	Primary   = lipgloss.Color("#8B5CF6") // Vivid Purple
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Accent    = lipgloss.Color("#F97316") // Orange
	Success   = lipgloss.Color("#22C55E") // Green
	Error     = lipgloss.Color("#F43F5E") // Rose
	Text      = lipgloss.Color("#F8FAFC") // White
	TextDim   = lipgloss.Color("#94A3B8") // Slate
	BgCard    = lipgloss.Color("#1E293B") // Dark Slate
	Border    = lipgloss.Color("#334155") // Slate
)

// Typography
var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Subtitle = lipgloss.NewStyle().
			Foreground(TextDim)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	Warning = lipgloss.NewStyle().
		Foreground(Accent).
		Bold(true)
)

// Layout
var (
	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)
)

// Budget bar
var (
	BudgetFilled = lipgloss.NewStyle().
			Background(Secondary)

	BudgetOver = lipgloss.NewStyle().
			Background(Error)

	BudgetEmpty = lipgloss.NewStyle().
			Background(Border)
)

// StatusColor maps a concept status to its badge color.
func StatusColor(s progress.Status) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true)
	switch s {
	case progress.StatusCompleted:
		return base.Foreground(Success)
	case progress.StatusInProgress:
		return base.Foreground(Accent)
	case progress.StatusAvailable:
		return base.Foreground(Secondary)
	default:
		return base.Foreground(TextDim)
	}
}
