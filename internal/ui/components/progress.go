package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/learnfast/internal/ui/theme"
)

// BudgetBar shows used minutes against a time budget.
type BudgetBar struct {
	Label  string
	Used   int
	Budget int
	Width  int
}

// NewBudgetBar creates a budget bar.
func NewBudgetBar(label string, used, budget, width int) BudgetBar {
	return BudgetBar{Label: label, Used: used, Budget: budget, Width: width}
}

// Fraction returns Used/Budget clamped to [0, 1]. A zero budget is full
// when anything is used and empty otherwise.
func (b BudgetBar) Fraction() float64 {
	if b.Budget <= 0 {
		if b.Used > 0 {
			return 1
		}
		return 0
	}
	f := float64(b.Used) / float64(b.Budget)
	if f > 1 {
		return 1
	}
	if f < 0 {
		return 0
	}
	return f
}

// View renders the bar followed by "used/budget min".
func (b BudgetBar) View() string {
	var result string
	if b.Label != "" {
		result += theme.Body.Render(b.Label) + "  "
	}

	suffix := fmt.Sprintf("  %d/%d min", b.Used, b.Budget)
	barWidth := b.Width - lipgloss.Width(result) - len(suffix)
	if barWidth < 4 {
		barWidth = 4
	}

	filled := int(float64(barWidth) * b.Fraction())
	empty := barWidth - filled

	fill := theme.BudgetFilled
	if b.Used > b.Budget {
		fill = theme.BudgetOver
	}
	result += fill.Render(strings.Repeat(" ", filled))
	result += theme.BudgetEmpty.Render(strings.Repeat(" ", empty))
	result += theme.Subtitle.Render(suffix)
	return result
}
