package components

import (
	"strings"
	"testing"

	"charm.land/lipgloss/v2"
	"github.com/stretchr/testify/assert"

	"github.com/abhisek/learnfast/internal/progress"
)

func TestBudgetBar_Fraction(t *testing.T) {
	tests := []struct {
		used, budget int
		want         float64
	}{
		{0, 60, 0},
		{30, 60, 0.5},
		{90, 60, 1},
		{0, 0, 0},
		{5, 0, 1},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, NewBudgetBar("", tt.used, tt.budget, 40).Fraction(), 1e-9)
	}
}

func TestBudgetBar_ViewWidth(t *testing.T) {
	out := NewBudgetBar("Plan", 30, 60, 50).View()
	assert.Equal(t, 50, lipgloss.Width(out))
	assert.Contains(t, out, "30/60 min")
}

func TestStatusBadge(t *testing.T) {
	for _, s := range []progress.Status{progress.StatusLocked, progress.StatusAvailable, progress.StatusInProgress, progress.StatusCompleted} {
		assert.Contains(t, StatusBadge(s), s.Label())
	}
}

func TestCard(t *testing.T) {
	out := Card("Plan", []string{KeyValue("Budget", "60 min", 10)}, 40)
	assert.Contains(t, out, "Plan")
	assert.Contains(t, out, "60 min")
	assert.GreaterOrEqual(t, strings.Count(out, "\n"), 2)
}
