package components

import (
	"github.com/abhisek/learnfast/internal/progress"
	"github.com/abhisek/learnfast/internal/ui/theme"
)

var statusIcons = map[progress.Status]string{
	progress.StatusLocked:     "○",
	progress.StatusAvailable:  "◎",
	progress.StatusInProgress: "◐",
	progress.StatusCompleted:  "●",
}

// StatusBadge renders an icon and label for a concept status.
func StatusBadge(s progress.Status) string {
	icon := statusIcons[s]
	if icon == "" {
		icon = "?"
	}
	return theme.StatusColor(s).Render(icon + " " + s.Label())
}
