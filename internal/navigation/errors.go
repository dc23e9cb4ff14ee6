package navigation

import (
	"fmt"

	"github.com/abhisek/learnfast/internal/apperr"
	"github.com/abhisek/learnfast/internal/progress"
)

// TransitionError describes a rejected start/complete request. It matches
// apperr.ErrInvalidTransition, and apperr.ErrPrerequisiteNotMet when the
// concept is still locked.
type TransitionError struct {
	UserID    string
	ConceptID string
	From      progress.Status
	To        progress.Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("user %q concept %q: cannot move %s -> %s: %v",
		e.UserID, e.ConceptID, e.From, e.To, e.Unwrap())
}

func (e *TransitionError) Unwrap() error {
	if e.From == progress.StatusLocked {
		return apperr.ErrPrerequisiteNotMet
	}
	return apperr.ErrInvalidTransition
}
