package progress

import (
	"fmt"
	"time"

	"github.com/abhisek/learnfast/internal/apperr"
)

// Status is a concept's position in a learner's lifecycle.
type Status int

const (
	StatusLocked     Status = iota // One or more prerequisites not yet completed
	StatusAvailable                // All prerequisites completed; not yet started
	StatusInProgress               // Started, not completed
	StatusCompleted                // Completed
)

// String returns the storage name of a status.
func (s Status) String() string {
	switch s {
	case StatusLocked:
		return "locked"
	case StatusAvailable:
		return "available"
	case StatusInProgress:
		return "in_progress"
	case StatusCompleted:
		return "completed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Label returns the display label for a status.
func (s Status) Label() string {
	switch s {
	case StatusLocked:
		return "Locked"
	case StatusAvailable:
		return "Available"
	case StatusInProgress:
		return "In Progress"
	case StatusCompleted:
		return "Completed"
	default:
		return "Unknown"
	}
}

// ParseStatus is the inverse of Status.String.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "locked", "":
		return StatusLocked, nil
	case "available":
		return StatusAvailable, nil
	case "in_progress":
		return StatusInProgress, nil
	case "completed":
		return StatusCompleted, nil
	}
	return StatusLocked, fmt.Errorf("unknown status %q", s)
}

// transitions is the legal edge set of the status machine.
//
//	Locked -> Available            (prerequisites became satisfied)
//	Available -> Locked            (a prerequisite edge was added)
//	Available -> InProgress        (start)
//	Available -> Completed         ("already knew this")
//	InProgress -> Completed        (complete)
var transitions = map[Status][]Status{
	StatusLocked:     {StatusAvailable},
	StatusAvailable:  {StatusLocked, StatusInProgress, StatusCompleted},
	StatusInProgress: {StatusCompleted},
}

// CanTransition reports whether from -> to is a legal status change.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// derivable reports whether s may lag the graph in storage. Locked and
// Available follow from prerequisites, so a stored Locked and a derived
// Available (or the reverse) describe the same concept state. InProgress
// and Completed are only ever written by commits.
func derivable(s Status) bool {
	return s == StatusLocked || s == StatusAvailable
}

// CheckChange validates c against the status currently stored for its
// concept. The transition must be legal, and c.From must match the stored
// status, treating Locked and Available as interchangeable.
func CheckChange(stored Status, c Change) error {
	if !CanTransition(c.From, c.To) {
		return fmt.Errorf("%w: concept %q %s -> %s", apperr.ErrInvalidTransition, c.ConceptID, c.From, c.To)
	}
	if stored == c.From || (derivable(stored) && derivable(c.From)) {
		return nil
	}
	return fmt.Errorf("%w: concept %q is %s, change expects %s", apperr.ErrConflict, c.ConceptID, stored, c.From)
}

// Record is the stored status of one concept for one user.
type Record struct {
	ConceptID   string
	Status      Status
	StartedAt   *time.Time
	CompletedAt *time.Time
	UpdatedAt   time.Time
}

// Change is one status transition inside an atomic commit.
type Change struct {
	ConceptID string
	From      Status
	To        Status
	At        time.Time
	Trigger   string // "start", "complete", "unlock"
}

// Apply returns the record that results from applying c to r. Every store
// implementation stamps timestamps through it.
func Apply(r Record, c Change) Record {
	r.ConceptID = c.ConceptID
	r.Status = c.To
	r.UpdatedAt = c.At
	at := c.At
	switch c.To {
	case StatusInProgress:
		r.StartedAt = &at
	case StatusCompleted:
		r.CompletedAt = &at
	}
	return r
}
