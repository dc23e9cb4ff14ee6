package progress

import (
	"context"
	"time"
)

// Store is the per-user per-concept progress persistence contract.
//
// Status returns a zero Record (StatusLocked) when nothing is stored.
// Commit applies a batch of changes atomically: either every change is
// persisted or none is. Each change is checked with CheckChange against
// the status stored at that point of the batch; a rejected change fails
// the whole batch. SetStatus writes unconditionally and is meant for
// seeding and administration. Replace clears a user and commits changes
// in one atomic step.
type Store interface {
	Status(ctx context.Context, userID, conceptID string) (Record, error)
	SetStatus(ctx context.Context, userID, conceptID string, status Status, at time.Time) error
	ListCompleted(ctx context.Context, userID string) ([]string, error)
	Records(ctx context.Context, userID string) (map[string]Record, error)
	Commit(ctx context.Context, userID string, changes []Change) error
	Reset(ctx context.Context, userID string) error
	Replace(ctx context.Context, userID string, changes []Change) error
}

// CompletedSet is a convenience wrapper over Store.ListCompleted.
func CompletedSet(ctx context.Context, s Store, userID string) (map[string]bool, error) {
	ids, err := s.ListCompleted(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}
