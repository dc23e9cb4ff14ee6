package store

import (
	"context"
	"time"
)

// QueryOpts configures event queries with filtering and pagination.
type QueryOpts struct {
	Limit  int       // max results (0 = unlimited)
	After  int64     // sequence > After
	Before int64     // sequence < Before
	From   time.Time // timestamp >= From
	To     time.Time // timestamp <= To
}

// ProgressEvent is one committed status change in the append-only log.
type ProgressEvent struct {
	ID        string
	Sequence  int64
	Timestamp time.Time
	UserID    string
	ConceptID string
	From      string
	To        string
	Reason    string
}

// EventRepo reads the progress event log. Events are appended by
// ProgressRepo.Commit in the same transaction as the status change.
type EventRepo interface {
	// History returns a user's events ordered by sequence.
	History(ctx context.Context, userID string, opts QueryOpts) ([]ProgressEvent, error)

	// Count returns the number of events recorded for a user.
	Count(ctx context.Context, userID string) (int, error)
}

// SnapshotData captures a user's stored progress at a point in time.
type SnapshotData struct {
	Version int                     `json:"version"`
	Records map[string]SnapshotItem `json:"records"`
}

// SnapshotItem is one concept's stored status inside a snapshot.
type SnapshotItem struct {
	Status      string     `json:"status"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Snapshot represents a point-in-time capture of a user's progress.
type Snapshot struct {
	ID        int
	UserID    string
	Sequence  int64
	Timestamp time.Time
	Data      SnapshotData
}

// SnapshotRepo manages progress snapshots.
type SnapshotRepo interface {
	// Save stores a new snapshot.
	Save(ctx context.Context, snap *Snapshot) error

	// Latest returns the user's most recent snapshot, or nil if none exist.
	Latest(ctx context.Context, userID string) (*Snapshot, error)

	// Prune deletes all but the user's N most recent snapshots.
	Prune(ctx context.Context, userID string, keep int) error
}

// Summary counts the rows of the main tables.
type Summary struct {
	Concepts int
	Edges    int
	Chunks   int
	Users    int
	Events   int
}

// Summary returns table counts for the stats command.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	var sum Summary
	queries := []struct {
		dst *int
		sql string
	}{
		{&sum.Concepts, "SELECT COUNT(*) FROM " + tableConcepts},
		{&sum.Edges, "SELECT COUNT(*) FROM " + tableEdges},
		{&sum.Chunks, "SELECT COUNT(*) FROM " + tableChunks},
		{&sum.Users, "SELECT COUNT(DISTINCT user_id) FROM " + tableStatuses},
		{&sum.Events, "SELECT COUNT(*) FROM " + tableEvents},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.sql).Scan(q.dst); err != nil {
			return Summary{}, err
		}
	}
	return sum, nil
}
