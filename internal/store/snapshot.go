package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/learnfast/internal/progress"
)

const snapshotVersion = 1

// snapshotRepo implements SnapshotRepo on the progress_snapshots table.
type snapshotRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

func (r *snapshotRepo) Save(ctx context.Context, snap *Snapshot) error {
	if snap.Sequence == 0 {
		cur, err := r.seq.Current(ctx)
		if err != nil {
			return err
		}
		snap.Sequence = cur
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(snap.Data)
	if err != nil {
		return fmt.Errorf("marshal snapshot data: %w", err)
	}

	q, args := sqlite().
		Insert(tableSnapshots).
		Columns("user_id", "sequence", "timestamp", "data").
		Values(snap.UserID, snap.Sequence, snap.Timestamp.UTC(), string(data)).
		Query()
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		snap.ID = int(id)
	}
	return nil
}

func (r *snapshotRepo) Latest(ctx context.Context, userID string) (*Snapshot, error) {
	q, args := sqlite().
		Select("id", "user_id", "sequence", "timestamp", "data").
		From(sqlite().Table(tableSnapshots)).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("timestamp"), entsql.Desc("id")).
		Limit(1).
		Query()

	var (
		s    Snapshot
		data string
	)
	err := r.db.QueryRowContext(ctx, q, args...).Scan(&s.ID, &s.UserID, &s.Sequence, &s.Timestamp, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &s.Data); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot data: %w", err)
	}
	return &s, nil
}

func (r *snapshotRepo) Prune(ctx context.Context, userID string, keep int) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM progress_snapshots
		WHERE user_id = ? AND id NOT IN (
			SELECT id FROM progress_snapshots WHERE user_id = ?
			ORDER BY timestamp DESC, id DESC LIMIT ?
		)`, userID, userID, keep)
	if err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	return nil
}

// SnapshotFromRecords captures stored progress records.
func SnapshotFromRecords(userID string, records map[string]progress.Record) *Snapshot {
	data := SnapshotData{Version: snapshotVersion, Records: make(map[string]SnapshotItem, len(records))}
	for id, rec := range records {
		data.Records[id] = SnapshotItem{
			Status:      rec.Status.String(),
			StartedAt:   rec.StartedAt,
			CompletedAt: rec.CompletedAt,
		}
	}
	return &Snapshot{UserID: userID, Data: data}
}

// Changes returns the changes that rebuild the snapshot on top of an empty
// progress state, ordered by concept ID. Every change is a legal
// transition, so the batch passes progress.CheckChange. Original
// timestamps are kept where the snapshot has them.
func (d SnapshotData) Changes(at time.Time) ([]progress.Change, error) {
	ids := make([]string, 0, len(d.Records))
	for id := range d.Records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []progress.Change
	for _, id := range ids {
		item := d.Records[id]
		st, err := progress.ParseStatus(item.Status)
		if err != nil {
			return nil, fmt.Errorf("snapshot record %q: %w", id, err)
		}
		switch st {
		case progress.StatusLocked:
			continue
		case progress.StatusAvailable:
			out = append(out, progress.Change{ConceptID: id, From: progress.StatusLocked, To: st, At: at, Trigger: "restore"})
			continue
		}

		from := progress.StatusAvailable
		if item.StartedAt != nil || st == progress.StatusInProgress {
			when := at
			if item.StartedAt != nil {
				when = *item.StartedAt
			}
			out = append(out, progress.Change{ConceptID: id, From: from, To: progress.StatusInProgress, At: when, Trigger: "restore"})
			from = progress.StatusInProgress
		}
		if st == from {
			continue
		}
		when := at
		if item.CompletedAt != nil {
			when = *item.CompletedAt
		}
		out = append(out, progress.Change{ConceptID: id, From: from, To: st, At: when, Trigger: "restore"})
	}
	return out, nil
}
