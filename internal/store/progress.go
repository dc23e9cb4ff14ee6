package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/abhisek/learnfast/internal/progress"
)

// ProgressRepo implements progress.Store on SQLite. Every committed change
// also appends a progress event in the same transaction.
type ProgressRepo struct {
	db  *sql.DB
	seq *sequenceCounter
}

var _ progress.Store = (*ProgressRepo)(nil)

var statusColumns = []string{"concept_id", "status", "started_at", "completed_at", "updated_at"}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(s rowScanner) (progress.Record, error) {
	var (
		rec       progress.Record
		status    string
		started   sql.NullTime
		completed sql.NullTime
	)
	if err := s.Scan(&rec.ConceptID, &status, &started, &completed, &rec.UpdatedAt); err != nil {
		return progress.Record{}, err
	}
	st, err := progress.ParseStatus(status)
	if err != nil {
		return progress.Record{}, err
	}
	rec.Status = st
	if started.Valid {
		t := started.Time
		rec.StartedAt = &t
	}
	if completed.Valid {
		t := completed.Time
		rec.CompletedAt = &t
	}
	return rec, nil
}

func (r *ProgressRepo) Status(ctx context.Context, userID, conceptID string) (progress.Record, error) {
	return r.status(ctx, r.db, userID, conceptID)
}

func (r *ProgressRepo) status(ctx context.Context, q queryRower, userID, conceptID string) (progress.Record, error) {
	query, args := sqlite().
		Select(statusColumns...).
		From(sqlite().Table(tableStatuses)).
		Where(entsql.And(entsql.EQ("user_id", userID), entsql.EQ("concept_id", conceptID))).
		Query()
	rec, err := scanRecord(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return progress.Record{ConceptID: conceptID}, nil
	}
	if err != nil {
		return progress.Record{}, fmt.Errorf("query status: %w", err)
	}
	return rec, nil
}

// SetStatus writes status without transition checks. It still appends an
// event so the log stays complete.
func (r *ProgressRepo) SetStatus(ctx context.Context, userID, conceptID string, status progress.Status, at time.Time) error {
	return r.inTx(ctx, "set status", func(tx *sql.Tx) error {
		cur, err := r.status(ctx, tx, userID, conceptID)
		if err != nil {
			return err
		}
		return r.write(ctx, tx, userID, cur, progress.Change{
			ConceptID: conceptID,
			From:      cur.Status,
			To:        status,
			At:        at,
			Trigger:   "set",
		})
	})
}

func (r *ProgressRepo) ListCompleted(ctx context.Context, userID string) ([]string, error) {
	q, args := sqlite().
		Select("concept_id").
		From(sqlite().Table(tableStatuses)).
		Where(entsql.And(
			entsql.EQ("user_id", userID),
			entsql.EQ("status", progress.StatusCompleted.String()),
		)).
		OrderBy("concept_id").
		Query()

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query completed: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan completed: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *ProgressRepo) Records(ctx context.Context, userID string) (map[string]progress.Record, error) {
	q, args := sqlite().
		Select(statusColumns...).
		From(sqlite().Table(tableStatuses)).
		Where(entsql.EQ("user_id", userID)).
		Query()

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()
	out := make(map[string]progress.Record)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out[rec.ConceptID] = rec
	}
	return out, rows.Err()
}

// Commit checks and upserts every change and appends one event per change,
// all in a single transaction. A change rejected by progress.CheckChange
// rolls the whole batch back.
func (r *ProgressRepo) Commit(ctx context.Context, userID string, changes []progress.Change) error {
	if len(changes) == 0 {
		return nil
	}
	return r.inTx(ctx, "commit progress", func(tx *sql.Tx) error {
		return r.apply(ctx, tx, userID, changes)
	})
}

// Reset deletes every stored status of a user. The event log is kept.
func (r *ProgressRepo) Reset(ctx context.Context, userID string) error {
	if err := r.clear(ctx, r.db, userID); err != nil {
		return fmt.Errorf("reset progress: %w", err)
	}
	return nil
}

// Replace clears a user's statuses and commits changes on top of the empty
// state in one transaction. On failure the previous statuses are kept.
func (r *ProgressRepo) Replace(ctx context.Context, userID string, changes []progress.Change) error {
	return r.inTx(ctx, "replace progress", func(tx *sql.Tx) error {
		if err := r.clear(ctx, tx, userID); err != nil {
			return err
		}
		return r.apply(ctx, tx, userID, changes)
	})
}

func (r *ProgressRepo) inTx(ctx context.Context, op string, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (r *ProgressRepo) apply(ctx context.Context, tx *sql.Tx, userID string, changes []progress.Change) error {
	for _, c := range changes {
		cur, err := r.status(ctx, tx, userID, c.ConceptID)
		if err != nil {
			return err
		}
		if err := progress.CheckChange(cur.Status, c); err != nil {
			return err
		}
		if err := r.write(ctx, tx, userID, cur, c); err != nil {
			return err
		}
	}
	return nil
}

// write upserts the record that results from c and appends its event.
func (r *ProgressRepo) write(ctx context.Context, tx *sql.Tx, userID string, cur progress.Record, c progress.Change) error {
	next := progress.Apply(cur, c)
	q, args := sqlite().
		Insert(tableStatuses).
		Columns("user_id", "concept_id", "status", "started_at", "completed_at", "updated_at").
		Values(userID, c.ConceptID, next.Status.String(), nullTime(next.StartedAt), nullTime(next.CompletedAt), next.UpdatedAt).
		OnConflict(
			entsql.ConflictColumns("user_id", "concept_id"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("upsert status: %w", err)
	}

	seq, err := r.seq.Next(ctx, tx)
	if err != nil {
		return err
	}
	q, args = sqlite().
		Insert(tableEvents).
		Columns("id", "sequence", "timestamp", "user_id", "concept_id", "from_status", "to_status", "reason").
		Values(uuid.NewString(), seq, c.At.UTC(), userID, c.ConceptID, c.From.String(), c.To.String(), c.Trigger).
		Query()
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("append progress event: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *ProgressRepo) clear(ctx context.Context, db execer, userID string) error {
	q, args := sqlite().
		Delete(tableStatuses).
		Where(entsql.EQ("user_id", userID)).
		Query()
	_, err := db.ExecContext(ctx, q, args...)
	return err
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
