package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/learnfast/internal/apperr"
	"github.com/abhisek/learnfast/internal/conceptgraph"
)

// ConceptRepo implements conceptgraph.Store on SQLite.
type ConceptRepo struct {
	db *sql.DB
	// mu serializes edge inserts so the cycle check and the insert are
	// never interleaved with another writer in this process.
	mu sync.Mutex
}

var _ conceptgraph.Store = (*ConceptRepo)(nil)

func (r *ConceptRepo) Concept(ctx context.Context, id string) (conceptgraph.Concept, error) {
	q, args := sqlite().
		Select("id", "name", "description", "estimated_minutes").
		From(sqlite().Table(tableConcepts)).
		Where(entsql.EQ("id", id)).
		Query()

	var c conceptgraph.Concept
	err := r.db.QueryRowContext(ctx, q, args...).Scan(&c.ID, &c.Name, &c.Description, &c.EstimatedMinutes)
	if errors.Is(err, sql.ErrNoRows) {
		return conceptgraph.Concept{}, fmt.Errorf("%w: concept %q", apperr.ErrNotFound, id)
	}
	if err != nil {
		return conceptgraph.Concept{}, fmt.Errorf("query concept: %w", err)
	}

	c.Prerequisites, err = r.edgeIDs(ctx, "prerequisite_id", "concept_id", id)
	if err != nil {
		return conceptgraph.Concept{}, err
	}
	return c, nil
}

func (r *ConceptRepo) Prerequisites(ctx context.Context, id string) ([]string, error) {
	if err := r.mustExist(ctx, r.db, id); err != nil {
		return nil, err
	}
	return r.edgeIDs(ctx, "prerequisite_id", "concept_id", id)
}

func (r *ConceptRepo) Dependents(ctx context.Context, id string) ([]string, error) {
	if err := r.mustExist(ctx, r.db, id); err != nil {
		return nil, err
	}
	return r.edgeIDs(ctx, "concept_id", "prerequisite_id", id)
}

// edgeIDs selects column pick from edges whose column match equals id.
func (r *ConceptRepo) edgeIDs(ctx context.Context, pick, match, id string) ([]string, error) {
	q, args := sqlite().
		Select(pick).
		From(sqlite().Table(tableEdges)).
		Where(entsql.EQ(match, id)).
		OrderBy(pick).
		Query()

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		ids = append(ids, s)
	}
	return ids, rows.Err()
}

func (r *ConceptRepo) Concepts(ctx context.Context) ([]conceptgraph.Concept, error) {
	q, args := sqlite().
		Select("id", "name", "description", "estimated_minutes").
		From(sqlite().Table(tableConcepts)).
		OrderBy("id").
		Query()

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query concepts: %w", err)
	}
	var out []conceptgraph.Concept
	index := make(map[string]int)
	for rows.Next() {
		var c conceptgraph.Concept
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.EstimatedMinutes); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan concept: %w", err)
		}
		index[c.ID] = len(out)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	q, args = sqlite().
		Select("prerequisite_id", "concept_id").
		From(sqlite().Table(tableEdges)).
		OrderBy("concept_id", "prerequisite_id").
		Query()
	edges, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer edges.Close()
	for edges.Next() {
		var from, to string
		if err := edges.Scan(&from, &to); err != nil {
			return nil, fmt.Errorf("scan edge: %w", err)
		}
		if i, ok := index[to]; ok {
			out[i].Prerequisites = append(out[i].Prerequisites, from)
		}
	}
	return out, edges.Err()
}

// UpsertConcept inserts or updates a concept's attributes. Prerequisites
// are ignored; edges are managed through UpsertPrerequisite.
func (r *ConceptRepo) UpsertConcept(ctx context.Context, c conceptgraph.Concept) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	now := time.Now().UTC()
	q, args := sqlite().
		Insert(tableConcepts).
		Columns("id", "name", "description", "estimated_minutes", "created_at", "updated_at").
		Values(c.ID, c.Name, c.Description, c.EstimatedMinutes, now, now).
		OnConflict(
			entsql.ConflictColumns("id"),
			entsql.ResolveWith(func(u *entsql.UpdateSet) {
				u.SetExcluded("name")
				u.SetExcluded("description")
				u.SetExcluded("estimated_minutes")
				u.SetExcluded("updated_at")
			}),
		).
		Query()
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("upsert concept: %w", err)
	}
	return nil
}

// UpsertPrerequisite records prereqID as a direct prerequisite of
// conceptID. The cycle check runs in the same transaction as the insert.
func (r *ConceptRepo) UpsertPrerequisite(ctx context.Context, prereqID, conceptID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, id := range []string{prereqID, conceptID} {
		if err := r.mustExist(ctx, tx, id); err != nil {
			return err
		}
	}
	if prereqID == conceptID {
		return fmt.Errorf("%w: %q cannot be its own prerequisite", apperr.ErrCycle, conceptID)
	}

	var exists bool
	err = tx.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM prerequisite_edges WHERE prerequisite_id = ? AND concept_id = ?)`,
		prereqID, conceptID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check edge: %w", err)
	}
	if exists {
		return nil
	}

	// conceptID already (transitively) required by prereqID means the new
	// edge closes a loop.
	var cyclic bool
	err = tx.QueryRowContext(ctx, `
		WITH RECURSIVE ancestors(id) AS (
			SELECT prerequisite_id FROM prerequisite_edges WHERE concept_id = ?
			UNION
			SELECT e.prerequisite_id FROM prerequisite_edges e JOIN ancestors a ON e.concept_id = a.id
		)
		SELECT EXISTS(SELECT 1 FROM ancestors WHERE id = ?)`,
		prereqID, conceptID,
	).Scan(&cyclic)
	if err != nil {
		return fmt.Errorf("cycle check: %w", err)
	}
	if cyclic {
		return fmt.Errorf("%w: %q -> %q", apperr.ErrCycle, prereqID, conceptID)
	}

	q, args := sqlite().
		Insert(tableEdges).
		Columns("prerequisite_id", "concept_id", "created_at").
		Values(prereqID, conceptID, time.Now().UTC()).
		Query()
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert edge: %w", err)
	}
	return tx.Commit()
}

// RemovePrerequisite deletes an edge. Removing a missing edge is a no-op.
func (r *ConceptRepo) RemovePrerequisite(ctx context.Context, prereqID, conceptID string) error {
	for _, id := range []string{prereqID, conceptID} {
		if err := r.mustExist(ctx, r.db, id); err != nil {
			return err
		}
	}
	q, args := sqlite().
		Delete(tableEdges).
		Where(entsql.And(entsql.EQ("prerequisite_id", prereqID), entsql.EQ("concept_id", conceptID))).
		Query()
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("delete edge: %w", err)
	}
	return nil
}

func (r *ConceptRepo) mustExist(ctx context.Context, q queryRower, id string) error {
	var exists bool
	err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM concepts WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check concept: %w", err)
	}
	if !exists {
		return fmt.Errorf("%w: concept %q", apperr.ErrNotFound, id)
	}
	return nil
}
