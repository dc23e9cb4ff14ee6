package store

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/learnfast/internal/content"
	"github.com/abhisek/learnfast/internal/relevance"
)

// ChunkRepo implements content.Store on SQLite, scoring chunks against the
// query with its scorer on every read.
type ChunkRepo struct {
	db     *sql.DB
	scorer relevance.Scorer
}

var _ content.Store = (*ChunkRepo)(nil)

func (r *ChunkRepo) Chunks(ctx context.Context, conceptID, query string) ([]content.Chunk, error) {
	q, args := sqlite().
		Select("id", "concept_id", "content", "estimated_minutes", "presentation_order").
		From(sqlite().Table(tableChunks)).
		Where(entsql.EQ("concept_id", conceptID)).
		OrderBy("presentation_order", "id").
		Query()

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	var out []content.Chunk
	for rows.Next() {
		var c content.Chunk
		if err := rows.Scan(&c.ID, &c.ConceptID, &c.Content, &c.EstimatedMinutes, &c.PresentationOrder); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		out = append(out, c)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, err
	}
	return content.Score(ctx, r.scorer, query, out)
}

// ReplaceChunks makes chunks the complete chunk set of conceptID in one
// transaction. Stored chunks of the concept that are not in chunks are
// deleted, so a shorter re-import leaves nothing stale behind.
func (r *ChunkRepo) ReplaceChunks(ctx context.Context, conceptID string, chunks ...content.Chunk) error {
	for _, c := range chunks {
		if err := c.Validate(); err != nil {
			return err
		}
		if c.ConceptID != conceptID {
			return fmt.Errorf("chunk %q belongs to %q, not %q", c.ID, c.ConceptID, conceptID)
		}
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	q, args := sqlite().
		Delete(tableChunks).
		Where(entsql.EQ("concept_id", conceptID)).
		Query()
	if _, err := tx.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("clear chunks of %q: %w", conceptID, err)
	}
	for _, c := range chunks {
		q, args := sqlite().
			Insert(tableChunks).
			Columns("id", "concept_id", "content", "estimated_minutes", "presentation_order").
			Values(c.ID, c.ConceptID, c.Content, c.EstimatedMinutes, c.PresentationOrder).
			OnConflict(
				entsql.ConflictColumns("id"),
				entsql.ResolveWithNewValues(),
			).
			Query()
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("upsert chunk %q: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// Count returns the number of chunks stored for a concept.
func (r *ChunkRepo) Count(ctx context.Context, conceptID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM content_chunks WHERE concept_id = ?`, conceptID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}
