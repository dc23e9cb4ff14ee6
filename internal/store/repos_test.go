package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/learnfast/internal/apperr"
	"github.com/abhisek/learnfast/internal/conceptgraph"
	"github.com/abhisek/learnfast/internal/content"
	"github.com/abhisek/learnfast/internal/progress"
)

func seedChain(t *testing.T, r *ConceptRepo) {
	t.Helper()
	ctx := context.Background()
	for _, c := range []conceptgraph.Concept{
		{ID: "a", Name: "A", EstimatedMinutes: 10},
		{ID: "b", Name: "B", EstimatedMinutes: 15},
		{ID: "c", Name: "C", EstimatedMinutes: 5},
	} {
		require.NoError(t, r.UpsertConcept(ctx, c))
	}
	require.NoError(t, r.UpsertPrerequisite(ctx, "a", "b"))
	require.NoError(t, r.UpsertPrerequisite(ctx, "b", "c"))
}

func TestConceptRepo_GraphQueries(t *testing.T) {
	s := openTestStore(t)
	r := s.Concepts()
	seedChain(t, r)
	ctx := context.Background()

	c, err := r.Concept(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "B", c.Name)
	assert.Equal(t, 15, c.EstimatedMinutes)
	assert.Equal(t, []string{"a"}, c.Prerequisites)

	deps, err := r.Dependents(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, deps)

	all, err := r.Concepts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Empty(t, all[0].Prerequisites)
	assert.Equal(t, []string{"b"}, all[2].Prerequisites)

	_, err = r.Concept(ctx, "zzz")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = r.Prerequisites(ctx, "zzz")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestConceptRepo_RejectsCycles(t *testing.T) {
	s := openTestStore(t)
	r := s.Concepts()
	seedChain(t, r)
	ctx := context.Background()

	assert.ErrorIs(t, r.UpsertPrerequisite(ctx, "c", "a"), apperr.ErrCycle)
	assert.ErrorIs(t, r.UpsertPrerequisite(ctx, "b", "b"), apperr.ErrCycle)
	assert.ErrorIs(t, r.UpsertPrerequisite(ctx, "a", "nope"), apperr.ErrNotFound)

	prereqs, err := r.Prerequisites(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, prereqs, "rejected edge left no trace")

	// Existing edge and shortcut edge are both fine.
	require.NoError(t, r.UpsertPrerequisite(ctx, "a", "b"))
	require.NoError(t, r.UpsertPrerequisite(ctx, "a", "c"))
}

func TestConceptRepo_UpsertUpdatesAttributes(t *testing.T) {
	s := openTestStore(t)
	r := s.Concepts()
	seedChain(t, r)
	ctx := context.Background()

	require.NoError(t, r.UpsertConcept(ctx, conceptgraph.Concept{ID: "b", Name: "Bee", EstimatedMinutes: 20}))
	c, err := r.Concept(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, "Bee", c.Name)
	assert.Equal(t, []string{"a"}, c.Prerequisites, "edges survive attribute updates")

	err = r.UpsertConcept(ctx, conceptgraph.Concept{ID: "x", EstimatedMinutes: 0})
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	require.NoError(t, r.RemovePrerequisite(ctx, "a", "b"))
	c, err = r.Concept(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, c.Prerequisites)
	require.NoError(t, r.RemovePrerequisite(ctx, "a", "b"), "absent edge is a no-op")
	assert.ErrorIs(t, r.RemovePrerequisite(ctx, "a", "ghost"), apperr.ErrNotFound)
}

func TestProgressRepo_CommitAppendsEvents(t *testing.T) {
	s := openTestStore(t)
	r := s.Progress()
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rec, err := r.Status(ctx, "u1", "a")
	require.NoError(t, err)
	assert.Equal(t, progress.StatusLocked, rec.Status)

	err = r.Commit(ctx, "u1", []progress.Change{
		{ConceptID: "a", From: progress.StatusAvailable, To: progress.StatusCompleted, At: at, Trigger: "complete"},
		{ConceptID: "b", From: progress.StatusLocked, To: progress.StatusAvailable, At: at, Trigger: "unlock"},
	})
	require.NoError(t, err)

	rec, err = r.Status(ctx, "u1", "a")
	require.NoError(t, err)
	assert.Equal(t, progress.StatusCompleted, rec.Status)
	require.NotNil(t, rec.CompletedAt)
	assert.True(t, rec.CompletedAt.Equal(at))
	assert.Nil(t, rec.StartedAt)

	done, err := r.ListCompleted(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, done)

	recs, err := r.Records(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, recs, 2)
	assert.Equal(t, progress.StatusAvailable, recs["b"].Status)

	events, err := s.Events().History(ctx, "u1", QueryOpts{})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "completed", events[0].To)
	assert.Equal(t, "unlock", events[1].Reason)
	assert.Less(t, events[0].Sequence, events[1].Sequence)

	limited, err := s.Events().History(ctx, "u1", QueryOpts{After: events[0].Sequence})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestProgressRepo_StartThenComplete(t *testing.T) {
	s := openTestStore(t)
	r := s.Progress()
	ctx := context.Background()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, r.SetStatus(ctx, "u1", "a", progress.StatusInProgress, t0))
	require.NoError(t, r.SetStatus(ctx, "u1", "a", progress.StatusCompleted, t0.Add(time.Hour)))

	rec, err := r.Status(ctx, "u1", "a")
	require.NoError(t, err)
	require.NotNil(t, rec.StartedAt)
	require.NotNil(t, rec.CompletedAt)
	assert.True(t, rec.StartedAt.Equal(t0))
	assert.True(t, rec.CompletedAt.Equal(t0.Add(time.Hour)))
}

func TestProgressRepo_FailedCommitRollsBack(t *testing.T) {
	s := openTestStore(t)
	r := s.Progress()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := r.Commit(ctx, "u1", []progress.Change{
		{ConceptID: "a", To: progress.StatusCompleted, At: time.Now()},
	})
	require.Error(t, err)

	recs, err := r.Records(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestProgressRepo_RejectsStaleChange(t *testing.T) {
	s := openTestStore(t)
	r := s.Progress()
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, r.Commit(ctx, "u1", []progress.Change{
		{ConceptID: "a", From: progress.StatusAvailable, To: progress.StatusCompleted, At: at, Trigger: "complete"},
	}))

	err := r.Commit(ctx, "u1", []progress.Change{
		{ConceptID: "b", From: progress.StatusLocked, To: progress.StatusAvailable, At: at, Trigger: "unlock"},
		{ConceptID: "a", From: progress.StatusAvailable, To: progress.StatusCompleted, At: at, Trigger: "complete"},
	})
	require.ErrorIs(t, err, apperr.ErrConflict)

	err = r.Commit(ctx, "u1", []progress.Change{
		{ConceptID: "c", From: progress.StatusLocked, To: progress.StatusInProgress, At: at, Trigger: "start"},
	})
	require.ErrorIs(t, err, apperr.ErrInvalidTransition)

	recs, err := r.Records(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	n, err := s.Events().Count(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "rejected batches append no events")
}

func TestProgressRepo_ReplaceIsAtomic(t *testing.T) {
	s := openTestStore(t)
	r := s.Progress()
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, r.SetStatus(ctx, "u1", "a", progress.StatusCompleted, at))

	err := r.Replace(ctx, "u1", []progress.Change{
		{ConceptID: "b", From: progress.StatusLocked, To: progress.StatusAvailable, At: at},
		{ConceptID: "c", From: progress.StatusCompleted, To: progress.StatusLocked, At: at},
	})
	require.Error(t, err)
	done, err := r.ListCompleted(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, done, "failed replace keeps old progress")

	require.NoError(t, r.Replace(ctx, "u1", []progress.Change{
		{ConceptID: "b", From: progress.StatusLocked, To: progress.StatusAvailable, At: at},
	}))
	recs, err := r.Records(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, progress.StatusAvailable, recs["b"].Status)
}

func TestProgressRepo_Reset(t *testing.T) {
	s := openTestStore(t)
	r := s.Progress()
	ctx := context.Background()

	require.NoError(t, r.SetStatus(ctx, "u1", "a", progress.StatusCompleted, time.Now()))
	require.NoError(t, r.SetStatus(ctx, "u2", "a", progress.StatusCompleted, time.Now()))
	require.NoError(t, r.Reset(ctx, "u1"))

	done, err := r.ListCompleted(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, done)
	done, err = r.ListCompleted(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, done)

	n, err := s.Events().Count(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "event log survives reset")
}

func TestChunkRepo(t *testing.T) {
	s := openTestStore(t)
	r := s.Chunks(nil)
	ctx := context.Background()

	require.NoError(t, r.ReplaceChunks(ctx, "a",
		content.Chunk{ID: "a2", ConceptID: "a", Content: "loops and recursion", EstimatedMinutes: 2, PresentationOrder: 2},
		content.Chunk{ID: "a1", ConceptID: "a", Content: "variables", EstimatedMinutes: 3, PresentationOrder: 1},
	))

	got, err := r.Chunks(ctx, "a", "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a1", got[0].ID)

	got, err = r.Chunks(ctx, "a", "recursion")
	require.NoError(t, err)
	assert.Equal(t, "a2", got[0].ID)
	assert.Greater(t, got[0].Relevance, 0.0)

	n, err := r.Count(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	err = r.ReplaceChunks(ctx, "a", content.Chunk{ID: "bad", ConceptID: "a"})
	assert.Error(t, err)
	err = r.ReplaceChunks(ctx, "a", content.Chunk{ID: "b1", ConceptID: "b", Content: "x", EstimatedMinutes: 1})
	assert.Error(t, err)
	n, err = r.Count(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 2, n, "rejected replace keeps the stored set")

	require.NoError(t, r.ReplaceChunks(ctx, "a",
		content.Chunk{ID: "a1", ConceptID: "a", Content: "variables", EstimatedMinutes: 3, PresentationOrder: 1},
	))
	n, err = r.Count(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, n, "shorter set drops trailing chunks")
}

func TestSnapshotChanges_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	r := s.Progress()
	ctx := context.Background()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, r.SetStatus(ctx, "u1", "a", progress.StatusInProgress, t0))
	require.NoError(t, r.SetStatus(ctx, "u1", "a", progress.StatusCompleted, t0.Add(time.Minute)))
	require.NoError(t, r.SetStatus(ctx, "u1", "b", progress.StatusAvailable, t0))

	recs, err := r.Records(ctx, "u1")
	require.NoError(t, err)
	snap := SnapshotFromRecords("u1", recs)
	require.NoError(t, s.Snapshots().Save(ctx, snap))
	require.NoError(t, r.Reset(ctx, "u1"))

	latest, err := s.Snapshots().Latest(ctx, "u1")
	require.NoError(t, err)
	changes, err := latest.Data.Changes(t0.Add(time.Hour))
	require.NoError(t, err)
	require.NoError(t, r.Commit(ctx, "u1", changes))

	restored, err := r.Records(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, progress.StatusCompleted, restored["a"].Status)
	assert.Equal(t, progress.StatusAvailable, restored["b"].Status)
	require.NotNil(t, restored["a"].StartedAt)
	assert.True(t, restored["a"].StartedAt.Equal(t0))
}

func TestSummary(t *testing.T) {
	s := openTestStore(t)
	seedChain(t, s.Concepts())
	ctx := context.Background()
	require.NoError(t, s.Progress().SetStatus(ctx, "u1", "a", progress.StatusCompleted, time.Now()))

	sum, err := s.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, Summary{Concepts: 3, Edges: 2, Users: 1, Events: 1}, sum)
}

