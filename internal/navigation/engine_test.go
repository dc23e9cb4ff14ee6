package navigation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/learnfast/internal/apperr"
	"github.com/abhisek/learnfast/internal/conceptgraph"
	"github.com/abhisek/learnfast/internal/progress"
)

const user = "u1"

func newEngine(t *testing.T, concepts []conceptgraph.Concept) (*Engine, *progress.MemoryStore) {
	t.Helper()
	g, err := conceptgraph.Build(concepts)
	require.NoError(t, err)
	store := progress.NewMemoryStore()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return NewEngine(g, store, nil, WithClock(func() time.Time { return fixed })), store
}

// a -> b -> c
func chain() []conceptgraph.Concept {
	return []conceptgraph.Concept{
		{ID: "a", EstimatedMinutes: 10},
		{ID: "b", EstimatedMinutes: 10, Prerequisites: []string{"a"}},
		{ID: "c", EstimatedMinutes: 10, Prerequisites: []string{"b"}},
	}
}

// a -> {b, c} -> d
func diamond() []conceptgraph.Concept {
	return []conceptgraph.Concept{
		{ID: "a", EstimatedMinutes: 10},
		{ID: "b", EstimatedMinutes: 10, Prerequisites: []string{"a"}},
		{ID: "c", EstimatedMinutes: 10, Prerequisites: []string{"a"}},
		{ID: "d", EstimatedMinutes: 10, Prerequisites: []string{"b", "c"}},
	}
}

func TestAvailability_Fresh(t *testing.T) {
	e, _ := newEngine(t, chain())
	got, err := e.Availability(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, map[string]progress.Status{
		"a": progress.StatusAvailable,
		"b": progress.StatusLocked,
		"c": progress.StatusLocked,
	}, got)
}

func TestComplete_UnlocksNextInChain(t *testing.T) {
	e, store := newEngine(t, chain())
	ctx := context.Background()

	unlocked, err := e.Complete(ctx, user, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, unlocked)

	rec, err := store.Status(ctx, user, "b")
	require.NoError(t, err)
	assert.Equal(t, progress.StatusAvailable, rec.Status, "unlock is persisted")

	st, err := e.StatusOf(ctx, user, "c")
	require.NoError(t, err)
	assert.Equal(t, progress.StatusLocked, st)
}

func TestComplete_DiamondNeedsBothParents(t *testing.T) {
	e, _ := newEngine(t, diamond())
	ctx := context.Background()

	unlocked, err := e.Complete(ctx, user, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, unlocked)

	unlocked, err = e.Complete(ctx, user, "b")
	require.NoError(t, err)
	assert.Empty(t, unlocked)

	unlocked, err = e.Complete(ctx, user, "c")
	require.NoError(t, err)
	assert.Equal(t, []string{"d"}, unlocked)
}

func TestComplete_Idempotent(t *testing.T) {
	e, _ := newEngine(t, chain())
	ctx := context.Background()

	_, err := e.Complete(ctx, user, "a")
	require.NoError(t, err)
	before, err := e.Availability(ctx, user)
	require.NoError(t, err)

	unlocked, err := e.Complete(ctx, user, "a")
	require.NoError(t, err)
	assert.Empty(t, unlocked)

	after, err := e.Availability(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestComplete_LockedIsRejected(t *testing.T) {
	e, store := newEngine(t, chain())
	ctx := context.Background()

	_, err := e.Complete(ctx, user, "c")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrPrerequisiteNotMet)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

	var te *TransitionError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, progress.StatusLocked, te.From)

	recs, err := store.Records(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestStart_RoundTrip(t *testing.T) {
	e, store := newEngine(t, chain())
	ctx := context.Background()

	require.NoError(t, e.Start(ctx, user, "a"))
	st, err := e.StatusOf(ctx, user, "a")
	require.NoError(t, err)
	assert.Equal(t, progress.StatusInProgress, st)

	// Starting twice is a no-op.
	require.NoError(t, e.Start(ctx, user, "a"))

	unlocked, err := e.Complete(ctx, user, "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, unlocked)

	rec, err := store.Status(ctx, user, "a")
	require.NoError(t, err)
	assert.Equal(t, progress.StatusCompleted, rec.Status)
	require.NotNil(t, rec.StartedAt)
	require.NotNil(t, rec.CompletedAt)
}

func TestStart_Rejections(t *testing.T) {
	e, _ := newEngine(t, chain())
	ctx := context.Background()

	err := e.Start(ctx, user, "b")
	assert.ErrorIs(t, err, apperr.ErrPrerequisiteNotMet)

	_, err = e.Complete(ctx, user, "a")
	require.NoError(t, err)
	err = e.Start(ctx, user, "a")
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.NotErrorIs(t, err, apperr.ErrPrerequisiteNotMet)
}

func TestUnknownConceptAndUser(t *testing.T) {
	e, _ := newEngine(t, chain())
	ctx := context.Background()

	_, err := e.Complete(ctx, user, "zzz")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.ErrorIs(t, e.Start(ctx, user, "zzz"), apperr.ErrNotFound)

	_, err = e.Availability(ctx, " ")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestComplete_CommitFailureLeavesNothing(t *testing.T) {
	e, store := newEngine(t, chain())
	ctx := context.Background()
	boom := errors.New("disk gone")
	store.FailCommits(boom)

	_, err := e.Complete(ctx, user, "a")
	require.Error(t, err)
	assert.True(t, apperr.IsAdapterFailure(err))
	assert.ErrorIs(t, err, boom)

	store.FailCommits(nil)
	got, err := e.Availability(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, progress.StatusAvailable, got["a"])
	assert.Equal(t, progress.StatusLocked, got["b"])
}

func TestComplete_SiblingsConcurrently(t *testing.T) {
	for i := 0; i < 20; i++ {
		e, _ := newEngine(t, diamond())
		ctx := context.Background()
		_, err := e.Complete(ctx, user, "a")
		require.NoError(t, err)

		var wg sync.WaitGroup
		results := make([][]string, 2)
		errs := make([]error, 2)
		for j, id := range []string{"b", "c"} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[j], errs[j] = e.Complete(ctx, user, id)
			}()
		}
		wg.Wait()
		require.NoError(t, errs[0])
		require.NoError(t, errs[1])

		total := len(results[0]) + len(results[1])
		assert.Equal(t, 1, total, "d is reported unlocked exactly once")

		st, err := e.StatusOf(ctx, user, "d")
		require.NoError(t, err)
		assert.Equal(t, progress.StatusAvailable, st)
	}
}

func TestRootsUnlockedAndPrereqs(t *testing.T) {
	e, _ := newEngine(t, diamond())
	ctx := context.Background()

	roots, err := e.Roots(ctx)
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, "a", roots[0].ID)

	_, err = e.Complete(ctx, user, "a")
	require.NoError(t, err)
	require.NoError(t, e.Start(ctx, user, "b"))

	ids, err := e.Unlocked(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, ids, "completed concepts are not listed")

	ok, err := e.PrerequisitesMet(ctx, user, "d")
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = e.PrerequisitesMet(ctx, user, "b")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPreview(t *testing.T) {
	var concepts []conceptgraph.Concept
	for i := 0; i < 6; i++ {
		c := conceptgraph.Concept{ID: fmt.Sprintf("n%d", i), EstimatedMinutes: 5}
		if i > 0 {
			c.Prerequisites = []string{fmt.Sprintf("n%d", i-1)}
		}
		concepts = append(concepts, c)
	}
	e, _ := newEngine(t, concepts)
	ctx := context.Background()

	for depth, want := range []int{1, 2, 3, 4, 5, 6, 6} {
		got, err := e.Preview(ctx, "n0", depth)
		require.NoError(t, err)
		assert.Len(t, got, want, "depth %d", depth)
		assert.Equal(t, "n0", got[0])
	}

	_, err := e.Preview(ctx, "n0", -1)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = e.Preview(ctx, "missing", 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func randomDAG(r *rand.Rand, n int) []conceptgraph.Concept {
	concepts := make([]conceptgraph.Concept, n)
	for i := range concepts {
		concepts[i] = conceptgraph.Concept{ID: fmt.Sprintf("c%02d", i), EstimatedMinutes: 1 + r.IntN(30)}
		for j := 0; j < i; j++ {
			if r.IntN(4) == 0 {
				concepts[i].Prerequisites = append(concepts[i].Prerequisites, concepts[j].ID)
			}
		}
	}
	return concepts
}

// Walks random DAGs by completing random unlocked concepts and checks that
// derived availability never contradicts the stored completions.
func TestAvailability_InvariantsOnRandomWalks(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	ctx := context.Background()
	for round := 0; round < 25; round++ {
		concepts := randomDAG(r, 12)
		byID := make(map[string]conceptgraph.Concept, len(concepts))
		for _, c := range concepts {
			byID[c.ID] = c
		}
		e, store := newEngine(t, concepts)

		for step := 0; step < len(concepts); step++ {
			open, err := e.Unlocked(ctx, user)
			require.NoError(t, err)
			if len(open) == 0 {
				break
			}
			pick := open[r.IntN(len(open))]
			if r.IntN(3) == 0 {
				require.NoError(t, e.Start(ctx, user, pick))
			}
			unlocked, err := e.Complete(ctx, user, pick)
			require.NoError(t, err)

			completed, err := progress.CompletedSet(ctx, store, user)
			require.NoError(t, err)
			avail, err := e.Availability(ctx, user)
			require.NoError(t, err)

			for id, st := range avail {
				allMet := true
				for _, p := range byID[id].Prerequisites {
					allMet = allMet && completed[p]
				}
				switch st {
				case progress.StatusAvailable, progress.StatusInProgress, progress.StatusCompleted:
					assert.True(t, allMet, "%s is %s with unmet prerequisites", id, st)
				case progress.StatusLocked:
					assert.False(t, allMet, "%s locked with all prerequisites met", id)
				}
			}
			for _, id := range unlocked {
				assert.Equal(t, progress.StatusAvailable, avail[id])
			}
		}
	}
}

// staleReads serves Records from a copy taken before later writes, as a
// second process holding an old read would see them.
type staleReads struct {
	*progress.MemoryStore
	snapshot map[string]progress.Record
}

func (s *staleReads) Records(context.Context, string) (map[string]progress.Record, error) {
	return s.snapshot, nil
}

func TestComplete_StaleReadIsRejected(t *testing.T) {
	g, err := conceptgraph.Build(chain())
	require.NoError(t, err)
	shared := progress.NewMemoryStore()
	ctx := context.Background()

	stale := &staleReads{MemoryStore: shared, snapshot: map[string]progress.Record{}}
	other := NewEngine(g, stale, nil)

	first := NewEngine(g, shared, nil)
	_, err = first.Complete(ctx, user, "a")
	require.NoError(t, err)

	_, err = other.Complete(ctx, user, "a")
	require.ErrorIs(t, err, apperr.ErrConflict)
	assert.False(t, apperr.IsAdapterFailure(err))

	recs, err := shared.Records(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, progress.StatusCompleted, recs["a"].Status)
	assert.Equal(t, progress.StatusAvailable, recs["b"].Status)
}
