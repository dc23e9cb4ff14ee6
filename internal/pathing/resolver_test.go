package pathing

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/learnfast/internal/apperr"
	"github.com/abhisek/learnfast/internal/conceptgraph"
	"github.com/abhisek/learnfast/internal/progress"
)

const user = "u1"

func newResolver(t *testing.T, concepts []conceptgraph.Concept, completed ...string) *Resolver {
	t.Helper()
	g, err := conceptgraph.Build(concepts)
	require.NoError(t, err)
	store := progress.NewMemoryStore()
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for _, id := range completed {
		require.NoError(t, store.SetStatus(context.Background(), user, id, progress.StatusCompleted, at))
	}
	return NewResolver(g, store, nil)
}

// A(10) -> B(15) -> C(5)
func abc() []conceptgraph.Concept {
	return []conceptgraph.Concept{
		{ID: "A", EstimatedMinutes: 10},
		{ID: "B", EstimatedMinutes: 15, Prerequisites: []string{"A"}},
		{ID: "C", EstimatedMinutes: 5, Prerequisites: []string{"B"}},
	}
}

func TestResolve_FullChainFits(t *testing.T) {
	r := newResolver(t, abc())
	plan, err := r.Resolve(context.Background(), user, "C", 30)
	require.NoError(t, err)

	assert.Equal(t, []Entry{
		{ConceptID: "A", Name: "A", AllottedMinutes: 10, CumulativeMinutes: 10},
		{ConceptID: "B", Name: "B", AllottedMinutes: 15, CumulativeMinutes: 25},
		{ConceptID: "C", Name: "C", AllottedMinutes: 5, CumulativeMinutes: 30},
	}, plan.Entries)
	assert.Equal(t, 30, plan.TotalMinutes)
	assert.False(t, plan.Pruned)
	assert.True(t, plan.IncludesTarget())
}

func TestResolve_TightBudgetKeepsPrefix(t *testing.T) {
	r := newResolver(t, abc())
	plan, err := r.Resolve(context.Background(), user, "C", 20)
	require.NoError(t, err)

	assert.Equal(t, []string{"A"}, plan.ConceptIDs())
	assert.Equal(t, 10, plan.TotalMinutes)
	assert.True(t, plan.Pruned)
	assert.Equal(t, []string{"B", "C"}, plan.Skipped)
	assert.False(t, plan.IncludesTarget())
}

func TestResolve_PrerequisitesAlreadyCompleted(t *testing.T) {
	r := newResolver(t, abc(), "A", "B")
	plan, err := r.Resolve(context.Background(), user, "C", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, plan.ConceptIDs())
	assert.Equal(t, 5, plan.Entries[0].CumulativeMinutes)
}

func TestResolve_ZeroBudgetIsEmpty(t *testing.T) {
	r := newResolver(t, abc())
	plan, err := r.Resolve(context.Background(), user, "C", 0)
	require.NoError(t, err)
	assert.Empty(t, plan.Entries)
	assert.Equal(t, []string{"A", "B", "C"}, plan.Skipped)
}

func TestResolve_CompletedTarget(t *testing.T) {
	r := newResolver(t, abc(), "A", "B", "C")
	plan, err := r.Resolve(context.Background(), user, "C", 100)
	require.NoError(t, err)
	assert.Empty(t, plan.Entries)
	assert.False(t, plan.Pruned)
}

func TestResolve_BadInput(t *testing.T) {
	r := newResolver(t, abc())
	ctx := context.Background()

	_, err := r.Resolve(ctx, user, "C", -1)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = r.Resolve(ctx, "", "C", 10)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
	_, err = r.Resolve(ctx, user, "nope", 10)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// Roots A(2) and B(3); B gates C1(1) and C2(1); T needs A, C1 and C2.
// With 5 minutes greedy spends on A then B, exact prefers B, C1, C2.
func gated() []conceptgraph.Concept {
	return []conceptgraph.Concept{
		{ID: "A", EstimatedMinutes: 2},
		{ID: "B", EstimatedMinutes: 3},
		{ID: "C1", EstimatedMinutes: 1, Prerequisites: []string{"B"}},
		{ID: "C2", EstimatedMinutes: 1, Prerequisites: []string{"B"}},
		{ID: "T", EstimatedMinutes: 1, Prerequisites: []string{"A", "C1", "C2"}},
	}
}

func TestResolve_GreedyDoesNotBacktrack(t *testing.T) {
	r := newResolver(t, gated())
	plan, err := r.Resolve(context.Background(), user, "T", 5)
	require.NoError(t, err)
	assert.Equal(t, StrategyGreedy, plan.Strategy)
	assert.Equal(t, []string{"A", "B"}, plan.ConceptIDs())
}

func TestResolve_ExactFindsMoreConcepts(t *testing.T) {
	r := newResolver(t, gated())
	r.Strategy = StrategyExact
	plan, err := r.Resolve(context.Background(), user, "T", 5)
	require.NoError(t, err)
	assert.Equal(t, StrategyExact, plan.Strategy)
	assert.Equal(t, []string{"B", "C1", "C2"}, plan.ConceptIDs())
	assert.Equal(t, 5, plan.TotalMinutes)
}

func TestResolve_AutoFallsBackAboveLimit(t *testing.T) {
	r := newResolver(t, gated())
	r.Strategy = StrategyAuto
	r.ExactLimit = 3
	plan, err := r.Resolve(context.Background(), user, "T", 5)
	require.NoError(t, err)
	assert.Equal(t, StrategyGreedy, plan.Strategy)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("")
	require.NoError(t, err)
	assert.Equal(t, StrategyGreedy, s)
	s, err = ParseStrategy("auto")
	require.NoError(t, err)
	assert.Equal(t, StrategyAuto, s)
	s, err = ParseStrategy("prefix")
	require.NoError(t, err)
	assert.Equal(t, StrategyPrefix, s)
	_, err = ParseStrategy("best")
	assert.Error(t, err)
}

func TestResolve_PrefixStopsAtFirstMiss(t *testing.T) {
	r := newResolver(t, abc())
	r.Strategy = StrategyPrefix
	plan, err := r.Resolve(context.Background(), user, "C", 20)
	require.NoError(t, err)
	assert.Equal(t, StrategyPrefix, plan.Strategy)
	assert.Equal(t, []string{"A"}, plan.ConceptIDs())
	assert.Equal(t, []string{"B", "C"}, plan.Skipped)
	assert.Equal(t, 30, plan.RemainingMinutes)
	assert.Equal(t, 10, plan.TotalMinutes)
}

func TestResolve_RemainingMinutesExcludesCompleted(t *testing.T) {
	r := newResolver(t, abc(), "A")
	plan, err := r.Resolve(context.Background(), user, "C", 5)
	require.NoError(t, err)
	assert.Equal(t, 20, plan.RemainingMinutes)
	assert.Less(t, plan.TotalMinutes, plan.RemainingMinutes)
}

func TestPrunePrefix(t *testing.T) {
	entries := []Entry{
		{ConceptID: "a", AllottedMinutes: 10},
		{ConceptID: "b", AllottedMinutes: 15},
		{ConceptID: "c", AllottedMinutes: 1},
	}
	got := PrunePrefix(entries, 20)
	require.Len(t, got, 1)
	assert.Equal(t, 10, got[0].CumulativeMinutes)

	assert.Len(t, PrunePrefix(entries, 26), 3)
	assert.Empty(t, PrunePrefix(entries, 0))
}

func TestEstimateMinutes(t *testing.T) {
	assert.Equal(t, 30, EstimateMinutes(abc()))
	assert.Zero(t, EstimateMinutes(nil))
}

func randomDAG(r *rand.Rand, n int) []conceptgraph.Concept {
	concepts := make([]conceptgraph.Concept, n)
	for i := range concepts {
		concepts[i] = conceptgraph.Concept{ID: fmt.Sprintf("c%02d", i), EstimatedMinutes: 1 + r.IntN(20)}
		for j := 0; j < i; j++ {
			if r.IntN(3) == 0 {
				concepts[i].Prerequisites = append(concepts[i].Prerequisites, concepts[j].ID)
			}
		}
	}
	return concepts
}

func planScore(p *Plan) score {
	return score{target: p.IncludesTarget(), count: len(p.Entries), minutes: p.TotalMinutes}
}

func TestResolve_PropertiesOnRandomDAGs(t *testing.T) {
	rnd := rand.New(rand.NewPCG(42, 1))
	ctx := context.Background()

	for round := 0; round < 200; round++ {
		concepts := randomDAG(rnd, 2+rnd.IntN(12))
		byID := make(map[string]conceptgraph.Concept, len(concepts))
		for _, c := range concepts {
			byID[c.ID] = c
		}
		var completed []string
		for _, c := range concepts {
			if rnd.IntN(4) == 0 {
				completed = append(completed, c.ID)
			}
		}
		done := make(map[string]bool)
		for _, id := range completed {
			done[id] = true
		}

		r := newResolver(t, concepts, completed...)
		target := concepts[rnd.IntN(len(concepts))].ID
		budget := rnd.IntN(80)

		plans := map[Strategy]*Plan{}
		for _, s := range []Strategy{StrategyGreedy, StrategyExact, StrategyAuto, StrategyPrefix} {
			r.Strategy = s
			plan, err := r.Resolve(ctx, user, target, budget)
			require.NoError(t, err)
			plans[s] = plan

			assert.LessOrEqual(t, plan.TotalMinutes, budget)
			seen := map[string]bool{}
			sum := 0
			for _, e := range plan.Entries {
				for _, p := range byID[e.ConceptID].Prerequisites {
					assert.True(t, done[p] || seen[p],
						"round %d %s: %s before prerequisite %s", round, s, e.ConceptID, p)
				}
				assert.False(t, done[e.ConceptID], "completed concept planned")
				seen[e.ConceptID] = true
				sum += e.AllottedMinutes
				assert.Equal(t, sum, e.CumulativeMinutes)
			}
			assert.Equal(t, sum, plan.TotalMinutes)
		}

		pre := plans[StrategyPrefix]
		skippedMinutes := 0
		for _, id := range pre.Skipped {
			skippedMinutes += byID[id].EstimatedMinutes
		}
		assert.Equal(t, pre.RemainingMinutes, pre.TotalMinutes+skippedMinutes)
		assert.Equal(t, plans[StrategyGreedy].RemainingMinutes, pre.RemainingMinutes)
		if len(pre.Skipped) > 0 {
			assert.Greater(t, pre.TotalMinutes+byID[pre.Skipped[0]].EstimatedMinutes, budget,
				"round %d: prefix stopped before a concept that fits", round)
		}

		g, e := planScore(plans[StrategyGreedy]), planScore(plans[StrategyExact])
		assert.False(t, g.better(e), "round %d: greedy %+v beats exact %+v", round, g, e)
	}
}
