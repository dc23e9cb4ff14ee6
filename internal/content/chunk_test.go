package content

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/learnfast/internal/relevance"
)

func TestEstimateFromChunks(t *testing.T) {
	assert.Equal(t, 0, EstimateFromChunks(0))
	assert.Equal(t, 0, EstimateFromChunks(-3))
	assert.Equal(t, 10, EstimateFromChunks(5))
}

func TestChunkValidate(t *testing.T) {
	ok := Chunk{ID: "x", ConceptID: "a", EstimatedMinutes: 2}
	require.NoError(t, ok.Validate())

	bad := ok
	bad.EstimatedMinutes = 0
	assert.Error(t, bad.Validate())
	bad = ok
	bad.ConceptID = ""
	assert.Error(t, bad.Validate())
}

func TestMemoryStore_NoQueryKeepsPresentationOrder(t *testing.T) {
	s := NewMemoryStore(nil)
	require.NoError(t, s.Put(
		Chunk{ID: "a2", ConceptID: "a", Content: "second", EstimatedMinutes: 2, PresentationOrder: 2},
		Chunk{ID: "a1", ConceptID: "a", Content: "first", EstimatedMinutes: 2, PresentationOrder: 1},
	))

	got, err := s.Chunks(context.Background(), "a", "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a1", got[0].ID)
	assert.Zero(t, got[0].Relevance)
}

func TestMemoryStore_QueryRanksByRelevance(t *testing.T) {
	s := NewMemoryStore(nil)
	require.NoError(t, s.Put(
		Chunk{ID: "a1", ConceptID: "a", Content: "history of the printing press", EstimatedMinutes: 2, PresentationOrder: 1},
		Chunk{ID: "a2", ConceptID: "a", Content: "gradient descent updates weights", EstimatedMinutes: 2, PresentationOrder: 2},
	))

	got, err := s.Chunks(context.Background(), "a", "gradient descent")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a2", got[0].ID)
	assert.Greater(t, got[0].Relevance, got[1].Relevance)
}

func TestMemoryStore_PutReplacesByID(t *testing.T) {
	s := NewMemoryStore(nil)
	require.NoError(t, s.Put(Chunk{ID: "a1", ConceptID: "a", Content: "old", EstimatedMinutes: 2}))
	require.NoError(t, s.Put(Chunk{ID: "a1", ConceptID: "a", Content: "new", EstimatedMinutes: 3}))

	got, err := s.Chunks(context.Background(), "a", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Content)
}

func TestMemoryStore_UnknownConceptIsEmpty(t *testing.T) {
	got, err := NewMemoryStore(nil).Chunks(context.Background(), "none", "q")
	require.NoError(t, err)
	assert.Empty(t, got)
}

type failingScorer struct{}

func (failingScorer) Score(context.Context, string, []string) ([]float64, error) {
	return nil, errors.New("scorer down")
}

func TestMemoryStore_ScorerFailure(t *testing.T) {
	s := NewMemoryStore(failingScorer{})
	require.NoError(t, s.Put(Chunk{ID: "a1", ConceptID: "a", Content: "x", EstimatedMinutes: 2}))
	_, err := s.Chunks(context.Background(), "a", "q")
	assert.Error(t, err)
}

func TestScore_ScoreCountMismatchIsError(t *testing.T) {
	scorer := relevance.NewMockScorer(relevance.MockResult{Scores: []float64{0.5}})
	chunks := []Chunk{
		{ID: "a1", ConceptID: "a", Content: "one", EstimatedMinutes: 2},
		{ID: "a2", ConceptID: "a", Content: "two", EstimatedMinutes: 2},
	}
	var (
		got []Chunk
		err error
	)
	require.NotPanics(t, func() { got, err = Score(context.Background(), scorer, "q", chunks) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 scores for 2 chunks")
	assert.Nil(t, got)
}
