package content

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/abhisek/learnfast/internal/relevance"
)

// MemoryStore keeps chunks in process. Relevance is computed with the
// configured scorer on every read.
type MemoryStore struct {
	mu     sync.RWMutex
	chunks map[string][]Chunk
	scorer relevance.Scorer
}

// NewMemoryStore returns an empty store. A nil scorer falls back to
// relevance.LexicalScorer.
func NewMemoryStore(scorer relevance.Scorer) *MemoryStore {
	if scorer == nil {
		scorer = relevance.LexicalScorer{}
	}
	return &MemoryStore{chunks: make(map[string][]Chunk), scorer: scorer}
}

// Put adds or replaces chunks by ID.
func (m *MemoryStore) Put(chunks ...Chunk) error {
	for _, c := range chunks {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range chunks {
		list := m.chunks[c.ConceptID]
		replaced := false
		for i := range list {
			if list[i].ID == c.ID {
				list[i] = c
				replaced = true
				break
			}
		}
		if !replaced {
			list = append(list, c)
		}
		m.chunks[c.ConceptID] = list
	}
	return nil
}

// ReplaceChunks makes chunks the complete chunk set of conceptID.
func (m *MemoryStore) ReplaceChunks(_ context.Context, conceptID string, chunks ...Chunk) error {
	for _, c := range chunks {
		if err := c.Validate(); err != nil {
			return err
		}
		if c.ConceptID != conceptID {
			return fmt.Errorf("chunk %q belongs to %q, not %q", c.ID, c.ConceptID, conceptID)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunks[conceptID] = append([]Chunk(nil), chunks...)
	return nil
}

func (m *MemoryStore) Chunks(ctx context.Context, conceptID, query string) ([]Chunk, error) {
	m.mu.RLock()
	out := append([]Chunk(nil), m.chunks[conceptID]...)
	m.mu.RUnlock()
	return Score(ctx, m.scorer, query, out)
}

// Score fills Relevance on chunks against query and sorts them with
// SortByRelevance. An empty query leaves every relevance at 0.
func Score(ctx context.Context, scorer relevance.Scorer, query string, chunks []Chunk) ([]Chunk, error) {
	if query != "" && len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Content
		}
		scores, err := scorer.Score(ctx, query, texts)
		if err != nil {
			return nil, fmt.Errorf("score chunks: %w", err)
		}
		if len(scores) != len(chunks) {
			return nil, fmt.Errorf("score chunks: scorer returned %d scores for %d chunks", len(scores), len(chunks))
		}
		for i := range chunks {
			chunks[i].Relevance = scores[i]
		}
	} else {
		for i := range chunks {
			chunks[i].Relevance = 0
		}
	}
	SortByRelevance(chunks)
	return chunks, nil
}

// SortByRelevance orders chunks by relevance descending, then presentation
// order, then ID.
func SortByRelevance(chunks []Chunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		a, b := chunks[i], chunks[j]
		if a.Relevance != b.Relevance {
			return a.Relevance > b.Relevance
		}
		if a.PresentationOrder != b.PresentationOrder {
			return a.PresentationOrder < b.PresentationOrder
		}
		return a.ID < b.ID
	})
}

// SortByPresentation orders chunks by presentation order, then ID.
func SortByPresentation(chunks []Chunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].PresentationOrder != chunks[j].PresentationOrder {
			return chunks[i].PresentationOrder < chunks[j].PresentationOrder
		}
		return chunks[i].ID < chunks[j].ID
	})
}
