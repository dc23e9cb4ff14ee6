package relevance

import (
	"context"
	"sync"
)

// MockResult is one scripted reply of a MockScorer.
type MockResult struct {
	Scores []float64
	Err    error
}

// MockScorer replays scripted results in order and counts calls. Once the
// script is exhausted it scores every text 0.
type MockScorer struct {
	mu      sync.Mutex
	results []MockResult
	calls   int
}

// NewMockScorer creates a MockScorer with the given script.
func NewMockScorer(results ...MockResult) *MockScorer {
	return &MockScorer{results: results}
}

func (m *MockScorer) Score(_ context.Context, _ string, texts []string) ([]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.calls
	m.calls++
	if i >= len(m.results) {
		return make([]float64, len(texts)), nil
	}
	r := m.results[i]
	return r.Scores, r.Err
}

// CallCount returns how many times Score was called.
func (m *MockScorer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
