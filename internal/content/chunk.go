// Package content defines lesson chunks and the store contract used by the
// assembler.
package content

import (
	"context"
	"fmt"
	"strings"
)

// MinutesPerChunk is the study time assumed for one chunk when nothing
// more precise is known.
const MinutesPerChunk = 2

// EstimateFromChunks returns the estimated study time of n chunks.
func EstimateFromChunks(n int) int {
	if n <= 0 {
		return 0
	}
	return n * MinutesPerChunk
}

// Chunk is an atomic piece of content belonging to one concept.
type Chunk struct {
	ID                string
	ConceptID         string
	Content           string
	EstimatedMinutes  int
	Relevance         float64
	PresentationOrder int
}

// Validate checks the fields every store relies on.
func (c Chunk) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("chunk ID must not be empty")
	}
	if strings.TrimSpace(c.ConceptID) == "" {
		return fmt.Errorf("chunk %q: concept ID must not be empty", c.ID)
	}
	if c.EstimatedMinutes <= 0 {
		return fmt.Errorf("chunk %q: EstimatedMinutes must be > 0, got %d", c.ID, c.EstimatedMinutes)
	}
	return nil
}

// Store returns the chunks of a concept. With a non-empty query each chunk
// carries a relevance score against it; the slice is ordered by relevance
// descending, then presentation order. An unknown concept yields an empty
// slice, not an error.
type Store interface {
	Chunks(ctx context.Context, conceptID, query string) ([]Chunk, error)
}
