package conceptgraph

import (
	"context"
	"fmt"
	"strings"
)

// Concept is a unit of learnable material in the prerequisite graph.
type Concept struct {
	ID               string
	Name             string
	Description      string
	EstimatedMinutes int
	Prerequisites    []string // direct prerequisite IDs
}

// DisplayName returns the concept name, falling back to its ID.
func (c Concept) DisplayName() string {
	if strings.TrimSpace(c.Name) != "" {
		return c.Name
	}
	return c.ID
}

// IsRoot reports whether the concept has no prerequisites.
func (c Concept) IsRoot() bool {
	return len(c.Prerequisites) == 0
}

// Validate checks the fields of a single concept.
func (c Concept) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("concept ID must not be empty")
	}
	if c.EstimatedMinutes <= 0 {
		return fmt.Errorf("concept %q: EstimatedMinutes must be > 0, got %d", c.ID, c.EstimatedMinutes)
	}
	return nil
}

// Store is the concept graph persistence contract the core depends on.
//
// UpsertPrerequisite(ctx, a, b) records that a must be completed before b,
// i.e. a becomes a direct prerequisite of b. Implementations must reject an
// edge that would create a cycle with apperr.ErrCycle and unknown IDs with
// apperr.ErrNotFound, without mutating anything. RemovePrerequisite also
// reports unknown IDs with apperr.ErrNotFound; removing an absent edge is a
// no-op.
type Store interface {
	Concept(ctx context.Context, id string) (Concept, error)
	Prerequisites(ctx context.Context, id string) ([]string, error)
	Dependents(ctx context.Context, id string) ([]string, error)
	Concepts(ctx context.Context) ([]Concept, error)
	UpsertConcept(ctx context.Context, c Concept) error
	UpsertPrerequisite(ctx context.Context, prereqID, conceptID string) error
	RemovePrerequisite(ctx context.Context, prereqID, conceptID string) error
}
