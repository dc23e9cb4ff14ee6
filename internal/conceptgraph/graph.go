package conceptgraph

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/abhisek/learnfast/internal/apperr"
)

// node is an arena slot. Edges are stored as arena indices so the cycle
// check is a pure reachability query over ints.
type node struct {
	concept    Concept
	prereqs    []int
	dependents []int
}

// Graph is an in-memory concept DAG. It implements Store and is safe for
// concurrent use: reads share a read lock, edge insertion takes the write
// lock only after the cycle check has passed.
type Graph struct {
	mu    sync.RWMutex
	nodes []node
	index map[string]int
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{index: make(map[string]int)}
}

// Build constructs a graph from concepts, adding every concept first and
// then every declared prerequisite edge. It fails on dangling prerequisites,
// invalid concepts, and cycles.
func Build(concepts []Concept) (*Graph, error) {
	if err := validateConcepts(concepts); err != nil {
		return nil, err
	}
	g := NewGraph()
	ctx := context.Background()
	for _, c := range concepts {
		if err := g.UpsertConcept(ctx, c); err != nil {
			return nil, err
		}
	}
	for _, c := range concepts {
		for _, p := range c.Prerequisites {
			if err := g.UpsertPrerequisite(ctx, p, c.ID); err != nil {
				return nil, fmt.Errorf("edge %q -> %q: %w", p, c.ID, err)
			}
		}
	}
	return g, nil
}

// UpsertConcept inserts or updates a concept's attributes. The Prerequisites
// field is ignored; edges are managed through UpsertPrerequisite.
func (g *Graph) UpsertConcept(_ context.Context, c Concept) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	attrs := c
	attrs.Prerequisites = nil
	if i, ok := g.index[c.ID]; ok {
		g.nodes[i].concept = attrs
		return nil
	}
	g.index[c.ID] = len(g.nodes)
	g.nodes = append(g.nodes, node{concept: attrs})
	return nil
}

// UpsertPrerequisite records prereqID as a direct prerequisite of conceptID.
// Inserting an existing edge is a no-op.
func (g *Graph) UpsertPrerequisite(_ context.Context, prereqID, conceptID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	from, ok := g.index[prereqID]
	if !ok {
		return fmt.Errorf("concept %q: %w", prereqID, apperr.ErrNotFound)
	}
	to, ok := g.index[conceptID]
	if !ok {
		return fmt.Errorf("concept %q: %w", conceptID, apperr.ErrNotFound)
	}
	if slices.Contains(g.nodes[to].prereqs, from) {
		return nil
	}
	// prereq -> concept closes a cycle iff prereq is already downstream of concept.
	if from == to || g.reachableLocked(to, from) {
		return fmt.Errorf("%q -> %q: %w", prereqID, conceptID, apperr.ErrCycle)
	}
	g.nodes[to].prereqs = append(g.nodes[to].prereqs, from)
	g.nodes[from].dependents = append(g.nodes[from].dependents, to)
	return nil
}

// RemovePrerequisite deletes the prereqID -> conceptID edge.
func (g *Graph) RemovePrerequisite(_ context.Context, prereqID, conceptID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	from, ok := g.index[prereqID]
	if !ok {
		return fmt.Errorf("concept %q: %w", prereqID, apperr.ErrNotFound)
	}
	to, ok := g.index[conceptID]
	if !ok {
		return fmt.Errorf("concept %q: %w", conceptID, apperr.ErrNotFound)
	}
	g.nodes[to].prereqs = slices.DeleteFunc(g.nodes[to].prereqs, func(i int) bool { return i == from })
	g.nodes[from].dependents = slices.DeleteFunc(g.nodes[from].dependents, func(i int) bool { return i == to })
	return nil
}

// reachableLocked reports whether dst is reachable from src along dependent
// edges. Caller holds g.mu.
func (g *Graph) reachableLocked(src, dst int) bool {
	seen := make([]bool, len(g.nodes))
	queue := []int{src}
	seen[src] = true
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == dst {
			return true
		}
		for _, d := range g.nodes[cur].dependents {
			if !seen[d] {
				seen[d] = true
				queue = append(queue, d)
			}
		}
	}
	return false
}

// Concept returns a concept by ID.
func (g *Graph) Concept(_ context.Context, id string) (Concept, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	i, ok := g.index[id]
	if !ok {
		return Concept{}, fmt.Errorf("concept %q: %w", id, apperr.ErrNotFound)
	}
	return g.conceptLocked(i), nil
}

func (g *Graph) conceptLocked(i int) Concept {
	c := g.nodes[i].concept
	c.Prerequisites = g.idsLocked(g.nodes[i].prereqs)
	return c
}

func (g *Graph) idsLocked(idx []int) []string {
	out := make([]string, 0, len(idx))
	for _, i := range idx {
		out = append(out, g.nodes[i].concept.ID)
	}
	return out
}

// Prerequisites returns the direct prerequisite IDs of a concept.
func (g *Graph) Prerequisites(_ context.Context, id string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	i, ok := g.index[id]
	if !ok {
		return nil, fmt.Errorf("concept %q: %w", id, apperr.ErrNotFound)
	}
	return g.idsLocked(g.nodes[i].prereqs), nil
}

// Dependents returns the IDs of concepts that directly depend on id.
func (g *Graph) Dependents(_ context.Context, id string) ([]string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	i, ok := g.index[id]
	if !ok {
		return nil, fmt.Errorf("concept %q: %w", id, apperr.ErrNotFound)
	}
	return g.idsLocked(g.nodes[i].dependents), nil
}

// Concepts returns every concept, ordered by ID.
func (g *Graph) Concepts(_ context.Context) ([]Concept, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Concept, 0, len(g.nodes))
	for i := range g.nodes {
		out = append(out, g.conceptLocked(i))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Len returns the number of concepts.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}
