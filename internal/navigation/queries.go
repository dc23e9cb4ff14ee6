package navigation

import (
	"context"
	"fmt"
	"sort"

	"github.com/abhisek/learnfast/internal/apperr"
	"github.com/abhisek/learnfast/internal/conceptgraph"
	"github.com/abhisek/learnfast/internal/progress"
)

// Roots returns concepts with no prerequisites, ordered by ID.
func (e *Engine) Roots(ctx context.Context) ([]conceptgraph.Concept, error) {
	all, err := e.graph.Concepts(ctx)
	if err != nil {
		return nil, apperr.Adapter("graph.concepts", err)
	}
	var roots []conceptgraph.Concept
	for _, c := range all {
		if c.IsRoot() {
			roots = append(roots, c)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].ID < roots[j].ID })
	return roots, nil
}

// Unlocked returns the IDs the user may work on now: Available or
// InProgress, never Completed.
func (e *Engine) Unlocked(ctx context.Context, userID string) ([]string, error) {
	avail, err := e.Availability(ctx, userID)
	if err != nil {
		return nil, err
	}
	var ids []string
	for id, st := range avail {
		if st == progress.StatusAvailable || st == progress.StatusInProgress {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// PrerequisitesMet reports whether every direct prerequisite of conceptID
// is completed for userID.
func (e *Engine) PrerequisitesMet(ctx context.Context, userID, conceptID string) (bool, error) {
	if err := validUser(userID); err != nil {
		return false, err
	}
	prereqs, err := e.graph.Prerequisites(ctx, conceptID)
	if err != nil {
		return false, apperr.Adapter("graph.prerequisites", err)
	}
	snap, err := e.load(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, p := range prereqs {
		if !snap.completed[p] {
			return false, nil
		}
	}
	return true, nil
}

// Preview lists rootID followed by the concepts reachable through
// dependents within depth hops, breadth-first, each level ordered by ID.
// Depth 0 yields only the root.
func (e *Engine) Preview(ctx context.Context, rootID string, depth int) ([]string, error) {
	if depth < 0 {
		return nil, fmt.Errorf("%w: depth must be >= 0, got %d", apperr.ErrInvalidInput, depth)
	}
	if _, err := e.graph.Concept(ctx, rootID); err != nil {
		return nil, apperr.Adapter("graph.concept", err)
	}

	out := []string{rootID}
	seen := map[string]bool{rootID: true}
	level := []string{rootID}
	for d := 0; d < depth && len(level) > 0; d++ {
		var next []string
		for _, id := range level {
			deps, err := e.graph.Dependents(ctx, id)
			if err != nil {
				return nil, apperr.Adapter("graph.dependents", err)
			}
			for _, dep := range deps {
				if !seen[dep] {
					seen[dep] = true
					next = append(next, dep)
				}
			}
		}
		sort.Strings(next)
		out = append(out, next...)
		level = next
	}
	return out, nil
}
