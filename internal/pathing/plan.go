// Package pathing resolves a budgeted, prerequisite-ordered learning plan
// toward a target concept.
package pathing

import (
	"fmt"

	"github.com/abhisek/learnfast/internal/conceptgraph"
)

// Strategy selects how the resolver chooses the subset of remaining
// concepts that fits the budget.
type Strategy string

const (
	// StrategyGreedy makes one deterministic pass in topological order and
	// never backtracks.
	StrategyGreedy Strategy = "greedy"
	// StrategyExact searches all prerequisite-closed subsets. Only used
	// when the remaining set is at most Resolver.ExactLimit concepts.
	StrategyExact Strategy = "exact"
	// StrategyAuto uses exact for small remaining sets and greedy otherwise.
	StrategyAuto Strategy = "auto"
	// StrategyPrefix keeps the longest prefix of the full topological path
	// that fits the budget and stops at the first concept that does not.
	StrategyPrefix Strategy = "prefix"
)

// ParseStrategy converts a flag/config value to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyGreedy, StrategyExact, StrategyAuto, StrategyPrefix:
		return Strategy(s), nil
	case "":
		return StrategyGreedy, nil
	}
	return "", fmt.Errorf("unknown plan strategy %q", s)
}

// Entry is one concept in a plan.
type Entry struct {
	ConceptID         string
	Name              string
	AllottedMinutes   int
	CumulativeMinutes int
}

// Plan is an ordered, budget-respecting sequence of concepts. Plans are
// computed per request and never persisted.
type Plan struct {
	Target       string
	Budget       int
	Strategy     Strategy
	Entries      []Entry
	TotalMinutes int

	// RemainingMinutes estimates the whole remaining set, planned or not.
	RemainingMinutes int

	// Pruned is true when some remaining prerequisite was left out.
	Pruned bool
	// Skipped lists the remaining concepts left out, in topological order.
	Skipped []string
}

// IncludesTarget reports whether the plan reaches its target.
func (p *Plan) IncludesTarget() bool {
	return len(p.Entries) > 0 && p.Entries[len(p.Entries)-1].ConceptID == p.Target
}

// ConceptIDs returns the plan's concept IDs in order.
func (p *Plan) ConceptIDs() []string {
	ids := make([]string, len(p.Entries))
	for i, e := range p.Entries {
		ids[i] = e.ConceptID
	}
	return ids
}

func buildEntries(concepts []conceptgraph.Concept) ([]Entry, int) {
	entries := make([]Entry, 0, len(concepts))
	total := 0
	for _, c := range concepts {
		total += c.EstimatedMinutes
		entries = append(entries, Entry{
			ConceptID:         c.ID,
			Name:              c.DisplayName(),
			AllottedMinutes:   c.EstimatedMinutes,
			CumulativeMinutes: total,
		})
	}
	return entries, total
}

// EstimateMinutes sums the estimated minutes of concepts.
func EstimateMinutes(concepts []conceptgraph.Concept) int {
	total := 0
	for _, c := range concepts {
		total += c.EstimatedMinutes
	}
	return total
}

// PrunePrefix returns the longest prefix of an ordered path whose
// allotted minutes fit budget. Cumulative minutes are recomputed.
func PrunePrefix(entries []Entry, budget int) []Entry {
	out := make([]Entry, 0, len(entries))
	total := 0
	for _, e := range entries {
		if total+e.AllottedMinutes > budget {
			break
		}
		total += e.AllottedMinutes
		e.CumulativeMinutes = total
		out = append(out, e)
	}
	return out
}
