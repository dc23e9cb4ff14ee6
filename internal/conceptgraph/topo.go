package conceptgraph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/abhisek/learnfast/internal/apperr"
)

// TopoSort orders concepts so that every concept follows its prerequisites.
// Only edges between members of the given set are considered. Among
// concepts that are ready at the same time, less decides the order.
// Returns apperr.ErrCycle listing the offending IDs if no order exists.
func TopoSort(concepts []Concept, less func(a, b Concept) bool) ([]Concept, error) {
	byID := make(map[string]Concept, len(concepts))
	for _, c := range concepts {
		byID[c.ID] = c
	}

	inDegree := make(map[string]int, len(concepts))
	dependents := make(map[string][]string)
	for _, c := range concepts {
		inDegree[c.ID] += 0
		for _, p := range c.Prerequisites {
			if _, ok := byID[p]; !ok {
				continue
			}
			inDegree[c.ID]++
			dependents[p] = append(dependents[p], c.ID)
		}
	}

	var ready []Concept
	for _, c := range byID {
		if inDegree[c.ID] == 0 {
			ready = append(ready, c)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return less(ready[i], ready[j]) })

	order := make([]Concept, 0, len(byID))
	for len(ready) > 0 {
		cur := ready[0]
		ready = ready[1:]
		order = append(order, cur)

		for _, depID := range dependents[cur.ID] {
			inDegree[depID]--
			if inDegree[depID] == 0 {
				dep := byID[depID]
				at := sort.Search(len(ready), func(i int) bool { return less(dep, ready[i]) })
				ready = append(ready, Concept{})
				copy(ready[at+1:], ready[at:])
				ready[at] = dep
			}
		}
	}

	if len(order) < len(byID) {
		var stuck []string
		for id, deg := range inDegree {
			if deg > 0 {
				stuck = append(stuck, id)
			}
		}
		sort.Strings(stuck)
		return nil, fmt.Errorf("%w involving concepts: %s", apperr.ErrCycle, strings.Join(stuck, ", "))
	}
	return order, nil
}

// Closure collects root and its transitive prerequisites from s. Traversal
// does not descend into (or include) concepts for which stop returns true.
// A prerequisite that cannot be loaded means the stored graph is
// inconsistent and is reported as apperr.ErrUnreachable.
func Closure(ctx context.Context, s Store, root string, stop func(id string) bool) (map[string]Concept, error) {
	first, err := s.Concept(ctx, root)
	if err != nil {
		return nil, apperr.Adapter("concept", err)
	}

	out := map[string]Concept{root: first}
	queue := []Concept{first}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, p := range cur.Prerequisites {
			if _, seen := out[p]; seen {
				continue
			}
			if stop != nil && stop(p) {
				continue
			}
			pc, err := s.Concept(ctx, p)
			if err != nil {
				if errors.Is(err, apperr.ErrNotFound) {
					return nil, fmt.Errorf("%w: %q requires missing concept %q", apperr.ErrUnreachable, cur.ID, p)
				}
				return nil, apperr.Adapter("concept", err)
			}
			out[p] = pc
			queue = append(queue, pc)
		}
	}
	return out, nil
}
