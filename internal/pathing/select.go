package pathing

import "github.com/abhisek/learnfast/internal/conceptgraph"

// selectGreedy walks order once. A concept is taken together with any of
// its not yet taken prerequisites in the set when they all fit the
// remaining budget; otherwise it is skipped for good.
func selectGreedy(order []conceptgraph.Concept, budget int) map[string]bool {
	byID := make(map[string]conceptgraph.Concept, len(order))
	for _, c := range order {
		byID[c.ID] = c
	}

	taken := make(map[string]bool, len(order))
	left := budget
	for _, c := range order {
		if taken[c.ID] {
			continue
		}
		need := pending(c, byID, taken)
		cost := 0
		for _, id := range need {
			cost += byID[id].EstimatedMinutes
		}
		if cost > left {
			continue
		}
		for _, id := range need {
			taken[id] = true
		}
		left -= cost
	}
	return taken
}

// selectPrefix takes the longest prefix of order that fits budget.
func selectPrefix(order []conceptgraph.Concept, budget int) map[string]bool {
	path, _ := buildEntries(order)
	taken := make(map[string]bool, len(order))
	for _, e := range PrunePrefix(path, budget) {
		taken[e.ConceptID] = true
	}
	return taken
}

// pending returns c and its transitive prerequisites inside byID that are
// not taken yet.
func pending(c conceptgraph.Concept, byID map[string]conceptgraph.Concept, taken map[string]bool) []string {
	seen := map[string]bool{c.ID: true}
	out := []string{c.ID}
	stack := []conceptgraph.Concept{c}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, p := range cur.Prerequisites {
			pc, inSet := byID[p]
			if !inSet || taken[p] || seen[p] {
				continue
			}
			seen[p] = true
			out = append(out, p)
			stack = append(stack, pc)
		}
	}
	return out
}

type score struct {
	target  bool
	count   int
	minutes int
}

func (s score) better(o score) bool {
	if s.target != o.target {
		return s.target
	}
	if s.count != o.count {
		return s.count > o.count
	}
	return s.minutes < o.minutes
}

// selectExact finds the prerequisite-closed subset of order that fits
// budget and maximizes (target included, concept count, fewer minutes),
// by depth-first branch and bound in topological order.
func selectExact(order []conceptgraph.Concept, budget int, targetID string) map[string]bool {
	n := len(order)
	index := make(map[string]int, n)
	for i, c := range order {
		index[c.ID] = i
	}
	prereqs := make([][]int, n)
	for i, c := range order {
		for _, p := range c.Prerequisites {
			if j, ok := index[p]; ok {
				prereqs[i] = append(prereqs[i], j)
			}
		}
	}

	taken := make([]bool, n)
	best := make([]bool, n)
	var bestScore score
	haveBest := false

	var walk func(i int, cur score, left int)
	walk = func(i int, cur score, left int) {
		if i == n {
			if !haveBest || cur.better(bestScore) {
				bestScore = cur
				copy(best, taken)
				haveBest = true
			}
			return
		}
		if haveBest {
			// Optimistic: every remaining concept fits; target reachable
			// only if it has not been ruled out yet.
			ub := score{target: cur.target || targetStillPossible(i, order, taken, targetID), count: cur.count + n - i}
			if bestScore.target && !ub.target {
				return
			}
			if ub.target == bestScore.target && ub.count < bestScore.count {
				return
			}
		}

		c := order[i]
		if c.EstimatedMinutes <= left && allTaken(prereqs[i], taken) {
			taken[i] = true
			next := score{target: cur.target || c.ID == targetID, count: cur.count + 1, minutes: cur.minutes + c.EstimatedMinutes}
			walk(i+1, next, left-c.EstimatedMinutes)
			taken[i] = false
		}
		walk(i+1, cur, left)
	}
	walk(0, score{}, budget)

	out := make(map[string]bool, n)
	for i, ok := range best {
		if ok {
			out[order[i].ID] = true
		}
	}
	return out
}

func allTaken(idx []int, taken []bool) bool {
	for _, j := range idx {
		if !taken[j] {
			return false
		}
	}
	return true
}

// targetStillPossible reports whether no already decided concept blocks
// the target. Every member of the set is an ancestor of the target, so one
// skipped concept rules it out.
func targetStillPossible(i int, order []conceptgraph.Concept, taken []bool, targetID string) bool {
	for j := 0; j < i; j++ {
		if !taken[j] {
			return false
		}
		if order[j].ID == targetID {
			return true
		}
	}
	return true
}
