package conceptgraph

import (
	"fmt"
	"strings"
)

// validateConcepts performs all structural checks on the given concept set.
// Returns a combined error describing all problems found, or nil if valid.
func validateConcepts(concepts []Concept) error {
	var errs []string

	idSet := make(map[string]bool, len(concepts))
	for _, c := range concepts {
		if idSet[c.ID] {
			errs = append(errs, fmt.Sprintf("duplicate concept ID: %q", c.ID))
		}
		idSet[c.ID] = true
		if err := c.Validate(); err != nil {
			errs = append(errs, err.Error())
		}
	}

	for _, c := range concepts {
		for _, p := range c.Prerequisites {
			if !idSet[p] {
				errs = append(errs, fmt.Sprintf("concept %q references nonexistent prerequisite %q", c.ID, p))
			}
		}
	}

	if len(errs) == 0 {
		if _, err := TopoSort(concepts, func(a, b Concept) bool { return a.ID < b.ID }); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("concept graph validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

// Validate checks a concept set for duplicate IDs, dangling prerequisites,
// non-positive durations and cycles.
func Validate(concepts []Concept) error {
	return validateConcepts(concepts)
}
