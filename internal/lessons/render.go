package lessons

import (
	"fmt"
	"strings"
)

// RenderMarkdown formats a bundle as a Markdown lesson. An empty bundle
// renders as an empty string.
func RenderMarkdown(b *Bundle) string {
	if b == nil || len(b.Sections) == 0 {
		return ""
	}

	var parts []string
	parts = append(parts,
		"# Personalized Learning Path\n",
		fmt.Sprintf("**Target Goal**: %s\n", b.TargetName),
		"---\n",
	)
	for i, s := range b.Sections {
		parts = append(parts, fmt.Sprintf("## %d. %s\n", i+1, s.Name))
		if len(s.Chunks) == 0 {
			parts = append(parts, "*No content available for this concept.*\n")
			continue
		}
		for _, c := range s.Chunks {
			parts = append(parts, c.Content+"\n")
		}
		parts = append(parts, "---\n")
	}
	return strings.Join(parts, "\n")
}
