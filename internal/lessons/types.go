package lessons

import "github.com/abhisek/learnfast/internal/content"

// Section is one plan concept's share of a lesson bundle.
type Section struct {
	ConceptID string
	Name      string
	// Chunks are the selected chunks in presentation order.
	Chunks  []content.Chunk
	Minutes int
	// Available is how many chunks the concept has in total.
	Available int
	// Truncated is set when not every chunk of the concept was selected,
	// or when the budget was already spent by the time the concept came up.
	Truncated bool
}

// Bundle is the assembled lesson for a plan. Every plan concept has a
// section, in plan order, even when it received no chunks.
type Bundle struct {
	Target       string
	TargetName   string
	Budget       int
	Query        string
	Mode         Mode
	Sections     []Section
	TotalMinutes int
	Truncated    bool
}

// ChunkCount returns the number of selected chunks across all sections.
func (b *Bundle) ChunkCount() int {
	n := 0
	for _, s := range b.Sections {
		n += len(s.Chunks)
	}
	return n
}
