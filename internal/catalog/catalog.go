// Package catalog loads concept catalogs (YAML or JSON) and applies them
// to the graph and content stores.
package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/abhisek/learnfast/internal/apperr"
	"github.com/abhisek/learnfast/internal/conceptgraph"
	"github.com/abhisek/learnfast/internal/content"
)

// SupportedMajor is the catalog format major version this build reads.
const SupportedMajor = "v1"

//go:embed schema.json
var schemaJSON []byte

// Document is a parsed catalog.
type Document struct {
	Version  string  `json:"version" validate:"required"`
	Concepts []Entry `json:"concepts" validate:"dive"`
}

// Entry is one concept with its prerequisites and content.
type Entry struct {
	ID               string       `json:"id" validate:"required"`
	Name             string       `json:"name"`
	Description      string       `json:"description"`
	EstimatedMinutes int          `json:"estimated_minutes" validate:"gte=0"`
	Prerequisites    []string     `json:"prerequisites" validate:"dive,required"`
	Chunks           []ChunkEntry `json:"chunks" validate:"dive"`
}

type ChunkEntry struct {
	ID               string `json:"id"`
	Content          string `json:"content" validate:"required"`
	EstimatedMinutes int    `json:"estimated_minutes" validate:"gte=0"`
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error

	validate = validator.New()
)

func catalogSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			compileErr = fmt.Errorf("parse catalog schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		const url = "schema://learnfast/catalog.json"
		if err := c.AddResource(url, doc); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(url)
	})
	return compiled, compileErr
}

// Load reads and parses a catalog file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return doc, nil
}

// Parse decodes a YAML or JSON catalog, validates it against the embedded
// schema and checks the version. JSON input is valid YAML, so both go
// through the YAML decoder.
func Parse(data []byte) (*Document, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode catalog: %v", apperr.ErrInvalidInput, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: empty catalog", apperr.ErrInvalidInput)
	}

	// Round-trip through JSON so the schema sees JSON numbers and string keys.
	js, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: catalog is not JSON-compatible: %v", apperr.ErrInvalidInput, err)
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(js))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	sch, err := catalogSchema()
	if err != nil {
		return nil, err
	}
	if err := sch.Validate(inst); err != nil {
		return nil, fmt.Errorf("%w: schema validation failed: %v", apperr.ErrInvalidInput, err)
	}

	var doc Document
	if err := json.Unmarshal(js, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	if err := doc.check(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	return &doc, nil
}

func (d *Document) check() error {
	if !semver.IsValid(d.Version) {
		return fmt.Errorf("version %q is not a semantic version", d.Version)
	}
	if m := semver.Major(d.Version); m != SupportedMajor {
		return fmt.Errorf("catalog major version %s is not supported (want %s)", m, SupportedMajor)
	}
	if err := validate.Struct(d); err != nil {
		return err
	}

	seen := make(map[string]bool, len(d.Concepts))
	for _, e := range d.Concepts {
		if seen[e.ID] {
			return fmt.Errorf("duplicate concept %q", e.ID)
		}
		seen[e.ID] = true
	}
	for _, e := range d.Concepts {
		if e.Minutes() <= 0 {
			return fmt.Errorf("concept %q: estimated_minutes missing and no chunks to derive it from", e.ID)
		}
	}
	return nil
}

// Minutes is the declared estimate, or the chunk-count estimate when the
// entry omits it.
func (e Entry) Minutes() int {
	if e.EstimatedMinutes > 0 {
		return e.EstimatedMinutes
	}
	return content.EstimateFromChunks(len(e.Chunks))
}

// Concept converts the entry to a graph concept.
func (e Entry) Concept() conceptgraph.Concept {
	return conceptgraph.Concept{
		ID:               e.ID,
		Name:             strings.TrimSpace(e.Name),
		Description:      e.Description,
		EstimatedMinutes: e.Minutes(),
		Prerequisites:    append([]string(nil), e.Prerequisites...),
	}
}

// chunkNamespace seeds stable ids for chunks that do not carry one, so a
// re-import replaces rather than duplicates.
var chunkNamespace = uuid.MustParse("5b1f9c3e-4d0a-4c57-9a43-2f6a1c9e7d10")

// ContentChunks converts the entry's chunks, with presentation order equal
// to list position.
func (e Entry) ContentChunks() []content.Chunk {
	out := make([]content.Chunk, 0, len(e.Chunks))
	for i, c := range e.Chunks {
		id := c.ID
		if id == "" {
			id = uuid.NewSHA1(chunkNamespace, []byte(fmt.Sprintf("%s#%d", e.ID, i))).String()
		}
		minutes := c.EstimatedMinutes
		if minutes == 0 {
			minutes = content.MinutesPerChunk
		}
		out = append(out, content.Chunk{
			ID:                id,
			ConceptID:         e.ID,
			Content:           c.Content,
			EstimatedMinutes:  minutes,
			PresentationOrder: i,
		})
	}
	return out
}

// ChunkWriter replaces the full chunk set of one concept.
type ChunkWriter interface {
	ReplaceChunks(ctx context.Context, conceptID string, chunks ...content.Chunk) error
}

// Result counts what an import wrote.
type Result struct {
	Concepts int
	Edges    int
	Chunks   int
}

// Apply upserts every concept, then every edge, then every chunk. Edges may
// reference concepts already in the store. An entry that lists chunks
// replaces that concept's stored chunk set; an entry without chunks leaves
// stored content alone. Chunks are skipped when w is nil.
// Apply is not transactional across stores; a failure reports the first
// offending concept or edge and leaves earlier writes in place.
func Apply(ctx context.Context, d *Document, graph conceptgraph.Store, w ChunkWriter) (Result, error) {
	var res Result
	if d == nil {
		return res, errors.New("catalog: nil document")
	}
	for _, e := range d.Concepts {
		if err := graph.UpsertConcept(ctx, e.Concept()); err != nil {
			return res, fmt.Errorf("concept %q: %w", e.ID, err)
		}
		res.Concepts++
	}
	for _, e := range d.Concepts {
		for _, p := range e.Prerequisites {
			if err := graph.UpsertPrerequisite(ctx, p, e.ID); err != nil {
				return res, fmt.Errorf("edge %q -> %q: %w", p, e.ID, err)
			}
			res.Edges++
		}
	}
	if w == nil {
		return res, nil
	}
	for _, e := range d.Concepts {
		chunks := e.ContentChunks()
		if len(chunks) == 0 {
			continue
		}
		if err := w.ReplaceChunks(ctx, e.ID, chunks...); err != nil {
			return res, fmt.Errorf("chunks of %q: %w", e.ID, err)
		}
		res.Chunks += len(chunks)
	}
	return res, nil
}

// ConceptIDs lists the ids in document order.
func (d *Document) ConceptIDs() []string {
	ids := make([]string, len(d.Concepts))
	for i, e := range d.Concepts {
		ids[i] = e.ID
	}
	return ids
}
