// Package lessons packs concept content into a time-budgeted lesson bundle
// for a resolved plan.
package lessons

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/abhisek/learnfast/internal/apperr"
	"github.com/abhisek/learnfast/internal/conceptgraph"
	"github.com/abhisek/learnfast/internal/content"
	"github.com/abhisek/learnfast/internal/logger"
	"github.com/abhisek/learnfast/internal/metrics"
	"github.com/abhisek/learnfast/internal/pathing"
	"github.com/abhisek/learnfast/internal/tracing"
)

var tracer = otel.Tracer("learnfast/lessons")

// Assembler builds lesson bundles. It holds no per-request state.
type Assembler struct {
	content content.Store
	graph   conceptgraph.Store
	cfg     Config
	log     *logger.Logger
}

// NewAssembler creates an assembler. graph is only used to name the
// target when it is not part of the plan and may be nil.
func NewAssembler(store content.Store, graph conceptgraph.Store, cfg Config, log *logger.Logger) *Assembler {
	if cfg.FetchConcurrency < 1 {
		cfg.FetchConcurrency = DefaultConfig().FetchConcurrency
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeSequential
	}
	return &Assembler{
		content: store,
		graph:   graph,
		cfg:     cfg,
		log:     logger.OrNop(log).With("component", "lessons"),
	}
}

// Assemble selects chunks for every plan concept so that the total never
// exceeds budget minutes. Within a concept chunks are chosen by relevance
// to query and presented in stored order. Any chunk fetch failure fails
// the whole call.
func (a *Assembler) Assemble(ctx context.Context, plan *pathing.Plan, budget int, query string) (*Bundle, error) {
	ctx, span := tracer.Start(ctx, "lessons.Assemble", trace.WithAttributes(
		attribute.Int("budget", budget),
		attribute.String("mode", string(a.cfg.Mode)),
	))
	b, err := a.assemble(ctx, plan, budget, query)
	if b != nil {
		span.SetAttributes(
			attribute.Int("chunks", b.ChunkCount()),
			attribute.Bool("truncated", b.Truncated),
		)
	}
	tracing.Finish(span, err)
	return b, err
}

func (a *Assembler) assemble(ctx context.Context, plan *pathing.Plan, budget int, query string) (*Bundle, error) {
	if plan == nil {
		return nil, fmt.Errorf("%w: plan is required", apperr.ErrInvalidInput)
	}
	if budget < 0 {
		return nil, fmt.Errorf("%w: budget must be >= 0, got %d", apperr.ErrInvalidInput, budget)
	}

	candidates, err := a.prefetch(ctx, plan, query)
	if err != nil {
		return nil, err
	}

	b := &Bundle{
		Target:     plan.Target,
		TargetName: a.targetName(ctx, plan),
		Budget:     budget,
		Query:      query,
		Mode:       a.cfg.Mode,
		Sections:   make([]Section, len(plan.Entries)),
	}
	for i, e := range plan.Entries {
		b.Sections[i] = Section{ConceptID: e.ConceptID, Name: e.Name, Available: len(candidates[i])}
	}

	switch a.cfg.Mode {
	case ModeCoverage:
		packCoverage(b, candidates, budget)
	default:
		packSequential(b, candidates, budget)
	}

	truncated := 0
	for i := range b.Sections {
		s := &b.Sections[i]
		content.SortByPresentation(s.Chunks)
		if len(s.Chunks) < s.Available {
			s.Truncated = true
		}
		if s.Truncated {
			truncated++
		}
		b.TotalMinutes += s.Minutes
	}
	b.Truncated = truncated > 0

	metrics.BundleMinutes.Observe(float64(b.TotalMinutes))
	metrics.BundleTruncatedTotal.Add(float64(truncated))
	a.log.Debug("bundle assembled",
		"target", plan.Target,
		"budget", budget,
		"mode", string(b.Mode),
		"sections", len(b.Sections),
		"chunks", b.ChunkCount(),
		"minutes", b.TotalMinutes,
		"truncated", truncated,
	)
	return b, nil
}

// prefetch loads ranked chunk candidates for every plan entry concurrently.
func (a *Assembler) prefetch(ctx context.Context, plan *pathing.Plan, query string) ([][]content.Chunk, error) {
	out := make([][]content.Chunk, len(plan.Entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.cfg.FetchConcurrency)
	for i, e := range plan.Entries {
		g.Go(func() error {
			chunks, err := a.content.Chunks(gctx, e.ConceptID, query)
			if err != nil {
				return apperr.Adapter("content.chunks", fmt.Errorf("concept %q: %w", e.ConceptID, err))
			}
			ranked := append([]content.Chunk(nil), chunks...)
			content.SortByRelevance(ranked)
			out[i] = ranked
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *Assembler) targetName(ctx context.Context, plan *pathing.Plan) string {
	for _, e := range plan.Entries {
		if e.ConceptID == plan.Target {
			return e.Name
		}
	}
	if a.graph != nil && plan.Target != "" {
		c, err := a.graph.Concept(ctx, plan.Target)
		if err == nil {
			return c.DisplayName()
		}
		if !errors.Is(err, apperr.ErrNotFound) {
			a.log.Warn("target lookup failed", "target", plan.Target, "error", err)
		}
	}
	return plan.Target
}

// packSequential walks sections in plan order and takes every ranked
// candidate that still fits. A candidate that does not fit is skipped and
// smaller ones after it are still tried.
func packSequential(b *Bundle, candidates [][]content.Chunk, budget int) {
	left := budget
	for i := range b.Sections {
		s := &b.Sections[i]
		if left == 0 {
			s.Truncated = true
			continue
		}
		for _, c := range candidates[i] {
			if c.EstimatedMinutes <= left {
				s.Chunks = append(s.Chunks, c)
				s.Minutes += c.EstimatedMinutes
				left -= c.EstimatedMinutes
			}
		}
	}
}

// packCoverage gives each section its best fitting candidate first, then
// fills the rest in plan order.
func packCoverage(b *Bundle, candidates [][]content.Chunk, budget int) {
	left := budget
	taken := make([]map[string]bool, len(b.Sections))
	for i := range b.Sections {
		taken[i] = make(map[string]bool)
		s := &b.Sections[i]
		if left == 0 {
			s.Truncated = true
			continue
		}
		for _, c := range candidates[i] {
			if c.EstimatedMinutes <= left {
				s.Chunks = append(s.Chunks, c)
				s.Minutes += c.EstimatedMinutes
				left -= c.EstimatedMinutes
				taken[i][c.ID] = true
				break
			}
		}
	}
	for i := range b.Sections {
		s := &b.Sections[i]
		for _, c := range candidates[i] {
			if taken[i][c.ID] || c.EstimatedMinutes > left {
				continue
			}
			s.Chunks = append(s.Chunks, c)
			s.Minutes += c.EstimatedMinutes
			left -= c.EstimatedMinutes
		}
	}
}
