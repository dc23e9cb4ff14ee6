package pathing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/abhisek/learnfast/internal/apperr"
	"github.com/abhisek/learnfast/internal/conceptgraph"
	"github.com/abhisek/learnfast/internal/logger"
	"github.com/abhisek/learnfast/internal/metrics"
	"github.com/abhisek/learnfast/internal/progress"
	"github.com/abhisek/learnfast/internal/tracing"
)

var tracer = otel.Tracer("learnfast/pathing")

// DefaultExactLimit bounds the remaining-set size for the exact strategy.
const DefaultExactLimit = 18

// Resolver computes plans from the concept graph and a user's completed
// set. It holds no per-request state and is safe for concurrent use.
type Resolver struct {
	graph    conceptgraph.Store
	progress progress.Store
	log      *logger.Logger

	Strategy   Strategy
	ExactLimit int
}

// NewResolver creates a greedy resolver.
func NewResolver(graph conceptgraph.Store, store progress.Store, log *logger.Logger) *Resolver {
	return &Resolver{
		graph:      graph,
		progress:   store,
		log:        logger.OrNop(log).With("component", "pathing"),
		Strategy:   StrategyGreedy,
		ExactLimit: DefaultExactLimit,
	}
}

// Resolve returns a plan toward targetID that fits budget minutes.
//
// The remaining set R is the target plus its transitive prerequisites not
// yet completed by userID. An already completed target yields an empty
// plan. A target that does not fit still yields the best partial plan; the
// only failures are bad input, unknown concepts, adapter errors and
// inconsistent stored graphs (apperr.ErrUnreachable).
func (r *Resolver) Resolve(ctx context.Context, userID, targetID string, budget int) (*Plan, error) {
	ctx, span := tracer.Start(ctx, "pathing.Resolve", trace.WithAttributes(
		attribute.String("target.id", targetID),
		attribute.Int("budget", budget),
	))
	plan, err := r.resolve(ctx, userID, targetID, budget)
	if plan != nil {
		span.SetAttributes(
			attribute.String("strategy", string(plan.Strategy)),
			attribute.Int("planned", len(plan.Entries)),
		)
	}
	tracing.Finish(span, err)
	return plan, err
}

func (r *Resolver) resolve(ctx context.Context, userID, targetID string, budget int) (*Plan, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id must not be empty", apperr.ErrInvalidInput)
	}
	if budget < 0 {
		return nil, fmt.Errorf("%w: budget must be >= 0, got %d", apperr.ErrInvalidInput, budget)
	}
	start := time.Now()

	if _, err := r.graph.Concept(ctx, targetID); err != nil {
		return nil, apperr.Adapter("graph.concept", err)
	}
	completed, err := progress.CompletedSet(ctx, r.progress, userID)
	if err != nil {
		return nil, apperr.Adapter("progress.completed", err)
	}

	plan := &Plan{Target: targetID, Budget: budget, Strategy: r.strategyFor(0)}
	if completed[targetID] {
		return plan, nil
	}

	closure, err := conceptgraph.Closure(ctx, r.graph, targetID, func(id string) bool { return completed[id] })
	if err != nil {
		return nil, err
	}
	remaining := make([]conceptgraph.Concept, 0, len(closure))
	for _, c := range closure {
		remaining = append(remaining, c)
	}
	order, err := conceptgraph.TopoSort(remaining, targetLast(targetID))
	if err != nil {
		if errors.Is(err, apperr.ErrCycle) {
			return nil, fmt.Errorf("%w: %v", apperr.ErrUnreachable, err)
		}
		return nil, err
	}

	plan.Strategy = r.strategyFor(len(order))
	plan.RemainingMinutes = EstimateMinutes(order)
	var chosen map[string]bool
	switch plan.Strategy {
	case StrategyExact:
		chosen = selectExact(order, budget, targetID)
	case StrategyPrefix:
		chosen = selectPrefix(order, budget)
	default:
		chosen = selectGreedy(order, budget)
	}

	var picked []conceptgraph.Concept
	for _, c := range order {
		if chosen[c.ID] {
			picked = append(picked, c)
		} else {
			plan.Skipped = append(plan.Skipped, c.ID)
		}
	}
	plan.Entries, plan.TotalMinutes = buildEntries(picked)
	plan.Pruned = len(plan.Skipped) > 0

	metrics.PlanResolveSeconds.WithLabelValues(string(plan.Strategy)).Observe(time.Since(start).Seconds())
	metrics.PlanConcepts.Observe(float64(len(plan.Entries)))
	r.log.Debug("plan resolved",
		"user_id", userID,
		"target", targetID,
		"budget", budget,
		"strategy", string(plan.Strategy),
		"remaining", len(order),
		"planned", len(plan.Entries),
		"minutes", plan.TotalMinutes,
		"remaining_minutes", plan.RemainingMinutes,
	)
	return plan, nil
}

func (r *Resolver) strategyFor(remaining int) Strategy {
	limit := r.ExactLimit
	if limit <= 0 {
		limit = DefaultExactLimit
	}
	switch r.Strategy {
	case StrategyPrefix:
		return StrategyPrefix
	case StrategyExact, StrategyAuto:
		if remaining <= limit {
			return StrategyExact
		}
	}
	return StrategyGreedy
}

// targetLast orders ready concepts by estimated minutes, then ID, keeping
// the target behind everything else.
func targetLast(targetID string) func(a, b conceptgraph.Concept) bool {
	return func(a, b conceptgraph.Concept) bool {
		if a.ID == targetID || b.ID == targetID {
			return b.ID == targetID && a.ID != targetID
		}
		if a.EstimatedMinutes != b.EstimatedMinutes {
			return a.EstimatedMinutes < b.EstimatedMinutes
		}
		return a.ID < b.ID
	}
}
