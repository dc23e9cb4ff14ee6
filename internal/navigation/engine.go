// Package navigation derives per-learner concept availability over the
// prerequisite graph and validates start/complete transitions.
package navigation

import (
	"context"
	"fmt"
	"sort"
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

var tracer = otel.Tracer("learnfast/navigation")

// Engine is the only component that decides status transitions. Callers
// request Start/Complete; the engine validates them against the graph and
// the stored progress, then delegates persistence to the progress store in
// a single atomic commit.
type Engine struct {
	graph    conceptgraph.Store
	progress progress.Store
	log      *logger.Logger
	now      func() time.Time
	users    *keyLock
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for transition timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a navigation engine over the given stores.
func NewEngine(graph conceptgraph.Store, store progress.Store, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		graph:    graph,
		progress: store,
		log:      logger.OrNop(log).With("component", "navigation"),
		now:      func() time.Time { return time.Now().UTC() },
		users:    newKeyLock(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// snapshot is one consistent read of a user's stored progress.
type snapshot struct {
	records   map[string]progress.Record
	completed map[string]bool
}

func (e *Engine) load(ctx context.Context, userID string) (*snapshot, error) {
	recs, err := e.progress.Records(ctx, userID)
	if err != nil {
		return nil, apperr.Adapter("progress.records", err)
	}
	s := &snapshot{records: recs, completed: make(map[string]bool)}
	for id, r := range recs {
		if r.Status == progress.StatusCompleted {
			s.completed[id] = true
		}
	}
	return s, nil
}

// derive computes a concept's status from its prerequisites and the stored
// record. Completed is sticky; InProgress only holds while the
// prerequisites are still satisfied.
func derive(prereqs []string, rec progress.Record, completed map[string]bool) progress.Status {
	if rec.Status == progress.StatusCompleted {
		return progress.StatusCompleted
	}
	for _, p := range prereqs {
		if !completed[p] {
			return progress.StatusLocked
		}
	}
	if rec.Status == progress.StatusInProgress {
		return progress.StatusInProgress
	}
	return progress.StatusAvailable
}

func validUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id must not be empty", apperr.ErrInvalidInput)
	}
	return nil
}

// Availability returns the status of every concept in the graph for userID.
func (e *Engine) Availability(ctx context.Context, userID string) (map[string]progress.Status, error) {
	if err := validUser(userID); err != nil {
		return nil, err
	}
	concepts, err := e.graph.Concepts(ctx)
	if err != nil {
		return nil, apperr.Adapter("graph.concepts", err)
	}
	snap, err := e.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]progress.Status, len(concepts))
	for _, c := range concepts {
		out[c.ID] = derive(c.Prerequisites, snap.records[c.ID], snap.completed)
	}
	return out, nil
}

// StatusOf returns the derived status of a single concept for userID.
func (e *Engine) StatusOf(ctx context.Context, userID, conceptID string) (progress.Status, error) {
	if err := validUser(userID); err != nil {
		return progress.StatusLocked, err
	}
	c, err := e.graph.Concept(ctx, conceptID)
	if err != nil {
		return progress.StatusLocked, apperr.Adapter("graph.concept", err)
	}
	snap, err := e.load(ctx, userID)
	if err != nil {
		return progress.StatusLocked, err
	}
	return derive(c.Prerequisites, snap.records[conceptID], snap.completed), nil
}

// Start moves a concept from Available to InProgress. Starting a concept
// that is already in progress is a no-op.
func (e *Engine) Start(ctx context.Context, userID, conceptID string) error {
	ctx, span := tracer.Start(ctx, "navigation.Start", trace.WithAttributes(attribute.String("concept.id", conceptID)))
	err := e.start(ctx, userID, conceptID)
	tracing.Finish(span, err)
	return err
}

func (e *Engine) start(ctx context.Context, userID, conceptID string) error {
	if err := validUser(userID); err != nil {
		return err
	}
	unlock := e.users.Lock(userID)
	defer unlock()

	c, err := e.graph.Concept(ctx, conceptID)
	if err != nil {
		return apperr.Adapter("graph.concept", err)
	}
	snap, err := e.load(ctx, userID)
	if err != nil {
		return err
	}

	cur := derive(c.Prerequisites, snap.records[conceptID], snap.completed)
	if cur == progress.StatusInProgress {
		return nil
	}
	if !progress.CanTransition(cur, progress.StatusInProgress) {
		return &TransitionError{UserID: userID, ConceptID: conceptID, From: cur, To: progress.StatusInProgress}
	}

	change := progress.Change{
		ConceptID: conceptID,
		From:      cur,
		To:        progress.StatusInProgress,
		At:        e.now(),
		Trigger:   "start",
	}
	if err := e.progress.Commit(ctx, userID, []progress.Change{change}); err != nil {
		return apperr.Adapter("progress.commit", err)
	}
	metrics.TransitionsTotal.WithLabelValues(change.To.String()).Inc()
	e.log.Debug("concept started", "user_id", userID, "concept_id", conceptID)
	return nil
}

// Complete marks a concept Completed, from either Available or InProgress,
// and returns the IDs of dependents that became Available as a result.
// Completing an already completed concept is a no-op that unlocks nothing.
//
// The completion and every resulting unlock are committed together; if the
// commit fails nothing is persisted.
func (e *Engine) Complete(ctx context.Context, userID, conceptID string) ([]string, error) {
	ctx, span := tracer.Start(ctx, "navigation.Complete", trace.WithAttributes(attribute.String("concept.id", conceptID)))
	unlocked, err := e.complete(ctx, userID, conceptID)
	span.SetAttributes(attribute.Int("unlocked", len(unlocked)))
	tracing.Finish(span, err)
	return unlocked, err
}

func (e *Engine) complete(ctx context.Context, userID, conceptID string) ([]string, error) {
	if err := validUser(userID); err != nil {
		return nil, err
	}
	unlock := e.users.Lock(userID)
	defer unlock()

	c, err := e.graph.Concept(ctx, conceptID)
	if err != nil {
		return nil, apperr.Adapter("graph.concept", err)
	}
	snap, err := e.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	cur := derive(c.Prerequisites, snap.records[conceptID], snap.completed)
	if cur == progress.StatusCompleted {
		return nil, nil
	}
	if !progress.CanTransition(cur, progress.StatusCompleted) {
		return nil, &TransitionError{UserID: userID, ConceptID: conceptID, From: cur, To: progress.StatusCompleted}
	}

	at := e.now()
	changes := []progress.Change{{
		ConceptID: conceptID,
		From:      cur,
		To:        progress.StatusCompleted,
		At:        at,
		Trigger:   "complete",
	}}

	unlocked, err := e.cascade(ctx, conceptID, snap)
	if err != nil {
		return nil, err
	}
	for _, id := range unlocked {
		changes = append(changes, progress.Change{
			ConceptID: id,
			From:      progress.StatusLocked,
			To:        progress.StatusAvailable,
			At:        at,
			Trigger:   "unlock",
		})
	}

	if err := e.progress.Commit(ctx, userID, changes); err != nil {
		return nil, apperr.Adapter("progress.commit", err)
	}

	for _, ch := range changes {
		metrics.TransitionsTotal.WithLabelValues(ch.To.String()).Inc()
	}
	metrics.UnlocksTotal.Add(float64(len(unlocked)))
	e.log.Info("concept completed", "user_id", userID, "concept_id", conceptID, "unlocked", unlocked)
	return unlocked, nil
}

// cascade walks dependents of conceptID breadth-first and returns, sorted,
// those whose availability flips from Locked to Available once conceptID
// counts as completed. Dependents that are themselves already completed
// are traversed through, so stale downstream records are re-evaluated too.
// Nothing is written here; the caller commits the result.
func (e *Engine) cascade(ctx context.Context, conceptID string, snap *snapshot) ([]string, error) {
	after := make(map[string]bool, len(snap.completed)+1)
	for id := range snap.completed {
		after[id] = true
	}
	after[conceptID] = true

	first, err := e.graph.Dependents(ctx, conceptID)
	if err != nil {
		return nil, apperr.Adapter("graph.dependents", err)
	}

	seen := map[string]bool{conceptID: true}
	queue := append([]string(nil), first...)
	var unlocked []string
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true

		rec := snap.records[id]
		if rec.Status == progress.StatusCompleted {
			next, err := e.graph.Dependents(ctx, id)
			if err != nil {
				return nil, apperr.Adapter("graph.dependents", err)
			}
			queue = append(queue, next...)
			continue
		}

		prereqs, err := e.graph.Prerequisites(ctx, id)
		if err != nil {
			return nil, apperr.Adapter("graph.prerequisites", err)
		}
		before := derive(prereqs, rec, snap.completed)
		now := derive(prereqs, rec, after)
		if before == progress.StatusLocked && now == progress.StatusAvailable {
			unlocked = append(unlocked, id)
		}
	}
	sort.Strings(unlocked)
	return unlocked, nil
}
