// Package app builds the runtime object graph from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abhisek/learnfast/internal/catalog"
	"github.com/abhisek/learnfast/internal/chunkcache"
	"github.com/abhisek/learnfast/internal/conceptgraph"
	"github.com/abhisek/learnfast/internal/config"
	"github.com/abhisek/learnfast/internal/content"
	"github.com/abhisek/learnfast/internal/lessons"
	"github.com/abhisek/learnfast/internal/logger"
	"github.com/abhisek/learnfast/internal/navigation"
	"github.com/abhisek/learnfast/internal/neo4jgraph"
	"github.com/abhisek/learnfast/internal/pathing"
	"github.com/abhisek/learnfast/internal/relevance"
	"github.com/abhisek/learnfast/internal/store"
	"github.com/abhisek/learnfast/internal/tracing"
)

// snapshotsKept bounds the per-user snapshots retained by Reset.
const snapshotsKept = 5

// App holds the wired components. Close releases every backend.
type App struct {
	Config config.Config
	Log    *logger.Logger

	Store     *store.Store
	Graph     conceptgraph.Store
	Chunks    content.Store
	Engine    *navigation.Engine
	Resolver  *pathing.Resolver
	Assembler *lessons.Assembler

	chunkRepo *store.ChunkRepo
	cache     *chunkcache.Store
	closers   []func() error
}

// New opens the SQLite store at dbPath and the optional Neo4j graph and
// Badger cache, then builds the engine, resolver and assembler.
func New(ctx context.Context, cfg config.Config, dbPath string, log *logger.Logger) (*App, error) {
	log = logger.OrNop(log)
	a := &App{Config: cfg, Log: log}

	shutdown, err := tracing.Init(ctx, cfg.Tracing, log)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}
	a.closers = append(a.closers, func() error {
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return shutdown(cctx)
	})

	st, err := store.Open(dbPath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.Store = st
	a.closers = append(a.closers, st.Close)

	switch cfg.Graph.Backend {
	case config.GraphNeo4j:
		neo, err := neo4jgraph.Open(ctx, cfg.Neo4j, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Graph = neo
		a.closers = append(a.closers, func() error {
			cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return neo.Close(cctx)
		})
	default:
		a.Graph = st.Concepts()
	}

	scorer, err := relevance.New(cfg.Relevance)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("relevance: %w", err)
	}
	a.chunkRepo = st.Chunks(scorer)
	a.Chunks = a.chunkRepo

	if cfg.Cache.Enabled {
		db, err := chunkcache.Open(cfg.Cache, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		a.cache = chunkcache.Wrap(a.chunkRepo, db, cfg.Cache.TTL, log)
		a.Chunks = a.cache
	}

	a.Engine = navigation.NewEngine(a.Graph, st.Progress(), log)

	a.Resolver = pathing.NewResolver(a.Graph, st.Progress(), log)
	a.Resolver.Strategy = cfg.Strategy()
	a.Resolver.ExactLimit = cfg.Resolver.ExactLimit

	a.Assembler = lessons.NewAssembler(a.Chunks, a.Graph, cfg.Assembler, log)

	log.Debug("app wired",
		"db", dbPath,
		"graph_backend", cfg.Graph.Backend,
		"relevance", cfg.Relevance.Provider,
		"cache", cfg.Cache.Enabled,
		"strategy", a.Resolver.Strategy,
	)
	return a, nil
}

// Close releases backends in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	a.Log.Sync()
	return errors.Join(errs...)
}

// Import applies a catalog and drops cached chunks of the touched concepts.
func (a *App) Import(ctx context.Context, doc *catalog.Document) (catalog.Result, error) {
	if doc == nil {
		return catalog.Result{}, errors.New("import: nil catalog")
	}
	res, err := catalog.Apply(ctx, doc, a.Graph, a.chunkRepo)
	if a.cache != nil {
		if ierr := a.cache.Invalidate(doc.ConceptIDs()...); ierr != nil {
			a.Log.Warn("chunk cache invalidation failed", "error", ierr)
		}
	}
	if err != nil {
		return res, err
	}
	a.Log.Info("catalog imported", "concepts", res.Concepts, "edges", res.Edges, "chunks", res.Chunks)
	return res, nil
}

// PurgeCache drops every cached chunk set. It reports false when no cache
// is configured.
func (a *App) PurgeCache() (bool, error) {
	if a.cache == nil {
		return false, nil
	}
	if err := a.cache.Purge(); err != nil {
		return false, err
	}
	a.Log.Info("chunk cache purged")
	return true, nil
}

// Lesson resolves a plan toward target and packs content for it within
// the same budget.
func (a *App) Lesson(ctx context.Context, userID, targetID string, budget int, query string) (*pathing.Plan, *lessons.Bundle, error) {
	plan, err := a.Resolver.Resolve(ctx, userID, targetID, budget)
	if err != nil {
		return nil, nil, err
	}
	bundle, err := a.Assembler.Assemble(ctx, plan, budget, query)
	if err != nil {
		return plan, nil, err
	}
	return plan, bundle, nil
}

// Reset snapshots a user's progress and then clears it. The snapshot id
// is 0 when the user had nothing stored.
func (a *App) Reset(ctx context.Context, userID string) (int, error) {
	progressRepo := a.Store.Progress()
	records, err := progressRepo.Records(ctx, userID)
	if err != nil {
		return 0, err
	}
	id := 0
	if len(records) > 0 {
		snap := store.SnapshotFromRecords(userID, records)
		if err := a.Store.Snapshots().Save(ctx, snap); err != nil {
			return 0, err
		}
		id = snap.ID
		if err := a.Store.Snapshots().Prune(ctx, userID, snapshotsKept); err != nil {
			a.Log.Warn("snapshot prune failed", "user_id", userID, "error", err)
		}
	}
	if err := progressRepo.Reset(ctx, userID); err != nil {
		return id, err
	}
	a.Log.Info("progress reset", "user_id", userID, "snapshot_id", id, "records", len(records))
	return id, nil
}

// Restore replaces a user's progress with their latest snapshot.
func (a *App) Restore(ctx context.Context, userID string) (int, error) {
	snap, err := a.Store.Snapshots().Latest(ctx, userID)
	if err != nil {
		return 0, err
	}
	if snap == nil {
		return 0, fmt.Errorf("no snapshot for user %q", userID)
	}
	changes, err := snap.Data.Changes(time.Now().UTC())
	if err != nil {
		return 0, err
	}
	if err := a.Store.Progress().Replace(ctx, userID, changes); err != nil {
		return 0, err
	}
	a.Log.Info("progress restored", "user_id", userID, "snapshot_id", snap.ID, "changes", len(changes))
	return len(snap.Data.Records), nil
}
