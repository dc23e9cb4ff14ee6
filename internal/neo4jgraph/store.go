// Package neo4jgraph implements the concept graph store on Neo4j.
//
// Concepts are (:Concept {id, name, description, estimated_minutes})
// nodes; (a)-[:PREREQUISITE_OF]->(b) means a must be completed before b.
package neo4jgraph

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/abhisek/learnfast/internal/apperr"
	"github.com/abhisek/learnfast/internal/conceptgraph"
	"github.com/abhisek/learnfast/internal/logger"
)

// Config holds the Neo4j connection settings.
type Config struct {
	URI         string        `yaml:"uri"`
	User        string        `yaml:"user"`
	Password    string        `yaml:"password"`
	Database    string        `yaml:"database"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxPoolSize int           `yaml:"max_pool_size"`
}

// DefaultConfig returns connection defaults; URI stays empty (disabled).
func DefaultConfig() Config {
	return Config{
		User:        "neo4j",
		Timeout:     10 * time.Second,
		MaxPoolSize: 50,
	}
}

// Enabled reports whether a URI is configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.URI) != ""
}

// Store implements conceptgraph.Store against a Neo4j database.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	log      *logger.Logger

	// mu serializes edge inserts within this process.
	mu sync.Mutex
}

var _ conceptgraph.Store = (*Store)(nil)

// Open connects, verifies connectivity and ensures the id constraint.
func Open(ctx context.Context, cfg Config, log *logger.Logger) (*Store, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("neo4jgraph: uri is required")
	}
	if cfg.User == "" {
		cfg.User = "neo4j"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxPoolSize <= 0 {
		cfg.MaxPoolSize = 50
	}

	auth := neo4j.BasicAuth(cfg.User, cfg.Password, "")
	driver, err := neo4j.NewDriverWithContext(cfg.URI, auth, func(c *neo4j.Config) {
		c.MaxConnectionPoolSize = cfg.MaxPoolSize
		c.SocketConnectTimeout = cfg.Timeout
	})
	if err != nil {
		return nil, fmt.Errorf("neo4jgraph: init driver: %w", err)
	}

	vctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := driver.VerifyConnectivity(vctx); err != nil {
		_ = driver.Close(ctx)
		return nil, fmt.Errorf("neo4jgraph: verify connectivity: %w", err)
	}

	s := &Store{
		driver:   driver,
		database: cfg.Database,
		log:      logger.OrNop(log).With("client", "neo4j"),
	}
	s.ensureSchema(ctx)
	return s, nil
}

// Close releases the driver.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.driver == nil {
		return nil
	}
	return s.driver.Close(ctx)
}

func (s *Store) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   mode,
		DatabaseName: s.database,
	})
}

// ensureSchema is best effort; restricted users may not create constraints.
func (s *Store) ensureSchema(ctx context.Context) {
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	res, err := session.Run(ctx, `CREATE CONSTRAINT concept_id_unique IF NOT EXISTS FOR (c:Concept) REQUIRE c.id IS UNIQUE`, nil)
	if err != nil {
		s.log.Warn("neo4j schema init failed (continuing)", "error", err)
		return
	}
	_, _ = res.Consume(ctx)
}

const conceptReturn = `
RETURN c.id AS id, c.name AS name, c.description AS description,
       c.estimated_minutes AS estimated_minutes, collect(p.id) AS prereqs`

func (s *Store) Concept(ctx context.Context, id string) (conceptgraph.Concept, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (c:Concept {id: $id})
OPTIONAL MATCH (p:Concept)-[:PREREQUISITE_OF]->(c)`+conceptReturn,
			map[string]any{"id": id})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			if err := res.Err(); err != nil {
				return nil, err
			}
			return nil, nil
		}
		c := conceptFromValues(res.Record().AsMap())
		return &c, nil
	})
	if err != nil {
		return conceptgraph.Concept{}, fmt.Errorf("neo4j concept: %w", err)
	}
	c, _ := out.(*conceptgraph.Concept)
	if c == nil {
		return conceptgraph.Concept{}, fmt.Errorf("%w: concept %q", apperr.ErrNotFound, id)
	}
	return *c, nil
}

func (s *Store) Prerequisites(ctx context.Context, id string) ([]string, error) {
	c, err := s.Concept(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.Prerequisites, nil
}

func (s *Store) Dependents(ctx context.Context, id string) ([]string, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (c:Concept {id: $id})
OPTIONAL MATCH (c)-[:PREREQUISITE_OF]->(d:Concept)
RETURN c.id AS id, collect(d.id) AS ids`, map[string]any{"id": id})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			return nil, res.Err()
		}
		v, _ := res.Record().Get("ids")
		ids := toStrings(v)
		if ids == nil {
			ids = []string{}
		}
		return ids, nil
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j dependents: %w", err)
	}
	// c.id is a grouping key, so a missing concept yields no row.
	ids, ok := out.([]string)
	if !ok {
		return nil, fmt.Errorf("%w: concept %q", apperr.ErrNotFound, id)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return ids, nil
}

func (s *Store) Concepts(ctx context.Context) ([]conceptgraph.Concept, error) {
	session := s.session(ctx, neo4j.AccessModeRead)
	defer session.Close(ctx)

	out, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MATCH (c:Concept)
OPTIONAL MATCH (p:Concept)-[:PREREQUISITE_OF]->(c)
WITH c, p`+conceptReturn+`
ORDER BY id`, nil)
		if err != nil {
			return nil, err
		}
		var list []conceptgraph.Concept
		for res.Next(ctx) {
			list = append(list, conceptFromValues(res.Record().AsMap()))
		}
		return list, res.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("neo4j concepts: %w", err)
	}
	list, _ := out.([]conceptgraph.Concept)
	return list, nil
}

func (s *Store) UpsertConcept(ctx context.Context, c conceptgraph.Concept) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrInvalidInput, err)
	}
	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
MERGE (c:Concept {id: $id})
SET c.name = $name,
    c.description = $description,
    c.estimated_minutes = $minutes,
    c.synced_at = $now`, map[string]any{
			"id":          c.ID,
			"name":        c.Name,
			"description": c.Description,
			"minutes":     int64(c.EstimatedMinutes),
			"now":         time.Now().UTC().Format(time.RFC3339Nano),
		})
		if err != nil {
			return nil, err
		}
		return res.Consume(ctx)
	})
	if err != nil {
		return fmt.Errorf("neo4j upsert concept: %w", err)
	}
	return nil
}

type edgeOutcome int

const (
	edgeCreated edgeOutcome = iota
	edgeExists
	edgeMissing
	edgeCyclic
)

// UpsertPrerequisite checks reachability and creates the relationship in a
// single write transaction.
func (s *Store) UpsertPrerequisite(ctx context.Context, prereqID, conceptID string) error {
	if prereqID == conceptID {
		if _, err := s.Concept(ctx, conceptID); err != nil {
			return err
		}
		return fmt.Errorf("%w: %q cannot be its own prerequisite", apperr.ErrCycle, conceptID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
OPTIONAL MATCH (a:Concept {id: $from})
OPTIONAL MATCH (b:Concept {id: $to})
RETURN a IS NOT NULL AND b IS NOT NULL AS found,
       CASE WHEN a IS NULL OR b IS NULL THEN false
            ELSE EXISTS { MATCH (a)-[:PREREQUISITE_OF]->(b) } END AS present,
       CASE WHEN a IS NULL OR b IS NULL THEN false
            ELSE EXISTS { MATCH (b)-[:PREREQUISITE_OF*1..]->(a) } END AS cyclic`,
			map[string]any{"from": prereqID, "to": conceptID})
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		m := rec.AsMap()
		switch {
		case m["found"] != true:
			return edgeMissing, nil
		case m["present"] == true:
			return edgeExists, nil
		case m["cyclic"] == true:
			return edgeCyclic, nil
		}

		res, err = tx.Run(ctx, `
MATCH (a:Concept {id: $from}), (b:Concept {id: $to})
MERGE (a)-[e:PREREQUISITE_OF]->(b)
ON CREATE SET e.created_at = $now`,
			map[string]any{"from": prereqID, "to": conceptID, "now": time.Now().UTC().Format(time.RFC3339Nano)})
		if err != nil {
			return nil, err
		}
		if _, err := res.Consume(ctx); err != nil {
			return nil, err
		}
		return edgeCreated, nil
	})
	if err != nil {
		return fmt.Errorf("neo4j upsert prerequisite: %w", err)
	}

	switch out.(edgeOutcome) {
	case edgeMissing:
		return fmt.Errorf("%w: concept %q or %q", apperr.ErrNotFound, prereqID, conceptID)
	case edgeCyclic:
		return fmt.Errorf("%w: %q -> %q", apperr.ErrCycle, prereqID, conceptID)
	}
	return nil
}

// RemovePrerequisite deletes the relationship if present.
func (s *Store) RemovePrerequisite(ctx context.Context, prereqID, conceptID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.session(ctx, neo4j.AccessModeWrite)
	defer session.Close(ctx)

	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
OPTIONAL MATCH (a:Concept {id: $from})
OPTIONAL MATCH (b:Concept {id: $to})
OPTIONAL MATCH (a)-[e:PREREQUISITE_OF]->(b)
DELETE e
RETURN a IS NOT NULL AND b IS NOT NULL AS found`,
			map[string]any{"from": prereqID, "to": conceptID})
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		return rec.AsMap()["found"] == true, nil
	})
	if err != nil {
		return fmt.Errorf("neo4j remove prerequisite: %w", err)
	}
	if found, _ := out.(bool); !found {
		return fmt.Errorf("%w: concept %q or %q", apperr.ErrNotFound, prereqID, conceptID)
	}
	return nil
}

func conceptFromValues(m map[string]any) conceptgraph.Concept {
	c := conceptgraph.Concept{
		ID:               asString(m["id"]),
		Name:             asString(m["name"]),
		Description:      asString(m["description"]),
		EstimatedMinutes: asInt(m["estimated_minutes"]),
		Prerequisites:    toStrings(m["prereqs"]),
	}
	return c
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	}
	return 0
}

// toStrings converts a Cypher list to sorted strings, dropping nulls.
func toStrings(v any) []string {
	list, _ := v.([]any)
	var out []string
	for _, x := range list {
		if s, ok := x.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	sort.Strings(out)
	return out
}
