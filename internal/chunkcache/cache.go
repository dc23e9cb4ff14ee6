// Package chunkcache keeps scored chunk lists in an embedded Badger
// database so repeated lesson assembly skips the relevance scorer.
package chunkcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/abhisek/learnfast/internal/content"
	"github.com/abhisek/learnfast/internal/logger"
)

// Config controls the cache database.
type Config struct {
	Enabled  bool          `yaml:"enabled"`
	Path     string        `yaml:"path"`
	InMemory bool          `yaml:"in_memory"`
	TTL      time.Duration `yaml:"ttl" validate:"gte=0"`
}

// DefaultConfig returns a disabled cache with a one hour TTL.
func DefaultConfig() Config {
	return Config{TTL: time.Hour}
}

// badgerLogger routes Badger's printf-style logging into zap.
type badgerLogger struct {
	log *logger.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

// Open opens the Badger database described by cfg.
func Open(cfg Config, log *logger.Logger) (*badger.DB, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("chunkcache: path is required for a persistent cache")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create cache directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithNumVersionsToKeep(1)
	if log != nil {
		opts = opts.WithLogger(&badgerLogger{log: log.With("component", "badger")})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	return db, nil
}

// Store wraps a content.Store with a read-through cache.
type Store struct {
	next content.Store
	db   *badger.DB
	ttl  time.Duration
	log  *logger.Logger
}

var _ content.Store = (*Store)(nil)

// Wrap returns a caching view of next. A zero ttl keeps entries forever.
func Wrap(next content.Store, db *badger.DB, ttl time.Duration, log *logger.Logger) *Store {
	return &Store{next: next, db: db, ttl: ttl, log: logger.OrNop(log)}
}

type cachedChunk struct {
	ID                string  `json:"id"`
	ConceptID         string  `json:"concept_id"`
	Content           string  `json:"content"`
	EstimatedMinutes  int     `json:"estimated_minutes"`
	Relevance         float64 `json:"relevance"`
	PresentationOrder int     `json:"presentation_order"`
}

func prefix(conceptID string) []byte {
	return []byte("chunks\x00" + conceptID + "\x00")
}

func key(conceptID, query string) []byte {
	return append(prefix(conceptID), query...)
}

// Chunks serves from the cache when possible. Cache failures are logged
// and fall through to the wrapped store.
func (s *Store) Chunks(ctx context.Context, conceptID, query string) ([]content.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k := key(conceptID, query)

	chunks, hit, err := s.get(k)
	if err != nil {
		s.log.Warn("chunk cache read failed", "concept_id", conceptID, "error", err)
	}
	if hit {
		return chunks, nil
	}

	chunks, err = s.next.Chunks(ctx, conceptID, query)
	if err != nil {
		return nil, err
	}
	if err := s.put(k, chunks); err != nil {
		s.log.Warn("chunk cache write failed", "concept_id", conceptID, "error", err)
	}
	return chunks, nil
}

func (s *Store) get(k []byte) ([]content.Chunk, bool, error) {
	var raw []cachedChunk
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &raw)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	out := make([]content.Chunk, len(raw))
	for i, c := range raw {
		out[i] = content.Chunk(c)
	}
	return out, true, nil
}

func (s *Store) put(k []byte, chunks []content.Chunk) error {
	raw := make([]cachedChunk, len(chunks))
	for i, c := range chunks {
		raw[i] = cachedChunk(c)
	}
	val, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(k, val)
		if s.ttl > 0 {
			e = e.WithTTL(s.ttl)
		}
		return txn.SetEntry(e)
	})
}

// Invalidate drops every cached query for the given concepts.
func (s *Store) Invalidate(conceptIDs ...string) error {
	for _, id := range conceptIDs {
		if err := s.db.DropPrefix(prefix(id)); err != nil {
			return fmt.Errorf("invalidate %q: %w", id, err)
		}
	}
	return nil
}

// Purge empties the cache.
func (s *Store) Purge() error {
	return s.db.DropAll()
}
