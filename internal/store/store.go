package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/abhisek/learnfast/internal/relevance"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Store holds the SQLite connection and provides access to repositories.
type Store struct {
	db       *sql.DB
	drv      *entsql.Driver
	seq      *sequenceCounter
	concepts *ConceptRepo
	progress *ProgressRepo
}

// Open creates a new Store connected to the SQLite database at dsn.
// It applies recommended pragmas and runs auto-migration.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", withConnPragmas(dsn))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	drv := entsql.OpenDB(dialect.SQLite, db)
	if err := migrate(context.Background(), drv); err != nil {
		drv.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}

	seq, err := newSequenceCounter(db)
	if err != nil {
		drv.Close()
		return nil, err
	}

	return &Store{
		db:       db,
		drv:      drv,
		seq:      seq,
		concepts: &ConceptRepo{db: db},
		progress: &ProgressRepo{db: db, seq: seq},
	}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.drv.Close()
}

// Concepts returns the concept graph repository.
func (s *Store) Concepts() *ConceptRepo {
	return s.concepts
}

// Progress returns the progress repository.
func (s *Store) Progress() *ProgressRepo {
	return s.progress
}

// Chunks returns the content repository. A nil scorer falls back to
// relevance.LexicalScorer.
func (s *Store) Chunks(scorer relevance.Scorer) *ChunkRepo {
	if scorer == nil {
		scorer = relevance.LexicalScorer{}
	}
	return &ChunkRepo{db: s.db, scorer: scorer}
}

// Events returns the progress event log repository.
func (s *Store) Events() EventRepo {
	return &eventRepo{db: s.db}
}

// Snapshots returns the progress snapshot repository.
func (s *Store) Snapshots() SnapshotRepo {
	return &snapshotRepo{db: s.db, seq: s.seq}
}

// withConnPragmas adds per-connection pragmas to the DSN so that every
// pooled connection enforces foreign keys and waits on locks.
func withConnPragmas(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// applyPragmas configures SQLite for optimal single-user performance.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. LEARNFAST_DB environment variable
// 2. $XDG_DATA_HOME/learnfast/learnfast.db
// 3. ~/.local/share/learnfast/learnfast.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("LEARNFAST_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "learnfast", "learnfast.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

func sqlite() *entsql.DialectBuilder {
	return entsql.Dialect(dialect.SQLite)
}
