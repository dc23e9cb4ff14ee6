package progress

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-process Store, used by tests and by the CLI when no
// database is configured.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]map[string]Record

	// failCommit, when set, makes Commit fail before touching state.
	failCommit error
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]map[string]Record)}
}

func (m *MemoryStore) Status(_ context.Context, userID, conceptID string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.users[userID][conceptID]
	if !ok {
		return Record{ConceptID: conceptID}, nil
	}
	return r, nil
}

func (m *MemoryStore) SetStatus(_ context.Context, userID, conceptID string, status Status, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCommit != nil {
		return m.failCommit
	}
	recs := m.users[userID]
	if recs == nil {
		recs = make(map[string]Record)
		m.users[userID] = recs
	}
	cur := recs[conceptID]
	recs[conceptID] = Apply(cur, Change{ConceptID: conceptID, From: cur.Status, To: status, At: at, Trigger: "set"})
	return nil
}

func (m *MemoryStore) ListCompleted(_ context.Context, userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var ids []string
	for id, r := range m.users[userID] {
		if r.Status == StatusCompleted {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *MemoryStore) Records(_ context.Context, userID string) (map[string]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]Record, len(m.users[userID]))
	for id, r := range m.users[userID] {
		out[id] = r
	}
	return out, nil
}

func (m *MemoryStore) Commit(_ context.Context, userID string, changes []Change) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commitLocked(userID, m.users[userID], changes)
}

func (m *MemoryStore) Reset(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, userID)
	return nil
}

func (m *MemoryStore) Replace(_ context.Context, userID string, changes []Change) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.commitLocked(userID, nil, changes)
}

// commitLocked checks and applies changes on a copy of base, then installs
// the copy as userID's records. Nothing is modified when a change fails.
func (m *MemoryStore) commitLocked(userID string, base map[string]Record, changes []Change) error {
	if m.failCommit != nil {
		return m.failCommit
	}
	next := make(map[string]Record, len(base)+len(changes))
	for id, r := range base {
		next[id] = r
	}
	for _, c := range changes {
		cur := next[c.ConceptID]
		if err := CheckChange(cur.Status, c); err != nil {
			return err
		}
		next[c.ConceptID] = Apply(cur, c)
	}
	m.users[userID] = next
	return nil
}

// FailCommits makes every subsequent Commit return err (nil restores).
func (m *MemoryStore) FailCommits(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failCommit = err
}
