package checkpoint

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used by tests and single-shot runs
// that do not need durability.
type MemoryStore struct {
	mu   sync.RWMutex
	runs map[string][]Entry
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{runs: map[string][]Entry{}}
}

func runKey(workflow, runID string) string {
	return workflow + "\x00" + runID
}

// Put appends the entry under the run's key and assigns the next step id.
func (m *MemoryStore) Put(ctx context.Context, entry Entry) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := runKey(entry.Workflow, entry.RunID)
	entries := m.runs[key]

	entry.Step = 1
	if len(entries) > 0 {
		entry.Step = entries[len(entries)-1].Step + 1
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	entry.Version = SnapshotVersion

	m.runs[key] = append(entries, entry)
	return entry.Step, nil
}

// Latest returns the most recent entry for the run.
func (m *MemoryStore) Latest(ctx context.Context, workflow, runID string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.runs[runKey(workflow, runID)]
	if len(entries) == 0 {
		return Entry{}, ErrNotFound
	}
	return entries[len(entries)-1], nil
}

// List returns all entries for the run in step order.
func (m *MemoryStore) List(ctx context.Context, workflow, runID string) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := m.runs[runKey(workflow, runID)]
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out, nil
}

// Delete drops the run's history.
func (m *MemoryStore) Delete(ctx context.Context, workflow, runID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.runs, runKey(workflow, runID))
	return nil
}
