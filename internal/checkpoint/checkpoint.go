// Package checkpoint persists per-run graph execution snapshots so that an
// interrupted pipeline can resume from its last completed step.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// SnapshotVersion tags serialized state so a resume after an upgrade can
// detect incompatible snapshots instead of silently misreading them.
const SnapshotVersion = 1

// ErrNotFound is returned when a run has no checkpoints.
var ErrNotFound = errors.New("checkpoint: not found")

// PendingWrite is a buffered side effect attached to the checkpoint that
// follows it. A crash before that checkpoint commits also discards the
// write, keeping partial work invisible.
type PendingWrite struct {
	Channel string          `json:"channel"`
	Value   json.RawMessage `json:"value"`
}

// Entry is one immutable checkpoint record. Step ids are monotonically
// increasing per (workflow, run), which makes "latest wins" resolution
// trivial.
type Entry struct {
	Workflow  string            `json:"workflow"`
	RunID     string            `json:"run_id"`
	Step      int64             `json:"step"`
	Node      string            `json:"node"`
	Next      string            `json:"next"`
	State     json.RawMessage   `json:"state"`
	Writes    []PendingWrite    `json:"writes,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
	Version   int               `json:"version"`
	CreatedAt time.Time         `json:"created_at"`
}

// Store is durable, append-only checkpoint persistence. Writes for one run
// are serialized by the implementation; history is never rewritten.
type Store interface {
	// Put appends the entry and returns its assigned step id.
	Put(ctx context.Context, entry Entry) (int64, error)
	// Latest returns the entry with the greatest step id, or ErrNotFound.
	Latest(ctx context.Context, workflow, runID string) (Entry, error)
	// List returns all entries for a run in ascending step order.
	List(ctx context.Context, workflow, runID string) ([]Entry, error)
	// Delete removes all entries for a run.
	Delete(ctx context.Context, workflow, runID string) error
}
