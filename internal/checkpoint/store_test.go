package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "checkpoints.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() {
		_ = sqlite.Close()
	})

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStorePutAssignsMonotonicSteps(t *testing.T) {
	ctx := context.Background()

	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			for i := 1; i <= 3; i++ {
				step, err := store.Put(ctx, Entry{
					Workflow: "research",
					RunID:    "run-1",
					Node:     fmt.Sprintf("node-%d", i),
					Next:     "next",
					State:    json.RawMessage(`{"n":` + fmt.Sprint(i) + `}`),
				})
				if err != nil {
					t.Fatalf("put %d: %v", i, err)
				}
				if step != int64(i) {
					t.Fatalf("expected step %d, got %d", i, step)
				}
			}

			// A second run id gets its own sequence.
			step, err := store.Put(ctx, Entry{Workflow: "research", RunID: "run-2", Node: "a", Next: "b", State: json.RawMessage(`{}`)})
			if err != nil {
				t.Fatalf("put run-2: %v", err)
			}
			if step != 1 {
				t.Fatalf("expected run-2 to start at step 1, got %d", step)
			}
		})
	}
}

func TestStoreLatestWins(t *testing.T) {
	ctx := context.Background()

	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			for _, node := range []string{"fetch", "merge", "score"} {
				if _, err := store.Put(ctx, Entry{
					Workflow: "research",
					RunID:    "run-latest",
					Node:     node,
					Next:     node + "-next",
					State:    json.RawMessage(`{"at":"` + node + `"}`),
				}); err != nil {
					t.Fatalf("put %s: %v", node, err)
				}
			}

			latest, err := store.Latest(ctx, "research", "run-latest")
			if err != nil {
				t.Fatalf("latest: %v", err)
			}
			if latest.Node != "score" || latest.Step != 3 {
				t.Fatalf("unexpected latest entry: node=%s step=%d", latest.Node, latest.Step)
			}

			entries, err := store.List(ctx, "research", "run-latest")
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(entries) != 3 {
				t.Fatalf("expected 3 entries, got %d", len(entries))
			}
			for i, entry := range entries {
				if entry.Step != int64(i+1) {
					t.Fatalf("entry %d has step %d", i, entry.Step)
				}
			}
		})
	}
}

func TestStoreLatestMissingRun(t *testing.T) {
	ctx := context.Background()

	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Latest(ctx, "research", "absent"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestStoreDelete(t *testing.T) {
	ctx := context.Background()

	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Put(ctx, Entry{Workflow: "script", RunID: "run-del", Node: "a", Next: "b", State: json.RawMessage(`{}`)}); err != nil {
				t.Fatalf("put: %v", err)
			}

			if err := store.Delete(ctx, "script", "run-del"); err != nil {
				t.Fatalf("delete: %v", err)
			}

			if _, err := store.Latest(ctx, "script", "run-del"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound after delete, got %v", err)
			}
		})
	}
}

func TestStoreWorkflowsAreIsolated(t *testing.T) {
	ctx := context.Background()

	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := store.Put(ctx, Entry{Workflow: "research", RunID: "shared", Node: "r", Next: "x", State: json.RawMessage(`{}`)}); err != nil {
				t.Fatalf("put research: %v", err)
			}
			if _, err := store.Put(ctx, Entry{Workflow: "script", RunID: "shared", Node: "s", Next: "y", State: json.RawMessage(`{}`)}); err != nil {
				t.Fatalf("put script: %v", err)
			}

			research, err := store.Latest(ctx, "research", "shared")
			if err != nil {
				t.Fatalf("latest research: %v", err)
			}
			if research.Node != "r" || research.Step != 1 {
				t.Fatalf("research entry leaked across workflows: %+v", research)
			}
		})
	}
}

func TestStorePendingWritesRoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			entry := Entry{
				Workflow: "script",
				RunID:    "run-writes",
				Node:     "generate",
				Next:     "finalize",
				State:    json.RawMessage(`{"attempts":1}`),
				Writes: []PendingWrite{
					{Channel: "drafts", Value: json.RawMessage(`{"title":"t"}`)},
				},
				Meta: map[string]string{"thread_id": "run-writes"},
			}
			if _, err := store.Put(ctx, entry); err != nil {
				t.Fatalf("put: %v", err)
			}

			latest, err := store.Latest(ctx, "script", "run-writes")
			if err != nil {
				t.Fatalf("latest: %v", err)
			}
			if len(latest.Writes) != 1 || latest.Writes[0].Channel != "drafts" {
				t.Fatalf("pending writes lost: %+v", latest.Writes)
			}
			if latest.Meta["thread_id"] != "run-writes" {
				t.Fatalf("meta lost: %+v", latest.Meta)
			}
			if latest.Version != SnapshotVersion {
				t.Fatalf("expected snapshot version %d, got %d", SnapshotVersion, latest.Version)
			}
		})
	}
}

func TestStoreConcurrentPuts(t *testing.T) {
	ctx := context.Background()
	const writers = 8
	const perWriter = 5

	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for w := 0; w < writers; w++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for i := 0; i < perWriter; i++ {
						_, err := store.Put(ctx, Entry{
							Workflow: "research",
							RunID:    "run-concurrent",
							Node:     "n",
							Next:     "m",
							State:    json.RawMessage(`{}`),
						})
						if err != nil {
							t.Errorf("concurrent put: %v", err)
							return
						}
					}
				}()
			}
			wg.Wait()

			entries, err := store.List(ctx, "research", "run-concurrent")
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(entries) != writers*perWriter {
				t.Fatalf("expected %d entries, got %d", writers*perWriter, len(entries))
			}
			for i, entry := range entries {
				if entry.Step != int64(i+1) {
					t.Fatalf("steps not contiguous at %d: %d", i, entry.Step)
				}
			}
		})
	}
}
