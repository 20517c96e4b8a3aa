package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists checkpoints to an embedded SQLite database. A
// per-run mutex serializes writers so concurrent invocations against the
// same run id can never interleave partial writes; each entry is committed
// in a single transaction, so readers always see fully-written rows.
type SQLiteStore struct {
	db *sql.DB

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the checkpoint database at path
// and applies schema migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint db: %w", err)
	}
	// modernc sqlite handles are not safe for concurrent writers.
	db.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, locks: map[string]*sync.Mutex{}}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) runLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

// Put appends the entry inside one transaction and returns the assigned,
// monotonically increasing step id.
func (s *SQLiteStore) Put(ctx context.Context, entry Entry) (int64, error) {
	lock := s.runLock(runKey(entry.Workflow, entry.RunID))
	lock.Lock()
	defer lock.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin checkpoint tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	querySQL, args, err := sq.Select("COALESCE(MAX(step), 0)").
		From("checkpoints").
		Where(sq.Eq{"workflow": entry.Workflow, "run_id": entry.RunID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build step query: %w", err)
	}

	var last int64
	if err := tx.QueryRowContext(ctx, querySQL, args...).Scan(&last); err != nil {
		return 0, fmt.Errorf("read last step: %w", err)
	}
	step := last + 1

	writes, err := json.Marshal(entry.Writes)
	if err != nil {
		return 0, fmt.Errorf("marshal pending writes: %w", err)
	}
	meta, err := json.Marshal(entry.Meta)
	if err != nil {
		return 0, fmt.Errorf("marshal meta: %w", err)
	}

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	insertSQL, args, err := sq.Insert("checkpoints").
		Columns("workflow", "run_id", "step", "node", "next", "state", "writes", "meta", "version", "created_at").
		Values(entry.Workflow, entry.RunID, step, entry.Node, entry.Next,
			string(entry.State), string(writes), string(meta),
			SnapshotVersion, createdAt.Format(time.RFC3339Nano)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}

	if _, err := tx.ExecContext(ctx, insertSQL, args...); err != nil {
		return 0, fmt.Errorf("insert checkpoint: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit checkpoint: %w", err)
	}
	return step, nil
}

// Latest returns the checkpoint with the greatest step id for the run.
func (s *SQLiteStore) Latest(ctx context.Context, workflow, runID string) (Entry, error) {
	querySQL, args, err := selectEntries().
		Where(sq.Eq{"workflow": workflow, "run_id": runID}).
		OrderBy("step DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return Entry{}, fmt.Errorf("build latest query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, querySQL, args...)
	if err != nil {
		return Entry{}, fmt.Errorf("query latest: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Entry{}, fmt.Errorf("latest rows: %w", err)
		}
		return Entry{}, ErrNotFound
	}

	entry, err := scanEntry(rows)
	if err != nil {
		return Entry{}, err
	}
	return entry, rows.Err()
}

// List returns the run's full history in ascending step order.
func (s *SQLiteStore) List(ctx context.Context, workflow, runID string) ([]Entry, error) {
	querySQL, args, err := selectEntries().
		Where(sq.Eq{"workflow": workflow, "run_id": runID}).
		OrderBy("step ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, querySQL, args...)
	if err != nil {
		return nil, fmt.Errorf("query list: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Delete removes every checkpoint for the run.
func (s *SQLiteStore) Delete(ctx context.Context, workflow, runID string) error {
	deleteSQL, args, err := sq.Delete("checkpoints").
		Where(sq.Eq{"workflow": workflow, "run_id": runID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, deleteSQL, args...); err != nil {
		return fmt.Errorf("delete checkpoints: %w", err)
	}
	return nil
}

func selectEntries() sq.SelectBuilder {
	return sq.Select("workflow", "run_id", "step", "node", "next", "state", "writes", "meta", "version", "created_at").
		From("checkpoints")
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		entry     Entry
		state     string
		writes    string
		meta      string
		createdAt string
	)

	err := rows.Scan(&entry.Workflow, &entry.RunID, &entry.Step, &entry.Node,
		&entry.Next, &state, &writes, &meta, &entry.Version, &createdAt)
	if err != nil {
		return Entry{}, fmt.Errorf("scan checkpoint: %w", err)
	}

	entry.State = json.RawMessage(state)
	if writes != "" && writes != "null" {
		if err := json.Unmarshal([]byte(writes), &entry.Writes); err != nil {
			return Entry{}, fmt.Errorf("decode pending writes: %w", err)
		}
	}
	if meta != "" && meta != "null" {
		if err := json.Unmarshal([]byte(meta), &entry.Meta); err != nil {
			return Entry{}, fmt.Errorf("decode meta: %w", err)
		}
	}

	entry.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Entry{}, fmt.Errorf("parse created_at: %w", err)
	}
	return entry, nil
}
