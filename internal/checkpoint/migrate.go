package checkpoint

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the latest checkpoint schema supported by the migrator.
// The table layout must stay stable across releases so a resume after an
// upgrade still finds its history.
const SchemaVersion = 1

// Migrate ensures the checkpoint schema exists and is at SchemaVersion.
func Migrate(db *sql.DB) error {
	if db == nil {
		return fmt.Errorf("migrate: db is nil")
	}

	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER PRIMARY KEY);`)
	if err != nil {
		return fmt.Errorf("migrate: create schema_migrations: %w", err)
	}

	var current int
	err = db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations;`).Scan(&current)
	if err != nil {
		return fmt.Errorf("migrate: read current version: %w", err)
	}

	if current >= SchemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("migrate: begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.Exec(`
		CREATE TABLE IF NOT EXISTS checkpoints (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			workflow TEXT NOT NULL,
			run_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			node TEXT NOT NULL,
			next TEXT NOT NULL,
			state TEXT NOT NULL,
			writes TEXT NOT NULL DEFAULT '[]',
			meta TEXT NOT NULL DEFAULT '{}',
			version INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			UNIQUE (workflow, run_id, step)
		);
	`)
	if err != nil {
		return fmt.Errorf("migrate: create checkpoints table: %w", err)
	}

	_, err = tx.Exec(`CREATE INDEX IF NOT EXISTS idx_checkpoints_run_step ON checkpoints(workflow, run_id, step);`)
	if err != nil {
		return fmt.Errorf("migrate: create idx_checkpoints_run_step: %w", err)
	}

	_, err = tx.Exec(`INSERT INTO schema_migrations(version) VALUES (?);`, SchemaVersion)
	if err != nil {
		return fmt.Errorf("migrate: record schema version: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("migrate: commit transaction: %w", err)
	}
	return nil
}
