package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

type migration struct {
	version int
	name    string
	up      string
}

// migrations упорядоченный список миграций схемы
var migrations = []migration{
	{
		version: 1,
		name:    "create_detections_table",
		up: `
			CREATE TABLE IF NOT EXISTS detections (
				id TEXT PRIMARY KEY,
				user_id TEXT NOT NULL,
				detection_id TEXT NOT NULL,
				disease_name TEXT NOT NULL,
				confidence_level INTEGER NOT NULL CHECK (confidence_level BETWEEN 0 AND 100),
				severity TEXT NOT NULL,
				image_url TEXT NOT NULL DEFAULT '',
				recommendations TEXT NOT NULL DEFAULT '',
				detected_at INTEGER NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_detections_user_detected_at
			ON detections(user_id, detected_at DESC);
		`,
	},
	{
		version: 2,
		name:    "create_accounts_table",
		up: `
			CREATE TABLE IF NOT EXISTS accounts (
				id TEXT PRIMARY KEY,
				email TEXT NOT NULL UNIQUE,
				name TEXT NOT NULL,
				password_hash TEXT NOT NULL,
				confirmed_at INTEGER,
				created_at INTEGER NOT NULL,
				updated_at INTEGER NOT NULL
			);
		`,
	},
	{
		version: 3,
		name:    "add_accounts_phone",
		up:      `ALTER TABLE accounts ADD COLUMN phone TEXT NOT NULL DEFAULT '';`,
	},
}

func runMigrations(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	currentVersion := 0
	err = db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		err := RunInTransaction(ctx, db, func(txCtx context.Context) error {
			exec := GetExecutor(txCtx, db)
			if _, err := exec.ExecContext(txCtx, m.up); err != nil {
				return fmt.Errorf("failed to execute migration %d (%s): %w", m.version, m.name, err)
			}
			if _, err := exec.ExecContext(txCtx,
				"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
				m.version, m.name,
			); err != nil {
				return fmt.Errorf("failed to record migration %d: %w", m.version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}
