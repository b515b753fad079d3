package storage

import (
	"context"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
)

// migrationLockID is the advisory lock key held while a migration applies, so
// replicas starting together do not run the same file twice.
const migrationLockID int64 = 0x6879_6f6b_61 // "hyoka"

// RunMigrations applies the .sql files in migrationsFS in name order. Each
// file and its schema_migrations row commit in one transaction, so a failed
// file leaves neither its DDL nor its record behind and is retried on the
// next start.
func (db *DB) RunMigrations(ctx context.Context, migrationsFS fs.FS) error {
	if _, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return fmt.Errorf("storage: create schema_migrations: %w", err)
	}

	files, err := migrationFiles(migrationsFS)
	if err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	for _, name := range files {
		applied, err := db.applyMigration(ctx, migrationsFS, name)
		if err != nil {
			return fmt.Errorf("storage: migration %s: %w", name, err)
		}
		if applied {
			db.logger.Info("migration applied", "file", name)
		} else {
			db.logger.Debug("migration already applied, skipping", "file", name)
		}
	}
	return nil
}

// applyMigration runs one file under the advisory lock. It reports false when
// the file was already recorded, possibly by another replica that held the
// lock first.
func (db *DB) applyMigration(ctx context.Context, migrationsFS fs.FS, name string) (bool, error) {
	content, err := fs.ReadFile(migrationsFS, name)
	if err != nil {
		return false, fmt.Errorf("read: %w", err)
	}

	applied := false
	err = pgx.BeginFunc(ctx, db.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLockID); err != nil {
			return fmt.Errorf("lock: %w", err)
		}
		var done bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, name,
		).Scan(&done); err != nil {
			return fmt.Errorf("check: %w", err)
		}
		if done {
			return nil
		}
		if _, err := tx.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("execute: %w", err)
		}
		if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, name); err != nil {
			return fmt.Errorf("record: %w", err)
		}
		applied = true
		return nil
	})
	return applied, err
}

// migrationFiles lists the .sql files at the root of migrationsFS in name order.
func migrationFiles(migrationsFS fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(migrationsFS, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}
