package database

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-signup/internal/database/migrations"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const migrationTable = "schema_migrations"

type migration struct {
	name string
	up   string
}

// loadMigrations reads dir's .sql files in name order.
func loadMigrations(fsys fs.FS, dir string) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	out := make([]migration, 0, len(names))
	for _, name := range names {
		content, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		up := UpSection(string(content))
		if strings.TrimSpace(up) == "" {
			continue
		}
		out = append(out, migration{name: name, up: up})
	}
	return out, nil
}

// UpSection returns the SQL between "-- +migrate Up" and "-- +migrate Down".
// Files without markers are returned whole.
func UpSection(content string) string {
	const upMarker, downMarker = "-- +migrate Up", "-- +migrate Down"
	start := strings.Index(content, upMarker)
	if start == -1 {
		start = 0
	} else {
		start += len(upMarker)
	}
	end := strings.Index(content, downMarker)
	if end == -1 || end < start {
		end = len(content)
	}
	return content[start:end]
}

// MigratePostgres applies pending PostgreSQL migrations, one transaction per file.
func MigratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	files, err := loadMigrations(migrations.Postgres, "postgres")
	if err != nil {
		return err
	}
	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+migrationTable+` (
		name       TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, m := range files {
		err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
			var applied bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM `+migrationTable+` WHERE name = $1)`, m.name,
			).Scan(&applied); err != nil {
				return fmt.Errorf("check: %w", err)
			}
			if applied {
				return nil
			}
			// No arguments: pgx sends this over the simple protocol, which
			// accepts several statements at once.
			if _, err := tx.Exec(ctx, m.up); err != nil {
				return fmt.Errorf("exec: %w", err)
			}
			if _, err := tx.Exec(ctx, `INSERT INTO `+migrationTable+` (name) VALUES ($1)`, m.name); err != nil {
				return fmt.Errorf("record: %w", err)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
	}
	return nil
}

// MigrateSQLite applies pending SQLite migrations, one transaction per file.
func MigrateSQLite(ctx context.Context, db *sql.DB) error {
	files, err := loadMigrations(migrations.SQLite, "sqlite")
	if err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+migrationTable+` (
		name       TEXT PRIMARY KEY,
		applied_at INTEGER NOT NULL
	)`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, m := range files {
		if err := applySQLite(ctx, db, m); err != nil {
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
	}
	return nil
}

func applySQLite(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var applied int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM `+migrationTable+` WHERE name = ?`, m.name,
	).Scan(&applied); err != nil {
		return fmt.Errorf("check: %w", err)
	}
	if applied > 0 {
		return nil
	}
	if _, err := tx.ExecContext(ctx, m.up); err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO `+migrationTable+` (name, applied_at) VALUES (?, ?)`,
		m.name, time.Now().UTC().UnixMilli(),
	); err != nil {
		return fmt.Errorf("record: %w", err)
	}
	return tx.Commit()
}
