package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// sqliteParams: WAL for concurrent readers, a busy timeout so writers queue
// instead of failing, and immediate transactions so a writer takes the write
// lock at BEGIN rather than upgrading a stale read snapshot later.
//
// The busy timeout stays well under the reservation engine's default 5s
// deadline so a BUSY attempt leaves time for its single retry.
const sqliteParams = "?_pragma=journal_mode(WAL)" +
	"&_pragma=foreign_keys(ON)" +
	"&_pragma=busy_timeout(2000)" +
	"&_pragma=synchronous(NORMAL)" +
	"&_txlock=immediate"

// OpenSQLite opens the SQLite database at path and applies the schema.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cleanPath+sqliteParams)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := MigrateSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}
