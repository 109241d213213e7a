// Package sqlite implements the repository contracts on SQLite through
// modernc.org/sqlite. It backs local development and the transactional tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-signup/internal/database"
	"github.com/Shivanand-hulikatti/event-signup/internal/repository"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// Open opens the database at path and returns every repository bound to it.
func Open(ctx context.Context, path string) (repository.Stores, *sql.DB, error) {
	db, err := database.OpenSQLite(ctx, path)
	if err != nil {
		return repository.Stores{}, nil, err
	}
	return New(db), db, nil
}

// New binds every repository to db.
func New(db *sql.DB) repository.Stores {
	return repository.Stores{
		Events:       NewEventRepository(db),
		Games:        NewGameRepository(db),
		Users:        NewUserRepository(db),
		Reservations: NewReservationStore(db),
		Close:        func() { _ = db.Close() },
	}
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

func isForeignKeyViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code() == sqlite3lib.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "foreign key constraint failed")
}

// isBusy reports lock contention that outlived the busy timeout.
func isBusy(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED:
			return true
		}
	}
	return false
}

func errStorageNotConfigured() error {
	return fmt.Errorf("storage is not configured")
}
