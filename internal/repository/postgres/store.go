// Package postgres implements the repository contracts on PostgreSQL.
// It uses pgx directly (no ORM) for transparency and performance.
package postgres

import (
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/event-signup/internal/repository"
	"github.com/Shivanand-hulikatti/event-signup/internal/reservation"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLSTATE codes the repositories react to.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// New binds every repository to pool.
func New(pool *pgxpool.Pool) repository.Stores {
	return repository.Stores{
		Events:       NewEventRepository(pool),
		Games:        NewGameRepository(pool),
		Users:        NewUserRepository(pool),
		Reservations: NewReservationStore(pool),
		Close:        pool.Close,
	}
}

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return sqlState(err) == codeUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return sqlState(err) == codeForeignKeyViolation
}

// isTransient reports failures PostgreSQL expects the client to retry.
func isTransient(err error) bool {
	switch sqlState(err) {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return true
	}
	return false
}

// classify attaches the reservation error classes to a store error.
func classify(op string, err error) error {
	switch {
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w: %w", op, reservation.ErrMembershipExists, err)
	case isForeignKeyViolation(err):
		return fmt.Errorf("%s: %w: %w", op, reservation.ErrReferenceMissing, err)
	case isTransient(err):
		return fmt.Errorf("%s: %w: %w", op, reservation.ErrConflict, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
