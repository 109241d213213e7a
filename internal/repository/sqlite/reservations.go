package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/event-signup/internal/reservation"
)

// ReservationStore runs reservation transactions on SQLite. Connections are
// opened with _txlock=immediate, so each transaction holds the write lock
// from BEGIN and concurrent signups queue behind the busy timeout.
type ReservationStore struct {
	db *sql.DB
}

// NewReservationStore constructs a ReservationStore.
func NewReservationStore(db *sql.DB) *ReservationStore {
	return &ReservationStore{db: db}
}

// InTx implements reservation.Store.
func (s *ReservationStore) InTx(ctx context.Context, fn func(tx reservation.Tx) error) error {
	if s == nil || s.db == nil {
		return errStorageNotConfigured()
	}
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin transaction", err)
	}

	// Runs on every exit, panics included.
	committed := false
	defer func() {
		if !committed {
			_ = sqlTx.Rollback()
		}
	}()

	if err := fn(&tx{tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return classify("commit transaction", err)
	}
	committed = true
	return nil
}

func classify(op string, err error) error {
	switch {
	case isUniqueViolation(err):
		return fmt.Errorf("%s: %w: %w", op, reservation.ErrMembershipExists, err)
	case isForeignKeyViolation(err):
		return fmt.Errorf("%s: %w: %w", op, reservation.ErrReferenceMissing, err)
	case isBusy(err):
		return fmt.Errorf("%s: %w: %w", op, reservation.ErrConflict, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

type tx struct {
	tx *sql.Tx
}

func (t *tx) MembershipExists(ctx context.Context, userID, eventID string) (bool, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_events WHERE user_id = ? AND event_id = ?`,
		userID, eventID,
	).Scan(&n)
	if err != nil {
		return false, classify("check membership", err)
	}
	return n > 0, nil
}

func (t *tx) TakeSlot(ctx context.Context, eventID string) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE events SET free_slots = free_slots - 1 WHERE id = ? AND free_slots > 0`,
		eventID,
	)
	if err != nil {
		return false, classify("take slot", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, classify("take slot", err)
	}
	return n == 1, nil
}

func (t *tx) EventExists(ctx context.Context, eventID string) (bool, error) {
	var id string
	err := t.tx.QueryRowContext(ctx, `SELECT id FROM events WHERE id = ?`, eventID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, classify("check event", err)
	}
	return true, nil
}

func (t *tx) InsertMembership(ctx context.Context, userID, eventID string) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO user_events (user_id, event_id, created_at) VALUES (?, ?, ?)`,
		userID, eventID, toMillis(time.Now()),
	)
	if err != nil {
		return classify("insert membership", err)
	}
	return nil
}

func (t *tx) DeleteMembership(ctx context.Context, userID, eventID string) (bool, error) {
	res, err := t.tx.ExecContext(ctx,
		`DELETE FROM user_events WHERE user_id = ? AND event_id = ?`,
		userID, eventID,
	)
	if err != nil {
		return false, classify("delete membership", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, classify("delete membership", err)
	}
	return n > 0, nil
}

func (t *tx) ReleaseSlot(ctx context.Context, eventID string) error {
	_, err := t.tx.ExecContext(ctx,
		`UPDATE events SET free_slots = MIN(free_slots + 1, total_slots) WHERE id = ?`,
		eventID,
	)
	if err != nil {
		return classify("release slot", err)
	}
	return nil
}

var _ reservation.Store = (*ReservationStore)(nil)
