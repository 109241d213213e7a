package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/Shivanand-hulikatti/event-signup/internal/reservation"
	"github.com/jackc/pgx/v5"
)

// rollbackTimeout bounds the deferred rollback, which runs detached from
// the caller's cancellation.
const rollbackTimeout = time.Second

// txBeginner is satisfied by *pgxpool.Pool and *pgx.Conn.
type txBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// ReservationStore runs reservation transactions on PostgreSQL.
//
// Transactions use READ COMMITTED. That is enough because the slot
// decrement is a conditioned UPDATE: the first writer locks the event row,
// the second waits for it to commit and then re-evaluates free_slots > 0
// against the committed value instead of a stale snapshot.
type ReservationStore struct {
	db txBeginner
}

// NewReservationStore constructs a ReservationStore.
func NewReservationStore(db txBeginner) *ReservationStore {
	return &ReservationStore{db: db}
}

// InTx implements reservation.Store.
func (s *ReservationStore) InTx(ctx context.Context, fn func(tx reservation.Tx) error) error {
	pgTx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return classify("begin transaction", err)
	}

	// Runs on every exit, panics included. Rollback after Commit is a no-op.
	defer func() {
		rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
		defer cancel()
		_ = pgTx.Rollback(rbCtx)
	}()

	if err := fn(&tx{tx: pgTx}); err != nil {
		return err
	}
	if err := pgTx.Commit(ctx); err != nil {
		return classify("commit transaction", err)
	}
	return nil
}

type tx struct {
	tx pgx.Tx
}

func (t *tx) MembershipExists(ctx context.Context, userID, eventID string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_events WHERE user_id = $1 AND event_id = $2)`,
		userID, eventID,
	).Scan(&exists)
	if err != nil {
		return false, classify("check membership", err)
	}
	return exists, nil
}

func (t *tx) TakeSlot(ctx context.Context, eventID string) (bool, error) {
	tag, err := t.tx.Exec(ctx,
		`UPDATE events SET free_slots = free_slots - 1 WHERE id = $1 AND free_slots > 0`,
		eventID,
	)
	if err != nil {
		return false, classify("take slot", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (t *tx) EventExists(ctx context.Context, eventID string) (bool, error) {
	var id string
	err := t.tx.QueryRow(ctx, `SELECT id::text FROM events WHERE id = $1`, eventID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, classify("check event", err)
	}
	return true, nil
}

func (t *tx) InsertMembership(ctx context.Context, userID, eventID string) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO user_events (user_id, event_id) VALUES ($1, $2)`,
		userID, eventID,
	)
	if err != nil {
		return classify("insert membership", err)
	}
	return nil
}

func (t *tx) DeleteMembership(ctx context.Context, userID, eventID string) (bool, error) {
	tag, err := t.tx.Exec(ctx,
		`DELETE FROM user_events WHERE user_id = $1 AND event_id = $2`,
		userID, eventID,
	)
	if err != nil {
		return false, classify("delete membership", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (t *tx) ReleaseSlot(ctx context.Context, eventID string) error {
	_, err := t.tx.Exec(ctx,
		`UPDATE events SET free_slots = LEAST(free_slots + 1, total_slots) WHERE id = $1`,
		eventID,
	)
	if err != nil {
		return classify("release slot", err)
	}
	return nil
}

var _ reservation.Store = (*ReservationStore)(nil)
