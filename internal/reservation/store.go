package reservation

import "context"

// Tx is one open transaction against the event and membership tables.
// Implementations wrap store errors with ErrMembershipExists or ErrConflict
// where they apply.
type Tx interface {
	// MembershipExists reports whether the (user, event) pair is enrolled.
	MembershipExists(ctx context.Context, userID, eventID string) (bool, error)

	// TakeSlot decrements the event's free slots by one in a single
	// conditioned update (free_slots > 0). It reports whether a row changed.
	TakeSlot(ctx context.Context, eventID string) (bool, error)

	// EventExists reports whether the event row exists.
	EventExists(ctx context.Context, eventID string) (bool, error)

	// InsertMembership records the (user, event) pair.
	InsertMembership(ctx context.Context, userID, eventID string) error

	// DeleteMembership removes the pair and reports whether a row was deleted.
	DeleteMembership(ctx context.Context, userID, eventID string) (bool, error)

	// ReleaseSlot increments the event's free slots by one, never above total_slots.
	ReleaseSlot(ctx context.Context, eventID string) error
}

// Store runs fn inside a transaction. The transaction commits only when fn
// returns nil and is rolled back on every other exit path, panics included.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}
