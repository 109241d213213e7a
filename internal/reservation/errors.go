package reservation

import "errors"

// Results reported by Enroll and Withdraw. Callers match them with errors.Is.
var (
	// ErrAlreadyEnrolled is returned when the user already holds a slot in the event.
	ErrAlreadyEnrolled = errors.New("already enrolled in this event")

	// ErrNoCapacity is returned when the event has no free slots left.
	ErrNoCapacity = errors.New("no free slots left")

	// ErrNotFound is returned when the event or the user does not exist.
	ErrNotFound = errors.New("event not found")

	// ErrStoreUnavailable covers every infrastructure failure. The wrapped
	// cause is for logs only and must not reach clients.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Classifications a Store attaches to the errors it returns.
var (
	// ErrMembershipExists marks a uniqueness violation on the membership pair.
	ErrMembershipExists = errors.New("membership already exists")

	// ErrConflict marks a transient concurrency failure (serialization
	// failure, deadlock, busy database) that is safe to retry.
	ErrConflict = errors.New("transaction conflict")

	// ErrReferenceMissing marks a foreign-key violation: the membership
	// names a user or event that is not in the store.
	ErrReferenceMissing = errors.New("referenced row missing")
)
