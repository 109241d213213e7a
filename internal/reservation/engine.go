// Package reservation implements the capacity-bounded signup engine: it
// enrolls users into events and withdraws them while keeping each event's
// free-slot counter equal to total slots minus active memberships.
//
// Every operation is a single store transaction. The free-slot decrement is a
// conditioned update (free_slots > 0) executed in one round trip, so two
// requests racing for the last slot serialize on the event row and exactly one
// of them wins. No ordering is promised among simultaneous callers.
package reservation

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/Shivanand-hulikatti/event-signup/internal/reservation"

// DefaultTimeout bounds a single Enroll or Withdraw, retries included.
const DefaultTimeout = 5 * time.Second

// maxAttempts is the first try plus one transparent retry on ErrConflict.
const maxAttempts = 2

// Engine is the only writer of free-slot counters and memberships.
type Engine struct {
	store   Store
	timeout time.Duration
	tracer  trace.Tracer
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout sets the deadline applied to each operation.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// NewEngine constructs an Engine on top of store.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		timeout: DefaultTimeout,
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enroll takes one free slot in eventID for userID.
//
// It returns ErrAlreadyEnrolled if the pair is already enrolled, ErrNoCapacity
// if the event is full, ErrNotFound if the event does not exist and
// ErrStoreUnavailable for infrastructure failures. On any error nothing is
// persisted.
func (e *Engine) Enroll(ctx context.Context, userID, eventID string) error {
	return e.run(ctx, "reservation.Enroll", userID, eventID, enroll)
}

// Withdraw releases userID's slot in eventID. Withdrawing without an active
// membership is a successful no-op.
func (e *Engine) Withdraw(ctx context.Context, userID, eventID string) error {
	return e.run(ctx, "reservation.Withdraw", userID, eventID, withdraw)
}

func enroll(ctx context.Context, tx Tx, userID, eventID string) error {
	enrolled, err := tx.MembershipExists(ctx, userID, eventID)
	if err != nil {
		return fmt.Errorf("check membership: %w", err)
	}
	if enrolled {
		return ErrAlreadyEnrolled
	}

	taken, err := tx.TakeSlot(ctx, eventID)
	if err != nil {
		return fmt.Errorf("take slot: %w", err)
	}
	if !taken {
		found, err := tx.EventExists(ctx, eventID)
		if err != nil {
			return fmt.Errorf("check event: %w", err)
		}
		if !found {
			return ErrNotFound
		}
		return ErrNoCapacity
	}

	if err := tx.InsertMembership(ctx, userID, eventID); err != nil {
		// A concurrent enroll for the same pair got past the existence check.
		if errors.Is(err, ErrMembershipExists) {
			return ErrAlreadyEnrolled
		}
		// The user row is gone or never existed. The slot taken above is
		// returned when the transaction rolls back.
		if errors.Is(err, ErrReferenceMissing) {
			return ErrNotFound
		}
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

func withdraw(ctx context.Context, tx Tx, userID, eventID string) error {
	removed, err := tx.DeleteMembership(ctx, userID, eventID)
	if err != nil {
		return fmt.Errorf("delete membership: %w", err)
	}
	if !removed {
		return nil
	}
	if err := tx.ReleaseSlot(ctx, eventID); err != nil {
		return fmt.Errorf("release slot: %w", err)
	}
	return nil
}

type operation func(ctx context.Context, tx Tx, userID, eventID string) error

func (e *Engine) run(ctx context.Context, name, userID, eventID string, op operation) error {
	ctx, span := e.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("user.id", userID),
		attribute.String("event.id", eventID),
	))
	defer span.End()

	// The transaction must resolve even if the caller goes away, so it only
	// answers to the engine's own deadline.
	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()

	var err error
	attempts := 0
	for attempts < maxAttempts {
		attempts++
		err = e.store.InTx(txCtx, func(tx Tx) error {
			return op(txCtx, tx, userID, eventID)
		})
		if err == nil || !errors.Is(err, ErrConflict) {
			break
		}
		if attempts < maxAttempts {
			log.Printf("%s: conflict for user=%s event=%s, retrying: %v", name, userID, eventID, err)
		}
	}

	err = classify(err)
	span.SetAttributes(
		attribute.Int("reservation.attempts", attempts),
		attribute.String("reservation.outcome", outcome(err)),
	)
	if errors.Is(err, ErrStoreUnavailable) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "store unavailable")
		log.Printf("%s: user=%s event=%s failed after %d attempt(s): %v", name, userID, eventID, attempts, err)
	}
	return err
}

// classify keeps business results as they are and folds every other failure
// into ErrStoreUnavailable.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrAlreadyEnrolled),
		errors.Is(err, ErrNoCapacity),
		errors.Is(err, ErrNotFound):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAlreadyEnrolled):
		return "already_enrolled"
	case errors.Is(err, ErrNoCapacity):
		return "no_capacity"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	default:
		return "store_unavailable"
	}
}
