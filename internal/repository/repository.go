// Package repository defines the persistence contracts of the signup service.
// The postgres and sqlite subpackages implement them with raw SQL (no ORM).
package repository

import (
	"context"
	"errors"

	"github.com/Shivanand-hulikatti/event-signup/internal/model"
	"github.com/Shivanand-hulikatti/event-signup/internal/reservation"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrAlreadyExists is returned when a unique key is already taken.
var ErrAlreadyExists = errors.New("already exists")

// EventRepository handles catalog persistence for events. It never writes
// free_slots after creation; that counter belongs to the reservation engine.
type EventRepository interface {
	Create(ctx context.Context, event model.Event) error
	GetByID(ctx context.Context, id string) (*model.Event, error)
	List(ctx context.Context, filter model.EventFilter) ([]model.Event, error)
	ListByUser(ctx context.Context, userID string) ([]model.Event, error)
}

// GameRepository handles persistence for the game catalog.
type GameRepository interface {
	Create(ctx context.Context, game model.Game) error
	// Search matches folded against the folded title, genre and platforms.
	Search(ctx context.Context, folded string) ([]model.Game, error)
}

// UserRepository handles persistence for user accounts.
type UserRepository interface {
	Create(ctx context.Context, user model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// Stores bundles one backend's repositories.
type Stores struct {
	Events       EventRepository
	Games        GameRepository
	Users        UserRepository
	Reservations reservation.Store
	Close        func()
}
