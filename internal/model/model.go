// Package model defines the core domain types for the event signup service.
package model

import "time"

// Roles a user account may hold.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// DefaultImage is the image reference used when an event is created without one.
const DefaultImage = "default.png"

// EventsPageSize is the number of events returned per catalog page.
const EventsPageSize = 9

// Event represents an event with a fixed number of slots.
// FreeSlots is owned by the reservation engine; everything else is catalog data.
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Date        string    `json:"date"`
	Time        string    `json:"time"`
	TotalSlots  int       `json:"total_slots"`
	FreeSlots   int       `json:"free_slots"`
	Image       string    `json:"image"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// StartsAt combines Date and Time into a UTC timestamp.
func (e *Event) StartsAt() (time.Time, error) {
	return time.Parse("2006-01-02 15:04", e.Date+" "+e.Time)
}

// Game is a catalog entry users can browse.
type Game struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Genre       string   `json:"genre"`
	Platforms   []string `json:"platforms"`
	Description string   `json:"description"`
	Image       string   `json:"image"`
}

// User is a registered account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// EventFilter narrows a catalog listing.
type EventFilter struct {
	Page     int
	Category string
	Date     string
	OnlyFree bool
}

// Offset returns the row offset for the filter's page.
func (f EventFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * EventsPageSize
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Title       string `json:"title"`
	Category    string `json:"category"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Slots       int    `json:"slots"`
	Description string `json:"description"`
}

// RegisterRequest is the payload for creating an account.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the payload for signing in.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned after a successful sign in.
type LoginResponse struct {
	Message  string `json:"message"`
	Token    string `json:"token"`
	Role     string `json:"role"`
	Username string `json:"username"`
}

// MeResponse describes the authenticated caller.
type MeResponse struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username"`
	Role          string `json:"role"`
}

// MessageResponse is a standard JSON success envelope.
type MessageResponse struct {
	Message string `json:"message"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
