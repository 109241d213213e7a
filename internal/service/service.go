// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-signup/internal/auth"
	"github.com/Shivanand-hulikatti/event-signup/internal/model"
	"github.com/Shivanand-hulikatti/event-signup/internal/repository"
	"github.com/Shivanand-hulikatti/event-signup/internal/reservation"
	"github.com/google/uuid"
)

// ErrValidation marks input the caller must correct. Its message is safe to
// show to clients.
var ErrValidation = errors.New("invalid input")

// ErrForbidden is returned when the caller lacks the required role.
var ErrForbidden = errors.New("forbidden")

// MaxSlots caps the capacity of a single event.
const MaxSlots = 100_000

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

// Signups is the reservation engine as seen by the service layer.
type Signups interface {
	Enroll(ctx context.Context, userID, eventID string) error
	Withdraw(ctx context.Context, userID, eventID string) error
}

// ImageStore persists uploaded event images.
type ImageStore interface {
	Save(r io.Reader) (string, error)
	Remove(name string) error
}

// EventService orchestrates event-related business operations.
type EventService struct {
	events  repository.EventRepository
	signups Signups
	images  ImageStore
	now     func() time.Time
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(events repository.EventRepository, signups Signups, images ImageStore) *EventService {
	return &EventService{events: events, signups: signups, images: images, now: time.Now}
}

// CreateEvent validates the request, stores the optional image and inserts
// the event with every slot free. Only admins may create events.
func (s *EventService) CreateEvent(ctx context.Context, caller auth.Identity, req model.CreateEventRequest, image io.Reader) (*model.Event, error) {
	if caller.Role != model.RoleAdmin {
		return nil, ErrForbidden
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Category = strings.ToLower(strings.TrimSpace(req.Category))
	req.Date = strings.TrimSpace(req.Date)
	req.Time = strings.TrimSpace(req.Time)
	req.Description = strings.TrimSpace(req.Description)

	if req.Title == "" {
		return nil, invalid("title is required")
	}
	if req.Slots <= 0 {
		return nil, invalid("slots must be a positive integer")
	}
	if req.Slots > MaxSlots {
		return nil, invalid("slots cannot exceed 100,000")
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		return nil, invalid("date must be formatted as YYYY-MM-DD")
	}
	if _, err := time.Parse("15:04", req.Time); err != nil {
		return nil, invalid("time must be formatted as HH:MM")
	}

	event := model.Event{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Category:    req.Category,
		Date:        req.Date,
		Time:        req.Time,
		TotalSlots:  req.Slots,
		FreeSlots:   req.Slots,
		Image:       model.DefaultImage,
		Description: req.Description,
		CreatedBy:   caller.UserID,
		CreatedAt:   s.now().UTC(),
	}

	if image != nil {
		name, err := s.images.Save(image)
		if err != nil {
			return nil, err
		}
		event.Image = name
	}

	if err := s.events.Create(ctx, event); err != nil {
		if event.Image != model.DefaultImage {
			if rmErr := s.images.Remove(event.Image); rmErr != nil {
				log.Printf("remove orphan image %s: %v", event.Image, rmErr)
			}
		}
		return nil, fmt.Errorf("create event: %w", err)
	}
	return &event, nil
}

// ListEvents returns one catalog page.
func (s *EventService) ListEvents(ctx context.Context, filter model.EventFilter) ([]model.Event, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	filter.Category = strings.ToLower(strings.TrimSpace(filter.Category))
	if filter.Category == "all" || filter.Category == "todos" {
		filter.Category = ""
	}
	filter.Date = strings.TrimSpace(filter.Date)
	if filter.Date != "" {
		if _, err := time.Parse("2006-01-02", filter.Date); err != nil {
			return nil, invalid("date must be formatted as YYYY-MM-DD")
		}
	}
	return s.events.List(ctx, filter)
}

// GetEvent returns a single event by ID.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if !validID(id) {
		return nil, repository.ErrNotFound
	}
	event, err := s.events.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

// Enroll reserves a slot in eventID for the caller. Results are the
// reservation package's errors.
func (s *EventService) Enroll(ctx context.Context, userID, eventID string) error {
	if userID == "" {
		return invalid("user id is required")
	}
	if !validID(eventID) {
		return reservation.ErrNotFound
	}
	return s.signups.Enroll(ctx, userID, eventID)
}

// Withdraw releases the caller's slot in eventID, if any.
func (s *EventService) Withdraw(ctx context.Context, userID, eventID string) error {
	if userID == "" {
		return invalid("user id is required")
	}
	if !validID(eventID) {
		// Nothing can be enrolled under an id that is not a UUID.
		return nil
	}
	return s.signups.Withdraw(ctx, userID, eventID)
}

// ListUserEvents returns the events the user is enrolled in.
func (s *EventService) ListUserEvents(ctx context.Context, userID string) ([]model.Event, error) {
	events, err := s.events.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user events: %w", err)
	}
	return events, nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
