package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/event-signup/internal/model"
	"github.com/Shivanand-hulikatti/event-signup/internal/repository"
)

const eventColumns = `id, title, category, event_date, event_time, total_slots, free_slots,
	image, description, COALESCE(created_by, ''), created_at`

const joinedEventColumns = `e.id, e.title, e.category, e.event_date, e.event_time, e.total_slots, e.free_slots,
	e.image, e.description, COALESCE(e.created_by, ''), e.created_at`

// EventRepository handles catalog persistence for events.
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event with every slot free.
func (r *EventRepository) Create(ctx context.Context, e model.Event) error {
	var createdBy any
	if e.CreatedBy != "" {
		createdBy = e.CreatedBy
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO events (id, title, category, event_date, event_time, total_slots, free_slots,
		                     image, description, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Title, e.Category, e.Date, e.Time, e.TotalSlots, e.TotalSlots,
		e.Image, e.Description, createdBy, toMillis(e.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrAlreadyExists
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// GetByID returns a single event or repository.ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get event: %w", err)
	}
	return &e, nil
}

// List returns one page of events ordered by date and time.
func (r *EventRepository) List(ctx context.Context, f model.EventFilter) ([]model.Event, error) {
	var (
		where []string
		args  []any
	)
	if f.Category != "" {
		where = append(where, "category = ?")
		args = append(args, f.Category)
	}
	if f.Date != "" {
		where = append(where, "event_date = ?")
		args = append(args, f.Date)
	}
	if f.OnlyFree {
		where = append(where, "free_slots > 0")
	}

	query := `SELECT ` + eventColumns + ` FROM events`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY event_date ASC, event_time ASC, id ASC LIMIT ? OFFSET ?`
	args = append(args, model.EventsPageSize, f.Offset())

	return r.query(ctx, query, args...)
}

// ListByUser returns the events userID is enrolled in, ordered by date.
func (r *EventRepository) ListByUser(ctx context.Context, userID string) ([]model.Event, error) {
	return r.query(ctx,
		`SELECT `+joinedEventColumns+`
		   FROM events e
		   JOIN user_events ue ON e.id = ue.event_id
		  WHERE ue.user_id = ?
		  ORDER BY e.event_date ASC, e.event_time ASC`,
		userID,
	)
}

func (r *EventRepository) query(ctx context.Context, query string, args ...any) ([]model.Event, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner) (model.Event, error) {
	var (
		e         model.Event
		createdAt int64
	)
	err := s.Scan(&e.ID, &e.Title, &e.Category, &e.Date, &e.Time, &e.TotalSlots, &e.FreeSlots,
		&e.Image, &e.Description, &e.CreatedBy, &createdAt)
	if err != nil {
		return model.Event{}, err
	}
	e.CreatedAt = fromMillis(createdAt)
	return e, nil
}

var _ repository.EventRepository = (*EventRepository)(nil)
