package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Shivanand-hulikatti/event-signup/internal/model"
	"github.com/Shivanand-hulikatti/event-signup/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const eventColumns = `e.id::text, e.title, e.category, e.event_date, e.event_time, e.total_slots, e.free_slots,
	e.image, e.description, COALESCE(e.created_by::text, ''), e.created_at`

// EventRepository handles catalog persistence for events.
type EventRepository struct {
	db *pgxpool.Pool
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db *pgxpool.Pool) *EventRepository {
	return &EventRepository{db: db}
}

// Create inserts a new event with every slot free.
func (r *EventRepository) Create(ctx context.Context, e model.Event) error {
	var createdBy *string
	if e.CreatedBy != "" {
		createdBy = &e.CreatedBy
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, title, category, event_date, event_time, total_slots, free_slots,
		                     image, description, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6, $7, $8, $9, $10)`,
		e.ID, e.Title, e.Category, e.Date, e.Time, e.TotalSlots,
		e.Image, e.Description, createdBy, e.CreatedAt,
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
	rows, err := r.db.Query(ctx, `SELECT `+eventColumns+` FROM events e WHERE e.id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	e, err := pgx.CollectExactlyOneRow(rows, scanEvent)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Category != "" {
		where = append(where, "e.category = "+arg(f.Category))
	}
	if f.Date != "" {
		where = append(where, "e.event_date = "+arg(f.Date))
	}
	if f.OnlyFree {
		where = append(where, "e.free_slots > 0")
	}

	query := `SELECT ` + eventColumns + ` FROM events e`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY e.event_date ASC, e.event_time ASC, e.id ASC`
	query += ` LIMIT ` + arg(model.EventsPageSize) + ` OFFSET ` + arg(f.Offset())

	return r.query(ctx, query, args...)
}

// ListByUser returns the events userID is enrolled in, ordered by date.
func (r *EventRepository) ListByUser(ctx context.Context, userID string) ([]model.Event, error) {
	return r.query(ctx,
		`SELECT `+eventColumns+`
		   FROM events e
		   JOIN user_events ue ON e.id = ue.event_id
		  WHERE ue.user_id = $1
		  ORDER BY e.event_date ASC, e.event_time ASC`,
		userID,
	)
}

func (r *EventRepository) query(ctx context.Context, query string, args ...any) ([]model.Event, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	events, err := pgx.CollectRows(rows, scanEvent)
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}
	return events, nil
}

func scanEvent(row pgx.CollectableRow) (model.Event, error) {
	var e model.Event
	err := row.Scan(&e.ID, &e.Title, &e.Category, &e.Date, &e.Time, &e.TotalSlots, &e.FreeSlots,
		&e.Image, &e.Description, &e.CreatedBy, &e.CreatedAt)
	return e, err
}

var _ repository.EventRepository = (*EventRepository)(nil)
