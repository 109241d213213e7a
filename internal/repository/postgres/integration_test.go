package postgres_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/event-signup/internal/database"
	"github.com/Shivanand-hulikatti/event-signup/internal/model"
	"github.com/Shivanand-hulikatti/event-signup/internal/repository"
	"github.com/Shivanand-hulikatti/event-signup/internal/repository/postgres"
	"github.com/Shivanand-hulikatti/event-signup/internal/reservation"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// openPool connects to TEST_DATABASE_URL or skips the test.
func openPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	pool, err := database.NewPool(ctx, database.Config{URL: url})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func createUser(t *testing.T, users repository.UserRepository) string {
	t.Helper()
	id := uuid.NewString()
	err := users.Create(context.Background(), model.User{
		ID:           id,
		Username:     "user-" + id[:8],
		Email:        id + "@example.com",
		PasswordHash: "x",
		Role:         model.RoleUser,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return id
}

func createEvent(t *testing.T, pool *pgxpool.Pool, events repository.EventRepository, slots int) string {
	t.Helper()
	id := uuid.NewString()
	err := events.Create(context.Background(), model.Event{
		ID: id, Title: "Torneo", Category: "torneo", Date: "2026-06-01", Time: "18:00",
		TotalSlots: slots, Image: model.DefaultImage, CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("create event: %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM events WHERE id = $1`, id)
	})
	return id
}

func TestPostgresEnrollWithdraw(t *testing.T) {
	pool := openPool(t)
	stores := postgres.New(pool)
	engine := reservation.NewEngine(stores.Reservations)
	ctx := context.Background()

	user := createUser(t, stores.Users)
	event := createEvent(t, pool, stores.Events, 2)

	if err := engine.Enroll(ctx, user, event); err != nil {
		t.Fatalf("enroll: %v", err)
	}
	if err := engine.Enroll(ctx, user, event); !errors.Is(err, reservation.ErrAlreadyEnrolled) {
		t.Fatalf("second enroll = %v", err)
	}
	got, err := stores.Events.GetByID(ctx, event)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FreeSlots != 1 {
		t.Fatalf("free slots = %d, want 1", got.FreeSlots)
	}

	mine, err := stores.Events.ListByUser(ctx, user)
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != event {
		t.Fatalf("user events = %+v", mine)
	}

	if err := engine.Withdraw(ctx, user, event); err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if err := engine.Withdraw(ctx, user, event); err != nil {
		t.Fatalf("repeat withdraw: %v", err)
	}
	got, err = stores.Events.GetByID(ctx, event)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FreeSlots != 2 {
		t.Fatalf("free slots = %d, want 2", got.FreeSlots)
	}

	if err := engine.Enroll(ctx, user, uuid.NewString()); !errors.Is(err, reservation.ErrNotFound) {
		t.Fatalf("unknown event = %v", err)
	}
	if err := engine.Enroll(ctx, uuid.NewString(), event); !errors.Is(err, reservation.ErrNotFound) {
		t.Fatalf("unknown user = %v", err)
	}
	got, err = stores.Events.GetByID(ctx, event)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.FreeSlots != 2 {
		t.Fatalf("free slots after unknown user = %d, want 2", got.FreeSlots)
	}
}

func TestPostgresLastSlotRace(t *testing.T) {
	pool := openPool(t)
	stores := postgres.New(pool)
	engine := reservation.NewEngine(stores.Reservations)

	event := createEvent(t, pool, stores.Events, 3)
	const racers = 12
	users := make([]string, racers)
	for i := range users {
		users[i] = createUser(t, stores.Users)
	}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		wins    int
		noRoom  int
		unknown []error
	)
	for _, u := range users {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			err := engine.Enroll(context.Background(), u, event)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, reservation.ErrNoCapacity):
				noRoom++
			default:
				unknown = append(unknown, err)
			}
		}(u)
	}
	wg.Wait()

	if len(unknown) > 0 {
		t.Fatalf("unexpected errors: %v", unknown)
	}
	if wins != 3 || noRoom != racers-3 {
		t.Fatalf("wins = %d, no capacity = %d", wins, noRoom)
	}

	var free, members int
	err := pool.QueryRow(context.Background(),
		`SELECT e.free_slots, (SELECT COUNT(*) FROM user_events WHERE event_id = e.id)
		   FROM events e WHERE e.id = $1`, event).Scan(&free, &members)
	if err != nil {
		t.Fatalf("read counters: %v", err)
	}
	if free != 0 || members != 3 {
		t.Fatalf("free = %d, members = %d", free, members)
	}
}
