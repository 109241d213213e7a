package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/event-signup/internal/model"
	"github.com/Shivanand-hulikatti/event-signup/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepository handles persistence for user accounts.
type UserRepository struct {
	db *pgxpool.Pool
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user. A taken email yields repository.ErrAlreadyExists.
func (r *UserRepository) Create(ctx context.Context, u model.User) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO users (id, username, email, password_hash, role, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Role, u.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrAlreadyExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetByEmail returns the user registered with email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.get(ctx, `WHERE email = $1`, email)
}

// GetByID returns the user with id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

func (r *UserRepository) get(ctx context.Context, where string, arg any) (*model.User, error) {
	var u model.User
	err := r.db.QueryRow(ctx,
		`SELECT id::text, username, email, password_hash, role, created_at FROM users `+where, arg,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
