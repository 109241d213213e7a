package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/event-signup/internal/model"
	"github.com/Shivanand-hulikatti/event-signup/internal/repository"
)

// UserRepository handles persistence for user accounts.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository constructs a UserRepository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user. A taken email yields repository.ErrAlreadyExists.
func (r *UserRepository) Create(ctx context.Context, u model.User) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, role, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Role, toMillis(u.CreatedAt),
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
	return r.get(ctx, `WHERE email = ?`, email)
}

// GetByID returns the user with id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	return r.get(ctx, `WHERE id = ?`, id)
}

func (r *UserRepository) get(ctx context.Context, where string, arg any) (*model.User, error) {
	var (
		u         model.User
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, role, created_at FROM users `+where, arg,
	).Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	u.CreatedAt = fromMillis(createdAt)
	return &u, nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
