package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-signup/internal/auth"
	"github.com/Shivanand-hulikatti/event-signup/internal/model"
	"github.com/Shivanand-hulikatti/event-signup/internal/repository"
	"github.com/google/uuid"
)

// Sentinel errors of the account flows.
var (
	ErrEmailTaken     = errors.New("email already registered")
	ErrUserNotFound   = errors.New("user not found")
	ErrBadCredentials = errors.New("incorrect password")
)

// AuthService registers accounts and issues or revokes session tokens.
type AuthService struct {
	users    repository.UserRepository
	tokens   *auth.Tokens
	denylist auth.Denylist
	isAdmin  func(email string) bool
	now      func() time.Time
}

// NewAuthService constructs an AuthService. isAdmin decides which emails
// receive the admin role at registration; it may be nil.
func NewAuthService(users repository.UserRepository, tokens *auth.Tokens, denylist auth.Denylist, isAdmin func(string) bool) *AuthService {
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}
	return &AuthService{users: users, tokens: tokens, denylist: denylist, isAdmin: isAdmin, now: time.Now}
}

// Register creates a USER account, or an ADMIN one for configured emails.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (*model.User, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if username == "" || email == "" || req.Password == "" {
		return nil, invalid("username, email and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, invalid("email is not valid")
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		return nil, invalid(err.Error())
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role := model.RoleUser
	if s.isAdmin(email) {
		role = model.RoleAdmin
	}
	user := model.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

// Login checks the credentials and returns a signed session token.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (*model.LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, invalid("email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, ErrBadCredentials
	}

	token, err := s.tokens.Issue(user.ID, user.Username, user.Role)
	if err != nil {
		return nil, err
	}
	return &model.LoginResponse{
		Message:  "login successful",
		Token:    token,
		Role:     user.Role,
		Username: user.Username,
	}, nil
}

// Logout revokes the caller's token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, id auth.Identity) error {
	until := id.ExpiresAt
	if until.IsZero() {
		until = s.now().Add(24 * time.Hour)
	}
	return s.denylist.Revoke(ctx, id.TokenID, until)
}

// Authenticate verifies a bearer token and rejects revoked ones.
func (s *AuthService) Authenticate(ctx context.Context, token string) (auth.Identity, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return auth.Identity{}, err
	}
	revoked, err := s.denylist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return auth.Identity{}, err
	}
	if revoked {
		return auth.Identity{}, auth.ErrRevokedToken
	}
	return auth.IdentityFromClaims(claims), nil
}

// Me describes the caller.
func (s *AuthService) Me(id auth.Identity) model.MeResponse {
	return model.MeResponse{Authenticated: true, Username: id.Username, Role: id.Role}
}
