package auth

import (
	"context"
	"time"
)

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID    string
	Username  string
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

type identityContextKey struct{}

// WithIdentity stores the caller's identity in ctx.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext returns the identity stored in ctx, if any.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok && id.UserID != ""
}

// IdentityFromClaims converts verified token claims into an Identity.
func IdentityFromClaims(c *Claims) Identity {
	id := Identity{
		UserID:   c.Subject,
		Username: c.Username,
		Role:     c.Role,
		TokenID:  c.ID,
	}
	if c.ExpiresAt != nil {
		id.ExpiresAt = c.ExpiresAt.Time
	}
	return id
}
