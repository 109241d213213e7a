package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist remembers logged-out token ids until they expire.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

const denylistPrefix = "auth:revoked:"

// RedisDenylist stores revoked token ids as keys that expire with the token.
type RedisDenylist struct {
	rdb *redis.Client
	now func() time.Time
}

// NewRedisDenylist constructs a RedisDenylist.
func NewRedisDenylist(rdb *redis.Client) *RedisDenylist {
	return &RedisDenylist{rdb: rdb, now: time.Now}
}

// Revoke implements Denylist.
func (d *RedisDenylist) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	if err := d.rdb.Set(ctx, denylistPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked implements Denylist.
func (d *RedisDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := d.rdb.Get(ctx, denylistPrefix+tokenID).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, fmt.Errorf("check revoked token: %w", err)
	}
}

// MemoryDenylist is the in-process fallback used when Redis is not
// configured. Revocations do not survive restarts or span replicas.
type MemoryDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	now     func() time.Time
}

// NewMemoryDenylist constructs a MemoryDenylist.
func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{revoked: make(map[string]time.Time), now: time.Now}
}

// Revoke implements Denylist.
func (d *MemoryDenylist) Revoke(_ context.Context, tokenID string, until time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for id, exp := range d.revoked {
		if !exp.After(now) {
			delete(d.revoked, id)
		}
	}
	if until.After(now) {
		d.revoked[tokenID] = until
	}
	return nil
}

// IsRevoked implements Denylist.
func (d *MemoryDenylist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	exp, ok := d.revoked[tokenID]
	return ok && exp.After(d.now()), nil
}
