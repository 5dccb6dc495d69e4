package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	apperrors "github.com/REVIVAL-MIMI/psychology/pkg/errors"
)

const (
	refreshKeyPrefix   = "refresh:"
	blacklistKeyPrefix = "blacklist:"
)

// TokenRegistry implements repository.TokenRegistry using Redis. It keeps the
// single refresh token currently valid for each account and the set of
// revoked tokens, each entry expiring with the token it covers.
type TokenRegistry struct {
	client *redis.Client
}

// NewTokenRegistry creates a new Redis-backed token registry.
func NewTokenRegistry(client *redis.Client) *TokenRegistry {
	return &TokenRegistry{client: client}
}

// StoreRefresh records the current refresh token for the phone, replacing any
// previous one.
func (r *TokenRegistry) StoreRefresh(ctx context.Context, phone, token string, ttl time.Duration) error {
	if err := r.client.Set(ctx, refreshKeyPrefix+phone, token, ttl).Err(); err != nil {
		return fmt.Errorf("redis store refresh token: %w", err)
	}
	return nil
}

// CurrentRefresh returns the refresh token currently on record for the phone.
func (r *TokenRegistry) CurrentRefresh(ctx context.Context, phone string) (string, error) {
	token, err := r.client.Get(ctx, refreshKeyPrefix+phone).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperrors.ErrNotFound
		}
		return "", fmt.Errorf("redis get refresh token: %w", err)
	}
	return token, nil
}

// DeleteRefresh removes the refresh token record for the phone.
func (r *TokenRegistry) DeleteRefresh(ctx context.Context, phone string) error {
	if err := r.client.Del(ctx, refreshKeyPrefix+phone).Err(); err != nil {
		return fmt.Errorf("redis delete refresh token: %w", err)
	}
	return nil
}

// Blacklist marks a token as revoked for the given duration. TTLs at or below
// zero are clamped so an almost expired token still gets a tombstone.
func (r *TokenRegistry) Blacklist(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if err := r.client.Set(ctx, blacklistKeyPrefix+token, "1", ttl).Err(); err != nil {
		return fmt.Errorf("redis blacklist token: %w", err)
	}
	return nil
}

// IsBlacklisted reports whether the token has been revoked.
func (r *TokenRegistry) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Exists(ctx, blacklistKeyPrefix+token).Result()
	if err != nil {
		return false, fmt.Errorf("redis check token blacklist: %w", err)
	}
	return n > 0, nil
}
