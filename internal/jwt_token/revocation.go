package jwttoken

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"profilecheck/pkg/platform/sentinel"
)

// Redis key prefix for revoked tokens
const revokedTokenKeyPrefix = "profilecheck:trl:jti:"

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl must be positive: %w", sentinel.ErrInvalidState)
	}
	return nil
}

// RevocationList records revoked token ids until their tokens would have expired.
type RevocationList interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// MemoryRevocationList keeps revoked token ids in process memory.
type MemoryRevocationList struct {
	cache *cache.Cache
}

func NewMemoryRevocationList() *MemoryRevocationList {
	return &MemoryRevocationList{cache: cache.New(cache.NoExpiration, 10*time.Minute)}
}

// RevokeToken rejects jti until ttl elapses.
func (m *MemoryRevocationList) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	if err := validateTTL(ttl); err != nil {
		return err
	}
	m.cache.Set(jti, struct{}{}, ttl)
	return nil
}

func (m *MemoryRevocationList) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	_, found := m.cache.Get(jti)
	return found, nil
}

// RedisRevocationList shares revoked token ids between instances.
type RedisRevocationList struct {
	client *redis.Client
}

func NewRedisRevocationList(client *redis.Client) *RedisRevocationList {
	return &RedisRevocationList{client: client}
}

// RevokeToken adds a token to the revocation list with TTL.
func (r *RedisRevocationList) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if err := validateTTL(ttl); err != nil {
		return err
	}
	// Store "1" as a simple marker; the key existence is what matters
	if err := r.client.Set(ctx, revokedTokenKeyPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsTokenRevoked returns false once the revocation has expired.
func (r *RedisRevocationList) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	_, err := r.client.Get(ctx, revokedTokenKeyPrefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check token revocation: %w", err)
	}
	return true, nil
}
