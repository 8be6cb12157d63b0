package store

import (
	"context"
	"fmt"
	"time"

	platformredis "rifa/internal/platform/redis"
)

const revocationPrefix = "trl:"

// RedisRevocations keeps revoked token ids in Redis with native expiry, so
// no cleanup pass is needed.
type RedisRevocations struct {
	client *platformredis.Client
}

func NewRedisRevocations(client *platformredis.Client) *RedisRevocations {
	return &RedisRevocations{client: client}
}

func (s *RedisRevocations) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if err := s.client.Set(ctx, revocationPrefix+jti, "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

func (s *RedisRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.client.Exists(ctx, revocationPrefix+jti).Result()
	if err != nil {
		return false, fmt.Errorf("check revocation: %w", err)
	}
	return n > 0, nil
}
