package cache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisInvalidator drops cached collections so dependent views refetch.
// Deletion is idempotent and commutative, so concurrent invalidations of
// the same keys need no coordination.
type RedisInvalidator struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisInvalidator constructs a RedisInvalidator.
func NewRedisInvalidator(client *redis.Client, logger *slog.Logger) *RedisInvalidator {
	return &RedisInvalidator{client: client, logger: logger}
}

// Invalidate removes the given cache keys.
func (i *RedisInvalidator) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := i.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("platform/cache: invalidate: %w", err)
	}
	if i.logger != nil {
		i.logger.Debug("cache keys invalidated", slog.Any("keys", keys))
	}
	return nil
}
