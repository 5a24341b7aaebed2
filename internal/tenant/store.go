package tenant

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Store persists a developer's tenant selection across sessions. A nil
// selection means no tenant was chosen (system-wide scope).
type Store interface {
	Selection(ctx context.Context, principalID int64) (*int64, error)
	SaveSelection(ctx context.Context, principalID int64, tenantID *int64) error
}

// RedisStore keeps selections in Redis, keyed per principal so the
// preference survives restarts without leaking across identities.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore constructs a RedisStore.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func selectionKey(principalID int64) string {
	return fmt.Sprintf("tenant:selected:%d", principalID)
}

// Selection returns the persisted tenant selection, nil when absent.
func (s *RedisStore) Selection(ctx context.Context, principalID int64) (*int64, error) {
	raw, err := s.client.Get(ctx, selectionKey(principalID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("tenant: read selection: %w", err)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("tenant: corrupt selection %q: %w", raw, err)
	}
	return &id, nil
}

// SaveSelection stores the selection; nil clears it. Last write wins.
func (s *RedisStore) SaveSelection(ctx context.Context, principalID int64, tenantID *int64) error {
	key := selectionKey(principalID)
	if tenantID == nil {
		if err := s.client.Del(ctx, key).Err(); err != nil && !errors.Is(err, redis.Nil) {
			return fmt.Errorf("tenant: clear selection: %w", err)
		}
		return nil
	}
	if err := s.client.Set(ctx, key, strconv.FormatInt(*tenantID, 10), 0).Err(); err != nil {
		return fmt.Errorf("tenant: save selection: %w", err)
	}
	return nil
}
