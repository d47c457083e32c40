package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

// DefaultIdempotencyKeyPrefix namespaces processed event ids in Redis
const DefaultIdempotencyKeyPrefix = "invoicing:idempotency:"

// KeyValue is the subset of the redis client the idempotency store needs
type KeyValue interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisIdempotencyStore shares processed event ids between replicas.
// SETNX with expiry makes the check-and-mark atomic.
type RedisIdempotencyStore struct {
	client    KeyValue
	keyPrefix string
}

// NewRedisIdempotencyStore creates a store over client. The client's
// lifecycle belongs to the caller.
func NewRedisIdempotencyStore(client KeyValue, keyPrefix string) *RedisIdempotencyStore {
	if keyPrefix == "" {
		keyPrefix = DefaultIdempotencyKeyPrefix
	}
	return &RedisIdempotencyStore{client: client, keyPrefix: keyPrefix}
}

// MarkProcessed sets the event's key if absent
func (s *RedisIdempotencyStore) MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	set, err := s.client.SetNX(ctx, s.keyPrefix+eventID, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark event %s processed: %w", eventID, err)
	}
	return set, nil
}

// IsProcessed reports whether the event's key exists
func (s *RedisIdempotencyStore) IsProcessed(ctx context.Context, eventID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.keyPrefix+eventID).Result()
	if err != nil {
		return false, fmt.Errorf("check event %s: %w", eventID, err)
	}
	return n > 0, nil
}

// Close is a no-op; the shared client is closed by its owner
func (s *RedisIdempotencyStore) Close() error {
	return nil
}

var _ shared.IdempotencyStore = (*RedisIdempotencyStore)(nil)
