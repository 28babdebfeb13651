package cache

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"minimart/internal/domain/views"
	"minimart/pkg/logger"
)

// RedisInvalidator invalidates cached view snapshots stored in redis.
// View snapshots are keyed by view name with an optional variant suffix,
// e.g. "views:orders:active" or "views:sales:2026-08-29".
type RedisInvalidator struct {
	client *redis.Client
}

var _ views.Invalidator = (*RedisInvalidator)(nil)

func NewRedisInvalidator(addr, password string, db int) *RedisInvalidator {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisInvalidator{client: client}
}

func (c *RedisInvalidator) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisInvalidator) Close() error {
	return c.client.Close()
}

// Invalidate deletes all keys under each view name prefix. Cache failures
// never propagate to the caller: a stale snapshot is acceptable, a failed
// order completion is not.
func (c *RedisInvalidator) Invalidate(ctx context.Context, viewNames ...string) {
	for _, name := range viewNames {
		if err := c.deleteByPrefix(ctx, name); err != nil {
			logger.Warn(ctx, "view invalidation failed",
				"view", name,
				"error", err,
			)
		}
	}
}

func (c *RedisInvalidator) deleteByPrefix(ctx context.Context, prefix string) error {
	iter := c.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("delete %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan %s: %w", prefix, err)
	}
	return nil
}

// Snapshot stores a serialized view snapshot with a TTL.
func (c *RedisInvalidator) Snapshot(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, payload, ttl).Err()
}

// GetSnapshot returns a stored snapshot, or (nil, false) on a cache miss.
func (c *RedisInvalidator) GetSnapshot(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}
