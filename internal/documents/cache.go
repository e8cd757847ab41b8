// internal/documents/cache.go
package documents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const textCachePrefix = "cvtext:"

// TextCache holds previously extracted text keyed by document id.
type TextCache interface {
	Get(ctx context.Context, documentID string) (string, bool, error)
	Set(ctx context.Context, documentID, text string) error
}

type RedisTextCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisTextCache(client redis.Cmdable, ttl time.Duration) *RedisTextCache {
	return &RedisTextCache{client: client, ttl: ttl}
}

func (c *RedisTextCache) Get(ctx context.Context, documentID string) (string, bool, error) {
	text, err := c.client.Get(ctx, textCachePrefix+documentID).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("text cache get: %w", err)
	}
	return text, text != "", nil
}

func (c *RedisTextCache) Set(ctx context.Context, documentID, text string) error {
	if err := c.client.Set(ctx, textCachePrefix+documentID, text, c.ttl).Err(); err != nil {
		return fmt.Errorf("text cache set: %w", err)
	}
	return nil
}
