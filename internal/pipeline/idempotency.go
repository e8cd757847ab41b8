package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guard records which side-effecting stages already ran for a job, so a
// retried job does not repeat them.
type Guard interface {
	// Acquire returns true when the caller owns key and should run the effect.
	Acquire(ctx context.Context, key string) (bool, error)
	// Release forgets key after a failed effect.
	Release(ctx context.Context, key string) error
}

// IdempotencyKey is "jobID:stage".
func IdempotencyKey(jobID, stage string) string {
	return jobID + ":" + stage
}

// Once runs fn unless the key for jobID and stage is already held. The key is
// released again when fn fails so the next attempt retries the effect.
// A nil guard always runs fn.
func Once(ctx context.Context, g Guard, jobID, stage string, fn func(ctx context.Context) error) (ran bool, err error) {
	if g == nil {
		return true, fn(ctx)
	}

	key := IdempotencyKey(jobID, stage)
	acquired, err := g.Acquire(ctx, key)
	if err != nil {
		return false, fmt.Errorf("acquire idempotency key %s: %w", key, err)
	}
	if !acquired {
		return false, nil
	}

	if err := fn(ctx); err != nil {
		if relErr := g.Release(context.WithoutCancel(ctx), key); relErr != nil {
			return true, fmt.Errorf("%w (release %s: %v)", err, key, relErr)
		}
		return true, err
	}
	return true, nil
}

// ==========================
// Redis
// ==========================

type RedisGuard struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisGuard(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisGuard{client: client, prefix: prefix, ttl: ttl}
}

func (g *RedisGuard) key(k string) string {
	return g.prefix + ":idem:" + k
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (bool, error) {
	return g.client.SetNX(ctx, g.key(key), time.Now().UTC().Format(time.RFC3339), g.ttl).Result()
}

func (g *RedisGuard) Release(ctx context.Context, key string) error {
	return g.client.Del(ctx, g.key(key)).Err()
}

// ==========================
// Memory
// ==========================

type MemoryGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{held: make(map[string]struct{})}
}

func (g *MemoryGuard) Acquire(ctx context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.held[key]; ok {
		return false, nil
	}
	g.held[key] = struct{}{}
	return true, nil
}

func (g *MemoryGuard) Release(ctx context.Context, key string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.held, key)
	return nil
}
