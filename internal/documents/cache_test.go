// internal/documents/cache_test.go
package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisTextCache_MissThenHit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewRedisTextCache(db, time.Hour)
	ctx := context.Background()

	mock.ExpectGet("cvtext:doc-1").RedisNil()
	_, ok, err := cache.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectSet("cvtext:doc-1", "John Smith", time.Hour).SetVal("OK")
	require.NoError(t, cache.Set(ctx, "doc-1", "John Smith"))

	mock.ExpectGet("cvtext:doc-1").SetVal("John Smith")
	text, ok, err := cache.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "John Smith", text)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisTextCache_Errors(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewRedisTextCache(db, time.Minute)

	mock.ExpectGet("cvtext:doc-1").SetErr(errors.New("READONLY"))
	_, _, err := cache.Get(context.Background(), "doc-1")
	assert.Error(t, err)

	mock.ExpectSet("cvtext:doc-1", "x", time.Minute).SetErr(errors.New("OOM"))
	assert.Error(t, cache.Set(context.Background(), "doc-1", "x"))
}

func TestRedisTextCache_TTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewRedisTextCache(client, 30*time.Minute)

	require.NoError(t, cache.Set(context.Background(), "doc-9", "text"))
	assert.Equal(t, 30*time.Minute, mr.TTL("cvtext:doc-9"))

	mr.FastForward(31 * time.Minute)
	_, ok, err := cache.Get(context.Background(), "doc-9")
	require.NoError(t, err)
	assert.False(t, ok)
}
