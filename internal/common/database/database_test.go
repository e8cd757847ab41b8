package database

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"cv-pipeline/internal/common/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresClient_Migrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS jobs").WillReturnResult(sqlmock.NewResult(0, 0))

	c := &PostgresClient{DB: db}
	require.NoError(t, c.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisClient_Ping(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	defer c.Close()
	assert.NoError(t, c.Ping(context.Background()))

	mr.Close()
	assert.Error(t, c.Ping(context.Background()))
}

func TestRedisOptions(t *testing.T) {
	opts, err := redisOptions(config.RedisConfig{Address: "redis://:secret@cache:6380/2"})
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, defaultRedisPoolSize, opts.PoolSize)

	opts, err = redisOptions(config.RedisConfig{Address: "localhost:6379", DB: 1, PoolSize: 8})
	require.NoError(t, err)
	assert.Equal(t, 1, opts.DB)
	assert.Equal(t, 8, opts.PoolSize)
	assert.Equal(t, 2, opts.MinIdleConns)

	_, err = redisOptions(config.RedisConfig{Address: "redis://cache:6379/notadb"})
	assert.Error(t, err)
}

func TestNewRedis_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedis(config.RedisConfig{Address: addr})
	assert.Error(t, err)
}

func TestElasticsearchClient_Ping(t *testing.T) {
	tests := []struct {
		name    string
		status  string
		wantErr bool
	}{
		{"green", "green", false},
		{"yellow", "yellow", false},
		{"red", "red", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/_cluster/health", r.URL.Path)
				w.Header().Set("X-Elastic-Product", "Elasticsearch")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusOK)
				w.Write([]byte(`{"cluster_name":"cv","status":"` + tt.status + `"}`))
			}))
			defer srv.Close()

			c, err := NewElasticsearch(config.ElasticsearchConfig{URL: srv.URL})
			require.NoError(t, err)
			err = c.Ping(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
