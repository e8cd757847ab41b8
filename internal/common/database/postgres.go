// internal/common/database/postgres.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cv-pipeline/internal/common/config"

	_ "github.com/lib/pq"
)

// jobsSchema is applied at startup; statements are idempotent.
const jobsSchema = `
CREATE TABLE IF NOT EXISTS jobs (
	id            UUID PRIMARY KEY,
	type          TEXT        NOT NULL,
	status        TEXT        NOT NULL,
	input_refs    JSONB       NOT NULL,
	result        JSONB,
	error         TEXT,
	attempts      INTEGER     NOT NULL DEFAULT 0,
	stage         TEXT        NOT NULL DEFAULT '',
	progress      JSONB       NOT NULL DEFAULT '{}'::jsonb,
	progress_pct  INTEGER     NOT NULL DEFAULT 0,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS jobs_status_updated_idx ON jobs (status, updated_at);
`

// PostgresClient holds the job store connection pool.
type PostgresClient struct {
	DB *sql.DB
}

func NewPostgres(cfg config.PostgresConfig) (*PostgresClient, error) {
	db, err := sql.Open("postgres", cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdle)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return &PostgresClient{DB: db}, nil
}

func (c *PostgresClient) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Migrate creates the jobs table and its index.
func (c *PostgresClient) Migrate(ctx context.Context) error {
	if _, err := c.DB.ExecContext(ctx, jobsSchema); err != nil {
		return fmt.Errorf("migrate jobs table: %w", err)
	}
	return nil
}

func (c *PostgresClient) Close() error {
	if c.DB != nil {
		return c.DB.Close()
	}
	return nil
}
