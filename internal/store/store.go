// internal/store/store.go
package store

import (
	"context"
	"encoding/json"
	"time"

	"cv-pipeline/internal/models"
)

// Store persists job records. Implementations enforce the status state
// machine: updates against a job in the wrong state return an
// INVALID_TRANSITION error and leave the record untouched.
type Store interface {
	Create(ctx context.Context, job *models.Job) error
	Get(ctx context.Context, id string) (*models.Job, error)

	// UpdateStatus moves a queued or processing job to processing and
	// records the delivery attempt.
	UpdateStatus(ctx context.Context, id string, status models.JobStatus, attempt int) error
	UpdateProgress(ctx context.Context, id, stage string, partial json.RawMessage, pct int) error
	UpdateResult(ctx context.Context, id string, result json.RawMessage) error
	UpdateError(ctx context.Context, id string, message string) error

	Delete(ctx context.Context, id string) error
	EvictTerminal(ctx context.Context, policy RetentionPolicy, now time.Time) (int64, error)
	List(ctx context.Context, filter ListFilter) ([]*models.Job, error)
}

// RetentionPolicy bounds how long terminal jobs are kept.
type RetentionPolicy struct {
	CompletedAge  time.Duration
	CompletedKeep int
	FailedAge     time.Duration
}

func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{
		CompletedAge:  time.Hour,
		CompletedKeep: 100,
		FailedAge:     24 * time.Hour,
	}
}

type ListFilter struct {
	Type     models.JobType
	Statuses []models.JobStatus
	Limit    int
}

func (f ListFilter) limit() int {
	if f.Limit <= 0 || f.Limit > 500 {
		return 50
	}
	return f.Limit
}

func statusStrings(s []models.JobStatus) []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[i] = string(v)
	}
	return out
}
