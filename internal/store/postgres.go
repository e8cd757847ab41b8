// internal/store/postgres.go
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "cv-pipeline/internal/common/errors"
	"cv-pipeline/internal/common/logger"
	"cv-pipeline/internal/models"

	"github.com/lib/pq"
)

const jobColumns = `id, type, status, input_refs, result, error, attempts, stage, progress, progress_pct, created_at, updated_at`

type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: log.WithFields(map[string]interface{}{"component": "job-store"})}
}

func (s *PostgresStore) Create(ctx context.Context, job *models.Job) error {
	progress, err := json.Marshal(job.Progress)
	if err != nil {
		return apperrors.NewStoreError("create", err)
	}
	if job.Progress == nil {
		progress = []byte("{}")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO jobs (`+jobColumns+`) VALUES ($1, $2, $3, $4, NULL, NULL, $5, $6, $7, $8, $9, $10)`,
		job.ID, string(job.Type), string(job.Status), []byte(job.InputRefs),
		job.Attempts, job.Stage, progress, job.ProgressPct, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewStoreError("create", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("job", id)
	}
	if err != nil {
		return nil, apperrors.NewStoreError("get", err)
	}
	return job, nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status models.JobStatus, attempt int) error {
	if status != models.StatusProcessing {
		return apperrors.NewValidationError(fmt.Sprintf("status %s is set through UpdateResult or UpdateError", status))
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = $2, attempts = $3, updated_at = $4 WHERE id = $1 AND status = ANY($5)`,
		id, string(status), attempt, time.Now().UTC(),
		pq.Array([]string{string(models.StatusQueued), string(models.StatusProcessing)}),
	)
	return s.checkTransition(ctx, res, err, id, "update_status", status)
}

func (s *PostgresStore) UpdateProgress(ctx context.Context, id, stage string, partial json.RawMessage, pct int) error {
	if len(partial) == 0 {
		partial = json.RawMessage("null")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET stage = $2, progress = progress || jsonb_build_object($2::text, $3::jsonb), progress_pct = $4, updated_at = $5
		 WHERE id = $1 AND status = $6`,
		id, stage, []byte(partial), pct, time.Now().UTC(), string(models.StatusProcessing),
	)
	return s.checkTransition(ctx, res, err, id, "update_progress", models.StatusProcessing)
}

func (s *PostgresStore) UpdateResult(ctx context.Context, id string, result json.RawMessage) error {
	if len(result) == 0 {
		return apperrors.NewValidationError("completed job requires a result")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = $2, result = $3, error = NULL, progress_pct = 100, updated_at = $4 WHERE id = $1 AND status = $5`,
		id, string(models.StatusCompleted), []byte(result), time.Now().UTC(), string(models.StatusProcessing),
	)
	return s.checkTransition(ctx, res, err, id, "update_result", models.StatusCompleted)
}

func (s *PostgresStore) UpdateError(ctx context.Context, id string, message string) error {
	if strings.TrimSpace(message) == "" {
		message = "Job failed"
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status = $2, error = $3, result = NULL, updated_at = $4 WHERE id = $1 AND status = $5`,
		id, string(models.StatusFailed), message, time.Now().UTC(), string(models.StatusProcessing),
	)
	return s.checkTransition(ctx, res, err, id, "update_error", models.StatusFailed)
}

// checkTransition turns a zero-row update into NOT_FOUND or INVALID_TRANSITION.
func (s *PostgresStore) checkTransition(ctx context.Context, res sql.Result, err error, id, op string, to models.JobStatus) error {
	if err != nil {
		return apperrors.NewStoreError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewStoreError(op, err)
	}
	if n > 0 {
		return nil
	}

	var current string
	err = s.db.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NewNotFoundError("job", id)
	}
	if err != nil {
		return apperrors.NewStoreError(op, err)
	}
	return apperrors.NewInvalidTransitionError(id, current, string(to))
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, id); err != nil {
		return apperrors.NewStoreError("delete", err)
	}
	return nil
}

type evictStep struct {
	name  string
	query string
	args  []interface{}
}

func (s *PostgresStore) EvictTerminal(ctx context.Context, policy RetentionPolicy, now time.Time) (int64, error) {
	var total int64

	steps := []evictStep{
		{
			name:  "failed_age",
			query: `DELETE FROM jobs WHERE status = $1 AND updated_at < $2`,
			args:  []interface{}{string(models.StatusFailed), now.Add(-policy.FailedAge)},
		},
		{
			name:  "completed_age",
			query: `DELETE FROM jobs WHERE status = $1 AND updated_at < $2`,
			args:  []interface{}{string(models.StatusCompleted), now.Add(-policy.CompletedAge)},
		},
	}
	if policy.CompletedKeep > 0 {
		steps = append(steps, evictStep{
			name: "completed_count",
			query: `DELETE FROM jobs WHERE status = $1 AND id NOT IN (
				SELECT id FROM jobs WHERE status = $1 ORDER BY updated_at DESC LIMIT $2)`,
			args: []interface{}{string(models.StatusCompleted), policy.CompletedKeep},
		})
	}

	for _, step := range steps {
		res, err := s.db.ExecContext(ctx, step.query, step.args...)
		if err != nil {
			return total, apperrors.NewStoreError("evict_"+step.name, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}

	if total > 0 {
		s.logger.Info("Evicted terminal jobs", map[string]interface{}{"count": total})
	}
	return total, nil
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]*models.Job, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		args = append(args, pq.Array(statusStrings(filter.Statuses)))
		where = append(where, fmt.Sprintf("status = ANY($%d)", len(args)))
	}

	query := `SELECT ` + jobColumns + ` FROM jobs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, filter.limit())
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewStoreError("list", err)
	}
	defer rows.Close()

	jobs := []*models.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, apperrors.NewStoreError("list", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewStoreError("list", err)
	}
	return jobs, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row scanner) (*models.Job, error) {
	var (
		job       models.Job
		jobType   string
		status    string
		inputRefs []byte
		result    []byte
		errMsg    sql.NullString
		progress  []byte
	)
	err := row.Scan(&job.ID, &jobType, &status, &inputRefs, &result, &errMsg,
		&job.Attempts, &job.Stage, &progress, &job.ProgressPct, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}

	job.Type = models.JobType(jobType)
	job.Status = models.JobStatus(status)
	job.InputRefs = json.RawMessage(inputRefs)
	if len(result) > 0 {
		job.Result = json.RawMessage(result)
	}
	job.Error = errMsg.String
	if len(progress) > 0 {
		if err := json.Unmarshal(progress, &job.Progress); err != nil {
			return nil, fmt.Errorf("decode progress: %w", err)
		}
	}
	return &job, nil
}
