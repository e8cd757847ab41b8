// internal/jobs/service.go
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	apperrors "cv-pipeline/internal/common/errors"
	"cv-pipeline/internal/common/logger"
	"cv-pipeline/internal/common/metrics"
	"cv-pipeline/internal/common/validation"
	"cv-pipeline/internal/models"
	"cv-pipeline/internal/queue"
	"cv-pipeline/internal/store"
	"cv-pipeline/pkg/registry"

	"github.com/google/uuid"
)

// Service accepts job submissions and serves the polling views.
type Service struct {
	store   store.Store
	broker  queue.Broker
	schemas map[models.JobType]*validation.Schema
	logger  logger.Logger

	now   func() time.Time
	newID func() string
}

// NewService compiles the payload schema of every registered pipeline.
func NewService(reg *registry.PipelineRegistry, st store.Store, broker queue.Broker, log logger.Logger) (*Service, error) {
	schemas := make(map[models.JobType]*validation.Schema, len(reg.Pipelines))
	for _, p := range reg.Pipelines {
		jt := models.JobType(p.JobType)
		if !jt.Valid() {
			return nil, fmt.Errorf("registry declares unknown job type %q", p.JobType)
		}
		schema, err := validation.Compile(p.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("pipeline %s: %w", p.JobType, err)
		}
		schemas[jt] = schema
	}

	return &Service{
		store:   st,
		broker:  broker,
		schemas: schemas,
		logger:  log.WithFields(map[string]interface{}{"component": "jobs"}),
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return uuid.New().String() },
	}, nil
}

// Submit validates the payload, records a queued job and enqueues it.
// A job that cannot be enqueued is removed again so it never sits queued
// with nothing to pick it up.
func (s *Service) Submit(ctx context.Context, jobType models.JobType, payload json.RawMessage) (*models.Job, error) {
	schema, ok := s.schemas[jobType]
	if !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported job type: %s", jobType))
	}
	if len(payload) == 0 {
		return nil, apperrors.NewValidationError("request body is required")
	}
	if result := schema.ValidateBytes(payload); !result.Valid {
		return nil, apperrors.NewValidationError(result.Error()).
			WithMetadata("fields", result.Errors)
	}

	now := s.now()
	job := &models.Job{
		ID:        s.newID(),
		Type:      jobType,
		Status:    models.StatusQueued,
		InputRefs: payload,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, job); err != nil {
		return nil, err
	}

	if err := s.broker.Enqueue(ctx, jobType, job.ID); err != nil {
		if delErr := s.store.Delete(context.WithoutCancel(ctx), job.ID); delErr != nil {
			s.logger.Error("Failed to remove unqueued job", map[string]interface{}{
				"jobId": job.ID,
				"error": delErr.Error(),
			})
		}
		if _, ok := apperrors.As(err); !ok {
			err = apperrors.NewQueueUnavailableError(err)
		}
		return nil, err
	}

	metrics.JobsSubmitted.WithLabelValues(string(jobType)).Inc()
	s.logger.Info("Job submitted", map[string]interface{}{
		"jobId":   job.ID,
		"jobType": string(jobType),
	})
	return job, nil
}

// View is what pollers see. Failed jobs expose no error text.
type View struct {
	ID       string           `json:"id"`
	Status   models.JobStatus `json:"status"`
	Stage    string           `json:"stage,omitempty"`
	Progress *int             `json:"progress,omitempty"`
	Result   json.RawMessage  `json:"result,omitempty"`
}

func NewView(job *models.Job) View {
	v := View{ID: job.ID, Status: job.Status}
	switch job.Status {
	case models.StatusProcessing:
		pct := job.ProgressPct
		v.Stage = job.Stage
		v.Progress = &pct
	case models.StatusCompleted:
		v.Result = job.Result
	}
	return v
}

// AdminView is the operator view of a job, error included.
type AdminView struct {
	ID        string           `json:"id"`
	Type      models.JobType   `json:"type"`
	Status    models.JobStatus `json:"status"`
	Stage     string           `json:"stage,omitempty"`
	Progress  int              `json:"progress"`
	Attempts  int              `json:"attempts"`
	InputRefs json.RawMessage  `json:"inputRefs"`
	Result    json.RawMessage  `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

func NewAdminView(job *models.Job) AdminView {
	return AdminView{
		ID:        job.ID,
		Type:      job.Type,
		Status:    job.Status,
		Stage:     job.Stage,
		Progress:  job.ProgressPct,
		Attempts:  job.Attempts,
		InputRefs: job.InputRefs,
		Result:    job.Result,
		Error:     job.Error,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
}

// load rejects ids that are not UUIDs as missing before they reach a store
// whose id column would refuse them.
func (s *Service) load(ctx context.Context, id string) (*models.Job, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NewNotFoundError("job", id)
	}
	return s.store.Get(ctx, id)
}

func (s *Service) Status(ctx context.Context, id string) (View, error) {
	job, err := s.load(ctx, id)
	if err != nil {
		return View{}, err
	}
	return NewView(job), nil
}

func (s *Service) Inspect(ctx context.Context, id string) (AdminView, error) {
	job, err := s.load(ctx, id)
	if err != nil {
		return AdminView{}, err
	}
	return NewAdminView(job), nil
}

func (s *Service) List(ctx context.Context, filter store.ListFilter) ([]AdminView, error) {
	found, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]AdminView, 0, len(found))
	for _, job := range found {
		out = append(out, NewAdminView(job))
	}
	return out, nil
}

// Evict removes terminal jobs past the retention policy.
func (s *Service) Evict(ctx context.Context, policy store.RetentionPolicy) (int64, error) {
	n, err := s.store.EvictTerminal(ctx, policy, s.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.JobsEvicted.Add(float64(n))
		s.logger.Info("Evicted terminal jobs", map[string]interface{}{"count": n})
	}
	return n, nil
}
