// internal/store/memory.go
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	apperrors "cv-pipeline/internal/common/errors"
	"cv-pipeline/internal/models"
)

// MemoryStore keeps jobs in process. Callers always receive copies.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.Job
	now  func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{jobs: make(map[string]*models.Job), now: func() time.Time { return time.Now().UTC() }}
}

func (s *MemoryStore) Create(ctx context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return apperrors.NewStoreError("create", fmt.Errorf("job %s already exists", job.ID))
	}
	s.jobs[job.ID] = cloneJob(job)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("job", id)
	}
	return cloneJob(job), nil
}

// mutate applies fn when the job's current status is one of from.
func (s *MemoryStore) mutate(id string, to models.JobStatus, from []models.JobStatus, fn func(*models.Job)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return apperrors.NewNotFoundError("job", id)
	}
	allowed := false
	for _, st := range from {
		if job.Status == st {
			allowed = true
			break
		}
	}
	if !allowed {
		return apperrors.NewInvalidTransitionError(id, string(job.Status), string(to))
	}
	fn(job)
	job.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, id string, status models.JobStatus, attempt int) error {
	if status != models.StatusProcessing {
		return apperrors.NewValidationError(fmt.Sprintf("status %s is set through UpdateResult or UpdateError", status))
	}
	return s.mutate(id, status, []models.JobStatus{models.StatusQueued, models.StatusProcessing}, func(j *models.Job) {
		j.Status = status
		j.Attempts = attempt
	})
}

func (s *MemoryStore) UpdateProgress(ctx context.Context, id, stage string, partial json.RawMessage, pct int) error {
	if len(partial) == 0 {
		partial = json.RawMessage("null")
	}
	return s.mutate(id, models.StatusProcessing, []models.JobStatus{models.StatusProcessing}, func(j *models.Job) {
		if j.Progress == nil {
			j.Progress = make(map[string]json.RawMessage)
		}
		j.Stage = stage
		j.Progress[stage] = append(json.RawMessage(nil), partial...)
		j.ProgressPct = pct
	})
}

func (s *MemoryStore) UpdateResult(ctx context.Context, id string, result json.RawMessage) error {
	if len(result) == 0 {
		return apperrors.NewValidationError("completed job requires a result")
	}
	return s.mutate(id, models.StatusCompleted, []models.JobStatus{models.StatusProcessing}, func(j *models.Job) {
		j.Status = models.StatusCompleted
		j.Result = append(json.RawMessage(nil), result...)
		j.Error = ""
		j.ProgressPct = 100
	})
}

func (s *MemoryStore) UpdateError(ctx context.Context, id string, message string) error {
	if strings.TrimSpace(message) == "" {
		message = "Job failed"
	}
	return s.mutate(id, models.StatusFailed, []models.JobStatus{models.StatusProcessing}, func(j *models.Job) {
		j.Status = models.StatusFailed
		j.Error = message
		j.Result = nil
	})
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
	return nil
}

func (s *MemoryStore) EvictTerminal(ctx context.Context, policy RetentionPolicy, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		evicted   int64
		completed []*models.Job
	)
	for id, job := range s.jobs {
		switch job.Status {
		case models.StatusFailed:
			if job.UpdatedAt.Before(now.Add(-policy.FailedAge)) {
				delete(s.jobs, id)
				evicted++
			}
		case models.StatusCompleted:
			if job.UpdatedAt.Before(now.Add(-policy.CompletedAge)) {
				delete(s.jobs, id)
				evicted++
				continue
			}
			completed = append(completed, job)
		}
	}

	if policy.CompletedKeep > 0 && len(completed) > policy.CompletedKeep {
		sort.Slice(completed, func(i, j int) bool { return completed[i].UpdatedAt.After(completed[j].UpdatedAt) })
		for _, job := range completed[policy.CompletedKeep:] {
			delete(s.jobs, job.ID)
			evicted++
		}
	}
	return evicted, nil
}

func (s *MemoryStore) List(ctx context.Context, filter ListFilter) ([]*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[models.JobStatus]bool, len(filter.Statuses))
	for _, st := range filter.Statuses {
		wanted[st] = true
	}

	jobs := []*models.Job{}
	for _, job := range s.jobs {
		if filter.Type != "" && job.Type != filter.Type {
			continue
		}
		if len(wanted) > 0 && !wanted[job.Status] {
			continue
		}
		jobs = append(jobs, cloneJob(job))
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.After(jobs[j].CreatedAt) })
	if len(jobs) > filter.limit() {
		jobs = jobs[:filter.limit()]
	}
	return jobs, nil
}

func cloneJob(j *models.Job) *models.Job {
	c := *j
	c.InputRefs = append(json.RawMessage(nil), j.InputRefs...)
	if j.Result != nil {
		c.Result = append(json.RawMessage(nil), j.Result...)
	}
	if j.Progress != nil {
		c.Progress = make(map[string]json.RawMessage, len(j.Progress))
		for k, v := range j.Progress {
			c.Progress[k] = append(json.RawMessage(nil), v...)
		}
	}
	return &c
}
