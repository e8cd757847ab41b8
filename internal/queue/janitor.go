// internal/queue/janitor.go
package queue

import (
	"context"
	"time"

	"cv-pipeline/internal/common/logger"
	"cv-pipeline/internal/common/metrics"
	"cv-pipeline/internal/store"
)

// Evictor is the part of the job store the janitor needs.
type Evictor interface {
	EvictTerminal(ctx context.Context, policy store.RetentionPolicy, now time.Time) (int64, error)
}

// Janitor periodically evicts terminal jobs past their retention.
type Janitor struct {
	evictor  Evictor
	policy   store.RetentionPolicy
	interval time.Duration
	logger   logger.Logger
}

func NewJanitor(evictor Evictor, policy store.RetentionPolicy, interval time.Duration, log logger.Logger) *Janitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Janitor{
		evictor:  evictor,
		policy:   policy,
		interval: interval,
		logger:   log.WithFields(map[string]interface{}{"component": "janitor"}),
	}
}

func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			j.Sweep(ctx)
		}
	}
}

// Sweep runs one eviction pass and returns how many jobs were removed.
func (j *Janitor) Sweep(ctx context.Context) int64 {
	n, err := j.evictor.EvictTerminal(ctx, j.policy, time.Now().UTC())
	if err != nil {
		j.logger.Warn("Retention sweep failed", map[string]interface{}{"error": err.Error()})
	}
	if n > 0 {
		metrics.JobsEvicted.Add(float64(n))
		j.logger.Debug("Retention sweep", map[string]interface{}{"evicted": n})
	}
	return n
}

// RetentionPolicyFrom maps queue config onto the store policy.
func RetentionPolicyFrom(completedMs, completedKeep, failedMs int) store.RetentionPolicy {
	p := store.DefaultRetentionPolicy()
	if completedMs > 0 {
		p.CompletedAge = time.Duration(completedMs) * time.Millisecond
	}
	if completedKeep > 0 {
		p.CompletedKeep = completedKeep
	}
	if failedMs > 0 {
		p.FailedAge = time.Duration(failedMs) * time.Millisecond
	}
	return p
}
