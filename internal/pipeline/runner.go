package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	apperrors "cv-pipeline/internal/common/errors"
	"cv-pipeline/internal/common/logger"
	"cv-pipeline/internal/common/metrics"
	"cv-pipeline/internal/common/observability"
	"cv-pipeline/internal/models"
	"cv-pipeline/internal/queue"
	"cv-pipeline/internal/store"

	"go.opentelemetry.io/otel/attribute"
)

// Runner executes one job type's pipeline for each delivery. It is the only
// writer of a job record between claim and a terminal status.
type Runner struct {
	pipeline Pipeline
	store    store.Store
	retry    queue.RetryPolicy
	events   queue.Publisher
	obs      *observability.Observability
	errors   *apperrors.ErrorHandler
	logger   logger.Logger
	now      func() time.Time
}

type RunnerOptions struct {
	Retry  queue.RetryPolicy
	Events queue.Publisher              // nil means no events
	Obs    *observability.Observability // nil means the global no-op tracer
}

func NewRunner(p Pipeline, st store.Store, opts RunnerOptions, log logger.Logger) *Runner {
	if opts.Events == nil {
		opts.Events = queue.NopPublisher{}
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = queue.DefaultRetryPolicy()
	}
	scoped := log.WithFields(map[string]interface{}{"component": "runner", "jobType": string(p.JobType())})
	return &Runner{
		pipeline: p,
		store:    st,
		retry:    opts.Retry,
		events:   opts.Events,
		obs:      opts.Obs,
		errors:   apperrors.NewErrorHandler(scoped),
		logger:   scoped,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Handle is a queue.Handler.
func (r *Runner) Handle(ctx context.Context, d queue.Delivery) queue.Outcome {
	log := r.logger.WithFields(map[string]interface{}{"jobId": d.JobID, "attempt": d.Attempt})
	start := time.Now()

	if err := r.store.UpdateStatus(ctx, d.JobID, models.StatusProcessing, d.Attempt); err != nil {
		switch {
		case shuttingDown(ctx):
			return r.release(d, "", err)
		case apperrors.HasCode(err, apperrors.ErrCodeNotFound), apperrors.HasCode(err, apperrors.ErrCodeInvalidTransition):
			// evicted, deleted or already terminal: nothing left to do
			log.Warn("Dropping delivery", map[string]interface{}{"reason": err.Error()})
			return queue.Outcome{Decision: queue.Ack, Err: err}
		case r.retry.Exhausted(d.Attempt):
			log.Error("Job store unavailable on final attempt", map[string]interface{}{"error": err.Error()})
			return queue.Outcome{Decision: queue.Fail, Err: err}
		default:
			log.Warn("Job store unavailable, delivery rescheduled", map[string]interface{}{"error": err.Error()})
			return queue.Outcome{Decision: queue.Retry, Delay: r.retry.Backoff(d.Attempt), Err: err}
		}
	}

	// redelivered by the reaper after the last allowed attempt crashed
	if r.retry.Exhausted(d.Attempt) {
		return r.fail(ctx, d, "", apperrors.NewAttemptsExhaustedError(d.Attempt, r.retry.MaxAttempts), start)
	}

	job, err := r.store.Get(ctx, d.JobID)
	if err != nil {
		return r.failure(ctx, d, "", err, start)
	}

	exec, err := r.pipeline.Plan(job)
	if err != nil {
		return r.failure(ctx, d, "", err, start)
	}

	ctx, span := r.obs.StartSpan(ctx, "job."+string(d.JobType),
		attribute.String("job.id", d.JobID),
		attribute.Int("job.attempt", d.Attempt),
	)
	outcome := r.execute(ctx, d, exec, start)
	observability.EndSpan(span, outcome.Err)
	return outcome
}

func (r *Runner) execute(ctx context.Context, d queue.Delivery, exec *Execution, start time.Time) queue.Outcome {
	total := len(exec.Steps)
	for i, step := range exec.Steps {
		partial, err := r.runStage(ctx, d, step)
		if err != nil {
			return r.failure(ctx, d, step.Stage, err, start)
		}

		raw, err := json.Marshal(partial)
		if err != nil {
			return r.failure(ctx, d, step.Stage, apperrors.NewUnknownError(fmt.Errorf("encode %s progress: %w", step.Stage, err)), start)
		}

		pct := (i + 1) * 100 / (total + 1)
		if err := r.store.UpdateProgress(ctx, d.JobID, step.Stage, raw, pct); err != nil {
			if apperrors.HasCode(err, apperrors.ErrCodeInvalidTransition) {
				return queue.Outcome{Decision: queue.Ack, Err: err}
			}
			return r.failure(ctx, d, step.Stage, err, start)
		}

		r.events.Publish(ctx, queue.Event{
			Type:        queue.EventProgress,
			JobID:       d.JobID,
			JobType:     d.JobType,
			Attempt:     d.Attempt,
			Stage:       step.Stage,
			ProgressPct: pct,
			Timestamp:   r.now(),
		})
	}

	raw, err := json.Marshal(exec.Result())
	if err != nil {
		return r.failure(ctx, d, "", apperrors.NewUnknownError(fmt.Errorf("encode result: %w", err)), start)
	}
	if err := r.store.UpdateResult(ctx, d.JobID, raw); err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeInvalidTransition) {
			return queue.Outcome{Decision: queue.Ack, Err: err}
		}
		return r.failure(ctx, d, "", err, start)
	}

	elapsed := time.Since(start)
	jobType := string(d.JobType)
	metrics.JobsCompleted.WithLabelValues(jobType).Inc()
	metrics.JobDuration.WithLabelValues(jobType, "completed").Observe(elapsed.Seconds())
	r.obs.RecordJobProcessed(ctx, jobType, "completed")
	r.obs.RecordJobDuration(ctx, jobType, elapsed, "completed")

	r.logger.Info("Job completed", map[string]interface{}{
		"jobId":      d.JobID,
		"attempt":    d.Attempt,
		"durationMs": elapsed.Milliseconds(),
	})
	r.events.Publish(ctx, queue.Event{
		Type:      queue.EventCompleted,
		JobID:     d.JobID,
		JobType:   d.JobType,
		Attempt:   d.Attempt,
		Timestamp: r.now(),
	})
	return queue.Outcome{Decision: queue.Ack}
}

func (r *Runner) runStage(ctx context.Context, d queue.Delivery, step Step) (partial interface{}, err error) {
	stageCtx, span := r.obs.StartSpan(ctx, "stage."+step.Stage,
		attribute.String("job.id", d.JobID),
		attribute.String("job.type", string(d.JobType)),
		attribute.String("stage", step.Stage),
	)
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			err = apperrors.NewUnknownError(fmt.Errorf("stage %s panicked: %v", step.Stage, rec))
		}
		metrics.StageDuration.WithLabelValues(string(d.JobType), step.Stage).Observe(time.Since(start).Seconds())
		observability.EndSpan(span, err)
	}()

	return step.Do(stageCtx)
}

// failure retries retryable errors while attempts remain and fails the job
// otherwise.
func (r *Runner) failure(ctx context.Context, d queue.Delivery, stage string, err error, start time.Time) queue.Outcome {
	if shuttingDown(ctx) {
		return r.release(d, stage, err)
	}

	stdErr := apperrors.Classify(err)
	if stage != "" {
		stdErr = stdErr.WithMetadata("stage", stage)
	}
	if !r.retry.ShouldRetry(stdErr, d.Attempt) {
		return r.fail(ctx, d, stage, stdErr, start)
	}

	delay := r.retry.Backoff(d.Attempt)
	metrics.JobRetries.WithLabelValues(string(d.JobType), string(stdErr.Code)).Inc()
	r.logger.Warn("Job attempt failed, retrying", map[string]interface{}{
		"jobId":     d.JobID,
		"attempt":   d.Attempt,
		"stage":     stage,
		"errorCode": string(stdErr.Code),
		"error":     stdErr.Error(),
		"retryInMs": delay.Milliseconds(),
	})
	r.events.Publish(ctx, queue.Event{
		Type:      queue.EventRetrying,
		JobID:     d.JobID,
		JobType:   d.JobType,
		Attempt:   d.Attempt,
		Stage:     stage,
		Error:     apperrors.PublicMessage(stdErr),
		ErrorCode: string(stdErr.Code),
		RetryInMs: delay.Milliseconds(),
		Timestamp: r.now(),
	})
	return queue.Outcome{Decision: queue.Retry, Delay: delay, Err: stdErr}
}

// shuttingDown is true once the consumer context is cancelled. A job timeout
// is a deadline, not a cancellation, and still counts as a failed attempt.
func shuttingDown(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.Canceled)
}

// release hands an interrupted delivery back without spending an attempt.
// The job stays processing and the next claim carries the same attempt number.
func (r *Runner) release(d queue.Delivery, stage string, err error) queue.Outcome {
	r.logger.Warn("Job interrupted by shutdown, releasing delivery", map[string]interface{}{
		"jobId":   d.JobID,
		"attempt": d.Attempt,
		"stage":   stage,
	})
	return queue.Outcome{Decision: queue.Release, Err: err}
}

// fail moves the job to failed with a public message. No later stage runs.
func (r *Runner) fail(ctx context.Context, d queue.Delivery, stage string, err error, start time.Time) queue.Outcome {
	stdErr := r.errors.HandleJobError(d.JobID, string(d.JobType), d.Attempt, err)
	message := apperrors.PublicMessage(stdErr)

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if werr := r.store.UpdateError(writeCtx, d.JobID, message); werr != nil {
		r.logger.Error("Failed to persist job failure", map[string]interface{}{
			"jobId": d.JobID,
			"error": werr.Error(),
		})
	}

	elapsed := time.Since(start)
	jobType := string(d.JobType)
	metrics.JobsFailed.WithLabelValues(jobType, string(stdErr.Code)).Inc()
	metrics.JobDuration.WithLabelValues(jobType, "failed").Observe(elapsed.Seconds())
	r.obs.RecordJobProcessed(ctx, jobType, "failed")
	r.obs.RecordJobDuration(ctx, jobType, elapsed, "failed")

	r.events.Publish(ctx, queue.Event{
		Type:      queue.EventFailed,
		JobID:     d.JobID,
		JobType:   d.JobType,
		Attempt:   d.Attempt,
		Stage:     stage,
		Error:     message,
		ErrorCode: string(stdErr.Code),
		Timestamp: r.now(),
	})
	return queue.Outcome{Decision: queue.Fail, Err: stdErr}
}
