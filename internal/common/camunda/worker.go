// internal/common/camunda/worker.go
package camunda

import (
	"context"
	"fmt"
	"time"

	apperrors "cv-pipeline/internal/common/errors"
	"cv-pipeline/internal/common/logger"
	"cv-pipeline/internal/models"
	"cv-pipeline/internal/queue"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

// TaskType is the BPMN service task type a job type's process runs.
func TaskType(jobType models.JobType) string {
	return "cv-pipeline." + string(jobType)
}

type BrokerConfig struct {
	ProcessIDs   map[string]string // job type -> BPMN process id
	MaxAttempts  int               // must match the service task retries
	JobTimeout   time.Duration
	PollInterval time.Duration
}

// ZeebeBroker runs jobs as process instances. Zeebe owns delivery, leases
// (job timeout) and retry scheduling.
type ZeebeBroker struct {
	client *Client
	cfg    BrokerConfig
	logger logger.Logger
}

func NewZeebeBroker(client *Client, cfg BrokerConfig, log logger.Logger) *ZeebeBroker {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 5 * time.Minute
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 100 * time.Millisecond
	}
	return &ZeebeBroker{
		client: client,
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"component": "zeebe-broker"}),
	}
}

func (b *ZeebeBroker) Enqueue(ctx context.Context, jobType models.JobType, jobID string) error {
	processID, ok := b.cfg.ProcessIDs[string(jobType)]
	if !ok || processID == "" {
		return apperrors.NewValidationError(fmt.Sprintf("no BPMN process configured for job type %s", jobType))
	}

	_, err := b.client.ExecuteWithRetry(ctx, func(ctx context.Context) (interface{}, error) {
		cmd, err := b.client.GetClient().NewCreateInstanceCommand().
			BPMNProcessId(processID).
			LatestVersion().
			VariablesFromMap(map[string]interface{}{"jobId": jobID, "jobType": string(jobType)})
		if err != nil {
			return nil, err
		}
		return cmd.Send(ctx)
	}, "create_instance")
	return err
}

// Depth is not exposed by the gateway; the operate API would be needed.
func (b *ZeebeBroker) Depth(ctx context.Context, jobType models.JobType) (int64, error) {
	return 0, queue.ErrDepthUnsupported
}

func (b *ZeebeBroker) Consume(ctx context.Context, jobType models.JobType, concurrency int, h queue.Handler) error {
	if concurrency <= 0 {
		concurrency = 1
	}
	taskType := TaskType(jobType)

	jobWorker := b.client.GetClient().NewJobWorker().
		JobType(taskType).
		Handler(func(jc worker.JobClient, job entities.Job) {
			b.handle(ctx, jc, job, jobType, h)
		}).
		MaxJobsActive(concurrency).
		Concurrency(concurrency).
		Timeout(b.cfg.JobTimeout).
		PollInterval(b.cfg.PollInterval).
		Name("cv-pipeline-" + string(jobType)).
		Open()

	b.logger.Info("Zeebe worker started", map[string]interface{}{"taskType": taskType, "maxJobsActive": concurrency})

	<-ctx.Done()
	jobWorker.Close()
	jobWorker.AwaitClose()
	b.logger.Info("Zeebe worker stopped", map[string]interface{}{"taskType": taskType})
	return ctx.Err()
}

func (b *ZeebeBroker) handle(ctx context.Context, jc worker.JobClient, job entities.Job, jobType models.JobType, h queue.Handler) {
	log := b.logger.WithFields(map[string]interface{}{"jobKey": job.Key, "jobType": jobType})

	d, err := deliveryFor(job, jobType, b.cfg.MaxAttempts)
	if err != nil {
		log.Error("Unreadable job variables", map[string]interface{}{"error": err.Error()})
		b.throw(ctx, jc, job, apperrors.NewValidationError(err.Error()), log)
		return
	}

	jobCtx, cancel := context.WithTimeout(ctx, b.cfg.JobTimeout)
	outcome := h(jobCtx, d)
	cancel()

	sendCtx, sendCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer sendCancel()

	switch outcome.Decision {
	case queue.Ack:
		if _, err := jc.NewCompleteJobCommand().JobKey(job.Key).Send(sendCtx); err != nil {
			log.Error("Failed to complete job", map[string]interface{}{"error": err.Error()})
		}
	case queue.Retry, queue.Release:
		retries, backoff := retryPlan(outcome, job.Retries)
		msg := "retrying"
		if outcome.Decision == queue.Release {
			msg = "released on worker shutdown"
		} else if outcome.Err != nil {
			msg = outcome.Err.Error()
		}
		_, err := jc.NewFailJobCommand().
			JobKey(job.Key).
			Retries(retries).
			RetryBackoff(backoff).
			ErrorMessage(msg).
			Send(sendCtx)
		if err != nil {
			log.Error("Failed to hand job back", map[string]interface{}{"error": err.Error(), "decision": outcome.Decision.String()})
		}
	case queue.Fail:
		b.throw(sendCtx, jc, job, outcome.Err, log)
	}
}

// retryPlan gives the retries and backoff a FailJob command carries. A
// release keeps the remaining retries so shutdowns never spend the budget.
func retryPlan(o queue.Outcome, retries int32) (int32, time.Duration) {
	if o.Decision == queue.Release {
		return retries, 0
	}
	return retries - 1, o.Delay
}

// throw raises a BPMN error so the process can route exhausted jobs.
func (b *ZeebeBroker) throw(ctx context.Context, jc worker.JobClient, job entities.Job, err error, log logger.Logger) {
	if err == nil {
		err = apperrors.NewUnknownError(fmt.Errorf("job failed without an error"))
	}
	bpmnErr := apperrors.ConvertToBPMNError(apperrors.Classify(err))
	_, sendErr := jc.NewThrowErrorCommand().
		JobKey(job.Key).
		ErrorCode(bpmnErr.Code).
		ErrorMessage(bpmnErr.Message).
		Send(ctx)
	if sendErr != nil {
		log.Error("Failed to throw BPMN error", map[string]interface{}{"error": sendErr.Error(), "code": bpmnErr.Code})
	}
}

// deliveryFor derives the attempt number from the remaining retries.
func deliveryFor(job entities.Job, jobType models.JobType, maxAttempts int) (queue.Delivery, error) {
	vars, err := job.GetVariablesAsMap()
	if err != nil {
		return queue.Delivery{}, fmt.Errorf("decode variables: %w", err)
	}
	jobID, _ := vars["jobId"].(string)
	if jobID == "" {
		return queue.Delivery{}, fmt.Errorf("variable jobId missing")
	}
	return queue.Delivery{
		JobID:   jobID,
		JobType: jobType,
		Attempt: attemptFromRetries(maxAttempts, int(job.Retries)),
	}, nil
}

func attemptFromRetries(maxAttempts, retries int) int {
	attempt := maxAttempts - retries + 1
	if attempt < 1 {
		return 1
	}
	return attempt
}

func (b *ZeebeBroker) Close() error {
	return b.client.Close()
}
