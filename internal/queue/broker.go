// internal/queue/broker.go
package queue

import (
	"context"
	"errors"
	"time"

	"cv-pipeline/internal/models"
)

var ErrEmpty = errors.New("QUEUE_EMPTY")

// ErrDepthUnsupported is returned by brokers that cannot count pending jobs.
var ErrDepthUnsupported = errors.New("queue depth not supported by broker")

// Delivery is one attempt at processing a job.
type Delivery struct {
	JobID   string
	JobType models.JobType
	Attempt int // 1-based
}

type Decision int

const (
	// Ack removes the delivery; the job reached a terminal state or was dropped.
	Ack Decision = iota
	// Retry schedules another attempt after Outcome.Delay.
	Retry
	// Fail removes the delivery after exhaustion; brokers with their own
	// failure channel (zeebe) use it to raise an incident.
	Fail
	// Release hands an interrupted delivery back to the front of the queue
	// without consuming an attempt.
	Release
)

func (d Decision) String() string {
	switch d {
	case Retry:
		return "retry"
	case Fail:
		return "fail"
	case Release:
		return "release"
	default:
		return "ack"
	}
}

type Outcome struct {
	Decision Decision
	Delay    time.Duration
	Err      error
}

// Handler processes one delivery and says what the broker should do with it.
type Handler func(ctx context.Context, d Delivery) Outcome

// Broker moves job ids between producers and the worker pool.
type Broker interface {
	Enqueue(ctx context.Context, jobType models.JobType, jobID string) error
	// Consume runs a pool of the given size until ctx is cancelled.
	Consume(ctx context.Context, jobType models.JobType, concurrency int, h Handler) error
	Depth(ctx context.Context, jobType models.JobType) (int64, error)
	Close() error
}
