// internal/queue/events.go
package queue

import (
	"context"
	"time"

	"cv-pipeline/internal/models"
)

type EventType string

const (
	EventCompleted EventType = "completed"
	EventFailed    EventType = "failed"
	EventProgress  EventType = "progress"
	EventRetrying  EventType = "retrying"
)

// Event is emitted on every state change a poller could observe.
type Event struct {
	Type        EventType      `json:"type"`
	JobID       string         `json:"jobId"`
	JobType     models.JobType `json:"jobType"`
	Attempt     int            `json:"attempt"`
	Stage       string         `json:"stage,omitempty"`
	ProgressPct int            `json:"progressPct,omitempty"`
	Error       string         `json:"error,omitempty"`
	ErrorCode   string         `json:"errorCode,omitempty"`
	RetryInMs   int64          `json:"retryInMs,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Publisher fans events out to sinks. Publishing never fails a job.
type Publisher interface {
	Publish(ctx context.Context, evt Event)
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) {}
