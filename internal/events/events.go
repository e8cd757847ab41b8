// Package events delivers job events to the configured sinks.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"cv-pipeline/internal/common/logger"
	"cv-pipeline/internal/common/metrics"
	"cv-pipeline/internal/queue"
)

// Sink delivers one event. Errors are logged by Multi, never surfaced to jobs.
type Sink interface {
	Name() string
	Accepts(t queue.EventType) bool
	Send(ctx context.Context, evt queue.Event) error
}

// Multi fans every event out to all sinks that accept it.
type Multi struct {
	sinks   []Sink
	timeout time.Duration
	logger  logger.Logger
}

func NewMulti(log logger.Logger, sinks ...Sink) *Multi {
	return &Multi{
		sinks:   sinks,
		timeout: 5 * time.Second,
		logger:  log.WithFields(map[string]interface{}{"component": "events"}),
	}
}

func (m *Multi) Publish(ctx context.Context, evt queue.Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	var wg sync.WaitGroup
	for _, s := range m.sinks {
		if !s.Accepts(evt.Type) {
			continue
		}
		wg.Add(1)
		go func(s Sink) {
			defer wg.Done()
			// detached so a cancelled job context still reports its failure
			sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
			defer cancel()

			status := "ok"
			if err := s.Send(sendCtx, evt); err != nil {
				status = "error"
				m.logger.Warn("Event delivery failed", map[string]interface{}{
					"sink":  s.Name(),
					"event": string(evt.Type),
					"jobId": evt.JobID,
					"error": err.Error(),
				})
			}
			metrics.EventsPublished.WithLabelValues(s.Name(), string(evt.Type), status).Inc()
		}(s)
	}
	wg.Wait()
}

// LogSink writes events to the structured log.
type LogSink struct {
	logger logger.Logger
}

func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{logger: log.WithFields(map[string]interface{}{"component": "job-events"})}
}

func (s *LogSink) Name() string                   { return "log" }
func (s *LogSink) Accepts(t queue.EventType) bool { return true }

func (s *LogSink) Send(ctx context.Context, evt queue.Event) error {
	fields := map[string]interface{}{
		"event":   string(evt.Type),
		"jobId":   evt.JobID,
		"jobType": string(evt.JobType),
		"attempt": evt.Attempt,
	}
	if evt.Stage != "" {
		fields["stage"] = evt.Stage
		fields["progressPct"] = evt.ProgressPct
	}
	if evt.Error != "" {
		fields["error"] = evt.Error
		fields["errorCode"] = evt.ErrorCode
	}

	switch evt.Type {
	case queue.EventFailed:
		s.logger.Warn("Job event", fields)
	case queue.EventProgress:
		s.logger.Debug("Job event", fields)
	default:
		s.logger.Info("Job event", fields)
	}
	return nil
}

// routingKey is "job.<jobType>.<event>".
func routingKey(evt queue.Event) string {
	return strings.Join([]string{"job", string(evt.JobType), string(evt.Type)}, ".")
}

func encode(evt queue.Event) ([]byte, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return body, nil
}
