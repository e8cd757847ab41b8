// internal/events/ses.go
package events

import (
	"context"
	"fmt"
	"strings"

	"cv-pipeline/internal/common/aws"
	"cv-pipeline/internal/queue"
)

// SESAlertSink emails operators when a job fails for good.
type SESAlertSink struct {
	client *aws.SESClient
	from   string
	to     []string
}

func NewSESAlertSink(client *aws.SESClient, from string, to []string) *SESAlertSink {
	return &SESAlertSink{client: client, from: from, to: to}
}

func (s *SESAlertSink) Name() string { return "ses" }

func (s *SESAlertSink) Accepts(t queue.EventType) bool { return t == queue.EventFailed }

func (s *SESAlertSink) Send(ctx context.Context, evt queue.Event) error {
	subject := fmt.Sprintf("[cv-pipeline] %s job %s failed", evt.JobType, evt.JobID)

	var b strings.Builder
	fmt.Fprintf(&b, "Job:       %s\n", evt.JobID)
	fmt.Fprintf(&b, "Type:      %s\n", evt.JobType)
	fmt.Fprintf(&b, "Attempt:   %d\n", evt.Attempt)
	if evt.Stage != "" {
		fmt.Fprintf(&b, "Stage:     %s\n", evt.Stage)
	}
	fmt.Fprintf(&b, "Code:      %s\n", evt.ErrorCode)
	fmt.Fprintf(&b, "Error:     %s\n", evt.Error)
	fmt.Fprintf(&b, "Failed at: %s\n", evt.Timestamp.Format("2006-01-02 15:04:05 MST"))

	_, err := s.client.SendText(ctx, s.from, s.to, subject, b.String())
	return err
}
