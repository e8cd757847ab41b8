// internal/events/sns.go
package events

import (
	"context"

	"cv-pipeline/internal/common/aws"
	"cv-pipeline/internal/queue"
)

// SNSSink publishes terminal and retry events to a topic. Progress is too
// chatty for SNS and stays in the log.
type SNSSink struct {
	client   *aws.SNSClient
	topicARN string
}

func NewSNSSink(client *aws.SNSClient, topicARN string) *SNSSink {
	return &SNSSink{client: client, topicARN: topicARN}
}

func (s *SNSSink) Name() string { return "sns" }

func (s *SNSSink) Accepts(t queue.EventType) bool { return t != queue.EventProgress }

func (s *SNSSink) Send(ctx context.Context, evt queue.Event) error {
	body, err := encode(evt)
	if err != nil {
		return err
	}
	_, err = s.client.PublishMessage(ctx, s.topicARN, routingKey(evt), string(body), map[string]string{
		"eventType": string(evt.Type),
		"jobType":   string(evt.JobType),
	})
	return err
}
