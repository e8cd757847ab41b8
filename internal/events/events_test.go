// internal/events/events_test.go
package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"cv-pipeline/internal/common/aws"
	"cv-pipeline/internal/common/logger"
	"cv-pipeline/internal/models"
	"cv-pipeline/internal/queue"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==========================
// Mocks
// ==========================

type MockSNS struct{ mock.Mock }

func (m *MockSNS) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*sns.PublishOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockSES struct{ mock.Mock }

func (m *MockSES) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	args := m.Called(ctx, params)
	if out := args.Get(0); out != nil {
		return out.(*ses.SendEmailOutput), args.Error(1)
	}
	return nil, args.Error(1)
}

type fakeChannel struct {
	mu       sync.Mutex
	exchange string
	keys     []string
	msgs     []amqp.Publishing
}

func (f *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchange = exchange
	f.keys = append(f.keys, key)
	f.msgs = append(f.msgs, msg)
	return nil
}

type recordingSink struct {
	mu      sync.Mutex
	name    string
	accepts map[queue.EventType]bool
	got     []queue.Event
	err     error
}

func (r *recordingSink) Name() string                   { return r.name }
func (r *recordingSink) Accepts(t queue.EventType) bool { return r.accepts == nil || r.accepts[t] }
func (r *recordingSink) Send(ctx context.Context, evt queue.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, evt)
	return r.err
}

func failedEvent() queue.Event {
	return queue.Event{
		Type:      queue.EventFailed,
		JobID:     "job-1",
		JobType:   models.JobTypeEvaluation,
		Attempt:   3,
		Stage:     "extract_profile",
		Error:     "Rate limit exceeded for 'openai'",
		ErrorCode: "RATE_LIMITED",
		Timestamp: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
	}
}

// ==========================
// Multi Tests
// ==========================

func TestMulti_FansOutByAcceptance(t *testing.T) {
	all := &recordingSink{name: "all"}
	failures := &recordingSink{name: "failures", accepts: map[queue.EventType]bool{queue.EventFailed: true}}
	broken := &recordingSink{name: "broken", err: errors.New("down")}

	m := NewMulti(logger.NewTestLogger(t), all, failures, broken)
	m.Publish(context.Background(), queue.Event{Type: queue.EventProgress, JobID: "j1"})
	m.Publish(context.Background(), failedEvent())

	assert.Len(t, all.got, 2)
	require.Len(t, failures.got, 1)
	assert.Equal(t, "job-1", failures.got[0].JobID)
	assert.Len(t, broken.got, 2, "a failing sink keeps receiving events")
	assert.False(t, all.got[0].Timestamp.IsZero(), "timestamp filled in")
}

func TestMulti_CancelledContextStillDelivers(t *testing.T) {
	sink := &recordingSink{name: "s"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	NewMulti(logger.NewNoOpLogger(), sink).Publish(ctx, failedEvent())
	assert.Len(t, sink.got, 1)
}

func TestLogSink(t *testing.T) {
	s := NewLogSink(logger.NewTestLogger(t))
	assert.True(t, s.Accepts(queue.EventProgress))
	assert.NoError(t, s.Send(context.Background(), failedEvent()))
	assert.NoError(t, s.Send(context.Background(), queue.Event{Type: queue.EventProgress, Stage: "rank", ProgressPct: 80}))
}

// ==========================
// Sink Tests
// ==========================

func TestSNSSink(t *testing.T) {
	api := new(MockSNS)
	api.On("Publish", mock.Anything, mock.MatchedBy(func(in *sns.PublishInput) bool {
		var evt queue.Event
		if err := json.Unmarshal([]byte(awssdk.ToString(in.Message)), &evt); err != nil {
			return false
		}
		return awssdk.ToString(in.TopicArn) == "arn:aws:sns:ap-southeast-1:123:jobs" &&
			awssdk.ToString(in.Subject) == "job.evaluation.failed" &&
			awssdk.ToString(in.MessageAttributes["eventType"].StringValue) == "failed" &&
			evt.JobID == "job-1"
	})).Return(&sns.PublishOutput{MessageId: awssdk.String("m-1")}, nil)

	s := NewSNSSink(aws.NewSNSClientWithAPI(api), "arn:aws:sns:ap-southeast-1:123:jobs")
	assert.False(t, s.Accepts(queue.EventProgress))
	assert.True(t, s.Accepts(queue.EventRetrying))

	require.NoError(t, s.Send(context.Background(), failedEvent()))
	api.AssertExpectations(t)
}

func TestSESAlertSink(t *testing.T) {
	api := new(MockSES)
	api.On("SendEmail", mock.Anything, mock.MatchedBy(func(in *ses.SendEmailInput) bool {
		body := awssdk.ToString(in.Message.Body.Text.Data)
		return awssdk.ToString(in.Source) == "alerts@example.com" &&
			assert.ObjectsAreEqual([]string{"ops@example.com"}, in.Destination.ToAddresses) &&
			awssdk.ToString(in.Message.Subject.Data) == "[cv-pipeline] evaluation job job-1 failed" &&
			containsAll(body, "RATE_LIMITED", "extract_profile", "Attempt:   3")
	})).Return(&ses.SendEmailOutput{MessageId: awssdk.String("e-1")}, nil)

	s := NewSESAlertSink(aws.NewSESClientWithAPI(api), "alerts@example.com", []string{"ops@example.com"})
	assert.True(t, s.Accepts(queue.EventFailed))
	assert.False(t, s.Accepts(queue.EventCompleted))

	require.NoError(t, s.Send(context.Background(), failedEvent()))
	api.AssertExpectations(t)
}

func TestSESAlertSink_Error(t *testing.T) {
	api := new(MockSES)
	api.On("SendEmail", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

	s := NewSESAlertSink(aws.NewSESClientWithAPI(api), "a@example.com", []string{"b@example.com"})
	assert.EqualError(t, s.Send(context.Background(), failedEvent()), "throttled")
}

func TestAMQPSink(t *testing.T) {
	ch := &fakeChannel{}
	s := newAMQPSink(ch, "cv-pipeline.events")

	evt := failedEvent()
	evt.Type = queue.EventCompleted
	require.NoError(t, s.Send(context.Background(), evt))

	assert.Equal(t, "cv-pipeline.events", ch.exchange)
	assert.Equal(t, []string{"job.evaluation.completed"}, ch.keys)
	require.Len(t, ch.msgs, 1)
	assert.Equal(t, "application/json", ch.msgs[0].ContentType)
	assert.Equal(t, amqp.Persistent, ch.msgs[0].DeliveryMode)
	assert.Equal(t, "job-1-completed-3", ch.msgs[0].MessageId)

	var decoded queue.Event
	require.NoError(t, json.Unmarshal(ch.msgs[0].Body, &decoded))
	assert.Equal(t, queue.EventCompleted, decoded.Type)
	assert.NoError(t, s.Close())
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
