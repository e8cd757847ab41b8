// internal/events/amqp.go
package events

import (
	"context"
	"fmt"

	"cv-pipeline/internal/queue"

	amqp "github.com/rabbitmq/amqp091-go"
)

// publisher is the part of *amqp.Channel used by the sink.
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSink publishes every event to a topic exchange, routed by
// "job.<jobType>.<event>".
type AMQPSink struct {
	conn     *amqp.Connection
	channel  publisher
	exchange string
}

func DialAMQP(url, exchange string) (*AMQPSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // kind
		true,     // durable
		false,    // auto-delete
		false,    // internal
		false,    // no-wait
		nil,      // args
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	return &AMQPSink{conn: conn, channel: ch, exchange: exchange}, nil
}

func newAMQPSink(ch publisher, exchange string) *AMQPSink {
	return &AMQPSink{channel: ch, exchange: exchange}
}

func (s *AMQPSink) Name() string { return "amqp" }

func (s *AMQPSink) Accepts(queue.EventType) bool { return true }

func (s *AMQPSink) Send(ctx context.Context, evt queue.Event) error {
	body, err := encode(evt)
	if err != nil {
		return err
	}
	return s.channel.PublishWithContext(
		ctx,
		s.exchange,
		routingKey(evt),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    fmt.Sprintf("%s-%s-%d", evt.JobID, evt.Type, evt.Attempt),
			Timestamp:    evt.Timestamp,
			Type:         string(evt.Type),
			Body:         body,
		},
	)
}

func (s *AMQPSink) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
