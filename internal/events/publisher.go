// Package events publishes domain events to the durable notification queue.
// The Notification Relay is the only consumer.
package events

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"sparkmatch/backend/internal/models"
)

// QueueName is the single work queue between the core and the relay.
const QueueName = "sparkmatch.notifications"

// Publisher is what producing services depend on.
type Publisher interface {
	Publish(ctx context.Context, evt models.Event) error
	Close() error
}

// AMQPPublisher publishes persistent messages to a durable queue.
type AMQPPublisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	log     zerolog.Logger
}

// NewAMQPPublisher dials the broker and declares the queue so producers and
// the relay can start in any order.
func NewAMQPPublisher(queueURL string, log zerolog.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(queueURL)
	if err != nil {
		return nil, err
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := channel.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}
	return &AMQPPublisher{conn: conn, channel: channel, log: log}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, evt models.Event) error {
	if evt.CreatedAt.IsZero() {
		evt.CreatedAt = time.Now()
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return p.channel.PublishWithContext(ctx, "", QueueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    evt.ID,
		Timestamp:    evt.CreatedAt,
		Body:         body,
	})
}

func (p *AMQPPublisher) Close() error {
	p.channel.Close()
	return p.conn.Close()
}

// NopPublisher drops events; used when QUEUE_URL is unset and in tests.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, models.Event) error { return nil }
func (NopPublisher) Close() error                                { return nil }
