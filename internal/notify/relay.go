package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/golang-lru/v2/expirable"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"sparkmatch/backend/internal/config"
	"sparkmatch/backend/internal/events"
	"sparkmatch/backend/internal/models"
)

const (
	dedupEntries = 10000
	dedupWindow  = time.Hour

	reconnectDelay = 5 * time.Second
)

// Relay consumes the notification queue and hands each event to the sender
// with a bounded retry schedule. Redeliveries of an event already pushed are
// absorbed by the dedup cache.
type Relay struct {
	QueueURL string
	Sender   Sender
	Log      zerolog.Logger

	seen *expirable.LRU[string, struct{}]
}

func NewRelay(queueURL string, sender Sender, log zerolog.Logger) *Relay {
	return &Relay{
		QueueURL: queueURL,
		Sender:   sender,
		Log:      log,
		seen:     expirable.NewLRU[string, struct{}](dedupEntries, nil, dedupWindow),
	}
}

// Run consumes until the context is canceled, redialing the broker after
// connection loss.
func (r *Relay) Run(ctx context.Context) error {
	for {
		err := r.consume(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.Log.Warn().Err(err).Msg("queue consumer stopped, reconnecting")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(reconnectDelay):
		}
	}
}

func (r *Relay) consume(ctx context.Context) error {
	conn, err := amqp.Dial(r.QueueURL)
	if err != nil {
		return err
	}
	defer conn.Close()

	channel, err := conn.Channel()
	if err != nil {
		return err
	}
	defer channel.Close()

	if _, err := channel.QueueDeclare(events.QueueName, true, false, false, false, nil); err != nil {
		return err
	}
	// One unacked delivery at a time keeps ordering per queue and bounds
	// the damage of a crash.
	if err := channel.Qos(1, 0, false); err != nil {
		return err
	}

	deliveries, err := channel.Consume(events.QueueName, "notify-relay", false, false, false, false, nil)
	if err != nil {
		return err
	}

	r.Log.Info().Msg("relay consuming")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return amqp.ErrClosed
			}
			r.handle(ctx, d)
		}
	}
}

// handle processes one delivery to a terminal state: pushed, deduplicated,
// or dropped after the retry budget. All of them ack; requeueing would stall
// the queue behind a poison message.
func (r *Relay) handle(ctx context.Context, d amqp.Delivery) {
	defer d.Ack(false)

	var evt models.Event
	if err := json.Unmarshal(d.Body, &evt); err != nil {
		r.Log.Error().Err(err).Msg("malformed event dropped")
		return
	}
	if evt.ID == "" {
		evt.ID = d.MessageId
	}

	if _, dup := r.seen.Get(evt.ID); dup {
		r.Log.Debug().Str("event_id", evt.ID).Msg("duplicate event absorbed")
		return
	}

	if err := r.deliver(ctx, evt); err != nil {
		r.Log.Error().Err(err).
			Str("event_id", evt.ID).
			Str("kind", evt.Kind).
			Int64("recipient", evt.RecipientUserID).
			Msg("event dropped after retries")
		return
	}
	r.seen.Add(evt.ID, struct{}{})
}

// deliver runs the sender under the 1-2-4-8-16 s schedule, five attempts in
// all. Permanent failures abort immediately.
func (r *Relay) deliver(ctx context.Context, evt models.Event) error {
	schedule := backoff.NewExponentialBackOff()
	schedule.InitialInterval = time.Second
	schedule.Multiplier = 2
	schedule.MaxInterval = 16 * time.Second
	schedule.RandomizationFactor = 0

	attempt := 0
	operation := func() error {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, config.BotCallTimeout)
		defer cancel()

		err := r.Sender.Send(callCtx, evt)
		if err == nil {
			return nil
		}
		if IsPermanent(err) {
			return backoff.Permanent(err)
		}
		r.Log.Warn().Err(err).Str("event_id", evt.ID).Int("attempt", attempt).Msg("push failed")
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(schedule, config.RelayMaxAttempts-1), ctx))
}
