package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparkmatch/backend/internal/models"
)

// fakeSender scripts Send outcomes per call.
type fakeSender struct {
	mu      sync.Mutex
	results []error
	calls   []models.Event
}

func (f *fakeSender) Send(ctx context.Context, evt models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, evt)
	if len(f.results) == 0 {
		return nil
	}
	err := f.results[0]
	f.results = f.results[1:]
	return err
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestRelay(sender Sender) *Relay {
	return NewRelay("amqp://unused", sender, zerolog.Nop())
}

func matchEvent(id string) models.Event {
	return models.Event{
		ID:                  id,
		Kind:                models.EventMatchCreated,
		RecipientUserID:     2,
		RecipientTelegramID: 555,
		ActorName:           "Olena",
	}
}

func deliveryFor(t *testing.T, evt models.Event) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(evt)
	require.NoError(t, err)
	return amqp.Delivery{Body: body, MessageId: evt.ID}
}

func TestDeliverSucceedsFirstAttempt(t *testing.T) {
	sender := &fakeSender{}
	r := newTestRelay(sender)

	require.NoError(t, r.deliver(context.Background(), matchEvent("e1")))
	assert.Equal(t, 1, sender.callCount())
}

func TestDeliverStopsOnPermanentFailure(t *testing.T) {
	sender := &fakeSender{results: []error{
		&PermanentError{Err: errors.New("bot was blocked by the user")},
	}}
	r := newTestRelay(sender)

	err := r.deliver(context.Background(), matchEvent("e2"))
	require.Error(t, err)
	assert.True(t, IsPermanent(err))
	assert.Equal(t, 1, sender.callCount(), "permanent failures must not retry")
}

func TestHandleAbsorbsDuplicateDeliveries(t *testing.T) {
	sender := &fakeSender{}
	r := newTestRelay(sender)
	evt := matchEvent("e3")

	r.handle(context.Background(), deliveryFor(t, evt))
	r.handle(context.Background(), deliveryFor(t, evt))

	assert.Equal(t, 1, sender.callCount())
}

func TestHandleDropsMalformedBody(t *testing.T) {
	sender := &fakeSender{}
	r := newTestRelay(sender)

	r.handle(context.Background(), amqp.Delivery{Body: []byte("not json")})

	assert.Zero(t, sender.callCount())
}

func TestHandleDoesNotMarkFailedEventsSeen(t *testing.T) {
	sender := &fakeSender{results: []error{
		&PermanentError{Err: errors.New("chat not found")},
	}}
	r := newTestRelay(sender)
	evt := matchEvent("e4")

	r.handle(context.Background(), deliveryFor(t, evt))
	// A later redelivery gets a fresh try: the first attempt never reached
	// the user.
	r.handle(context.Background(), deliveryFor(t, evt))

	assert.Equal(t, 2, sender.callCount())
}

func TestFormatEvent(t *testing.T) {
	match := FormatEvent(matchEvent("e5"))
	assert.Contains(t, match, "Olena")
	assert.Contains(t, match, "match")

	message := FormatEvent(models.Event{
		Kind:      models.EventMessageSent,
		ActorName: "Olena",
		Preview:   "see you at 7?",
	})
	assert.Contains(t, message, "see you at 7?")

	noName := FormatEvent(models.Event{Kind: models.EventMessageSent})
	assert.Contains(t, noName, "Someone")

	assert.Empty(t, FormatEvent(models.Event{Kind: "bogus.kind"}))
}

func TestIsPermanent(t *testing.T) {
	assert.True(t, IsPermanent(&PermanentError{Err: errors.New("x")}))
	assert.False(t, IsPermanent(errors.New("x")))
	wrapped := &PermanentError{Err: errors.New("inner")}
	assert.True(t, IsPermanent(wrapped))
}
