package chathub_test

import (
	"testing"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"sparkmatch/backend/internal/chathub"
)

func newManager() *chathub.Manager {
	return chathub.NewManager(zerolog.Nop())
}

func TestManagerRegisterUnregister(t *testing.T) {
	m := newManager()
	a := newMockClient(1, 8)

	m.Register(a)
	assert.True(t, m.Online(1))
	assert.Equal(t, 1, m.Sessions())

	m.Unregister(a)
	assert.False(t, m.Online(1))
	assert.Zero(t, m.Sessions())
}

func TestManagerMultiSessionFanOut(t *testing.T) {
	m := newManager()
	phone := newMockClient(1, 8)
	laptop := newMockClient(1, 8)
	other := newMockClient(2, 8)
	m.Register(phone)
	m.Register(laptop)
	m.Register(other)

	frame := []byte(`{"type":"message.created"}`)
	delivered := m.DeliverToUser(1, frame)

	assert.Equal(t, 2, delivered)
	assert.Len(t, phone.delivered(), 1)
	assert.Len(t, laptop.delivered(), 1)
	assert.Empty(t, other.delivered())
}

func TestManagerDropsSlowSession(t *testing.T) {
	m := newManager()
	slow := newMockClient(1, 1)
	fast := newMockClient(1, 8)
	m.Register(slow)
	m.Register(fast)

	frame := []byte(`{"type":"conversation.typing"}`)
	m.DeliverToUser(1, frame)
	delivered := m.DeliverToUser(1, frame)

	// The slow session's queue was already full; it gets closed with 1011
	// and only the fast one remains.
	assert.Equal(t, 1, delivered)
	closed, code := slow.isClosed()
	assert.True(t, closed)
	assert.Equal(t, websocket.CloseInternalServerErr, code)
	assert.Equal(t, 1, m.Sessions())
	assert.Len(t, fast.delivered(), 2)
}

func TestManagerDeliverToUsers(t *testing.T) {
	m := newManager()
	a := newMockClient(1, 8)
	b := newMockClient(2, 8)
	m.Register(a)
	m.Register(b)

	m.DeliverToUsers([]int64{1, 2, 3}, []byte(`{"type":"message.read"}`))

	assert.Len(t, a.delivered(), 1)
	assert.Len(t, b.delivered(), 1)
}

func TestManagerUnregisterUnknownClient(t *testing.T) {
	m := newManager()
	m.Unregister(newMockClient(9, 1))
	assert.Zero(t, m.Sessions())
}
