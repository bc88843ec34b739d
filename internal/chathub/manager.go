package chathub

import (
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Manager is the in-process session registry. A session that cannot keep up
// with its write queue is closed with 1011 rather than allowed to stall
// delivery to the rest.
type Manager struct {
	mu       sync.RWMutex
	sessions map[int64][]Client

	log zerolog.Logger
}

func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		sessions: make(map[int64][]Client),
		log:      log,
	}
}

func (m *Manager) Register(c Client) {
	m.mu.Lock()
	m.sessions[c.UserID()] = append(m.sessions[c.UserID()], c)
	m.mu.Unlock()
	m.log.Debug().Int64("user_id", c.UserID()).Msg("session registered")
}

func (m *Manager) Unregister(c Client) {
	m.mu.Lock()
	list := m.sessions[c.UserID()]
	for i, s := range list {
		if s == c {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(m.sessions, c.UserID())
	} else {
		m.sessions[c.UserID()] = list
	}
	m.mu.Unlock()
	m.log.Debug().Int64("user_id", c.UserID()).Msg("session unregistered")
}

// DeliverToUser sends a frame to every session of the user and returns how
// many accepted it. Sessions with a full write queue are unregistered and
// closed.
func (m *Manager) DeliverToUser(userID int64, frame []byte) int {
	m.mu.RLock()
	list := append([]Client(nil), m.sessions[userID]...)
	m.mu.RUnlock()

	delivered := 0
	for _, c := range list {
		if c.Enqueue(frame) {
			delivered++
			continue
		}
		m.log.Warn().Int64("user_id", userID).Msg("slow session dropped")
		m.Unregister(c)
		c.Close(websocket.CloseInternalServerErr, "write queue overflow")
	}
	return delivered
}

// DeliverToUsers fans one frame out to several recipients.
func (m *Manager) DeliverToUsers(userIDs []int64, frame []byte) {
	for _, id := range userIDs {
		m.DeliverToUser(id, frame)
	}
}

// Online reports whether the user has at least one live session.
func (m *Manager) Online(userID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions[userID]) > 0
}

// Sessions returns the live session count across all users.
func (m *Manager) Sessions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, list := range m.sessions {
		n += len(list)
	}
	return n
}
