package chathub_test

import "sync"

// mockClient records delivered frames; capacity bounds the queue the way a
// real session's send channel would.
type mockClient struct {
	mu       sync.Mutex
	userID   int64
	capacity int
	frames   [][]byte

	closed    bool
	closeCode int
}

func newMockClient(userID int64, capacity int) *mockClient {
	return &mockClient{userID: userID, capacity: capacity}
}

func (m *mockClient) UserID() int64 { return m.userID }

func (m *mockClient) Enqueue(frame []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.frames) >= m.capacity {
		return false
	}
	m.frames = append(m.frames, frame)
	return true
}

func (m *mockClient) Close(code int, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.closeCode = code
}

func (m *mockClient) delivered() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]byte(nil), m.frames...)
}

func (m *mockClient) isClosed() (bool, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed, m.closeCode
}
