// Package chathub keeps the live WebSocket sessions and fans server frames
// out to them. It knows nothing about persistence; the chat service decides
// what to deliver and to whom.
package chathub

// Client is one live session of a user. A user may hold several at once,
// one per device.
type Client interface {
	// UserID returns the authenticated owner of the session.
	UserID() int64

	// Enqueue hands a pre-marshaled frame to the session's write queue.
	// It reports false when the queue is full; the caller must then drop
	// the session.
	Enqueue(frame []byte) bool

	// Close tears the session down with a close code. Safe to call more
	// than once.
	Close(code int, reason string)
}
