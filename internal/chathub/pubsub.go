package chathub

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// broadcastChannel carries frames between chat instances. Every instance
// subscribes and delivers to whatever sessions it holds locally.
const broadcastChannel = "sparkmatch.chat.frames"

type broadcastEnvelope struct {
	UserID int64           `json:"user_id"`
	Frame  json.RawMessage `json:"frame"`
}

// Bridge fans frames out across chat instances through Redis Pub/Sub. With a
// single instance it degrades to plain local delivery.
type Bridge struct {
	Manager *Manager
	Redis   *redis.Client
	Log     zerolog.Logger
}

func NewBridge(manager *Manager, rdb *redis.Client, log zerolog.Logger) *Bridge {
	return &Bridge{Manager: manager, Redis: rdb, Log: log}
}

// Deliver routes a frame to the user's sessions. Without Redis it goes
// straight to the local manager; with Redis it goes through the broadcast
// channel so every instance, this one included, delivers exactly once.
func (b *Bridge) Deliver(ctx context.Context, userID int64, frame []byte) {
	if b.Redis == nil {
		b.Manager.DeliverToUser(userID, frame)
		return
	}
	payload, err := json.Marshal(broadcastEnvelope{UserID: userID, Frame: frame})
	if err != nil {
		return
	}
	if err := b.Redis.Publish(ctx, broadcastChannel, payload).Err(); err != nil {
		b.Log.Warn().Err(err).Msg("publish frame broadcast")
		b.Manager.DeliverToUser(userID, frame)
	}
}

// Listen consumes the broadcast channel until the context is canceled.
// Frames for users with no local session are dropped silently; some other
// instance owns them.
func (b *Bridge) Listen(ctx context.Context) {
	if b.Redis == nil {
		return
	}
	pubsub := b.Redis.Subscribe(ctx, broadcastChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env broadcastEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.Log.Warn().Err(err).Msg("malformed frame broadcast")
				continue
			}
			b.Manager.DeliverToUser(env.UserID, env.Frame)
		}
	}
}
