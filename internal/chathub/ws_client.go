package chathub

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"sparkmatch/backend/internal/config"
	"sparkmatch/backend/internal/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// FrameHandler receives every decoded inbound frame. The chat service
// implements it; malformed or rejected frames answer with an error frame
// instead of closing the session.
type FrameHandler interface {
	HandleFrame(c Client, frame models.ClientFrame)
}

// WSClient is a Client over one gorilla/websocket connection.
type WSClient struct {
	userID  int64
	conn    *websocket.Conn
	send    chan []byte
	manager *Manager
	handler FrameHandler
	log     zerolog.Logger

	closeOnce sync.Once
}

func NewWSClient(userID int64, conn *websocket.Conn, manager *Manager, handler FrameHandler, log zerolog.Logger) *WSClient {
	return &WSClient{
		userID:  userID,
		conn:    conn,
		send:    make(chan []byte, config.SendQueueSize),
		manager: manager,
		handler: handler,
		log:     log.With().Int64("user_id", userID).Logger(),
	}
}

func (c *WSClient) UserID() int64 { return c.userID }

func (c *WSClient) Enqueue(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *WSClient) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		c.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason))
		c.conn.Close()
	})
}

// Run starts both pumps and registers the session. It returns once the read
// pump stops, which is when the connection is gone.
func (c *WSClient) Run() {
	c.manager.Register(c)
	go c.writePump()
	c.readPump()
}

func (c *WSClient) readPump() {
	defer func() {
		c.manager.Unregister(c)
		c.Close(websocket.CloseNormalClosure, "")
	}()

	c.conn.SetReadLimit(config.MaxMessageBytes)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug().Err(err).Msg("read pump stopped")
			}
			return
		}

		var frame models.ClientFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.sendError("bad_frame", "malformed JSON frame")
			continue
		}
		// Application-level keepalive for clients that cannot send
		// protocol pings.
		if frame.Type == models.FramePing {
			c.conn.SetReadDeadline(time.Now().Add(pongWait))
			pong, _ := json.Marshal(models.PongFrame{Type: models.FramePong})
			c.Enqueue(pong)
			continue
		}
		c.handler.HandleFrame(c, frame)
	}
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close(websocket.CloseNormalClosure, "")
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *WSClient) sendError(code, message string) {
	frame, err := json.Marshal(models.ErrorFrame{Type: models.FrameError, Code: code, Message: message})
	if err != nil {
		return
	}
	c.Enqueue(frame)
}
