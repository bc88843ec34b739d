package chat

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"sparkmatch/backend/internal/api"
	"sparkmatch/backend/internal/chathub"
	"sparkmatch/backend/internal/storage"
)

// Application close codes used during the WebSocket handshake.
const (
	closeUnauthorized = 4401
	closeForbidden    = 4403
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Cross-origin policy is enforced at the gateway.
	CheckOrigin: func(*http.Request) bool { return true },
}

// RegisterWS mounts the WebSocket route. Authentication happens after the
// upgrade so the client gets a proper close code instead of a failed
// handshake it cannot inspect.
func (h *Handler) RegisterWS(r gin.IRouter) {
	r.GET("/chat/ws", h.ServeWS)
}

func (h *Handler) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}

	token := api.BearerToken(c.Request)
	userID, _, err := h.Verify(token)
	if err != nil || token == "" {
		closeWith(conn, closeUnauthorized, "invalid or expired token")
		return
	}

	user, err := h.Service.Storage.GetUserByID(userID)
	if errors.Is(err, storage.ErrNotFound) {
		closeWith(conn, closeUnauthorized, "unknown user")
		return
	}
	if err != nil {
		closeWith(conn, websocket.CloseInternalServerErr, "")
		return
	}
	if user.IsBlocked {
		closeWith(conn, closeForbidden, "account blocked")
		return
	}

	client := chathub.NewWSClient(userID, conn, h.Service.Manager, h.Service, h.Service.Log)
	h.Service.touchPresence(userID)
	client.Run()
	h.Service.touchPresence(userID)
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	deadline := time.Now().Add(time.Second)
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), deadline)
	conn.Close()
}
