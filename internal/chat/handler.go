package chat

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"sparkmatch/backend/internal/api"
	"sparkmatch/backend/internal/storage"
)

// Handler exposes the chat REST surface. The WebSocket endpoint lives in
// ws.go on the same type.
type Handler struct {
	Service *Service
	Verify  api.TokenVerifyFunc
}

func NewHandler(s *Service, verify api.TokenVerifyFunc) *Handler {
	return &Handler{Service: s, Verify: verify}
}

// Register mounts the authenticated REST routes. The WebSocket route is
// mounted separately because it authenticates inside the upgrade.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/chat/conversations", h.Conversations)
	r.GET("/chat/conversations/:id/messages", h.Messages)
	r.POST("/chat/conversations/:id/block", h.Block)
	r.POST("/chat/conversations/:id/report", h.Report)
	r.POST("/chat/messages", h.Send)
	r.PUT("/chat/messages/:id/read", h.MarkRead)
	r.DELETE("/chat/messages/:id", h.Retract)
}

func (h *Handler) Conversations(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			api.Fail(c, api.Validation(map[string]string{"limit": "must be a non-negative integer"}))
			return
		}
		limit = v
	}
	var beforeAt time.Time
	var beforeID int64
	if cursor := c.Query("cursor"); cursor != "" {
		var err error
		beforeAt, beforeID, err = decodeConversationCursor(cursor)
		if err != nil {
			api.Fail(c, api.Validation(map[string]string{"cursor": "malformed"}))
			return
		}
	}

	views, err := h.Service.Conversations(api.UserID(c), limit, beforeAt, beforeID)
	if err != nil {
		api.Fail(c, err)
		return
	}
	body := gin.H{"conversations": views}
	if len(views) > 0 && len(views) == limitOrDefault(limit) {
		last := views[len(views)-1]
		body["next_cursor"] = encodeConversationCursor(last.UpdatedAt, last.ID)
	}
	api.OK(c, http.StatusOK, body)
}

func (h *Handler) Messages(c *gin.Context) {
	convID, apiErr := pathID(c, "id")
	if apiErr != nil {
		api.Fail(c, apiErr)
		return
	}
	var beforeID int64
	if raw := c.Query("before"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			api.Fail(c, api.Validation(map[string]string{"before": "must be a non-negative integer"}))
			return
		}
		beforeID = v
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	views, err := h.Service.Messages(api.UserID(c), convID, beforeID, limit)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OK(c, http.StatusOK, gin.H{"messages": views})
}

type sendRequest struct {
	ConversationID int64  `json:"conversation_id"`
	Content        string `json:"content"`
	ContentType    string `json:"content_type"`
	// Text is accepted as a legacy alias for content.
	Text string `json:"text"`
}

func (h *Handler) Send(c *gin.Context) {
	var in sendRequest
	if err := c.ShouldBindJSON(&in); err != nil || in.ConversationID == 0 {
		api.Fail(c, api.Validation(map[string]string{"conversation_id": "required"}))
		return
	}
	if in.ContentType != "" && in.ContentType != "text" {
		api.Fail(c, api.Validation(map[string]string{"content_type": "only text is supported"}))
		return
	}
	content := in.Content
	if content == "" {
		content = in.Text
	}
	view, err := h.Service.Send(c.Request.Context(), api.UserID(c), in.ConversationID, content)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OK(c, http.StatusCreated, gin.H{"message_id": view.ID, "sent_at": view.CreatedAt})
}

func (h *Handler) MarkRead(c *gin.Context) {
	msgID, apiErr := pathID(c, "id")
	if apiErr != nil {
		api.Fail(c, apiErr)
		return
	}
	msg, err := h.Service.Storage.GetMessage(msgID)
	if errors.Is(err, storage.ErrNotFound) {
		api.Fail(c, api.NotFound("message not found"))
		return
	}
	if err != nil {
		api.Fail(c, err)
		return
	}
	effective, err := h.Service.MarkRead(c.Request.Context(), api.UserID(c), msg.ConversationID, msgID)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OK(c, http.StatusOK, gin.H{"last_read_message_id": effective})
}

func (h *Handler) Retract(c *gin.Context) {
	msgID, apiErr := pathID(c, "id")
	if apiErr != nil {
		api.Fail(c, apiErr)
		return
	}
	if err := h.Service.Retract(c.Request.Context(), api.UserID(c), msgID); err != nil {
		api.Fail(c, err)
		return
	}
	api.OK(c, http.StatusOK, gin.H{"success": true})
}

func (h *Handler) Block(c *gin.Context) {
	convID, apiErr := pathID(c, "id")
	if apiErr != nil {
		api.Fail(c, apiErr)
		return
	}
	if err := h.Service.Block(c.Request.Context(), api.UserID(c), convID); err != nil {
		api.Fail(c, err)
		return
	}
	api.OK(c, http.StatusOK, gin.H{"success": true})
}

type reportRequest struct {
	Category string `json:"category"`
	Reason   string `json:"reason"`
}

func (h *Handler) Report(c *gin.Context) {
	convID, apiErr := pathID(c, "id")
	if apiErr != nil {
		api.Fail(c, apiErr)
		return
	}
	var in reportRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		api.Fail(c, api.Validation(map[string]string{"body": "malformed JSON"}))
		return
	}
	if err := h.Service.Report(api.UserID(c), convID, in.Category, in.Reason); err != nil {
		api.Fail(c, err)
		return
	}
	api.OK(c, http.StatusCreated, gin.H{"success": true})
}

func pathID(c *gin.Context, name string) (int64, *api.Error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, api.Validation(map[string]string{name: "must be a positive integer"})
	}
	return id, nil
}
