package chat

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sparkmatch/backend/internal/api"
	"sparkmatch/backend/internal/models"
)

func newTestRouter(t *testing.T) (*gin.Engine, *fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	fx := newFixture(t)
	handler := NewHandler(fx.service, func(token string) (int64, int64, error) {
		return 1, 100, nil
	})
	r := gin.New()
	authed := r.Group("/", api.AuthMiddleware(handler.Verify))
	handler.Register(authed)
	return r, fx
}

func doJSON(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer token")
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestSendAcceptsContentBody(t *testing.T) {
	r, fx := newTestRouter(t)
	fx.store.On("GetConversation", int64(7)).Return(conversationFixture(), nil)
	fx.store.On("IsBlockedEither", int64(1), int64(2)).Return(false, nil)
	fx.store.On("CreateMessage", mock.AnythingOfType("*models.Message")).
		Run(func(args mock.Arguments) {
			args.Get(0).(*models.Message).ID = 100
		}).Return(nil)
	fx.manager.Register(&fakeSession{userID: 2})

	rec := doJSON(r, http.MethodPost, "/chat/messages",
		`{"conversation_id":7,"content":"hi","content_type":"text"}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"message_id":100`)
	assert.Contains(t, rec.Body.String(), `"sent_at"`)
}

func TestSendRejectsUnknownContentType(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(r, http.MethodPost, "/chat/messages",
		`{"conversation_id":7,"content":"hi","content_type":"sticker"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "content_type")
}

func TestMessagesReadsBeforeParam(t *testing.T) {
	r, fx := newTestRouter(t)
	fx.store.On("GetConversation", int64(7)).Return(conversationFixture(), nil)
	fx.store.On("ListMessages", int64(7), int64(40), 2).
		Return([]models.Message{{ID: 39, ConversationID: 7, SenderID: 2, Content: "ok"}}, nil)

	rec := doJSON(r, http.MethodGet, "/chat/conversations/7/messages?before=40&limit=2", "")

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	fx.store.AssertExpectations(t)
}

func TestMarkReadSurfacesStorageFailure(t *testing.T) {
	r, fx := newTestRouter(t)
	fx.store.On("GetMessage", int64(9)).Return(nil, errors.New("connection reset"))

	rec := doJSON(r, http.MethodPut, "/chat/messages/9/read", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), api.CodeInternal)
}
