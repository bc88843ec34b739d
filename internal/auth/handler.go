package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"sparkmatch/backend/internal/api"
	"sparkmatch/backend/internal/storage"
)

// Handler serves the three auth operations: validate, verify, refresh.
type Handler struct {
	Storage  storage.Storage
	Tokens   *TokenManager
	BotToken string
	MaxAge   time.Duration
	Log      zerolog.Logger
}

func NewHandler(s storage.Storage, tokens *TokenManager, botToken string, maxAge time.Duration, log zerolog.Logger) *Handler {
	return &Handler{Storage: s, Tokens: tokens, BotToken: botToken, MaxAge: maxAge, Log: log}
}

// Register mounts the auth routes on their service-native paths.
func (h *Handler) Register(r gin.IRouter) {
	r.POST("/auth/validate", h.Validate)
	r.GET("/auth/verify", h.Verify)
	r.POST("/auth/refresh", h.Refresh)
}

type validateRequest struct {
	InitData string `json:"init_data"`
	BotToken string `json:"bot_token"`
}

type validateResponse struct {
	Token    string `json:"token"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username,omitempty"`
}

// Validate checks a Telegram initData payload, upserts the user, and mints a
// bearer token.
func (h *Handler) Validate(c *gin.Context) {
	var req validateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.InitData == "" {
		api.Fail(c, api.NewError(http.StatusBadRequest, api.CodeInvalidInitData, "init_data is required"))
		return
	}
	botToken := h.BotToken
	if req.BotToken != "" {
		botToken = req.BotToken
	}

	tgUser, err := ValidateInitData(req.InitData, botToken, h.MaxAge, time.Now())
	switch {
	case errors.Is(err, ErrExpiredInitData):
		api.Fail(c, api.Unauthorized(api.CodeExpiredInitData, "init data is too old"))
		return
	case err != nil:
		api.Fail(c, api.NewError(http.StatusBadRequest, api.CodeInvalidInitData, "signature check failed"))
		return
	}

	user, err := h.Storage.UpsertUserByTelegramID(tgUser.ID, tgUser.Username)
	if err != nil {
		api.Fail(c, err)
		return
	}

	token, _, err := h.Tokens.Issue(user.ID, user.TelegramID, time.Now())
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OK(c, http.StatusOK, validateResponse{Token: token, UserID: user.ID, Username: user.TelegramUsername})
}

// Verify re-checks a bearer token and the user's blocked state.
func (h *Handler) Verify(c *gin.Context) {
	tokenString := api.BearerToken(c.Request)
	if tokenString == "" {
		api.Fail(c, api.Unauthorized(api.CodeMissingAuth, "missing bearer token"))
		return
	}
	claims, err := h.Tokens.Verify(tokenString)
	if err != nil {
		api.Fail(c, api.Unauthorized(api.CodeInvalidToken, "invalid or expired token"))
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		api.Fail(c, api.Unauthorized(api.CodeInvalidToken, "invalid or expired token"))
		return
	}
	user, err := h.Storage.GetUserByID(userID)
	if err != nil {
		api.Fail(c, api.Unauthorized(api.CodeInvalidToken, "unknown user"))
		return
	}
	if user.IsBlocked {
		api.Fail(c, api.BlockedUser("user is blocked"))
		return
	}
	api.OK(c, http.StatusOK, gin.H{"valid": true, "user_id": user.ID})
}

// Refresh issues a new token with a fresh exp. A token in the last 10% of
// its lifetime that belongs to a now-blocked user is refused; any other
// still-valid token is accepted.
func (h *Handler) Refresh(c *gin.Context) {
	tokenString := api.BearerToken(c.Request)
	if tokenString == "" {
		api.Fail(c, api.Unauthorized(api.CodeMissingAuth, "missing bearer token"))
		return
	}
	claims, err := h.Tokens.Verify(tokenString)
	if err != nil {
		api.Fail(c, api.Unauthorized(api.CodeInvalidToken, "invalid or expired token"))
		return
	}
	userID, err := claims.UserID()
	if err != nil {
		api.Fail(c, api.Unauthorized(api.CodeInvalidToken, "invalid or expired token"))
		return
	}

	now := time.Now()
	remaining := claims.ExpiresAt.Time.Sub(now)
	if remaining < h.Tokens.TTL()/10 {
		user, err := h.Storage.GetUserByID(userID)
		if err != nil {
			api.Fail(c, err)
			return
		}
		if user.IsBlocked {
			api.Fail(c, api.BlockedUser("user is blocked"))
			return
		}
	}

	token, _, err := h.Tokens.Issue(userID, claims.TelegramID, now)
	if err != nil {
		api.Fail(c, err)
		return
	}
	api.OK(c, http.StatusOK, gin.H{"token": token, "user_id": userID})
}
