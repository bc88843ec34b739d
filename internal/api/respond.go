package api

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type errorEnvelope struct {
	Error *Error `json:"error"`
}

// Fail renders err as the standard error envelope. Unknown error types are
// logged with full context and collapsed to a 500 so no internals leak.
func Fail(c *gin.Context, err error) {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		zerolog.Ctx(c.Request.Context()).Error().
			Err(err).
			Str("path", c.FullPath()).
			Msg("unhandled error")
		apiErr = Internal()
	}
	c.Header("X-Request-Id", RequestID(c))
	c.AbortWithStatusJSON(apiErr.Status, errorEnvelope{Error: apiErr})
}

// OK renders a success body and echoes the request id.
func OK(c *gin.Context, status int, body any) {
	c.Header("X-Request-Id", RequestID(c))
	c.JSON(status, body)
}
