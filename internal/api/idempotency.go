package api

import (
	"bytes"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"sparkmatch/backend/internal/config"
)

// HeaderIdempotencyKey is supplied by clients to make write retries safe.
const HeaderIdempotencyKey = "Idempotency-Key"

type storedResponse struct {
	Status      int
	ContentType string
	Body        []byte
}

// IdempotencyCache replays recent successful write responses byte-for-byte.
// It is in-process and bounded; entries expire after the replay window.
type IdempotencyCache struct {
	lru *expirable.LRU[string, storedResponse]
}

// NewIdempotencyCache builds a cache sized per the service contract
// (10 000 entries, 10 minute window).
func NewIdempotencyCache() *IdempotencyCache {
	return &IdempotencyCache{
		lru: expirable.NewLRU[string, storedResponse](config.IdempotencyEntries, nil, config.IdempotencyWindow),
	}
}

// Middleware intercepts POST/PUT/PATCH requests carrying an Idempotency-Key.
// A cache hit short-circuits the handler; a miss runs it and records any 2xx
// response for later replay.
func (ic *IdempotencyCache) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case "POST", "PUT", "PATCH":
		default:
			c.Next()
			return
		}
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}

		cacheKey := fmt.Sprintf("%d|%s|%s|%s", UserID(c), c.Request.Method, c.Request.URL.Path, key)
		if stored, ok := ic.lru.Get(cacheKey); ok {
			c.Header("X-Request-Id", RequestID(c))
			c.Data(stored.Status, stored.ContentType, stored.Body)
			c.Abort()
			return
		}

		cw := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = cw
		c.Next()

		status := cw.Status()
		if status >= 200 && status < 300 {
			ic.lru.Add(cacheKey, storedResponse{
				Status:      status,
				ContentType: cw.Header().Get("Content-Type"),
				Body:        cw.buf.Bytes(),
			})
		}
	}
}

type captureWriter struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.buf.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.buf.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}
