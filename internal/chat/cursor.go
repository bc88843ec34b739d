package chat

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"sparkmatch/backend/internal/config"
)

// Conversation cursors carry "<updated_at unixnano>:<id>" of the last row
// served; pages walk (updated_at, id) descending.

func encodeConversationCursor(t time.Time, id int64) string {
	raw := strconv.FormatInt(t.UnixNano(), 10) + ":" + strconv.FormatInt(id, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeConversationCursor(cursor string) (time.Time, int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("malformed cursor")
	}
	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 {
		return time.Time{}, 0, fmt.Errorf("malformed cursor")
	}
	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("malformed cursor")
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("malformed cursor")
	}
	return time.Unix(0, nanos), id, nil
}

func limitOrDefault(limit int) int {
	if limit <= 0 {
		return config.DefaultPageSize
	}
	if limit > config.MaxPageSize {
		return config.MaxPageSize
	}
	return limit
}
