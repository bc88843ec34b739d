package discovery

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Candidate cursors carry "<score>:<user_id>" of the last item served; the
// next page takes rows strictly below that point in ranking order. The
// encoding is opaque to clients.

func encodeCandidateCursor(score float64, userID int64) string {
	// Shortest lossless form; a truncated score would shift the page
	// boundary and skip or repeat a candidate.
	raw := strconv.FormatFloat(score, 'g', -1, 64) + ":" + strconv.FormatInt(userID, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeCandidateCursor(cursor string) (float64, int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed cursor")
	}
	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed cursor")
	}
	score, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed cursor")
	}
	userID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("malformed cursor")
	}
	return score, userID, nil
}

// Time cursors page (created_at, id) descending lists: matches and
// conversations.

func encodeTimeCursor(t time.Time, id int64) string {
	raw := strconv.FormatInt(t.UnixNano(), 10) + ":" + strconv.FormatInt(id, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeTimeCursor(cursor string) (time.Time, int64, error) {
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
