package discovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCandidateCursorRoundTrip(t *testing.T) {
	cursor := encodeCandidateCursor(0.732519001, 42)

	score, userID, err := decodeCandidateCursor(cursor)
	require.NoError(t, err)
	assert.Equal(t, 0.732519001, score)
	assert.Equal(t, int64(42), userID)
}

func TestCandidateCursorIsLossless(t *testing.T) {
	// Scores differing only below 1e-9 must survive the round trip, or the
	// page boundary drifts.
	for _, score := range []float64{
		0.1 + 0.2,
		1.0 / 3.0,
		0.7325190011234567,
		1e-12,
	} {
		got, _, err := decodeCandidateCursor(encodeCandidateCursor(score, 1))
		require.NoError(t, err)
		assert.Equal(t, score, got, "score %v", score)
	}
}

func TestCandidateCursorRejectsGarbage(t *testing.T) {
	for _, cursor := range []string{
		"not base64 !!!",
		"bm9jb2xvbg",       // "nocolon"
		"YWJjOjQy",         // "abc:42", score not a float
		"MC41Om5vdGFuaWQ",  // "0.5:notanid"
	} {
		_, _, err := decodeCandidateCursor(cursor)
		assert.Error(t, err, "cursor %q", cursor)
	}
}

func TestTimeCursorRoundTrip(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 589793238, time.UTC)
	cursor := encodeTimeCursor(at, 1007)

	gotAt, gotID, err := decodeTimeCursor(cursor)
	require.NoError(t, err)
	assert.True(t, at.Equal(gotAt))
	assert.Equal(t, int64(1007), gotID)
}

func TestTimeCursorRejectsGarbage(t *testing.T) {
	_, _, err := decodeTimeCursor("%%%")
	assert.Error(t, err)

	_, _, err = decodeTimeCursor("YWJj") // "abc"
	assert.Error(t, err)
}
