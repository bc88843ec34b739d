package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparkmatch/backend/internal/auth"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := auth.NewTokenManager("unit-test-secret", time.Hour)

	token, expiresAt, err := tm.Issue(7, 777, time.Now())
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 2*time.Second)

	claims, err := tm.Verify(token)
	require.NoError(t, err)

	userID, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(7), userID)
	assert.Equal(t, int64(777), claims.TelegramID)
}

func TestTokenRejectedByOtherSecret(t *testing.T) {
	tm := auth.NewTokenManager("secret-a", time.Hour)
	other := auth.NewTokenManager("secret-b", time.Hour)

	token, _, err := tm.Issue(7, 777, time.Now())
	require.NoError(t, err)

	_, err = other.Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestTokenExpiryEnforced(t *testing.T) {
	tm := auth.NewTokenManager("unit-test-secret", time.Hour)

	token, _, err := tm.Issue(7, 777, time.Now().Add(-2*time.Hour))
	require.NoError(t, err)

	_, err = tm.Verify(token)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestRefreshedTokenHasLaterExpiry(t *testing.T) {
	tm := auth.NewTokenManager("unit-test-secret", time.Hour)

	issued := time.Now().Add(-30 * time.Minute)
	first, _, err := tm.Issue(7, 777, issued)
	require.NoError(t, err)
	firstClaims, err := tm.Verify(first)
	require.NoError(t, err)

	second, _, err := tm.Issue(7, 777, time.Now())
	require.NoError(t, err)
	secondClaims, err := tm.Verify(second)
	require.NoError(t, err)

	assert.True(t, secondClaims.ExpiresAt.After(firstClaims.ExpiresAt.Time))
}

func TestVerifyFunc(t *testing.T) {
	tm := auth.NewTokenManager("unit-test-secret", time.Hour)
	token, _, err := tm.Issue(9, 999, time.Now())
	require.NoError(t, err)

	userID, telegramID, err := tm.VerifyFunc()(token)
	require.NoError(t, err)
	assert.Equal(t, int64(9), userID)
	assert.Equal(t, int64(999), telegramID)

	_, _, err = tm.VerifyFunc()("not-a-token")
	assert.Error(t, err)
}
