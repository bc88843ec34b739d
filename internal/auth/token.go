package auth

import (
	"errors"
	"strconv"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims are the bearer-token claims: sub is the internal user id, tg the
// Telegram id.
type Claims struct {
	TelegramID int64 `json:"tg"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// TokenManager signs and verifies HS256 bearer tokens with the shared
// server-side secret.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Issue mints a token for the user with a fresh iat/exp.
func (tm *TokenManager) Issue(userID, telegramID int64, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(tm.ttl)
	claims := Claims{
		TelegramID: telegramID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// Verify checks signature and expiry and returns the claims.
func (tm *TokenManager) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return tm.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyFunc adapts the manager to the middleware signature used by every
// service.
func (tm *TokenManager) VerifyFunc() func(token string) (int64, int64, error) {
	return func(token string) (int64, int64, error) {
		claims, err := tm.Verify(token)
		if err != nil {
			return 0, 0, err
		}
		userID, err := claims.UserID()
		if err != nil {
			return 0, 0, ErrInvalidToken
		}
		return userID, claims.TelegramID, nil
	}
}

// TTL exposes the configured token lifetime (the refresh refusal rule needs
// it).
func (tm *TokenManager) TTL() time.Duration { return tm.ttl }
