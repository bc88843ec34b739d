package gateway

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sparkmatch/backend/internal/config"
)

func allowAll(token string) (int64, int64, error) {
	if token == "valid" {
		return 1, 100, nil
	}
	return 0, 0, errors.New("bad token")
}

func newTestServer(t *testing.T, upstreams map[string]string) *Server {
	t.Helper()
	cfg := &config.Config{
		Upstreams:     upstreams,
		WebAppDomain:  "https://app.example.com",
		RateLimitAnon: 100,
		RateLimitAuth: 1000,
	}
	s, err := NewServer(cfg, allowAll, zerolog.Nop())
	require.NoError(t, err)
	return s
}

func TestServerForwardsWithRewrite(t *testing.T) {
	var gotPath, gotRequestID string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRequestID = r.Header.Get("X-Request-Id")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"exists":true}`))
	}))
	defer upstream.Close()

	s := newTestServer(t, map[string]string{UpstreamProfile: upstream.URL})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/profile/42", nil)
	s.Engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/profiles/42", gotPath)
	assert.NotEmpty(t, gotRequestID)
}

func TestServerPassesThroughUpstream5xx(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer upstream.Close()

	s := newTestServer(t, map[string]string{UpstreamAuth: upstream.URL})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/validate", nil)
	s.Engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestServerUnreachableUpstreamIs503(t *testing.T) {
	// Port 1 is never listening.
	s := newTestServer(t, map[string]string{UpstreamDiscovery: "http://127.0.0.1:1"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/matches", nil)
	s.Engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServerUnknownRouteIs404(t *testing.T) {
	s := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/nope", nil)
	s.Engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServerAnswersPreflight(t *testing.T) {
	s := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/profile/1", nil)
	req.Header.Set("Origin", "https://app.example.com")
	s.Engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "PATCH")
}

func TestRateLimiterBudgets(t *testing.T) {
	rl := NewRateLimiter(2, 1000, allowAll)

	assert.True(t, rl.take("ip:10.0.0.1", 2))
	assert.True(t, rl.take("ip:10.0.0.1", 2))
	assert.False(t, rl.take("ip:10.0.0.1", 2))

	// Separate subjects get separate buckets.
	assert.True(t, rl.take("ip:10.0.0.2", 2))
}

func TestRateLimiterRejectsWith429(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	cfg := &config.Config{
		Upstreams:     map[string]string{UpstreamAuth: upstream.URL},
		WebAppDomain:  "*",
		RateLimitAnon: 1,
		RateLimitAuth: 1000,
	}
	s, err := NewServer(cfg, allowAll, zerolog.Nop())
	require.NoError(t, err)

	first := httptest.NewRecorder()
	s.Engine.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/auth/verify", nil))
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	s.Engine.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/auth/verify", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "60", second.Header().Get("Retry-After"))
}

func TestHealthReportsUpstreams(t *testing.T) {
	s := newTestServer(t, map[string]string{UpstreamAuth: "http://127.0.0.1:1"})

	rec := httptest.NewRecorder()
	s.Engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	// No probe has succeeded, auth is required, so the gateway is degraded.
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), `"auth":false`)
}
