package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestNoCredentialsConfiguredAllowsAll(t *testing.T) {
	m := NewMiddleware(Config{})
	h := m.Wrap(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/routes", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCorrectCredentials(t *testing.T) {
	m := NewMiddleware(Config{Username: "admin", Password: "secret"})
	h := m.Wrap(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/routes", nil)
	req.SetBasicAuth("admin", "secret")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIncorrectCredentialsRejected(t *testing.T) {
	m := NewMiddleware(Config{Username: "admin", Password: "secret"})
	h := m.Wrap(okHandler())

	tests := []struct {
		name string
		user string
		pass string
	}{
		{"wrong password", "admin", "wrong"},
		{"wrong username", "other", "secret"},
		{"both wrong", "other", "wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/routes", nil)
			req.SetBasicAuth(tt.user, tt.pass)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "Basic", w.Header().Get("WWW-Authenticate"))
		})
	}
}

func TestMissingHeaderChallenged(t *testing.T) {
	m := NewMiddleware(Config{Username: "admin", Password: "secret"})
	h := m.Wrap(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/routes", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Basic", w.Header().Get("WWW-Authenticate"))
}

func TestPublicPathsBypassAuth(t *testing.T) {
	m := NewMiddleware(Config{
		Username:    "admin",
		Password:    "secret",
		PublicPaths: []string{"/v1/health", "/metrics"},
	})
	h := m.Wrap(okHandler())

	for _, path := range []string{"/v1/health", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "path %s should be public", path)
	}

	req := httptest.NewRequest(http.MethodGet, "/routes", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRateLimiting(t *testing.T) {
	m := NewMiddleware(Config{
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 0.001,
			BurstSize:         2,
		},
	})
	h := m.Wrap(okHandler())

	status := func() int {
		req := httptest.NewRequest(http.MethodGet, "/routes", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	require.Equal(t, http.StatusOK, status())
	require.Equal(t, http.StatusOK, status())
	assert.Equal(t, http.StatusTooManyRequests, status())
}

func TestRateLimiterDefaultsWhenRatesUnset(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Enabled: true})

	// unset rates fall back to 10 rps / burst 20 rather than
	// rejecting everything from the first request
	for i := 0; i < 20; i++ {
		assert.True(t, rl.Allow("client"), "request %d within default burst", i+1)
	}
	assert.False(t, rl.Allow("client"))
}

func TestPublicPathsBypassRateLimit(t *testing.T) {
	m := NewMiddleware(Config{
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 0.001,
			BurstSize:         1,
		},
		PublicPaths: []string{"/v1/health"},
	})
	h := m.Wrap(okHandler())

	status := func(path string) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.RemoteAddr = "10.0.0.1:1234"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	// health probes never consume rate-limit budget
	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusOK, status("/v1/health"))
	}
	require.Equal(t, http.StatusOK, status("/routes"))
	assert.Equal(t, http.StatusTooManyRequests, status("/routes"))
	assert.Equal(t, http.StatusOK, status("/v1/health"))
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{Enabled: false})
	for i := 0; i < 100; i++ {
		assert.True(t, rl.Allow("client"))
	}
}

func TestRateLimiterPerClient(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{
		Enabled:           true,
		RequestsPerSecond: 0.001,
		BurstSize:         1,
	})

	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	// a different client has its own bucket
	assert.True(t, rl.Allow("b"))
}
