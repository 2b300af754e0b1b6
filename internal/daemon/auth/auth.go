// Copyright 2026 The Portgate Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package auth provides authentication middleware for the read API.
package auth

import (
	"crypto/subtle"
	"net/http"
)

// Config contains authentication configuration.
type Config struct {
	// Username and Password are the basic auth credentials. Auth is
	// enforced only when Password is non-empty; with no password
	// configured every request is allowed through.
	Username string
	Password string

	// RateLimit contains rate limiting configuration.
	RateLimit RateLimitConfig

	// PublicPaths are exact request paths served without credentials,
	// such as health and metrics endpoints.
	PublicPaths []string
}

// Middleware enforces optional basic auth and rate limiting.
type Middleware struct {
	config      Config
	rateLimiter *RateLimiter
}

// NewMiddleware creates a new auth middleware.
func NewMiddleware(cfg Config) *Middleware {
	return &Middleware{
		config:      cfg,
		rateLimiter: NewRateLimiter(cfg.RateLimit),
	}
}

// Enabled reports whether credentials are configured.
func (m *Middleware) Enabled() bool {
	return m.config.Password != ""
}

// Wrap returns a handler that authenticates requests before passing
// them to next. Public paths bypass both checks so health and metrics
// probes never consume rate-limit budget. Unauthenticated requests
// receive 401 with a basic auth challenge; rate-limited clients
// receive 429.
func (m *Middleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.isPublic(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		if !m.rateLimiter.Allow(clientKey(r)) {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		if !m.authenticate(r) {
			w.Header().Set("WWW-Authenticate", "Basic")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// isPublic reports whether the path is exempt from authentication.
func (m *Middleware) isPublic(path string) bool {
	for _, p := range m.config.PublicPaths {
		if path == p {
			return true
		}
	}
	return false
}

// authenticate checks the request's basic auth credentials with
// constant-time comparison.
func (m *Middleware) authenticate(r *http.Request) bool {
	if !m.Enabled() {
		return true
	}
	user, pass, ok := r.BasicAuth()
	if !ok {
		return false
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(m.config.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(m.config.Password)) == 1
	return userOK && passOK
}

// clientKey identifies the caller for rate limiting purposes.
func clientKey(r *http.Request) string {
	return r.RemoteAddr
}
