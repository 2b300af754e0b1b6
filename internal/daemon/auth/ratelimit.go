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

package auth

import (
	"sync"
	"time"
)

// RateLimitConfig contains rate limiting configuration.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained request rate allowed per client.
	RequestsPerSecond float64

	// BurstSize is the token bucket capacity.
	BurstSize int

	// Enabled controls whether rate limiting is active.
	Enabled bool
}

// tokenBucket implements a token bucket rate limiter.
type tokenBucket struct {
	mu             sync.Mutex
	tokens         float64
	maxTokens      float64
	refillRate     float64
	lastRefillTime time.Time
}

func newTokenBucket(rate float64, burst int) *tokenBucket {
	return &tokenBucket{
		tokens:         float64(burst),
		maxTokens:      float64(burst),
		refillRate:     rate,
		lastRefillTime: time.Now(),
	}
}

// allow checks if a request is allowed and consumes a token if so.
func (tb *tokenBucket) allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefillTime).Seconds()

	tb.tokens += elapsed * tb.refillRate
	if tb.tokens > tb.maxTokens {
		tb.tokens = tb.maxTokens
	}
	tb.lastRefillTime = now

	if tb.tokens >= 1.0 {
		tb.tokens -= 1.0
		return true
	}
	return false
}

// RateLimiter provides per-client rate limiting.
type RateLimiter struct {
	mu      sync.Mutex
	config  RateLimitConfig
	buckets map[string]*tokenBucket
}

// NewRateLimiter creates a rate limiter. When disabled, Allow always
// returns true.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	// Set defaults
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10 // 10 requests per second default
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = 20 // Allow bursts up to 20 requests
	}

	return &RateLimiter{
		config:  cfg,
		buckets: make(map[string]*tokenBucket),
	}
}

// Allow reports whether the given client may proceed.
func (rl *RateLimiter) Allow(client string) bool {
	if !rl.config.Enabled {
		return true
	}

	rl.mu.Lock()
	bucket, ok := rl.buckets[client]
	if !ok {
		bucket = newTokenBucket(rl.config.RequestsPerSecond, rl.config.BurstSize)
		rl.buckets[client] = bucket
	}
	rl.mu.Unlock()

	return bucket.allow()
}
