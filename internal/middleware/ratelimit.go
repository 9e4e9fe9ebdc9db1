// Package middleware holds HTTP middleware for the query API.
package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"
)

const (
	staleAfter      = 10 * time.Minute
	cleanupInterval = 5 * time.Minute
)

// RateLimiter enforces a per-client token bucket. Query resolution can
// fan out to a paid completion API, so each caller gets a bounded
// request budget per minute.
type RateLimiter struct {
	mu             sync.Mutex
	buckets        map[string]*tokenBucket
	requestsPerMin int
	done           chan struct{}
}

type tokenBucket struct {
	tokens     int
	lastRefill time.Time
}

// NewRateLimiter creates a limiter allowing requestsPerMin requests
// per client per minute.
func NewRateLimiter(requestsPerMin int) *RateLimiter {
	rl := &RateLimiter{
		buckets:        make(map[string]*tokenBucket),
		requestsPerMin: requestsPerMin,
		done:           make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// Middleware wraps a handler with rate limiting keyed by client IP.
func (rl *RateLimiter) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientKey(r)) {
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

// clientKey extracts the client IP, dropping the ephemeral port so a
// reconnecting client keeps its bucket.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b, ok := rl.buckets[key]
	if !ok {
		rl.buckets[key] = &tokenBucket{
			tokens:     rl.requestsPerMin - 1,
			lastRefill: now,
		}
		return true
	}

	// Refill proportionally to elapsed time.
	refill := int(now.Sub(b.lastRefill).Minutes() * float64(rl.requestsPerMin))
	if refill > 0 {
		b.tokens = min(rl.requestsPerMin, b.tokens+refill)
		b.lastRefill = now
	}

	if b.tokens > 0 {
		b.tokens--
		return true
	}
	return false
}

// cleanupLoop evicts buckets idle longer than staleAfter.
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.mu.Lock()
			now := time.Now()
			for key, b := range rl.buckets {
				if now.Sub(b.lastRefill) > staleAfter {
					delete(rl.buckets, key)
				}
			}
			rl.mu.Unlock()
		case <-rl.done:
			return
		}
	}
}

// Stop terminates the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	close(rl.done)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
