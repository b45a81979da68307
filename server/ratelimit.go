package server

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// rateLimiter implements a simple in-memory token bucket keyed by client IP.
type rateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket
	limit   int
	window  time.Duration
}

type tokenBucket struct {
	tokens     int
	lastRefill time.Time
}

func newRateLimiter(limit int, window time.Duration) *rateLimiter {
	if limit <= 0 {
		limit = 60
	}
	if window <= 0 {
		window = time.Minute
	}
	return &rateLimiter{
		buckets: make(map[string]*tokenBucket),
		limit:   limit,
		window:  window,
	}
}

// Allow returns true if a request is permitted for the given key.
func (rl *rateLimiter) Allow(key string) bool {
	if rl == nil {
		return true
	}
	if key == "" {
		key = "__global__"
	}
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	bucket, ok := rl.buckets[key]
	if !ok {
		rl.buckets[key] = &tokenBucket{tokens: rl.limit - 1, lastRefill: now}
		return true
	}

	// Refill tokens based on elapsed windows.
	if elapsed := now.Sub(bucket.lastRefill); elapsed >= rl.window {
		bucket.tokens = min(bucket.tokens+int(elapsed/rl.window)*rl.limit, rl.limit)
		bucket.lastRefill = now
	}

	if bucket.tokens <= 0 {
		return false
	}
	bucket.tokens--
	return true
}

// newRateLimitHandler rejects requests over the limit with 429.
func newRateLimitHandler(h http.Handler, rl *rateLimiter, enabled bool) http.Handler {
	if !enabled {
		return h
	}
	retryAfter := strconv.Itoa(int(rl.window / time.Second))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(rateLimitKey(r)) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Header().Set("Retry-After", retryAfter)
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"code":"HTTP-429","message":"Too Many Requests"}}`))
			return
		}
		h.ServeHTTP(w, r)
	})
}

func rateLimitKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "ip:" + r.RemoteAddr
	}
	return "ip:" + host
}
