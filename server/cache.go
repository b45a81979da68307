package server

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
	"time"
)

// responseCache stores rendered API responses. Each entry holds the full
// response (status, headers, body) keyed by method, path and query string.
// It is cleared whenever the catalog is reloaded.
type responseCache struct {
	mu         sync.RWMutex
	entries    map[string]*cacheEntry
	ttl        time.Duration // 0 disables caching
	generation uint64        // bumped by Clear
}

// cacheEntry represents a cached response with expiration time.
type cacheEntry struct {
	status    int
	headers   http.Header
	body      []byte
	expiresAt time.Time
}

func newResponseCache(ttl time.Duration) *responseCache {
	return &responseCache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
	}
}

// cacheKey generates a unique key for a request based on method, path, and query.
func cacheKey(r *http.Request) string {
	h := sha256.New()
	h.Write([]byte(r.Method))
	h.Write([]byte(":"))
	h.Write([]byte(r.URL.Path))
	h.Write([]byte("?"))
	h.Write([]byte(r.URL.RawQuery))
	return hex.EncodeToString(h.Sum(nil))
}

// Get retrieves a cached response if available and not expired.
func (c *responseCache) Get(r *http.Request) *cacheEntry {
	if c.ttl <= 0 {
		return nil
	}
	key := cacheKey(r)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil
	}

	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil
	}
	return entry
}

// Generation identifies the cache contents between two calls to Clear.
func (c *responseCache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// Set stores a response rendered during generation. Responses rendered
// before the last Clear are dropped.
func (c *responseCache) Set(r *http.Request, generation uint64, status int, headers http.Header, body []byte) {
	if c.ttl <= 0 {
		return
	}
	entry := &cacheEntry{
		status:    status,
		headers:   headers.Clone(),
		body:      body,
		expiresAt: time.Now().Add(c.ttl),
	}

	c.mu.Lock()
	if generation == c.generation {
		c.entries[cacheKey(r)] = entry
	}
	c.mu.Unlock()
}

// Clear removes all entries from the cache.
func (c *responseCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]*cacheEntry)
	c.generation++
	c.mu.Unlock()
}

// Prune removes expired entries from the cache and reports how many went.
func (c *responseCache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	pruned := 0
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
			pruned++
		}
	}
	return pruned
}

// pruneEvery prunes the cache on a ticker until ctx is done.
func (c *responseCache) pruneEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Prune()
		}
	}
}

// pruneInterval is how often Run prunes the cache: once per TTL, but no
// more than once a second.
func (c *responseCache) pruneInterval() time.Duration {
	return max(c.ttl, time.Second)
}

// Size returns the number of entries in the cache.
func (c *responseCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// cachedResponseWriter wraps http.ResponseWriter to capture the response
// for caching purposes.
type cachedResponseWriter struct {
	http.ResponseWriter
	statusCode int
	body       []byte
}

func (c *cachedResponseWriter) WriteHeader(code int) {
	c.statusCode = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *cachedResponseWriter) Write(b []byte) (int, error) {
	c.body = append(c.body, b...)
	return c.ResponseWriter.Write(b)
}

// newCacheHandler serves successful GET /api responses from the cache.
func newCacheHandler(h http.Handler, cache *responseCache) http.Handler {
	if cache.ttl <= 0 {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || !strings.HasPrefix(r.URL.Path, "/api/") {
			h.ServeHTTP(w, r)
			return
		}

		if entry := cache.Get(r); entry != nil {
			for k, v := range entry.headers {
				w.Header()[k] = v
			}
			w.Header().Set("X-Cache", "HIT")
			w.WriteHeader(entry.status)
			w.Write(entry.body)
			return
		}

		generation := cache.Generation()
		w.Header().Set("X-Cache", "MISS")
		cw := &cachedResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		h.ServeHTTP(cw, r)
		if cw.statusCode == http.StatusOK {
			headers := w.Header().Clone()
			// Compression happens outside the cache; store the plain body.
			for _, k := range []string{"X-Cache", "Content-Encoding", "Content-Length"} {
				headers.Del(k)
			}
			cache.Set(r, generation, cw.statusCode, headers, cw.body)
		}
	})
}
