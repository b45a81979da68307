package server

import (
	"sync"
	"testing"
	"time"
)

func TestRateLimiter_Allow(t *testing.T) {
	rl := newRateLimiter(3, time.Second)

	for i := range 3 {
		if !rl.Allow("ip:1") {
			t.Errorf("request %d should be allowed", i+1)
		}
	}
	if rl.Allow("ip:1") {
		t.Error("4th request should be blocked")
	}

	time.Sleep(1100 * time.Millisecond)

	if !rl.Allow("ip:1") {
		t.Error("request after refill should be allowed")
	}
}

func TestRateLimiter_MultipleKeys(t *testing.T) {
	rl := newRateLimiter(2, time.Second)

	rl.Allow("ip:1")
	rl.Allow("ip:1")
	if rl.Allow("ip:1") {
		t.Error("ip:1 3rd request should be blocked")
	}

	if !rl.Allow("ip:2") || !rl.Allow("ip:2") {
		t.Error("ip:2 should have an independent quota")
	}
}

func TestRateLimiter_Defaults(t *testing.T) {
	rl := newRateLimiter(0, 0)
	if rl.limit != 60 || rl.window != time.Minute {
		t.Errorf("defaults = %d per %v", rl.limit, rl.window)
	}

	var nilLimiter *rateLimiter
	if !nilLimiter.Allow("ip:1") {
		t.Error("nil limiter must allow everything")
	}
}

func TestRateLimiter_Concurrent(t *testing.T) {
	rl := newRateLimiter(50, time.Minute)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Allow("ip:1") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("allowed %d requests, want 50", allowed)
	}
}
