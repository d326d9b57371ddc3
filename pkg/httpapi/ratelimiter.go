package httpapi

import (
	"sync"
	"time"
)

const windowMillis = 60_000

// ipWindow tracks request timestamps for one client IP.
type ipWindow struct {
	requests []int64
}

// RateLimiter implements per-IP rate limiting with a sliding one-minute
// window. Idle IPs are pruned by a background sweep so the map does not
// grow without bound.
type RateLimiter struct {
	windows           map[string]*ipWindow
	maxRequestsPerMin int
	mu                sync.RWMutex
	cleanupInterval   time.Duration
	stopCleanup       chan struct{}
	stopOnce          sync.Once
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(maxRequestsPerMinute int) *RateLimiter {
	rl := &RateLimiter{
		windows:           make(map[string]*ipWindow),
		maxRequestsPerMin: maxRequestsPerMinute,
		cleanupInterval:   5 * time.Minute,
		stopCleanup:       make(chan struct{}),
	}

	go rl.runCleanup()

	return rl
}

// CheckLimit checks if a request from the given IP is allowed
func (rl *RateLimiter) CheckLimit(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now().UnixMilli()

	window, exists := rl.windows[ip]
	if !exists {
		window = &ipWindow{}
		rl.windows[ip] = window
	}

	window.requests = pruneOld(window.requests, now)

	if len(window.requests) >= rl.maxRequestsPerMin {
		return false
	}

	window.requests = append(window.requests, now)
	return true
}

// GetRetryAfter returns the number of seconds until the rate limit resets
func (rl *RateLimiter) GetRetryAfter(ip string) int {
	rl.mu.RLock()
	defer rl.mu.RUnlock()

	window, exists := rl.windows[ip]
	if !exists || len(window.requests) == 0 {
		return 0
	}

	now := time.Now().UnixMilli()
	oldest := window.requests[0]

	retryAfterMs := windowMillis - (now - oldest)
	if retryAfterMs < 0 {
		return 0
	}

	// Round up to whole seconds.
	return int((retryAfterMs + 999) / 1000)
}

// Stop stops the cleanup goroutine. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

func (rl *RateLimiter) runCleanup() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanup drops idle IPs and stale timestamps.
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now().UnixMilli()

	for ip, window := range rl.windows {
		window.requests = pruneOld(window.requests, now)
		if len(window.requests) == 0 {
			delete(rl.windows, ip)
		}
	}
}

func pruneOld(stamps []int64, now int64) []int64 {
	kept := stamps[:0]
	for _, stamp := range stamps {
		if now-stamp < windowMillis {
			kept = append(kept, stamp)
		}
	}
	return kept
}
