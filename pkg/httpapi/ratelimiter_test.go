package httpapi

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterCheckLimit(t *testing.T) {
	rl := NewRateLimiter(5) // 5 requests per minute
	defer rl.Stop()

	ip := "192.168.1.1"

	// First 5 requests should be allowed
	for i := 0; i < 5; i++ {
		assert.True(t, rl.CheckLimit(ip), "Request %d should be allowed", i+1)
	}

	// 6th request should be denied
	assert.False(t, rl.CheckLimit(ip), "6th request should be denied")
}

func TestRateLimiterMultipleIPs(t *testing.T) {
	rl := NewRateLimiter(3)
	defer rl.Stop()

	ip1 := "192.168.1.1"
	ip2 := "192.168.1.2"

	// Each IP should have independent limits
	for i := 0; i < 3; i++ {
		assert.True(t, rl.CheckLimit(ip1))
		assert.True(t, rl.CheckLimit(ip2))
	}

	// Both IPs should be rate limited independently
	assert.False(t, rl.CheckLimit(ip1))
	assert.False(t, rl.CheckLimit(ip2))
}

func TestRateLimiterGetRetryAfter(t *testing.T) {
	rl := NewRateLimiter(2)
	defer rl.Stop()

	ip := "192.168.1.1"

	rl.CheckLimit(ip)
	rl.CheckLimit(ip)
	rl.CheckLimit(ip) // denied

	retryAfter := rl.GetRetryAfter(ip)
	assert.Greater(t, retryAfter, 0)
	assert.LessOrEqual(t, retryAfter, 60)
}

func TestRateLimiterGetRetryAfterNoRequests(t *testing.T) {
	rl := NewRateLimiter(5)
	defer rl.Stop()

	retryAfter := rl.GetRetryAfter("192.168.1.1")
	assert.Equal(t, 0, retryAfter)
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	rl := NewRateLimiter(2)
	defer rl.Stop()

	ip := "192.168.1.1"

	assert.True(t, rl.CheckLimit(ip))
	time.Sleep(100 * time.Millisecond)
	assert.True(t, rl.CheckLimit(ip))

	assert.False(t, rl.CheckLimit(ip))

	// Backdate the first request so it falls out of the window.
	rl.mu.Lock()
	window := rl.windows[ip]
	window.requests[0] = time.Now().UnixMilli() - 61_000
	rl.mu.Unlock()

	assert.True(t, rl.CheckLimit(ip))
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(5)
	defer rl.Stop()

	ip := "192.168.1.1"

	rl.CheckLimit(ip)

	rl.mu.RLock()
	_, exists := rl.windows[ip]
	rl.mu.RUnlock()
	assert.True(t, exists)

	// Backdate every request, then sweep.
	rl.mu.Lock()
	window := rl.windows[ip]
	for i := range window.requests {
		window.requests[i] = time.Now().UnixMilli() - 61_000
	}
	rl.mu.Unlock()

	rl.cleanup()

	rl.mu.RLock()
	_, exists = rl.windows[ip]
	rl.mu.RUnlock()
	assert.False(t, exists)
}

func TestRateLimiterStopIdempotent(t *testing.T) {
	rl := NewRateLimiter(5)

	assert.NotPanics(t, func() {
		rl.Stop()
		rl.Stop()
	})
}
