package gateway

import (
	"sync"
	"time"
)

// Default per-client limits.
const (
	defaultRequestsPerMinute = 60
	defaultMaxConcurrent     = 10
)

// ClientRateLimiter implements sliding window rate limiting per client
type ClientRateLimiter struct {
	mu                sync.Mutex
	requestsPerMinute int
	maxConcurrent     int
	stamps            []time.Time
	inFlight          int
}

// NewClientRateLimiter creates a new rate limiter with default limits
func NewClientRateLimiter() *ClientRateLimiter {
	return NewClientRateLimiterWithLimits(defaultRequestsPerMinute, defaultMaxConcurrent)
}

// NewClientRateLimiterWithLimits creates a rate limiter with custom limits
func NewClientRateLimiterWithLimits(requestsPerMinute, maxConcurrent int) *ClientRateLimiter {
	return &ClientRateLimiter{
		requestsPerMinute: requestsPerMinute,
		maxConcurrent:     maxConcurrent,
		stamps:            make([]time.Time, 0),
	}
}

// CheckRequestAllowed checks if a request is allowed under rate limits
func (r *ClientRateLimiter) CheckRequestAllowed() (bool, string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inFlight >= r.maxConcurrent {
		return false, "too many concurrent requests"
	}

	r.pruneLocked(time.Now())
	if len(r.stamps) >= r.requestsPerMinute {
		return false, "rate limit exceeded"
	}

	return true, ""
}

// RecordRequestStart records the start of a request
func (r *ClientRateLimiter) RecordRequestStart() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stamps = append(r.stamps, time.Now())
	r.inFlight++
}

// RecordRequestEnd records the end of a request
func (r *ClientRateLimiter) RecordRequestEnd() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.inFlight > 0 {
		r.inFlight--
	}
}

// UpdateLimits updates the rate limits
func (r *ClientRateLimiter) UpdateLimits(requestsPerMinute, maxConcurrent int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.requestsPerMinute = requestsPerMinute
	r.maxConcurrent = maxConcurrent
}

// GetStats returns the request count inside the current window and the
// number of in-flight requests.
func (r *ClientRateLimiter) GetStats() (requestCount, concurrentCount int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pruneLocked(time.Now())
	return len(r.stamps), r.inFlight
}

// pruneLocked drops stamps older than the one-minute window. Callers hold
// r.mu.
func (r *ClientRateLimiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-time.Minute)
	kept := r.stamps[:0]
	for _, stamp := range r.stamps {
		if stamp.After(cutoff) {
			kept = append(kept, stamp)
		}
	}
	r.stamps = kept
}
