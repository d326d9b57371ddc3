package agentforce

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// conversation is the cached platform state for one conversation key. The
// mutex serializes turns; lastUsed is atomic so the evictor can read it
// while a turn is in flight.
type conversation struct {
	mu       sync.Mutex
	token    *Token
	session  *Session
	lastUsed atomic.Int64
}

func (c *conversation) touch() {
	c.lastUsed.Store(time.Now().UnixNano())
}

func (c *conversation) idleFor(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, c.lastUsed.Load()))
}

// registry maps conversation keys to their cached state.
type registry struct {
	mu    sync.RWMutex
	items map[string]*conversation
}

func newRegistry() *registry {
	return &registry{items: make(map[string]*conversation)}
}

// get returns the conversation for key, creating it if needed.
func (r *registry) get(key string) *conversation {
	r.mu.RLock()
	conv, ok := r.items[key]
	r.mu.RUnlock()
	if ok {
		return conv
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if conv, ok := r.items[key]; ok {
		return conv
	}
	conv = &conversation{}
	conv.touch()
	r.items[key] = conv
	return conv
}

// remove drops the conversation for key, reporting whether one existed.
func (r *registry) remove(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.items[key]
	delete(r.items, key)
	return ok
}

// removeAll drops every conversation and returns how many there were.
func (r *registry) removeAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(r.items)
	r.items = make(map[string]*conversation)
	return n
}

func (r *registry) len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// evictIdle removes conversations idle beyond ttl and returns their keys.
// A turn in flight has touched its conversation at turn start, so live
// conversations stay out of reach as long as ttl comfortably exceeds the
// message timeout.
func (r *registry) evictIdle(ttl time.Duration) []string {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	var evicted []string
	for key, conv := range r.items {
		if conv.idleFor(now) >= ttl {
			delete(r.items, key)
			evicted = append(evicted, key)
		}
	}
	return evicted
}

// validateConversationKey rejects keys that would be unusable in logs,
// metrics labels or client-facing payloads.
func validateConversationKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("conversation key cannot be empty")
	}
	if len(key) > 128 {
		return fmt.Errorf("conversation key cannot exceed 128 characters")
	}
	if strings.ContainsAny(key, "\x00\n\r") {
		return fmt.Errorf("conversation key cannot contain control characters")
	}
	return nil
}
