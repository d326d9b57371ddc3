package agentforce

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	DefaultIdleTTL       = 30 * time.Minute
	DefaultEvictInterval = 5 * time.Minute
)

// Evictor periodically drops conversations that have gone idle, so an
// abandoned browser tab does not pin its token and session forever.
type Evictor struct {
	client   *Client
	ttl      time.Duration
	interval time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewEvictor creates an evictor for client. Zero values pick the defaults.
func NewEvictor(client *Client, ttl, interval time.Duration) *Evictor {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	if interval <= 0 {
		interval = DefaultEvictInterval
	}

	return &Evictor{
		client:   client,
		ttl:      ttl,
		interval: interval,
	}
}

// Start begins the eviction loop.
func (e *Evictor) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return fmt.Errorf("evictor is already running")
	}

	e.running = true
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})
	go e.run(e.stopCh, e.doneCh)

	log.Info().
		Dur("idle_ttl", e.ttl).
		Dur("interval", e.interval).
		Msg("Conversation evictor started")

	return nil
}

// Stop halts the eviction loop and waits for the in-flight sweep to finish.
func (e *Evictor) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return fmt.Errorf("evictor is not running")
	}

	close(e.stopCh)
	<-e.doneCh
	e.running = false

	log.Info().Msg("Conversation evictor stopped")

	return nil
}

// IsRunning returns whether the eviction loop is active.
func (e *Evictor) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// RunNow immediately sweeps idle conversations and returns how many were
// dropped.
func (e *Evictor) RunNow() int {
	return len(e.client.EvictIdle(e.ttl))
}

func (e *Evictor) run(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			e.RunNow()
		case <-stopCh:
			return
		}
	}
}
