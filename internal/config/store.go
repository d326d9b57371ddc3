package config

import (
	"sync"
)

// Store serves the loaded configuration to the rest of the daemon. The
// first Get loads and caches; later Gets return the cached value until
// Invalidate or Reload. Conversations started under an older config keep
// their credentials; only new lookups see the reloaded values.
type Store struct {
	mu     sync.RWMutex
	loader *Loader
	cfg    *Config
}

// NewStore creates a store backed by the given config path
func NewStore(configPath string) *Store {
	return &Store{
		loader: NewLoader(configPath),
	}
}

// NewStoreWithConfig creates a store pre-seeded with a config, used by
// tests and by the daemon after an initial validated load
func NewStoreWithConfig(cfg *Config) *Store {
	return &Store{
		loader: NewLoader(""),
		cfg:    cfg,
	}
}

// Get returns the cached config, loading it on first use
func (s *Store) Get() (*Config, error) {
	s.mu.RLock()
	if s.cfg != nil {
		cfg := s.cfg
		s.mu.RUnlock()
		return cfg, nil
	}
	s.mu.RUnlock()

	return s.Reload()
}

// Reload re-reads the config from disk and swaps the cache
func (s *Store) Reload() (*Config, error) {
	cfg, err := s.loader.Load()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()

	return cfg, nil
}

// Invalidate drops the cache; the next Get re-reads from disk
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.cfg = nil
	s.mu.Unlock()
}

// Set replaces the cached config without touching disk
func (s *Store) Set(cfg *Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

// Path returns the backing config file path
func (s *Store) Path() string {
	return s.loader.GetConfigPath()
}
