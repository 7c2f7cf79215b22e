package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/ridegate/core"
)

// MemoryStore is an in-memory implementation of the Store interface with
// its own TTL sweep. It backs tests and the explicit single-instance
// degraded mode; it is never a transparent substitute for Redis because
// entries are not shared across instances.
type MemoryStore struct {
	entries map[string]entry
	mu      sync.RWMutex
	done    chan struct{}
	once    sync.Once
}

type entry struct {
	value     string
	expiresAt time.Time
}

// NewMemoryStore creates a new in-memory store and starts its sweep loop.
func NewMemoryStore(sweepInterval time.Duration) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]entry),
		done:    make(chan struct{}),
	}
	go s.sweep(sweepInterval)
	return s
}

// Set stores a key with a value and expiration time
func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
	return nil
}

// Get retrieves a value by key
func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || time.Now().After(e.expiresAt) {
		return "", core.ErrKeyNotFound
	}
	return e.value, nil
}

// Delete removes a key and reports whether it existed
func (s *MemoryStore) Delete(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return false, nil
	}
	delete(s.entries, key)
	if time.Now().After(e.expiresAt) {
		return false, nil
	}
	return true, nil
}

// Exists reports whether a key is present and unexpired
func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	return ok && !time.Now().After(e.expiresAt), nil
}

// Close stops the sweep loop.
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.done) })
}

// sweep periodically drops expired entries so the map cannot grow
// unbounded while no reads touch the dead keys.
func (s *MemoryStore) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for key, e := range s.entries {
				if now.After(e.expiresAt) {
					delete(s.entries, key)
				}
			}
			s.mu.Unlock()
		}
	}
}
