package ratelimit

import (
	"context"
	"sync"
	"time"
)

// DefaultMaxKeys bounds the memory store when no capacity is given
const DefaultMaxKeys = 10000

type counter struct {
	count     int64
	expiresAt time.Time
}

// MemoryStore is a bounded in-process TTL store. Expired windows are swept
// when the store fills up, and the entry closest to expiry is evicted if it is still full.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*counter
	maxKeys int
	now     func() time.Time
}

// NewMemoryStore creates a store holding at most maxKeys windows
func NewMemoryStore(maxKeys int) *MemoryStore {
	if maxKeys <= 0 {
		maxKeys = DefaultMaxKeys
	}
	return &MemoryStore{
		entries: make(map[string]*counter),
		maxKeys: maxKeys,
		now:     time.Now,
	}
}

// Incr implements Store
func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c, ok := s.entries[key]
	if !ok || !now.Before(c.expiresAt) {
		if !ok && len(s.entries) >= s.maxKeys {
			s.makeRoom(now)
		}
		c = &counter{expiresAt: now.Add(window)}
		s.entries[key] = c
	}
	c.count++
	return c.count, c.expiresAt.Sub(now), nil
}

// Len reports the number of tracked windows
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) makeRoom(now time.Time) {
	var oldestKey string
	var oldest time.Time
	for k, c := range s.entries {
		if !now.Before(c.expiresAt) {
			delete(s.entries, k)
			continue
		}
		if oldestKey == "" || c.expiresAt.Before(oldest) {
			oldestKey, oldest = k, c.expiresAt
		}
	}
	if len(s.entries) >= s.maxKeys && oldestKey != "" {
		delete(s.entries, oldestKey)
	}
}
