package rate

import (
	"context"
	"sync"
	"time"
)

// MemoryStorage implements Storage using an in-memory map with TTL expiry.
type MemoryStorage struct {
	mu   sync.RWMutex
	data map[string]*storageEntry
	done chan struct{}
	once sync.Once
}

type storageEntry struct {
	state     State
	expiresAt time.Time
}

// NewMemoryStorage creates a new in-memory storage
func NewMemoryStorage() *MemoryStorage {
	s := &MemoryStorage{
		data: make(map[string]*storageEntry),
		done: make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

// Get retrieves the counter record for a key
func (s *MemoryStorage) Get(ctx context.Context, key string) (*State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.data[key]
	if !exists || time.Now().After(entry.expiresAt) {
		return nil, nil
	}

	state := entry.state
	return &state, nil
}

// Set stores the counter record with the given TTL
func (s *MemoryStorage) Set(ctx context.Context, key string, state *State, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ttl <= 0 {
		ttl = time.Minute
	}
	s.data[key] = &storageEntry{
		state:     *state,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Delete removes the record for a key
func (s *MemoryStorage) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// Close stops the cleanup loop
func (s *MemoryStorage) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}

// Ping always succeeds for the in-memory backend
func (s *MemoryStorage) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStorage) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for key, entry := range s.data {
				if now.After(entry.expiresAt) {
					delete(s.data, key)
				}
			}
			s.mu.Unlock()
		}
	}
}
