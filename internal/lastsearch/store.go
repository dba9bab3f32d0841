// Package lastsearch remembers the most recently searched city between
// sessions.
package lastsearch

import (
	"context"
	"errors"
	"sync"
)

// Key is the name the last searched city is stored under.
const Key = "lastCity"

// ErrNotFound is returned when no city has been stored yet.
var ErrNotFound = errors.New("no last searched city")

// Store persists a single city name.
type Store interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, city string) error
}

// MemoryStore keeps the city in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	city string
	set  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.set {
		return "", ErrNotFound
	}
	return s.city, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, city string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.city = city
	s.set = true
	return nil
}

var _ Store = (*MemoryStore)(nil)
