package featureflags

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository keeps flags in process memory. Values are lost on
// restart; defaults from the service fill the gaps.
type InMemoryRepository struct {
	mu    sync.RWMutex
	flags map[string]*Flag
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		flags: make(map[string]*Flag),
	}
}

// NewInMemoryRepositoryWithFlags creates an in-memory repository with initial flags.
func NewInMemoryRepositoryWithFlags(flags map[string]*Flag) *InMemoryRepository {
	repo := NewInMemoryRepository()
	for k, v := range flags {
		repo.flags[k] = copyFlag(v)
	}
	return repo
}

// GetFlag retrieves a single feature flag by key.
func (r *InMemoryRepository) GetFlag(_ context.Context, key string) (*Flag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	flag, ok := r.flags[key]
	if !ok {
		return nil, ErrFlagNotFound
	}
	return copyFlag(flag), nil
}

// GetAllFlags retrieves all feature flags.
func (r *InMemoryRepository) GetAllFlags(_ context.Context) (map[string]*Flag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*Flag, len(r.flags))
	for k, v := range r.flags {
		result[k] = copyFlag(v)
	}
	return result, nil
}

// SetFlag creates or updates a feature flag.
func (r *InMemoryRepository) SetFlag(_ context.Context, flag *Flag) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := copyFlag(flag)
	stored.UpdatedAt = time.Now()
	r.flags[flag.Key] = stored
	return nil
}

// SetFlags creates or updates multiple feature flags atomically.
func (r *InMemoryRepository) SetFlags(_ context.Context, flags []*Flag) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, flag := range flags {
		stored := copyFlag(flag)
		stored.UpdatedAt = now
		r.flags[flag.Key] = stored
	}
	return nil
}

// DeleteFlag removes a feature flag by key.
func (r *InMemoryRepository) DeleteFlag(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.flags[key]; !ok {
		return ErrFlagNotFound
	}
	delete(r.flags, key)
	return nil
}

func copyFlag(f *Flag) *Flag {
	return &Flag{Key: f.Key, Value: f.Value, UpdatedAt: f.UpdatedAt}
}

// Ensure InMemoryRepository implements Repository interface.
var _ Repository = (*InMemoryRepository)(nil)
