package resilience

import (
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Health is a snapshot of a registered client's status.
type Health struct {
	Name          string
	CircuitState  gobreaker.State
	Counts        gobreaker.Counts
	LastSuccessAt *time.Time
	LastFailureAt *time.Time
	LastError     string
}

// IsHealthy reports whether the breaker is closed.
func (h *Health) IsHealthy() bool {
	return h.CircuitState == gobreaker.StateClosed
}

// IsDegraded reports whether the breaker is probing (half-open).
func (h *Health) IsDegraded() bool {
	return h.CircuitState == gobreaker.StateHalfOpen
}

// IsUnhealthy reports whether the breaker is open.
func (h *Health) IsUnhealthy() bool {
	return h.CircuitState == gobreaker.StateOpen
}

// Registry tracks guarded clients and the outcome of their last calls.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	now     func() time.Time
}

type entry struct {
	client        *Client
	lastSuccessAt *time.Time
	lastFailureAt *time.Time
	lastError     string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Register adds a client under name, replacing any previous one.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[name] = &entry{client: client}
}

// Unregister removes a client.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
}

// RecordSuccess marks the latest call of name as successful.
func (r *Registry) RecordSuccess(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[name]; ok {
		now := r.now()
		e.lastSuccessAt = &now
	}
}

// RecordFailure marks the latest call of name as failed.
func (r *Registry) RecordFailure(name string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[name]; ok {
		now := r.now()
		e.lastFailureAt = &now
		if err != nil {
			e.lastError = err.Error()
		}
	}
}

// Health returns the status of one client, or nil if it is not registered.
func (r *Registry) Health(name string) *Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return nil
	}
	return e.snapshot(name)
}

// All returns the status of every registered client, sorted by name.
func (r *Registry) All() []*Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Health, 0, len(r.entries))
	for name, e := range r.entries {
		out = append(out, e.snapshot(name))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Len returns the number of registered clients.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (e *entry) snapshot(name string) *Health {
	return &Health{
		Name:          name,
		CircuitState:  e.client.CircuitBreakerState(),
		Counts:        e.client.CircuitBreakerCounts(),
		LastSuccessAt: e.lastSuccessAt,
		LastFailureAt: e.lastFailureAt,
		LastError:     e.lastError,
	}
}
