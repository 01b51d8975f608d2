package transcribe

import (
	"sort"
	"sync"
)

// Factory constructs the provider for a normalized recognizer name.
type Factory func(name string) (Provider, error)

// Registry is a process-wide cache of providers keyed by recognizer name.
// A provider is built on first use and reused afterwards. Construction
// errors are returned to the caller and not cached, so a later call retries.
type Registry struct {
	mu        sync.Mutex
	factory   Factory
	providers map[string]Provider
}

// NewRegistry returns an empty registry backed by factory.
func NewRegistry(factory Factory) *Registry {
	return &Registry{
		factory:   factory,
		providers: make(map[string]Provider),
	}
}

// Get returns the cached provider for name, constructing it if needed.
// Concurrent first calls for the same name construct it once.
func (r *Registry) Get(name string) (Provider, error) {
	key := Normalize(name)

	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.providers[key]; ok {
		return p, nil
	}
	p, err := r.factory(key)
	if err != nil {
		return nil, err
	}
	r.providers[key] = p
	return p, nil
}

// Len returns the number of cached providers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.providers)
}

// Cached returns the names of the cached providers in sorted order.
func (r *Registry) Cached() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.providers))
	for n := range r.providers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
