package providers

import (
	"log"
	"sort"
	"sync"
)

// Config is the flat configuration handed to a provider factory.
type Config map[string]string

// Factory constructs a Provider from configuration.
type Factory func(cfg Config) (Provider, error)

// Registry maps provider names to factories. Registration happens once at
// process start (each provider package self-registers in init); reads are
// safe under concurrent access.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or silently overwrites a factory under the given name.
// Overwriting supports test doubles.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[name]; exists {
		log.Printf("provider %q re-registered, overwriting", name)
	}
	r.factories[name] = factory
}

// Create looks up the factory for name and invokes it. An unregistered name
// yields the stub provider, whose every operation fails with
// ProviderNotConfigured: misconfiguration is loud but does not crash boot.
func (r *Registry) Create(name string, cfg Config) (Provider, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		log.Printf("provider %q not registered, falling back to stub", name)
		return NewStub(name), nil
	}
	return factory(cfg)
}

// IsRegistered reports whether a factory exists for name.
func (r *Registry) IsRegistered(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// Available lists registered provider names in stable order.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default is the process-wide registry provider packages register into.
// Callers receive it through dependency injection rather than reaching for
// the global at every call site.
var Default = NewRegistry()

// Register adds a factory to the default registry.
func Register(name string, factory Factory) {
	Default.Register(name, factory)
}

// Create constructs a provider from the default registry.
func Create(name string, cfg Config) (Provider, error) {
	return Default.Create(name, cfg)
}
