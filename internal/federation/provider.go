package federation

import "strings"

// Registry resolves token lifecycles by provider name.
type Registry struct {
	lifecycles map[string]*Lifecycle
}

// NewRegistry creates a Registry holding the given lifecycles.
func NewRegistry(lifecycles ...*Lifecycle) *Registry {
	r := &Registry{lifecycles: make(map[string]*Lifecycle, len(lifecycles))}
	for _, l := range lifecycles {
		r.Register(l)
	}
	return r
}

// Register adds or replaces the lifecycle for its provider.
func (r *Registry) Register(l *Lifecycle) {
	r.lifecycles[l.Provider()] = l
}

// Get returns the lifecycle of the named provider, case-insensitively.
func (r *Registry) Get(provider string) (*Lifecycle, error) {
	l, ok := r.lifecycles[strings.ToLower(provider)]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return l, nil
}

// Providers returns the names of all registered providers.
func (r *Registry) Providers() []string {
	names := make([]string, 0, len(r.lifecycles))
	for name := range r.lifecycles {
		names = append(names, name)
	}
	return names
}
