package index

import (
	"fmt"
	"sort"

	"github.com/kailas-cloud/esremap/internal/domain"
	domindex "github.com/kailas-cloud/esremap/internal/domain/index"
)

// Registry holds one Service per configured logical index, keyed by base name.
type Registry struct {
	services map[string]*Service
}

// NewRegistry builds a service for every config through factory.
func NewRegistry(cfgs []domindex.Config, factory Factory, locker Locker, opts ...Option) (*Registry, error) {
	r := &Registry{services: make(map[string]*Service, len(cfgs))}
	for _, cfg := range cfgs {
		strat, err := factory(cfg)
		if err != nil {
			return nil, fmt.Errorf("index %s: %w", cfg.BaseName, err)
		}
		r.services[cfg.BaseName] = New(strat, locker, factory, opts...)
	}
	return r, nil
}

// Get returns the service of a configured index.
func (r *Registry) Get(name string) (*Service, error) {
	s, ok := r.services[name]
	if !ok {
		return nil, fmt.Errorf("index %q: %w", name, domain.ErrIndexNotConfigured)
	}
	return s, nil
}

// Lookup returns the service of a configured index, or of one of its segments when segment is set.
func (r *Registry) Lookup(name, segment string) (*Service, error) {
	s, err := r.Get(name)
	if err != nil {
		return nil, err
	}
	return s.Segment(segment)
}

// Names returns the configured base names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
