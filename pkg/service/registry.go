package service

import (
	"fmt"
	"sync"
)

// Registry holds the named services the process hosts. Registration order is
// preserved: All and Names yield services in the order they were registered,
// which is also the order the orchestrator initializes them in.
//
// Registration happens during process wiring, before Startup. The registry is
// safe for concurrent lookups afterwards.
//
// Example usage:
//
//	reg := service.NewRegistry()
//	reg.Register(fuzzy)
//	reg.Register(graph)
//
//	svc, _ := reg.Get("fuzzymatch")
type Registry struct {
	mu       sync.RWMutex
	services map[string]Service
	order    []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		services: make(map[string]Service),
	}
}

// Register adds a service under its Name. Returns DuplicateServiceError if
// the name is already taken.
func (r *Registry) Register(svc Service) error {
	if svc == nil {
		return fmt.Errorf("cannot register nil service")
	}
	name := svc.Name()
	if name == "" {
		return fmt.Errorf("cannot register service with empty name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.services[name]; exists {
		return &DuplicateServiceError{Name: name}
	}

	r.services[name] = svc
	r.order = append(r.order, name)
	return nil
}

// Get returns the service registered under name, or UnknownServiceError.
func (r *Registry) Get(name string) (Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	svc, ok := r.services[name]
	if !ok {
		return nil, &UnknownServiceError{Name: name}
	}
	return svc, nil
}

// All returns the registered services in registration order.
func (r *Registry) All() []Service {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Service, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.services[name])
	}
	return out
}

// Names returns the registered service names in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Len returns the number of registered services.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
