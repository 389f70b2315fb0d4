package scanner

import (
	"sort"
	"sync"
)

// Registry maps service names to scanners. It holds no scan state and
// is safe to share across concurrent engine instances.
type Registry struct {
	mu       sync.RWMutex
	scanners map[string]ServiceScanner
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: make(map[string]ServiceScanner)}
}

// Register adds or replaces the scanner for its service name.
func (r *Registry) Register(s ServiceScanner) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scanners[s.ServiceName()] = s
}

// Get returns the scanner for a service name.
func (r *Registry) Get(name string) (ServiceScanner, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scanners[name]
	return s, ok
}

// Has reports whether a service name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.scanners[name]
	return ok
}

// All returns every registered scanner.
func (r *Registry) All() []ServiceScanner {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := make([]ServiceScanner, 0, len(r.scanners))
	for _, s := range r.scanners {
		all = append(all, s)
	}
	return all
}

// ServiceNames returns registered service names, sorted for stable
// iteration order.
func (r *Registry) ServiceNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.scanners))
	for name := range r.scanners {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
