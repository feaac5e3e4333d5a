// Package registry holds the live provider instances, one per type tag.
package registry

import (
	"slices"
	"sync"
)

// Typed is implemented by anything registered under a type tag.
type Typed[K ~string] interface {
	Type() K
}

// Registry maps a type tag to its active instance. The last Register for a
// tag wins. A Registry performs no I/O and is safe for concurrent use.
type Registry[K ~string, P Typed[K]] struct {
	mu    sync.RWMutex
	items map[K]P
	order []K
}

// New creates an empty registry
func New[K ~string, P Typed[K]]() *Registry[K, P] {
	return &Registry[K, P]{items: make(map[K]P)}
}

// Register stores p under p.Type(), replacing any previous instance for that
// tag. A replaced tag keeps its original position in List.
func (r *Registry[K, P]) Register(p P) {
	key := p.Type()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[key]; !exists {
		r.order = append(r.order, key)
	}
	r.items[key] = p
}

// Get returns the instance registered for key
func (r *Registry[K, P]) Get(key K) (P, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[key]
	return p, ok
}

// Has reports whether an instance is registered for key
func (r *Registry[K, P]) Has(key K) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.items[key]
	return ok
}

// List returns the registered instances in registration order
func (r *Registry[K, P]) List() []P {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]P, 0, len(r.order))
	for _, key := range r.order {
		out = append(out, r.items[key])
	}
	return out
}

// Types returns the registered tags in registration order
func (r *Registry[K, P]) Types() []K {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.order)
}

// Unregister removes the instance for key and reports whether one existed
func (r *Registry[K, P]) Unregister(key K) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[key]; !ok {
		return false
	}
	delete(r.items, key)
	r.order = slices.DeleteFunc(r.order, func(k K) bool { return k == key })
	return true
}

// Len returns the number of registered instances
func (r *Registry[K, P]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
