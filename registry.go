package inject

import (
	"maps"
	"slices"
	"strings"
	"sync"
)

// Registry is a concurrency-safe map from ServiceKey to V.
//
// The zero value is not usable, use [NewRegistry].
type Registry[V any] struct {
	mu      sync.RWMutex
	entries map[ServiceKey]V
}

// NewRegistry creates an empty Registry.
func NewRegistry[V any]() *Registry[V] {
	return &Registry[V]{entries: map[ServiceKey]V{}}
}

// Get returns the value for key. A miss is reported through ok, never as an error.
func (r *Registry[V]) Get(key ServiceKey) (value V, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	value, ok = r.entries[key]
	return value, ok
}

// Set stores value under key, replacing any existing entry.
func (r *Registry[V]) Set(key ServiceKey, value V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = value
}

// Update atomically replaces the entry for key with the result of fn.
//
// fn receives the existing entry, if any.
func (r *Registry[V]) Update(key ServiceKey, fn func(existing V, ok bool) V) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.entries[key]
	r.entries[key] = fn(existing, ok)
}

// Delete removes the entry for key.
func (r *Registry[V]) Delete(key ServiceKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, key)
}

// RemoveAll empties the registry.
func (r *Registry[V]) RemoveAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.entries)
}

// Len returns the number of entries.
func (r *Registry[V]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Keys returns all keys, ordered by their string form.
func (r *Registry[V]) Keys() []ServiceKey {
	r.mu.RLock()
	keys := slices.Collect(maps.Keys(r.entries))
	r.mu.RUnlock()
	slices.SortFunc(keys, func(a, b ServiceKey) int { return strings.Compare(a.String(), b.String()) })
	return keys
}

// Clone returns a shallow copy of the registry.
func (r *Registry[V]) Clone() *Registry[V] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return &Registry[V]{entries: maps.Clone(r.entries)}
}

// Merge returns a new Registry containing the entries of a and b, with b
// winning on collision. Neither input is modified.
func Merge[V any](a, b *Registry[V]) *Registry[V] {
	out := a.Clone()
	b.mu.RLock()
	defer b.mu.RUnlock()
	maps.Copy(out.entries, b.entries)
	return out
}
