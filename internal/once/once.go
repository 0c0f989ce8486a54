// Package once provides a lazily computed, cached value.
package once

import (
	"sync"
	"sync/atomic"
)

// A Cell holds a value that is computed at most once.
//
// Reads of a populated cell take no lock. On a miss the cell's own mutex is
// acquired, the cell is re-checked, and only then is the value computed and
// stored. Callers arriving during the first computation block until it
// completes and then observe the same value.
//
// A failed computation leaves the cell empty so a later call can retry.
//
// The zero value is an empty cell ready for use.
type Cell[T any] struct {
	mu    sync.Mutex
	value atomic.Pointer[T]
}

// Get returns the cached value, computing it with fn if the cell is empty.
func (c *Cell[T]) Get(fn func() (T, error)) (T, error) {
	if v := c.value.Load(); v != nil {
		return *v, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if v := c.value.Load(); v != nil {
		return *v, nil
	}
	v, err := fn()
	if err != nil {
		var zero T
		return zero, err
	}
	c.value.Store(&v)
	return v, nil
}

// Peek returns the cached value without computing it.
func (c *Cell[T]) Peek() (T, bool) {
	if v := c.value.Load(); v != nil {
		return *v, true
	}
	var zero T
	return zero, false
}

// Reset empties the cell.
func (c *Cell[T]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value.Store(nil)
}
