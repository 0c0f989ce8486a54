package inject

import (
	"context"
	"sync/atomic"
)

var defaultContainer atomic.Pointer[Container]

// Setup replaces the process-wide default container.
func Setup(options ...Option) error {
	c, err := New(options...)
	if err != nil {
		return err
	}
	defaultContainer.Store(c)
	return nil
}

// Default returns the process-wide default container, creating an empty one
// if [Setup] has not been called.
func Default() *Container {
	if c := defaultContainer.Load(); c != nil {
		return c
	}
	defaultContainer.CompareAndSwap(nil, MustNew())
	return defaultContainer.Load()
}

// Reset discards the default container along with its cached singletons.
func Reset() {
	defaultContainer.Store(nil)
}

// Inject resolves T from the default container, panicking on failure.
func Inject[T any](ctx context.Context, options ...ResolveOption) T {
	return MustGet[T](ctx, Default(), options...)
}

// InjectLocal resolves T from the default container with local definitions,
// panicking on failure.
func InjectLocal[T any](ctx context.Context, configure func(d *Definitions), options ...ResolveOption) T {
	return MustGetLocal[T](ctx, Default(), configure, options...)
}
