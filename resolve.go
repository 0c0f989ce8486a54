package inject

import (
	"context"

	"github.com/alecthomas/errors"
)

// Get resolves a value of type T from c.
//
// Lookup starts with any local definitions owned by c, then c's own
// definitions, then each ancestor in turn. A definition found in an ancestor
// resolves its own dependencies against that ancestor. If no container
// defines T and T implements [Injectable], T constructs itself. Otherwise Get
// fails with [ErrMissingDependency].
func Get[T any](ctx context.Context, c *Container, options ...ResolveOption) (T, error) {
	var zero T
	o := resolveOptions{}
	for _, option := range options {
		option.applyResolve(&o)
	}
	key := KeyFor[T](o.name)
	ctx, err := enter(ctx, c, key)
	if err != nil {
		return zero, err
	}
	value, err := c.resolve(ctx, key, o.params)
	if err != nil {
		injectable, ok := injectableFor[T]()
		if !ok || !isMissing(err, key) {
			return zero, err
		}
		c.logger.DebugContext(ctx, "Constructing injectable", "key", key.String())
		if value, err = construct(ctx, c, key, injectable); err != nil {
			return zero, err
		}
		if ptr, ok := value.(*T); ok {
			value = *ptr
		}
	}
	out, ok := value.(T)
	if !ok {
		return zero, errors.Errorf("%s: resolved value has type %T", key, value)
	}
	return out, nil
}

// MustGet is Get but panics on error.
func MustGet[T any](ctx context.Context, c *Container, options ...ResolveOption) T {
	value, err := Get[T](ctx, c, options...)
	if err != nil {
		panic(err)
	}
	return value
}

// GetLocal resolves T from c with the definitions declared by configure
// shadowing c's own for the duration of the call, nested resolutions
// included.
//
// With [SnapshotOverlay] the local definitions are visible only to this call
// and may be nested. With [SharedOverlay] they are installed into a slot
// shared by all callers of c, and nesting fails with [ErrNestedLocalResolve].
func GetLocal[T any](ctx context.Context, c *Container, configure func(d *Definitions), options ...ResolveOption) (T, error) {
	ctx, release, err := c.withLocal(ctx, configure)
	if err != nil {
		var zero T
		return zero, err
	}
	defer release()
	return Get[T](ctx, c, options...)
}

// MustGetLocal is GetLocal but panics on error.
func MustGetLocal[T any](ctx context.Context, c *Container, configure func(d *Definitions), options ...ResolveOption) T {
	value, err := GetLocal[T](ctx, c, configure, options...)
	if err != nil {
		panic(err)
	}
	return value
}
