package inject

import (
	"context"
	"reflect"

	"github.com/alecthomas/errors"

	"github.com/alecthomas/inject/internal/once"
)

// A Definition is a registered recipe for producing the value of a key.
//
// Definitions are created through [Definitions] and cannot be implemented
// outside this package.
type Definition interface {
	Key() ServiceKey
	// Cacheable reports whether the definition returns the same value on every
	// resolution once it has been computed.
	Cacheable() bool
	resolve(r *request) (any, error)
}

// constructor produces a value for a definition.
type constructor func(ctx context.Context, c *Container, params any) (any, error)

// request is a single definition resolution within a lookup chain.
type request struct {
	ctx    context.Context
	key    ServiceKey
	params any
	layers []layer
	// index is the position in layers where the definition was found.
	index int
}

func (r *request) owner() *Container { return r.layers[r.index].owner }

// below returns the next definition for the same key below the current layer.
func (r *request) below() (*request, Definition, bool) {
	for i := r.index + 1; i < len(r.layers); i++ {
		if def, ok := r.layers[i].registry.Get(r.key); ok {
			next := *r
			next.index = i
			return &next, def, true
		}
	}
	return nil, nil, false
}

func (r *request) construct(fn constructor) (any, error) {
	value, err := fn(r.ctx, r.owner(), r.params)
	if err != nil {
		var derr *DependencyError
		if errors.As(err, &derr) && derr.Key == r.key {
			return nil, err
		}
		return nil, errors.Errorf("%s: %w", r.key, err)
	}
	if isNil(value) {
		return nil, nilDependency(r.key)
	}
	return value, nil
}

type factoryDefinition struct {
	key       ServiceKey
	construct constructor
}

func (f *factoryDefinition) Key() ServiceKey { return f.key }
func (f *factoryDefinition) Cacheable() bool { return false }

func (f *factoryDefinition) resolve(r *request) (any, error) { return r.construct(f.construct) }

// singletonDefinition computes its value on first resolution and returns the
// cached value thereafter. Parameters passed to later resolutions are ignored.
type singletonDefinition struct {
	key       ServiceKey
	construct constructor
	cell      once.Cell[any]
}

func (s *singletonDefinition) Key() ServiceKey { return s.key }
func (s *singletonDefinition) Cacheable() bool { return true }

func (s *singletonDefinition) resolve(r *request) (any, error) {
	return s.cell.Get(func() (any, error) { return r.construct(s.construct) })
}

func adapt[T any](fn func(ctx context.Context, c *Container) (T, error)) constructor {
	return func(ctx context.Context, c *Container, _ any) (any, error) {
		return fn(ctx, c)
	}
}

func adaptWithParams[T, P any](key ServiceKey, fn func(ctx context.Context, c *Container, params P) (T, error)) constructor {
	return func(ctx context.Context, c *Container, params any) (any, error) {
		p, ok := params.(P)
		if !ok {
			return nil, badParams(key, params, reflect.TypeFor[P]())
		}
		return fn(ctx, c, p)
	}
}
