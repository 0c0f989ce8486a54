package inject

import (
	"context"
)

// Definitions collects the definitions declared by a [Module].
//
// A fresh Definitions is passed to [Module.Configure] every time a module is
// registered with a container, so every container owns its own definitions
// and singleton caches.
type Definitions struct {
	definitions []Definition
}

// Add appends an existing definition.
func (d *Definitions) Add(def Definition) {
	d.definitions = append(d.definitions, def)
}

// All returns the collected definitions in declaration order.
func (d *Definitions) All() []Definition { return d.definitions }

// merger is implemented by definitions that combine with an existing
// definition for the same key instead of replacing it.
type merger interface {
	merge(other Definition) (Definition, bool)
}

// insert adds def to registry. Accumulation definitions combine with an
// accumulation already registered for the key, anything else replaces it.
func insert(registry *Registry[Definition], def Definition) {
	registry.Update(def.Key(), func(existing Definition, ok bool) Definition {
		if !ok {
			return def
		}
		if m, ok := existing.(merger); ok {
			if merged, ok := m.merge(def); ok {
				return merged
			}
		}
		return def
	})
}

// Factory registers fn as a factory for T. fn is invoked on every resolution.
func Factory[T any](d *Definitions, fn func(ctx context.Context, c *Container) (T, error), options ...DefineOption) {
	d.Add(&factoryDefinition{key: defineKey[T](options), construct: adapt(fn)})
}

// FactoryWithParams registers fn as a factory for T that receives the
// parameters passed with [WithParams].
//
// Resolving without parameters of type P fails with [ErrBadParams].
func FactoryWithParams[T, P any](d *Definitions, fn func(ctx context.Context, c *Container, params P) (T, error), options ...DefineOption) {
	key := defineKey[T](options)
	d.Add(&factoryDefinition{key: key, construct: adaptWithParams(key, fn)})
}

// Singleton registers fn as a singleton for T. fn is invoked at most once per
// container, concurrent first resolutions included.
func Singleton[T any](d *Definitions, fn func(ctx context.Context, c *Container) (T, error), options ...DefineOption) {
	d.Add(&singletonDefinition{key: defineKey[T](options), construct: adapt(fn)})
}

// SingletonWithParams registers a singleton that receives the parameters of
// its first resolution.
func SingletonWithParams[T, P any](d *Definitions, fn func(ctx context.Context, c *Container, params P) (T, error), options ...DefineOption) {
	key := defineKey[T](options)
	d.Add(&singletonDefinition{key: key, construct: adaptWithParams(key, fn)})
}

// Value registers an already constructed value for T.
func Value[T any](d *Definitions, value T, options ...DefineOption) {
	Singleton(d, func(context.Context, *Container) (T, error) { return value, nil }, options...)
}

// AccumulateFactory registers a contributor to key that is invoked on every
// resolution of the accumulated value.
func AccumulateFactory[F, C any](d *Definitions, key *AccumulationKey[F, C], fn func(ctx context.Context, c *Container) (C, error), options ...DefineOption) {
	accumulate(d, key, adapt(fn), false, options)
}

// AccumulateFactoryWithParams is AccumulateFactory with parameters.
func AccumulateFactoryWithParams[F, C, P any](d *Definitions, key *AccumulationKey[F, C], fn func(ctx context.Context, c *Container, params P) (C, error), options ...DefineOption) {
	accumulate(d, key, adaptWithParams(defineKey[F](options), fn), false, options)
}

// AccumulateSingleton registers a contributor to key whose value is computed
// once.
//
// The accumulated value itself is cached only when every contributor in the
// container hierarchy is a singleton.
func AccumulateSingleton[F, C any](d *Definitions, key *AccumulationKey[F, C], fn func(ctx context.Context, c *Container) (C, error), options ...DefineOption) {
	accumulate(d, key, adapt(fn), true, options)
}

// AccumulateSingletonWithParams is AccumulateSingleton with parameters.
func AccumulateSingletonWithParams[F, C, P any](d *Definitions, key *AccumulationKey[F, C], fn func(ctx context.Context, c *Container, params P) (C, error), options ...DefineOption) {
	accumulate(d, key, adaptWithParams(defineKey[F](options), fn), true, options)
}

func accumulate[F, C any](d *Definitions, key *AccumulationKey[F, C], construct constructor, singleton bool, options []DefineOption) {
	d.Add(&accumulationDefinition[F, C]{
		key:          defineKey[F](options),
		accumulator:  key,
		contributors: []*contributor{{construct: construct, singleton: singleton}},
	})
}
