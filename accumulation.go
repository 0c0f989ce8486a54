package inject

import (
	"slices"

	"github.com/alecthomas/errors"

	"github.com/alecthomas/inject/internal/once"
)

// AccumulationKey describes how values contributed by many definitions are
// folded into one final value of type F.
//
// Each contributor produces a C, and contributions are combined in
// registration order starting from the value inherited from the parent
// container, or Initial if no ancestor defines the key.
type AccumulationKey[F, C any] struct {
	initial func() F
	combine func(current F, next C) F
}

// NewAccumulationKey creates an AccumulationKey from an initial value
// constructor and a combine function.
func NewAccumulationKey[F, C any](initial func() F, combine func(current F, next C) F) *AccumulationKey[F, C] {
	return &AccumulationKey[F, C]{initial: initial, combine: combine}
}

// AppendKey returns an AccumulationKey that collects contributions into a slice.
func AppendKey[T any]() *AccumulationKey[[]T, T] {
	return NewAccumulationKey(
		func() []T { return nil },
		func(current []T, next T) []T { return append(slices.Clip(current), next) },
	)
}

// Initial returns the starting value of the fold.
func (k *AccumulationKey[F, C]) Initial() F { return k.initial() }

// Combine folds next into current.
func (k *AccumulationKey[F, C]) Combine(current F, next C) F { return k.combine(current, next) }

type contributor struct {
	construct constructor
	singleton bool
	cell      once.Cell[any]
}

func (c *contributor) resolve(r *request) (any, error) {
	if !c.singleton {
		return r.construct(c.construct)
	}
	return c.cell.Get(func() (any, error) { return r.construct(c.construct) })
}

// accumulationDefinition folds the values of its contributors into the value
// inherited from the layer below.
//
// Definitions are immutable once registered. Adding a contributor produces a
// new definition sharing the existing contributors.
type accumulationDefinition[F, C any] struct {
	key          ServiceKey
	accumulator  *AccumulationKey[F, C]
	contributors []*contributor
	cell         once.Cell[any]
}

func (a *accumulationDefinition[F, C]) Key() ServiceKey { return a.key }

// Cacheable reports whether every local contributor is a singleton.
func (a *accumulationDefinition[F, C]) Cacheable() bool {
	for _, c := range a.contributors {
		if !c.singleton {
			return false
		}
	}
	return true
}

func (a *accumulationDefinition[F, C]) merge(other Definition) (Definition, bool) {
	o, ok := other.(*accumulationDefinition[F, C])
	if !ok {
		return nil, false
	}
	return &accumulationDefinition[F, C]{
		key:          a.key,
		accumulator:  a.accumulator,
		contributors: slices.Concat(a.contributors, o.contributors),
	}, true
}

func (a *accumulationDefinition[F, C]) resolve(r *request) (any, error) {
	if !chainCacheable(r, a) {
		return a.fold(r)
	}
	return a.cell.Get(func() (any, error) { return a.fold(r) })
}

func (a *accumulationDefinition[F, C]) fold(r *request) (any, error) {
	value, err := a.seed(r)
	if err != nil {
		return nil, err
	}
	for _, c := range a.contributors {
		next, err := c.resolve(r)
		if err != nil {
			return nil, err
		}
		contribution, ok := next.(C)
		if !ok {
			return nil, errors.Errorf("%s: contribution has type %T", a.key, next)
		}
		value = a.accumulator.Combine(value, contribution)
	}
	return value, nil
}

// seed returns the value resolved for the key below this definition, or the
// initial value if nothing below defines it.
func (a *accumulationDefinition[F, C]) seed(r *request) (F, error) {
	next, def, ok := r.below()
	if !ok {
		return a.accumulator.Initial(), nil
	}
	value, err := def.resolve(next)
	if err != nil {
		var zero F
		return zero, err
	}
	seed, ok := value.(F)
	if !ok {
		var zero F
		return zero, errors.Errorf("%s: inherited value has type %T", a.key, value)
	}
	return seed, nil
}

// chainCacheable reports whether def and every definition it inherits from
// below r are cacheable.
func chainCacheable(r *request, def Definition) bool {
	for {
		if !def.Cacheable() {
			return false
		}
		if _, ok := def.(merger); !ok {
			return true
		}
		var ok bool
		r, def, ok = r.below()
		if !ok {
			return true
		}
	}
}
