package inject

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/alecthomas/assert/v2"
)

var (
	tags  = AppendKey[string]()
	total = NewAccumulationKey(func() int { return 0 }, func(current, next int) int { return current + next })
)

func contribute(value string) func(context.Context, *Container) (string, error) {
	return func(context.Context, *Container) (string, error) { return value, nil }
}

func TestAccumulationAcrossHierarchy(t *testing.T) {
	grandparent := MustNew(WithDefinitions(func(d *Definitions) {
		AccumulateFactory(d, tags, contribute("grandparent"))
	}))
	parent := grandparent.NewChild(NewModule("", func(d *Definitions) {
		AccumulateSingleton(d, tags, contribute("parent"))
	}))
	first := parent.NewChild(NewModule("", func(d *Definitions) {
		AccumulateFactory(d, tags, contribute("first"))
	}))
	second := parent.NewChild(NewModule("", func(d *Definitions) {
		AccumulateFactory(d, tags, contribute("second"))
		AccumulateSingleton(d, tags, contribute("second-singleton"))
	}))

	tests := []struct {
		name      string
		container *Container
		expected  []string
	}{
		{name: "Grandparent", container: grandparent, expected: []string{"grandparent"}},
		{name: "Parent", container: parent, expected: []string{"grandparent", "parent"}},
		{name: "FirstChild", container: first, expected: []string{"grandparent", "parent", "first"}},
		{name: "SecondChild", container: second, expected: []string{"grandparent", "parent", "second", "second-singleton"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			values, err := Get[[]string](t.Context(), test.container)
			assert.NoError(t, err)
			assert.Equal(t, test.expected, values)
		})
	}
}

func TestAccumulationAcrossModules(t *testing.T) {
	c := MustNew(
		WithDefinitions(func(d *Definitions) { AccumulateFactory(d, tags, contribute("Factory")) }),
		WithDefinitions(func(d *Definitions) { AccumulateSingleton(d, tags, contribute("Singleton")) }),
	)
	values := MustGet[[]string](t.Context(), c)
	assert.Equal(t, []string{"Factory", "Singleton"}, values)
	assert.Equal(t, 1, c.Len())
}

func TestAccumulationKeysAreIndependent(t *testing.T) {
	c := MustNew(WithDefinitions(func(d *Definitions) {
		AccumulateFactory(d, total, func(context.Context, *Container) (int, error) { return 10, nil })
		AccumulateSingleton(d, tags, contribute("a"))
		AccumulateFactory(d, total, func(context.Context, *Container) (int, error) { return 20, nil })
	}))
	sum, err := Get[int](t.Context(), c)
	assert.NoError(t, err)
	assert.Equal(t, 30, sum)
	assert.Equal(t, []string{"a"}, MustGet[[]string](t.Context(), c))
}

func TestAccumulationCaching(t *testing.T) {
	t.Run("AllSingletons", func(t *testing.T) {
		var calls atomic.Int64
		c := MustNew(WithDefinitions(func(d *Definitions) {
			AccumulateSingleton(d, total, func(context.Context, *Container) (int, error) {
				calls.Add(1)
				return 1, nil
			})
		}))
		assert.Equal(t, 1, MustGet[int](t.Context(), c))
		assert.Equal(t, 1, MustGet[int](t.Context(), c))
		assert.Equal(t, int64(1), calls.Load())
	})

	t.Run("Factory", func(t *testing.T) {
		var calls atomic.Int64
		c := MustNew(WithDefinitions(func(d *Definitions) {
			AccumulateFactory(d, total, func(context.Context, *Container) (int, error) {
				calls.Add(1)
				return 1, nil
			})
		}))
		assert.Equal(t, 1, MustGet[int](t.Context(), c))
		assert.Equal(t, 1, MustGet[int](t.Context(), c))
		assert.Equal(t, int64(2), calls.Load())
	})

	t.Run("FactoryInParentDisablesCaching", func(t *testing.T) {
		var parentCalls, childCalls atomic.Int64
		parent := MustNew(WithDefinitions(func(d *Definitions) {
			AccumulateFactory(d, total, func(context.Context, *Container) (int, error) {
				return int(parentCalls.Add(1)), nil
			})
		}))
		child := parent.NewChild(NewModule("", func(d *Definitions) {
			AccumulateSingleton(d, total, func(context.Context, *Container) (int, error) {
				childCalls.Add(1)
				return 100, nil
			})
		}))
		assert.Equal(t, 101, MustGet[int](t.Context(), child))
		assert.Equal(t, 102, MustGet[int](t.Context(), child))
		assert.Equal(t, int64(2), parentCalls.Load())
		assert.Equal(t, int64(1), childCalls.Load())
	})
}

func TestAccumulationWithoutContributors(t *testing.T) {
	_, err := Get[[]string](t.Context(), MustNew())
	assert.IsError(t, err, ErrMissingDependency)
}

func TestNamedAccumulations(t *testing.T) {
	c := MustNew(WithDefinitions(func(d *Definitions) {
		AccumulateFactory(d, tags, contribute("a"))
		AccumulateFactory(d, tags, contribute("b"), Name("other"))
		AccumulateFactory(d, tags, contribute("c"))
	}))
	assert.Equal(t, []string{"a", "c"}, MustGet[[]string](t.Context(), c))
	assert.Equal(t, []string{"b"}, MustGet[[]string](t.Context(), c, Name("other")))
}

func TestAccumulationSeededFromPlainDefinition(t *testing.T) {
	parent := MustNew(WithDefinitions(func(d *Definitions) { Value(d, []string{"base"}) }))
	child := parent.NewChild(NewModule("", func(d *Definitions) { AccumulateFactory(d, tags, contribute("child")) }))
	assert.Equal(t, []string{"base", "child"}, MustGet[[]string](t.Context(), child))
	assert.Equal(t, []string{"base"}, MustGet[[]string](t.Context(), parent))
}

func TestAccumulationWithParams(t *testing.T) {
	c := MustNew(WithDefinitions(func(d *Definitions) {
		AccumulateFactoryWithParams(d, tags, func(_ context.Context, _ *Container, prefix string) (string, error) {
			return prefix + "-factory", nil
		})
		AccumulateSingletonWithParams(d, tags, func(_ context.Context, _ *Container, prefix string) (string, error) {
			return prefix + "-singleton", nil
		})
	}))
	values, err := Get[[]string](t.Context(), c, WithParams("x"))
	assert.NoError(t, err)
	assert.Equal(t, []string{"x-factory", "x-singleton"}, values)

	_, err = Get[[]string](t.Context(), c, WithParams(1))
	assert.IsError(t, err, ErrBadParams)
}

func TestLocalAccumulation(t *testing.T) {
	c := MustNew(WithDefinitions(func(d *Definitions) { AccumulateSingleton(d, tags, contribute("base")) }))
	values, err := GetLocal[[]string](t.Context(), c, func(d *Definitions) {
		AccumulateFactory(d, tags, contribute("local"))
	})
	assert.NoError(t, err)
	assert.Equal(t, []string{"base", "local"}, values)
	assert.Equal(t, []string{"base"}, MustGet[[]string](t.Context(), c))
}
