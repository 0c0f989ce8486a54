package inject

import (
	"testing"

	"github.com/alecthomas/assert/v2"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry[int]()
	a, b := KeyFor[string](""), KeyFor[string]("b")

	_, ok := r.Get(a)
	assert.False(t, ok)

	r.Set(a, 1)
	r.Set(b, 2)
	v, ok := r.Get(a)
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	assert.Equal(t, []ServiceKey{a, b}, r.Keys())

	r.Update(a, func(existing int, ok bool) int { return existing + 10 })
	v, _ = r.Get(a)
	assert.Equal(t, 11, v)

	clone := r.Clone()
	r.Delete(b)
	assert.Equal(t, 1, r.Len())
	assert.Equal(t, 2, clone.Len())

	r.RemoveAll()
	assert.Equal(t, 0, r.Len())
}

func TestMerge(t *testing.T) {
	key, other := KeyFor[int](""), KeyFor[int]("other")
	a := NewRegistry[string]()
	a.Set(key, "a")
	a.Set(other, "a")
	b := NewRegistry[string]()
	b.Set(key, "b")

	merged := Merge(a, b)
	v, _ := merged.Get(key)
	assert.Equal(t, "b", v)
	v, _ = merged.Get(other)
	assert.Equal(t, "a", v)

	v, _ = a.Get(key)
	assert.Equal(t, "a", v, "inputs must not be modified")
}

func TestServiceKeyString(t *testing.T) {
	assert.Equal(t, "*inject.Greeter", KeyFor[*Greeter]("").String())
	assert.Equal(t, "[]string[name=tags]", KeyFor[[]string]("tags").String())
	assert.Equal(t, "<nil>", ServiceKey{}.String())
}
