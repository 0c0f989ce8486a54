package inject

import (
	"context"
	"fmt"
	"testing"

	"github.com/alecthomas/assert/v2"
)

type testModule struct {
	key          string
	dependencies []Module
	configure    func(d *Definitions)
}

func (m *testModule) Configure(d *Definitions) {
	if m.configure != nil {
		m.configure(d)
	}
}
func (m *testModule) Dependencies() []Module { return m.dependencies }
func (m *testModule) ModuleKey() string      { return m.key }

func mod(key string, dependencies ...Module) *testModule {
	return &testModule{key: key, dependencies: dependencies}
}

func keys(modules []Module) []string {
	out := make([]string, len(modules))
	for i, m := range modules {
		out[i] = m.(Keyed).ModuleKey()
	}
	return out
}

type unkeyedModule struct{ greeting string }

func (u unkeyedModule) Configure(d *Definitions) { Factory(d, greeter(u.greeting)) }

func TestFlatten(t *testing.T) {
	shared := mod("shared")
	tests := []struct {
		name     string
		modules  []Module
		expected []string
	}{
		{name: "Empty", modules: nil, expected: []string{}},
		{name: "Single", modules: []Module{mod("a")}, expected: []string{"a"}},
		{name: "DependenciesFirst", modules: []Module{mod("a", mod("b", mod("c")))}, expected: []string{"c", "b", "a"}},
		{name: "SiblingOrder", modules: []Module{mod("a", mod("b"), mod("c"))}, expected: []string{"b", "c", "a"}},
		{name: "Diamond", modules: []Module{mod("a", mod("b", shared), mod("c", shared))}, expected: []string{"shared", "b", "c", "a"}},
		{name: "DuplicateRoots", modules: []Module{mod("a", mod("b")), mod("a", mod("b"))}, expected: []string{"b", "a"}},
		{name: "SharedAcrossRoots", modules: []Module{mod("a", shared), mod("b", shared)}, expected: []string{"shared", "a", "b"}},
		{name: "Cycle", modules: []Module{&testModule{key: "a", dependencies: []Module{mod("b", mod("a"))}}}, expected: []string{"b", "a"}},
		{name: "NilSkipped", modules: []Module{nil, mod("a", nil)}, expected: []string{"a"}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, keys(Flatten(test.modules...)))
		})
	}
}

func TestFlattenIsIdempotentOverDuplicates(t *testing.T) {
	m := mod("root", mod("x", mod("y")), mod("z"))
	assert.Equal(t, keys(Flatten(m)), keys(Flatten(m, m)))
}

func TestFlattenDeepTree(t *testing.T) {
	const depth = 50000
	var m Module = mod("leaf")
	for i := range depth {
		m = mod(fmt.Sprintf("m%d", i), m)
	}
	flat := Flatten(m)
	assert.Equal(t, depth+1, len(flat))
	assert.Equal(t, "leaf", flat[0].(Keyed).ModuleKey())
	assert.Equal(t, fmt.Sprintf("m%d", depth-1), flat[depth].(Keyed).ModuleKey())
}

func TestFlattenWideTree(t *testing.T) {
	leaves := make([]Module, 20000)
	for i := range leaves {
		leaves[i] = mod(fmt.Sprintf("leaf%d", i), mod("common"))
	}
	flat := Flatten(mod("root", leaves...))
	assert.Equal(t, len(leaves)+2, len(flat))
	assert.Equal(t, "common", flat[0].(Keyed).ModuleKey())
	assert.Equal(t, "root", flat[len(flat)-1].(Keyed).ModuleKey())
}

func TestModuleIdentity(t *testing.T) {
	// Unkeyed modules are identified by type, so the second is skipped.
	flat := Flatten(unkeyedModule{greeting: "a"}, unkeyedModule{greeting: "b"})
	assert.Equal(t, 1, len(flat))

	// Anonymous function modules are always distinct.
	configure := func(*Definitions) {}
	flat = Flatten(NewModule("", configure), NewModule("", configure))
	assert.Equal(t, 2, len(flat))

	flat = Flatten(NewModule("same", configure), NewModule("same", configure))
	assert.Equal(t, 1, len(flat))
}

func TestModuleDependenciesRegisteredFirst(t *testing.T) {
	base := &testModule{key: "base", configure: func(d *Definitions) {
		Factory(d, greeter("base"))
		Value(d, &Settings{Port: 1})
	}}
	app := &testModule{key: "app", dependencies: []Module{base}, configure: func(d *Definitions) {
		Factory(d, greeter("app"))
	}}
	c := MustNew(WithModules(app))
	assert.Equal(t, "app", MustGet[*Greeter](t.Context(), c).Greeting)
	assert.Equal(t, 1, MustGet[*Settings](t.Context(), c).Port)
}

func TestModuleConfiguredPerContainer(t *testing.T) {
	calls := 0
	m := NewModule("counted", func(d *Definitions) {
		calls++
		Singleton(d, func(context.Context, *Container) (*Service, error) { return &Service{}, nil })
	})
	a := MustNew(WithModules(m))
	b := MustNew(WithModules(m))
	assert.Equal(t, 2, calls)
	assert.True(t, MustGet[*Service](t.Context(), a) != MustGet[*Service](t.Context(), b), "containers must not share singletons")
}
