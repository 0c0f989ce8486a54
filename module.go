package inject

import (
	"reflect"
)

// A Module declares definitions and, optionally, the modules it depends on.
//
// Modules are transient builders. Configure is called once each time the
// module is registered with a container.
type Module interface {
	Configure(d *Definitions)
}

// Dependent is implemented by modules that require other modules.
// Dependencies are registered before the module itself.
type Dependent interface {
	Dependencies() []Module
}

// Keyed is implemented by modules that supply their own identity.
//
// Modules without a key are identified by their dynamic type, so two values
// of the same module type are treated as the same module.
type Keyed interface {
	ModuleKey() string
}

type moduleIdentity struct {
	typ      reflect.Type
	key      string
	instance *funcModule
}

func identify(m Module) moduleIdentity {
	if f, ok := m.(*funcModule); ok && f.key == "" {
		return moduleIdentity{instance: f}
	}
	if k, ok := m.(Keyed); ok {
		return moduleIdentity{key: k.ModuleKey()}
	}
	return moduleIdentity{typ: reflect.TypeOf(m)}
}

func dependencies(m Module) []Module {
	if d, ok := m.(Dependent); ok {
		return d.Dependencies()
	}
	return nil
}

// NewModule creates a module from a configure function.
//
// Modules with the same non-empty key are the same module. An empty key makes
// the module distinct from every other module.
func NewModule(key string, configure func(d *Definitions), dependencies ...Module) Module {
	return &funcModule{key: key, configure: configure, dependencies: dependencies}
}

type funcModule struct {
	key          string
	configure    func(d *Definitions)
	dependencies []Module
}

func (f *funcModule) Configure(d *Definitions) {
	if f.configure != nil {
		f.configure(d)
	}
}
func (f *funcModule) Dependencies() []Module { return f.dependencies }
func (f *funcModule) ModuleKey() string      { return f.key }

// Flatten returns modules and all of their transitive dependencies in
// dependency-first order, each module appearing once.
//
// Traversal is a depth-first post-order walk sharing one visited set across
// all roots. Order is deterministic for a given input. Nil modules are
// skipped.
func Flatten(modules ...Module) []Module {
	type frame struct {
		module       Module
		dependencies []Module
		next         int
	}
	visited := map[moduleIdentity]bool{}
	out := []Module{}
	for _, root := range modules {
		if root == nil || visited[identify(root)] {
			continue
		}
		visited[identify(root)] = true
		stack := []*frame{{module: root, dependencies: dependencies(root)}}
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if top.next < len(top.dependencies) {
				dep := top.dependencies[top.next]
				top.next++
				if dep == nil {
					continue
				}
				id := identify(dep)
				if visited[id] {
					continue
				}
				visited[id] = true
				stack = append(stack, &frame{module: dep, dependencies: dependencies(dep)})
				continue
			}
			stack = stack[:len(stack)-1]
			out = append(out, top.module)
		}
	}
	return out
}
