package inject

import (
	"fmt"
	"reflect"
)

// ServiceKey identifies a registrable entry by Go type and an optional name.
//
// Keys are comparable and are used directly as map keys. An empty Name is an
// unnamed entry.
type ServiceKey struct {
	Type reflect.Type
	Name string
}

// KeyFor returns the ServiceKey for T with the given name.
func KeyFor[T any](name string) ServiceKey {
	return ServiceKey{Type: reflect.TypeFor[T](), Name: name}
}

func (k ServiceKey) String() string {
	typeName := "<nil>"
	if k.Type != nil {
		typeName = k.Type.String()
	}
	if k.Name == "" {
		return typeName
	}
	return fmt.Sprintf("%s[name=%s]", typeName, k.Name)
}

// similar reports whether other shares a type or a non-empty name with k.
func (k ServiceKey) similar(other ServiceKey) bool {
	if k == other {
		return false
	}
	return k.Type == other.Type || (k.Name != "" && k.Name == other.Name)
}

// DefineOption configures a definition.
type DefineOption interface {
	applyDefine(o *defineOptions)
}

// ResolveOption configures a single resolution request.
type ResolveOption interface {
	applyResolve(o *resolveOptions)
}

type defineOptions struct {
	name string
}

type resolveOptions struct {
	name   string
	params any
}

// Name discriminates between multiple entries of the same type.
//
// It can be passed both when defining and when resolving:
//
//	inject.Singleton(d, openPrimary, inject.Name("primary"))
//	db, err := inject.Get[*sql.DB](ctx, c, inject.Name("primary"))
type Name string

func (n Name) applyDefine(o *defineOptions)   { o.name = string(n) }
func (n Name) applyResolve(o *resolveOptions) { o.name = string(n) }

type paramsOption struct{ params any }

func (p paramsOption) applyResolve(o *resolveOptions) { o.params = p.params }

// WithParams passes runtime parameters to definitions registered with one of
// the *WithParams functions.
func WithParams(params any) ResolveOption { return paramsOption{params: params} }

func defineKey[T any](options []DefineOption) ServiceKey {
	o := defineOptions{}
	for _, option := range options {
		option.applyDefine(&o)
	}
	return KeyFor[T](o.name)
}
