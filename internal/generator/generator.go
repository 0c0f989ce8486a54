// Package generator generates inject modules and Injectable implementations.
package generator

import (
	"fmt"
	"go/token"
	"go/types"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/alecthomas/errors"

	"github.com/alecthomas/inject/internal/codewriter"
	"github.com/alecthomas/inject/internal/depgraph"
	"github.com/alecthomas/inject/internal/strcase"
)

const (
	// Header is the first line of every generated file.
	Header = "Code generated by injectgen. DO NOT EDIT."
	// Filename is the name of the generated file.
	Filename = "inject_gen.go"
)

type generatorOptions struct {
	moduleName string
}

type Option func(*generatorOptions) error

// WithModuleName sets the name of the generated module variable. Defaults to "Module".
func WithModuleName(name string) Option {
	return func(o *generatorOptions) error {
		if !token.IsIdentifier(name) {
			return errors.Errorf("invalid module name %q", name)
		}
		o.moduleName = name
		return nil
	}
}

// WriteFileFS is a filesystem that generated files can be written to.
type WriteFileFS interface {
	WriteFile(name string, data []byte, perm fs.FileMode) error
}

// GenerateFile generates code for graph and writes it to name in fsys.
func GenerateFile(fsys WriteFileFS, name string, graph *depgraph.Graph, options ...Option) error {
	w := &strings.Builder{}
	if err := Generate(w, graph, options...); err != nil {
		return err
	}
	if err := fsys.WriteFile(name, []byte(w.String()), 0600); err != nil {
		return errors.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// Generate code for graph.
//
// The output contains a module registering every provider in the graph, and
// an Inject method for each injectable.
func Generate(out io.Writer, graph *depgraph.Graph, options ...Option) error {
	opts := &generatorOptions{moduleName: "Module"}
	for _, opt := range options {
		if err := opt(opts); err != nil {
			return errors.WithStack(err)
		}
	}
	if obj := graph.Dest.Scope().Lookup(opts.moduleName); obj != nil && !generated(graph, obj) {
		return errors.Errorf("%s is already declared in %s, choose another module name", opts.moduleName, graph.Dest.Path())
	}
	g := &fileGenerator{
		graph:   graph,
		w:       codewriter.New(graph.Dest.Name()),
		context: graph.ImportAlias("context", "context"),
		inject:  graph.ImportAlias(depgraph.InjectPackage, "inject"),
	}
	g.w.Header(Header)
	if len(graph.Providers) > 0 {
		g.module(opts.moduleName)
	}
	for _, injectable := range graph.Injectables {
		g.injectable(injectable)
	}
	source, err := g.w.Format()
	if err != nil {
		return errors.WithStack(err)
	}
	if _, err := out.Write(source); err != nil {
		return errors.Errorf("failed to write file: %w", err)
	}
	return nil
}

// generated reports whether obj was declared by a previous run of the generator.
func generated(graph *depgraph.Graph, obj types.Object) bool {
	return filepath.Base(graph.Position(obj.Pos()).Filename) == Filename
}

type fileGenerator struct {
	graph   *depgraph.Graph
	w       *codewriter.Writer
	context string
	inject  string
}

func (g *fileGenerator) ref(t types.Type) string {
	ref := g.graph.TypeRef(t)
	g.w.Import(ref.Imports...)
	return ref.Ref
}

func (g *fileGenerator) importPackage(alias, path string) {
	if alias == path[strings.LastIndex(path, "/")+1:] {
		g.w.Import(path)
	} else {
		g.w.Import(fmt.Sprintf("%s %q", alias, path))
	}
}

func (g *fileGenerator) module(name string) {
	g.importPackage(g.context, "context")
	g.importPackage(g.inject, depgraph.InjectPackage)
	g.w.L("// %s registers the providers of package %s.", name, g.graph.Dest.Name())
	g.w.L("var %s = %s.NewModule(%q, func(d *%s.Definitions) {", name, g.inject, g.graph.Dest.Path(), g.inject)
	g.w.In(func(w *codewriter.Writer) {
		for _, provider := range g.graph.Providers {
			g.provider(provider)
		}
	})
	g.w.L("})")
	g.w.L("")
}

func (g *fileGenerator) provider(provider *depgraph.Provider) {
	register := "Factory"
	if provider.Directive.Singleton {
		register = "Singleton"
	}
	provides := g.ref(provider.Provides)
	g.w.L("%s.%s(d, func(ctx %s.Context, c *%s.Container) (out %s, err error) {", g.inject, register, g.context, g.inject, provides)
	g.w.In(func(w *codewriter.Writer) {
		args := make([]string, len(provider.Params))
		for i, param := range provider.Params {
			switch param.Kind {
			case depgraph.ParamContext:
				args[i] = "ctx"
			case depgraph.ParamContainer:
				args[i] = "c"
			case depgraph.ParamResolved:
				args[i] = fmt.Sprintf("p%d", i)
				w.L("%s, err := %s.Get[%s](ctx, c)", args[i], g.inject, g.ref(param.Type))
				w.L("if err != nil {")
				w.In(func(w *codewriter.Writer) {
					w.L("return out, err")
				})
				w.L("}")
			}
		}
		call := fmt.Sprintf("%s(%s)", g.function(provider.Function), strings.Join(args, ", "))
		if provider.Error {
			w.L("return %s", call)
		} else {
			w.L("return %s, nil", call)
		}
	})
	if provider.Directive.Name != "" {
		g.w.L("}, %s.Name(%q))", g.inject, provider.Directive.Name)
	} else {
		g.w.L("})")
	}
}

func (g *fileGenerator) function(fn *types.Func) string {
	alias := g.graph.ImportAlias(fn.Pkg().Path(), fn.Pkg().Name())
	if alias == "" {
		return fn.Name()
	}
	g.importPackage(alias, fn.Pkg().Path())
	return alias + "." + fn.Name()
}

func (g *fileGenerator) injectable(injectable *depgraph.Injectable) {
	g.importPackage(g.context, "context")
	g.importPackage(g.inject, depgraph.InjectPackage)
	name := injectable.Type.Obj().Name()
	g.w.L("// Inject implements %s.Injectable.", g.inject)
	g.w.L("func (*%s) Inject(ctx %s.Context, c *%s.Container) (any, error) {", name, g.context, g.inject)
	g.w.In(func(w *codewriter.Writer) {
		if len(injectable.Fields) == 0 {
			w.L("return &%s{}, nil", name)
			return
		}
		w.L("var err error")
		w.L("out := &%s{}", name)
		for _, field := range injectable.Fields {
			var nameOption string
			if field.InjectName != "" {
				nameOption = fmt.Sprintf(", %s.Name(%q)", g.inject, field.InjectName)
			}
			w.L("if out.%s, err = %s.Get[%s](ctx, c%s); err != nil {", field.Name, g.inject, g.ref(field.Type), nameOption)
			w.In(func(w *codewriter.Writer) {
				w.L("return nil, err")
			})
			w.L("}")
		}
		w.L("return out, nil")
	})
	g.w.L("}")
	g.w.L("")

	if !injectable.Directive.Constructor {
		return
	}
	names := parameterNames(injectable.Fields)
	params := make([]string, len(injectable.Fields))
	for i, field := range injectable.Fields {
		params[i] = names[i] + " " + g.ref(field.Type)
	}
	g.w.L("// New%s creates a %s from its dependencies.", strcase.ToUpperCamel(name), name)
	g.w.L("func New%s(%s) *%s {", strcase.ToUpperCamel(name), strings.Join(params, ", "), name)
	g.w.In(func(w *codewriter.Writer) {
		w.L("return &%s{", name)
		w.In(func(w *codewriter.Writer) {
			for i, field := range injectable.Fields {
				w.L("%s: %s,", field.Name, names[i])
			}
		})
		w.L("}")
	})
	g.w.L("}")
	g.w.L("")
}

// parameterNames derives unique parameter names from struct fields.
func parameterNames(fields []depgraph.Field) []string {
	used := map[string]bool{}
	names := make([]string, len(fields))
	for i, field := range fields {
		name := strcase.ToLowerCamel(field.Name)
		if token.IsKeyword(name) || name == "_" {
			name += "_"
		}
		for base, n := name, 1; used[name]; n++ {
			name = fmt.Sprintf("%s%d", base, n)
		}
		used[name] = true
		names[i] = name
	}
	return names
}
