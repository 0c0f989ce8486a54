package depgraph

import (
	"cmp"
	"fmt"
	"go/ast"
	"go/token"
	"go/types"
	"hash/fnv"
	"log"
	"os"
	"path"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"github.com/alecthomas/errors"
	"golang.org/x/mod/modfile"
	"golang.org/x/tools/go/packages"

	"github.com/alecthomas/inject/internal/directiveparser"
)

// InjectPackage is the import path of the runtime package.
const InjectPackage = "github.com/alecthomas/inject"

// ParamKind classifies a provider parameter.
type ParamKind int

const (
	// ParamResolved parameters are resolved from the container.
	ParamResolved ParamKind = iota
	// ParamContext parameters receive the resolution context.
	ParamContext
	// ParamContainer parameters receive the container the provider is registered in.
	ParamContainer
)

type Param struct {
	Name string
	Type types.Type
	Kind ParamKind
}

// Provider is a function annotated with:
//
//	//inject:provider [singleton] [weak] [name=<name>]
type Provider struct {
	// Position is the position of the function declaration.
	Position  token.Position
	Directive *directiveparser.DirectiveProvider
	// Function is the function that provides the type.
	Function *types.Func
	// Package is the package that contains the function.
	Package  *packages.Package
	Provides types.Type
	Params   []Param
	// Error is true if the function returns (T, error).
	Error bool
}

// Key identifies the entry the provider registers.
func (p *Provider) Key() string {
	key := types.TypeString(p.Provides, nil)
	if p.Directive.Name != "" {
		key += "[name=" + p.Directive.Name + "]"
	}
	return key
}

// Requires returns the types resolved from the container.
func (p *Provider) Requires() []types.Type {
	out := []types.Type{}
	for _, param := range p.Params {
		if param.Kind == ParamResolved {
			out = append(out, param.Type)
		}
	}
	return out
}

// Field is a struct field populated by an injectable.
type Field struct {
	Name string
	Type types.Type
	// InjectName is the name the field is resolved with, from an `inject:"<name>"` tag.
	InjectName string
}

// Injectable is a struct type annotated with:
//
//	//inject:injectable [constructor]
type Injectable struct {
	Position  token.Position
	Directive *directiveparser.DirectiveInjectable
	Type      *types.Named
	Fields    []Field
}

type graphOptions struct {
	// Providers to pick to resolve duplicate providers.
	pick []string
	// Additional package patterns to search for annotations.
	patterns []string
	tags     []string
	debug    bool
}

type Option func(*graphOptions) error

// WithProviders selects a provider for a key if multiple are available.
func WithProviders(pick ...string) Option {
	return func(o *graphOptions) error {
		o.pick = pick
		return nil
	}
}

// WithPatterns adds additional package patterns to search for providers.
func WithPatterns(patterns ...string) Option {
	return func(o *graphOptions) error {
		o.patterns = patterns
		return nil
	}
}

// WithTags sets the build tags used when loading packages.
func WithTags(tags ...string) Option {
	return func(o *graphOptions) error {
		o.tags = tags
		return nil
	}
}

// WithDebug enables debug logging.
func WithDebug(enable bool) Option {
	return func(o *graphOptions) error {
		o.debug = enable
		return nil
	}
}

func WithOptions(options ...Option) Option {
	return func(o *graphOptions) error {
		for _, opt := range options {
			err := opt(o)
			if err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	}
}

type Graph struct {
	Dest *types.Package
	// Providers ordered by source position.
	Providers []*Provider
	// Injectables in the destination package, ordered by source position.
	Injectables []*Injectable
	// Missing lists the resolved parameters of each provider that nothing in
	// the graph provides. A container may still supply them at runtime.
	Missing map[*types.Func][]types.Type

	aliases map[string]string
	used    map[string]bool
}

// Analyse statically loads Go packages, then analyses them for //inject:... annotations.
//
// dest is the package the generated code will belong to, either as a
// directory or an import path.
func Analyse(dest string, options ...Option) (*Graph, error) {
	graph := &Graph{Missing: map[*types.Func][]types.Type{}}
	opts := &graphOptions{}
	for _, opt := range options {
		err := opt(opts)
		if err != nil {
			return nil, errors.WithStack(err)
		}
	}

	destImport, err := importPathForDir(dest)
	if err != nil {
		return nil, errors.Errorf("failed to determine import path for destination directory %s: %w", dest, err)
	}

	var logf func(string, ...any)
	if opts.debug {
		logf = log.Printf
	}

	cfg := &packages.Config{
		Logf: logf,
		Fset: fset,
		Mode: packages.NeedName | packages.NeedFiles | packages.NeedCompiledGoFiles |
			packages.NeedImports | packages.NeedTypes | packages.NeedSyntax |
			packages.NeedTypesInfo,
	}
	if len(opts.tags) > 0 {
		cfg.BuildFlags = []string{"-tags=" + strings.Join(opts.tags, ",")}
	}
	pattern := dest
	if modfile.IsDirectoryPath(dest) {
		cfg.Dir, err = filepath.Abs(dest)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		pattern = "."
	}
	pkgs, err := packages.Load(cfg, append(slices.Clone(opts.patterns), pattern)...)
	if err != nil {
		return nil, errors.Errorf("failed to load packages: %w", err)
	}

	providers := map[string][]*Provider{}
	for _, pkg := range pkgs {
		if len(pkg.Errors) > 0 {
			return nil, errors.Errorf("%s: %w", pkg.PkgPath, pkg.Errors[0])
		}
		if pkg.PkgPath == destImport {
			graph.Dest = pkg.Types
		}
	}
	if graph.Dest == nil {
		return nil, errors.Errorf("destination package %q not found", destImport)
	}
	for _, pkg := range pkgs {
		err := analysePackage(pkg, graph, providers)
		if err != nil {
			return nil, err
		}
	}

	for key, candidates := range providers {
		provider := pickProvider(candidates, opts.pick)
		if provider == nil {
			providerKeys := make([]string, 0, len(candidates))
			for _, candidate := range candidates {
				providerKeys = append(providerKeys, candidate.Function.FullName())
			}
			slices.Sort(providerKeys)
			return nil, errors.Errorf("ambiguous providers for %s: %s", key, strings.Join(providerKeys, ", "))
		}
		graph.Providers = append(graph.Providers, provider)
	}
	slices.SortFunc(graph.Providers, func(a, b *Provider) int { return comparePositions(a.Position, b.Position) })
	slices.SortFunc(graph.Injectables, func(a, b *Injectable) int { return comparePositions(a.Position, b.Position) })

	findMissingDependencies(graph)
	return graph, nil
}

func comparePositions(a, b token.Position) int {
	return cmp.Or(strings.Compare(a.Filename, b.Filename), cmp.Compare(a.Offset, b.Offset))
}

// Ref is a reference to a type from within the destination package.
type Ref struct {
	// Imports required by Ref, either as a quoted path or as an alias followed by a quoted path.
	Imports []string
	// Ref is the Go source for the type.
	Ref string
}

// TypeRef returns the Go source referring to t from the destination package.
//
// eg. *database/sql.DB would become
//
//	"database/sql"
//	*sql.DB
func (g *Graph) TypeRef(t types.Type) Ref {
	imports := []string{}
	ref := types.TypeString(t, func(pkg *types.Package) string {
		alias := g.ImportAlias(pkg.Path(), pkg.Name())
		if alias == "" {
			return ""
		}
		if alias == pkg.Name() {
			imports = append(imports, fmt.Sprintf("%q", pkg.Path()))
		} else {
			imports = append(imports, fmt.Sprintf("%s %q", alias, pkg.Path()))
		}
		return alias
	})
	slices.Sort(imports)
	return Ref{Imports: slices.Compact(imports), Ref: ref}
}

// ImportAlias returns the identifier used to refer to the package at path
// with the given name, or "" if it is the destination package.
//
// The package name is used where it is unambiguous, otherwise a stable alias
// derived from the path.
func (g *Graph) ImportAlias(pkgPath, name string) string {
	if g.Dest != nil && pkgPath == g.Dest.Path() {
		return ""
	}
	if g.aliases == nil {
		g.aliases = map[string]string{}
		g.used = map[string]bool{}
	}
	if alias, ok := g.aliases[pkgPath]; ok {
		return alias
	}
	alias := name
	if alias == "" || alias == "_" || g.used[alias] || token.IsKeyword(alias) || !token.IsIdentifier(alias) ||
		(g.Dest != nil && g.Dest.Scope().Lookup(alias) != nil) {
		aliasID := fnv.New64a()
		aliasID.Write([]byte(pkgPath))
		alias = fmt.Sprintf("imp%x", aliasID.Sum64())
	}
	g.aliases[pkgPath] = alias
	g.used[alias] = true
	return alias
}

// Graph returns the dependency graph as a map where keys are provider keys
// and values are the types they resolve from the container.
func (g *Graph) Graph() map[string][]string {
	result := make(map[string][]string)
	for _, provider := range g.Providers {
		deps := []string{}
		for _, reqType := range provider.Requires() {
			deps = append(deps, types.TypeString(reqType, types.RelativeTo(g.Dest)))
		}
		result[provider.Key()] = deps
	}
	for _, injectable := range g.Injectables {
		deps := []string{}
		for _, field := range injectable.Fields {
			dep := types.TypeString(field.Type, types.RelativeTo(g.Dest))
			if field.InjectName != "" {
				dep += "[name=" + field.InjectName + "]"
			}
			deps = append(deps, dep)
		}
		result[types.TypeString(types.NewPointer(injectable.Type), nil)] = deps
	}
	return result
}

// Position returns the source position of pos in the loaded packages.
func (g *Graph) Position(pos token.Pos) token.Position {
	return fset.Position(pos)
}

var fset = token.NewFileSet()

// Parse a directive from a comment. Will return (nil, nil) if a directive is not found.
func parseDirective(doc *ast.CommentGroup) (directiveparser.Directive, error) {
	if doc == nil {
		return nil, nil
	}
	for _, comment := range doc.List {
		if strings.HasPrefix(comment.Text, "//inject:") {
			return directiveparser.Parse(comment.Text[2:])
		}
	}
	return nil, nil
}

func analysePackage(pkg *packages.Package, graph *Graph, providers map[string][]*Provider) error {
	for _, file := range pkg.Syntax {
		for _, decl := range file.Decls {
			switch decl := decl.(type) {
			case *ast.FuncDecl:
				directive, err := parseDirective(decl.Doc)
				if err != nil {
					return errors.Errorf("%s: %w", fset.Position(decl.Pos()), err)
				} else if directive == nil {
					continue
				}
				switch directive := directive.(type) {
				case *directiveparser.DirectiveProvider:
					provider, err := createProvider(decl, pkg, directive)
					if err != nil {
						return errors.Errorf("%s: %w", fset.Position(decl.Pos()), err)
					}
					key := provider.Key()
					providers[key] = append(providers[key], provider)

				default:
					return errors.Errorf("%s: %s: directive is not valid on functions", fset.Position(decl.Pos()), directive)
				}

			case *ast.GenDecl:
				directive, err := parseDirective(decl.Doc)
				if err != nil {
					return errors.Errorf("%s: %w", fset.Position(decl.Pos()), err)
				} else if directive == nil {
					continue
				}
				for _, spec := range decl.Specs {
					typeSpec, ok := spec.(*ast.TypeSpec)
					if !ok {
						continue
					}
					switch directive := directive.(type) {
					case *directiveparser.DirectiveInjectable:
						if pkg.Types != graph.Dest {
							return errors.Errorf("%s: %s: injectable types must be declared in the destination package", fset.Position(typeSpec.Pos()), typeSpec.Name.Name)
						}
						injectable, err := createInjectable(typeSpec, pkg, directive)
						if err != nil {
							return errors.Errorf("%s: %w", fset.Position(typeSpec.Pos()), err)
						}
						graph.Injectables = append(graph.Injectables, injectable)

					default:
						return errors.Errorf("%s: %s: directive is not valid on types", fset.Position(typeSpec.Pos()), directive)
					}
				}
			}
		}
	}
	return nil
}

func createProvider(fn *ast.FuncDecl, pkg *packages.Package, directive *directiveparser.DirectiveProvider) (*Provider, error) {
	if fn.Recv != nil {
		return nil, errors.Errorf("//inject:provider is only valid on functions, not methods: %s", fn.Name.Name)
	}
	funcObj, ok := pkg.TypesInfo.ObjectOf(fn.Name).(*types.Func)
	if !ok {
		return nil, errors.Errorf("failed to retrieve object for function %s", fn.Name.Name)
	}

	sig := funcObj.Signature()
	if sig.TypeParams().Len() > 0 {
		return nil, errors.Errorf("provider function %s must not be generic", fn.Name.Name)
	}
	if sig.Variadic() {
		return nil, errors.Errorf("provider function %s must not be variadic", fn.Name.Name)
	}
	results := sig.Results()
	if results.Len() == 0 || results.Len() > 2 {
		return nil, errors.Errorf("provider function %s must return (T) or (T, error)", fn.Name.Name)
	}
	hasError := results.Len() == 2
	if hasError && !isErrorType(results.At(1).Type()) {
		return nil, errors.Errorf("provider function %s second return value must be error", fn.Name.Name)
	}

	params := sig.Params()
	providerParams := make([]Param, params.Len())
	for i := range params.Len() {
		param := params.At(i)
		kind := ParamResolved
		switch {
		case isNamedType(param.Type(), "context", "Context"):
			kind = ParamContext
		case isContainerType(param.Type()):
			kind = ParamContainer
		}
		providerParams[i] = Param{Name: param.Name(), Type: param.Type(), Kind: kind}
	}

	return &Provider{
		Directive: directive,
		Function:  funcObj,
		Package:   pkg,
		Position:  fset.Position(fn.Pos()),
		Provides:  results.At(0).Type(),
		Params:    providerParams,
		Error:     hasError,
	}, nil
}

func createInjectable(spec *ast.TypeSpec, pkg *packages.Package, directive *directiveparser.DirectiveInjectable) (*Injectable, error) {
	if spec.TypeParams != nil {
		return nil, errors.Errorf("injectable type %s must not be generic", spec.Name.Name)
	}
	typeName, ok := pkg.TypesInfo.ObjectOf(spec.Name).(*types.TypeName)
	if !ok {
		return nil, errors.Errorf("failed to retrieve object for type %s", spec.Name.Name)
	}
	named, ok := typeName.Type().(*types.Named)
	if !ok {
		return nil, errors.Errorf("injectable type %s must not be an alias", spec.Name.Name)
	}
	strct, ok := named.Underlying().(*types.Struct)
	if !ok {
		return nil, errors.Errorf("injectable type %s must be a struct", spec.Name.Name)
	}
	fields := []Field{}
	for i := range strct.NumFields() {
		field := strct.Field(i)
		name, ok := reflect.StructTag(strct.Tag(i)).Lookup("inject")
		if name == "-" {
			continue
		}
		if !ok {
			name = ""
		}
		fields = append(fields, Field{Name: field.Name(), Type: field.Type(), InjectName: name})
	}
	return &Injectable{
		Position:  fset.Position(spec.Pos()),
		Directive: directive,
		Type:      named,
		Fields:    fields,
	}, nil
}

func isNamedType(t types.Type, pkgPath, name string) bool {
	named, ok := t.(*types.Named)
	if !ok {
		return false
	}
	obj := named.Obj()
	return obj.Name() == name && obj.Pkg() != nil && obj.Pkg().Path() == pkgPath
}

func isContainerType(t types.Type) bool {
	ptr, ok := t.(*types.Pointer)
	return ok && isNamedType(ptr.Elem(), InjectPackage, "Container")
}

func isErrorType(t types.Type) bool {
	named, ok := t.(*types.Named)
	if !ok {
		return false
	}
	return named.Obj().Name() == "error" && named.Obj().Pkg() == nil
}

func findMissingDependencies(graph *Graph) {
	provided := map[string]bool{}
	for _, provider := range graph.Providers {
		if provider.Directive.Name == "" {
			provided[types.TypeString(provider.Provides, nil)] = true
		}
	}
	for _, injectable := range graph.Injectables {
		provided[types.TypeString(types.NewPointer(injectable.Type), nil)] = true
	}

	for _, provider := range graph.Providers {
		for _, required := range provider.Requires() {
			key := types.TypeString(required, nil)
			if provided[key] {
				continue
			}
			existing := graph.Missing[provider.Function]
			if slices.ContainsFunc(existing, func(t types.Type) bool { return types.Identical(t, required) }) {
				continue
			}
			graph.Missing[provider.Function] = append(existing, required)
		}
	}
}

func importPathForDir(dir string) (string, error) {
	if !modfile.IsDirectoryPath(dir) {
		return dir, nil
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.Errorf("failed to get absolute path for directory %s: %w", dir, err)
	}
	dir = root
	// Search up directories for go.mod file
	for {
		if _, err := os.Stat(filepath.Join(root, "go.mod")); err == nil {
			break
		}
		if root == filepath.Dir(root) {
			return "", errors.Errorf("couldn't find a go.mod file above %s", dir)
		}
		root = filepath.Dir(root)
	}
	dir, err = filepath.Rel(root, dir)
	if err != nil {
		return "", errors.Errorf("failed to get relative path for directory %s: %w", dir, err)
	}
	goModPath := filepath.Join(root, "go.mod")
	data, err := os.ReadFile(goModPath) //nolint
	if err != nil {
		return "", errors.Errorf("failed to read go.mod file at %s: %w", goModPath, err)
	}
	mod, err := modfile.Parse(goModPath, data, nil)
	if err != nil {
		return "", errors.Errorf("failed to parse go.mod file at %s: %w", goModPath, err)
	}
	return path.Join(mod.Module.Mod.Path, filepath.ToSlash(dir)), nil
}

// Picks a single provider from a list of providers.
//
// Disambiguates through three mechanisms:
//
//  1. If there is only a single provider, it is chosen.
//  2. If a provider matches a specific pick, it is chosen.
//  3. If there is a single non-weak provider, it is chosen.
func pickProvider(providers []*Provider, pick []string) *Provider {
	if len(providers) == 1 {
		return providers[0]
	}
	var strong []*Provider
	for _, provider := range providers {
		if !provider.Directive.Weak {
			strong = append(strong, provider)
		}
		key := provider.Function.FullName()
		for _, pick := range pick {
			if key == pick {
				return provider
			}
		}
	}
	if len(strong) == 1 {
		return strong[0]
	}
	return nil
}
