package inject

import (
	"context"
	"log/slog"

	"github.com/alecthomas/errors"
)

// OverlayStrategy selects how local definitions passed to [GetLocal] are made
// visible to the resolution they belong to.
type OverlayStrategy int

const (
	// SnapshotOverlay carries local definitions in the context of the call.
	// Concurrent local resolutions are fully isolated and may be nested.
	SnapshotOverlay OverlayStrategy = iota
	// SharedOverlay installs local definitions into a slot shared by every
	// caller of the container. With strict locking the slot is held for the
	// whole call, serialising local resolutions, and its definitions are only
	// visible to the holder. Nesting is rejected with [ErrNestedLocalResolve].
	//
	// Nesting is detected through the context. A local definition that starts
	// another local resolution on the same container with a context not
	// derived from its own waits for the slot forever under strict locking.
	SharedOverlay
)

func (o OverlayStrategy) String() string {
	switch o {
	case SnapshotOverlay:
		return "snapshot"
	case SharedOverlay:
		return "shared"
	default:
		return "unknown"
	}
}

// ParseOverlayStrategy parses the String form of an OverlayStrategy.
func ParseOverlayStrategy(s string) (OverlayStrategy, error) {
	switch s {
	case "snapshot", "":
		return SnapshotOverlay, nil
	case "shared":
		return SharedOverlay, nil
	default:
		return 0, errors.Errorf("unknown overlay strategy %q", s)
	}
}

// Container resolves values from its own definitions and those of its
// ancestors.
//
// A Container is safe for concurrent use. Its definitions are fixed at
// construction, new definitions are introduced through child containers or
// local resolution.
type Container struct {
	parent   *Container
	registry *Registry[Definition]
	strategy OverlayStrategy
	strict   bool
	logger   *slog.Logger
	shared   sharedSlot
}

type containerOptions struct {
	modules  []Module
	parent   *Container
	strategy OverlayStrategy
	strict   bool
	logger   *slog.Logger
}

// An Option configures a Container.
type Option func(o *containerOptions) error

// WithModules registers modules, and their transitive dependencies, with the container.
func WithModules(modules ...Module) Option {
	return func(o *containerOptions) error {
		o.modules = append(o.modules, modules...)
		return nil
	}
}

// WithDefinitions registers the definitions declared by configure.
func WithDefinitions(configure func(d *Definitions)) Option {
	return WithModules(NewModule("", configure))
}

// WithParent makes parent the fallback for keys the container does not define.
//
// Unless overridden, the child inherits the parent's overlay strategy,
// locking mode and logger.
func WithParent(parent *Container) Option {
	return func(o *containerOptions) error {
		if parent == nil {
			return errors.New("parent container must not be nil")
		}
		o.parent = parent
		o.strategy = parent.strategy
		o.strict = parent.strict
		o.logger = parent.logger
		return nil
	}
}

// WithOverlay selects the local overlay strategy. The default is [SnapshotOverlay].
func WithOverlay(strategy OverlayStrategy) Option {
	return func(o *containerOptions) error {
		switch strategy {
		case SnapshotOverlay, SharedOverlay:
			o.strategy = strategy
			return nil
		default:
			return errors.Errorf("invalid overlay strategy %d", int(strategy))
		}
	}
}

// WithStrictLocking controls whether [SharedOverlay] holds its lock for the
// whole of a local resolution. It defaults to true.
//
// Disabling it makes local definitions visible to concurrent callers of the
// same container.
func WithStrictLocking(strict bool) Option {
	return func(o *containerOptions) error {
		o.strict = strict
		return nil
	}
}

// WithLogger sets the logger used for container diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *containerOptions) error {
		o.logger = logger
		return nil
	}
}

// WithConfig applies a Config.
func WithConfig(config Config) Option {
	return func(o *containerOptions) error {
		strategy, err := ParseOverlayStrategy(config.Overlay)
		if err != nil {
			return errors.WithStack(err)
		}
		o.strategy = strategy
		o.strict = config.StrictLocking
		return nil
	}
}

// WithOptions combines multiple options into one.
func WithOptions(options ...Option) Option {
	return func(o *containerOptions) error {
		for _, option := range options {
			if err := option(o); err != nil {
				return err
			}
		}
		return nil
	}
}

// New creates a Container.
func New(options ...Option) (*Container, error) {
	o := &containerOptions{strategy: SnapshotOverlay, strict: true}
	for _, option := range options {
		if err := option(o); err != nil {
			return nil, err
		}
	}
	return newContainer(o), nil
}

// MustNew is New but panics on error.
func MustNew(options ...Option) *Container {
	c, err := New(options...)
	if err != nil {
		panic(err)
	}
	return c
}

func newContainer(o *containerOptions) *Container {
	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Container{
		parent:   o.parent,
		registry: NewRegistry[Definition](),
		strategy: o.strategy,
		strict:   o.strict,
		logger:   logger,
		shared:   sharedSlot{registry: NewRegistry[Definition]()},
	}
	modules := Flatten(o.modules...)
	register(c.registry, modules)
	c.logger.Debug("Created container", "modules", len(modules), "definitions", c.registry.Len(), "child", c.parent != nil)
	return c
}

// register configures each module with a fresh Definitions and inserts the
// result into registry.
func register(registry *Registry[Definition], modules []Module) {
	for _, module := range modules {
		d := &Definitions{}
		module.Configure(d)
		for _, def := range d.All() {
			insert(registry, def)
		}
	}
}

// NewChild creates a container whose parent is c. The child inherits the
// overlay strategy, locking mode and logger of c.
func (c *Container) NewChild(modules ...Module) *Container {
	return newContainer(&containerOptions{
		modules:  modules,
		parent:   c,
		strategy: c.strategy,
		strict:   c.strict,
		logger:   c.logger,
	})
}

// NewChildFunc creates a child of c from a single anonymous module.
func (c *Container) NewChildFunc(configure func(d *Definitions)) *Container {
	return c.NewChild(NewModule("", configure))
}

// Parent returns the parent container, or nil for a root container.
func (c *Container) Parent() *Container { return c.parent }

// Keys returns the keys defined directly in c, excluding ancestors.
func (c *Container) Keys() []ServiceKey { return c.registry.Keys() }

// Len returns the number of keys defined directly in c.
func (c *Container) Len() int { return c.registry.Len() }

// layer is one registry in a lookup chain, along with the container its
// definitions resolve against.
type layer struct {
	registry *Registry[Definition]
	owner    *Container
}

// layers returns the lookup chain for c: any local overlay owned by c, c's
// own definitions, and then the same for each ancestor.
func (c *Container) layers(ctx context.Context) []layer {
	out := []layer{}
	for s := c; s != nil; s = s.parent {
		if overlay := s.overlay(ctx); overlay != nil {
			out = append(out, layer{registry: overlay, owner: s})
		}
		out = append(out, layer{registry: s.registry, owner: s})
	}
	return out
}

// Resolve returns the value for key, passing params to parameterised
// definitions.
//
// Unlike [Get], Resolve does not fall back to [Injectable] construction.
func (c *Container) Resolve(ctx context.Context, key ServiceKey, params any) (any, error) {
	ctx, err := enter(ctx, c, key)
	if err != nil {
		return nil, err
	}
	return c.resolve(ctx, key, params)
}

func (c *Container) resolve(ctx context.Context, key ServiceKey, params any) (any, error) {
	layers := c.layers(ctx)
	for i, l := range layers {
		def, ok := l.registry.Get(key)
		if !ok {
			continue
		}
		if l.owner != c {
			// The definition resolves against its owner, so record the
			// resolution there too.
			var err error
			if ctx, err = enter(ctx, l.owner, key); err != nil {
				return nil, err
			}
		}
		return def.resolve(&request{ctx: ctx, key: key, params: params, layers: layers, index: i})
	}
	return nil, c.missing(ctx, key, layers)
}

func (c *Container) missing(ctx context.Context, key ServiceKey, layers []layer) error {
	seen := map[ServiceKey]bool{}
	similar := []ServiceKey{}
	for _, l := range layers {
		for _, candidate := range l.registry.Keys() {
			if seen[candidate] {
				continue
			}
			seen[candidate] = true
			if key.similar(candidate) {
				similar = append(similar, candidate)
			}
		}
	}
	c.logger.DebugContext(ctx, "Missing dependency", "key", key.String(), "available", len(seen), "similar", len(similar))
	return missingDependency(key, len(seen), similar)
}

type resolvingKey struct{}

// resolving is one entry in the chain of keys being resolved by a context.
type resolving struct {
	container *Container
	key       ServiceKey
	next      *resolving
}

// enter records that key is being resolved by c, failing if the same
// resolution is already in progress further up the chain.
func enter(ctx context.Context, c *Container, key ServiceKey) (context.Context, error) {
	head, _ := ctx.Value(resolvingKey{}).(*resolving)
	for r := head; r != nil; r = r.next {
		if r.container != c || r.key != key {
			continue
		}
		chain := []ServiceKey{key}
		for p := head; p != r; p = p.next {
			chain = append(chain, p.key)
		}
		chain = append(chain, key)
		// Reverse into resolution order.
		for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
			chain[i], chain[j] = chain[j], chain[i]
		}
		return ctx, circularDependency(key, chain)
	}
	return context.WithValue(ctx, resolvingKey{}, &resolving{container: c, key: key, next: head}), nil
}
