package inject

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/alecthomas/errors"
)

type overlayKey struct{}

// overlayFrame is a snapshot overlay carried by a context. Frames are
// immutable, a nested local resolution pushes a new frame holding a copy of
// the registry it shadows.
type overlayFrame struct {
	owner    *Container
	registry *Registry[Definition]
	next     *overlayFrame
}

type holderKey struct{}

// holding marks a context as the holder of a container's shared slot.
type holding struct {
	container *Container
	next      *holding
}

// sharedSlot is the single overlay of a container using SharedOverlay.
type sharedSlot struct {
	mu       sync.Mutex
	active   atomic.Bool
	registry *Registry[Definition]
}

// overlay returns the local definitions owned by c that are visible to ctx.
func (c *Container) overlay(ctx context.Context) *Registry[Definition] {
	if c.strategy == SharedOverlay {
		switch {
		case c.holds(ctx):
			return c.shared.registry
		case c.strict || !c.shared.active.Load():
			// A strict slot is private to its holder.
			return nil
		default:
			return c.shared.registry
		}
	}
	for f, _ := ctx.Value(overlayKey{}).(*overlayFrame); f != nil; f = f.next {
		if f.owner == c {
			return f.registry
		}
	}
	return nil
}

func (c *Container) holds(ctx context.Context) bool {
	for h, _ := ctx.Value(holderKey{}).(*holding); h != nil; h = h.next {
		if h.container == c {
			return true
		}
	}
	return false
}

// withLocal installs the definitions declared by configure as an overlay on c
// for the returned context. release must be called once the resolution using
// the context has completed.
func (c *Container) withLocal(ctx context.Context, configure func(d *Definitions)) (_ context.Context, release func(), err error) {
	d := &Definitions{}
	if configure != nil {
		configure(d)
	}
	if c.strategy == SharedOverlay {
		return c.withShared(ctx, d)
	}
	parent, _ := ctx.Value(overlayKey{}).(*overlayFrame)
	var registry *Registry[Definition]
	if existing := c.overlay(ctx); existing != nil {
		registry = existing.Clone()
	} else {
		registry = NewRegistry[Definition]()
	}
	for _, def := range d.All() {
		insert(registry, def)
	}
	c.logger.DebugContext(ctx, "Installed local definitions", "definitions", len(d.All()), "overlay", registry.Len())
	ctx = context.WithValue(ctx, overlayKey{}, &overlayFrame{owner: c, registry: registry, next: parent})
	return ctx, func() {}, nil
}

func (c *Container) withShared(ctx context.Context, d *Definitions) (context.Context, func(), error) {
	if c.holds(ctx) {
		return ctx, nil, errors.WithStack(ErrNestedLocalResolve)
	}
	if c.strict {
		c.shared.mu.Lock()
		c.shared.active.Store(true)
	} else if !c.shared.active.CompareAndSwap(false, true) {
		return ctx, nil, errors.WithStack(ErrNestedLocalResolve)
	}
	slot := c.shared.registry
	for _, def := range d.All() {
		insert(slot, def)
	}
	c.logger.DebugContext(ctx, "Installed shared local definitions", "definitions", len(d.All()), "strict", c.strict)
	parent, _ := ctx.Value(holderKey{}).(*holding)
	ctx = context.WithValue(ctx, holderKey{}, &holding{container: c, next: parent})
	return ctx, func() {
		slot.RemoveAll()
		c.shared.active.Store(false)
		if c.strict {
			c.shared.mu.Unlock()
		}
	}, nil
}
