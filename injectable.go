package inject

import (
	"context"

	"github.com/alecthomas/errors"
)

// Injectable is implemented by types that can construct themselves when no
// container in the hierarchy defines them.
//
// Inject is called on the zero value of the type, typically a nil pointer, or
// on a pointer to it, and must not depend on the receiver. Code generated by injectgen implements
// this interface for annotated structs.
type Injectable interface {
	Inject(ctx context.Context, c *Container) (any, error)
}

// injectableFor returns the Injectable implementation of T or *T.
func injectableFor[T any]() (Injectable, bool) {
	var zero T
	if injectable, ok := any(zero).(Injectable); ok {
		return injectable, true
	}
	injectable, ok := any(&zero).(Injectable)
	return injectable, ok
}

func construct(ctx context.Context, c *Container, key ServiceKey, injectable Injectable) (any, error) {
	value, err := injectable.Inject(ctx, c)
	if err != nil {
		return nil, errors.Errorf("%s: %w", key, err)
	}
	if isNil(value) {
		return nil, nilDependency(key)
	}
	return value, nil
}
