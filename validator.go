package inject

import (
	"context"

	"github.com/alecthomas/errors"
)

// Validator resolves every key defined by a container to check that the
// object graph is complete.
type Validator struct {
	params *Registry[any]
}

// NewValidator creates a Validator.
func NewValidator() *Validator {
	return &Validator{params: NewRegistry[any]()}
}

// AddParams supplies the parameters used when validating key.
func (v *Validator) AddParams(key ServiceKey, params any) *Validator {
	v.params.Set(key, params)
	return v
}

// AddParamsFor supplies the parameters used when validating T with the
// given name.
func AddParamsFor[T any](v *Validator, name string, params any) *Validator {
	return v.AddParams(KeyFor[T](name), params)
}

// Validate resolves each key defined directly in c, in key order, calling
// onFailure once for every key that fails.
func (v *Validator) Validate(ctx context.Context, c *Container, onFailure func(err error)) {
	for _, key := range c.Keys() {
		params, _ := v.params.Get(key)
		if _, err := c.Resolve(ctx, key, params); err != nil {
			c.logger.WarnContext(ctx, "Validation failed", "key", key.String(), "error", err)
			onFailure(err)
		}
	}
}

// ValidateAll is Validate, returning all failures joined into a single error.
func (v *Validator) ValidateAll(ctx context.Context, c *Container) error {
	var errs []error
	v.Validate(ctx, c, func(err error) { errs = append(errs, err) })
	return errors.Join(errs...)
}
