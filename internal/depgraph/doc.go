// Package depgraph collects functions and types with inject annotations and returns them as a graph that the
// generator turns into a module.
//
// Two directives are recognised:
//
//	//inject:provider [singleton] [weak] [name=<name>]
//	//inject:injectable [constructor]
//
// Providers are plain functions returning (T) or (T, error). Their parameters are resolved from the container, except
// for a context.Context, which receives the resolution context, and a *inject.Container, which receives the container
// the provider is registered in.
//
// Injectables are struct types in the destination package. Every exported and unexported field is resolved from the
// container unless tagged `inject:"-"`, and a tag of `inject:"<name>"` resolves the named entry.
//
// If multiple providers register the same key, one is chosen as follows:
//
//  1. If there is only a single provider, it is chosen.
//  2. If the user picked one of them by its fully qualified function name, it is chosen.
//  3. If exactly one of them is not marked "weak", it is chosen.
//
// Otherwise analysis fails with an ambiguity error.
package depgraph
