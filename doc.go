// Package inject is a dependency injection container.
//
// Values are registered as definitions keyed by Go type and an optional
// [Name], declared by modules, and resolved on demand:
//
//	type StorageModule struct{}
//
//	func (StorageModule) Configure(d *inject.Definitions) {
//		inject.Singleton(d, func(ctx context.Context, c *inject.Container) (*sql.DB, error) {
//			return sql.Open("sqlite", ":memory:")
//		})
//	}
//
//	c, err := inject.New(inject.WithModules(StorageModule{}))
//	db, err := inject.Get[*sql.DB](ctx, c)
//
// Containers form a hierarchy. A child resolves its own definitions first and
// falls back to its ancestors, and a definition always resolves its own
// dependencies against the container that owns it. Accumulated values, see
// [AccumulationKey], combine contributions from every level of the hierarchy.
//
// Definitions can also be supplied for a single resolution with [GetLocal].
package inject
