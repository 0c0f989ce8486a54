// Package sql provides a *sql.DB for a DSN, with migrations contributed by modules.
package sql

import (
	"context"
	"database/sql"
	"io/fs"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/alecthomas/errors"

	"github.com/alecthomas/inject"
)

// ErrConstraint is returned by [Driver.TranslateError] for constraint violations.
var ErrConstraint = errors.New("constraint violation")

// Config selects and prepares the database, suitable for embedding in a kong CLI.
type Config struct {
	DSN     string `default:"${sqldsn=sqlite://file:inject.db}" help:"DSN for the SQL connection."`
	Create  bool   `help:"Drop and recreate the database before connecting."`
	Migrate bool   `help:"Apply migrations after connecting." default:"true" negatable:""`
}

// Driver abstracts the differences between SQL databases.
type Driver interface {
	Name() string
	// TranslateError wraps driver specific errors with sentinels such as [ErrConstraint].
	TranslateError(err error) error
	// Denormalise rewrites "?" placeholders into the driver's native form.
	Denormalise(query string) string
	Open(dsn string) (*sql.DB, error)
	// RecreateDatabase drops and creates the database named by dsn.
	RecreateDatabase(ctx context.Context, dsn string) error
}

var (
	driversLock sync.RWMutex
	drivers     = map[string]Driver{}
)

// Register a Driver for a DSN scheme.
func Register(scheme string, driver Driver) {
	driversLock.Lock()
	defer driversLock.Unlock()
	drivers[scheme] = driver
}

// DriverForConfig returns the Driver registered for the scheme of the DSN.
func DriverForConfig(config Config) (Driver, error) {
	scheme, _, ok := strings.Cut(config.DSN, "://")
	if !ok {
		return nil, errors.Errorf("DSN %q has no scheme", config.DSN)
	}
	driversLock.RLock()
	defer driversLock.RUnlock()
	driver, ok := drivers[scheme]
	if !ok {
		return nil, errors.Errorf("unsupported SQL DSN scheme: %s", scheme)
	}
	return driver, nil
}

// Migrations is a set of migration trees, applied in order.
//
// Each tree contributes its top-level *.sql files, applied in lexical order
// and tracked by file name. Statements within a file are separated by
// semicolons.
type Migrations []fs.FS

// MigrationsKey accumulates the migrations contributed across a container hierarchy.
var MigrationsKey = inject.NewAccumulationKey(
	func() Migrations { return nil },
	func(current Migrations, next fs.FS) Migrations { return append(slices.Clip(current), next) },
)

// AddMigrations contributes a migration tree to [MigrationsKey].
func AddMigrations(d *inject.Definitions, migrations fs.FS) {
	inject.AccumulateSingleton(d, MigrationsKey, func(context.Context, *inject.Container) (fs.FS, error) {
		return migrations, nil
	})
}

// New connects to the database described by config, optionally recreating
// it and applying migrations.
func New(ctx context.Context, config Config, logger *slog.Logger, migrations Migrations) (*sql.DB, error) {
	driver, err := DriverForConfig(config)
	if err != nil {
		return nil, err
	}
	if config.Create {
		logger.InfoContext(ctx, "Recreating database", "driver", driver.Name())
		if err := driver.RecreateDatabase(ctx, config.DSN); err != nil {
			return nil, errors.Errorf("failed to recreate database: %w", err)
		}
	}
	db, err := driver.Open(config.DSN)
	if err != nil {
		return nil, errors.Errorf("failed to open %s connection: %w", driver.Name(), err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Errorf("failed to connect to %s: %w", driver.Name(), err)
	}
	if config.Migrate {
		if err := Migrate(ctx, db, driver, logger, migrations); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

// Migrate applies any migrations not yet recorded in the schema_migrations table.
func Migrate(ctx context.Context, db *sql.DB, driver Driver, logger *slog.Logger, migrations Migrations) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version VARCHAR(255) NOT NULL PRIMARY KEY)`)
	if err != nil {
		return errors.Errorf("failed to create schema_migrations: %w", err)
	}
	applied := map[string]bool{}
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return errors.Errorf("failed to query schema_migrations: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return errors.WithStack(err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return errors.WithStack(err)
	}

	for _, tree := range migrations {
		files, err := fs.Glob(tree, "*.sql")
		if err != nil {
			return errors.Errorf("failed to list migrations: %w", err)
		}
		slices.Sort(files)
		for _, file := range files {
			if applied[file] {
				continue
			}
			if err := migrate(ctx, db, driver, tree, file); err != nil {
				return errors.Errorf("%s: %w", file, err)
			}
			applied[file] = true
			logger.InfoContext(ctx, "Applied migration", "version", file)
		}
	}
	return nil
}

func migrate(ctx context.Context, db *sql.DB, driver Driver, tree fs.FS, file string) error {
	migration, err := fs.ReadFile(tree, file)
	if err != nil {
		return errors.WithStack(err)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WithStack(err)
	}
	defer tx.Rollback() //nolint
	for statement := range strings.SplitSeq(string(migration), ";") {
		if strings.TrimSpace(statement) == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, statement); err != nil {
			return driver.TranslateError(err)
		}
	}
	if _, err := tx.ExecContext(ctx, driver.Denormalise(`INSERT INTO schema_migrations (version) VALUES (?)`), file); err != nil {
		return driver.TranslateError(err)
	}
	return errors.WithStack(tx.Commit())
}

//inject:provider weak singleton
func ProvideDriver(config Config) (Driver, error) {
	return DriverForConfig(config)
}

// Module registers config, its [Driver], and a singleton *sql.DB.
//
// The database is migrated with every tree contributed to [MigrationsKey]
// in the container the module is registered in and its ancestors. A
// *slog.Logger is used if one is visible there.
func Module(config Config) inject.Module {
	return inject.NewModule("github.com/alecthomas/inject/providers/sql", func(d *inject.Definitions) {
		inject.Value(d, config)
		inject.Singleton(d, func(ctx context.Context, c *inject.Container) (Driver, error) {
			config, err := inject.Get[Config](ctx, c)
			if err != nil {
				return nil, err
			}
			return ProvideDriver(config)
		})
		inject.Singleton(d, func(ctx context.Context, c *inject.Container) (*sql.DB, error) {
			config, err := inject.Get[Config](ctx, c)
			if err != nil {
				return nil, err
			}
			logger, err := optional(inject.Get[*slog.Logger](ctx, c))
			if err != nil {
				return nil, err
			}
			if logger == nil {
				logger = slog.New(slog.DiscardHandler)
			}
			migrations, err := optional(inject.Get[Migrations](ctx, c))
			if err != nil {
				return nil, err
			}
			return New(ctx, config, logger, migrations)
		})
	})
}

// optional treats T itself being undefined as the zero value.
func optional[T any](value T, err error) (T, error) {
	var dependencyErr *inject.DependencyError
	if errors.As(err, &dependencyErr) && dependencyErr.Kind == inject.ErrMissingDependency && dependencyErr.Key == inject.KeyFor[T]("") {
		var zero T
		return zero, nil
	}
	return value, err
}
