package sql

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/alecthomas/errors"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
)

func init() {
	Register("postgres", PostgresDriver{})
	Register("pgx", PostgresDriver{})
}

// PostgresDriver opens postgres:// and pgx:// DSNs through pgx.
type PostgresDriver struct{}

var _ Driver = (*PostgresDriver)(nil)

func (PostgresDriver) Name() string { return "postgres" }

func (PostgresDriver) TranslateError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) {
		return errors.Errorf("%w: %w", ErrConstraint, err)
	}
	return err
}

// Denormalise numbers "?" placeholders as $1, $2, ... outside of quoted
// literals and identifiers.
func (PostgresDriver) Denormalise(query string) string {
	var b strings.Builder
	var quote rune
	n := 0
	for _, r := range query {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '?':
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (PostgresDriver) Open(dsn string) (*sql.DB, error) {
	config, err := pgx.ParseConfig(normalisePostgresDSN(dsn))
	if err != nil {
		return nil, errors.Errorf("failed to parse DSN: %w", err)
	}
	return stdlib.OpenDB(*config), nil
}

// RecreateDatabase connects to the server's maintenance database, terminates
// connections to the target database, then drops and creates it.
func (PostgresDriver) RecreateDatabase(ctx context.Context, dsn string) error {
	config, err := pgx.ParseConfig(normalisePostgresDSN(dsn))
	if err != nil {
		return errors.Errorf("failed to parse DSN: %w", err)
	}
	name := config.Database
	if name == "" {
		return errors.Errorf("DSN %q does not name a database", dsn)
	}
	config.Database = "postgres"
	db := stdlib.OpenDB(*config)
	defer db.Close()

	_, err = db.ExecContext(ctx, `
		SELECT pg_terminate_backend(pid)
		FROM pg_stat_activity
		WHERE datname = $1 AND pid <> pg_backend_pid()`, name)
	if err != nil {
		return errors.Errorf("failed to terminate connections to %s: %w", name, err)
	}
	ident := pgx.Identifier{name}.Sanitize()
	if _, err = db.ExecContext(ctx, "DROP DATABASE IF EXISTS "+ident); err != nil {
		return errors.Errorf("failed to drop database %s: %w", name, err)
	}
	if _, err = db.ExecContext(ctx, "CREATE DATABASE "+ident); err != nil {
		return errors.Errorf("failed to create database %s: %w", name, err)
	}
	return nil
}

func normalisePostgresDSN(dsn string) string {
	if after, ok := strings.CutPrefix(dsn, "pgx://"); ok {
		return "postgres://" + after
	}
	return dsn
}
