package sql

import (
	"context"
	"database/sql"
	"os"
	"strings"

	"github.com/alecthomas/errors"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

func init() {
	Register("sqlite", SQLiteDriver{})
}

// SQLiteDriver opens sqlite://file:<path>[?options] DSNs with the pure Go
// modernc.org/sqlite driver. Foreign keys are enforced unless the DSN sets
// its own pragmas.
type SQLiteDriver struct{}

var _ Driver = (*SQLiteDriver)(nil)

func (SQLiteDriver) Name() string { return "sqlite" }

func (SQLiteDriver) TranslateError(err error) error {
	var sqliteErr *sqlite.Error
	// Extended result codes keep the primary code in the low byte.
	if errors.As(err, &sqliteErr) && sqliteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
		return errors.Errorf("%w: %w", ErrConstraint, err)
	}
	return err
}

func (SQLiteDriver) Denormalise(query string) string { return query }

func (SQLiteDriver) Open(dsn string) (*sql.DB, error) {
	return errors.WithStack2(sql.Open("sqlite", sqliteDSN(dsn)))
}

// RecreateDatabase removes the database file. In-memory databases are left alone.
func (SQLiteDriver) RecreateDatabase(ctx context.Context, dsn string) error {
	path, ok := sqliteFile(dsn)
	if !ok {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// sqliteDSN converts a sqlite:// DSN into the form the driver accepts.
func sqliteDSN(dsn string) string {
	dsn = strings.TrimPrefix(dsn, "sqlite://")
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_pragma=foreign_keys(1)"
	}
	return dsn + "?_pragma=foreign_keys(1)"
}

// sqliteFile returns the path of the file backing dsn, if any.
func sqliteFile(dsn string) (string, bool) {
	dsn = strings.TrimPrefix(dsn, "sqlite://")
	path, query, _ := strings.Cut(dsn, "?")
	path = strings.TrimPrefix(path, "file:")
	if path == ":memory:" || strings.Contains(query, "mode=memory") {
		return "", false
	}
	return path, true
}
