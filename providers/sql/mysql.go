package sql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/alecthomas/errors"
	"github.com/go-sql-driver/mysql"
)

func init() {
	Register("mysql", MySQLDriver{})
}

type MySQLDriver struct{}

var _ Driver = (*MySQLDriver)(nil)

func (MySQLDriver) Name() string { return "mysql" }

func (MySQLDriver) TranslateError(err error) error {
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case 1048, 1062, 1216, 1217, 1451, 1452, 3819: // NOT NULL, duplicate key, foreign keys, CHECK
			return errors.Errorf("%w: %w", ErrConstraint, err)
		}
	}
	return err
}

func (MySQLDriver) Denormalise(query string) string { return query }

func (MySQLDriver) Open(dsn string) (*sql.DB, error) {
	config, err := parseMySQLDSN(dsn)
	if err != nil {
		return nil, err
	}
	return errors.WithStack2(sql.Open("mysql", config.FormatDSN()))
}

func (MySQLDriver) RecreateDatabase(ctx context.Context, dsn string) error {
	config, err := parseMySQLDSN(dsn)
	if err != nil {
		return err
	}
	dbName := config.DBName
	config.DBName = ""
	db, err := sql.Open("mysql", config.FormatDSN())
	if err != nil {
		return errors.Errorf("failed to open database connection: %w", err)
	}
	defer db.Close()
	_, err = db.ExecContext(ctx, fmt.Sprintf("DROP DATABASE IF EXISTS `%s`", dbName)) //nolint
	if err != nil {
		return errors.Errorf("failed to drop database: %w", err)
	}
	_, err = db.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE `%s`", dbName)) //nolint
	if err != nil {
		return errors.Errorf("failed to create database: %w", err)
	}
	return nil
}

// parseMySQLDSN accepts either a native DSN or one prefixed with mysql://.
func parseMySQLDSN(dsn string) (*mysql.Config, error) {
	dsn = strings.TrimPrefix(dsn, "mysql://")
	config, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Errorf("failed to parse DSN: %w", err)
	}
	return config, nil
}
