package database

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
)

type (
	// Column describes a single column of an existing table, as
	// reported by the backends own catalog.
	Column struct {
		Name       string `db:"column_name"`
		PrimaryKey bool   `db:"is_pk"`
	}

	// Dialect hides the per-backend differences that the table store
	// must not special-case: connection strings, catalog introspection,
	// database lifecycle, placeholder style and identifier generation.
	Dialect interface {
		Backend() Backend
		DSN(name string) (string, error)
		Placeholder() squirrel.PlaceholderFormat

		// SupportsReturning indicates that generated keys must be read
		// back with a RETURNING clause, rather than via LastInsertId.
		SupportsReturning() bool

		// AutoIncrementKey returns the column type and constraint used
		// to declare an auto-incrementing integer primary key.
		AutoIncrementKey() (string, string)

		ListDatabases(ctx context.Context, db Queryable) ([]string, error)
		CreateDatabase(ctx context.Context, db Queryable, name string) error
		DropDatabase(ctx context.Context, db Queryable, name string) error
		ListTables(ctx context.Context, db Queryable) ([]string, error)
		ListColumns(ctx context.Context, db Queryable, table string) ([]Column, error)
	}
)

// NewDialect returns the Dialect matching the backend named in the config.
func NewDialect(config DatabaseConfig) (Dialect, error) {
	switch Backend(config.Backend) {
	case SQLite:
		return &sqliteDialect{config}, nil
	case Postgres:
		return &postgresDialect{config}, nil
	case MySQL:
		return &mysqlDialect{config}, nil
	default:
		return nil, fmt.Errorf("unsupported database backend %q", config.Backend)
	}
}
