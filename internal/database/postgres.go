package database

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
)

const (
	postgresDefaultPort = "5432"
	postgresDSN         = "host=%s user=%s password=%s dbname=%s port=%s sslmode=%s"
)

type postgresDialect struct {
	config DatabaseConfig
}

func (d *postgresDialect) Backend() Backend                        { return Postgres }
func (d *postgresDialect) Placeholder() squirrel.PlaceholderFormat { return squirrel.Dollar }
func (d *postgresDialect) SupportsReturning() bool                 { return true }
func (d *postgresDialect) AutoIncrementKey() (string, string)      { return "SERIAL", "PRIMARY KEY" }

func (d *postgresDialect) DSN(name string) (string, error) {
	port := d.config.Port
	if port == "" {
		port = postgresDefaultPort
	}

	return fmt.Sprintf(postgresDSN, d.config.Host, d.config.User, d.config.Password, name, port, d.config.SSLMode), nil
}

func (d *postgresDialect) ListDatabases(ctx context.Context, db Queryable) ([]string, error) {
	var names []string
	err := db.SelectContext(ctx, &names, `SELECT datname FROM pg_database WHERE datistemplate = false ORDER BY datname`)

	return names, err
}

// Database names are quoted so that the name reported by ListDatabases
// matches the name requested, regardless of case.
func (d *postgresDialect) CreateDatabase(ctx context.Context, db Queryable, name string) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(`CREATE DATABASE "%s"`, name))
	return err
}

func (d *postgresDialect) DropDatabase(ctx context.Context, db Queryable, name string) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf(`DROP DATABASE "%s"`, name))
	return err
}

func (d *postgresDialect) ListTables(ctx context.Context, db Queryable) ([]string, error) {
	var tables []string
	err := db.SelectContext(ctx, &tables, `
		SELECT table_name FROM information_schema.tables
		WHERE table_schema = current_schema() AND table_type = 'BASE TABLE'
		ORDER BY table_name`)

	return tables, err
}

func (d *postgresDialect) ListColumns(ctx context.Context, db Queryable, table string) ([]Column, error) {
	var columns []Column
	err := db.SelectContext(ctx, &columns, `
		SELECT c.column_name,
			EXISTS (
				SELECT 1 FROM information_schema.table_constraints tc
				JOIN information_schema.key_column_usage k
					ON k.constraint_name = tc.constraint_name AND k.table_schema = tc.table_schema
				WHERE tc.constraint_type = 'PRIMARY KEY'
					AND tc.table_schema = c.table_schema
					AND tc.table_name = c.table_name
					AND k.column_name = c.column_name
			) AS is_pk
		FROM information_schema.columns c
		WHERE c.table_schema = current_schema() AND c.table_name = $1
		ORDER BY c.ordinal_position`, table)

	return columns, err
}
