package database

import (
	"context"
	"fmt"
	"net"

	"github.com/Masterminds/squirrel"
	"github.com/go-sql-driver/mysql"
)

const mysqlDefaultPort = "3306"

type mysqlDialect struct {
	config DatabaseConfig
}

func (d *mysqlDialect) Backend() Backend                        { return MySQL }
func (d *mysqlDialect) Placeholder() squirrel.PlaceholderFormat { return squirrel.Question }
func (d *mysqlDialect) SupportsReturning() bool                 { return false }
func (d *mysqlDialect) AutoIncrementKey() (string, string)      { return "INT", "AUTO_INCREMENT PRIMARY KEY" }

func (d *mysqlDialect) DSN(name string) (string, error) {
	port := d.config.Port
	if port == "" {
		port = mysqlDefaultPort
	}

	cfg := mysql.NewConfig()
	cfg.User = d.config.User
	cfg.Passwd = d.config.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(d.config.Host, port)
	cfg.DBName = name
	cfg.ParseTime = true

	return cfg.FormatDSN(), nil
}

func (d *mysqlDialect) ListDatabases(ctx context.Context, db Queryable) ([]string, error) {
	var names []string
	err := db.SelectContext(ctx, &names, `SHOW DATABASES`)

	return names, err
}

func (d *mysqlDialect) CreateDatabase(ctx context.Context, db Queryable, name string) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf("CREATE DATABASE `%s`", name))
	return err
}

func (d *mysqlDialect) DropDatabase(ctx context.Context, db Queryable, name string) error {
	_, err := db.ExecContext(ctx, fmt.Sprintf("DROP DATABASE `%s`", name))
	return err
}

func (d *mysqlDialect) ListTables(ctx context.Context, db Queryable) ([]string, error) {
	var tables []string
	err := db.SelectContext(ctx, &tables, `SHOW TABLES`)

	return tables, err
}

func (d *mysqlDialect) ListColumns(ctx context.Context, db Queryable, table string) ([]Column, error) {
	var columns []Column
	err := db.SelectContext(ctx, &columns, `
		SELECT column_name AS column_name, column_key = 'PRI' AS is_pk
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position`, table)

	return columns, err
}
