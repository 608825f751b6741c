package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

const sqliteFileExt = ".db"

// sqliteDialect implements the embedded backend. A 'database' is a
// single file inside the configured data directory.
type sqliteDialect struct {
	config DatabaseConfig
}

func (d *sqliteDialect) Backend() Backend                        { return SQLite }
func (d *sqliteDialect) Placeholder() squirrel.PlaceholderFormat { return squirrel.Question }
func (d *sqliteDialect) SupportsReturning() bool                 { return false }
func (d *sqliteDialect) AutoIncrementKey() (string, string) {
	return "INTEGER", "PRIMARY KEY AUTOINCREMENT"
}

func (d *sqliteDialect) DSN(name string) (string, error) {
	if err := os.MkdirAll(d.config.DataDir, os.ModeDir|os.ModePerm); err != nil {
		return "", fmt.Errorf("failed to create sqlite data directory %s: %w", d.config.DataDir, err)
	}

	return fmt.Sprintf("file:%s?_busy_timeout=5000", d.path(name)), nil
}

func (d *sqliteDialect) ListDatabases(_ context.Context, _ Queryable) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(d.config.DataDir, "*"+sqliteFileExt))
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(matches))
	for _, match := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(match), sqliteFileExt))
	}
	sort.Strings(names)

	return names, nil
}

// CreateDatabase creates an empty file for the database, which sqlite
// accepts as a valid (empty) database.
func (d *sqliteDialect) CreateDatabase(_ context.Context, _ Queryable, name string) error {
	if err := os.MkdirAll(d.config.DataDir, os.ModeDir|os.ModePerm); err != nil {
		return err
	}

	f, err := os.OpenFile(d.path(name), os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}

	return f.Close()
}

func (d *sqliteDialect) DropDatabase(_ context.Context, _ Queryable, name string) error {
	if err := os.Remove(d.path(name)); err != nil {
		return err
	}

	for _, suffix := range []string{"-wal", "-shm", "-journal"} {
		if err := os.Remove(d.path(name) + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	return nil
}

func (d *sqliteDialect) ListTables(ctx context.Context, db Queryable) ([]string, error) {
	var tables []string
	err := db.SelectContext(ctx, &tables, `
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)

	return tables, err
}

func (d *sqliteDialect) ListColumns(ctx context.Context, db Queryable, table string) ([]Column, error) {
	// pk is the 1-based position within the primary key, or 0
	var rows []struct {
		Name string `db:"name"`
		Pk   int    `db:"pk"`
	}
	if err := db.SelectContext(ctx, &rows, `SELECT name, pk FROM pragma_table_info(?) ORDER BY cid`, table); err != nil {
		return nil, err
	}

	columns := make([]Column, len(rows))
	for i, row := range rows {
		columns[i] = Column{Name: row.Name, PrimaryKey: row.Pk > 0}
	}

	return columns, nil
}

func (d *sqliteDialect) path(name string) string {
	return filepath.Join(d.config.DataDir, name+sqliteFileExt)
}
