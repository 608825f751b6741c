package table

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/ytarchive/ytarchive/internal/database"
	"github.com/ytarchive/ytarchive/pkg/logger"
)

var log = logger.Get("Store")

type (
	// tableContext is the introspected layout of a table: its name, the
	// ordering of its non-primary-key columns (as introspected), and
	// the primary key column (if any).
	tableContext struct {
		name       string
		columns    []string
		primaryKey string
	}

	// InsertResult reports the outcome of an insert. ID is only
	// meaningful when HasID is true, which is only the case for single
	// row inserts against a table with a generated key.
	InsertResult struct {
		RowsAffected int64
		ID           int64
		HasID        bool
	}

	// Store is a schema-aware persistence façade over a single active
	// database. Row level operations target the 'current table' set via
	// SetCurrentTable, unless an explicit-table variant (e.g. InsertRowInto)
	// is used; the explicit variants are safe for concurrent callers.
	Store struct {
		mu      sync.RWMutex
		engine  *database.Engine
		opener  database.Opener
		builder statementBuilder
		current *tableContext
	}
)

// New constructs a Store over the engine provided. The opener is used
// to connect to a different database when SwitchDatabase is called.
func New(engine *database.Engine, opener database.Opener) *Store {
	return &Store{
		engine:  engine,
		opener:  opener,
		builder: newStatementBuilder(engine.Dialect),
	}
}

// Database returns the name of the active database.
func (store *Store) Database() string {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return store.engine.Name
}

// Engine returns the active engine.
func (store *Store) Engine() *database.Engine {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return store.engine
}

// Databases lists the databases known to the backend.
func (store *Store) Databases(ctx context.Context) ([]string, error) {
	engine, _ := store.snapshot()
	names, err := engine.Dialect.ListDatabases(ctx, engine)
	return names, persistenceErr("list databases", "", err)
}

// CreateDatabaseIfAbsent creates the database named if it does not already
// exist. The returned boolean reports whether creation took place.
func (store *Store) CreateDatabaseIfAbsent(ctx context.Context, name string) (bool, error) {
	existing, err := store.Databases(ctx)
	if err != nil {
		return false, err
	}

	if slices.Contains(existing, name) {
		log.Infof("Database %s already exists\n", name)
		return false, nil
	}

	engine, _ := store.snapshot()
	if err := engine.Dialect.CreateDatabase(ctx, engine, name); err != nil {
		return false, persistenceErr("create database", name, err)
	}

	log.Emit(logger.NEW, "Database %s has been created\n", name)
	return true, nil
}

// DropDatabase drops the database named. The active database cannot
// be dropped.
func (store *Store) DropDatabase(ctx context.Context, name string) error {
	engine, _ := store.snapshot()
	if name == engine.Name {
		return fmt.Errorf("cannot drop active database %s", name)
	}

	if err := engine.Dialect.DropDatabase(ctx, engine, name); err != nil {
		return persistenceErr("drop database", name, err)
	}

	log.Emit(logger.REMOVE, "Database %s has been dropped\n", name)
	return nil
}

// SwitchDatabase connects to the database named, which becomes the active
// database. The current table context is invalidated, so callers must
// SetCurrentTable again.
func (store *Store) SwitchDatabase(ctx context.Context, name string) error {
	existing, err := store.Databases(ctx)
	if err != nil {
		return err
	}

	if !slices.Contains(existing, name) {
		return &NotFoundError{Kind: "database", Name: name}
	}

	engine, err := store.opener(name)
	if err != nil {
		return persistenceErr("switch database", name, err)
	}

	store.mu.Lock()
	previous := store.engine
	store.engine = engine
	store.builder = newStatementBuilder(engine.Dialect)
	store.current = nil
	store.mu.Unlock()

	if previous != nil {
		_ = previous.Close()
	}

	log.Emit(logger.INFO, "Switched to database %s\n", name)
	return nil
}

// Tables lists the tables in the active database.
func (store *Store) Tables(ctx context.Context) ([]string, error) {
	engine, _ := store.snapshot()
	tables, err := engine.Dialect.ListTables(ctx, engine)
	return tables, persistenceErr("list tables", "", err)
}

// Columns returns the introspected columns of the table named, in their
// ordinal order, with primary key columns flagged.
func (store *Store) Columns(ctx context.Context, name string) ([]database.Column, error) {
	engine, _ := store.snapshot()
	columns, err := engine.Dialect.ListColumns(ctx, engine, name)
	return columns, persistenceErr("list columns", name, err)
}

// CreateTableFromSpec creates the table named using the ordered column spec
// provided, unless a table with that name already exists. The returned
// boolean reports whether creation took place.
func (store *Store) CreateTableFromSpec(ctx context.Context, name string, spec Spec) (bool, error) {
	if len(spec) == 0 {
		return false, fmt.Errorf("cannot create table %s without columns", name)
	}

	existing, err := store.Tables(ctx)
	if err != nil {
		return false, err
	}

	if slices.Contains(existing, name) {
		log.Infof("Table %s already exists\n", name)
		return false, nil
	}

	engine, builder := store.snapshot()
	statement := builder.createTable(name, spec)
	if _, err := engine.ExecContext(ctx, statement); err != nil {
		return false, persistenceErr("create table", statement, err)
	}

	log.Emit(logger.NEW, "Table %s has been created\n", name)
	return true, nil
}

// DropTable drops the table named. If it is the current table, the
// current table context is cleared.
func (store *Store) DropTable(ctx context.Context, name string) error {
	engine, builder := store.snapshot()
	statement := builder.dropTable(name)
	if _, err := engine.ExecContext(ctx, statement); err != nil {
		return persistenceErr("drop table", statement, err)
	}

	store.mu.Lock()
	if store.current != nil && store.current.name == name {
		store.current = nil
	}
	store.mu.Unlock()

	log.Emit(logger.REMOVE, "Table %s has been dropped from %s\n", name, engine.Name)
	return nil
}

// SetCurrentTable makes the table named the implicit target of subsequent
// row operations. The table is looked up and its columns introspected on
// every call, so a table dropped or recreated by another connection is
// seen as it is now. If the table does not exist a NotFoundError is
// returned and the existing context is left untouched.
func (store *Store) SetCurrentTable(ctx context.Context, name string) error {
	tc, err := store.resolve(ctx, name)
	if err != nil {
		return err
	}

	store.mu.Lock()
	store.current = tc
	store.mu.Unlock()

	log.Infof("Switched to table %s (columns: %v)\n", name, tc.columns)
	return nil
}

// CurrentTable returns the current table name and its cached insert
// column ordering. The boolean is false when no table is set.
func (store *Store) CurrentTable() (string, []string, bool) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	if store.current == nil {
		return "", nil, false
	}

	return store.current.name, slices.Clone(store.current.columns), true
}

// InsertRow inserts a single row in to the current table. The values
// must positionally match the current table's column ordering.
func (store *Store) InsertRow(ctx context.Context, values []any) (InsertResult, error) {
	tc, err := store.currentContext()
	if err != nil {
		return InsertResult{}, err
	}

	return store.insert(ctx, tc, values)
}

// InsertRowInto inserts a single row in to the table named, without
// touching the current table context. The column ordering is introspected
// for every insert.
func (store *Store) InsertRowInto(ctx context.Context, name string, values []any) (InsertResult, error) {
	tc, err := store.resolve(ctx, name)
	if err != nil {
		return InsertResult{}, err
	}

	return store.insert(ctx, tc, values)
}

// InsertRows inserts many rows in to the current table using a single
// statement.
func (store *Store) InsertRows(ctx context.Context, rows [][]any) (InsertResult, error) {
	tc, err := store.currentContext()
	if err != nil {
		return InsertResult{}, err
	}

	if len(rows) == 0 {
		return InsertResult{}, nil
	}

	return store.insert(ctx, tc, rows...)
}

// SelectAll streams every row of the current table to fn. An empty
// column list selects all columns.
func (store *Store) SelectAll(ctx context.Context, columns []string, fn RowFunc) error {
	tc, err := store.currentContext()
	if err != nil {
		return err
	}

	_, builder := store.snapshot()
	return store.query(ctx, builder.selectFrom(tc.name, columns), fn)
}

// SelectWhere streams the rows of the current table matching the
// predicate to fn.
func (store *Store) SelectWhere(ctx context.Context, predicate Predicate, columns []string, fn RowFunc) error {
	tc, err := store.currentContext()
	if err != nil {
		return err
	}

	if predicate == nil {
		return errors.New("select where requires a predicate")
	}

	_, builder := store.snapshot()
	return store.query(ctx, builder.selectFrom(tc.name, columns).Where(predicate), fn)
}

// SelectOrderedBy streams the rows of the current table to fn, ordered by
// the column provided (ascending unless descending is set).
func (store *Store) SelectOrderedBy(ctx context.Context, column string, descending bool, columns []string, fn RowFunc) error {
	tc, err := store.currentContext()
	if err != nil {
		return err
	}

	order := column
	if descending {
		order += " DESC"
	}

	_, builder := store.snapshot()
	return store.query(ctx, builder.selectFrom(tc.name, columns).OrderBy(order), fn)
}

// DeleteWhere deletes the rows of the current table matching the
// predicate, returning the number of rows deleted.
func (store *Store) DeleteWhere(ctx context.Context, predicate Predicate) (int64, error) {
	tc, err := store.currentContext()
	if err != nil {
		return 0, err
	}

	if predicate == nil {
		return 0, errors.New("delete where requires a predicate")
	}

	_, builder := store.snapshot()
	query, args, err := builder.delete(tc.name, predicate).ToSql()
	if err != nil {
		return 0, persistenceErr("build delete", "", err)
	}

	count, err := store.exec(ctx, "delete", query, args)
	if err == nil {
		log.Infof("%d record(s) deleted from %s\n", count, tc.name)
	}

	return count, err
}

// UpdateWhere applies the column assignments to every row of the current
// table matching the predicate, returning the number of rows updated.
// Assigned values are bound as parameters.
func (store *Store) UpdateWhere(ctx context.Context, predicate Predicate, assignments map[string]any) (int64, error) {
	tc, err := store.currentContext()
	if err != nil {
		return 0, err
	}

	if predicate == nil {
		return 0, errors.New("update where requires a predicate")
	}
	if len(assignments) == 0 {
		return 0, errors.New("update where requires at least one assignment")
	}

	_, builder := store.snapshot()
	query, args, err := builder.update(tc.name, predicate, assignments).ToSql()
	if err != nil {
		return 0, persistenceErr("build update", "", err)
	}

	count, err := store.exec(ctx, "update", query, args)
	if err == nil {
		log.Infof("%d record(s) updated in %s\n", count, tc.name)
	}

	return count, err
}

// Close closes the active engine.
func (store *Store) Close() error {
	store.mu.Lock()
	defer store.mu.Unlock()

	if store.engine == nil {
		return nil
	}

	err := store.engine.Close()
	store.engine = nil
	return err
}

func (store *Store) insert(ctx context.Context, tc *tableContext, rows ...[]any) (InsertResult, error) {
	for _, row := range rows {
		if len(row) != len(tc.columns) {
			return InsertResult{}, fmt.Errorf("%w: table %s expects %d values %v, got %d", ErrArityMismatch, tc.name, len(tc.columns), tc.columns, len(row))
		}
	}

	engine, builder := store.snapshot()
	query, args, returning, err := builder.insert(tc, rows...)
	if err != nil {
		return InsertResult{}, persistenceErr("build insert", "", err)
	}

	var result InsertResult
	err = engine.WrapTx(ctx, func(tx *sqlx.Tx) error {
		if returning {
			if err := tx.QueryRowxContext(ctx, query, args...).Scan(&result.ID); err != nil {
				return err
			}

			result.RowsAffected, result.HasID = 1, true
			return nil
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}

		if result.RowsAffected, err = res.RowsAffected(); err != nil {
			return err
		}

		if len(rows) == 1 && tc.primaryKey != "" {
			if id, err := res.LastInsertId(); err == nil {
				result.ID, result.HasID = id, true
			}
		}

		return nil
	})
	if err != nil {
		return InsertResult{}, persistenceErr("insert", query, err)
	}

	if result.HasID {
		log.Debugf("%d record inserted in to %s, ID: %d\n", result.RowsAffected, tc.name, result.ID)
	} else {
		log.Debugf("%d record(s) inserted in to %s\n", result.RowsAffected, tc.name)
	}

	return result, nil
}

func (store *Store) exec(ctx context.Context, op string, query string, args []any) (int64, error) {
	engine, _ := store.snapshot()

	var count int64
	err := engine.WrapTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}

		count, err = res.RowsAffected()
		return err
	})

	return count, persistenceErr(op, query, err)
}

type sqlizer interface {
	ToSql() (string, []any, error)
}

func (store *Store) query(ctx context.Context, q sqlizer, fn RowFunc) error {
	query, args, err := q.ToSql()
	if err != nil {
		return persistenceErr("build select", "", err)
	}

	engine, _ := store.snapshot()
	rows, err := engine.QueryxContext(ctx, query, args...)
	if err != nil {
		return persistenceErr("select", query, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return persistenceErr("select", query, err)
	}

	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return persistenceErr("select", query, err)
		}

		if err := fn(Row{Columns: columns, Values: normaliseValues(values)}); err != nil {
			return err
		}
	}

	return persistenceErr("select", query, rows.Err())
}

// resolve introspects the table named, returning its current layout.
func (store *Store) resolve(ctx context.Context, name string) (*tableContext, error) {
	tables, err := store.Tables(ctx)
	if err != nil {
		return nil, err
	}

	if !slices.Contains(tables, name) {
		return nil, &NotFoundError{Kind: "table", Name: name}
	}

	columns, err := store.Columns(ctx, name)
	if err != nil {
		return nil, err
	}

	tc := &tableContext{name: name, columns: make([]string, 0, len(columns))}
	for _, col := range columns {
		if col.PrimaryKey {
			if tc.primaryKey == "" {
				tc.primaryKey = col.Name
			}
			continue
		}

		tc.columns = append(tc.columns, col.Name)
	}

	return tc, nil
}

func (store *Store) currentContext() (*tableContext, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()

	if store.current == nil {
		return nil, ErrNoCurrentTable
	}

	return store.current, nil
}

func (store *Store) snapshot() (*database.Engine, statementBuilder) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return store.engine, store.builder
}
