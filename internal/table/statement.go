package table

import (
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/ytarchive/ytarchive/internal/database"
)

type (
	// Predicate is a filter fragment used by the Where operations. Raw
	// SQL fragments are interpolated as given (identifiers are trusted),
	// while any args are always bound as parameters.
	Predicate = squirrel.Sqlizer

	// Eq is a convinience Predicate matching columns by equality, with
	// all values bound as parameters.
	Eq = squirrel.Eq
)

// Where builds a Predicate from a raw SQL fragment. Use '?' for any
// values, regardless of backend; placeholders are rewritten to suit.
func Where(sql string, args ...any) Predicate {
	return squirrel.Expr(sql, args...)
}

// statementBuilder is the only place statement text is produced. Table
// and column identifiers (and predicate fragments) are interpolated
// directly, whereas row values are always bound as parameters.
type statementBuilder struct {
	sb      squirrel.StatementBuilderType
	dialect database.Dialect
}

func newStatementBuilder(dialect database.Dialect) statementBuilder {
	return statementBuilder{
		sb:      squirrel.StatementBuilder.PlaceholderFormat(dialect.Placeholder()),
		dialect: dialect,
	}
}

func (b statementBuilder) createTable(name string, spec Spec) string {
	columns := make([]string, len(spec))
	for i, col := range spec {
		columns[i] = col.Definition()
	}

	return fmt.Sprintf("CREATE TABLE %s (%s)", name, strings.Join(columns, ", "))
}

func (b statementBuilder) dropTable(name string) string {
	return fmt.Sprintf("DROP TABLE %s", name)
}

// insert builds a (possibly multi-row) INSERT against the table context.
// For backends which report generated keys via RETURNING, a single-row
// insert returns the primary key column.
func (b statementBuilder) insert(tc *tableContext, rows ...[]any) (string, []any, bool, error) {
	builder := b.sb.Insert(tc.name).Columns(tc.columns...)
	for _, row := range rows {
		builder = builder.Values(row...)
	}

	returning := len(rows) == 1 && tc.primaryKey != "" && b.dialect.SupportsReturning()
	if returning {
		builder = builder.Suffix("RETURNING " + tc.primaryKey)
	}

	query, args, err := builder.ToSql()
	return query, args, returning, err
}

func (b statementBuilder) selectFrom(name string, columns []string) squirrel.SelectBuilder {
	if len(columns) == 0 {
		columns = []string{"*"}
	}

	return b.sb.Select(columns...).From(name)
}

func (b statementBuilder) delete(name string, predicate Predicate) squirrel.DeleteBuilder {
	return b.sb.Delete(name).Where(predicate)
}

func (b statementBuilder) update(name string, predicate Predicate, assignments map[string]any) squirrel.UpdateBuilder {
	return b.sb.Update(name).SetMap(assignments).Where(predicate)
}
