package media

import (
	"context"
	"fmt"
	"slices"

	"github.com/ytarchive/ytarchive/internal/database"
	"github.com/ytarchive/ytarchive/internal/table"
	"github.com/ytarchive/ytarchive/pkg/logger"
)

const (
	SongsTable  = "songs"
	VideosTable = "videos"
)

var log = logger.Get("MediaStore")

// TableFor returns the media table that items acquired in the given
// mode are persisted to.
func TableFor(audioOnly bool) string {
	if audioOnly {
		return SongsTable
	}

	return VideosTable
}

// TableSpec returns the column layout shared by every media table, using
// the auto-increment key declaration of the dialect provided.
func TableSpec(dialect database.Dialect) table.Spec {
	keyType, keyConstraint := dialect.AutoIncrementKey()
	return table.Spec{
		{Name: "id", Type: keyType, Constraint: keyConstraint},
		{Name: "title", Type: "VARCHAR(255)", Constraint: "NOT NULL"},
		{Name: "artists", Type: "VARCHAR(255)"},
		{Name: "track", Type: "VARCHAR(255)"},
		{Name: "album", Type: "VARCHAR(255)"},
		{Name: "duration", Type: "INTEGER"},
		{Name: "filename", Type: "VARCHAR(255)", Constraint: "NOT NULL"},
		{Name: "original_url", Type: "VARCHAR(255)", Constraint: "NOT NULL"},
	}
}

// Store persists normalized records in to the media tables, using
// explicit-table inserts so it is safe to share between goroutines.
type Store struct {
	tables *table.Store
}

func NewStore(tables *table.Store) *Store {
	return &Store{tables: tables}
}

// EnsureTables creates the media tables if they are absent, and verifies
// that the layout of existing tables lines up with RecordColumns.
func (store *Store) EnsureTables(ctx context.Context) error {
	spec := TableSpec(store.tables.Engine().Dialect)
	for _, name := range []string{SongsTable, VideosTable} {
		if _, err := store.tables.CreateTableFromSpec(ctx, name, spec); err != nil {
			return err
		}

		if err := store.verifyLayout(ctx, name); err != nil {
			return err
		}
	}

	return nil
}

// Save inserts the record in to the table named.
func (store *Store) Save(ctx context.Context, tableName string, record *Record) error {
	result, err := store.tables.InsertRowInto(ctx, tableName, record.Values())
	if err != nil {
		return err
	}

	if result.HasID {
		log.Emit(logger.NEW, "Saved '%s' to %s (ID %d)\n", record.Filename, tableName, result.ID)
	} else {
		log.Emit(logger.NEW, "Saved '%s' to %s\n", record.Filename, tableName)
	}

	return nil
}

func (store *Store) verifyLayout(ctx context.Context, name string) error {
	columns, err := store.tables.Columns(ctx, name)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(columns))
	for _, col := range columns {
		if !col.PrimaryKey {
			names = append(names, col.Name)
		}
	}

	if !slices.Equal(names, RecordColumns) {
		return fmt.Errorf("media table %s has columns %v, expected %v", name, names, RecordColumns)
	}

	return nil
}
