// Package history records a summary of every acquisition run in the
// acquisition_runs table, which is created by the database migrations.
package history

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/ytarchive/ytarchive/internal/database"
)

const runsTable = "acquisition_runs"

var runColumns = []string{"id", "url", "kind", "audio_only", "items", "downloaded", "persisted", "failures", "started_at", "finished_at"}

type (
	Run struct {
		ID         uuid.UUID `db:"id"`
		URL        string    `db:"url"`
		Kind       string    `db:"kind"`
		AudioOnly  bool      `db:"audio_only"`
		Items      int       `db:"items"`
		Downloaded int       `db:"downloaded"`
		Persisted  int       `db:"persisted"`
		Failures   int       `db:"failures"`
		StartedAt  time.Time `db:"started_at"`
		FinishedAt time.Time `db:"finished_at"`
	}

	Store struct {
		engine *database.Engine
		sb     squirrel.StatementBuilderType
	}
)

func NewStore(engine *database.Engine) *Store {
	return &Store{
		engine: engine,
		sb:     squirrel.StatementBuilder.PlaceholderFormat(engine.Dialect.Placeholder()),
	}
}

// Record inserts the run provided.
func (store *Store) Record(ctx context.Context, run Run) error {
	query, args, err := store.sb.Insert(runsTable).
		Columns(runColumns...).
		Values(run.ID.String(), run.URL, run.Kind, run.AudioOnly, run.Items, run.Downloaded, run.Persisted, run.Failures, run.StartedAt.UTC(), run.FinishedAt.UTC()).
		ToSql()
	if err != nil {
		return err
	}

	return store.engine.WrapTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query, args...)
		return err
	})
}

// List returns the most recent runs, newest first. A limit of zero
// returns every run.
func (store *Store) List(ctx context.Context, limit uint64) ([]*Run, error) {
	q := store.sb.Select(runColumns...).From(runsTable).OrderBy("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	var runs []*Run
	if err := sqlx.SelectContext(ctx, store.engine, &runs, query, args...); err != nil {
		return nil, err
	}

	return runs, nil
}

// Get returns the run with the ID provided.
func (store *Store) Get(ctx context.Context, id uuid.UUID) (*Run, error) {
	query, args, err := store.sb.Select(runColumns...).From(runsTable).Where(squirrel.Eq{"id": id.String()}).ToSql()
	if err != nil {
		return nil, err
	}

	var run Run
	if err := sqlx.GetContext(ctx, store.engine, &run, query, args...); err != nil {
		return nil, err
	}

	return &run, nil
}
