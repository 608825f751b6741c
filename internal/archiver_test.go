package internal

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ytarchive/ytarchive/internal/acquire"
	"github.com/ytarchive/ytarchive/internal/database"
	"github.com/ytarchive/ytarchive/internal/media"
	"github.com/ytarchive/ytarchive/internal/provider"
	"github.com/ytarchive/ytarchive/internal/table"
)

// stubProvider serves documents from memory; URLs without a document
// fail extraction.
type stubProvider struct {
	docs map[string]*media.Document
}

func (p *stubProvider) Extract(_ context.Context, url string, _ bool) (*media.Document, error) {
	if doc, ok := p.docs[url]; ok {
		return doc, nil
	}

	return nil, errors.New("video unavailable")
}

func (p *stubProvider) Fetch(_ context.Context, url string, opts provider.Options) (string, error) {
	return filepath.Join(filepath.Dir(opts.OutputTemplate), fmt.Sprintf("%s.mp3", url[len(url)-1:])), nil
}

func newTestArchiver(t *testing.T) *Archiver {
	config := DefaultConfig()
	config.OutputPath = t.TempDir()
	config.CollectionMarker = acquire.DefaultCollectionMarker
	config.Concurrency = 1
	config.TagAudio = false
	config.LogLevel = "warn"
	config.Database = database.DatabaseConfig{
		Backend:         string(database.SQLite),
		Name:            "archive",
		DataDir:         t.TempDir(),
		ConnectAttempts: 1,
	}

	archiver := New(config)
	t.Cleanup(func() { _ = archiver.Close() })
	return archiver
}

func Test_Archiver_OpenCreatesSchema(t *testing.T) {
	archiver := newTestArchiver(t)
	ctx := context.Background()

	require.NoError(t, archiver.Open(ctx))
	require.NoError(t, archiver.Open(ctx), "opening twice is a no-op")

	store, err := archiver.Tables(ctx)
	require.NoError(t, err)
	assert.Equal(t, "archive", store.Database())

	tables, err := store.Tables(ctx)
	require.NoError(t, err)
	assert.Subset(t, tables, []string{media.SongsTable, media.VideosTable, "acquisition_runs"})
}

func Test_Archiver_FetchPersistsAndRecordsHistory(t *testing.T) {
	archiver := newTestArchiver(t)
	archiver.provider = &stubProvider{docs: map[string]*media.Document{
		"https://example.com/playlist?list=PL1": {
			Entries: []*media.Document{
				{URL: "https://example.com/watch?v=1"},
				{URL: "https://example.com/watch?v=2"},
			},
		},
		"https://example.com/watch?v=1": {
			Title:       "First Song (Official Video)",
			Duration:    215,
			OriginalURL: "https://example.com/watch?v=1",
		},
	}}

	ctx := context.Background()
	report, err := archiver.Fetch(ctx, "https://example.com/playlist?list=PL1", FetchOptions{})
	require.NoError(t, err)

	assert.Equal(t, acquire.KindCollection, report.Kind)
	assert.Equal(t, media.SongsTable, report.Table)
	require.Len(t, report.Items, 2)
	assert.True(t, report.Items[0].Persisted)
	assert.Error(t, report.Items[1].Err)

	store, err := archiver.Tables(ctx)
	require.NoError(t, err)
	require.NoError(t, store.SetCurrentTable(ctx, media.SongsTable))

	var rows []table.Row
	require.NoError(t, store.SelectAll(ctx, []string{"title", "filename", "duration"}, table.Collect(&rows)))
	require.Len(t, rows, 1)
	assert.Equal(t, "First Song (Official Video)", rows[0].Values[0])
	assert.Equal(t, "First Song", rows[0].Values[1])
	assert.EqualValues(t, 215, rows[0].Values[2])

	runs, err := archiver.history.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, report.RunID, runs[0].ID)
	assert.Equal(t, 2, runs[0].Items)
	assert.Equal(t, 1, runs[0].Persisted)
	assert.Equal(t, 1, runs[0].Failures)
}

func Test_Archiver_FetchWithoutDatabase(t *testing.T) {
	archiver := newTestArchiver(t)
	archiver.provider = &stubProvider{docs: map[string]*media.Document{
		"https://example.com/watch?v=1": {Title: "Only", Duration: 1, OriginalURL: "https://example.com/watch?v=1"},
	}}

	persist, audio := false, false
	report, err := archiver.Fetch(context.Background(), "https://example.com/watch?v=1", FetchOptions{Persist: &persist, AudioOnly: &audio})
	require.NoError(t, err)

	assert.Equal(t, media.VideosTable, report.Table)
	assert.True(t, report.Items[0].Downloaded)
	assert.False(t, report.Items[0].Persisted)
	assert.NotEqual(t, uuid.Nil, report.RunID)
	assert.Nil(t, archiver.tables, "the database is never opened")
}
