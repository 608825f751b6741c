package table_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/ytarchive/ytarchive/internal/database"
	"github.com/ytarchive/ytarchive/internal/table"
)

// spawnPostgres starts a disposable postgres container and returns a
// config pointing at it. The container is torn down when the test ends.
func spawnPostgres(t *testing.T) database.DatabaseConfig {
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	postgresC, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("docker.io/postgres:14.1-alpine"),
		postgres.WithDatabase("archive"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		timeout := 5 * time.Second
		if err := postgresC.Stop(ctx, &timeout); err != nil {
			t.Logf("WARNING: failed to stop postgres container: %s", err)
		}
	})

	host, err := postgresC.Host(ctx)
	require.NoError(t, err)
	port, err := postgresC.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return database.DatabaseConfig{
		Backend:         string(database.Postgres),
		Name:            "archive",
		User:            "postgres",
		Password:        "postgres",
		Host:            host,
		Port:            port.Port(),
		SSLMode:         "disable",
		ConnectAttempts: 3,
	}
}

func Test_Postgres_StoreRoundTrip(t *testing.T) {
	config := spawnPostgres(t)

	engine, err := database.Open(config, config.Name)
	require.NoError(t, err)
	require.NoError(t, engine.ExecuteMigrations(), "history migrations must apply")

	store := table.New(engine, database.NewOpener(config))
	t.Cleanup(func() { _ = store.Close() })

	name := createTrackTable(t, store)

	tables, err := store.Tables(ctx)
	require.NoError(t, err)
	assert.Contains(t, tables, "acquisition_runs")

	result, err := store.InsertRow(ctx, []any{"Title", "Artist", 42})
	require.NoError(t, err)
	require.True(t, result.HasID, "postgres must surface the key via RETURNING")

	var rows []table.Row
	require.NoError(t, store.SelectWhere(ctx, table.Eq{"id": result.ID}, []string{"title", "artists", "duration"}, table.Collect(&rows)))
	require.Len(t, rows, 1)
	assert.Equal(t, []any{"Title", "Artist", int64(42)}, rows[0].Values)

	created, err := store.CreateDatabaseIfAbsent(ctx, "secondary")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = store.CreateDatabaseIfAbsent(ctx, "secondary")
	require.NoError(t, err)
	assert.False(t, created)

	require.NoError(t, store.SwitchDatabase(ctx, "secondary"))
	tables, err = store.Tables(ctx)
	require.NoError(t, err)
	assert.NotContains(t, tables, name)
}
