package internal_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ytarchive/ytarchive/internal"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func Test_LoadConfig_Defaults(t *testing.T) {
	config, err := internal.LoadConfig(writeConfig(t, "database:\n  name: archive\n"))
	require.NoError(t, err)

	assert.True(t, config.AudioOnly)
	assert.True(t, config.WriteToDB)
	assert.True(t, config.TagAudio)
	assert.False(t, config.PreflightCheck)
	assert.Equal(t, 1, config.Concurrency)
	assert.Equal(t, "list=", config.CollectionMarker)
	assert.Equal(t, "yt-dlp", config.YtDlpPath)
	assert.Equal(t, "info", config.LogLevel)

	assert.Equal(t, "sqlite3", config.Database.Backend)
	assert.Equal(t, "archive", config.Database.Name)
	assert.Equal(t, 1, config.Database.ConnectAttempts)
}

func Test_LoadConfig_FileValues(t *testing.T) {
	config, err := internal.LoadConfig(writeConfig(t, `
output_path: ~/music
audio_only: false
write_to_db: false
concurrency: 4
ffmpeg_location: /opt/ffmpeg/bin
database:
  backend: postgres
  name: youtube_archive
  host: db.local
  port: "5433"
  username: archive
`))
	require.NoError(t, err)

	home, err := homedir.Dir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, "music"), config.OutputPath)
	assert.False(t, config.AudioOnly, "explicit false must not be replaced by a default")
	assert.False(t, config.WriteToDB)
	assert.Equal(t, 4, config.Concurrency)
	assert.Equal(t, "/opt/ffmpeg/bin", config.FFmpegLocation)
	assert.Equal(t, "postgres", config.Database.Backend)
	assert.Equal(t, "db.local", config.Database.Host)
	assert.Equal(t, "5433", config.Database.Port)
	assert.Equal(t, "archive", config.Database.User)
}

func Test_LoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("CONCURRENCY", "8")
	t.Setenv("DB_BACKEND", "mysql")

	config, err := internal.LoadConfig(writeConfig(t, "concurrency: 2\n"))
	require.NoError(t, err)

	assert.Equal(t, 8, config.Concurrency)
	assert.Equal(t, "mysql", config.Database.Backend)
}

func Test_LoadConfig_Invalid(t *testing.T) {
	_, err := internal.LoadConfig(writeConfig(t, "database:\n  backend: oracle\n"))
	assert.ErrorContains(t, err, "configuration is invalid")

	_, err = internal.LoadConfig(writeConfig(t, "log_level: loud\n"))
	assert.ErrorContains(t, err, "configuration is invalid")

	_, err = internal.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
