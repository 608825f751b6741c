package mediafile_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bogem/id3v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ytarchive/ytarchive/internal/media"
	"github.com/ytarchive/ytarchive/internal/mediafile"
)

func writeFile(t *testing.T, name string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("not really audio frames"), 0o644))
	return path
}

func Test_Tag_WritesFrames(t *testing.T) {
	path := writeFile(t, "Artist - Song.mp3")
	record := &media.Record{
		Title:   "Artist - Song (Official Audio)",
		Artists: media.Present("Artist"),
		Track:   media.Present("Song"),
		Album:   media.Missing,
	}

	tagged, err := mediafile.Tag(path, record)
	require.NoError(t, err)
	assert.True(t, tagged)

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	require.NoError(t, err)
	defer tag.Close()

	assert.Equal(t, "Song", tag.Title(), "track takes precedence over the raw title")
	assert.Equal(t, "Artist", tag.Artist())
	assert.Empty(t, tag.Album(), "missing album leaves the frame unset")
}

func Test_Tag_FallsBackToTitle(t *testing.T) {
	path := writeFile(t, "Title.MP3")

	tagged, err := mediafile.Tag(path, &media.Record{Title: "Title (Live)"})
	require.NoError(t, err)
	require.True(t, tagged)

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	require.NoError(t, err)
	defer tag.Close()

	assert.Equal(t, "Title (Live)", tag.Title())
}

func Test_Tag_IgnoresOtherFormats(t *testing.T) {
	path := writeFile(t, "Title.mp4")

	tagged, err := mediafile.Tag(path, &media.Record{Title: "Title"})
	assert.NoError(t, err)
	assert.False(t, tagged)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "not really audio frames", string(content), "non-mp3 files are not modified")
}

func Test_Probe_MissingBinary(t *testing.T) {
	path := writeFile(t, "Title.mp4")

	_, err := mediafile.Probe(filepath.Join(t.TempDir(), "no-ffprobe"), path)
	assert.Error(t, err)
}
