// Package mediafile operates on media files once they have been fetched:
// writing ID3 tags to audio, and probing files to confirm they are
// readable media.
package mediafile

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2"
	"github.com/ytarchive/ytarchive/internal/media"
)

// Tag writes the title, artist and album of the record to the ID3 tag of
// the mp3 file at path. Fields missing from the record are left untouched.
// Files of other types are ignored; the returned boolean reports whether
// the file was tagged.
func Tag(path string, record *media.Record) (bool, error) {
	if !strings.EqualFold(filepath.Ext(path), ".mp3") {
		return false, nil
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		if !os.IsNotExist(err) {
			return false, err
		}
		tag = id3v2.NewEmptyTag()
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle(record.Title)
	if track, ok := record.Track.Get(); ok && track != "" {
		tag.SetTitle(track)
	}
	if artist, ok := record.Artists.Get(); ok {
		tag.SetArtist(artist)
	}
	if album, ok := record.Album.Get(); ok {
		tag.SetAlbum(album)
	}

	if err := tag.Save(); err != nil {
		return false, err
	}

	return true, nil
}
