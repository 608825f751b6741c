package media

import (
	"fmt"
	"strings"
)

// DeriveFilename computes the display name for an item. When both a track
// and an artist are known the name is "<artist> - <track>", with the track
// cut at its first parenthetical. Otherwise the title is used, cut at its
// first parenthetical and then at its first bracketed suffix.
//
// The result is not filesystem safe; sanitization happens once, when the
// item is fetched.
func DeriveFilename(doc *Document) string {
	artist, hasArtist := doc.FirstArtist()
	if doc.Track != nil && hasArtist {
		return fmt.Sprintf("%s - %s", artist, cutAt(*doc.Track, " ("))
	}

	return cutAt(cutAt(doc.Title, " ("), " [")
}

func cutAt(s string, sep string) string {
	before, _, _ := strings.Cut(s, sep)
	return before
}
