// Package media contains the metadata model for acquired items, along with
// the pure transforms applied to it before persistence: normalization in to a
// fixed record, and derivation of a display filename.
package media

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Document is the raw, loosely structured metadata reported by the extraction
// provider for a single item, or for a collection of items (in which case
// Entries is populated and the item-level fields are not meaningful).
//
// Optional fields are pointers (or nil slices) so that absence can be told
// apart from an empty value.
type Document struct {
	ID          string      `mapstructure:"id"`
	Type        string      `mapstructure:"_type"`
	Title       string      `mapstructure:"title"`
	Artists     []string    `mapstructure:"artists"`
	Track       *string     `mapstructure:"track"`
	Album       *string     `mapstructure:"album"`
	Duration    any         `mapstructure:"duration"`
	OriginalURL string      `mapstructure:"original_url"`
	WebpageURL  string      `mapstructure:"webpage_url"`
	URL         string      `mapstructure:"url"`
	Entries     []*Document `mapstructure:"entries"`
}

// DecodeDocument decodes the raw metadata map in to a Document. Scalar values
// are weakly typed (a numeric artist becomes a string) because upstream
// metadata is not consistent across sites.
func DecodeDocument(raw map[string]any) (*Document, error) {
	var doc Document
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &doc,
		WeaklyTypedInput: true,
		DecodeHook:       artistListHook,
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode metadata document: %w", err)
	}

	return &doc, nil
}

// artistListHook splits a single comma-joined string in to a list. Older
// extractor versions reported 'artists' as "A, B".
func artistListHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() == reflect.String && to == reflect.TypeOf([]string{}) {
		return splitArtists(data.(string)), nil
	}

	return data, nil
}

func splitArtists(s string) []string {
	parts := strings.Split(s, ", ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}

// IsCollection reports whether this document describes a collection.
func (doc *Document) IsCollection() bool {
	return doc.Entries != nil || doc.Type == "playlist"
}

// EntryURL returns the URL which should be used to acquire this document
// as a single item. original_url is preferred, falling back to the page URL
// and then the bare url reported for flat collection entries.
func (doc *Document) EntryURL() string {
	for _, candidate := range []string{doc.OriginalURL, doc.WebpageURL, doc.URL} {
		if candidate != "" {
			return candidate
		}
	}

	return ""
}

// FirstArtist returns the first credited artist, if any.
func (doc *Document) FirstArtist() (string, bool) {
	if len(doc.Artists) == 0 {
		return "", false
	}

	return doc.Artists[0], true
}
