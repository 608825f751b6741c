package media

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RecordColumns is the persisted column ordering of a Record, primary key
// excluded. Record.Values returns values in exactly this order.
var RecordColumns = []string{"title", "artists", "track", "album", "duration", "filename", "original_url"}

type (
	// Record is the fixed, normalized form of an item's metadata. It is
	// built once per acquired item and never mutated after construction.
	Record struct {
		Title       string
		Artists     Text
		Track       Text
		Album       Text
		Duration    int
		Filename    string
		OriginalURL string
	}

	// SchemaError indicates a required metadata field is absent, or
	// could not be coerced to the expected type.
	SchemaError struct {
		Field  string
		Reason string
	}
)

func (e *SchemaError) Error() string {
	return fmt.Sprintf("metadata field '%s' %s", e.Field, e.Reason)
}

// Normalize maps the document to a Record. Only the first artist is
// retained. Absent optional fields become Missing.
func Normalize(doc *Document) (*Record, error) {
	if doc == nil {
		return nil, &SchemaError{Field: "document", Reason: "is absent"}
	}
	if doc.Title == "" {
		return nil, &SchemaError{Field: "title", Reason: "is absent"}
	}
	if doc.OriginalURL == "" {
		return nil, &SchemaError{Field: "original_url", Reason: "is absent"}
	}

	duration, err := coerceDuration(doc.Duration)
	if err != nil {
		return nil, err
	}

	artists := Missing
	if artist, ok := doc.FirstArtist(); ok {
		artists = Present(artist)
	}

	return &Record{
		Title:       doc.Title,
		Artists:     artists,
		Track:       OptionalText(doc.Track),
		Album:       OptionalText(doc.Album),
		Duration:    duration,
		Filename:    DeriveFilename(doc),
		OriginalURL: doc.OriginalURL,
	}, nil
}

// Values returns the record as a positional row, ordered as RecordColumns.
func (r *Record) Values() []any {
	return []any{r.Title, r.Artists, r.Track, r.Album, r.Duration, r.Filename, r.OriginalURL}
}

// coerceDuration converts the loosely typed duration to whole seconds.
// Fractional seconds are truncated.
func coerceDuration(raw any) (int, error) {
	invalid := func(reason string) error {
		return &SchemaError{Field: "duration", Reason: reason}
	}

	var seconds float64
	switch v := raw.(type) {
	case nil:
		return 0, invalid("is absent")
	case int:
		seconds = float64(v)
	case int32:
		seconds = float64(v)
	case int64:
		seconds = float64(v)
	case uint:
		seconds = float64(v)
	case uint32:
		seconds = float64(v)
	case uint64:
		seconds = float64(v)
	case float32:
		seconds = float64(v)
	case float64:
		seconds = v
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, invalid(fmt.Sprintf("is not numeric (%q)", v.String()))
		}
		seconds = f
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, invalid(fmt.Sprintf("is not an integer (%q)", v))
		}
		seconds = float64(n)
	default:
		return 0, invalid(fmt.Sprintf("has unsupported type %T", raw))
	}

	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return 0, invalid("is not a finite number")
	}
	if seconds < 0 {
		return 0, invalid(fmt.Sprintf("is negative (%v)", seconds))
	}
	if seconds > math.MaxInt32 {
		return 0, invalid(fmt.Sprintf("is out of range (%v)", seconds))
	}

	return int(seconds), nil
}
