package acquire

import "fmt"

// ExtractionError is returned when the provider cannot resolve a URL to
// a metadata document.
type ExtractionError struct {
	URL string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract metadata for %s: %s", e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// FetchError is returned when the provider fails to download an item.
// Persistence is skipped for the item.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %s", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
