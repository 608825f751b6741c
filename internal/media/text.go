package media

import "database/sql/driver"

// Text is an optional string field of a normalized record. A missing Text
// is distinct from a present empty string, and is persisted as NULL.
type Text struct {
	value   string
	present bool
}

// Missing is the sentinel for a field absent from the source metadata.
var Missing = Text{}

// Present wraps a value which was present in the source metadata.
func Present(s string) Text { return Text{value: s, present: true} }

// OptionalText returns Missing for a nil pointer, else the Present value.
func OptionalText(s *string) Text {
	if s == nil {
		return Missing
	}

	return Present(*s)
}

// Get returns the value and whether it was present.
func (t Text) Get() (string, bool) { return t.value, t.present }

func (t Text) IsMissing() bool { return !t.present }

func (t Text) String() string {
	if !t.present {
		return "<missing>"
	}

	return t.value
}

// Value implements driver.Valuer.
func (t Text) Value() (driver.Value, error) {
	if !t.present {
		return nil, nil
	}

	return t.value, nil
}
