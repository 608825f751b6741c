package table

import "strings"

type (
	// ColumnSpec is a single (name, type, constraint) triple used
	// when creating a table.
	ColumnSpec struct {
		Name       string
		Type       string
		Constraint string
	}

	// Spec is the ordered column layout of a table. The order given
	// here is the order in which the columns are created.
	Spec []ColumnSpec
)

// Definition renders the column as it appears inside CREATE TABLE.
func (c ColumnSpec) Definition() string {
	return strings.TrimSpace(strings.Join([]string{c.Name, c.Type, c.Constraint}, " "))
}

// Names returns the column names of the spec, in order.
func (s Spec) Names() []string {
	names := make([]string, len(s))
	for i, col := range s {
		names[i] = col.Name
	}

	return names
}
