package table

type (
	// Row is a single result row. Values are positionally aligned with
	// Columns; text values are always returned as strings, regardless of
	// how the driver reports them.
	Row struct {
		Columns []string
		Values  []any
	}

	// RowFunc is called once for every row of a select, in result
	// order. Returning an error stops the iteration.
	RowFunc func(Row) error
)

// Get returns the value for the column named, if present.
func (r Row) Get(column string) (any, bool) {
	for i, c := range r.Columns {
		if c == column {
			return r.Values[i], true
		}
	}

	return nil, false
}

// Collect returns a RowFunc which appends every row to dst.
func Collect(dst *[]Row) RowFunc {
	return func(r Row) error {
		*dst = append(*dst, r)
		return nil
	}
}

func normaliseValues(values []any) []any {
	for i, v := range values {
		if b, ok := v.([]byte); ok {
			values[i] = string(b)
		}
	}

	return values
}
