package article

import (
	"fmt"
	"strings"
)

// DefaultColumns are the sheet headers in row order.
var DefaultColumns = [Width]string{
	"Title",
	"Publication Date",
	"Author",
	"faculty",
	"Summary",
	"Article URL",
	"ImageFile URL",
	"Category",
	"New Category",
	"Object ID",
	"timestamp",
}

// Schema names the columns of the table store.
type Schema struct {
	Columns [Width]string
}

// DefaultSchema returns the schema used by the production sheet.
func DefaultSchema() Schema {
	return Schema{Columns: DefaultColumns}
}

// NewSchema builds a Schema from an ordered header list.
func NewSchema(columns []string) (Schema, error) {
	if len(columns) != Width {
		return Schema{}, fmt.Errorf("schema needs %d columns, got %d", Width, len(columns))
	}
	var s Schema
	seen := make(map[string]struct{}, Width)
	for i, c := range columns {
		name := strings.TrimSpace(c)
		if name == "" {
			return Schema{}, fmt.Errorf("column %d has an empty name", i)
		}
		if _, dup := seen[name]; dup {
			return Schema{}, fmt.Errorf("duplicate column %q", name)
		}
		seen[name] = struct{}{}
		s.Columns[i] = name
	}
	return s, nil
}

// KeyColumn returns the header of the Object ID column.
func (s Schema) KeyColumn() string {
	return s.Columns[KeyIndex]
}

// Header returns the columns as a sheet row.
func (s Schema) Header() []any {
	out := make([]any, Width)
	for i, c := range s.Columns {
		out[i] = c
	}
	return out
}
