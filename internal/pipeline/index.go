package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/JakeFAU/knowledgesync/internal/article"
	"github.com/JakeFAU/knowledgesync/internal/store"
)

// ErrKeyColumnMissing is returned by LoadIndex when the store holds records
// but none of them carries the schema's key column.
var ErrKeyColumnMissing = errors.New("key column missing from stored records")

// Index is the set of Object IDs already present in the store.
type Index struct {
	ids map[string]struct{}
}

// NewIndex builds an Index from ids, ignoring empty values.
func NewIndex(ids ...string) Index {
	idx := Index{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		idx.Add(id)
	}
	return idx
}

// Has reports whether id is known.
func (i Index) Has(id string) bool {
	_, ok := i.ids[id]
	return ok
}

// Add records id. Empty ids are ignored.
func (i Index) Add(id string) {
	if id != "" {
		i.ids[id] = struct{}{}
	}
}

// Len returns the number of known ids.
func (i Index) Len() int {
	return len(i.ids)
}

// LoadIndex reads every record from table and collects the schema's key column.
// Records with an empty key are skipped. A non-empty store in which no record
// has the key column fails with ErrKeyColumnMissing.
func LoadIndex(ctx context.Context, table store.Table, schema article.Schema) (Index, error) {
	records, err := table.Records(ctx)
	if err != nil {
		return Index{}, fmt.Errorf("read existing records: %w", err)
	}
	key := schema.KeyColumn()
	idx := NewIndex()
	keyed := false
	for _, rec := range records {
		id, ok := rec[key]
		if !ok {
			continue
		}
		keyed = true
		idx.Add(id)
	}
	if len(records) > 0 && !keyed {
		return Index{}, fmt.Errorf("%w: %q not found in %d records", ErrKeyColumnMissing, key, len(records))
	}
	return idx, nil
}
