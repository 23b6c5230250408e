// Package memory provides an in-memory Table for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/knowledgesync/internal/article"
	"github.com/JakeFAU/knowledgesync/internal/store"
)

// Table keeps appended rows in memory.
type Table struct {
	mu      sync.RWMutex
	schema  article.Schema
	rows    []article.Row
	appends int
}

// NewTable creates an empty Table using schema for record keys.
func NewTable(schema article.Schema) *Table {
	return &Table{schema: schema}
}

// Connect returns the table itself.
func (t *Table) Connect(context.Context) (store.Table, error) {
	return t, nil
}

// Records returns every stored row keyed by schema column.
func (t *Table) Records(context.Context) ([]store.Record, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]store.Record, 0, len(t.rows))
	for _, r := range t.rows {
		cells := r.Strings()
		rec := make(store.Record, article.Width)
		for i, name := range t.schema.Columns {
			rec[name] = cells[i]
		}
		out = append(out, rec)
	}
	return out, nil
}

// AppendRows stores rows. The write mode has no effect in memory.
func (t *Table) AppendRows(_ context.Context, rows []article.Row, _ store.WriteMode) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append(t.rows, rows...)
	t.appends++
	return nil
}

// Rows returns a copy of the stored rows.
func (t *Table) Rows() []article.Row {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]article.Row, len(t.rows))
	copy(out, t.rows)
	return out
}

// AppendCalls reports how many AppendRows calls were made.
func (t *Table) AppendCalls() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.appends
}
