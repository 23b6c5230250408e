package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/JakeFAU/knowledgesync/internal/article"
)

// Record is one stored row keyed by header name.
type Record map[string]string

// WriteMode controls how appended values are interpreted by the backend.
type WriteMode string

// Supported write modes.
const (
	WriteModeRaw         WriteMode = "RAW"
	WriteModeUserEntered WriteMode = "USER_ENTERED"
)

// ParseWriteMode validates a configured write mode. Empty means RAW.
func ParseWriteMode(s string) (WriteMode, error) {
	switch WriteMode(strings.ToUpper(strings.TrimSpace(s))) {
	case "", WriteModeRaw:
		return WriteModeRaw, nil
	case WriteModeUserEntered:
		return WriteModeUserEntered, nil
	default:
		return "", fmt.Errorf("unknown write mode %q", s)
	}
}

// Table is a tabular store with read-all and batch append.
type Table interface {
	Records(ctx context.Context) ([]Record, error)
	AppendRows(ctx context.Context, rows []article.Row, mode WriteMode) error
}

// Connector opens a Table.
type Connector interface {
	Connect(ctx context.Context) (Table, error)
}

// ConnectorFunc adapts a function to Connector.
type ConnectorFunc func(ctx context.Context) (Table, error)

// Connect calls f.
func (f ConnectorFunc) Connect(ctx context.Context) (Table, error) {
	return f(ctx)
}

// RecordsFromValues converts a header row plus data rows into records.
// Short rows are padded with empty strings; cells beyond the header are dropped.
func RecordsFromValues(values [][]any) []Record {
	if len(values) == 0 {
		return nil
	}
	header := make([]string, len(values[0]))
	for i, h := range values[0] {
		header[i] = cellString(h)
	}
	records := make([]Record, 0, len(values)-1)
	for _, row := range values[1:] {
		rec := make(Record, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			if i < len(row) {
				rec[name] = cellString(row[i])
			} else {
				rec[name] = ""
			}
		}
		records = append(records, rec)
	}
	return records
}

func cellString(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	default:
		return fmt.Sprint(c)
	}
}
