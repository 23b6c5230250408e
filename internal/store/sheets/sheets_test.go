package sheets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/JakeFAU/knowledgesync/internal/article"
	"github.com/JakeFAU/knowledgesync/internal/store"
)

const (
	testSpreadsheet = "sheet-id"
	valuesPrefix    = "/v4/spreadsheets/" + testSpreadsheet + "/values/"
)

// fakeSheets simulates the subset of the Sheets v4 REST API the store uses.
type fakeSheets struct {
	mu        sync.Mutex
	tabs      []string
	values    [][]any
	appended  [][]any
	appendQS  string
	appends   int
	failWrite bool
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/v4/spreadsheets/"+testSpreadsheet:
		sheets := make([]map[string]any, 0, len(f.tabs))
		for _, tab := range f.tabs {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": tab}})
		}
		writeJSON(w, map[string]any{"sheets": sheets})
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, valuesPrefix):
		rng := strings.TrimPrefix(r.URL.Path, valuesPrefix)
		values := f.values
		if strings.HasSuffix(rng, "!A1:A1") && len(values) > 0 {
			values = values[:1]
		}
		writeJSON(w, map[string]any{"range": rng, "values": values})
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		if f.failWrite {
			http.Error(w, `{"error":{"code":500,"message":"boom"}}`, http.StatusInternalServerError)
			return
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var vr struct {
			Values [][]any `json:"values"`
		}
		if err := json.Unmarshal(body, &vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.appends++
		f.appendQS = r.URL.RawQuery
		f.appended = append(f.appended, vr.Values...)
		f.values = append(f.values, vr.Values...)
		writeJSON(w, map[string]any{"spreadsheetId": testSpreadsheet})
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestConnector(t *testing.T, fake *fakeSheets) *Connector {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := NewConnectorWithOptions(
		Config{SpreadsheetID: testSpreadsheet, SheetName: "HBS"},
		article.DefaultSchema(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	return c
}

func headerRow() []any {
	return article.DefaultSchema().Header()
}

func TestConnectAndRecords(t *testing.T) {
	t.Parallel()

	fake := &fakeSheets{
		tabs: []string{"Other", "HBS"},
		values: [][]any{
			headerRow(),
			{"T1", "2023-01-01", "", "", "", "", "", "Strategy", "", "id-1", "ts"},
			{"T2"},
		},
	}
	tbl, err := newTestConnector(t, fake).Connect(context.Background())
	require.NoError(t, err)

	records, err := tbl.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "id-1", records[0]["Object ID"])
	require.Equal(t, "", records[1]["Object ID"])
}

func TestConnectMissingSheet(t *testing.T) {
	t.Parallel()

	fake := &fakeSheets{tabs: []string{"Other"}}
	_, err := newTestConnector(t, fake).Connect(context.Background())
	require.ErrorIs(t, err, ErrSheetNotFound)
}

func TestAppendRowsSingleRequest(t *testing.T) {
	t.Parallel()

	fake := &fakeSheets{tabs: []string{"HBS"}, values: [][]any{headerRow()}}
	tbl, err := newTestConnector(t, fake).Connect(context.Background())
	require.NoError(t, err)

	rows := []article.Row{{Title: "A", ObjectID: "1"}, {Title: "B", ObjectID: "2"}}
	require.NoError(t, tbl.AppendRows(context.Background(), rows, store.WriteModeRaw))

	require.Equal(t, 1, fake.appends)
	require.Contains(t, fake.appendQS, "valueInputOption=RAW")
	require.Contains(t, fake.appendQS, "insertDataOption=INSERT_ROWS")
	require.Len(t, fake.appended, 2)
	require.Equal(t, "A", fake.appended[0][0])
	require.Equal(t, "2", fake.appended[1][article.KeyIndex])
}

func TestAppendRowsWritesHeaderOnEmptySheet(t *testing.T) {
	t.Parallel()

	fake := &fakeSheets{tabs: []string{"HBS"}}
	tbl, err := newTestConnector(t, fake).Connect(context.Background())
	require.NoError(t, err)

	require.NoError(t, tbl.AppendRows(context.Background(), []article.Row{{ObjectID: "1"}}, store.WriteModeUserEntered))
	require.Equal(t, 1, fake.appends)
	require.Contains(t, fake.appendQS, "valueInputOption=USER_ENTERED")
	require.Len(t, fake.appended, 2)
	require.Equal(t, "Title", fake.appended[0][0])

	records, err := tbl.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "1", records[0]["Object ID"])
}

func TestAppendRowsFailure(t *testing.T) {
	t.Parallel()

	fake := &fakeSheets{tabs: []string{"HBS"}, values: [][]any{headerRow()}, failWrite: true}
	tbl, err := newTestConnector(t, fake).Connect(context.Background())
	require.NoError(t, err)

	err = tbl.AppendRows(context.Background(), []article.Row{{ObjectID: "1"}}, store.WriteModeRaw)
	require.ErrorContains(t, err, "append 1 rows")
}

func TestAppendRowsEmptyIsNoop(t *testing.T) {
	t.Parallel()

	fake := &fakeSheets{tabs: []string{"HBS"}}
	tbl, err := newTestConnector(t, fake).Connect(context.Background())
	require.NoError(t, err)
	require.NoError(t, tbl.AppendRows(context.Background(), nil, store.WriteModeRaw))
	require.Zero(t, fake.appends)
}

func TestNewConnectorValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	schema := article.DefaultSchema()
	cfg := Config{SpreadsheetID: "id", SheetName: "HBS"}

	_, err := NewConnector(ctx, cfg, schema, nil)
	require.Error(t, err)

	_, err = NewConnector(ctx, cfg, schema, []byte("{not json"))
	require.ErrorContains(t, err, "not valid JSON")

	_, err = NewConnectorWithOptions(Config{SheetName: "HBS"}, schema)
	require.ErrorContains(t, err, "spreadsheet id")

	_, err = NewConnectorWithOptions(Config{SpreadsheetID: "id"}, schema)
	require.ErrorContains(t, err, "sheet name")
}

func TestQuoteSheet(t *testing.T) {
	t.Parallel()

	require.Equal(t, "'HBS'", quoteSheet("HBS"))
	require.Equal(t, fmt.Sprintf("'%s'", "O''Brien"), quoteSheet("O'Brien"))
}
