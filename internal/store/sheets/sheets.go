// Package sheets implements store.Table on a Google Sheets worksheet.
package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"

	"github.com/JakeFAU/knowledgesync/internal/article"
	"github.com/JakeFAU/knowledgesync/internal/store"
)

// Scopes requested for the service account.
var Scopes = []string{
	sheetsapi.SpreadsheetsScope,
	sheetsapi.DriveScope,
}

// ErrSheetNotFound is returned by Connect when the spreadsheet has no tab with the configured name.
var ErrSheetNotFound = errors.New("sheet not found")

// Config identifies the worksheet.
type Config struct {
	SpreadsheetID string
	SheetName     string
}

// Connector opens the configured worksheet.
type Connector struct {
	cfg    Config
	schema article.Schema
	opts   []option.ClientOption
}

// NewConnector parses the service-account descriptor without touching the network.
func NewConnector(ctx context.Context, cfg Config, schema article.Schema, credentialsJSON []byte) (*Connector, error) {
	if len(credentialsJSON) == 0 {
		return nil, errors.New("service account credentials are required")
	}
	if !json.Valid(credentialsJSON) {
		return nil, errors.New("service account credentials are not valid JSON")
	}
	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}
	return NewConnectorWithOptions(cfg, schema, option.WithCredentials(creds))
}

// NewConnectorWithOptions builds a Connector from explicit client options.
func NewConnectorWithOptions(cfg Config, schema article.Schema, opts ...option.ClientOption) (*Connector, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("spreadsheet id is required")
	}
	if strings.TrimSpace(cfg.SheetName) == "" {
		return nil, errors.New("sheet name is required")
	}
	return &Connector{cfg: cfg, schema: schema, opts: opts}, nil
}

// Connect creates the API client and checks the worksheet exists.
func (c *Connector) Connect(ctx context.Context) (store.Table, error) {
	svc, err := sheetsapi.NewService(ctx, c.opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	doc, err := svc.Spreadsheets.Get(c.cfg.SpreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("open spreadsheet %s: %w", c.cfg.SpreadsheetID, err)
	}
	found := false
	for _, sh := range doc.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.cfg.SheetName {
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %q in spreadsheet %s", ErrSheetNotFound, c.cfg.SheetName, c.cfg.SpreadsheetID)
	}
	return &Table{
		values:        svc.Spreadsheets.Values,
		spreadsheetID: c.cfg.SpreadsheetID,
		sheetRange:    quoteSheet(c.cfg.SheetName),
		schema:        c.schema,
	}, nil
}

// Table reads and appends rows on one worksheet.
type Table struct {
	values        *sheetsapi.SpreadsheetsValuesService
	spreadsheetID string
	sheetRange    string
	schema        article.Schema
}

// Records returns the data rows keyed by the worksheet's header row.
func (t *Table) Records(ctx context.Context) ([]store.Record, error) {
	resp, err := t.values.Get(t.spreadsheetID, t.sheetRange).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read sheet values: %w", err)
	}
	return store.RecordsFromValues(resp.Values), nil
}

// AppendRows appends all rows in one request. An empty worksheet gets the
// schema header first, in the same request.
func (t *Table) AppendRows(ctx context.Context, rows []article.Row, mode store.WriteMode) error {
	if len(rows) == 0 {
		return nil
	}
	if mode == "" {
		mode = store.WriteModeRaw
	}
	values := make([][]any, 0, len(rows)+1)
	empty, err := t.isEmpty(ctx)
	if err != nil {
		return err
	}
	if empty {
		values = append(values, t.schema.Header())
	}
	for _, r := range rows {
		values = append(values, r.Values())
	}
	_, err = t.values.Append(t.spreadsheetID, t.sheetRange, &sheetsapi.ValueRange{Values: values}).
		ValueInputOption(string(mode)).
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append %d rows: %w", len(rows), err)
	}
	return nil
}

func (t *Table) isEmpty(ctx context.Context) (bool, error) {
	resp, err := t.values.Get(t.spreadsheetID, t.sheetRange+"!A1:A1").Context(ctx).Do()
	if err != nil {
		return false, fmt.Errorf("read sheet header: %w", err)
	}
	return len(resp.Values) == 0, nil
}

func quoteSheet(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
