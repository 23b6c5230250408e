// Package postgres implements store.Table on a Postgres table.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/knowledgesync/internal/article"
	"github.com/JakeFAU/knowledgesync/internal/store"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Columns are the SQL columns in row order. object_id must carry a unique
// constraint; duplicates are dropped by ON CONFLICT.
var Columns = [article.Width]string{
	"title",
	"publication_date",
	"author",
	"faculty",
	"summary",
	"article_url",
	"image_url",
	"category",
	"new_category",
	"object_id",
	"created_at",
}

const defaultTable = "articles"

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Close()
}

// Connector opens a pool on Connect.
type Connector struct {
	cfg    Config
	schema article.Schema
}

// NewConnector validates cfg without connecting.
func NewConnector(cfg Config, schema article.Schema) (*Connector, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres.dsn is required")
	}
	if cfg.Table == "" {
		cfg.Table = defaultTable
	}
	if !validTableName.MatchString(cfg.Table) {
		return nil, fmt.Errorf("invalid table name %q", cfg.Table)
	}
	return &Connector{cfg: cfg, schema: schema}, nil
}

// Connect opens and pings the pool.
func (c *Connector) Connect(ctx context.Context) (store.Table, error) {
	poolCfg, err := pgxpool.ParseConfig(c.cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if c.cfg.MaxConns > 0 {
		poolCfg.MaxConns = c.cfg.MaxConns
	}
	if c.cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = c.cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Table{pool: p, table: c.cfg.Table, schema: c.schema}, nil
}

// Table reads and appends article rows.
type Table struct {
	pool   pool
	table  string
	schema article.Schema
}

// NewTableWithPool constructs a Table from an existing pool (primarily for testing).
func NewTableWithPool(p pool, table string, schema article.Schema) (*Table, error) {
	if p == nil {
		return nil, errors.New("pool is required")
	}
	if table == "" {
		table = defaultTable
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &Table{pool: p, table: table, schema: schema}, nil
}

// Close releases the pool.
func (t *Table) Close() {
	if t == nil || t.pool == nil {
		return
	}
	t.pool.Close()
}

// Records returns every row keyed by schema column name.
func (t *Table) Records(ctx context.Context) ([]store.Record, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(Columns[:], ", "), t.table)
	rows, err := t.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select rows: %w", err)
	}
	defer rows.Close()

	var out []store.Record
	for rows.Next() {
		var cells [article.Width]string
		dest := make([]any, article.Width)
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec := make(store.Record, article.Width)
		for i, name := range t.schema.Columns {
			rec[name] = cells[i]
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

// AppendRows inserts all rows in one statement. Rows whose object_id already
// exists are skipped. The write mode only applies to spreadsheet backends.
func (t *Table) AppendRows(ctx context.Context, rows []article.Row, _ store.WriteMode) error {
	if len(rows) == 0 {
		return nil
	}
	query, args := t.insertStatement(rows)
	if _, err := t.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert %d rows: %w", len(rows), err)
	}
	return nil
}

func (t *Table) insertStatement(rows []article.Row) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES ", t.table, strings.Join(Columns[:], ", "))
	args := make([]any, 0, len(rows)*article.Width)
	for i, r := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j, cell := range r.Strings() {
			if j > 0 {
				b.WriteString(",")
			}
			args = append(args, cell)
			fmt.Fprintf(&b, "$%d", len(args))
		}
		b.WriteString(")")
	}
	b.WriteString(" ON CONFLICT (object_id) DO NOTHING")
	return b.String(), args
}
