package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/knowledgesync/internal/article"
	"github.com/JakeFAU/knowledgesync/internal/store"
)

func TestRecordsMapsSchemaColumns(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	tbl, err := NewTableWithPool(mock, "articles", article.DefaultSchema())
	require.NoError(t, err)

	mock.ExpectQuery("SELECT title, .*object_id, created_at FROM articles").
		WillReturnRows(pgxmock.NewRows(Columns[:]).
			AddRow("T1", "2023-05-01", "A", "F", "S", "u", "i", "Strategy", "", "id-1", "ts").
			AddRow("T2", "", "", "", "", "", "", "Not Defined", "", "id-2", "ts"))

	records, err := tbl.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "id-1", records[0]["Object ID"])
	require.Equal(t, "T2", records[1]["Title"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendRowsSingleInsert(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	tbl, err := NewTableWithPool(mock, "", article.DefaultSchema())
	require.NoError(t, err)

	rows := []article.Row{
		{Title: "A", ObjectID: "1", Category: "Strategy"},
		{Title: "B", ObjectID: "2", Category: "Not Defined"},
	}
	args := make([]any, 0, 2*article.Width)
	for _, r := range rows {
		for _, c := range r.Strings() {
			args = append(args, c)
		}
	}

	mock.ExpectExec(`INSERT INTO articles .* VALUES \(\$1,.*\$11\), \(\$12,.*\$22\) ON CONFLICT \(object_id\) DO NOTHING`).
		WithArgs(args...).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))

	require.NoError(t, tbl.AppendRows(context.Background(), rows, store.WriteModeRaw))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendRowsError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	tbl, err := NewTableWithPool(mock, "articles", article.DefaultSchema())
	require.NoError(t, err)

	args := make([]any, article.Width)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	mock.ExpectExec("INSERT INTO articles").
		WithArgs(args...).
		WillReturnError(errors.New("boom"))

	err = tbl.AppendRows(context.Background(), []article.Row{{ObjectID: "1"}}, store.WriteModeRaw)
	require.ErrorContains(t, err, "insert 1 rows")
	require.ErrorContains(t, err, "boom")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendRowsEmptySkipsQuery(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	tbl, err := NewTableWithPool(mock, "articles", article.DefaultSchema())
	require.NoError(t, err)
	require.NoError(t, tbl.AppendRows(context.Background(), nil, store.WriteModeRaw))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestValidation(t *testing.T) {
	t.Parallel()

	_, err := NewTableWithPool(nil, "articles", article.DefaultSchema())
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	_, err = NewTableWithPool(mock, "bad-name;", article.DefaultSchema())
	require.Error(t, err)

	_, err = NewConnector(Config{}, article.DefaultSchema())
	require.ErrorContains(t, err, "dsn")

	_, err = NewConnector(Config{DSN: "postgres://x", Table: "drop table"}, article.DefaultSchema())
	require.Error(t, err)

	c, err := NewConnector(Config{DSN: "postgres://x"}, article.DefaultSchema())
	require.NoError(t, err)
	require.Equal(t, "articles", c.cfg.Table)
}
