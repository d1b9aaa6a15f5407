package mysql

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	gomysql "github.com/go-sql-driver/mysql"
	"github.com/koustreak/datamodeler/internal/database"
	"github.com/koustreak/datamodeler/internal/errs"
	"github.com/koustreak/datamodeler/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*Driver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewFromDB(db), mock
}

var columnCols = []string{"column_name", "data_type", "is_nullable", "column_default", "column_key"}
var fkCols = []string{"column_name", "referenced_table_name", "referenced_column_name"}

func TestDriver_Introspect(t *testing.T) {
	d, mock := newMock(t)

	mock.ExpectQuery("FROM information_schema.tables").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("customers").AddRow("orders"))

	mock.ExpectQuery("FROM information_schema.columns").WithArgs("customers").
		WillReturnRows(sqlmock.NewRows(columnCols).
			AddRow("id", "int", false, nil, "PRI").
			AddRow("email", "varchar", true, nil, "UNI"))
	mock.ExpectQuery("FROM information_schema.key_column_usage").WithArgs("customers").
		WillReturnRows(sqlmock.NewRows(fkCols))

	mock.ExpectQuery("FROM information_schema.columns").WithArgs("orders").
		WillReturnRows(sqlmock.NewRows(columnCols).
			AddRow("id", "bigint", false, nil, "PRI").
			AddRow("customer_id", "int", false, nil, "MUL").
			AddRow("placed_at", "datetime", true, "CURRENT_TIMESTAMP", ""))
	mock.ExpectQuery("FROM information_schema.key_column_usage").WithArgs("orders").
		WillReturnRows(sqlmock.NewRows(fkCols).AddRow("customer_id", "customers", "id"))

	tables, rels, err := database.Introspect(context.Background(), d)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	require.Len(t, tables, 2)
	assert.Equal(t, "customers", tables[0].Name)
	assert.Equal(t, []model.Column{
		{Name: "id", Type: model.TypeNumber, PrimaryKey: true},
		{Name: "email", Type: model.TypeText, Nullable: true},
	}, tables[0].Columns)

	orders := tables[1]
	assert.Equal(t, "orders", orders.Name)
	fk, ok := orders.Column("customer_id")
	require.True(t, ok)
	assert.True(t, fk.ForeignKey)
	placed, _ := orders.Column("placed_at")
	assert.Equal(t, model.TypeDate, placed.Type)

	assert.Equal(t, []model.Relationship{{
		FromTable: "orders", FromColumn: "customer_id",
		ToTable: "customers", ToColumn: "id",
		Type: model.JoinInner,
	}}, rels)
}

func TestDriver_InspectSchemaError(t *testing.T) {
	d, mock := newMock(t)
	mock.ExpectQuery("FROM information_schema.tables").
		WillReturnError(&gomysql.MySQLError{Number: 1142, Message: "SELECT command denied"})

	_, err := d.InspectSchema(context.Background())
	require.Error(t, err)
	assert.True(t, errs.IsPermissionDenied(err))
}

func TestDBExecutor_Execute(t *testing.T) {
	d, mock := newMock(t)
	query := "SELECT id, name, total FROM customers WHERE id > ?"
	mock.ExpectQuery(regexp.QuoteMeta(query)).WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "total"}).
			AddRow(int64(2), []byte("Globex"), []byte("830.50")).
			AddRow(int64(3), []byte("Initech"), nil))

	exec := database.NewDBExecutor(d, time.Second, nil)
	rs, err := exec.Execute(context.Background(), query, 1)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	assert.Equal(t, []string{"id", "name", "total"}, rs.Columns)
	assert.Equal(t, []model.Row{
		{"id": int64(2), "name": "Globex", "total": "830.50"},
		{"id": int64(3), "name": "Initech", "total": nil},
	}, rs.Rows)
}

func TestDBExecutor_QueryError(t *testing.T) {
	d, mock := newMock(t)
	mock.ExpectQuery("SELECT").
		WillReturnError(&gomysql.MySQLError{Number: 1146, Message: "Table 'shop.nope' doesn't exist"})

	_, err := database.NewDBExecutor(d, 0, nil).Execute(context.Background(), "SELECT * FROM nope")
	require.Error(t, err)
	assert.True(t, errs.IsQueryFailed(err))
	assert.Contains(t, err.Error(), "doesn't exist")
}

func TestDBExecutor_RowError(t *testing.T) {
	d, mock := newMock(t)
	mock.ExpectQuery("SELECT").
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(1).AddRow(2).RowError(1, driver.ErrBadConn))

	_, err := database.NewDBExecutor(d, 0, nil).Execute(context.Background(), "SELECT n FROM t")
	require.Error(t, err)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind errs.ErrKind
	}{
		{"deadline", context.DeadlineExceeded, errs.ErrKindTimeout},
		{"access denied", &gomysql.MySQLError{Number: 1045}, errs.ErrKindPermissionDenied},
		{"unknown database", &gomysql.MySQLError{Number: 1049}, errs.ErrKindConnectionFailed},
		{"too many connections", &gomysql.MySQLError{Number: 1040}, errs.ErrKindConnectionFailed},
		{"syntax", &gomysql.MySQLError{Number: 1064}, errs.ErrKindQueryFailed},
		{"max execution time", &gomysql.MySQLError{Number: 3024}, errs.ErrKindTimeout},
		{"invalid connection", gomysql.ErrInvalidConn, errs.ErrKindConnectionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, errs.KindOf(mapError(tt.err, "query failed")))
		})
	}
	assert.NoError(t, mapError(nil, "unused"))
}
