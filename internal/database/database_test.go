package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/koustreak/datamodeler/internal/errs"
	"github.com/koustreak/datamodeler/internal/model"
	"github.com/koustreak/datamodeler/internal/sqlgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockExecutor_ReturnsCannedRows(t *testing.T) {
	m := &MockExecutor{Delay: 10 * time.Millisecond, Result: SampleResult()}

	rs, err := m.Execute(context.Background(), "SELECT * FROM anything")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "customer", "region", "amount"}, rs.Columns)
	assert.Len(t, rs.Rows, 4)
	assert.GreaterOrEqual(t, rs.Duration, 10*time.Millisecond)

	rs.Rows[0]["customer"] = "changed"
	again, err := m.Execute(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", again.Rows[0]["customer"], "results are copies")
}

func TestMockExecutor_DefaultDelay(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, NewMockExecutor().Delay)
}

func TestMockExecutor_Cancelled(t *testing.T) {
	m := &MockExecutor{Delay: time.Minute}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err := m.Execute(ctx, "SELECT 1")
	require.Error(t, err)
	assert.True(t, errs.IsTimeout(err))
}

func TestMockExecutor_NilResult(t *testing.T) {
	rs, err := (&MockExecutor{}).Execute(context.Background(), "SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, SampleResult().Columns, rs.Columns)
}

// fakeRows is an in-memory Rows.
type fakeRows struct {
	cols   []string
	data   [][]any
	pos    int
	err    error
	closed bool
}

func (f *fakeRows) Next() bool {
	if f.pos >= len(f.data) {
		return false
	}
	f.pos++
	return true
}

func (f *fakeRows) Scan(dest ...any) error {
	for i, v := range f.data[f.pos-1] {
		*dest[i].(*any) = v
	}
	return nil
}

func (f *fakeRows) Columns() ([]string, error) { return f.cols, nil }
func (f *fakeRows) Close()                     { f.closed = true }
func (f *fakeRows) Err() error                 { return f.err }

func TestScanRows(t *testing.T) {
	rows := &fakeRows{
		cols: []string{"id", "name"},
		data: [][]any{{int64(1), []byte("a")}, {int64(2), "b"}},
	}
	cols, out, err := ScanRows(rows)
	require.NoError(t, err)
	assert.True(t, rows.closed)
	assert.Equal(t, []string{"id", "name"}, cols)
	assert.Equal(t, []model.Row{{"id": int64(1), "name": "a"}, {"id": int64(2), "name": "b"}}, out)
}

func TestScanRows_Empty(t *testing.T) {
	_, out, err := ScanRows(&fakeRows{cols: []string{"x"}})
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestScanRows_IterationError(t *testing.T) {
	_, _, err := ScanRows(&fakeRows{cols: []string{"x"}, err: errors.New("broken pipe")})
	require.Error(t, err)
	assert.True(t, errs.IsQueryFailed(err))
}

// fakeDB serves a fixed schema and rows.
type fakeDB struct {
	schema *Schema
	rows   *fakeRows
	err    error
}

func (f *fakeDB) Ping(context.Context) error { return nil }
func (f *fakeDB) Close()                     {}
func (f *fakeDB) Query(context.Context, string, ...any) (Rows, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}
func (f *fakeDB) QueryRow(context.Context, string, ...any) (Row, error) { return nil, nil }
func (f *fakeDB) InspectSchema(context.Context) (*Schema, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.schema, nil
}

func TestDBExecutor(t *testing.T) {
	db := &fakeDB{rows: &fakeRows{cols: []string{"n"}, data: [][]any{{int64(7)}}}}
	rs, err := NewDBExecutor(db, time.Second, nil).Execute(context.Background(), "SELECT n FROM t")
	require.NoError(t, err)
	assert.Equal(t, []model.Row{{"n": int64(7)}}, rs.Rows)

	db.err = errs.New(errs.ErrKindConnectionFailed, "down")
	_, err = NewDBExecutor(db, 0, nil).Execute(context.Background(), "SELECT 1")
	assert.True(t, errs.IsConnectionFailed(err))
}

func TestSchema_ToModel(t *testing.T) {
	s := &Schema{Tables: map[string]*TableInfo{
		"orders": {
			Name: "orders",
			Columns: []*ColumnInfo{
				{Name: "id", DataType: "integer", IsPrimary: true},
				{Name: "customer_id", DataType: "integer"},
				{Name: "archived_by", DataType: "integer"},
			},
			ForeignKeys: []*ForeignKey{
				{Column: "customer_id", RefTable: "customers", RefColumn: "id"},
				{Column: "archived_by", RefTable: "users", RefColumn: "id"},
			},
		},
		"customers": {
			Name:    "customers",
			Columns: []*ColumnInfo{{Name: "id", DataType: "uuid", IsPrimary: true}},
		},
	}}

	tables, rels := s.ToModel()
	require.Len(t, tables, 2)
	assert.Equal(t, "customers", tables[0].Name)
	assert.Equal(t, model.Position{X: 40, Y: 40}, tables[0].Position)
	assert.Equal(t, model.Position{X: 320, Y: 40}, tables[1].Position)

	require.Len(t, rels, 1, "references to tables outside the schema are dropped")
	assert.Equal(t, "customers", rels[0].ToTable)

	tables, _, err := Introspect(context.Background(), &fakeDB{schema: s})
	require.NoError(t, err)
	assert.Len(t, tables, 2)
}

func TestColumnType(t *testing.T) {
	tests := map[string]model.ColumnType{
		"integer":                  model.TypeNumber,
		"bigint":                   model.TypeNumber,
		"tinyint(1)":               model.TypeNumber,
		"numeric":                  model.TypeNumber,
		"double precision":         model.TypeNumber,
		"boolean":                  model.TypeLogical,
		"timestamp with time zone": model.TypeDate,
		"date":                     model.TypeDate,
		"jsonb":                    model.TypeVariant,
		"ARRAY":                    model.TypeVariant,
		"point":                    model.TypeGeography,
		"character varying":        model.TypeText,
		"interval":                 model.TypeText,
		"text":                     model.TypeText,
		"uuid":                     model.TypeText,
		"time without time zone":   model.TypeDate,
		"  DECIMAL(10,2) ":         model.TypeNumber,
	}
	for in, want := range tests {
		assert.Equal(t, want, ColumnType(in), in)
	}
}

func TestConfig(t *testing.T) {
	cfg := DefaultConfig("postgres://localhost/db")
	require.NoError(t, cfg.Validate())
	assert.Equal(t, sqlgen.DialectPostgres, cfg.Dialect())

	cfg.Driver = DriverMySQL
	assert.Equal(t, sqlgen.DialectMySQL, cfg.Dialect())

	cfg.DSN = ""
	assert.True(t, errs.IsInvalidInput(cfg.Validate()))

	cfg.Driver = DriverMock
	assert.NoError(t, cfg.Validate())

	cfg.MinConns, cfg.MaxConns = 5, 2
	assert.True(t, errs.IsInvalidInput(cfg.Validate()))

	d, err := ParseDriver("PostgreSQL")
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, d)
	_, err = ParseDriver("sqlite")
	assert.True(t, errs.IsInvalidInput(err))
}
