package export

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/koustreak/datamodeler/internal/errs"
	"github.com/koustreak/datamodeler/internal/filestore/memory"
	"github.com/koustreak/datamodeler/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var (
	gridColumns = []string{"name", "note", "amount", "paid", "since"}
	gridRows    = []model.Row{
		{"name": "Acme, Inc.", "note": `said "hi"`, "amount": 1250.5, "paid": true, "since": time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"name": "Globex", "note": "two\nlines", "amount": 3, "paid": false},
	}
)

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, gridColumns, gridRows))

	want := "name,note,amount,paid,since\n" +
		"\"Acme, Inc.\",\"said \"\"hi\"\"\",1250.5,TRUE,2024-01-15\n" +
		"Globex,\"two\nlines\",3,FALSE,\n"
	assert.Equal(t, want, buf.String())
}

func TestCellText(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"x", "x"},
		{0.1, "0.1"},
		{int64(-7), "-7"},
		{time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC), "2024-03-01T09:30:00Z"},
		{[]any{"a", 1.0}, `["a",1]`},
		{uint8(4), "4"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cellText(tt.in))
	}
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, "Orders", gridColumns, gridRows))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Orders"}, f.GetSheetList())
	rows, err := f.GetRows("Orders")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, gridColumns, rows[0])
	assert.Equal(t, "Acme, Inc.", rows[1][0])
	assert.Equal(t, "1250.5", rows[1][2])
	assert.Equal(t, "TRUE", rows[1][3])

	styleID, err := f.GetCellStyle("Orders", "C1")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)
}

func TestWriteXLSX_DefaultSheet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, "", nil, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{DefaultSheet}, f.GetSheetList())
}

func sampleModel(t *testing.T) *model.Model {
	t.Helper()
	m := model.New("Sales")
	require.NoError(t, m.AddTable(model.Table{Name: "orders", Columns: []model.Column{
		{Name: "id", Type: model.TypeNumber, PrimaryKey: true},
		{Name: "customer_id", Type: model.TypeNumber, ForeignKey: true},
	}}))
	require.NoError(t, m.AddTable(model.Table{Name: "customers", Columns: []model.Column{
		{Name: "id", Type: model.TypeNumber, PrimaryKey: true},
	}, Position: model.Position{X: 300}}))
	require.NoError(t, m.AddRelationship(model.Relationship{
		FromTable: "orders", FromColumn: "customer_id", ToTable: "customers", ToColumn: "id",
	}))
	return m
}

func TestDocument_RoundTrip(t *testing.T) {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	doc := NewDocument("model", sampleModel(t), now)
	assert.Equal(t, "Sales", doc.ModelName)

	for _, enc := range []Encoding{EncodingJSON, EncodingYAML} {
		var buf bytes.Buffer
		require.NoError(t, WriteDocument(&buf, doc, enc))

		got, err := ReadDocument(&buf)
		require.NoError(t, err, enc)
		assert.Equal(t, "model", got.ActiveTab)
		assert.True(t, now.Equal(got.Timestamp), enc)
		require.NotNil(t, got.Model)
		assert.Equal(t, doc.Model.Tables, got.Model.Tables, enc)
		assert.Equal(t, doc.Model.Relationships, got.Model.Relationships, enc)
	}
}

func TestWriteDocument_JSONKeys(t *testing.T) {
	var buf bytes.Buffer
	doc := &Document{ActiveTab: "view", ModelName: "Demo", Timestamp: time.Unix(0, 0).UTC()}
	require.NoError(t, WriteDocument(&buf, doc, EncodingJSON))
	assert.Contains(t, buf.String(), `"activeTab": "view"`)
	assert.Contains(t, buf.String(), `"modelName": "Demo"`)
	assert.NotContains(t, buf.String(), `"model"`)
}

func TestReadDocument_Invalid(t *testing.T) {
	for _, in := range []string{"", "   ", "{not json", "activeTab: [unclosed"} {
		_, err := ReadDocument(strings.NewReader(in))
		assert.True(t, errs.IsInvalidInput(err), "%q", in)
	}

	dup := `{"model":{"name":"x","tables":[{"name":"t","columns":[{"name":"a","type":"Text"},{"name":"a","type":"Text"}]}]}}`
	_, err := ReadDocument(strings.NewReader(dup))
	assert.True(t, errs.IsInvalidInput(err))
}

func TestParseEncoding(t *testing.T) {
	e, err := EncodingOf("doc.YML")
	require.NoError(t, err)
	assert.Equal(t, EncodingYAML, e)

	e, err = ParseEncoding("")
	require.NoError(t, err)
	assert.Equal(t, EncodingJSON, e)

	_, err = ParseEncoding("toml")
	assert.True(t, errs.IsInvalidInput(err))
}

func TestArchive(t *testing.T) {
	store := memory.New("datamodeler")
	a := NewArchive(store, "datamodeler", nil)
	ctx := context.Background()

	doc := NewDocument("model", sampleModel(t), time.Date(2026, 10, 18, 9, 5, 0, 0, time.UTC))
	doc.ModelName = "Q3 sales/eu"

	key, err := a.Save(ctx, doc, EncodingYAML)
	require.NoError(t, err)
	assert.Equal(t, "documents/Q3-sales-eu-20261018T090500Z.yaml", key)
	obj, err := store.GetObject(ctx, "datamodeler", key)
	require.NoError(t, err)
	assert.Equal(t, "application/yaml", obj.Info().ContentType)
	require.NoError(t, obj.Close())

	got, err := a.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "Q3 sales/eu", got.ModelName)
	assert.Len(t, got.Model.Tables, 2)

	_, err = a.Load(ctx, "documents/missing.json")
	assert.True(t, errs.IsNotFound(err))
	_, err = a.Load(ctx, "documents/notes.txt")
	assert.True(t, errs.IsInvalidInput(err))
}
