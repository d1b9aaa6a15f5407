package datasource

import (
	"encoding/csv"
	"io"

	"github.com/koustreak/datamodeler/internal/errs"
)

// CSVOptions mirror the upload panel's settings.
type CSVOptions struct {
	// Name becomes the table name.
	Name string `json:"name"`

	// Delimiter separates fields. Zero means ','.
	Delimiter rune `json:"delimiter"`

	// Header treats the first record as column names.
	Header bool `json:"header"`

	// Trim drops leading space in fields.
	Trim bool `json:"trim"`

	// InferTypes types columns as Number, Logical or Date when every
	// non-empty cell allows it. Otherwise all columns are Text.
	InferTypes bool `json:"inferTypes"`
}

// DefaultCSVOptions reads comma-separated data with a header row.
func DefaultCSVOptions(name string) CSVOptions {
	return CSVOptions{Name: name, Delimiter: ',', Header: true, Trim: true, InferTypes: true}
}

// ParseCSV reads delimited text. Quoted fields may hold delimiters,
// quotes and newlines. Rows may have differing lengths.
func ParseCSV(r io.Reader, opts CSVOptions) (*Dataset, error) {
	cr := csv.NewReader(r)
	if opts.Delimiter != 0 {
		cr.Comma = opts.Delimiter
	}
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = opts.Trim
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid CSV", err)
	}
	return fromRecords(opts.Name, records, opts.Header, opts.InferTypes), nil
}
