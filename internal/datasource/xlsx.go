package datasource

import (
	"io"
	"slices"

	"github.com/koustreak/datamodeler/internal/errs"
	"github.com/xuri/excelize/v2"
)

// ParseXLSX reads one worksheet of a workbook. An empty sheet name picks
// the first sheet. The first row is the header and column types are
// inferred as for CSV.
func ParseXLSX(r io.Reader, sheet, name string) (*Dataset, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid XLSX workbook", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errs.New(errs.ErrKindInvalidInput, "workbook has no sheets")
	}
	if sheet == "" {
		sheet = sheets[0]
	} else if !slices.Contains(sheets, sheet) {
		return nil, errs.Newf(errs.ErrKindNotFound, "sheet %q not found", sheet)
	}

	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to read sheet "+sheet, err)
	}
	if name == "" {
		name = sheet
	}
	return fromRecords(name, records, true, true), nil
}
