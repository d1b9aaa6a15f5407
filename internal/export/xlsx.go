package export

import (
	"io"
	"strings"
	"time"

	"github.com/koustreak/datamodeler/internal/errs"
	"github.com/koustreak/datamodeler/internal/model"
	"github.com/xuri/excelize/v2"
)

// DefaultSheet names the worksheet when none is given.
const DefaultSheet = "Data"

// WriteXLSX writes a single-sheet workbook with a bold, frozen header.
// Numbers, logicals and dates keep their cell types.
func WriteXLSX(w io.Writer, sheet string, columns []string, rows []model.Row) error {
	sheet = strings.TrimSpace(sheet)
	if sheet == "" {
		sheet = DefaultSheet
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "invalid sheet name", err)
	}

	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return errs.Wrap(errs.ErrKindUnknown, "write header", err)
	}

	if len(columns) > 0 {
		bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return errs.Wrap(errs.ErrKindUnknown, "create header style", err)
		}
		last, err := excelize.CoordinatesToCellName(len(columns), 1)
		if err != nil {
			return errs.Wrap(errs.ErrKindInvalidInput, "too many columns", err)
		}
		if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
			return errs.Wrap(errs.ErrKindUnknown, "style header", err)
		}
		if err := f.SetPanes(sheet, &excelize.Panes{
			Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
		}); err != nil {
			return errs.Wrap(errs.ErrKindUnknown, "freeze header", err)
		}
	}

	vals := make([]any, len(columns))
	for i, r := range rows {
		for j, c := range columns {
			vals[j] = xlsxValue(r[c])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errs.Wrap(errs.ErrKindInvalidInput, "too many rows", err)
		}
		if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
			return errs.Wrap(errs.ErrKindUnknown, "write row", err)
		}
	}

	if err := f.Write(w); err != nil {
		return errs.Wrap(errs.ErrKindUnknown, "write workbook", err)
	}
	return nil
}

func xlsxValue(v any) any {
	switch v := v.(type) {
	case nil, string, bool, float64, float32, int, int64, time.Time:
		return v
	}
	return cellText(v)
}
