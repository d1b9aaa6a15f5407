package export

import (
	"encoding/csv"
	"io"

	"github.com/koustreak/datamodeler/internal/errs"
	"github.com/koustreak/datamodeler/internal/model"
)

// WriteCSV writes a header of columns followed by one record per row.
// Fields holding commas, quotes or newlines are quoted.
func WriteCSV(w io.Writer, columns []string, rows []model.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return errs.Wrap(errs.ErrKindUnknown, "write csv header", err)
	}
	rec := make([]string, len(columns))
	for _, r := range rows {
		for i, c := range columns {
			rec[i] = cellText(r[c])
		}
		if err := cw.Write(rec); err != nil {
			return errs.Wrap(errs.ErrKindUnknown, "write csv row", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errs.Wrap(errs.ErrKindUnknown, "flush csv", err)
	}
	return nil
}
