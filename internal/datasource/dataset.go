// Package datasource turns uploaded CSV, JSON and XLSX files into tables
// the view grid and the modeling canvas can work with.
package datasource

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/koustreak/datamodeler/internal/model"
)

// Dataset is a parsed file: its table definition and its rows.
type Dataset struct {
	Table model.Table `json:"table" yaml:"table"`
	Rows  []model.Row `json:"rows" yaml:"rows"`
}

// dateLayouts are tried in order when inferring Date columns.
var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	time.DateTime,
	"01/02/2006",
}

// fromRecords builds a dataset from string records. With header set the
// first record names the columns. With infer set each column gets the
// narrowest type all of its non-empty cells satisfy.
func fromRecords(name string, records [][]string, header, infer bool) *Dataset {
	ds := &Dataset{Table: model.Table{Name: name}, Rows: make([]model.Row, 0)}
	if len(records) == 0 {
		return ds
	}

	width := 0
	for _, rec := range records {
		width = max(width, len(rec))
	}

	var names []string
	if header {
		names = columnNames(records[0], width)
		records = records[1:]
	} else {
		names = columnNames(nil, width)
	}

	types := make([]model.ColumnType, width)
	for i := range types {
		types[i] = model.TypeText
		if infer {
			types[i] = inferColumn(records, i)
		}
	}

	for i, n := range names {
		ds.Table.Columns = append(ds.Table.Columns, model.Column{Name: n, Type: types[i], Nullable: true})
	}

	for _, rec := range records {
		row := make(model.Row, width)
		for i, n := range names {
			var cell string
			if i < len(rec) {
				cell = rec[i]
			}
			row[n] = convert(cell, types[i])
		}
		ds.Rows = append(ds.Rows, row)
	}
	return ds
}

// columnNames fills blanks with ColumnN and suffixes duplicates.
func columnNames(header []string, width int) []string {
	names := make([]string, width)
	seen := make(map[string]int, width)
	for i := 0; i < width; i++ {
		n := ""
		if i < len(header) {
			n = strings.TrimSpace(header[i])
		}
		if n == "" {
			n = fmt.Sprintf("Column%d", i+1)
		}
		seen[n]++
		if c := seen[n]; c > 1 {
			n = fmt.Sprintf("%s_%d", n, c)
		}
		names[i] = n
	}
	return names
}

func inferColumn(records [][]string, col int) model.ColumnType {
	candidates := map[model.ColumnType]bool{
		model.TypeNumber:  true,
		model.TypeLogical: true,
		model.TypeDate:    true,
	}
	seen := false
	for _, rec := range records {
		if col >= len(rec) {
			continue
		}
		cell := strings.TrimSpace(rec[col])
		if cell == "" {
			continue
		}
		seen = true
		if _, ok := parseNumber(cell); !ok {
			candidates[model.TypeNumber] = false
		}
		if _, ok := parseBool(cell); !ok {
			candidates[model.TypeLogical] = false
		}
		if _, ok := parseDate(cell); !ok {
			candidates[model.TypeDate] = false
		}
	}
	if !seen {
		return model.TypeText
	}
	for _, t := range []model.ColumnType{model.TypeNumber, model.TypeLogical, model.TypeDate} {
		if candidates[t] {
			return t
		}
	}
	return model.TypeText
}

// convert returns the typed value of a cell. Empty cells are nil.
func convert(cell string, t model.ColumnType) any {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return nil
	}
	switch t {
	case model.TypeNumber:
		if f, ok := parseNumber(trimmed); ok {
			return f
		}
	case model.TypeLogical:
		if b, ok := parseBool(trimmed); ok {
			return b
		}
	case model.TypeDate:
		if d, ok := parseDate(trimmed); ok {
			return d
		}
	}
	return cell
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}
