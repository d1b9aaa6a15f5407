package datasource

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/koustreak/datamodeler/internal/errs"
	"github.com/koustreak/datamodeler/internal/model"
)

// ParseJSON reads an array of objects. Columns appear in the order their
// keys are first seen; objects missing a key get nil. Numbers become
// float64, nested objects and arrays are kept as-is in Variant columns.
func ParseJSON(data []byte, name string) (*Dataset, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := expectDelim(dec, '['); err != nil {
		return nil, err
	}

	var order []string
	kinds := make(map[string]model.ColumnType)
	rows := make([]model.Row, 0)

	for dec.More() {
		if err := expectDelim(dec, '{'); err != nil {
			return nil, err
		}
		row := make(model.Row)
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, invalidJSON(err)
			}
			key, _ := tok.(string)

			var raw any
			if err := dec.Decode(&raw); err != nil {
				return nil, invalidJSON(err)
			}
			v := jsonValue(raw)
			if _, ok := kinds[key]; !ok {
				order = append(order, key)
				kinds[key] = ""
			}
			kinds[key] = mergeKind(kinds[key], v)
			row[key] = v
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errs.New(errs.ErrKindInvalidInput, "invalid JSON: trailing data after array")
	}

	ds := &Dataset{Table: model.Table{Name: name}, Rows: rows}
	for _, key := range order {
		t := kinds[key]
		if t == "" {
			t = model.TypeText
		}
		ds.Table.Columns = append(ds.Table.Columns, model.Column{Name: key, Type: t, Nullable: true})
	}
	for _, row := range rows {
		for _, key := range order {
			if _, ok := row[key]; !ok {
				row[key] = nil
			}
		}
	}
	return ds, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return invalidJSON(err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return errs.Newf(errs.ErrKindInvalidInput, "invalid JSON: expected %q, got %v", want, tok)
	}
	return nil
}

func invalidJSON(err error) error {
	return errs.Wrap(errs.ErrKindInvalidInput, "invalid JSON", err)
}

func jsonValue(v any) any {
	if n, ok := v.(json.Number); ok {
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	}
	return v
}

// mergeKind widens the column type seen so far with the type of v.
// nil values leave it unchanged; disagreeing scalars fall back to Text.
func mergeKind(cur model.ColumnType, v any) model.ColumnType {
	var next model.ColumnType
	switch v.(type) {
	case nil:
		return cur
	case float64:
		next = model.TypeNumber
	case bool:
		next = model.TypeLogical
	case string:
		next = model.TypeText
	default:
		next = model.TypeVariant
	}
	switch {
	case cur == "" || cur == next:
		return next
	case cur == model.TypeVariant || next == model.TypeVariant:
		return model.TypeVariant
	}
	return model.TypeText
}
