package database

import (
	"context"
	"sort"
	"strings"

	"github.com/koustreak/datamodeler/internal/model"
)

// Schema is the introspected structure of a connected database.
type Schema struct {
	Tables map[string]*TableInfo
}

// TableInfo describes one table as reported by information_schema.
type TableInfo struct {
	Name        string
	Columns     []*ColumnInfo
	PrimaryKey  []string
	ForeignKeys []*ForeignKey
}

// ColumnInfo describes one column. DataType is the engine's own name,
// e.g. "character varying" or "int".
type ColumnInfo struct {
	Name      string
	DataType  string
	Nullable  bool
	Default   *string
	IsPrimary bool
	IsUnique  bool
}

// ForeignKey is a single-column reference from a table to RefTable.
type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

// TableNames returns the table names in lexical order.
func (s *Schema) TableNames() []string {
	names := make([]string, 0, len(s.Tables))
	for name := range s.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Canvas layout of imported tables.
const (
	layoutColumns = 4
	layoutOriginX = 40
	layoutOriginY = 40
	layoutStepX   = 280
	layoutStepY   = 240
)

// ToModel converts the schema into canvas tables laid out on a grid, and
// foreign keys into inner-join relationships.
func (s *Schema) ToModel() ([]model.Table, []model.Relationship) {
	names := s.TableNames()
	tables := make([]model.Table, 0, len(names))
	var rels []model.Relationship

	for i, name := range names {
		info := s.Tables[name]
		fkCols := make(map[string]bool, len(info.ForeignKeys))
		for _, fk := range info.ForeignKeys {
			fkCols[fk.Column] = true
		}

		t := model.Table{
			Name: name,
			Position: model.Position{
				X: float64(layoutOriginX + (i%layoutColumns)*layoutStepX),
				Y: float64(layoutOriginY + (i/layoutColumns)*layoutStepY),
			},
		}
		for _, c := range info.Columns {
			t.Columns = append(t.Columns, model.Column{
				Name:       c.Name,
				Type:       ColumnType(c.DataType),
				Nullable:   c.Nullable,
				PrimaryKey: c.IsPrimary,
				ForeignKey: fkCols[c.Name],
			})
		}
		tables = append(tables, t)

		for _, fk := range info.ForeignKeys {
			if _, ok := s.Tables[fk.RefTable]; !ok {
				continue
			}
			rels = append(rels, model.Relationship{
				FromTable:  name,
				FromColumn: fk.Column,
				ToTable:    fk.RefTable,
				ToColumn:   fk.RefColumn,
				Type:       model.JoinInner,
			})
		}
	}
	return tables, rels
}

// ColumnType maps an engine data type onto the model's column types.
func ColumnType(dataType string) model.ColumnType {
	t := strings.ToLower(strings.TrimSpace(dataType))
	if i := strings.IndexByte(t, '('); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	switch {
	case t == "geometry", t == "geography", t == "point", t == "polygon", t == "linestring":
		return model.TypeGeography
	case t == "boolean" || t == "bool" || t == "bit":
		return model.TypeLogical
	case t == "interval":
		return model.TypeText
	case strings.Contains(t, "int"), t == "numeric", t == "decimal", t == "real",
		t == "float", t == "double", t == "double precision", t == "money", t == "serial", t == "bigserial":
		return model.TypeNumber
	case strings.HasPrefix(t, "timestamp"), t == "date", t == "datetime", strings.HasPrefix(t, "time"), t == "year":
		return model.TypeDate
	case t == "json", t == "jsonb", t == "array", t == "user-defined", strings.HasSuffix(t, "[]"):
		return model.TypeVariant
	}
	return model.TypeText
}

// Introspect reads the schema of db and returns it as canvas tables and
// relationships.
func Introspect(ctx context.Context, db DB) ([]model.Table, []model.Relationship, error) {
	s, err := db.InspectSchema(ctx)
	if err != nil {
		return nil, nil, err
	}
	tables, rels := s.ToModel()
	return tables, rels, nil
}
