// Package sqlgen renders SQL text from the logical data model and from
// query-builder state.
//
// Output is for preview: identifiers are written as the user named them
// and values are inlined. Parameterized produces the executable form with
// placeholders for a real database. Every function here is pure, so the
// same input always yields byte-identical SQL.
package sqlgen

import (
	"strings"

	"github.com/koustreak/datamodeler/internal/model"
)

// Placeholder is the statement shown while the canvas is empty.
const Placeholder = "SELECT 1 as placeholder;"

// ModelSQL renders the canvas as a single SELECT over all tables joined
// along the relationships, in relationship-list order.
func ModelSQL(tables []model.Table, relationships []model.Relationship) string {
	if len(tables) == 0 {
		return Placeholder
	}

	first := tables[0]
	if len(relationships) == 0 {
		cols := qualifiedColumns(first)
		if len(cols) == 0 {
			return "SELECT *\nFROM " + first.Name + ";"
		}
		return "SELECT " + strings.Join(cols, ",\n  ") + "\nFROM " + first.Name + ";"
	}

	var cols []string
	for _, t := range tables {
		cols = append(cols, qualifiedColumns(t)...)
	}
	selectList := "*"
	if len(cols) > 0 {
		selectList = strings.Join(cols, ", ")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(selectList)
	sb.WriteString("\nFROM ")
	sb.WriteString(first.Name)
	for _, r := range relationships {
		sb.WriteString("\n")
		sb.WriteString(joinLine(r))
	}
	sb.WriteString(";")
	return sb.String()
}

func qualifiedColumns(t model.Table) []string {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = t.Name + "." + c.Name
	}
	return cols
}

// joinLine renders "<TYPE> JOIN <to> ON <cond>". CROSS joins carry no ON.
func joinLine(r model.Relationship) string {
	line := r.Type.Keyword() + " JOIN " + r.ToTable
	if r.Type == model.JoinCross {
		return line
	}
	return line + " ON " + relationshipCondition(r)
}

// relationshipCondition is the AND of the explicit conditions, or the
// column equality the relationship was drawn between.
func relationshipCondition(r model.Relationship) string {
	if len(r.Conditions) == 0 {
		return r.FromTable + "." + r.FromColumn + " = " + r.ToTable + "." + r.ToColumn
	}
	parts := make([]string, len(r.Conditions))
	for i, c := range r.Conditions {
		op := strings.TrimSpace(c.Operator)
		if op == "" {
			op = "="
		}
		parts[i] = qualify(r.FromTable, c.LeftColumn) + " " + op + " " + qualify(r.ToTable, c.RightColumn)
	}
	return strings.Join(parts, " AND ")
}

// qualify prefixes column with table unless it is already qualified.
func qualify(table, column string) string {
	if strings.Contains(column, ".") || table == "" {
		return column
	}
	return table + "." + column
}
