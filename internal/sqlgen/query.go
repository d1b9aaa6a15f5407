package sqlgen

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/koustreak/datamodeler/internal/errs"
	"github.com/koustreak/datamodeler/internal/model"
)

// Dialect controls placeholder and identifier quoting style for
// Parameterized.
type Dialect int

const (
	// DialectPostgres uses $1, $2, … placeholders and "double" quotes.
	DialectPostgres Dialect = iota

	// DialectMySQL uses ? placeholders and `backtick` quotes.
	DialectMySQL
)

func (d Dialect) String() string {
	if d == DialectMySQL {
		return "mysql"
	}
	return "postgres"
}

// ParseDialect maps a driver name onto a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "postgres", "postgresql", "pg":
		return DialectPostgres, nil
	case "mysql", "mariadb":
		return DialectMySQL, nil
	}
	return DialectPostgres, errs.Newf(errs.ErrKindInvalidInput, "unknown SQL dialect %q", s)
}

// Query is a statement with its bind arguments.
type Query struct {
	SQL  string
	Args []any
}

// validOps is the allowlist of comparison operators for WHERE and HAVING.
// The operator position cannot be parameterized, so anything else is
// rejected.
var validOps = map[string]bool{
	"=":      true,
	"!=":     true,
	"<>":     true,
	"<":      true,
	">":      true,
	"<=":     true,
	">=":     true,
	"LIKE":   true,
	"ILIKE":  true,
	"IN":     true,
	"IS":     true,
	"IS NOT": true,
}

// Operators returns the accepted condition operators.
func Operators() []string {
	return []string{"=", "!=", "<>", "<", ">", "<=", ">=", "LIKE", "ILIKE", "IN", "IS", "IS NOT"}
}

// Render produces the preview text of a query-builder state. Values are
// inlined: numbers bare, text single-quoted.
func Render(s State) (string, error) {
	r := &renderer{}
	return r.render(s)
}

// Parameterized produces the executable form of s. WHERE/HAVING values
// and LIMIT become placeholders and plain identifiers are quoted for d.
func Parameterized(s State, d Dialect) (Query, error) {
	r := &renderer{params: true, dialect: d}
	sql, err := r.render(s)
	if err != nil {
		return Query{}, err
	}
	return Query{SQL: sql, Args: r.args}, nil
}

type renderer struct {
	params  bool
	dialect Dialect
	args    []any
}

func (r *renderer) render(s State) (string, error) {
	from := strings.TrimSpace(s.From)
	if from == "" {
		return "", errs.New(errs.ErrKindInvalidInput, "query has no FROM table")
	}

	var lines []string

	// --- SELECT ---
	cols := r.identList(s.Select)
	if len(cols) == 0 {
		cols = []string{"*"}
	}
	lines = append(lines, "SELECT "+strings.Join(cols, ", "))
	lines = append(lines, "FROM "+r.ident(from))

	// --- JOIN ---
	for _, j := range s.Joins {
		line, err := r.join(j)
		if err != nil {
			return "", err
		}
		lines = append(lines, line)
	}

	// --- WHERE ---
	if len(s.Where) > 0 {
		where, err := r.conditions(s.Where)
		if err != nil {
			return "", err
		}
		lines = append(lines, "WHERE "+where)
	}

	// --- GROUP BY ---
	if group := r.identList(s.GroupBy); len(group) > 0 {
		lines = append(lines, "GROUP BY "+strings.Join(group, ", "))
	}

	// --- HAVING ---
	if len(s.Having) > 0 {
		having, err := r.conditions(s.Having)
		if err != nil {
			return "", err
		}
		lines = append(lines, "HAVING "+having)
	}

	// --- ORDER BY ---
	if len(s.OrderBy) > 0 {
		parts := make([]string, 0, len(s.OrderBy))
		for _, o := range s.OrderBy {
			col := strings.TrimSpace(o.Column)
			if col == "" {
				continue
			}
			dir := SortDirection(strings.ToUpper(strings.TrimSpace(string(o.Direction))))
			switch dir {
			case "":
				dir = Asc
			case Asc, Desc:
			default:
				return "", errs.Newf(errs.ErrKindInvalidInput, "unsupported sort direction: %q", o.Direction)
			}
			parts = append(parts, r.ident(col)+" "+string(dir))
		}
		if len(parts) > 0 {
			lines = append(lines, "ORDER BY "+strings.Join(parts, ", "))
		}
	}

	// --- LIMIT ---
	if limit := strings.TrimSpace(s.Limit.String()); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return "", errs.Newf(errs.ErrKindInvalidInput, "LIMIT must be a non-negative integer, got %q", limit)
		}
		if r.params {
			lines = append(lines, "LIMIT "+r.bind(n))
		} else {
			lines = append(lines, "LIMIT "+strconv.Itoa(n))
		}
	}

	return strings.Join(lines, "\n") + ";", nil
}

func (r *renderer) join(j Join) (string, error) {
	table := strings.TrimSpace(j.Table)
	if table == "" {
		return "", errs.New(errs.ErrKindInvalidInput, "join has no table")
	}
	if j.Type != "" && !j.Type.Valid() {
		return "", errs.Newf(errs.ErrKindInvalidInput, "unsupported join type: %q", j.Type)
	}
	line := j.Type.Keyword() + " JOIN " + r.ident(table)
	if j.Type == model.JoinCross {
		return line, nil
	}
	if len(j.Conditions) == 0 {
		return "", errs.Newf(errs.ErrKindInvalidInput, "join on %s has no conditions", table)
	}
	parts := make([]string, len(j.Conditions))
	for i, c := range j.Conditions {
		op := normalizeOp(c.Operator)
		if op == "" {
			op = "="
		}
		if !validOps[op] || op == "IN" || op == "IS" || op == "IS NOT" {
			return "", errs.Newf(errs.ErrKindInvalidInput, "unsupported join operator: %q", c.Operator)
		}
		parts[i] = r.ident(c.LeftColumn) + " " + op + " " + r.ident(c.RightColumn)
	}
	return line + " ON " + strings.Join(parts, " AND "), nil
}

func (r *renderer) conditions(conds []Condition) (string, error) {
	var sb strings.Builder
	for i, c := range conds {
		expr, err := r.condition(c)
		if err != nil {
			return "", err
		}
		if i > 0 {
			conn := Connective(strings.ToUpper(strings.TrimSpace(string(c.Connective))))
			switch conn {
			case "":
				conn = And
			case And, Or:
			default:
				return "", errs.Newf(errs.ErrKindInvalidInput, "unsupported connective: %q", c.Connective)
			}
			sb.WriteString(" ")
			sb.WriteString(string(conn))
			sb.WriteString(" ")
		}
		sb.WriteString(expr)
	}
	return sb.String(), nil
}

func (r *renderer) condition(c Condition) (string, error) {
	col := strings.TrimSpace(c.Column)
	if col == "" {
		return "", errs.New(errs.ErrKindInvalidInput, "condition has no column")
	}
	op := normalizeOp(c.Operator)
	if !validOps[op] {
		return "", errs.Newf(errs.ErrKindInvalidInput, "unsupported operator: %q", c.Operator)
	}

	var rhs string
	switch op {
	case "IS", "IS NOT":
		v := strings.ToUpper(strings.TrimSpace(c.Value.String()))
		switch v {
		case "":
			v = "NULL"
		case "NULL", "TRUE", "FALSE", "UNKNOWN":
		default:
			return "", errs.Newf(errs.ErrKindInvalidInput, "%s expects NULL, TRUE or FALSE, got %q", op, c.Value)
		}
		rhs = v
	case "IN":
		items := splitList(c.Value.String())
		if len(items) == 0 {
			return "", errs.Newf(errs.ErrKindInvalidInput, "IN on %s has an empty list", col)
		}
		vals := make([]string, len(items))
		for i, item := range items {
			vals[i] = r.value(item)
		}
		rhs = "(" + strings.Join(vals, ", ") + ")"
	default:
		rhs = r.value(c.Value.String())
	}
	return fmt.Sprintf("%s %s %s", r.ident(col), op, rhs), nil
}

// value inlines v as a literal, or binds it in parameterized mode.
func (r *renderer) value(v string) string {
	if r.params {
		return r.bind(argValue(v))
	}
	return literal(v)
}

func (r *renderer) bind(v any) string {
	r.args = append(r.args, v)
	if r.dialect == DialectMySQL {
		return "?"
	}
	return fmt.Sprintf("$%d", len(r.args))
}

func (r *renderer) identList(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, r.ident(n))
		}
	}
	return out
}

// plainIdent matches "col", "table.col" and "table.*".
var plainIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.([A-Za-z_][A-Za-z0-9_]*|\*))?$`)

// ident writes a name as typed for previews. In parameterized mode plain
// identifiers are quoted for the dialect; expressions such as COUNT(*)
// pass through untouched.
func (r *renderer) ident(name string) string {
	name = strings.TrimSpace(name)
	if !r.params || !plainIdent.MatchString(name) {
		return name
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if p != "*" {
			parts[i] = quoteIdent(p, r.dialect)
		}
	}
	return strings.Join(parts, ".")
}

func quoteIdent(name string, d Dialect) string {
	if d == DialectMySQL {
		return "`" + strings.ReplaceAll(name, "`", "``") + "`"
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// normalizeOp upper-cases op and collapses inner whitespace ("is  not").
func normalizeOp(op string) string {
	return strings.ToUpper(strings.Join(strings.Fields(op), " "))
}

// literal renders a typed value for preview text.
func literal(v string) string {
	t := strings.TrimSpace(v)
	if _, ok := parseNumber(t); ok {
		return t
	}
	switch strings.ToUpper(t) {
	case "NULL", "TRUE", "FALSE":
		return strings.ToUpper(t)
	}
	if isQuoted(t) {
		return t
	}
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

// argValue converts a typed value into a driver argument.
func argValue(v string) any {
	t := strings.TrimSpace(v)
	if n, err := strconv.ParseInt(t, 10, 64); err == nil {
		return n
	}
	if f, ok := parseNumber(t); ok {
		return f
	}
	switch strings.ToUpper(t) {
	case "TRUE":
		return true
	case "FALSE":
		return false
	}
	if isQuoted(t) {
		return strings.ReplaceAll(t[1:len(t)-1], "''", "'")
	}
	return v
}

var decimalNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)

// parseNumber accepts plain decimal notation that fits a finite float64.
// Words like Infinity or NaN and hex floats stay text.
func parseNumber(t string) (float64, bool) {
	if !decimalNumber.MatchString(t) {
		return 0, false
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func isQuoted(s string) bool {
	return len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\''
}

// splitList splits "a, b" or "(a, b)" into its trimmed items.
func splitList(v string) []string {
	v = strings.TrimSpace(v)
	if strings.HasPrefix(v, "(") && strings.HasSuffix(v, ")") {
		v = v[1 : len(v)-1]
	}
	var items []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
