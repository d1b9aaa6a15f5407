package formula

import "strings"

// RenameReference rewrites every [from] column reference in src to [to].
// Text inside string literals is left alone. Formulas that do not lex
// are rewritten up to the first bad token.
func RenameReference(src, from, to string) string {
	runes := []rune(src)
	var sb strings.Builder
	last := 0
	for _, tok := range Tokenize(src) {
		if tok.Type != TokenColumn || tok.Value != from {
			continue
		}
		end := tok.Pos
		for end < len(runes) && runes[end] != ']' {
			end++
		}
		sb.WriteString(string(runes[last:tok.Pos]))
		sb.WriteString("[" + to + "]")
		last = end + 1
	}
	if last == 0 {
		return src
	}
	if last < len(runes) {
		sb.WriteString(string(runes[last:]))
	}
	return sb.String()
}
