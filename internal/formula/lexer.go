package formula

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// TokenType identifies a lexical token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIllegal
	TokenNumber
	TokenString
	TokenIdent
	TokenColumn // [Column Name]
	TokenLParen
	TokenRParen
	TokenComma
	TokenPlus
	TokenMinus
	TokenStar
	TokenSlash
	TokenAmp
	TokenEqual
	TokenNotEqual
	TokenLess
	TokenLessEqual
	TokenGreater
	TokenGreaterEqual
)

var tokenNames = map[TokenType]string{
	TokenEOF:          "end of formula",
	TokenIllegal:      "illegal",
	TokenNumber:       "number",
	TokenString:       "string",
	TokenIdent:        "identifier",
	TokenColumn:       "column reference",
	TokenLParen:       "(",
	TokenRParen:       ")",
	TokenComma:        ",",
	TokenPlus:         "+",
	TokenMinus:        "-",
	TokenStar:         "*",
	TokenSlash:        "/",
	TokenAmp:          "&",
	TokenEqual:        "=",
	TokenNotEqual:     "!=",
	TokenLess:         "<",
	TokenLessEqual:    "<=",
	TokenGreater:      ">",
	TokenGreaterEqual: ">=",
}

func (t TokenType) String() string {
	if s, ok := tokenNames[t]; ok {
		return s
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// Token is a lexical token with its rune offset in the formula.
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

// Lexer tokenizes formula strings
type Lexer struct {
	input []rune
	pos   int // index of ch
	ch    rune
}

// NewLexer creates a new lexer
func NewLexer(input string) *Lexer {
	l := &Lexer{input: []rune(input), pos: -1}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	l.pos++
	if l.pos >= len(l.input) {
		l.ch = 0
		return
	}
	l.ch = l.input[l.pos]
}

func (l *Lexer) peekChar() rune {
	if l.pos+1 >= len(l.input) {
		return 0
	}
	return l.input[l.pos+1]
}

func (l *Lexer) skipWhitespace() {
	for unicode.IsSpace(l.ch) {
		l.readChar()
	}
}

// readString reads a quoted string. A doubled quote inside the literal
// stands for one quote character, as in spreadsheet formulas.
func (l *Lexer) readString(quote rune) (string, bool) {
	var sb strings.Builder
	l.readChar() // opening quote
	for {
		switch {
		case l.ch == 0 && l.pos >= len(l.input):
			return sb.String(), false
		case l.ch == quote && l.peekChar() == quote:
			sb.WriteRune(quote)
			l.readChar()
			l.readChar()
		case l.ch == quote:
			l.readChar()
			return sb.String(), true
		default:
			sb.WriteRune(l.ch)
			l.readChar()
		}
	}
}

func (l *Lexer) readColumn() (string, bool) {
	var sb strings.Builder
	l.readChar() // [
	for l.ch != ']' {
		if l.pos >= len(l.input) {
			return sb.String(), false
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	l.readChar() // ]
	return strings.TrimSpace(sb.String()), true
}

func (l *Lexer) readNumber() string {
	start := l.pos
	for unicode.IsDigit(l.ch) || l.ch == '.' {
		l.readChar()
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if unicode.IsDigit(next) || next == '+' || next == '-' {
			l.readChar()
			if l.ch == '+' || l.ch == '-' {
				l.readChar()
			}
			for unicode.IsDigit(l.ch) {
				l.readChar()
			}
		}
	}
	return string(l.input[start:l.pos])
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for unicode.IsLetter(l.ch) || unicode.IsDigit(l.ch) || l.ch == '_' {
		l.readChar()
	}
	return string(l.input[start:l.pos])
}

// NextToken returns the next token
func (l *Lexer) NextToken() Token {
	l.skipWhitespace()

	pos := l.pos
	single := func(t TokenType) Token {
		tok := Token{Type: t, Value: string(l.ch), Pos: pos}
		l.readChar()
		return tok
	}
	illegal := func() Token {
		tok := Token{Type: TokenIllegal, Value: "unexpected character " + strconv.QuoteRune(l.ch), Pos: pos}
		l.readChar()
		return tok
	}
	double := func(t TokenType) Token {
		tok := Token{Type: t, Value: string(l.input[pos : pos+2]), Pos: pos}
		l.readChar()
		l.readChar()
		return tok
	}

	switch {
	case l.pos >= len(l.input):
		return Token{Type: TokenEOF, Pos: pos}
	case l.ch == '(':
		return single(TokenLParen)
	case l.ch == ')':
		return single(TokenRParen)
	case l.ch == ',':
		return single(TokenComma)
	case l.ch == '+':
		return single(TokenPlus)
	case l.ch == '-':
		return single(TokenMinus)
	case l.ch == '*':
		return single(TokenStar)
	case l.ch == '/':
		return single(TokenSlash)
	case l.ch == '&':
		return single(TokenAmp)
	case l.ch == '=':
		if l.peekChar() == '=' {
			return double(TokenEqual)
		}
		return single(TokenEqual)
	case l.ch == '!':
		if l.peekChar() == '=' {
			return double(TokenNotEqual)
		}
		return illegal()
	case l.ch == '<':
		switch l.peekChar() {
		case '=':
			return double(TokenLessEqual)
		case '>':
			return double(TokenNotEqual)
		}
		return single(TokenLess)
	case l.ch == '>':
		if l.peekChar() == '=' {
			return double(TokenGreaterEqual)
		}
		return single(TokenGreater)
	case l.ch == '"' || l.ch == '\'':
		s, ok := l.readString(l.ch)
		if !ok {
			return Token{Type: TokenIllegal, Value: "unterminated string", Pos: pos}
		}
		return Token{Type: TokenString, Value: s, Pos: pos}
	case l.ch == '[':
		name, ok := l.readColumn()
		if !ok {
			return Token{Type: TokenIllegal, Value: "unterminated column reference", Pos: pos}
		}
		return Token{Type: TokenColumn, Value: name, Pos: pos}
	case unicode.IsDigit(l.ch) || (l.ch == '.' && unicode.IsDigit(l.peekChar())):
		return Token{Type: TokenNumber, Value: l.readNumber(), Pos: pos}
	case unicode.IsLetter(l.ch) || l.ch == '_':
		return Token{Type: TokenIdent, Value: l.readIdentifier(), Pos: pos}
	default:
		return illegal()
	}
}

// Tokenize returns every token up to and including EOF.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var toks []Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == TokenEOF || tok.Type == TokenIllegal {
			return toks
		}
	}
}
