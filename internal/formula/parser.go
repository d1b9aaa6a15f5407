package formula

import (
	"strconv"
	"strings"

	"github.com/koustreak/datamodeler/internal/errs"
)

// MaxDepth bounds expression nesting so hostile formulas cannot exhaust
// the stack.
const MaxDepth = 64

// Parser is a recursive-descent parser over the formula grammar:
//
//	expr       = additive { cmpOp additive }
//	additive   = term { ("+" | "-" | "&") term }
//	term       = unary { ("*" | "/") unary }
//	unary      = ("-" | "+") unary | primary
//	primary    = number | string | TRUE | FALSE | column | call | "(" expr ")"
//	call       = IDENT "(" [ expr { "," expr } ] ")"
type Parser struct {
	tokens []Token
	pos    int
	depth  int
}

// Parse parses a formula into an AST.
func Parse(formula string) (Node, error) {
	p := &Parser{tokens: Tokenize(formula)}
	if last := p.tokens[len(p.tokens)-1]; last.Type == TokenIllegal {
		return nil, syntaxError(last.Pos, last.Value)
	}

	node, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.current(); tok.Type != TokenEOF {
		return nil, syntaxError(tok.Pos, "unexpected "+describe(tok))
	}
	return node, nil
}

func (p *Parser) current() Token {
	return p.tokens[p.pos]
}

func (p *Parser) advance() Token {
	tok := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *Parser) enter() error {
	p.depth++
	if p.depth > MaxDepth {
		return syntaxError(p.current().Pos, "formula is nested too deeply")
	}
	return nil
}

func (p *Parser) exit() { p.depth-- }

func (p *Parser) parseExpr() (Node, error) {
	if err := p.enter(); err != nil {
		return nil, err
	}
	defer p.exit()

	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for isComparison(p.current().Type) {
		op := p.advance().Type
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseAdditive() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		switch p.current().Type {
		case TokenPlus, TokenMinus, TokenAmp:
			op := p.advance().Type
			right, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			left = &BinaryOp{Op: op, Left: left, Right: right}
		default:
			return left, nil
		}
	}
}

func (p *Parser) parseTerm() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.current().Type {
		case TokenStar, TokenSlash:
			op := p.advance().Type
			right, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			left = &BinaryOp{Op: op, Left: left, Right: right}
		default:
			return left, nil
		}
	}
}

func (p *Parser) parseUnary() (Node, error) {
	switch p.current().Type {
	case TokenMinus, TokenPlus:
		if err := p.enter(); err != nil {
			return nil, err
		}
		defer p.exit()
		op := p.advance().Type
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryOp{Op: op, Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (Node, error) {
	tok := p.current()
	switch tok.Type {
	case TokenNumber:
		p.advance()
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, syntaxError(tok.Pos, "invalid number "+strconv.Quote(tok.Value))
		}
		return &Literal{Value: Number(f)}, nil

	case TokenString:
		p.advance()
		return &Literal{Value: Text(tok.Value)}, nil

	case TokenColumn:
		p.advance()
		if tok.Value == "" {
			return nil, syntaxError(tok.Pos, "empty column reference")
		}
		return &ColumnRef{Name: tok.Value}, nil

	case TokenIdent:
		p.advance()
		name := strings.ToUpper(tok.Value)
		if p.current().Type == TokenLParen {
			return p.parseCall(tok, name)
		}
		switch name {
		case "TRUE":
			return &Literal{Value: Bool(true)}, nil
		case "FALSE":
			return &Literal{Value: Bool(false)}, nil
		}
		return nil, syntaxError(tok.Pos, "unknown identifier "+strconv.Quote(tok.Value)+" (column names go in brackets)")

	case TokenLParen:
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.current().Type != TokenRParen {
			return nil, syntaxError(p.current().Pos, "expected ) but found "+describe(p.current()))
		}
		p.advance()
		return inner, nil
	}

	return nil, syntaxError(tok.Pos, "unexpected "+describe(tok))
}

func (p *Parser) parseCall(tok Token, name string) (Node, error) {
	fn, ok := functions[name]
	if !ok {
		return nil, syntaxError(tok.Pos, "unknown function "+name)
	}
	p.advance() // (

	call := &FunctionCall{Name: name}
	if p.current().Type != TokenRParen {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			call.Args = append(call.Args, arg)
			if p.current().Type != TokenComma {
				break
			}
			p.advance()
		}
	}
	if p.current().Type != TokenRParen {
		return nil, syntaxError(p.current().Pos, "expected ) after arguments to "+name+" but found "+describe(p.current()))
	}
	p.advance()

	if err := fn.checkArity(len(call.Args)); err != nil {
		return nil, syntaxError(tok.Pos, name+": "+err.Error())
	}
	return call, nil
}

func isComparison(t TokenType) bool {
	switch t {
	case TokenEqual, TokenNotEqual, TokenLess, TokenLessEqual, TokenGreater, TokenGreaterEqual:
		return true
	}
	return false
}

func describe(tok Token) string {
	switch tok.Type {
	case TokenEOF:
		return "end of formula"
	case TokenNumber, TokenIdent:
		return tok.Type.String() + " " + tok.Value
	case TokenString:
		return "string " + strconv.Quote(tok.Value)
	case TokenColumn:
		return "[" + tok.Value + "]"
	default:
		return strconv.Quote(tok.Value)
	}
}

func syntaxError(pos int, msg string) error {
	return errs.Newf(errs.ErrKindSyntax, "at position %d: %s", pos, msg)
}
