package parser

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapq/pkg/ast"
	"github.com/leapstack-labs/leapq/pkg/token"
)

// Expression parsing uses precedence climbing (Pratt parsing).
//
// Precedence levels, low to high:
//
//	PrecedenceNone       = 0
//	PrecedenceOr         = 1  (||)
//	PrecedenceAnd        = 2  (&&)
//	PrecedenceComparison = 3  (==, !=, <, >, <=, >=)
//	PrecedenceAddition   = 4  (+, -)
//	PrecedenceMultiply   = 5  (*, /, %)
//	PrecedenceUnary      = 6  (-, !)
//
// Binary operators are left-associative. Function application binds looser
// than any operator but its arguments are atoms: `average salary + 1`
// parses as `(average salary) + 1`.
const (
	PrecedenceNone = iota
	PrecedenceOr
	PrecedenceAnd
	PrecedenceComparison
	PrecedenceAddition
	PrecedenceMultiply
	PrecedenceUnary
)

// parseExpression parses a full expression.
func (p *Parser) parseExpression() ast.Expr {
	return p.parseBinary(PrecedenceOr)
}

func (p *Parser) parseBinary(minPrecedence int) ast.Expr {
	left := p.parsePrefix()
	if left == nil {
		return nil
	}

	for {
		prec := infixPrecedence(p.token().Type)
		if prec < minPrecedence {
			return left
		}
		op := p.token()
		p.nextToken()
		// Left-associative: right side binds one level tighter.
		right := p.parseBinary(prec + 1)
		if right == nil {
			return left
		}
		left = &ast.Binary{
			Op:    op.Literal,
			Left:  left,
			Right: right,
			Loc:   token.Span{Start: left.Span().Start, End: right.Span().End},
		}
	}
}

func infixPrecedence(t token.Type) int {
	switch t {
	case token.OR:
		return PrecedenceOr
	case token.AND:
		return PrecedenceAnd
	case token.EQ, token.NE, token.LT, token.GT, token.LE, token.GE:
		return PrecedenceComparison
	case token.PLUS, token.MINUS:
		return PrecedenceAddition
	case token.STAR, token.SLASH, token.PERCENT:
		return PrecedenceMultiply
	default:
		return PrecedenceNone
	}
}

func (p *Parser) parsePrefix() ast.Expr {
	switch p.token().Type {
	case token.MINUS:
		start := p.token().Pos
		p.nextToken()
		expr := p.parseBinary(PrecedenceUnary)
		return &ast.Unary{Op: "-", Expr: expr, Loc: p.spanFrom(start)}
	case token.NOT:
		start := p.token().Pos
		p.nextToken()
		expr := p.parseBinary(PrecedenceUnary)
		return &ast.Unary{Op: "!", Expr: expr, Loc: p.spanFrom(start)}
	default:
		return p.parsePrimaryOrCall()
	}
}

// parsePrimaryOrCall parses a primary expression; a bare identifier followed
// by more atoms is function application (`average salary`, `round 2 price`).
func (p *Parser) parsePrimaryOrCall() ast.Expr {
	primary := p.parsePrimary()
	if primary == nil {
		return nil
	}

	id, ok := primary.(*ast.Ident)
	if !ok || !p.startsAtom() {
		return primary
	}

	call := &ast.Call{Func: id}
	for p.startsAtom() || p.isNamedArg() {
		if p.isNamedArg() {
			name := p.token().Literal
			p.nextToken() // name
			p.nextToken() // ':'
			call.Named = append(call.Named, ast.NamedArg{Name: name, Val: p.parseAtom()})
			continue
		}
		call.Args = append(call.Args, p.parseAtom())
	}
	call.Loc = p.spanFrom(id.Loc.Start)
	return call
}

// startsAtom reports whether the current token can begin a call argument.
func (p *Parser) startsAtom() bool {
	switch p.token().Type {
	case token.IDENT, token.NUMBER, token.STRING, token.DATE,
		token.TRUE, token.FALSE, token.NULL, token.LPAREN, token.LBRACE, token.LBRACKET:
		return true
	}
	return false
}

func (p *Parser) isNamedArg() bool {
	return p.check(token.IDENT) && p.peekAt(1).Type == token.COLON
}

// parseAtom parses a single call argument: a primary, optionally negated.
func (p *Parser) parseAtom() ast.Expr {
	if p.check(token.MINUS) {
		start := p.token().Pos
		p.nextToken()
		return &ast.Unary{Op: "-", Expr: p.parsePrimary(), Loc: p.spanFrom(start)}
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() ast.Expr {
	tok := p.token()
	start := tok.Pos

	switch tok.Type {
	case token.NUMBER:
		p.nextToken()
		kind := ast.LitInt
		if strings.ContainsAny(tok.Literal, ".eE") {
			kind = ast.LitFloat
		}
		return &ast.Literal{Kind: kind, Value: tok.Literal, Loc: p.spanFrom(start)}

	case token.STRING:
		p.nextToken()
		return &ast.Literal{Kind: ast.LitString, Value: tok.Literal, Loc: p.spanFrom(start)}

	case token.DATE:
		p.nextToken()
		return &ast.Literal{Kind: ast.LitDate, Value: tok.Literal, Loc: p.spanFrom(start)}

	case token.TRUE, token.FALSE:
		p.nextToken()
		return &ast.Literal{Kind: ast.LitBool, Value: tok.Literal, Loc: p.spanFrom(start)}

	case token.NULL:
		p.nextToken()
		return &ast.Literal{Kind: ast.LitNull, Value: "null", Loc: p.spanFrom(start)}

	case token.IDENT:
		return p.parseIdent()

	case token.LPAREN:
		p.nextToken()
		expr := p.parseExpression()
		p.expect(token.RPAREN)
		return expr

	case token.LBRACE:
		return p.parseTupleExpr()

	case token.LBRACKET:
		return p.parseArray()

	default:
		p.addError(ErrUnexpectedToken, fmt.Sprintf("unexpected token %s in expression", tok.Type))
		return nil
	}
}

func (p *Parser) parseTupleExpr() ast.Expr {
	start := p.token().Pos
	t := &ast.Tuple{Items: p.parseTupleItems()}
	t.Loc = p.spanFrom(start)
	return t
}
