// Package parser turns pipeline-language source text into a PL syntax tree.
//
// # Grammar Overview
//
//	module    → (NEWLINE | decl | pipeline)*        (at most one main pipeline)
//	decl      → 'let' IDENT '=' (IDENT+ '->' expr | '(' pipeline ')' | expr)
//	pipeline  → step (('|' | NEWLINE) step)*
//	step      → from | select | derive | filter | aggregate
//	          | sort | take | join | group | append
//	from      → 'from' ident | 'from' array
//	select    → 'select' tuple         derive → 'derive' tuple
//	aggregate → 'aggregate' tuple      filter → 'filter' expr
//	sort      → 'sort' (sortItem | '{' sortItem (',' sortItem)* '}')
//	take      → 'take' (expr | expr? '..' expr?)
//	join      → 'join' ('side' ':' IDENT)? ident '(' expr ')'
//	group     → 'group' '{' expr (',' expr)* '}' '(' step (sep step)* ')'
//	append    → 'append' '(' pipeline ')'
//	tuple     → '{' (IDENT '=')? expr (',' (IDENT '=')? expr)* '}'
//
// Expression precedence is documented in parser_expr.go.
package parser

import (
	"fmt"

	"github.com/leapstack-labs/leapq/pkg/ast"
	"github.com/leapstack-labs/leapq/pkg/token"
)

// Parser parses pipeline-language source into an AST.
type Parser struct {
	toks   []token.Token
	i      int
	errors []*Error
}

// Parse parses source text and returns the module, or the first error.
func Parse(src string) (*ast.Module, error) {
	p, err := newParser(src)
	if err != nil {
		return nil, err
	}
	m := p.parseModule()
	if len(p.errors) > 0 {
		return nil, p.errors[0]
	}
	return m, nil
}

func newParser(src string) (*Parser, error) {
	l := NewLexer(src)
	var toks []token.Token
	for {
		tok := l.NextToken()
		toks = append(toks, tok)
		if tok.Type == token.EOF || tok.Type == token.ILLEGAL {
			break
		}
	}
	if lexErr := l.Err(); lexErr != nil {
		return nil, lexErr
	}
	return &Parser{toks: toks}, nil
}

// ---------- Token helpers ----------

func (p *Parser) token() token.Token {
	return p.toks[p.i]
}

func (p *Parser) peekAt(n int) token.Token {
	if p.i+n >= len(p.toks) {
		return p.toks[len(p.toks)-1] // EOF
	}
	return p.toks[p.i+n]
}

func (p *Parser) nextToken() {
	if p.i < len(p.toks)-1 {
		p.i++
	}
}

func (p *Parser) check(t token.Type) bool {
	return p.token().Type == t
}

func (p *Parser) match(t token.Type) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	return false
}

func (p *Parser) expect(t token.Type) bool {
	if p.check(t) {
		p.nextToken()
		return true
	}
	p.addError(ErrUnexpectedToken, fmt.Sprintf("unexpected token %s, expected %s", p.token().Type, t))
	return false
}

func (p *Parser) addError(kind ErrorKind, msg string) {
	p.errors = append(p.errors, &Error{Kind: kind, Pos: p.token().Pos, Message: msg})
}

func (p *Parser) failed() bool {
	return len(p.errors) > 0
}

// endOf returns the position just past a token.
func endOf(t token.Token) token.Position {
	return token.Position{
		Line:   t.Pos.Line,
		Column: t.Pos.Column + len(t.Literal),
		Offset: t.Pos.Offset + len(t.Literal),
	}
}

// spanFrom builds a span from a start position to the end of the previously
// consumed token.
func (p *Parser) spanFrom(start token.Position) token.Span {
	prev := p.toks[0]
	if p.i > 0 {
		prev = p.toks[p.i-1]
	}
	return token.Span{Start: start, End: endOf(prev)}
}

func (p *Parser) skipNewlines() {
	for p.check(token.NEWLINE) {
		p.nextToken()
	}
}

// ---------- Module ----------

func (p *Parser) parseModule() *ast.Module {
	m := &ast.Module{}
	p.skipNewlines()
	for !p.check(token.EOF) && !p.failed() {
		switch {
		case p.check(token.LET):
			m.Decls = append(m.Decls, p.parseDecl())
		case p.check(token.FROM):
			if m.Main != nil {
				p.addError(ErrUnexpectedToken, "multiple main pipelines; use 'let' to name additional pipelines")
				return m
			}
			m.Main = p.parsePipeline()
		default:
			p.addError(ErrExpectedTransform, fmt.Sprintf("unexpected token %s, expected 'from' or 'let'", p.token().Type))
			return m
		}
		p.skipNewlines()
	}
	return m
}

func (p *Parser) parseDecl() *ast.Decl {
	start := p.token().Pos
	p.expect(token.LET)

	name := p.token().Literal
	if !p.expect(token.IDENT) {
		return &ast.Decl{Name: name}
	}
	p.expect(token.ASSIGN)

	// Function declaration: one or more parameter names then '->'.
	if p.check(token.IDENT) {
		j := 0
		for p.peekAt(j).Type == token.IDENT {
			j++
		}
		if j > 0 && p.peekAt(j).Type == token.ARROW {
			var params []string
			for p.check(token.IDENT) {
				params = append(params, p.token().Literal)
				p.nextToken()
			}
			p.expect(token.ARROW)
			body := p.parseExpression()
			return &ast.Decl{Name: name, Params: params, Value: body, Loc: p.spanFrom(start)}
		}
	}

	// Parenthesized pipeline: let active = (from users | filter active)
	if p.check(token.LPAREN) && token.IsTransform(p.peekAt(1).Type) {
		p.nextToken()
		pl := p.parsePipeline()
		p.expect(token.RPAREN)
		return &ast.Decl{Name: name, Value: pl, Loc: p.spanFrom(start)}
	}

	value := p.parseExpression()
	return &ast.Decl{Name: name, Value: value, Loc: p.spanFrom(start)}
}

// ---------- Pipeline and transforms ----------

func (p *Parser) parsePipeline() *ast.Pipeline {
	start := p.token().Pos
	pl := &ast.Pipeline{}

	if !p.check(token.FROM) {
		p.addError(ErrExpectedTransform, "pipeline must start with 'from'")
		return pl
	}
	pl.Steps = append(pl.Steps, p.parseStep())

	for !p.failed() {
		switch {
		case p.check(token.PIPE):
			p.nextToken()
			p.skipNewlines()
			if !token.IsTransform(p.token().Type) {
				p.addError(ErrExpectedTransform, fmt.Sprintf("expected a transform after '|', got %s", p.token().Type))
				return pl
			}
		case p.check(token.NEWLINE):
			// A newline continues the pipeline only when the next line
			// starts with a non-from transform.
			next := p.peekAt(1).Type
			if !token.IsTransform(next) || next == token.FROM {
				pl.Loc = p.spanFrom(start)
				return pl
			}
			p.nextToken()
		default:
			pl.Loc = p.spanFrom(start)
			return pl
		}
		pl.Steps = append(pl.Steps, p.parseStep())
	}
	pl.Loc = p.spanFrom(start)
	return pl
}

// parseInnerSteps parses the body of a group sub-pipeline: transforms
// without a leading 'from', terminated by ')'.
func (p *Parser) parseInnerSteps() *ast.Pipeline {
	start := p.token().Pos
	pl := &ast.Pipeline{}
	for !p.failed() {
		p.skipNewlines()
		if !token.IsTransform(p.token().Type) {
			p.addError(ErrExpectedTransform, fmt.Sprintf("expected a transform, got %s", p.token().Type))
			return pl
		}
		pl.Steps = append(pl.Steps, p.parseStep())
		p.skipNewlines()
		if p.check(token.PIPE) {
			p.nextToken()
			continue
		}
		break
	}
	pl.Loc = p.spanFrom(start)
	return pl
}

func (p *Parser) parseStep() ast.Expr {
	start := p.token().Pos
	switch p.token().Type {
	case token.FROM:
		p.nextToken()
		if p.check(token.LBRACKET) {
			rows := p.parseArray()
			return &ast.From{Rows: rows, Loc: p.spanFrom(start)}
		}
		table := p.parseIdent()
		return &ast.From{Table: table, Loc: p.spanFrom(start)}

	case token.SELECT:
		p.nextToken()
		return &ast.Select{Items: p.parseTupleItems(), Loc: p.spanFrom(start)}

	case token.DERIVE:
		p.nextToken()
		return &ast.Derive{Items: p.parseTupleItems(), Loc: p.spanFrom(start)}

	case token.AGGREGATE:
		p.nextToken()
		return &ast.Aggregate{Items: p.parseTupleItems(), Loc: p.spanFrom(start)}

	case token.FILTER:
		p.nextToken()
		return &ast.Filter{Cond: p.parseExpression(), Loc: p.spanFrom(start)}

	case token.SORT:
		p.nextToken()
		return p.parseSort(start)

	case token.TAKE:
		p.nextToken()
		return &ast.Take{Expr: p.parseTakeArg(), Loc: p.spanFrom(start)}

	case token.JOIN:
		p.nextToken()
		return p.parseJoin(start)

	case token.GROUP:
		p.nextToken()
		return p.parseGroup(start)

	case token.APPEND:
		p.nextToken()
		p.expect(token.LPAREN)
		body := p.parsePipeline()
		p.expect(token.RPAREN)
		return &ast.Append{Body: body, Loc: p.spanFrom(start)}

	default:
		p.addError(ErrExpectedTransform, fmt.Sprintf("unexpected token %s, expected a transform", p.token().Type))
		return &ast.Pipeline{}
	}
}

func (p *Parser) parseSort(start token.Position) ast.Expr {
	s := &ast.Sort{}
	if p.match(token.LBRACE) {
		for {
			s.Items = append(s.Items, p.parseSortItem())
			if !p.match(token.COMMA) {
				break
			}
		}
		p.expect(token.RBRACE)
	} else {
		s.Items = append(s.Items, p.parseSortItem())
	}
	s.Loc = p.spanFrom(start)
	return s
}

func (p *Parser) parseSortItem() ast.SortItem {
	desc := false
	if p.check(token.MINUS) {
		desc = true
		p.nextToken()
	} else if p.check(token.PLUS) {
		p.nextToken()
	}
	return ast.SortItem{Expr: p.parseIdent(), Desc: desc}
}

func (p *Parser) parseTakeArg() ast.Expr {
	start := p.token().Pos
	var low ast.Expr
	if !p.check(token.RANGE) {
		low = p.parseExpression()
	}
	if p.match(token.RANGE) {
		var high ast.Expr
		if !p.check(token.NEWLINE) && !p.check(token.PIPE) && !p.check(token.EOF) && !p.check(token.RPAREN) {
			high = p.parseExpression()
		}
		return &ast.Range{Low: low, High: high, Loc: p.spanFrom(start)}
	}
	return low
}

func (p *Parser) parseJoin(start token.Position) ast.Expr {
	j := &ast.Join{}
	// Optional side:left named argument.
	if p.check(token.IDENT) && p.token().Literal == "side" && p.peekAt(1).Type == token.COLON {
		p.nextToken()
		p.nextToken()
		j.Side = p.token().Literal
		if !p.expect(token.IDENT) {
			return j
		}
	}
	j.Table = p.parseIdent()
	p.expect(token.LPAREN)
	j.Cond = p.parseExpression()
	p.expect(token.RPAREN)
	j.Loc = p.spanFrom(start)
	return j
}

func (p *Parser) parseGroup(start token.Position) ast.Expr {
	g := &ast.Group{}
	if p.match(token.LBRACE) {
		for {
			g.Keys = append(g.Keys, p.parseIdent())
			if !p.match(token.COMMA) {
				break
			}
		}
		p.expect(token.RBRACE)
	} else {
		g.Keys = append(g.Keys, p.parseIdent())
	}
	p.expect(token.LPAREN)
	g.Body = p.parseInnerSteps()
	p.expect(token.RPAREN)
	g.Loc = p.spanFrom(start)
	return g
}

// parseTupleItems parses a braced tuple: {a, b = expr, ...}.
func (p *Parser) parseTupleItems() []ast.TupleItem {
	var items []ast.TupleItem
	if !p.expect(token.LBRACE) {
		return items
	}
	if p.match(token.RBRACE) {
		return items
	}
	for {
		items = append(items, p.parseTupleItem())
		if p.failed() {
			return items
		}
		if !p.match(token.COMMA) {
			break
		}
		// Trailing comma before the closing brace is allowed.
		if p.check(token.RBRACE) {
			break
		}
	}
	p.expect(token.RBRACE)
	return items
}

func (p *Parser) parseTupleItem() ast.TupleItem {
	if p.check(token.IDENT) && p.peekAt(1).Type == token.ASSIGN {
		name := p.token().Literal
		p.nextToken()
		p.nextToken()
		return ast.TupleItem{Name: name, Expr: p.parseExpression()}
	}
	return ast.TupleItem{Expr: p.parseExpression()}
}

func (p *Parser) parseIdent() *ast.Ident {
	start := p.token().Pos
	id := &ast.Ident{}
	if !p.check(token.IDENT) {
		p.addError(ErrUnexpectedToken, fmt.Sprintf("unexpected token %s, expected an identifier", p.token().Type))
		return id
	}
	id.Parts = append(id.Parts, p.token().Literal)
	p.nextToken()
	for p.check(token.DOT) && p.peekAt(1).Type == token.IDENT {
		p.nextToken()
		id.Parts = append(id.Parts, p.token().Literal)
		p.nextToken()
	}
	id.Loc = p.spanFrom(start)
	return id
}

func (p *Parser) parseArray() *ast.Array {
	start := p.token().Pos
	arr := &ast.Array{}
	p.expect(token.LBRACKET)
	if p.match(token.RBRACKET) {
		arr.Loc = p.spanFrom(start)
		return arr
	}
	for {
		arr.Items = append(arr.Items, p.parseExpression())
		if p.failed() {
			return arr
		}
		if !p.match(token.COMMA) {
			break
		}
		if p.check(token.RBRACKET) {
			break
		}
	}
	p.expect(token.RBRACKET)
	arr.Loc = p.spanFrom(start)
	return arr
}
