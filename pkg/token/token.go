// Package token defines the lexical tokens of the pipeline query language.
//
// Core tokens are constants for switch performance; the set is fixed (the
// grammar has no dialect-specific surface, unlike the SQL side).
package token

import "fmt"

// Type identifies the kind of a lexical token.
type Type int32

const (
	// Special tokens
	EOF Type = iota
	ILLEGAL
	NEWLINE // significant: separates pipeline steps like '|'

	// Literals
	IDENT  // employees, math.abs
	NUMBER // 123, 45.67, 1e10
	STRING // 'hello' or "hello"
	DATE   // @2024-01-01

	// Operators
	PLUS    // +
	MINUS   // -
	STAR    // *
	SLASH   // /
	PERCENT // %
	EQ      // ==
	NE      // !=
	LT      // <
	GT      // >
	LE      // <=
	GE      // >=
	AND     // &&
	OR      // ||
	NOT     // !
	ASSIGN  // =
	ARROW   // ->
	PIPE    // |
	DOT     // .
	RANGE   // ..
	COLON   // :
	COMMA   // ,
	LPAREN  // (
	RPAREN  // )
	LBRACE  // {
	RBRACE  // }
	LBRACKET
	RBRACKET

	// Keywords
	FROM
	SELECT
	DERIVE
	FILTER
	AGGREGATE
	SORT
	TAKE
	JOIN
	GROUP
	APPEND
	LET
	TRUE
	FALSE
	NULL
)

var names = map[Type]string{
	EOF:     "EOF",
	ILLEGAL: "ILLEGAL",
	NEWLINE: "NEWLINE",

	IDENT:  "IDENT",
	NUMBER: "NUMBER",
	STRING: "STRING",
	DATE:   "DATE",

	PLUS:     "+",
	MINUS:    "-",
	STAR:     "*",
	SLASH:    "/",
	PERCENT:  "%",
	EQ:       "==",
	NE:       "!=",
	LT:       "<",
	GT:       ">",
	LE:       "<=",
	GE:       ">=",
	AND:      "&&",
	OR:       "||",
	NOT:      "!",
	ASSIGN:   "=",
	ARROW:    "->",
	PIPE:     "|",
	DOT:      ".",
	RANGE:    "..",
	COLON:    ":",
	COMMA:    ",",
	LPAREN:   "(",
	RPAREN:   ")",
	LBRACE:   "{",
	RBRACE:   "}",
	LBRACKET: "[",
	RBRACKET: "]",

	FROM:      "from",
	SELECT:    "select",
	DERIVE:    "derive",
	FILTER:    "filter",
	AGGREGATE: "aggregate",
	SORT:      "sort",
	TAKE:      "take",
	JOIN:      "join",
	GROUP:     "group",
	APPEND:    "append",
	LET:       "let",
	TRUE:      "true",
	FALSE:     "false",
	NULL:      "null",
}

// String returns a human-readable representation of the token type.
func (t Type) String() string {
	if name, ok := names[t]; ok {
		return name
	}
	return fmt.Sprintf("TOKEN(%d)", t)
}

var keywords = map[string]Type{
	"from":      FROM,
	"select":    SELECT,
	"derive":    DERIVE,
	"filter":    FILTER,
	"aggregate": AGGREGATE,
	"sort":      SORT,
	"take":      TAKE,
	"join":      JOIN,
	"group":     GROUP,
	"append":    APPEND,
	"let":       LET,
	"true":      TRUE,
	"false":     FALSE,
	"null":      NULL,
}

// LookupIdent returns the keyword token type for ident, or IDENT.
func LookupIdent(ident string) Type {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}

// IsKeyword returns true if the token type is a keyword.
func IsKeyword(t Type) bool {
	return t >= FROM && t <= NULL
}

// IsTransform returns true if the token type starts a pipeline transform.
func IsTransform(t Type) bool {
	return t >= FROM && t <= APPEND
}

// Token is a lexical token with position information.
type Token struct {
	Type    Type
	Literal string
	Pos     Position
}
