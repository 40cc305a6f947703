// Package ast defines the pipeline-language (PL) syntax tree.
//
// Nodes are immutable after parsing. Transform steps are themselves
// expressions: a pipeline is an ordered list of expressions where each step
// consumes the frame produced by the previous one.
package ast

import "github.com/leapstack-labs/leapq/pkg/token"

// Expr is an expression node.
type Expr interface {
	isExpr()
	Span() token.Span
}

// LiteralKind discriminates literal values.
type LiteralKind string

const (
	LitInt    LiteralKind = "int"
	LitFloat  LiteralKind = "float"
	LitString LiteralKind = "string"
	LitBool   LiteralKind = "bool"
	LitNull   LiteralKind = "null"
	LitDate   LiteralKind = "date"
)

// Literal is a scalar literal. Value holds the source text of the literal
// (unquoted for strings) so round-tripping never loses precision.
type Literal struct {
	Kind  LiteralKind `json:"kind"`
	Value string      `json:"value"`
	Loc   token.Span  `json:"span"`
}

// Ident is a possibly dotted identifier (employees, e.salary, math.abs).
type Ident struct {
	Parts []string   `json:"parts"`
	Loc   token.Span `json:"span"`
}

// Name returns the dotted form of the identifier.
func (i *Ident) Name() string {
	out := ""
	for n, p := range i.Parts {
		if n > 0 {
			out += "."
		}
		out += p
	}
	return out
}

// Call is a function application: `average salary`, `round 2 price`.
type Call struct {
	Func  *Ident     `json:"func"`
	Args  []Expr     `json:"args"`
	Named []NamedArg `json:"named,omitempty"`
	Loc   token.Span `json:"span"`
}

// NamedArg is a `name:value` argument (e.g. `side:left`).
type NamedArg struct {
	Name string `json:"name"`
	Val  Expr   `json:"value"`
}

// Binary is a binary operator expression.
type Binary struct {
	Op    string     `json:"op"`
	Left  Expr       `json:"left"`
	Right Expr       `json:"right"`
	Loc   token.Span `json:"span"`
}

// Unary is a unary operator expression (-x, !x).
type Unary struct {
	Op   string     `json:"op"`
	Expr Expr       `json:"expr"`
	Loc  token.Span `json:"span"`
}

// Tuple is a record construction: `{name, total = a + b}`.
type Tuple struct {
	Items []TupleItem `json:"items"`
	Loc   token.Span  `json:"span"`
}

// TupleItem is one field of a tuple; Name is empty for bare expressions.
type TupleItem struct {
	Name string `json:"name,omitempty"`
	Expr Expr   `json:"expr"`
}

// Array is an ordered literal list, used for inline relations:
// `from [{a = 1}, {a = 2}]`.
type Array struct {
	Items []Expr     `json:"items"`
	Loc   token.Span `json:"span"`
}

// Range is `low..high`; either bound may be nil.
type Range struct {
	Low  Expr       `json:"low,omitempty"`
	High Expr       `json:"high,omitempty"`
	Loc  token.Span `json:"span"`
}

// Pipeline is an ordered sequence of transform steps.
type Pipeline struct {
	Steps []Expr     `json:"steps"`
	Loc   token.Span `json:"span"`
}

// Transform steps. Each is an expression so pipelines compose uniformly.

// From names the source relation of a pipeline. Exactly one of Table or
// Rows is set; Rows holds an inline relation.
type From struct {
	Table *Ident     `json:"table,omitempty"`
	Rows  *Array     `json:"rows,omitempty"`
	Loc   token.Span `json:"span"`
}

// Select replaces the frame with the listed columns.
type Select struct {
	Items []TupleItem `json:"items"`
	Loc   token.Span  `json:"span"`
}

// Derive appends computed columns to the frame.
type Derive struct {
	Items []TupleItem `json:"items"`
	Loc   token.Span  `json:"span"`
}

// Filter keeps rows matching the condition.
type Filter struct {
	Cond Expr       `json:"cond"`
	Loc  token.Span `json:"span"`
}

// Aggregate reduces the frame to computed aggregates (plus any enclosing
// group keys).
type Aggregate struct {
	Items []TupleItem `json:"items"`
	Loc   token.Span  `json:"span"`
}

// SortItem is one sort key; Desc is set by a leading '-'.
type SortItem struct {
	Expr Expr `json:"expr"`
	Desc bool `json:"desc,omitempty"`
}

// Sort orders rows by the given keys.
type Sort struct {
	Items []SortItem `json:"items"`
	Loc   token.Span `json:"span"`
}

// Take limits rows: a literal count or a `start..end` range.
type Take struct {
	Expr Expr       `json:"expr"`
	Loc  token.Span `json:"span"`
}

// Join joins the current frame with another relation.
type Join struct {
	Side  string     `json:"side,omitempty"` // inner (default), left, right, full
	Table *Ident     `json:"table"`
	Cond  Expr       `json:"cond"`
	Loc   token.Span `json:"span"`
}

// Group applies a sub-pipeline per group of the given keys.
type Group struct {
	Keys []Expr     `json:"keys"`
	Body *Pipeline  `json:"body"`
	Loc  token.Span `json:"span"`
}

// Append unions the rows of another pipeline onto the current frame.
type Append struct {
	Body *Pipeline  `json:"body"`
	Loc  token.Span `json:"span"`
}

// Decl binds a name to an expression or pipeline. Params is non-empty for
// function declarations (`let f = a b -> a + b`).
type Decl struct {
	Name   string     `json:"name"`
	Params []string   `json:"params,omitempty"`
	Value  Expr       `json:"value"`
	Loc    token.Span `json:"span"`
}

// Module is one compilation unit: declarations plus the main pipeline.
// Main is nil for empty source.
type Module struct {
	Decls []*Decl   `json:"decls,omitempty"`
	Main  *Pipeline `json:"main,omitempty"`
}

func (*Literal) isExpr()   {}
func (*Ident) isExpr()     {}
func (*Call) isExpr()      {}
func (*Binary) isExpr()    {}
func (*Unary) isExpr()     {}
func (*Tuple) isExpr()     {}
func (*Array) isExpr()     {}
func (*Range) isExpr()     {}
func (*Pipeline) isExpr()  {}
func (*From) isExpr()      {}
func (*Select) isExpr()    {}
func (*Derive) isExpr()    {}
func (*Filter) isExpr()    {}
func (*Aggregate) isExpr() {}
func (*Sort) isExpr()      {}
func (*Take) isExpr()      {}
func (*Join) isExpr()      {}
func (*Group) isExpr()     {}
func (*Append) isExpr()    {}

func (e *Literal) Span() token.Span   { return e.Loc }
func (e *Ident) Span() token.Span     { return e.Loc }
func (e *Call) Span() token.Span      { return e.Loc }
func (e *Binary) Span() token.Span    { return e.Loc }
func (e *Unary) Span() token.Span     { return e.Loc }
func (e *Tuple) Span() token.Span     { return e.Loc }
func (e *Array) Span() token.Span     { return e.Loc }
func (e *Range) Span() token.Span     { return e.Loc }
func (e *Pipeline) Span() token.Span  { return e.Loc }
func (e *From) Span() token.Span      { return e.Loc }
func (e *Select) Span() token.Span    { return e.Loc }
func (e *Derive) Span() token.Span    { return e.Loc }
func (e *Filter) Span() token.Span    { return e.Loc }
func (e *Aggregate) Span() token.Span { return e.Loc }
func (e *Sort) Span() token.Span      { return e.Loc }
func (e *Take) Span() token.Span      { return e.Loc }
func (e *Join) Span() token.Span      { return e.Loc }
func (e *Group) Span() token.Span     { return e.Loc }
func (e *Append) Span() token.Span    { return e.Loc }
