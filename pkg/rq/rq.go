// Package rq defines the relational query IR: a pipeline of transforms over
// typed frames, produced by the resolver and consumed by the SQL generator.
//
// Column identifiers (CIDs) are unique within a compilation unit and stable
// across transforms that merely reorder or rename. Every column reference in
// a transform resolves to a CID visible in the frame at that point; the
// resolver guarantees no free references reach this package.
package rq

// CID is a synthetic column identifier.
type CID int

// Column is one column of a frame.
//
// Exactly one of (Relation, Name) or Expr describes provenance: physical
// columns carry the source relation alias, computed columns carry the
// expression that produced them.
type Column struct {
	ID       CID    `json:"id"`
	Name     string `json:"name,omitempty"`     // display name; empty means anonymous (_expr_N)
	Relation string `json:"relation,omitempty"` // source relation alias for physical columns
	Expr     Expr   `json:"expr,omitempty"`     // provenance for computed columns
}

// Source is one relation contributing to a frame. Open sources have an
// unknown schema: unqualified references against them mint new columns.
type Source struct {
	Alias string `json:"alias"`
	Open  bool   `json:"open,omitempty"`
}

// Frame is the ordered set of columns visible at a point in a pipeline.
type Frame struct {
	Columns []Column `json:"columns"`
	Sources []Source `json:"sources,omitempty"`
}

// Lookup returns the column with the given ID.
func (f *Frame) Lookup(id CID) (Column, bool) {
	for _, c := range f.Columns {
		if c.ID == id {
			return c, true
		}
	}
	return Column{}, false
}

// Relation is a pipeline source: a named table, inline rows, or a nested
// pipeline (a referenced declaration).
type Relation interface {
	isRelation()
}

// Table is a named relation.
type Table struct {
	Name string `json:"name"`
}

// Values is an inline relation of literal rows.
type Values struct {
	Names []string `json:"names"`
	Rows  [][]Expr `json:"rows"`
}

// Nested is a relation produced by another pipeline (a declared pipeline
// referenced by `from`). Alias names the relation downstream.
type Nested struct {
	Alias    string      `json:"alias"`
	Pipeline []Transform `json:"pipeline"`
}

func (*Table) isRelation()  {}
func (*Values) isRelation() {}
func (*Nested) isRelation() {}

// Transform is one relational operation. Every transform carries its output
// frame as computed by the resolver.
type Transform interface {
	isTransform()
	OutFrame() *Frame
}

// From introduces the source relation.
type From struct {
	Rel Relation `json:"rel"`
	Out *Frame   `json:"out"`
}

// Select replaces the frame with the listed columns, in order.
type Select struct {
	IDs []CID  `json:"ids"`
	Out *Frame `json:"out"`
}

// Compute appends one computed column to the frame (derive).
type Compute struct {
	Col Column `json:"col"`
	Out *Frame `json:"out"`
}

// Filter keeps rows matching the condition. The generator decides between
// WHERE and HAVING based on position relative to aggregation.
type Filter struct {
	Cond Expr   `json:"cond"`
	Out  *Frame `json:"out"`
}

// Aggregate groups by Keys and computes Aggs; the output frame is exactly
// the keys followed by the aggregate columns.
type Aggregate struct {
	Keys []CID    `json:"keys,omitempty"`
	Aggs []Column `json:"aggs"`
	Out  *Frame   `json:"out"`
}

// SortKey is one ordering key.
type SortKey struct {
	ID   CID  `json:"id"`
	Desc bool `json:"desc,omitempty"`
}

// Sort orders rows. The frame passes through unchanged.
type Sort struct {
	Keys []SortKey `json:"keys"`
	Out  *Frame    `json:"out"`
}

// Take limits rows. Limit and Offset are -1 when absent.
type Take struct {
	Limit  int64  `json:"limit"`
	Offset int64  `json:"offset"`
	Out    *Frame `json:"out"`
}

// Join concatenates the current frame with another relation's columns.
type Join struct {
	Side string   `json:"side"` // inner, left, right, full
	With Relation `json:"with"`
	Cond Expr     `json:"cond"`
	Out  *Frame   `json:"out"`
}

// Window computes one windowed column over a partition and ordering.
type Window struct {
	Func        string    `json:"func"` // row_number, rank, ...
	PartitionBy []CID     `json:"partition_by,omitempty"`
	OrderBy     []SortKey `json:"order_by,omitempty"`
	Col         Column    `json:"col"`
	Out         *Frame    `json:"out"`
}

// Append unions another pipeline's rows onto the current frame (UNION ALL).
type Append struct {
	Pipeline []Transform `json:"pipeline"`
	Out      *Frame      `json:"out"`
}

func (*From) isTransform()      {}
func (*Select) isTransform()    {}
func (*Compute) isTransform()   {}
func (*Filter) isTransform()    {}
func (*Aggregate) isTransform() {}
func (*Sort) isTransform()      {}
func (*Take) isTransform()      {}
func (*Join) isTransform()      {}
func (*Window) isTransform()    {}
func (*Append) isTransform()    {}

func (t *From) OutFrame() *Frame      { return t.Out }
func (t *Select) OutFrame() *Frame    { return t.Out }
func (t *Compute) OutFrame() *Frame   { return t.Out }
func (t *Filter) OutFrame() *Frame    { return t.Out }
func (t *Aggregate) OutFrame() *Frame { return t.Out }
func (t *Sort) OutFrame() *Frame      { return t.Out }
func (t *Take) OutFrame() *Frame      { return t.Out }
func (t *Join) OutFrame() *Frame      { return t.Out }
func (t *Window) OutFrame() *Frame    { return t.Out }
func (t *Append) OutFrame() *Frame    { return t.Out }

// Expr is a resolved scalar expression.
type Expr interface {
	isExpr()
}

// LiteralKind mirrors the PL literal kinds.
type LiteralKind string

const (
	LitInt    LiteralKind = "int"
	LitFloat  LiteralKind = "float"
	LitString LiteralKind = "string"
	LitBool   LiteralKind = "bool"
	LitNull   LiteralKind = "null"
	LitDate   LiteralKind = "date"
)

// Literal is a scalar constant.
type Literal struct {
	Kind  LiteralKind `json:"kind"`
	Value string      `json:"value"`
}

// ColumnRef references a frame column by identifier.
type ColumnRef struct {
	ID CID `json:"id"`
}

// FuncCall is a resolved call to a built-in function. Name is the canonical
// built-in name; the generator maps it to dialect SQL. Windowed marks
// window-only functions, which render with an OVER clause.
type FuncCall struct {
	Name     string `json:"name"`
	Args     []Expr `json:"args"`
	Windowed bool   `json:"windowed,omitempty"`
}

// Binary is a binary operator over resolved operands.
type Binary struct {
	Op    string `json:"op"`
	Left  Expr   `json:"left"`
	Right Expr   `json:"right"`
}

// Unary is a unary operator.
type Unary struct {
	Op   string `json:"op"`
	Expr Expr   `json:"expr"`
}

func (*Literal) isExpr()   {}
func (*ColumnRef) isExpr() {}
func (*FuncCall) isExpr()  {}
func (*Binary) isExpr()    {}
func (*Unary) isExpr()     {}

// Query is one resolved compilation unit.
type Query struct {
	Transforms []Transform `json:"transforms"`
}

// Result returns the output frame of the final transform, or nil for an
// empty query.
func (q *Query) Result() *Frame {
	if len(q.Transforms) == 0 {
		return nil
	}
	return q.Transforms[len(q.Transforms)-1].OutFrame()
}
