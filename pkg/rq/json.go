package rq

import (
	"encoding/json"
	"fmt"
)

// Wire format: transforms, relations, and expressions carry a "type"
// discriminator. The envelope is versioned; Unmarshal rejects unknown
// versions rather than guessing.

// Version is the serialization format version.
const Version = "v1"

type envelope struct {
	LeapQ string `json:"leapq"`
	Kind  string `json:"kind"`
	Query *Query `json:"query"`
}

// Marshal encodes a query into the versioned wire format.
func Marshal(q *Query) ([]byte, error) {
	return json.MarshalIndent(&envelope{LeapQ: Version, Kind: "rq", Query: q}, "", "  ")
}

// Unmarshal decodes a query from the versioned wire format.
func Unmarshal(data []byte) (*Query, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding RQ tree: %w", err)
	}
	if env.LeapQ != Version {
		return nil, fmt.Errorf("unsupported RQ tree version %q (want %q)", env.LeapQ, Version)
	}
	if env.Kind != "rq" {
		return nil, fmt.Errorf("expected an RQ tree, got kind %q", env.Kind)
	}
	if env.Query == nil {
		return nil, fmt.Errorf("RQ tree has no query")
	}
	return env.Query, nil
}

func marshalNode(typ string, node any) ([]byte, error) {
	raw, err := json.Marshal(node)
	if err != nil {
		return nil, err
	}
	if len(raw) < 2 || raw[0] != '{' {
		return nil, fmt.Errorf("node %q did not marshal to an object", typ)
	}
	head := fmt.Sprintf(`{"type":%q`, typ)
	if string(raw) == "{}" {
		return []byte(head + "}"), nil
	}
	return append([]byte(head+","), raw[1:]...), nil
}

func (r *Table) MarshalJSON() ([]byte, error) {
	type alias Table
	return marshalNode("table", (*alias)(r))
}

func (r *Values) MarshalJSON() ([]byte, error) {
	type alias Values
	return marshalNode("values", (*alias)(r))
}

func (r *Nested) MarshalJSON() ([]byte, error) {
	type alias Nested
	return marshalNode("nested", (*alias)(r))
}

func (t *From) MarshalJSON() ([]byte, error) {
	type alias From
	return marshalNode("from", (*alias)(t))
}

func (t *Select) MarshalJSON() ([]byte, error) {
	type alias Select
	return marshalNode("select", (*alias)(t))
}

func (t *Compute) MarshalJSON() ([]byte, error) {
	type alias Compute
	return marshalNode("compute", (*alias)(t))
}

func (t *Filter) MarshalJSON() ([]byte, error) {
	type alias Filter
	return marshalNode("filter", (*alias)(t))
}

func (t *Aggregate) MarshalJSON() ([]byte, error) {
	type alias Aggregate
	return marshalNode("aggregate", (*alias)(t))
}

func (t *Sort) MarshalJSON() ([]byte, error) {
	type alias Sort
	return marshalNode("sort", (*alias)(t))
}

func (t *Take) MarshalJSON() ([]byte, error) {
	type alias Take
	return marshalNode("take", (*alias)(t))
}

func (t *Join) MarshalJSON() ([]byte, error) {
	type alias Join
	return marshalNode("join", (*alias)(t))
}

func (t *Window) MarshalJSON() ([]byte, error) {
	type alias Window
	return marshalNode("window", (*alias)(t))
}

func (t *Append) MarshalJSON() ([]byte, error) {
	type alias Append
	return marshalNode("append", (*alias)(t))
}

func (e *Literal) MarshalJSON() ([]byte, error) {
	type alias Literal
	return marshalNode("literal", (*alias)(e))
}

func (e *ColumnRef) MarshalJSON() ([]byte, error) {
	type alias ColumnRef
	return marshalNode("column", (*alias)(e))
}

func (e *FuncCall) MarshalJSON() ([]byte, error) {
	type alias FuncCall
	return marshalNode("call", (*alias)(e))
}

func (e *Binary) MarshalJSON() ([]byte, error) {
	type alias Binary
	return marshalNode("binary", (*alias)(e))
}

func (e *Unary) MarshalJSON() ([]byte, error) {
	type alias Unary
	return marshalNode("unary", (*alias)(e))
}

func decodeExpr(raw json.RawMessage) (Expr, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decoding expression: %w", err)
	}
	var e Expr
	switch head.Type {
	case "literal":
		e = &Literal{}
	case "column":
		e = &ColumnRef{}
	case "call":
		e = &FuncCall{}
	case "binary":
		e = &Binary{}
	case "unary":
		e = &Unary{}
	default:
		return nil, fmt.Errorf("unknown expression type %q", head.Type)
	}
	if err := json.Unmarshal(raw, e); err != nil {
		return nil, err
	}
	return e, nil
}

func decodeExprList(raws []json.RawMessage) ([]Expr, error) {
	if raws == nil {
		return nil, nil
	}
	out := make([]Expr, len(raws))
	for i, r := range raws {
		e, err := decodeExpr(r)
		if err != nil {
			return nil, err
		}
		out[i] = e
	}
	return out, nil
}

func decodeRelation(raw json.RawMessage) (Relation, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decoding relation: %w", err)
	}
	var r Relation
	switch head.Type {
	case "table":
		r = &Table{}
	case "values":
		r = &Values{}
	case "nested":
		r = &Nested{}
	default:
		return nil, fmt.Errorf("unknown relation type %q", head.Type)
	}
	if err := json.Unmarshal(raw, r); err != nil {
		return nil, err
	}
	return r, nil
}

func decodeTransform(raw json.RawMessage) (Transform, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("decoding transform: %w", err)
	}
	var t Transform
	switch head.Type {
	case "from":
		t = &From{}
	case "select":
		t = &Select{}
	case "compute":
		t = &Compute{}
	case "filter":
		t = &Filter{}
	case "aggregate":
		t = &Aggregate{}
	case "sort":
		t = &Sort{}
	case "take":
		t = &Take{}
	case "join":
		t = &Join{}
	case "window":
		t = &Window{}
	case "append":
		t = &Append{}
	default:
		return nil, fmt.Errorf("unknown transform type %q", head.Type)
	}
	if err := json.Unmarshal(raw, t); err != nil {
		return nil, err
	}
	return t, nil
}

func decodeTransformList(raws []json.RawMessage) ([]Transform, error) {
	if raws == nil {
		return nil, nil
	}
	out := make([]Transform, len(raws))
	for i, r := range raws {
		t, err := decodeTransform(r)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

func (q *Query) UnmarshalJSON(data []byte) error {
	var w struct {
		Transforms []json.RawMessage `json:"transforms"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	ts, err := decodeTransformList(w.Transforms)
	if err != nil {
		return err
	}
	q.Transforms = ts
	return nil
}

func (c *Column) UnmarshalJSON(data []byte) error {
	var w struct {
		ID       CID             `json:"id"`
		Name     string          `json:"name"`
		Relation string          `json:"relation"`
		Expr     json.RawMessage `json:"expr"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	expr, err := decodeExpr(w.Expr)
	if err != nil {
		return err
	}
	c.ID, c.Name, c.Relation, c.Expr = w.ID, w.Name, w.Relation, expr
	return nil
}

func (r *Values) UnmarshalJSON(data []byte) error {
	var w struct {
		Names []string            `json:"names"`
		Rows  [][]json.RawMessage `json:"rows"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	r.Names = w.Names
	r.Rows = nil
	for _, row := range w.Rows {
		exprs, err := decodeExprList(row)
		if err != nil {
			return err
		}
		r.Rows = append(r.Rows, exprs)
	}
	return nil
}

func (r *Nested) UnmarshalJSON(data []byte) error {
	var w struct {
		Alias    string            `json:"alias"`
		Pipeline []json.RawMessage `json:"pipeline"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	ts, err := decodeTransformList(w.Pipeline)
	if err != nil {
		return err
	}
	r.Alias, r.Pipeline = w.Alias, ts
	return nil
}

func (t *From) UnmarshalJSON(data []byte) error {
	var w struct {
		Rel json.RawMessage `json:"rel"`
		Out *Frame          `json:"out"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	rel, err := decodeRelation(w.Rel)
	if err != nil {
		return err
	}
	t.Rel, t.Out = rel, w.Out
	return nil
}

func (t *Filter) UnmarshalJSON(data []byte) error {
	var w struct {
		Cond json.RawMessage `json:"cond"`
		Out  *Frame          `json:"out"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	cond, err := decodeExpr(w.Cond)
	if err != nil {
		return err
	}
	t.Cond, t.Out = cond, w.Out
	return nil
}

func (t *Join) UnmarshalJSON(data []byte) error {
	var w struct {
		Side string          `json:"side"`
		With json.RawMessage `json:"with"`
		Cond json.RawMessage `json:"cond"`
		Out  *Frame          `json:"out"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	with, err := decodeRelation(w.With)
	if err != nil {
		return err
	}
	cond, err := decodeExpr(w.Cond)
	if err != nil {
		return err
	}
	t.Side, t.With, t.Cond, t.Out = w.Side, with, cond, w.Out
	return nil
}

func (t *Append) UnmarshalJSON(data []byte) error {
	var w struct {
		Pipeline []json.RawMessage `json:"pipeline"`
		Out      *Frame            `json:"out"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	ts, err := decodeTransformList(w.Pipeline)
	if err != nil {
		return err
	}
	t.Pipeline, t.Out = ts, w.Out
	return nil
}

func (e *FuncCall) UnmarshalJSON(data []byte) error {
	var w struct {
		Name     string            `json:"name"`
		Args     []json.RawMessage `json:"args"`
		Windowed bool              `json:"windowed"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	args, err := decodeExprList(w.Args)
	if err != nil {
		return err
	}
	e.Name, e.Args, e.Windowed = w.Name, args, w.Windowed
	return nil
}

func (e *Binary) UnmarshalJSON(data []byte) error {
	var w struct {
		Op string          `json:"op"`
		L  json.RawMessage `json:"left"`
		R  json.RawMessage `json:"right"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	left, err := decodeExpr(w.L)
	if err != nil {
		return err
	}
	right, err := decodeExpr(w.R)
	if err != nil {
		return err
	}
	e.Op, e.Left, e.Right = w.Op, left, right
	return nil
}

func (e *Unary) UnmarshalJSON(data []byte) error {
	var w struct {
		Op   string          `json:"op"`
		Expr json.RawMessage `json:"expr"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	inner, err := decodeExpr(w.Expr)
	if err != nil {
		return err
	}
	e.Op, e.Expr = w.Op, inner
	return nil
}
