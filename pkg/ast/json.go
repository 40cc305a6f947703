package ast

import (
	"encoding/json"
	"fmt"

	"github.com/leapstack-labs/leapq/pkg/token"
)

// Wire format: every expression node carries a "type" discriminator so
// trees produced by one process can be consumed by another. The envelope
// is versioned; Unmarshal rejects unknown versions rather than guessing.

// Version is the serialization format version.
const Version = "v1"

type envelope struct {
	LeapQ  string  `json:"leapq"`
	Kind   string  `json:"kind"`
	Module *Module `json:"module"`
}

// Marshal encodes a module into the versioned wire format.
func Marshal(m *Module) ([]byte, error) {
	return json.MarshalIndent(&envelope{LeapQ: Version, Kind: "pl", Module: m}, "", "  ")
}

// Unmarshal decodes a module from the versioned wire format.
func Unmarshal(data []byte) (*Module, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decoding PL tree: %w", err)
	}
	if env.LeapQ != Version {
		return nil, fmt.Errorf("unsupported PL tree version %q (want %q)", env.LeapQ, Version)
	}
	if env.Kind != "pl" {
		return nil, fmt.Errorf("expected a PL tree, got kind %q", env.Kind)
	}
	if env.Module == nil {
		return nil, fmt.Errorf("PL tree has no module")
	}
	return env.Module, nil
}

func marshalNode(typ string, node any) ([]byte, error) {
	raw, err := json.Marshal(node)
	if err != nil {
		return nil, err
	}
	// Splice the discriminator in front of the node's own fields.
	if len(raw) < 2 || raw[0] != '{' {
		return nil, fmt.Errorf("node %q did not marshal to an object", typ)
	}
	head := fmt.Sprintf(`{"type":%q`, typ)
	if string(raw) == "{}" {
		return []byte(head + "}"), nil
	}
	return append([]byte(head+","), raw[1:]...), nil
}

func (e *Literal) MarshalJSON() ([]byte, error) {
	type alias Literal
	return marshalNode("literal", (*alias)(e))
}

func (e *Ident) MarshalJSON() ([]byte, error) {
	type alias Ident
	return marshalNode("ident", (*alias)(e))
}

func (e *Call) MarshalJSON() ([]byte, error) {
	type alias Call
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

func (e *Tuple) MarshalJSON() ([]byte, error) {
	type alias Tuple
	return marshalNode("tuple", (*alias)(e))
}

func (e *Array) MarshalJSON() ([]byte, error) {
	type alias Array
	return marshalNode("array", (*alias)(e))
}

func (e *Range) MarshalJSON() ([]byte, error) {
	type alias Range
	return marshalNode("range", (*alias)(e))
}

func (e *Pipeline) MarshalJSON() ([]byte, error) {
	type alias Pipeline
	return marshalNode("pipeline", (*alias)(e))
}

func (e *From) MarshalJSON() ([]byte, error) {
	type alias From
	return marshalNode("from", (*alias)(e))
}

func (e *Select) MarshalJSON() ([]byte, error) {
	type alias Select
	return marshalNode("select", (*alias)(e))
}

func (e *Derive) MarshalJSON() ([]byte, error) {
	type alias Derive
	return marshalNode("derive", (*alias)(e))
}

func (e *Filter) MarshalJSON() ([]byte, error) {
	type alias Filter
	return marshalNode("filter", (*alias)(e))
}

func (e *Aggregate) MarshalJSON() ([]byte, error) {
	type alias Aggregate
	return marshalNode("aggregate", (*alias)(e))
}

func (e *Sort) MarshalJSON() ([]byte, error) {
	type alias Sort
	return marshalNode("sort", (*alias)(e))
}

func (e *Take) MarshalJSON() ([]byte, error) {
	type alias Take
	return marshalNode("take", (*alias)(e))
}

func (e *Join) MarshalJSON() ([]byte, error) {
	type alias Join
	return marshalNode("join", (*alias)(e))
}

func (e *Group) MarshalJSON() ([]byte, error) {
	type alias Group
	return marshalNode("group", (*alias)(e))
}

func (e *Append) MarshalJSON() ([]byte, error) {
	type alias Append
	return marshalNode("append", (*alias)(e))
}

// decodeExpr decodes one polymorphic expression node.
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
	case "ident":
		e = &Ident{}
	case "call":
		e = &Call{}
	case "binary":
		e = &Binary{}
	case "unary":
		e = &Unary{}
	case "tuple":
		e = &Tuple{}
	case "array":
		e = &Array{}
	case "range":
		e = &Range{}
	case "pipeline":
		e = &Pipeline{}
	case "from":
		e = &From{}
	case "select":
		e = &Select{}
	case "derive":
		e = &Derive{}
	case "filter":
		e = &Filter{}
	case "aggregate":
		e = &Aggregate{}
	case "sort":
		e = &Sort{}
	case "take":
		e = &Take{}
	case "join":
		e = &Join{}
	case "group":
		e = &Group{}
	case "append":
		e = &Append{}
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

func (e *Call) UnmarshalJSON(data []byte) error {
	var w struct {
		Func  *Ident            `json:"func"`
		Args  []json.RawMessage `json:"args"`
		Named []NamedArg        `json:"named"`
		Loc   token.Span        `json:"span"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	args, err := decodeExprList(w.Args)
	if err != nil {
		return err
	}
	e.Func, e.Args, e.Named, e.Loc = w.Func, args, w.Named, w.Loc
	return nil
}

func (a *NamedArg) UnmarshalJSON(data []byte) error {
	var w struct {
		Name string          `json:"name"`
		Val  json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	val, err := decodeExpr(w.Val)
	if err != nil {
		return err
	}
	a.Name, a.Val = w.Name, val
	return nil
}

func (e *Binary) UnmarshalJSON(data []byte) error {
	var w struct {
		Op  string          `json:"op"`
		L   json.RawMessage `json:"left"`
		R   json.RawMessage `json:"right"`
		Loc token.Span      `json:"span"`
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
	e.Op, e.Left, e.Right, e.Loc = w.Op, left, right, w.Loc
	return nil
}

func (e *Unary) UnmarshalJSON(data []byte) error {
	var w struct {
		Op   string          `json:"op"`
		Expr json.RawMessage `json:"expr"`
		Loc  token.Span      `json:"span"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	inner, err := decodeExpr(w.Expr)
	if err != nil {
		return err
	}
	e.Op, e.Expr, e.Loc = w.Op, inner, w.Loc
	return nil
}

func (it *TupleItem) UnmarshalJSON(data []byte) error {
	var w struct {
		Name string          `json:"name"`
		Expr json.RawMessage `json:"expr"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	expr, err := decodeExpr(w.Expr)
	if err != nil {
		return err
	}
	it.Name, it.Expr = w.Name, expr
	return nil
}

func (e *Tuple) UnmarshalJSON(data []byte) error {
	var w struct {
		Items []TupleItem `json:"items"`
		Loc   token.Span  `json:"span"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	e.Items, e.Loc = w.Items, w.Loc
	return nil
}

func (e *Array) UnmarshalJSON(data []byte) error {
	var w struct {
		Items []json.RawMessage `json:"items"`
		Loc   token.Span        `json:"span"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	items, err := decodeExprList(w.Items)
	if err != nil {
		return err
	}
	e.Items, e.Loc = items, w.Loc
	return nil
}

func (e *Range) UnmarshalJSON(data []byte) error {
	var w struct {
		Low  json.RawMessage `json:"low"`
		High json.RawMessage `json:"high"`
		Loc  token.Span      `json:"span"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	low, err := decodeExpr(w.Low)
	if err != nil {
		return err
	}
	high, err := decodeExpr(w.High)
	if err != nil {
		return err
	}
	e.Low, e.High, e.Loc = low, high, w.Loc
	return nil
}

func (e *Pipeline) UnmarshalJSON(data []byte) error {
	var w struct {
		Steps []json.RawMessage `json:"steps"`
		Loc   token.Span        `json:"span"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	steps, err := decodeExprList(w.Steps)
	if err != nil {
		return err
	}
	e.Steps, e.Loc = steps, w.Loc
	return nil
}

func (e *Select) UnmarshalJSON(data []byte) error {
	var w struct {
		Items []TupleItem `json:"items"`
		Loc   token.Span  `json:"span"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	e.Items, e.Loc = w.Items, w.Loc
	return nil
}

func (e *Derive) UnmarshalJSON(data []byte) error {
	var w struct {
		Items []TupleItem `json:"items"`
		Loc   token.Span  `json:"span"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	e.Items, e.Loc = w.Items, w.Loc
	return nil
}

func (e *Aggregate) UnmarshalJSON(data []byte) error {
	var w struct {
		Items []TupleItem `json:"items"`
		Loc   token.Span  `json:"span"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	e.Items, e.Loc = w.Items, w.Loc
	return nil
}

func (e *Filter) UnmarshalJSON(data []byte) error {
	var w struct {
		Cond json.RawMessage `json:"cond"`
		Loc  token.Span      `json:"span"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	cond, err := decodeExpr(w.Cond)
	if err != nil {
		return err
	}
	e.Cond, e.Loc = cond, w.Loc
	return nil
}

func (it *SortItem) UnmarshalJSON(data []byte) error {
	var w struct {
		Expr json.RawMessage `json:"expr"`
		Desc bool            `json:"desc"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	expr, err := decodeExpr(w.Expr)
	if err != nil {
		return err
	}
	it.Expr, it.Desc = expr, w.Desc
	return nil
}

func (e *Sort) UnmarshalJSON(data []byte) error {
	var w struct {
		Items []SortItem `json:"items"`
		Loc   token.Span `json:"span"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	e.Items, e.Loc = w.Items, w.Loc
	return nil
}

func (e *Take) UnmarshalJSON(data []byte) error {
	var w struct {
		Expr json.RawMessage `json:"expr"`
		Loc  token.Span      `json:"span"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	expr, err := decodeExpr(w.Expr)
	if err != nil {
		return err
	}
	e.Expr, e.Loc = expr, w.Loc
	return nil
}

func (e *Join) UnmarshalJSON(data []byte) error {
	var w struct {
		Side  string          `json:"side"`
		Table *Ident          `json:"table"`
		Cond  json.RawMessage `json:"cond"`
		Loc   token.Span      `json:"span"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	cond, err := decodeExpr(w.Cond)
	if err != nil {
		return err
	}
	e.Side, e.Table, e.Cond, e.Loc = w.Side, w.Table, cond, w.Loc
	return nil
}

func (e *Group) UnmarshalJSON(data []byte) error {
	var w struct {
		Keys []json.RawMessage `json:"keys"`
		Body *Pipeline         `json:"body"`
		Loc  token.Span        `json:"span"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	keys, err := decodeExprList(w.Keys)
	if err != nil {
		return err
	}
	e.Keys, e.Body, e.Loc = keys, w.Body, w.Loc
	return nil
}

func (d *Decl) UnmarshalJSON(data []byte) error {
	var w struct {
		Name   string          `json:"name"`
		Params []string        `json:"params"`
		Value  json.RawMessage `json:"value"`
		Loc    token.Span      `json:"span"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	value, err := decodeExpr(w.Value)
	if err != nil {
		return err
	}
	d.Name, d.Params, d.Value, d.Loc = w.Name, w.Params, value, w.Loc
	return nil
}
