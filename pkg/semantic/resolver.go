// Package semantic resolves a parsed module into the relational IR.
//
// Resolution walks the main pipeline step by step, tracking the frame (the
// ordered, possibly open set of columns) after every transform. Name
// resolution consults, in order: function parameters being inlined, columns
// already in the frame, scalar declarations, and finally the open sources of
// the frame, which mint a new physical column on first reference.
//
// Resolution is fail fast: the first error aborts the compilation.
package semantic

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/leapstack-labs/leapq/pkg/ast"
	"github.com/leapstack-labs/leapq/pkg/rq"
	"github.com/leapstack-labs/leapq/pkg/token"
)

// Resolver lowers PL modules to RQ queries.
type Resolver struct {
	reg   *Registry
	decls map[string]*ast.Decl
	order []string
	next  rq.CID

	inlining []string // declarations currently being expanded
}

// Resolve lowers a module to a relational query. Function calls are checked
// against the given registry; a nil registry means DefaultRegistry.
func Resolve(m *ast.Module, reg *Registry) (*rq.Query, error) {
	if reg == nil {
		reg = DefaultRegistry()
	}
	r := &Resolver{reg: reg, decls: make(map[string]*ast.Decl)}

	for _, d := range m.Decls {
		if _, exists := r.decls[d.Name]; exists {
			return nil, &Error{
				Kind:    ErrDuplicateDeclaration,
				Symbol:  d.Name,
				Pos:     d.Loc.Start,
				Message: fmt.Sprintf("duplicate declaration of %q", d.Name),
			}
		}
		if _, builtin := r.reg.Lookup(d.Name); builtin {
			return nil, &Error{
				Kind:    ErrDuplicateDeclaration,
				Symbol:  d.Name,
				Pos:     d.Loc.Start,
				Message: fmt.Sprintf("declaration %q shadows a built-in function", d.Name),
			}
		}
		r.decls[d.Name] = d
		r.order = append(r.order, d.Name)
	}

	if m.Main == nil {
		return &rq.Query{}, nil
	}

	st, err := r.resolvePipeline(m.Main, nil)
	if err != nil {
		return nil, err
	}
	return &rq.Query{Transforms: st.ts}, nil
}

// pipelineState is the working state while resolving one pipeline.
type pipelineState struct {
	ts    []rq.Transform
	frame rq.Frame
}

func (st *pipelineState) snapshot() *rq.Frame {
	out := rq.Frame{
		Columns: append([]rq.Column(nil), st.frame.Columns...),
		Sources: append([]rq.Source(nil), st.frame.Sources...),
	}
	return &out
}

func (r *Resolver) newCID() rq.CID {
	id := r.next
	r.next++
	return id
}

func (r *Resolver) resolvePipeline(p *ast.Pipeline, env *scope) (*pipelineState, error) {
	st := &pipelineState{}
	for i, step := range p.Steps {
		if i == 0 {
			from, ok := step.(*ast.From)
			if !ok {
				return nil, &Error{
					Kind:    ErrTypeMismatch,
					Pos:     step.Span().Start,
					Message: "pipeline must start with from",
				}
			}
			if err := r.resolveFrom(st, from, env); err != nil {
				return nil, err
			}
			continue
		}
		if err := r.resolveStep(st, step, env); err != nil {
			return nil, err
		}
	}
	return st, nil
}

func (r *Resolver) resolveStep(st *pipelineState, step ast.Expr, env *scope) error {
	switch s := step.(type) {
	case *ast.From:
		return &Error{
			Kind:    ErrTypeMismatch,
			Pos:     s.Loc.Start,
			Message: "from is only allowed as the first step of a pipeline",
		}
	case *ast.Select:
		return r.resolveSelect(st, s, env)
	case *ast.Derive:
		return r.resolveDerive(st, s, env)
	case *ast.Filter:
		return r.resolveFilter(st, s, env)
	case *ast.Aggregate:
		return r.resolveAggregate(st, s, nil, env)
	case *ast.Sort:
		keys, err := r.resolveSortKeys(st, s, env)
		if err != nil {
			return err
		}
		st.ts = dropSupersededSort(st.ts)
		st.ts = append(st.ts, &rq.Sort{Keys: keys, Out: st.snapshot()})
		return nil
	case *ast.Take:
		return r.resolveTake(st, s)
	case *ast.Join:
		return r.resolveJoin(st, s, env)
	case *ast.Group:
		return r.resolveGroup(st, s, env)
	case *ast.Append:
		return r.resolveAppend(st, s, env)
	default:
		return &Error{
			Kind:    ErrTypeMismatch,
			Pos:     step.Span().Start,
			Message: "expected a transform step",
		}
	}
}

// dropSupersededSort removes a trailing sort that the next sort replaces.
// A sort survives only when a later transform already consumed its order.
func dropSupersededSort(ts []rq.Transform) []rq.Transform {
	for i := len(ts) - 1; i >= 0; i-- {
		switch ts[i].(type) {
		case *rq.Sort:
			return append(ts[:i:i], ts[i+1:]...)
		case *rq.Take, *rq.Aggregate, *rq.Window, *rq.Append:
			return ts
		}
	}
	return ts
}

func (r *Resolver) resolveFrom(st *pipelineState, f *ast.From, env *scope) error {
	if f.Rows != nil {
		return r.resolveFromRows(st, f.Rows)
	}

	name := f.Table.Name()
	if d, ok := r.decls[name]; ok {
		pipe, ok := d.Value.(*ast.Pipeline)
		if !ok {
			return &Error{
				Kind:    ErrTypeMismatch,
				Symbol:  name,
				Pos:     f.Loc.Start,
				Message: fmt.Sprintf("%q is not a pipeline and cannot be used in from", name),
			}
		}
		if err := r.enterInline(name, f.Loc.Start); err != nil {
			return err
		}
		sub, err := r.resolvePipeline(pipe, env)
		r.leaveInline()
		if err != nil {
			return err
		}
		frame := sub.frame
		st.frame = rq.Frame{
			Columns: append([]rq.Column(nil), frame.Columns...),
			Sources: []rq.Source{{Alias: name, Open: frameOpen(&frame)}},
		}
		st.ts = append(st.ts, &rq.From{
			Rel: &rq.Nested{Alias: name, Pipeline: sub.ts},
			Out: st.snapshot(),
		})
		return nil
	}

	st.frame = rq.Frame{Sources: []rq.Source{{Alias: name, Open: true}}}
	st.ts = append(st.ts, &rq.From{Rel: &rq.Table{Name: name}, Out: st.snapshot()})
	return nil
}

func frameOpen(f *rq.Frame) bool {
	for _, s := range f.Sources {
		if s.Open {
			return true
		}
	}
	return false
}

// resolveFromRows lowers an inline relation: `from [{a = 1}, {a = 2}]`.
// Every row must be a tuple of named literal fields with a consistent shape.
func (r *Resolver) resolveFromRows(st *pipelineState, rows *ast.Array) error {
	var names []string
	var vals [][]rq.Expr

	for i, item := range rows.Items {
		tup, ok := item.(*ast.Tuple)
		if !ok {
			return &Error{
				Kind:    ErrTypeMismatch,
				Pos:     item.Span().Start,
				Message: "inline relation rows must be tuples",
			}
		}
		var row []rq.Expr
		var rowNames []string
		for _, field := range tup.Items {
			if field.Name == "" {
				return &Error{
					Kind:    ErrTypeMismatch,
					Pos:     field.Expr.Span().Start,
					Message: "inline relation fields must be named",
				}
			}
			lit, ok := field.Expr.(*ast.Literal)
			if !ok {
				return &Error{
					Kind:    ErrTypeMismatch,
					Pos:     field.Expr.Span().Start,
					Message: "inline relation fields must be literals",
				}
			}
			rowNames = append(rowNames, field.Name)
			row = append(row, &rq.Literal{Kind: rq.LiteralKind(lit.Kind), Value: lit.Value})
		}
		if i == 0 {
			names = rowNames
		} else if !sameNames(names, rowNames) {
			return &Error{
				Kind:    ErrTypeMismatch,
				Pos:     tup.Loc.Start,
				Message: "inline relation rows must share the same fields",
			}
		}
		vals = append(vals, row)
	}

	cols := make([]rq.Column, len(names))
	for i, n := range names {
		cols[i] = rq.Column{ID: r.newCID(), Name: n}
	}
	st.frame = rq.Frame{Columns: cols}
	st.ts = append(st.ts, &rq.From{
		Rel: &rq.Values{Names: names, Rows: vals},
		Out: st.snapshot(),
	})
	return nil
}

func sameNames(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (r *Resolver) resolveSelect(st *pipelineState, s *ast.Select, env *scope) error {
	ids := make([]rq.CID, 0, len(s.Items))
	for _, item := range s.Items {
		if id, ok := item.Expr.(*ast.Ident); ok && item.Name == "" {
			cid, err := r.resolveColumnRef(st, id)
			if err != nil {
				return err
			}
			ids = append(ids, cid)
			continue
		}
		cid, err := r.computeColumn(st, item, env)
		if err != nil {
			return err
		}
		ids = append(ids, cid)
	}

	cols := make([]rq.Column, 0, len(ids))
	for _, id := range ids {
		c, ok := st.frame.Lookup(id)
		if !ok {
			return &Error{
				Kind:    ErrUnboundReference,
				Pos:     s.Loc.Start,
				Message: "selected column escaped the frame",
			}
		}
		cols = append(cols, c)
	}
	st.frame = rq.Frame{Columns: cols}
	st.ts = append(st.ts, &rq.Select{IDs: ids, Out: st.snapshot()})
	return nil
}

func (r *Resolver) resolveDerive(st *pipelineState, d *ast.Derive, env *scope) error {
	for _, item := range d.Items {
		if _, err := r.computeColumn(st, item, env); err != nil {
			return err
		}
	}
	return nil
}

// computeColumn resolves one tuple item into a computed column, appends it
// to the frame, and emits a Compute transform.
func (r *Resolver) computeColumn(st *pipelineState, item ast.TupleItem, env *scope) (rq.CID, error) {
	expr, err := r.resolveExpr(st, item.Expr, env, false)
	if err != nil {
		return 0, err
	}
	col := rq.Column{ID: r.newCID(), Name: item.Name, Expr: expr}
	st.frame.Columns = append(st.frame.Columns, col)
	st.ts = append(st.ts, &rq.Compute{Col: col, Out: st.snapshot()})
	return col.ID, nil
}

func (r *Resolver) resolveFilter(st *pipelineState, f *ast.Filter, env *scope) error {
	cond, err := r.resolveExpr(st, f.Cond, env, false)
	if err != nil {
		return err
	}
	if k := typeOf(cond); k != kindBool && k != kindUnknown {
		return &Error{
			Kind:    ErrTypeMismatch,
			Pos:     f.Cond.Span().Start,
			Message: fmt.Sprintf("filter condition must be boolean, got %s", k),
		}
	}
	st.ts = append(st.ts, &rq.Filter{Cond: cond, Out: st.snapshot()})
	return nil
}

func (r *Resolver) resolveAggregate(st *pipelineState, a *ast.Aggregate, keys []rq.CID, env *scope) error {
	keyCols := make([]rq.Column, 0, len(keys))
	for _, k := range keys {
		c, ok := st.frame.Lookup(k)
		if !ok {
			return &Error{
				Kind:    ErrUnboundReference,
				Pos:     a.Loc.Start,
				Message: "group key escaped the frame",
			}
		}
		keyCols = append(keyCols, c)
	}

	aggs := make([]rq.Column, 0, len(a.Items))
	for _, item := range a.Items {
		expr, err := r.resolveExpr(st, item.Expr, env, true)
		if err != nil {
			return err
		}
		if !r.containsAggregate(expr) {
			return &Error{
				Kind:    ErrTypeMismatch,
				Pos:     item.Expr.Span().Start,
				Message: "aggregate expressions must apply an aggregate function",
			}
		}
		aggs = append(aggs, rq.Column{ID: r.newCID(), Name: item.Name, Expr: expr})
	}

	st.frame = rq.Frame{Columns: append(keyCols, aggs...)}
	st.ts = append(st.ts, &rq.Aggregate{Keys: keys, Aggs: aggs, Out: st.snapshot()})
	return nil
}

func (r *Resolver) resolveSortKeys(st *pipelineState, s *ast.Sort, env *scope) ([]rq.SortKey, error) {
	keys := make([]rq.SortKey, 0, len(s.Items))
	for _, item := range s.Items {
		id, ok := item.Expr.(*ast.Ident)
		if !ok {
			return nil, &Error{
				Kind:    ErrTypeMismatch,
				Pos:     item.Expr.Span().Start,
				Message: "sort keys must be column references",
			}
		}
		cid, err := r.resolveColumnRef(st, id)
		if err != nil {
			return nil, err
		}
		keys = append(keys, rq.SortKey{ID: cid, Desc: item.Desc})
	}
	return keys, nil
}

func (r *Resolver) resolveTake(st *pipelineState, t *ast.Take) error {
	limit, offset, err := r.takeBounds(t.Expr)
	if err != nil {
		return err
	}
	st.ts = append(st.ts, &rq.Take{Limit: limit, Offset: offset, Out: st.snapshot()})
	return nil
}

// takeBounds turns a take argument into (limit, offset), -1 meaning absent.
// A bare count keeps the first n rows; `a..b` keeps rows a through b,
// 1-based and inclusive on both ends.
func (r *Resolver) takeBounds(e ast.Expr) (limit, offset int64, err error) {
	switch arg := e.(type) {
	case *ast.Literal:
		n, convErr := takeInt(arg)
		if convErr != nil {
			return 0, 0, convErr
		}
		return n, -1, nil
	case *ast.Range:
		var low, high int64 = 1, -1
		if arg.Low != nil {
			lit, ok := arg.Low.(*ast.Literal)
			if !ok {
				return 0, 0, takeErr(arg.Low.Span().Start, "take range bounds must be integer literals")
			}
			if low, err = takeInt(lit); err != nil {
				return 0, 0, err
			}
		}
		if arg.High != nil {
			lit, ok := arg.High.(*ast.Literal)
			if !ok {
				return 0, 0, takeErr(arg.High.Span().Start, "take range bounds must be integer literals")
			}
			if high, err = takeInt(lit); err != nil {
				return 0, 0, err
			}
		}
		if high >= 0 && high < low {
			return 0, 0, takeErr(arg.Loc.Start, "take range is empty")
		}
		offset = low - 1
		if offset == 0 {
			offset = -1
		}
		if high < 0 {
			return -1, offset, nil
		}
		return high - low + 1, offset, nil
	default:
		return 0, 0, takeErr(e.Span().Start, "take expects an integer count or a range")
	}
}

func takeErr(pos token.Position, msg string) error {
	return &Error{Kind: ErrTypeMismatch, Pos: pos, Message: msg}
}

func takeInt(lit *ast.Literal) (int64, error) {
	if lit.Kind != ast.LitInt {
		return 0, takeErr(lit.Loc.Start, fmt.Sprintf("take expects an integer, got %s literal %s", lit.Kind, lit.Value))
	}
	n, err := strconv.ParseInt(lit.Value, 10, 64)
	if err != nil || n < 1 {
		return 0, takeErr(lit.Loc.Start, fmt.Sprintf("take expects a positive integer, got %s", lit.Value))
	}
	return n, nil
}

func (r *Resolver) resolveJoin(st *pipelineState, j *ast.Join, env *scope) error {
	side := j.Side
	if side == "" {
		side = "inner"
	}
	switch side {
	case "inner", "left", "right", "full":
	default:
		return &Error{
			Kind:    ErrTypeMismatch,
			Pos:     j.Loc.Start,
			Message: fmt.Sprintf("unknown join side %q", j.Side),
		}
	}

	name := j.Table.Name()
	var with rq.Relation
	if d, ok := r.decls[name]; ok {
		pipe, ok := d.Value.(*ast.Pipeline)
		if !ok {
			return &Error{
				Kind:    ErrTypeMismatch,
				Symbol:  name,
				Pos:     j.Loc.Start,
				Message: fmt.Sprintf("%q is not a pipeline and cannot be joined", name),
			}
		}
		if err := r.enterInline(name, j.Loc.Start); err != nil {
			return err
		}
		sub, err := r.resolvePipeline(pipe, env)
		r.leaveInline()
		if err != nil {
			return err
		}
		st.frame.Columns = append(st.frame.Columns, sub.frame.Columns...)
		st.frame.Sources = append(st.frame.Sources, rq.Source{Alias: name, Open: frameOpen(&sub.frame)})
		with = &rq.Nested{Alias: name, Pipeline: sub.ts}
	} else {
		st.frame.Sources = append(st.frame.Sources, rq.Source{Alias: name, Open: true})
		with = &rq.Table{Name: name}
	}

	cond, err := r.resolveExpr(st, j.Cond, env, false)
	if err != nil {
		return err
	}
	if k := typeOf(cond); k != kindBool && k != kindUnknown {
		return &Error{
			Kind:    ErrTypeMismatch,
			Pos:     j.Cond.Span().Start,
			Message: fmt.Sprintf("join condition must be boolean, got %s", k),
		}
	}
	st.ts = append(st.ts, &rq.Join{Side: side, With: with, Cond: cond, Out: st.snapshot()})
	return nil
}

// resolveGroup lowers `group {keys} (body)`. A body of aggregate becomes a
// keyed Aggregate; a body of sort and take becomes a row_number window with
// a filter on the row number.
func (r *Resolver) resolveGroup(st *pipelineState, g *ast.Group, env *scope) error {
	keys := make([]rq.CID, 0, len(g.Keys))
	for _, k := range g.Keys {
		id, ok := k.(*ast.Ident)
		if !ok {
			return &Error{
				Kind:    ErrTypeMismatch,
				Pos:     k.Span().Start,
				Message: "group keys must be column references",
			}
		}
		cid, err := r.resolveColumnRef(st, id)
		if err != nil {
			return err
		}
		keys = append(keys, cid)
	}

	var order []rq.SortKey
	for _, step := range g.Body.Steps {
		switch s := step.(type) {
		case *ast.Aggregate:
			if err := r.resolveAggregate(st, s, keys, env); err != nil {
				return err
			}
		case *ast.Sort:
			sk, err := r.resolveSortKeys(st, s, env)
			if err != nil {
				return err
			}
			order = sk
		case *ast.Take:
			if err := r.resolveGroupTake(st, s, keys, order); err != nil {
				return err
			}
		default:
			return &Error{
				Kind:    ErrTypeMismatch,
				Pos:     step.Span().Start,
				Message: "group body supports aggregate, sort, and take",
			}
		}
	}
	return nil
}

// resolveGroupTake keeps the first rows of each group by numbering rows
// within the partition and filtering on the number.
func (r *Resolver) resolveGroupTake(st *pipelineState, t *ast.Take, keys []rq.CID, order []rq.SortKey) error {
	limit, offset, err := r.takeBounds(t.Expr)
	if err != nil {
		return err
	}
	if limit < 0 && offset < 0 {
		return &Error{
			Kind:    ErrTypeMismatch,
			Pos:     t.Expr.Span().Start,
			Message: "take inside group must be bounded",
		}
	}

	before := append([]rq.Column(nil), st.frame.Columns...)
	closed := !frameOpen(&st.frame)

	rn := rq.Column{ID: r.newCID(), Expr: &rq.FuncCall{Name: "row_number", Windowed: true}}
	st.frame.Columns = append(st.frame.Columns, rn)
	st.ts = append(st.ts, &rq.Window{
		Func:        "row_number",
		PartitionBy: keys,
		OrderBy:     order,
		Col:         rn,
		Out:         st.snapshot(),
	})

	var cond rq.Expr
	if limit >= 0 {
		upper := limit
		if offset >= 0 {
			upper += offset
		}
		cond = &rq.Binary{
			Op:    "<=",
			Left:  &rq.ColumnRef{ID: rn.ID},
			Right: &rq.Literal{Kind: rq.LitInt, Value: strconv.FormatInt(upper, 10)},
		}
	}
	if offset >= 0 {
		lower := &rq.Binary{
			Op:    ">",
			Left:  &rq.ColumnRef{ID: rn.ID},
			Right: &rq.Literal{Kind: rq.LitInt, Value: strconv.FormatInt(offset, 10)},
		}
		if cond == nil {
			cond = lower
		} else {
			cond = &rq.Binary{Op: "&&", Left: lower, Right: cond}
		}
	}
	st.ts = append(st.ts, &rq.Filter{Cond: cond, Out: st.snapshot()})

	// Drop the row number from the result when the frame shape is known.
	if closed {
		ids := make([]rq.CID, len(before))
		for i, c := range before {
			ids[i] = c.ID
		}
		st.frame = rq.Frame{Columns: before}
		st.ts = append(st.ts, &rq.Select{IDs: ids, Out: st.snapshot()})
	}
	return nil
}

func (r *Resolver) resolveAppend(st *pipelineState, a *ast.Append, env *scope) error {
	sub, err := r.resolvePipeline(a.Body, env)
	if err != nil {
		return err
	}
	if !frameOpen(&st.frame) && !frameOpen(&sub.frame) &&
		len(st.frame.Columns) != len(sub.frame.Columns) {
		return &Error{
			Kind: ErrTypeMismatch,
			Pos:  a.Loc.Start,
			Message: fmt.Sprintf("append requires matching frames: %d columns vs %d",
				len(st.frame.Columns), len(sub.frame.Columns)),
		}
	}
	st.ts = append(st.ts, &rq.Append{Pipeline: sub.ts, Out: st.snapshot()})
	return nil
}

func (r *Resolver) enterInline(name string, pos token.Position) error {
	for _, n := range r.inlining {
		if n == name {
			return &Error{
				Kind:    ErrUnboundReference,
				Symbol:  name,
				Pos:     pos,
				Message: fmt.Sprintf("%q refers to itself", name),
			}
		}
	}
	r.inlining = append(r.inlining, name)
	return nil
}

func (r *Resolver) leaveInline() {
	r.inlining = r.inlining[:len(r.inlining)-1]
}

// resolveColumnRef resolves an identifier against the current frame,
// minting a physical column from an open source when the name is unknown.
func (r *Resolver) resolveColumnRef(st *pipelineState, id *ast.Ident) (rq.CID, error) {
	if len(id.Parts) > 2 {
		return 0, &Error{
			Kind:    ErrUnboundReference,
			Symbol:  id.Name(),
			Pos:     id.Loc.Start,
			Message: fmt.Sprintf("unknown name %q", id.Name()),
		}
	}

	if len(id.Parts) == 2 {
		rel, name := id.Parts[0], id.Parts[1]
		for _, c := range st.frame.Columns {
			if c.Relation == rel && c.Name == name {
				return c.ID, nil
			}
		}
		for _, src := range st.frame.Sources {
			if src.Alias != rel {
				continue
			}
			if !src.Open {
				return 0, r.unbound(st, id)
			}
			return r.mint(st, rel, name), nil
		}
		return 0, r.unbound(st, id)
	}

	name := id.Parts[0]
	var matches []rq.CID
	for _, c := range st.frame.Columns {
		if c.Name == name {
			matches = append(matches, c.ID)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
	default:
		return 0, &Error{
			Kind:    ErrAmbiguousColumn,
			Symbol:  name,
			Pos:     id.Loc.Start,
			Message: fmt.Sprintf("column %q is ambiguous", name),
		}
	}

	var open []string
	for _, src := range st.frame.Sources {
		if src.Open {
			open = append(open, src.Alias)
		}
	}
	switch len(open) {
	case 1:
		return r.mint(st, open[0], name), nil
	case 0:
		return 0, r.unbound(st, id)
	default:
		return 0, &Error{
			Kind:    ErrAmbiguousColumn,
			Symbol:  name,
			Pos:     id.Loc.Start,
			Message: fmt.Sprintf("column %q is ambiguous: qualify it with one of %s", name, strings.Join(open, ", ")),
		}
	}
}

func (r *Resolver) mint(st *pipelineState, rel, name string) rq.CID {
	col := rq.Column{ID: r.newCID(), Name: name, Relation: rel}
	st.frame.Columns = append(st.frame.Columns, col)
	return col.ID
}

func (r *Resolver) unbound(st *pipelineState, id *ast.Ident) error {
	var avail []string
	for _, c := range st.frame.Columns {
		if c.Name != "" {
			avail = append(avail, c.Name)
		}
	}
	sort.Strings(avail)
	msg := fmt.Sprintf("unknown name %q", id.Name())
	if len(avail) > 0 {
		msg += ", available columns: " + strings.Join(avail, ", ")
	}
	return &Error{
		Kind:    ErrUnboundReference,
		Symbol:  id.Name(),
		Pos:     id.Loc.Start,
		Message: msg,
	}
}

// resolveExpr lowers a scalar expression. allowAgg permits aggregate
// functions, which are legal only inside aggregate items.
func (r *Resolver) resolveExpr(st *pipelineState, e ast.Expr, env *scope, allowAgg bool) (rq.Expr, error) {
	switch x := e.(type) {
	case *ast.Literal:
		return &rq.Literal{Kind: rq.LiteralKind(x.Kind), Value: x.Value}, nil

	case *ast.Ident:
		if len(x.Parts) == 1 {
			if arg, ok := env.lookupParam(x.Parts[0]); ok {
				return r.resolveExpr(st, arg, env, allowAgg)
			}
			name := x.Parts[0]
			if !frameHasName(&st.frame, name) {
				if d, ok := r.decls[name]; ok {
					return r.inlineScalarDecl(st, d, x, env, allowAgg)
				}
			}
		}
		cid, err := r.resolveColumnRef(st, x)
		if err != nil {
			return nil, err
		}
		return &rq.ColumnRef{ID: cid}, nil

	case *ast.Call:
		return r.resolveCall(st, x, env, allowAgg)

	case *ast.Binary:
		left, err := r.resolveExpr(st, x.Left, env, allowAgg)
		if err != nil {
			return nil, err
		}
		right, err := r.resolveExpr(st, x.Right, env, allowAgg)
		if err != nil {
			return nil, err
		}
		if err := checkBinary(x, left, right); err != nil {
			return nil, err
		}
		return &rq.Binary{Op: x.Op, Left: left, Right: right}, nil

	case *ast.Unary:
		inner, err := r.resolveExpr(st, x.Expr, env, allowAgg)
		if err != nil {
			return nil, err
		}
		if err := checkUnary(x, inner); err != nil {
			return nil, err
		}
		return &rq.Unary{Op: x.Op, Expr: inner}, nil

	default:
		return nil, &Error{
			Kind:    ErrTypeMismatch,
			Pos:     e.Span().Start,
			Message: "expected a scalar expression",
		}
	}
}

func (r *Resolver) inlineScalarDecl(st *pipelineState, d *ast.Decl, ref *ast.Ident, env *scope, allowAgg bool) (rq.Expr, error) {
	if len(d.Params) > 0 {
		return nil, &Error{
			Kind:    ErrArityMismatch,
			Symbol:  d.Name,
			Pos:     ref.Loc.Start,
			Message: fmt.Sprintf("function %q expects %d arguments, got 0", d.Name, len(d.Params)),
		}
	}
	if _, ok := d.Value.(*ast.Pipeline); ok {
		return nil, &Error{
			Kind:    ErrTypeMismatch,
			Symbol:  d.Name,
			Pos:     ref.Loc.Start,
			Message: fmt.Sprintf("pipeline %q cannot be used as a scalar", d.Name),
		}
	}
	if err := r.enterInline(d.Name, ref.Loc.Start); err != nil {
		return nil, err
	}
	defer r.leaveInline()
	return r.resolveExpr(st, d.Value, env, allowAgg)
}

func (r *Resolver) resolveCall(st *pipelineState, c *ast.Call, env *scope, allowAgg bool) (rq.Expr, error) {
	name := c.Func.Name()

	if d, ok := r.decls[name]; ok {
		if len(c.Named) > 0 {
			return nil, &Error{
				Kind:    ErrArityMismatch,
				Symbol:  name,
				Pos:     c.Loc.Start,
				Message: fmt.Sprintf("function %q takes no named arguments", name),
			}
		}
		if len(c.Args) != len(d.Params) {
			return nil, &Error{
				Kind:    ErrArityMismatch,
				Symbol:  name,
				Pos:     c.Loc.Start,
				Message: fmt.Sprintf("function %q expects %d arguments, got %d", name, len(d.Params), len(c.Args)),
			}
		}
		bindings := make(map[string]ast.Expr, len(d.Params))
		for i, p := range d.Params {
			bindings[p] = c.Args[i]
		}
		if err := r.enterInline(name, c.Loc.Start); err != nil {
			return nil, err
		}
		defer r.leaveInline()
		return r.resolveExpr(st, d.Value, newScope(env, bindings), allowAgg)
	}

	sig, ok := r.reg.Lookup(name)
	if !ok {
		return nil, &Error{
			Kind:    ErrUnboundReference,
			Symbol:  name,
			Pos:     c.Loc.Start,
			Message: fmt.Sprintf("unknown function %q", name),
		}
	}
	if len(c.Named) > 0 {
		return nil, &Error{
			Kind:    ErrArityMismatch,
			Symbol:  name,
			Pos:     c.Loc.Start,
			Message: fmt.Sprintf("function %q takes no named arguments", name),
		}
	}
	if len(c.Args) != sig.Arity {
		return nil, &Error{
			Kind:    ErrArityMismatch,
			Symbol:  name,
			Pos:     c.Loc.Start,
			Message: fmt.Sprintf("function %q expects %d arguments, got %d", name, sig.Arity, len(c.Args)),
		}
	}
	if sig.Class == ClassAggregate && !allowAgg {
		return nil, &Error{
			Kind:    ErrTypeMismatch,
			Symbol:  name,
			Pos:     c.Loc.Start,
			Message: fmt.Sprintf("aggregate function %q is only allowed inside aggregate", name),
		}
	}

	args := make([]rq.Expr, len(c.Args))
	for i, a := range c.Args {
		// Aggregate arguments are row scalars, never aggregates themselves.
		arg, err := r.resolveExpr(st, a, env, false)
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}
	return &rq.FuncCall{Name: sig.Name, Args: args, Windowed: sig.Class == ClassWindow}, nil
}
