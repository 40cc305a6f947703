// Package sqlgen renders relational queries as SQL text for a target
// dialect.
//
// The transform pipeline is split into query levels: transforms fold into
// the current SELECT until one arrives that SQL cannot express there (a
// second aggregation, a filter over a window column, anything after a
// limit). Each completed level becomes a CTE named table_0, table_1, ...
// and the final level is the outer SELECT. Output is deterministic: the
// same query and options always produce identical text.
package sqlgen

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapq/pkg/dialect"
	"github.com/leapstack-labs/leapq/pkg/rq"
)

// Options controls rendering.
type Options struct {
	Format           bool   // clause per line when true, single line otherwise
	SignatureComment bool   // append the trailing generator comment
	Version          string // version reported in the signature comment
}

// Generate renders a query as SQL. An empty query renders as the empty
// string with no signature comment.
func Generate(q *rq.Query, d *dialect.Dialect, opts Options) (string, error) {
	if d == nil {
		return "", dialect.ErrDialectRequired
	}
	if q == nil || len(q.Transforms) == 0 {
		return "", nil
	}

	g := &generator{
		d:       d,
		compact: !opts.Format,
		catalog: make(map[rq.CID]rq.Column),
		names:   make(map[rq.CID]string),
		aliases: make(map[rq.CID]string),
		emitted: make(map[string]struct{}),
	}
	buildCatalog(q.Transforms, g.catalog)

	final := g.genPipeline(q.Transforms)
	if g.err != nil {
		return "", g.err
	}

	sql := g.assemble(final)
	if opts.SignatureComment {
		sql += "\n-- Generated by LeapQ " + opts.Version
	}
	return sql, nil
}

type generator struct {
	d       *dialect.Dialect
	compact bool
	catalog map[rq.CID]rq.Column
	names   map[rq.CID]string   // post-materialization render override
	aliases map[rq.CID]string   // assigned aliases for anonymous columns
	emitted map[string]struct{} // declaration CTEs already written
	ctes    []cte
	tableN  int
	exprN   int
	err     *Error
}

type cte struct {
	name string
	body string
}

// segment is one SELECT query level under construction.
type segment struct {
	fromSQL   string
	sources   []string
	joins     []string
	where     []string
	agg       *rq.Aggregate
	window    *rq.Window
	having    []string
	selectIDs []rq.CID
	computes  []rq.Column
	order     []rq.SortKey
	limit     int64
	offset    int64
	outFrame  *rq.Frame
	raw       string // pre-rendered SQL (set unions); overrides the rest
}

func newSegment() *segment {
	return &segment{limit: -1, offset: -1}
}

func (s *segment) multiSource() bool {
	return len(s.sources) > 1
}

func (s *segment) hasSource(alias string) bool {
	for _, a := range s.sources {
		if a == alias {
			return true
		}
	}
	return false
}

func (s *segment) limited() bool {
	return s.limit >= 0 || s.offset >= 0
}

func (g *generator) fail(e *Error) {
	if g.err == nil {
		g.err = e
	}
}

func (g *generator) nextTable() string {
	name := fmt.Sprintf("table_%d", g.tableN)
	g.tableN++
	return name
}

func (g *generator) aliasFor(c rq.Column) string {
	if c.Name != "" {
		return c.Name
	}
	if a, ok := g.aliases[c.ID]; ok {
		return a
	}
	a := fmt.Sprintf("_expr_%d", g.exprN)
	g.exprN++
	g.aliases[c.ID] = a
	return a
}

// exportNames marks a frame's columns as materialized: later references
// render as the bare output alias.
func (g *generator) exportNames(f *rq.Frame) {
	if f == nil {
		return
	}
	for _, c := range f.Columns {
		g.names[c.ID] = g.d.QuoteIfNeeded(g.aliasFor(c))
	}
}

// flush materializes the current segment as a CTE and starts a fresh one
// reading from it.
func (g *generator) flush(seg *segment) *segment {
	body := g.renderSegment(seg)
	name := g.nextTable()
	g.ctes = append(g.ctes, cte{name: name, body: body})
	g.exportNames(seg.outFrame)

	next := newSegment()
	next.fromSQL = name
	next.sources = []string{name}
	next.outFrame = seg.outFrame
	return next
}

// genPipeline renders one transform pipeline, contributing CTEs to the
// generator and returning the final SELECT.
func (g *generator) genPipeline(ts []rq.Transform) string {
	seg := newSegment()

	for _, t := range ts {
		switch x := t.(type) {
		case *rq.From:
			g.applyFrom(seg, x)

		case *rq.Compute:
			if seg.raw != "" || seg.agg != nil || seg.window != nil || seg.limited() || seg.selectIDs != nil {
				seg = g.flush(seg)
			}
			seg.computes = append(seg.computes, x.Col)
			seg.outFrame = x.Out

		case *rq.Filter:
			if seg.raw != "" || seg.window != nil || seg.limited() {
				seg = g.flush(seg)
			}
			cond := g.renderExpr(seg, x.Cond, precNone)
			if seg.agg != nil {
				seg.having = append(seg.having, cond)
			} else {
				seg.where = append(seg.where, cond)
			}
			seg.outFrame = x.Out

		case *rq.Select:
			if seg.raw != "" || seg.window != nil {
				seg = g.flush(seg)
			}
			seg.selectIDs = x.IDs
			seg.outFrame = x.Out

		case *rq.Aggregate:
			if seg.raw != "" || seg.agg != nil || seg.window != nil || seg.limited() ||
				seg.selectIDs != nil || len(seg.order) > 0 {
				seg = g.flush(seg)
			}
			seg.agg = x
			seg.outFrame = x.Out

		case *rq.Sort:
			if seg.raw != "" || seg.limited() {
				seg = g.flush(seg)
			}
			seg.order = x.Keys
			seg.outFrame = x.Out

		case *rq.Take:
			if seg.raw != "" || seg.limited() {
				seg = g.flush(seg)
			}
			seg.limit, seg.offset = x.Limit, x.Offset
			seg.outFrame = x.Out

		case *rq.Join:
			if seg.raw != "" || seg.agg != nil || seg.window != nil || seg.limited() || seg.selectIDs != nil {
				seg = g.flush(seg)
			}
			g.applyJoin(seg, x)

		case *rq.Window:
			if !g.d.SupportsWindow {
				g.fail(unsupported(g.d.Name, "window functions"))
			}
			if seg.raw != "" || seg.agg != nil || seg.window != nil || seg.limited() || seg.selectIDs != nil {
				seg = g.flush(seg)
			}
			seg.window = x
			seg.outFrame = x.Out

		case *rq.Append:
			right := g.genPipeline(x.Pipeline)
			left := g.renderSegment(seg)
			sep := "\n"
			if g.compact {
				sep = " "
			}
			seg = newSegment()
			seg.raw = left + sep + "UNION ALL" + sep + right
			seg.outFrame = x.Out

		default:
			g.fail(&Error{Dialect: g.d.Name, Message: fmt.Sprintf("cannot render transform %T", t)})
		}
	}

	return g.renderSegment(seg)
}

func (g *generator) applyFrom(seg *segment, f *rq.From) {
	switch rel := f.Rel.(type) {
	case *rq.Table:
		seg.fromSQL = g.d.QuoteIfNeeded(rel.Name)
		seg.sources = []string{rel.Name}

	case *rq.Values:
		alias := g.nextTable()
		cols := make([]string, len(rel.Names))
		for i, n := range rel.Names {
			cols[i] = g.d.QuoteIfNeeded(n)
		}
		rows := make([]string, len(rel.Rows))
		for i, row := range rel.Rows {
			vals := make([]string, len(row))
			for j, v := range row {
				vals[j] = g.renderExpr(seg, v, precNone)
			}
			rows[i] = "(" + strings.Join(vals, ", ") + ")"
		}
		seg.fromSQL = fmt.Sprintf("(VALUES %s) AS %s (%s)",
			strings.Join(rows, ", "), alias, strings.Join(cols, ", "))
		seg.sources = []string{alias}

	case *rq.Nested:
		g.emitNested(rel)
		seg.fromSQL = g.d.QuoteIfNeeded(rel.Alias)
		seg.sources = []string{rel.Alias}

	default:
		g.fail(&Error{Dialect: g.d.Name, Message: fmt.Sprintf("cannot render relation %T", f.Rel)})
	}
	seg.outFrame = f.Out
}

func (g *generator) applyJoin(seg *segment, j *rq.Join) {
	var kw string
	switch j.Side {
	case "left":
		kw = "LEFT JOIN"
	case "right":
		kw = "RIGHT JOIN"
	case "full":
		if !g.d.SupportsFullJoin {
			g.fail(unsupported(g.d.Name, "FULL OUTER JOIN"))
		}
		kw = "FULL JOIN"
	default:
		kw = "JOIN"
	}

	var name string
	switch rel := j.With.(type) {
	case *rq.Table:
		name = g.d.QuoteIfNeeded(rel.Name)
		seg.sources = append(seg.sources, rel.Name)
	case *rq.Nested:
		g.emitNested(rel)
		name = g.d.QuoteIfNeeded(rel.Alias)
		seg.sources = append(seg.sources, rel.Alias)
	default:
		g.fail(&Error{Dialect: g.d.Name, Message: fmt.Sprintf("cannot join relation %T", j.With)})
	}

	cond := g.renderExpr(seg, j.Cond, precNone)
	seg.joins = append(seg.joins, kw+" "+name+" ON "+cond)
	seg.outFrame = j.Out
}

// emitNested writes a declaration's pipeline as a CTE. A declaration
// referenced more than once is written on the first reference only; later
// references read the same CTE.
func (g *generator) emitNested(rel *rq.Nested) {
	if _, done := g.emitted[rel.Alias]; !done {
		g.emitted[rel.Alias] = struct{}{}
		body := g.genPipeline(rel.Pipeline)
		g.ctes = append(g.ctes, cte{name: rel.Alias, body: body})
	}
	g.exportNames(pipelineFrame(rel.Pipeline))
}

// renderSegment renders one query level as a SELECT statement.
func (g *generator) renderSegment(seg *segment) string {
	if seg.raw != "" {
		return seg.raw
	}

	top, tail, needOrder := g.limitClauses(seg)

	p := newPrinter(g.compact)
	p.Clause("SELECT " + top + g.selectList(seg))
	p.Clause("FROM " + seg.fromSQL)
	for _, j := range seg.joins {
		p.Clause(j)
	}
	if len(seg.where) > 0 {
		p.Clause("WHERE " + strings.Join(seg.where, " AND "))
	}
	if seg.agg != nil && len(seg.agg.Keys) > 0 {
		keys := make([]string, len(seg.agg.Keys))
		for i, k := range seg.agg.Keys {
			keys[i] = g.renderRef(seg, k, precNone)
		}
		p.Clause("GROUP BY " + strings.Join(keys, ", "))
	}
	if len(seg.having) > 0 {
		p.Clause("HAVING " + strings.Join(seg.having, " AND "))
	}
	switch {
	case len(seg.order) > 0:
		p.Clause("ORDER BY " + g.sortList(seg, seg.order))
	case needOrder:
		// OFFSET FETCH is only valid after ORDER BY.
		p.Clause("ORDER BY (SELECT NULL)")
	}
	for _, c := range tail {
		p.Clause(c)
	}
	return p.String()
}

func (g *generator) selectList(seg *segment) string {
	var items []string

	appendItem := func(ref string, c rq.Column) {
		alias := g.d.QuoteIfNeeded(g.aliasFor(c))
		if ref != alias {
			ref += " AS " + alias
		}
		items = append(items, ref)
	}

	switch {
	case seg.selectIDs != nil:
		for _, id := range seg.selectIDs {
			c, ok := g.catalog[id]
			if !ok {
				g.fail(&Error{Dialect: g.d.Name, Message: fmt.Sprintf("unknown column id %d", id)})
				continue
			}
			appendItem(g.renderRef(seg, id, precNone), c)
		}

	case seg.agg != nil:
		for _, k := range seg.agg.Keys {
			c, ok := g.catalog[k]
			if !ok {
				g.fail(&Error{Dialect: g.d.Name, Message: fmt.Sprintf("unknown column id %d", k)})
				continue
			}
			appendItem(g.renderRef(seg, k, precNone), c)
		}
		for _, c := range seg.agg.Aggs {
			appendItem(g.renderExpr(seg, c.Expr, precNone), c)
		}

	default:
		items = append(items, "*")
		for _, c := range seg.computes {
			appendItem(g.renderExpr(seg, c.Expr, precNone), c)
		}
		if seg.window != nil {
			items = append(items, g.windowItem(seg, seg.window))
		}
	}

	return strings.Join(items, ", ")
}

func (g *generator) windowItem(seg *segment, w *rq.Window) string {
	fn := strings.ToUpper(w.Func) + "()"
	if tmpl, ok := g.d.FunctionSQL(w.Func); ok {
		fn = tmpl
	}

	var over []string
	if len(w.PartitionBy) > 0 {
		keys := make([]string, len(w.PartitionBy))
		for i, k := range w.PartitionBy {
			keys[i] = g.renderRef(seg, k, precNone)
		}
		over = append(over, "PARTITION BY "+strings.Join(keys, ", "))
	}
	if len(w.OrderBy) > 0 {
		over = append(over, "ORDER BY "+g.sortList(seg, w.OrderBy))
	}

	alias := g.d.QuoteIfNeeded(g.aliasFor(w.Col))
	return fn + " OVER (" + strings.Join(over, " ") + ") AS " + alias
}

func (g *generator) sortList(seg *segment, keys []rq.SortKey) string {
	items := make([]string, len(keys))
	for i, k := range keys {
		items[i] = g.renderRef(seg, k.ID, precNone)
		if k.Desc {
			items[i] += " DESC"
		}
	}
	return strings.Join(items, ", ")
}

// limitClauses renders row limiting per the dialect's style. top is spliced
// after the SELECT keyword; tail clauses follow ORDER BY; needOrder forces
// a placeholder ORDER BY for styles that require one.
func (g *generator) limitClauses(seg *segment) (top string, tail []string, needOrder bool) {
	if !seg.limited() {
		return "", nil, false
	}
	limit, offset := seg.limit, seg.offset

	switch g.d.Limit {
	case dialect.StyleTop:
		if offset < 0 {
			return fmt.Sprintf("TOP %d ", limit), nil, false
		}
		return "", offsetFetch(limit, offset), true

	case dialect.StyleOffsetFetch:
		return "", offsetFetch(limit, offset), true

	case dialect.StyleLimitComma:
		switch {
		case offset >= 0 && limit >= 0:
			return "", []string{fmt.Sprintf("LIMIT %d, %d", offset, limit)}, false
		case limit >= 0:
			return "", []string{fmt.Sprintf("LIMIT %d", limit)}, false
		default:
			// The documented MySQL idiom for offset without limit.
			return "", []string{fmt.Sprintf("LIMIT %d, 18446744073709551615", offset)}, false
		}

	default:
		if limit >= 0 {
			tail = append(tail, fmt.Sprintf("LIMIT %d", limit))
		}
		if offset >= 0 {
			tail = append(tail, fmt.Sprintf("OFFSET %d", offset))
		}
		return "", tail, false
	}
}

func offsetFetch(limit, offset int64) []string {
	if offset < 0 {
		offset = 0
	}
	out := []string{fmt.Sprintf("OFFSET %d ROWS", offset)}
	if limit >= 0 {
		out = append(out, fmt.Sprintf("FETCH NEXT %d ROWS ONLY", limit))
	}
	return out
}

// assemble prepends the accumulated CTEs to the final SELECT.
func (g *generator) assemble(final string) string {
	if len(g.ctes) == 0 {
		return final
	}

	if g.compact {
		parts := make([]string, len(g.ctes))
		for i, c := range g.ctes {
			parts[i] = c.name + " AS (" + c.body + ")"
		}
		return "WITH " + strings.Join(parts, ", ") + " " + final
	}

	var b strings.Builder
	b.WriteString("WITH ")
	for i, c := range g.ctes {
		if i > 0 {
			b.WriteString(",\n")
		}
		b.WriteString(c.name)
		b.WriteString(" AS (\n")
		b.WriteString(indentLines(c.body))
		b.WriteString("\n)")
	}
	b.WriteString("\n")
	b.WriteString(final)
	return b.String()
}

func indentLines(s string) string {
	pad := strings.Repeat(" ", indentSize)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = pad + l
	}
	return strings.Join(lines, "\n")
}

// pipelineFrame returns the output frame of a pipeline's last transform.
func pipelineFrame(ts []rq.Transform) *rq.Frame {
	if len(ts) == 0 {
		return nil
	}
	return ts[len(ts)-1].OutFrame()
}

// buildCatalog indexes every column visible anywhere in the query.
func buildCatalog(ts []rq.Transform, cat map[rq.CID]rq.Column) {
	for _, t := range ts {
		if f := t.OutFrame(); f != nil {
			for _, c := range f.Columns {
				if _, ok := cat[c.ID]; !ok {
					cat[c.ID] = c
				}
			}
		}
		switch x := t.(type) {
		case *rq.From:
			if n, ok := x.Rel.(*rq.Nested); ok {
				buildCatalog(n.Pipeline, cat)
			}
		case *rq.Join:
			if n, ok := x.With.(*rq.Nested); ok {
				buildCatalog(n.Pipeline, cat)
			}
		case *rq.Append:
			buildCatalog(x.Pipeline, cat)
		case *rq.Window:
			if _, ok := cat[x.Col.ID]; !ok {
				cat[x.Col.ID] = x.Col
			}
		}
	}
}
