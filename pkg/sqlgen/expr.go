package sqlgen

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapq/pkg/rq"
)

// Operator precedence, used only to decide parenthesization.
const (
	precNone = iota
	precOr
	precAnd
	precCmp
	precAdd
	precMul
	precUnary
)

func opPrec(op string) int {
	switch op {
	case "||":
		return precOr
	case "&&":
		return precAnd
	case "==", "!=", "<", ">", "<=", ">=":
		return precCmp
	case "+", "-":
		return precAdd
	case "*", "/", "%":
		return precMul
	default:
		return precNone
	}
}

func sqlOp(op string) string {
	switch op {
	case "==":
		return "="
	case "!=":
		return "<>"
	case "&&":
		return "AND"
	case "||":
		return "OR"
	default:
		return op
	}
}

// renderExpr renders a resolved expression. parent is the precedence of the
// enclosing operator; subexpressions binding looser get parenthesized.
func (g *generator) renderExpr(seg *segment, e rq.Expr, parent int) string {
	switch x := e.(type) {
	case *rq.Literal:
		return g.literal(x)

	case *rq.ColumnRef:
		return g.renderRef(seg, x.ID, parent)

	case *rq.FuncCall:
		return g.renderCall(seg, x)

	case *rq.Binary:
		prec := opPrec(x.Op)
		s := g.renderExpr(seg, x.Left, prec) + " " + sqlOp(x.Op) + " " + g.renderExpr(seg, x.Right, prec+1)
		if prec < parent {
			return "(" + s + ")"
		}
		return s

	case *rq.Unary:
		if x.Op == "!" {
			s := "NOT " + g.renderExpr(seg, x.Expr, precUnary)
			if parent >= precCmp {
				return "(" + s + ")"
			}
			return s
		}
		return "-" + g.renderExpr(seg, x.Expr, precUnary)

	default:
		g.fail(&Error{Dialect: g.d.Name, Message: fmt.Sprintf("cannot render expression %T", e)})
		return "NULL"
	}
}

func (g *generator) renderCall(seg *segment, c *rq.FuncCall) string {
	if c.Windowed && !g.d.SupportsWindow {
		g.fail(unsupported(g.d.Name, "window functions"))
	}

	args := make([]any, len(c.Args))
	for i, a := range c.Args {
		args[i] = g.renderExpr(seg, a, precNone)
	}

	var s string
	if tmpl, ok := g.d.FunctionSQL(c.Name); ok {
		s = fmt.Sprintf(tmpl, args...)
	} else {
		parts := make([]string, len(args))
		for i, a := range args {
			parts[i] = a.(string)
		}
		s = strings.ToUpper(c.Name) + "(" + strings.Join(parts, ", ") + ")"
	}
	if c.Windowed {
		s += " OVER ()"
	}
	return s
}

// renderRef renders a reference to a frame column. Columns materialized by
// an earlier query level render as their output alias; computed columns not
// yet materialized inline their defining expression.
func (g *generator) renderRef(seg *segment, id rq.CID, parent int) string {
	if s, ok := g.names[id]; ok {
		return s
	}
	col, ok := g.catalog[id]
	if !ok {
		g.fail(&Error{Dialect: g.d.Name, Message: fmt.Sprintf("unknown column id %d", id)})
		return "NULL"
	}
	if col.Expr != nil {
		return g.renderExpr(seg, col.Expr, parent)
	}
	name := g.d.QuoteIfNeeded(col.Name)
	if col.Relation != "" && seg != nil && seg.multiSource() && seg.hasSource(col.Relation) {
		return g.d.QuoteIfNeeded(col.Relation) + "." + name
	}
	return name
}

func (g *generator) literal(l *rq.Literal) string {
	switch l.Kind {
	case rq.LitInt, rq.LitFloat:
		return l.Value
	case rq.LitString:
		return "'" + strings.ReplaceAll(l.Value, "'", "''") + "'"
	case rq.LitBool:
		if g.d.BoolAsInt {
			if l.Value == "true" {
				return "1"
			}
			return "0"
		}
		return strings.ToUpper(l.Value)
	case rq.LitNull:
		return "NULL"
	case rq.LitDate:
		return fmt.Sprintf(g.d.DateTemplate, l.Value)
	default:
		g.fail(&Error{Dialect: g.d.Name, Message: fmt.Sprintf("unknown literal kind %q", l.Kind)})
		return "NULL"
	}
}
