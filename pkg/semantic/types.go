package semantic

import (
	"fmt"

	"github.com/leapstack-labs/leapq/pkg/ast"
	"github.com/leapstack-labs/leapq/pkg/rq"
)

// Static typing is deliberately coarse: column types are unknown without a
// schema, so checks only reject combinations that are provably wrong from
// literals and operator shapes.

type kind string

const (
	kindNumber  kind = "number"
	kindString  kind = "string"
	kindBool    kind = "bool"
	kindDate    kind = "date"
	kindNull    kind = "null"
	kindUnknown kind = "unknown"
)

func typeOf(e rq.Expr) kind {
	switch x := e.(type) {
	case *rq.Literal:
		switch x.Kind {
		case rq.LitInt, rq.LitFloat:
			return kindNumber
		case rq.LitString:
			return kindString
		case rq.LitBool:
			return kindBool
		case rq.LitDate:
			return kindDate
		case rq.LitNull:
			return kindNull
		}
		return kindUnknown
	case *rq.Binary:
		switch x.Op {
		case "==", "!=", "<", ">", "<=", ">=", "&&", "||":
			return kindBool
		default:
			return kindNumber
		}
	case *rq.Unary:
		if x.Op == "!" {
			return kindBool
		}
		return kindNumber
	case *rq.FuncCall:
		switch x.Name {
		case "lower", "upper", "trim":
			return kindString
		case "min", "max", "lag", "lead":
			return kindUnknown
		default:
			return kindNumber
		}
	default:
		return kindUnknown
	}
}

// comparableKinds reports whether two operand kinds may meet under a comparison.
func comparableKinds(a, b kind) bool {
	if a == kindUnknown || b == kindUnknown || a == kindNull || b == kindNull {
		return true
	}
	return a == b
}

func checkBinary(src *ast.Binary, left, right rq.Expr) error {
	lk, rk := typeOf(left), typeOf(right)

	mismatch := func(msg string) error {
		return &Error{Kind: ErrTypeMismatch, Pos: src.Loc.Start, Message: msg}
	}

	switch src.Op {
	case "+", "-", "*", "/", "%":
		for _, k := range []kind{lk, rk} {
			if k == kindString || k == kindBool {
				return mismatch(fmt.Sprintf("operator %s is not defined for %s operands", src.Op, k))
			}
		}
	case "==", "!=", "<", ">", "<=", ">=":
		if !comparableKinds(lk, rk) {
			return mismatch(fmt.Sprintf("cannot compare %s with %s", lk, rk))
		}
	case "&&", "||":
		for _, k := range []kind{lk, rk} {
			if k != kindBool && k != kindUnknown {
				return mismatch(fmt.Sprintf("operator %s requires boolean operands, got %s", src.Op, k))
			}
		}
	}
	return nil
}

func checkUnary(src *ast.Unary, inner rq.Expr) error {
	k := typeOf(inner)
	switch src.Op {
	case "-":
		if k == kindString || k == kindBool {
			return &Error{
				Kind:    ErrTypeMismatch,
				Pos:     src.Loc.Start,
				Message: fmt.Sprintf("operator - is not defined for %s operands", k),
			}
		}
	case "!":
		if k != kindBool && k != kindUnknown {
			return &Error{
				Kind:    ErrTypeMismatch,
				Pos:     src.Loc.Start,
				Message: fmt.Sprintf("operator ! requires a boolean operand, got %s", k),
			}
		}
	}
	return nil
}

// containsAggregate reports whether an aggregate function call appears
// anywhere in the expression.
func (r *Resolver) containsAggregate(e rq.Expr) bool {
	switch x := e.(type) {
	case *rq.FuncCall:
		if sig, ok := r.reg.Lookup(x.Name); ok && sig.Class == ClassAggregate {
			return true
		}
		for _, a := range x.Args {
			if r.containsAggregate(a) {
				return true
			}
		}
	case *rq.Binary:
		return r.containsAggregate(x.Left) || r.containsAggregate(x.Right)
	case *rq.Unary:
		return r.containsAggregate(x.Expr)
	}
	return false
}

func frameHasName(f *rq.Frame, name string) bool {
	for _, c := range f.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}
