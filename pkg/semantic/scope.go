package semantic

import "github.com/leapstack-labs/leapq/pkg/ast"

// scope is a lexical binding environment. Function inlining pushes a child
// scope mapping parameter names to argument expressions; lookups walk the
// parent chain. Scopes are never mutated after creation, so a child can be
// discarded without affecting its parent.
type scope struct {
	parent *scope
	params map[string]ast.Expr
}

func newScope(parent *scope, params map[string]ast.Expr) *scope {
	return &scope{parent: parent, params: params}
}

// lookupParam resolves a parameter binding, innermost first.
func (s *scope) lookupParam(name string) (ast.Expr, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if cur.params != nil {
			if e, ok := cur.params[name]; ok {
				return e, true
			}
		}
	}
	return nil, false
}
