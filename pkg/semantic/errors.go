package semantic

import (
	"fmt"

	"github.com/leapstack-labs/leapq/pkg/token"
)

// ErrorKind classifies resolution errors.
type ErrorKind string

const (
	ErrUnboundReference     ErrorKind = "unbound_reference"
	ErrArityMismatch        ErrorKind = "arity_mismatch"
	ErrTypeMismatch         ErrorKind = "type_mismatch"
	ErrAmbiguousColumn      ErrorKind = "ambiguous_column"
	ErrDuplicateDeclaration ErrorKind = "duplicate_declaration"
)

// Error is a resolution error. Symbol names the offending reference or
// declaration when one exists.
type Error struct {
	Kind    ErrorKind
	Symbol  string
	Pos     token.Position
	Message string
}

func (e *Error) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("resolve error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
	}
	return "resolve error: " + e.Message
}
