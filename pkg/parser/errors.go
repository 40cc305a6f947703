package parser

import (
	"fmt"

	"github.com/leapstack-labs/leapq/pkg/token"
)

// ErrorKind classifies parse errors.
type ErrorKind string

const (
	ErrUnexpectedToken    ErrorKind = "unexpected_token"
	ErrUnexpectedChar     ErrorKind = "unexpected_character"
	ErrUnterminatedString ErrorKind = "unterminated_string"
	ErrInvalidLiteral     ErrorKind = "invalid_literal"
	ErrExpectedTransform  ErrorKind = "expected_transform"
)

// Error is a parse error with a source position.
type Error struct {
	Kind    ErrorKind
	Pos     token.Position
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Pos.Line, e.Pos.Column, e.Message)
}
