package sqlgen

import "fmt"

// Error is a generation error, reported when the target dialect lacks a
// feature the query requires.
type Error struct {
	Dialect string
	Feature string
	Message string
}

func (e *Error) Error() string {
	return "generate error: " + e.Message
}

func unsupported(dialect, feature string) *Error {
	return &Error{
		Dialect: dialect,
		Feature: feature,
		Message: fmt.Sprintf("dialect %s does not support %s", dialect, feature),
	}
}
