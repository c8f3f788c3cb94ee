package filter

import "errors"

var (
	// ErrCompile is returned when a filter expression does not compile.
	ErrCompile = errors.New("filter: compile expression")
	// ErrNotBool is returned when an expression does not evaluate to a bool.
	ErrNotBool = errors.New("filter: expression must return bool")
	// ErrEval is returned when evaluating an expression against a fix fails.
	ErrEval = errors.New("filter: evaluate expression")
)
