package filter

import (
	"errors"
	"fmt"

	"github.com/expr-lang/expr/file"
)

// ErrUnknownFilter is returned when a named filter was never registered
var ErrUnknownFilter = errors.New("unknown filter")

// Error types for filter operations
type (
	// CompilationError indicates a filter expression could not be compiled
	CompilationError struct {
		Expression string
		Reason     string
		Position   int // -1 if position is unknown
		Err        error
	}

	// EvaluationError indicates a filter could not be evaluated for an item
	EvaluationError struct {
		Expression string
		ItemID     int64
		Err        error
	}
)

func (e *CompilationError) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("compilation error at position %d in '%s': %s", e.Position, e.Expression, e.Reason)
	}
	return fmt.Sprintf("compilation error in '%s': %s", e.Expression, e.Reason)
}

func (e *CompilationError) Unwrap() error {
	return e.Err
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluation error for '%s' on item %d: %v", e.Expression, e.ItemID, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// newCompilationError pulls the column and message out of expr's errors
func newCompilationError(expression string, err error) *CompilationError {
	compErr := &CompilationError{
		Expression: expression,
		Reason:     err.Error(),
		Position:   -1,
		Err:        err,
	}

	var exprErr *file.Error
	if errors.As(err, &exprErr) {
		compErr.Reason = exprErr.Message
		compErr.Position = exprErr.Column
	}
	return compErr
}
