// Package domain defines the semantic query IR, catalog value objects,
// and errors shared across the compiler pipeline.
package domain

import "fmt"

// ValidationError indicates a semantic query that cannot be compiled as
// written. Recoverable; surfaced to the caller for clarification.
type ValidationError struct {
	Message string
	// Reasons holds the individual validation failures when the error
	// aggregates a validator run.
	Reasons []string
}

func (e *ValidationError) Error() string { return e.Message }

// NotFoundError indicates a named resource (metric, dimension) was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// CompileError indicates an internal inconsistency between the validator and
// the compiler (unresolved join target, malformed metric definition). Should
// be unreachable for validated input; logged loudly, never swallowed.
type CompileError struct {
	Message string
}

func (e *CompileError) Error() string { return e.Message }

// ExecutionError wraps a failure from the SQL executor. Propagated as-is;
// the raw database text stays inside Cause and is not exposed at the API
// boundary.
type ExecutionError struct {
	Message string
	Cause   error
}

func (e *ExecutionError) Error() string { return e.Message }

func (e *ExecutionError) Unwrap() error { return e.Cause }

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidationList creates a ValidationError aggregating validator output.
func ErrValidationList(reasons []string) *ValidationError {
	return &ValidationError{
		Message: fmt.Sprintf("invalid query: %d validation error(s)", len(reasons)),
		Reasons: reasons,
	}
}

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrCompile creates a CompileError with a formatted message.
func ErrCompile(format string, args ...interface{}) *CompileError {
	return &CompileError{Message: fmt.Sprintf(format, args...)}
}

// ErrExecution wraps an executor failure.
func ErrExecution(cause error, format string, args ...interface{}) *ExecutionError {
	return &ExecutionError{Message: fmt.Sprintf(format, args...), Cause: cause}
}
