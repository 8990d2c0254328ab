package optimization

import (
	"errors"
	"fmt"
)

// Sentinel errors for malformed problems. Expected optimization failure
// (non-convergence, infeasibility) is never reported through these; it is
// carried by the ok flag of the optimizer instead.
var (
	// ErrEmptyProblem is returned when a problem has no dimensions.
	ErrEmptyProblem = errors.New("problem has no dimensions")
	// ErrDimensionMismatch is returned when vectors, ranges or matrices disagree in size.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrInvalidRange is returned when a range has lower > upper or a NaN endpoint.
	ErrInvalidRange = errors.New("invalid range")
	// ErrNonSquare is returned when a square matrix is required.
	ErrNonSquare = errors.New("matrix is not square")
	// ErrStartOutOfRange is returned when a start node is not a valid index.
	ErrStartOutOfRange = errors.New("start node out of range")
	// ErrUnknownMethod is returned for an unrecognised solver method.
	ErrUnknownMethod = errors.New("unknown method")
	// ErrBoundsRequired is returned when an operation needs finite bounds.
	ErrBoundsRequired = errors.New("finite bounds required")
)

// Error represents an optimization error with context
// that can be wrapped with additional information.
type Error struct {
	// Message describes the error that occurred.
	Message string
	// Op is the operation that caused the error.
	Op string
	// Component is the component where the error occurred.
	Component string
	// Err is the underlying error that triggered this one, if any.
	Err error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var prefix string
	if e.Component != "" && e.Op != "" {
		prefix = fmt.Sprintf("%s: %s", e.Component, e.Op)
	} else if e.Component != "" {
		prefix = e.Component
	} else if e.Op != "" {
		prefix = e.Op
	}

	if e.Err != nil {
		if prefix != "" {
			return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}

	if prefix != "" {
		return fmt.Sprintf("%s: %s", prefix, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithOperation adds operation context to the error.
func (e *Error) WithOperation(op string) *Error {
	e.Op = op
	return e
}

// WithComponent adds component context to the error.
func (e *Error) WithComponent(component string) *Error {
	e.Component = component
	return e
}

// NewError creates a new optimization error with the given message.
func NewError(message string) *Error {
	return &Error{
		Message: message,
	}
}

// NewErrorf creates a new optimization error with formatted message.
func NewErrorf(format string, args ...interface{}) *Error {
	return &Error{
		Message: fmt.Sprintf(format, args...),
	}
}

// WrapError wraps an existing error with additional context.
// If err is nil, WrapError returns nil.
func WrapError(err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Message: message,
		Err:     err,
	}
}

// WrapErrorf wraps an existing error with additional formatted context.
// If err is nil, WrapErrorf returns nil.
func WrapErrorf(err error, format string, args ...interface{}) *Error {
	if err == nil {
		return nil
	}
	return &Error{
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// IsOptimizationError checks if an error is of type Error.
// If the error is an optimization error, it returns the error and true.
// Otherwise, it returns nil and false.
func IsOptimizationError(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
