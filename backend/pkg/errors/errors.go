package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeGraph represents graph database errors
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypeSync represents relational-to-graph replication errors
	ErrorTypeSync ErrorType = "sync"
	// ErrorTypeRelational represents relational store errors
	ErrorTypeRelational ErrorType = "relational"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
	// ErrorTypeContext represents context cancellation/timeout errors
	ErrorTypeContext ErrorType = "context"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// ErrorKind reports the category. Promoted through every type embedding *BaseError.
func (e *BaseError) ErrorKind() ErrorType {
	return e.Type
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Graph Errors

// ErrGraphNotFound is returned when a node required by an operation is absent
type ErrGraphNotFound struct {
	*BaseError
	Kind string
	Key  string
}

func NewGraphNotFound(kind, key string) *ErrGraphNotFound {
	return &ErrGraphNotFound{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("%s not found: %s", kind, key), nil),
		Kind:      kind,
		Key:       key,
	}
}

// ErrGraphUnavailable is returned when the graph backend cannot be reached
type ErrGraphUnavailable struct {
	*BaseError
	Backend string
}

func NewGraphUnavailable(backend string, err error) *ErrGraphUnavailable {
	return &ErrGraphUnavailable{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("graph backend unavailable: %s", backend), err),
		Backend:   backend,
	}
}

// ErrGraphConstraint is returned when a unique property would be duplicated
type ErrGraphConstraint struct {
	*BaseError
	Kind string
	Key  string
}

func NewGraphConstraint(kind, key string, err error) *ErrGraphConstraint {
	return &ErrGraphConstraint{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("unique constraint violated on %s: %s", kind, key), err),
		Kind:      kind,
		Key:       key,
	}
}

// ErrGraphQueryFailed is returned when a graph query fails
type ErrGraphQueryFailed struct {
	*BaseError
	Query string
}

func NewGraphQueryFailed(query string, err error) *ErrGraphQueryFailed {
	return &ErrGraphQueryFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("query failed: %s", query), err),
		Query:     query,
	}
}

// Relational Errors

// ErrRecordNotFound is returned when a relational row does not exist
type ErrRecordNotFound struct {
	*BaseError
	Entity string
	ID     int64
}

func NewRecordNotFound(entity string, id int64) *ErrRecordNotFound {
	return &ErrRecordNotFound{
		BaseError: NewBaseError(ErrorTypeRelational, fmt.Sprintf("%s not found: %d", entity, id), nil),
		Entity:    entity,
		ID:        id,
	}
}

// Context Errors

// ErrContextTimeout is returned when context times out
type ErrContextTimeout struct {
	*BaseError
	Operation string
	Timeout   time.Duration
}

func NewContextTimeout(operation string, timeout time.Duration, err error) *ErrContextTimeout {
	return &ErrContextTimeout{
		BaseError: NewBaseError(ErrorTypeContext, fmt.Sprintf("context timeout: %s (timeout: %v)", operation, timeout), err),
		Operation: operation,
		Timeout:   timeout,
	}
}

// Config Errors

// ErrConfigValidationFailed is returned when configuration validation fails
type ErrConfigValidationFailed struct {
	*BaseError
	Field  string
	Reason string
}

func NewConfigValidationFailed(field, reason string) *ErrConfigValidationFailed {
	return &ErrConfigValidationFailed{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("config validation failed: %s - %s", field, reason), nil),
		Field:     field,
		Reason:    reason,
	}
}

// ErrConfigMissingRequired is returned when a required config value is missing
type ErrConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ErrConfigMissingRequired {
	return &ErrConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Helper functions

// IsErrorType checks if an error, or anything it wraps, is of a specific type.
// Both single and multi-error wrapping are followed.
func IsErrorType(err error, errType ErrorType) bool {
	if err == nil {
		return false
	}
	if kinded, ok := err.(interface{ ErrorKind() ErrorType }); ok && kinded.ErrorKind() == errType {
		return true
	}
	switch wrapped := err.(type) {
	case interface{ Unwrap() error }:
		return IsErrorType(wrapped.Unwrap(), errType)
	case interface{ Unwrap() []error }:
		for _, inner := range wrapped.Unwrap() {
			if IsErrorType(inner, errType) {
				return true
			}
		}
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	// Context errors are not retryable
	if IsErrorType(err, ErrorTypeContext) {
		return false
	}
	var constraint *ErrGraphConstraint
	if stderrors.As(err, &constraint) {
		return true
	}
	var unavailable *ErrGraphUnavailable
	return stderrors.As(err, &unavailable)
}
