package shared

import "errors"

// ErrorKind classifies a domain error so outer layers can map it without
// inspecting messages.
type ErrorKind string

const (
	// KindValidation is returned when a command's input is malformed
	KindValidation ErrorKind = "validation"
	// KindState is returned when the aggregate's status does not permit the command
	KindState ErrorKind = "state"
	// KindBusinessRule is returned when well-formed input violates a domain rule
	KindBusinessRule ErrorKind = "business_rule"
	KindNotFound     ErrorKind = "not_found"
	KindConflict     ErrorKind = "conflict"
)

// DomainError represents a domain-level error
type DomainError struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so sentinel comparisons survive wrapping
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(kind ErrorKind, code, message string) *DomainError {
	return &DomainError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// NewValidationError creates an error for malformed command input
func NewValidationError(code, message string) *DomainError {
	return NewDomainError(KindValidation, code, message)
}

// NewStateError creates an error for a command the current status rejects
func NewStateError(code, message string) *DomainError {
	return NewDomainError(KindState, code, message)
}

// NewBusinessRuleError creates an error for a violated domain rule
func NewBusinessRuleError(code, message string) *DomainError {
	return NewDomainError(KindBusinessRule, code, message)
}

// KindOf returns the kind of the first DomainError in err's chain.
// The empty kind is returned for errors that are not domain errors.
func KindOf(err error) ErrorKind {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsValidationError reports whether err is a validation error
func IsValidationError(err error) bool {
	return KindOf(err) == KindValidation
}

// IsStateError reports whether err is a state error
func IsStateError(err error) bool {
	return KindOf(err) == KindState
}

// IsBusinessRuleError reports whether err is a business rule error
func IsBusinessRuleError(err error) bool {
	return KindOf(err) == KindBusinessRule
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(KindNotFound, "NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError(KindConflict, "ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError(KindValidation, "INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError(KindConflict, "CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError(KindState, "INVALID_STATE", "Operation not allowed in current state")
)
