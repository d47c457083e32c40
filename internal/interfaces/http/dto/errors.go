package dto

import (
	"errors"
	"net/http"

	"github.com/lousydropout/invoice-me-sub000/internal/domain/invoicing"
	"github.com/lousydropout/invoice-me-sub000/internal/domain/shared"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
)

// Validation error codes
const (
	// ErrCodeValidation is used for malformed input, from binding or the domain
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when the invoice status rejects the command
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeBusinessRule is used when well-formed input violates a ledger rule
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:        http.StatusInternalServerError,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeValidation:  http.StatusBadRequest,
	ErrCodeBadRequest:  http.StatusBadRequest,
	ErrCodeInvalidJSON: http.StatusBadRequest,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeInvalidState: http.StatusConflict,
	ErrCodeBusinessRule: http.StatusUnprocessableEntity,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// kindErrorCodes maps domain error kinds to API codes
var kindErrorCodes = map[shared.ErrorKind]string{
	shared.KindValidation:   ErrCodeValidation,
	shared.KindState:        ErrCodeInvalidState,
	shared.KindBusinessRule: ErrCodeBusinessRule,
	shared.KindNotFound:     ErrCodeNotFound,
	shared.KindConflict:     ErrCodeConflict,
}

// conflictErrorCodes refines conflicts whose domain code callers act on
var conflictErrorCodes = map[string]string{
	shared.ErrConcurrencyConflict.Code:   ErrCodeConcurrencyConflict,
	shared.ErrAlreadyExists.Code:         ErrCodeAlreadyExists,
	invoicing.CodeDuplicateInvoiceNumber: ErrCodeAlreadyExists,
}

// FromError maps err to an HTTP status and error body. Errors that are not
// domain errors become a generic 500 so internals never leak.
func FromError(err error) (int, ErrorInfo) {
	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError, ErrorInfo{
			Code:    ErrCodeInternal,
			Message: "An unexpected error occurred",
		}
	}

	code, ok := kindErrorCodes[domainErr.Kind]
	if !ok {
		code = ErrCodeInternal
	}
	if domainErr.Kind == shared.KindConflict {
		if refined, ok := conflictErrorCodes[domainErr.Code]; ok {
			code = refined
		}
	}
	return GetHTTPStatus(code), ErrorInfo{
		Code:    code,
		Message: domainErr.Message,
		Reason:  domainErr.Code,
	}
}
