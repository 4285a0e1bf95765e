// Package errors defines the coded error type shared by the search
// dispatcher, the embedding provider and the HTTP handlers.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies a failure for transport mapping and logging.
type ErrorCode string

const (
	// ErrCodeInvalidMethod indicates an unknown search method.
	ErrCodeInvalidMethod ErrorCode = "INVALID_METHOD"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeQuerySyntax indicates the lexical query could not be compiled.
	ErrCodeQuerySyntax ErrorCode = "QUERY_SYNTAX"
	// ErrCodeFeatureDisabled indicates vector search is not configured.
	ErrCodeFeatureDisabled ErrorCode = "FEATURE_DISABLED"
	// ErrCodeEmbeddingProvider indicates the embedding provider failed.
	ErrCodeEmbeddingProvider ErrorCode = "EMBEDDING_PROVIDER"
	// ErrCodeUnauthorized indicates authentication failure.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeNotFound indicates the requested record does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeInternal indicates an unexpected service failure.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// ServiceError is a coded error with an optional cause.
type ServiceError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// Convenience constructors for the common error kinds.

// InvalidMethod reports an unknown search method value.
func InvalidMethod(method string) *ServiceError {
	return &ServiceError{
		Code:    ErrCodeInvalidMethod,
		Message: fmt.Sprintf("invalid search method: %s. Must be one of: text, vector, hybrid", method),
	}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *ServiceError {
	return &ServiceError{Code: ErrCodeInvalidArgument, Message: msg}
}

// QuerySyntax creates a lexical-compilation error.
func QuerySyntax(msg string, cause error) *ServiceError {
	return &ServiceError{Code: ErrCodeQuerySyntax, Message: msg, Cause: cause}
}

// FeatureDisabled creates a vector-search-unavailable error.
func FeatureDisabled(msg string) *ServiceError {
	return &ServiceError{Code: ErrCodeFeatureDisabled, Message: msg}
}

// EmbeddingProvider creates an embedding provider error.
func EmbeddingProvider(msg string, cause error) *ServiceError {
	return &ServiceError{Code: ErrCodeEmbeddingProvider, Message: msg, Cause: cause}
}

// Unauthorized creates an authentication error.
func Unauthorized(msg string) *ServiceError {
	return &ServiceError{Code: ErrCodeUnauthorized, Message: msg}
}

// NotFound creates a missing-record error.
func NotFound(resource string) *ServiceError {
	return &ServiceError{Code: ErrCodeNotFound, Message: fmt.Sprintf("%s not found", resource)}
}

// Timeout creates a timeout error.
func Timeout(msg string) *ServiceError {
	return &ServiceError{Code: ErrCodeTimeout, Message: msg}
}

// Internal wraps an unexpected failure.
func Internal(msg string, cause error) *ServiceError {
	return &ServiceError{Code: ErrCodeInternal, Message: msg, Cause: cause}
}

// IsCode checks if an error (or anything it wraps) carries a specific code.
func IsCode(err error, code ErrorCode) bool {
	var svcErr *ServiceError
	if stderrors.As(err, &svcErr) {
		return svcErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the code from any error, or the default when the
// error carries none.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	var svcErr *ServiceError
	if stderrors.As(err, &svcErr) {
		return svcErr.Code
	}
	return defaultCode
}
