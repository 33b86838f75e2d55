package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a ghostmcp error code.
type ErrorCode string

const (
	ErrAmbiguousAddressing ErrorCode = "AMBIGUOUS_ADDRESSING" // 400
	ErrInvalidRequest      ErrorCode = "INVALID_REQUEST"      // 400
	ErrUnauthorized        ErrorCode = "UNAUTHORIZED"         // 401
	ErrNotFound            ErrorCode = "NOT_FOUND"            // 404
	ErrFileNotFound        ErrorCode = "FILE_NOT_FOUND"       // 404
	ErrConflict            ErrorCode = "CONFLICT"             // 409
	ErrFileTooLarge        ErrorCode = "FILE_TOO_LARGE"       // 413
	ErrInternal            ErrorCode = "INTERNAL"             // 500
	ErrUpstream            ErrorCode = "UPSTREAM"             // 502
)

// GhostError represents a structured error with code, status, and details.
type GhostError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *GhostError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAmbiguousAddressing creates a 400 error for when both id and slug are provided.
func NewAmbiguousAddressing() *GhostError {
	return &GhostError{
		Code:    ErrAmbiguousAddressing,
		Status:  400,
		Message: "cannot specify both id and slug; use one addressing mode",
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *GhostError {
	return &GhostError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewUnauthorized creates a 401 error when Ghost rejects the credentials.
func NewUnauthorized(msg string) *GhostError {
	return &GhostError{
		Code:    ErrUnauthorized,
		Status:  401,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a remote resource cannot be found.
func NewNotFound(identifier string) *GhostError {
	return &GhostError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing local file.
func NewFileNotFound(path string) *GhostError {
	return &GhostError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewConflict creates a 409 error for optimistic concurrency conflicts.
func NewConflict(msg string) *GhostError {
	return &GhostError{
		Code:    ErrConflict,
		Status:  409,
		Message: msg,
	}
}

// NewFileTooLarge creates a 413 error when a referenced file exceeds the size limit.
func NewFileTooLarge(path string, max, actual int64) *GhostError {
	return &GhostError{
		Code:    ErrFileTooLarge,
		Status:  413,
		Message: fmt.Sprintf("file exceeds maximum size: %d bytes (max %d)", actual, max),
		Details: map[string]any{"path": path, "max_bytes": max, "actual_bytes": actual},
	}
}

// NewUpstream creates a 502 error for transport failures or unexpected Ghost responses.
func NewUpstream(msg string) *GhostError {
	return &GhostError{
		Code:    ErrUpstream,
		Status:  502,
		Message: msg,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message stays generic; the cause is kept in Details for logging.
func NewInternal(err error) *GhostError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &GhostError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if err (or anything it wraps) is a GhostError with the given code.
func Is(err error, code ErrorCode) bool {
	var gErr *GhostError
	if stderrors.As(err, &gErr) {
		return gErr.Code == code
	}
	return false
}

// As returns the GhostError wrapped by err, if any.
func As(err error) (*GhostError, bool) {
	var gErr *GhostError
	if stderrors.As(err, &gErr) {
		return gErr, true
	}
	return nil, false
}
