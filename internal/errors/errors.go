// Package errors provides error code definitions shared across the sync stack.
package errors

import "fmt"

// ErrorCode represents a unique error code surfaced to API consumers.
type ErrorCode string

const (
	// General errors
	ErrInternal   ErrorCode = "INTERNAL_ERROR"
	ErrInvalid    ErrorCode = "INVALID_INPUT"
	ErrNotFound   ErrorCode = "NOT_FOUND"
	ErrValidation ErrorCode = "VALIDATION_ERROR"

	// Queue errors
	ErrInvalidKind    ErrorCode = "INVALID_KIND"
	ErrItemNotFound   ErrorCode = "ITEM_NOT_FOUND"
	ErrPersistence    ErrorCode = "PERSISTENCE_FAILED"
	ErrCorruptedStore ErrorCode = "CORRUPTED_STORE"

	// Sync errors
	ErrSyncInProgress    ErrorCode = "SYNC_IN_PROGRESS"
	ErrSyncOffline       ErrorCode = "SYNC_OFFLINE"
	ErrSyncFailed        ErrorCode = "SYNC_FAILED"
	ErrUnresolvedRef     ErrorCode = "UNRESOLVED_REFERENCE"
	ErrRemoteRejected    ErrorCode = "REMOTE_REJECTED"
	ErrRemoteUnreachable ErrorCode = "REMOTE_UNREACHABLE"

	// Audit errors
	ErrAuditExportFailed ErrorCode = "AUDIT_EXPORT_FAILED"
)

// AppError represents an application error with code and message.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an error code.
func Wrap(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Is checks if an error is of a specific code.
func Is(err error, code ErrorCode) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == code
	}
	return false
}
