package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")

	// Pipeline error taxonomy. Everything except ErrDocumentUnreadable is
	// absorbed inside the acquisition chain; ErrDocumentUnreadable is the
	// single fatal condition surfaced to callers.
	ErrProviderUnavailable = errors.New("ocr provider unavailable")
	ErrProviderEmpty       = errors.New("ocr provider returned no text")
	ErrRenderFailure       = errors.New("page render failed")
	ErrDocumentUnreadable  = errors.New("document unreadable")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
