package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError represents a structured pipeline error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil && e.Message != e.Cause.Error() {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	if e.Cause != nil {
		return e.Message
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new AppError with a formatted message
func Newf(code, format string, args ...interface{}) *AppError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an error with additional context, keeping the code of a wrapped AppError
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// GetCode returns the code of the outermost AppError in the chain, or "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// HasCode reports whether err carries the given code
func HasCode(err error, code string) bool {
	return GetCode(err) == code
}

// Error codes
const (
	CodeConfigInvalid  = "CONFIG_INVALID"
	CodeMissingInput   = "MISSING_INPUT"
	CodeLookupMismatch = "LOOKUP_MISMATCH"
	CodeInvalidInput   = "INVALID_INPUT"
	CodeStatsError     = "STATS_ERROR"
	CodeIOError        = "IO_ERROR"
	CodeInternalError  = "INTERNAL_ERROR"
)

func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

// MissingInput marks a required input whose absence aborts the stage
func MissingInput(path string, cause error) *AppError {
	return &AppError{
		Code:    CodeMissingInput,
		Message: fmt.Sprintf("required input missing: %s", path),
		Cause:   cause,
	}
}

func LookupMismatch(message string) *AppError {
	return New(CodeLookupMismatch, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

func StatsError(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeStatsError,
		Message: message,
		Cause:   cause,
	}
}

func IOError(message string, cause error) *AppError {
	return &AppError{
		Code:    CodeIOError,
		Message: message,
		Cause:   cause,
	}
}
