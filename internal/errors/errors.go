package errors

import (
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an AppError carrying the same code, so the
// sentinel values below match wrapped errors through errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
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

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   appErr,
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
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Predefined error codes
const (
	CodeEmptySample         = "EMPTY_SAMPLE"
	CodeInsufficientSamples = "INSUFFICIENT_SAMPLES"
	CodeShapeMismatch       = "SHAPE_MISMATCH"
	CodeTestNotComputable   = "TEST_NOT_COMPUTABLE"
	CodeInvalidSample       = "INVALID_SAMPLE"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeConfigInvalid       = "CONFIG_INVALID"
	CodeInternalError       = "INTERNAL_ERROR"
)

// Sentinels for errors.Is. Only the code is compared.
var (
	ErrEmptySample         = New(CodeEmptySample, "empty sample")
	ErrInsufficientSamples = New(CodeInsufficientSamples, "insufficient samples")
	ErrShapeMismatch       = New(CodeShapeMismatch, "shape mismatch")
	ErrTestNotComputable   = New(CodeTestNotComputable, "test not computable")
	ErrInvalidSample       = New(CodeInvalidSample, "invalid sample")
	ErrInvalidInput        = New(CodeInvalidInput, "invalid input")
	ErrConfigInvalid       = New(CodeConfigInvalid, "invalid configuration")
)

// Common error constructors
func EmptySample(message string) *AppError {
	return New(CodeEmptySample, message)
}

func InsufficientSamples(message string) *AppError {
	return New(CodeInsufficientSamples, message)
}

func ShapeMismatch(message string) *AppError {
	return New(CodeShapeMismatch, message)
}

func TestNotComputable(message string) *AppError {
	return New(CodeTestNotComputable, message)
}

func InvalidSample(message string) *AppError {
	return New(CodeInvalidSample, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}
