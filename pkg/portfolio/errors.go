package portfolio

import (
	"errors"
	"fmt"
)

// ErrorCode defines error classification codes for structured error handling.
type ErrorCode string

// Error codes for different error categories.
const (
	ErrCodeValidation   ErrorCode = "VALIDATION_ERROR"
	ErrCodeFetch        ErrorCode = "FETCH_ERROR"
	ErrCodePersistence  ErrorCode = "PERSISTENCE_ERROR"
	ErrCodeAuth         ErrorCode = "AUTH_ERROR"
	ErrCodeNotFound     ErrorCode = "NOT_FOUND"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	ErrCodeDatabase     ErrorCode = "DATABASE_ERROR"
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
)

// Validation failures. Use errors.Is() to check which constraint failed.
var (
	ErrEmptyTicker         = errors.New("ticker is required")
	ErrNonPositiveQuantity = errors.New("quantity must be greater than 0")
	ErrNonPositivePrice    = errors.New("buy price must be greater than 0")
	ErrInvalidPeriod       = errors.New("invalid history period")
	ErrInvalidTab          = errors.New("invalid tab")
	ErrMissingColumns      = errors.New("CSV must contain: Ticker, Quantity, Buy Price")
	ErrNotSignedIn         = errors.New("not signed in")
)

// Error represents a structured error with classification code.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Is and errors.As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError wraps an existing error with classification code and additional context.
func WrapError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// IsErrorCode checks if an error matches a specific error code.
func IsErrorCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// UserMessage returns the message meant for display. Auth errors never carry
// upstream detail.
func UserMessage(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	if e.Code == ErrCodeAuth || e.Err == nil {
		return e.Message
	}
	if e.Code == ErrCodeValidation {
		return e.Err.Error()
	}
	return e.Message
}

func validationError(err error) *Error {
	return WrapError(ErrCodeValidation, "invalid input", err)
}
