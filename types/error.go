package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across marketstream.
type ErrorCode string

// Agent error codes
const (
	ErrInvalidRequest           ErrorCode = "INVALID_REQUEST"
	ErrInvalidConfig            ErrorCode = "INVALID_CONFIG"
	ErrTimeout                  ErrorCode = "TIMEOUT"
	ErrRateLimited              ErrorCode = "RATE_LIMITED"
	ErrInternalError            ErrorCode = "INTERNAL_ERROR"
	ErrLLMNotConfigured         ErrorCode = "LLM_NOT_CONFIGURED"
	ErrReplyProviderFailed      ErrorCode = "REPLY_PROVIDER_FAILED"
	ErrCodeExecutionUnsupported ErrorCode = "CODE_EXECUTION_UNSUPPORTED"
	ErrHumanInputUnavailable    ErrorCode = "HUMAN_INPUT_UNAVAILABLE"
	ErrSpeakerSelectionFailed   ErrorCode = "SPEAKER_SELECTION_FAILED"
	ErrProducerFailed           ErrorCode = "PRODUCER_FAILED"
)

// Error represents a structured error with code, message, and cause.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// GetErrorCode extracts the error code from an error chain.
func GetErrorCode(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsErrorCode reports whether err carries the given code anywhere in its chain.
func IsErrorCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
