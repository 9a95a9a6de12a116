package chatstate

import (
	"errors"
	"fmt"
)

// ErrorCode represents a categorized error type.
type ErrorCode int

const (
	// Protocol errors (from server error responses)
	ErrorUnknown ErrorCode = iota
	ErrorUnsupportedVersion
	ErrorUnauthorized
	ErrorInvalidMessage
	ErrorBadRequest
	ErrorThreadNotFound
	ErrorThreadAlreadyOpen
	ErrorNoActiveThread
	ErrorRunRejected
	ErrorRateLimited
	ErrorInternalServer

	// Client-side errors
	ErrorConnection
	ErrorDisconnected
	ErrorTimeout
	ErrorStateTimeout
	ErrorInvalidTransition
	ErrorInvalidConfig
	ErrorNotConnected
	ErrorSerialization
)

// String returns the string representation of an ErrorCode.
func (e ErrorCode) String() string {
	switch e {
	case ErrorUnknown:
		return "unknown"
	case ErrorUnsupportedVersion:
		return "unsupported_version"
	case ErrorUnauthorized:
		return "unauthorized"
	case ErrorInvalidMessage:
		return "invalid_message"
	case ErrorBadRequest:
		return "bad_request"
	case ErrorThreadNotFound:
		return "thread_not_found"
	case ErrorThreadAlreadyOpen:
		return "thread_already_open"
	case ErrorNoActiveThread:
		return "no_active_thread"
	case ErrorRunRejected:
		return "run_rejected"
	case ErrorRateLimited:
		return "rate_limited"
	case ErrorInternalServer:
		return "internal_error"
	case ErrorConnection:
		return "connection_error"
	case ErrorDisconnected:
		return "disconnected"
	case ErrorTimeout:
		return "timeout"
	case ErrorStateTimeout:
		return "state_timeout"
	case ErrorInvalidTransition:
		return "invalid_transition"
	case ErrorInvalidConfig:
		return "invalid_config"
	case ErrorNotConnected:
		return "not_connected"
	case ErrorSerialization:
		return "serialization_error"
	default:
		return fmt.Sprintf("unknown_code_%d", e)
	}
}

// ParseErrorCode converts a protocol error code string to ErrorCode.
func ParseErrorCode(code string) ErrorCode {
	switch code {
	case "unsupported_version":
		return ErrorUnsupportedVersion
	case "unauthorized":
		return ErrorUnauthorized
	case "invalid_message":
		return ErrorInvalidMessage
	case "bad_request":
		return ErrorBadRequest
	case "thread_not_found":
		return ErrorThreadNotFound
	case "thread_already_open":
		return ErrorThreadAlreadyOpen
	case "no_active_thread":
		return ErrorNoActiveThread
	case "run_rejected":
		return ErrorRunRejected
	case "rate_limited":
		return ErrorRateLimited
	case "internal_error":
		return ErrorInternalServer
	default:
		return ErrorUnknown
	}
}

// ChatError is a structured error with code and context.
type ChatError struct {
	Code    ErrorCode
	Message string
	Wrapped error
}

// Error implements the error interface.
func (e *ChatError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s (wrapped: %v)", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error for errors.Unwrap support.
func (e *ChatError) Unwrap() error {
	return e.Wrapped
}

// Is implements errors.Is comparison by code.
func (e *ChatError) Is(target error) bool {
	t, ok := target.(*ChatError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a new ChatError with the given code and message.
func NewError(code ErrorCode, message string) *ChatError {
	return &ChatError{Code: code, Message: message}
}

// WrapError wraps an existing error with a ChatError.
func WrapError(code ErrorCode, message string, err error) *ChatError {
	return &ChatError{Code: code, Message: message, Wrapped: err}
}

// FromProtocolError converts a wire Error to a ChatError.
func FromProtocolError(e *Error) *ChatError {
	if e == nil {
		return nil
	}
	return &ChatError{
		Code:    ParseErrorCode(e.Code),
		Message: e.Msg,
	}
}

// IsProtocolError checks if an error originated from a server error frame.
func IsProtocolError(err error) bool {
	if err == nil {
		return false
	}
	var ce *ChatError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code >= ErrorUnsupportedVersion && ce.Code <= ErrorInternalServer
}

// IsConnectionError checks if an error is connection-related.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	var ce *ChatError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code == ErrorConnection || ce.Code == ErrorDisconnected || ce.Code == ErrorTimeout
}
