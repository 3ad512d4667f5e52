package types

import "fmt"

// ErrorCode represents a unified error code across the engine.
type ErrorCode string

// Routing / execution error codes
const (
	ErrValidation          ErrorCode = "VALIDATION"
	ErrProviderUnavailable ErrorCode = "PROVIDER_UNAVAILABLE"
	ErrPolicyViolation     ErrorCode = "POLICY_VIOLATION"
	ErrTimeout             ErrorCode = "TIMEOUT"
	ErrExecution           ErrorCode = "EXECUTION"
	ErrIssueDetected       ErrorCode = "ISSUE_DETECTED"
)

// Agent / crew error codes
const (
	ErrInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrAgentBusy         ErrorCode = "AGENT_BUSY"
	ErrAgentNotFound     ErrorCode = "AGENT_NOT_FOUND"
	ErrDependencyUnmet   ErrorCode = "DEPENDENCY_UNMET"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code      ErrorCode `json:"code"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
	Backend   string    `json:"backend,omitempty"`
	Cause     error     `json:"-"`
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

// NewErrorf creates a new Error with a formatted message.
func NewErrorf(code ErrorCode, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithBackend tags the error with the backend it originated from.
func (e *Error) WithBackend(backend string) *Error {
	e.Backend = backend
	return e
}

// WithRetryable marks whether the error is retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// CodeOf 提取错误码；非 *Error 返回空串。
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var e *Error
	for {
		var ok bool
		if e, ok = err.(*Error); ok {
			return e.Code
		}
		type unwrapper interface{ Unwrap() error }
		u, ok := err.(unwrapper)
		if !ok {
			return ""
		}
		err = u.Unwrap()
		if err == nil {
			return ""
		}
	}
}

// IsCode reports whether err carries the given error code anywhere in its chain.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
