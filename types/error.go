package types

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unified error code across the client.
type ErrorCode string

// Client-side error codes
const (
	ErrValidation ErrorCode = "VALIDATION"
	ErrTransport  ErrorCode = "TRANSPORT"
)

// Platform-side error codes
const (
	ErrRemoteRejection ErrorCode = "REMOTE_REJECTION"
	ErrJobFailed       ErrorCode = "JOB_FAILED"
	ErrJobTimeout      ErrorCode = "JOB_TIMEOUT"
	ErrEmptyResult     ErrorCode = "EMPTY_RESULT"
)

// Polling error codes
const (
	ErrMaxAttempts ErrorCode = "MAX_ATTEMPTS_REACHED"
)

// Error represents a structured error with code, message, and metadata.
// Status carries the terminal job status for JOB_FAILED / JOB_TIMEOUT so
// callers can branch on the typed discriminant instead of matching
// message strings.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	APICode    int       `json:"api_code,omitempty"`
	Status     JobStatus `json:"status,omitempty"`
	Retryable  bool      `json:"retryable"`
	Cause      error     `json:"-"`
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

// NewValidationError 构造本地校验错误（不重试）。
func NewValidationError(message string) *Error {
	return &Error{Code: ErrValidation, Message: message}
}

// NewTransportError 构造网络传输错误（可重试）。
func NewTransportError(message string, cause error) *Error {
	return &Error{Code: ErrTransport, Message: message, Retryable: true, Cause: cause}
}

// NewRemoteRejection 构造平台信封拒绝错误，apiCode 为平台返回的非零业务码。
func NewRemoteRejection(apiCode int, message string) *Error {
	return &Error{Code: ErrRemoteRejection, Message: message, APICode: apiCode}
}

// NewJobFailure constructs the terminal error for a failed or timed-out
// job. The platform reason is preserved verbatim in Message and the
// terminal status travels in Status.
func NewJobFailure(status JobStatus, reason string) *Error {
	code := ErrJobFailed
	if status == StatusTimeout {
		code = ErrJobTimeout
	}
	if reason == "" {
		reason = "job ended in status " + status.String()
	}
	return &Error{Code: code, Message: reason, Status: status}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithRetryable marks the error as retryable.
func (e *Error) WithRetryable(retryable bool) *Error {
	e.Retryable = retryable
	return e
}

// WithStatus attaches the job status the error was observed in.
func (e *Error) WithStatus(status JobStatus) *Error {
	e.Status = status
	return e
}

// AsError unwraps err down to a *Error if one is in the chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsCode checks whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	if e, ok := AsError(err); ok {
		return e.Code == code
	}
	return false
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if e, ok := AsError(err); ok {
		return e.Retryable
	}
	return false
}

// IsTerminalFailure reports whether err is a terminal job failure and, if
// so, which terminal status the job ended in. Terminal failures must not
// be retried or re-polled.
func IsTerminalFailure(err error) (JobStatus, bool) {
	e, ok := AsError(err)
	if !ok {
		return 0, false
	}
	if e.Code == ErrJobFailed || e.Code == ErrJobTimeout {
		return e.Status, true
	}
	return 0, false
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return ""
}
