package transport

import (
	"errors"
	"fmt"
)

// ErrorCode identifies categories of transport failures.
type ErrorCode string

const (
	ErrorCodeConnectionFailed ErrorCode = "CONNECTION_FAILED"
	ErrorCodeSendFailed       ErrorCode = "SEND_FAILED"
	ErrorCodeReceiveFailed    ErrorCode = "RECEIVE_FAILED"
	ErrorCodeTimeout          ErrorCode = "TIMEOUT"
)

// Error is a transport failure with a code identifying which phase of the
// exchange failed.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// IsErrorCode checks if an error carries the specified transport error code.
func IsErrorCode(err error, code ErrorCode) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Code == code
	}
	return false
}
