package supervisor

import (
	"errors"
	"fmt"
)

// ErrorCode identifies categories of supervisor errors. Each error is scoped
// to a single process id; bulk operations log these and keep going.
type ErrorCode string

const (
	ErrorCodeProcessNotFound ErrorCode = "PROCESS_NOT_FOUND"
	ErrorCodeAlreadyRunning  ErrorCode = "ALREADY_RUNNING"
	ErrorCodeSpawnFailed     ErrorCode = "SPAWN_FAILED"
	ErrorCodeKillFailed      ErrorCode = "KILL_FAILED"
)

// Error is a supervisor failure tied to one process id.
type Error struct {
	Code      ErrorCode
	ProcessID string
	Cause     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] process %q: %v", e.Code, e.ProcessID, e.Cause)
	}
	return fmt.Sprintf("[%s] process %q", e.Code, e.ProcessID)
}

// Unwrap returns the underlying error for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

func newError(code ErrorCode, id string, cause error) *Error {
	return &Error{Code: code, ProcessID: id, Cause: cause}
}

// IsErrorCode checks if an error carries the specified supervisor error code.
func IsErrorCode(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}
