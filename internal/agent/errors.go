// internal/agent/errors.go
package agent

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrCaptureFailed wraps any failure to take the post-action frame. It
	// ends the session.
	ErrCaptureFailed = errors.New("frame capture failed")
	// ErrTurnLimit is returned when the service keeps requesting actions past
	// agent.max_turns.
	ErrTurnLimit = errors.New("turn limit reached")
)

// ErrorCode is a string type used for structured reporting of action failures.
type ErrorCode string

const (
	ErrCodeExecutionFailure ErrorCode = "EXECUTION_FAILURE"
	ErrCodeUnknownAction    ErrorCode = "UNKNOWN_ACTION_TYPE"
	ErrCodeTimeoutError     ErrorCode = "TIMEOUT_ERROR"
	ErrCodeNavigationError  ErrorCode = "NAVIGATION_ERROR"
	ErrCodeExecutorPanic    ErrorCode = "EXECUTOR_PANIC"
)

// ActionError is the contained failure of one action. It is reported, never
// propagated past the driver loop.
type ActionError struct {
	Action string
	Code   ErrorCode
	Err    error
}

func (e *ActionError) Error() string {
	return e.Action + " action failed (" + string(e.Code) + "): " + e.Err.Error()
}

func (e *ActionError) Unwrap() error { return e.Err }

// classifyActionError maps a browser error onto an ErrorCode.
func classifyActionError(err error) ErrorCode {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrCodeTimeoutError
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timed out") || strings.Contains(msg, "timeout"):
		return ErrCodeTimeoutError
	case strings.Contains(msg, "navigat") || strings.Contains(msg, "net::err"):
		return ErrCodeNavigationError
	default:
		return ErrCodeExecutionFailure
	}
}
