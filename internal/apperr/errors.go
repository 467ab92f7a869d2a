package apperr

import (
	"errors"
	"fmt"
)

// Error codes for the operational error taxonomy. Every error that crosses a
// service boundary carries one of these so the HTTP layer can map it without
// inspecting messages.
const (
	CodeValidation     = "VALIDATION"
	CodeNotFound       = "NOT_FOUND"
	CodeConflict       = "CONFLICT"
	CodeState          = "STATE"
	CodeAuthentication = "AUTHENTICATION"
	CodeReplay         = "REPLAY"
	CodeAuthorization  = "AUTHORIZATION"
)

var (
	ErrTableNotFound   = errors.New("table not found")
	ErrSessionNotFound = errors.New("session not found")
	ErrDeviceNotFound  = errors.New("device not found")
	ErrCommandNotFound = errors.New("command not found")
	ErrPackageNotFound = errors.New("package not found")
)

// Error is an operational error with a machine-readable code.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func Validation(format string, args ...any) *Error {
	return &Error{Code: CodeValidation, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Code: CodeConflict, Message: fmt.Sprintf(format, args...)}
}

func State(format string, args ...any) *Error {
	return &Error{Code: CodeState, Message: fmt.Sprintf(format, args...)}
}

func Authentication(format string, args ...any) *Error {
	return &Error{Code: CodeAuthentication, Message: fmt.Sprintf(format, args...)}
}

func Replay(format string, args ...any) *Error {
	return &Error{Code: CodeReplay, Message: fmt.Sprintf(format, args...)}
}

func Authorization(format string, args ...any) *Error {
	return &Error{Code: CodeAuthorization, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the code carried by err, or empty when err is not an *Error.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code string) bool {
	return CodeOf(err) == code
}
