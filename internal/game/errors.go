// internal/game/errors.go
package game

import "fmt"

// Error is a request failure surfaced to the single requesting connection
// as an ERROR envelope. Code follows the wire contract: 400 validation,
// 403 forbidden, 404 not found, 409 conflict. Handlers never crash the
// connection over one of these.
type Error struct {
	Code    int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

func Validationf(format string, args ...any) *Error {
	return &Error{Code: 400, Message: fmt.Sprintf(format, args...)}
}

func Forbiddenf(format string, args ...any) *Error {
	return &Error{Code: 403, Message: fmt.Sprintf(format, args...)}
}

func NotFoundf(format string, args ...any) *Error {
	return &Error{Code: 404, Message: fmt.Sprintf(format, args...)}
}

func Conflictf(format string, args ...any) *Error {
	return &Error{Code: 409, Message: fmt.Sprintf(format, args...)}
}
