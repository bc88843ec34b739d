// Package api holds the pieces shared by every HTTP service: the error
// taxonomy, the response envelope, and the gin middleware stack.
package api

import "net/http"

// Machine-readable error codes. These are part of the public contract; the
// Mini-App switches on them.
const (
	CodeInvalidInitData    = "invalid_init_data"
	CodeExpiredInitData    = "expired_init_data"
	CodeInvalidToken       = "invalid_token"
	CodeMissingAuth        = "missing_auth"
	CodeValidation         = "validation_error"
	CodeNotFound           = "not_found"
	CodeConflict           = "conflict"
	CodeRateLimited        = "rate_limited"
	CodeBlockedUser        = "blocked_user"
	CodeForbidden          = "forbidden"
	CodeInternal           = "internal_error"
	CodeServiceUnavailable = "service_unavailable"
	CodeSendFailed         = "send_failed"
)

// Error is an API-visible failure. Handlers return it up the stack; the
// respond helpers render it as the standard envelope.
type Error struct {
	Status  int               `json:"-"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

// NewError builds an arbitrary API error.
func NewError(status int, code, message string) *Error {
	return &Error{Status: status, Code: code, Message: message}
}

// Validation reports per-field input errors as a 422.
func Validation(details map[string]string) *Error {
	return &Error{
		Status:  http.StatusUnprocessableEntity,
		Code:    CodeValidation,
		Message: "validation failed",
		Details: details,
	}
}

// NotFound reports a missing resource.
func NotFound(message string) *Error {
	return &Error{Status: http.StatusNotFound, Code: CodeNotFound, Message: message}
}

// Forbidden reports an authenticated but disallowed request.
func Forbidden(message string) *Error {
	return &Error{Status: http.StatusForbidden, Code: CodeForbidden, Message: message}
}

// Unauthorized reports a missing or bad credential.
func Unauthorized(code, message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Code: code, Message: message}
}

// Conflict reports a duplicate that cannot be collapsed into idempotent
// success.
func Conflict(message string) *Error {
	return &Error{Status: http.StatusConflict, Code: CodeConflict, Message: message}
}

// BlockedUser reports that the acting or target user is blocked.
func BlockedUser(message string) *Error {
	return &Error{Status: http.StatusForbidden, Code: CodeBlockedUser, Message: message}
}

// Internal wraps an unexpected failure. The underlying error is logged, not
// serialized.
func Internal() *Error {
	return &Error{Status: http.StatusInternalServerError, Code: CodeInternal, Message: "internal error"}
}

// Unavailable reports a transient upstream failure.
func Unavailable(message string) *Error {
	return &Error{Status: http.StatusServiceUnavailable, Code: CodeServiceUnavailable, Message: message}
}
