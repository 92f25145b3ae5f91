package gateway

import (
	"errors"
	"net/http"
	"time"

	"github.com/router-for-me/StudyGateway/internal/quota"
)

// Kind classifies pipeline failures.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindAuth
	KindConflict
	KindRateLimit
	KindQuotaExceeded
	KindProvider
	KindStore
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindConflict:
		return "conflict"
	case KindRateLimit:
		return "rate_limit"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindProvider:
		return "provider"
	case KindStore:
		return "store"
	default:
		return "unknown"
	}
}

// Caller-facing messages.
const (
	msgMissingText        = "Missing text"
	msgMissingCredentials = "Missing username or password"
	msgMissingToken       = "Missing token"
	msgInvalidToken       = "Invalid token"
	msgExpiredToken       = "Token expired"
	msgInvalidCredentials = "Invalid username or password"
	msgUsernameTaken      = "Username already taken"
	msgRateLimited        = "Too many requests, please try again later"
	msgQuotaExceeded      = "Daily limit reached"
	msgProvider           = "Provider error"
	msgInternal           = "Internal error"
)

// Error is a classified pipeline failure. Message is safe to return to the
// caller; Err holds the internal cause for logging only.
type Error struct {
	Kind    Kind
	Message string

	// Set for KindQuotaExceeded.
	Used  int64
	Limit quota.Limit

	// Set for KindRateLimit; the moment the current window ends.
	Reset time.Time

	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Kind.String() + ": " + e.Message + ": " + e.Err.Error()
	}
	return e.Kind.String() + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// RetryAfter returns the seconds until Reset relative to now, at least 1.
func (e *Error) RetryAfter(now time.Time) int {
	if e.Reset.IsZero() {
		return 1
	}
	seconds := int(e.Reset.Sub(now).Round(time.Second) / time.Second)
	if seconds < 1 {
		return 1
	}
	return seconds
}

// StatusCode maps err to an HTTP status.
func StatusCode(err error) int {
	var gwErr *Error
	if !errors.As(err, &gwErr) {
		return http.StatusInternalServerError
	}
	switch gwErr.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindConflict:
		return http.StatusConflict
	case KindRateLimit, KindQuotaExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}
