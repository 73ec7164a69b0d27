package openrouter

import (
	"errors"
	"fmt"
)

// ── Error Taxonomy ───────────────────────────────────────────

// ErrorKind identifies one of the closed set of failure modes the client can
// produce. Every error returned by this package is an *Error carrying one of
// these kinds.
type ErrorKind string

const (
	// KindValidation: the request was malformed and was never sent.
	KindValidation ErrorKind = "validation"
	// KindAuthentication: HTTP 401 from the API.
	KindAuthentication ErrorKind = "authentication"
	// KindRateLimit: HTTP 429 from the API. Terminal for the call.
	KindRateLimit ErrorKind = "rate_limit"
	// KindInvalidRequest: HTTP 400, generic.
	KindInvalidRequest ErrorKind = "invalid_request"
	// KindModelNotSupported: HTTP 400 mentioning an unsupported capability.
	KindModelNotSupported ErrorKind = "model_not_supported"
	// KindNetwork: connection, DNS or timeout failure before a response.
	KindNetwork ErrorKind = "network"
	// KindAPI: any other non-2xx status, or a malformed structured reply.
	KindAPI ErrorKind = "api"
)

// Error is the single error type produced by the client.
type Error struct {
	Kind       ErrorKind
	Message    string
	StatusCode int // 0 when no HTTP response was received
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("openrouter: %s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("openrouter: %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether resending the identical request could succeed.
// Only transport failures and generic API errors qualify; auth, rate-limit
// and request-shape failures will fail the same way every time.
func (e *Error) Retryable() bool {
	return e.Kind == KindNetwork || e.Kind == KindAPI
}

// ── Constructors ─────────────────────────────────────────────

func validationErr(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func networkErr(err error) *Error {
	return &Error{Kind: KindNetwork, Message: "network error: " + err.Error(), Err: err}
}

func apiErr(status int, message string) *Error {
	return &Error{Kind: KindAPI, StatusCode: status, Message: message}
}

// ── Inspection Helpers ───────────────────────────────────────

// AsError extracts the typed error, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// IsKind reports whether err is a client error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == kind
}
