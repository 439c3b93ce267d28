package inventory

import (
	"errors"
	"fmt"
)

// Kind classifies an inventory failure.
type Kind int

const (
	// KindConfiguration: the transport could not be set up (missing or
	// unreadable credentials). Nothing was sent.
	KindConfiguration Kind = iota + 1
	// KindRequestFailed: the service answered with a non-200 status.
	KindRequestFailed
	// KindTransport: connection, TLS handshake or credential negotiation failed.
	KindTransport
	// KindMalformedResponse: the body was not a JSON array of objects.
	KindMalformedResponse
	// KindTimeout: the request did not complete within the configured bound.
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration error"
	case KindRequestFailed:
		return "request failed"
	case KindTransport:
		return "transport error"
	case KindMalformedResponse:
		return "malformed response"
	case KindTimeout:
		return "timeout"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is returned by every inventory operation. Callers should prefer
// the predicates (IsRequestFailed, IsTimeout, ...) over asserting on it.
type Error struct {
	Kind       Kind
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindRequestFailed:
		return fmt.Sprintf("%s: %s: HTTP %d: %s", e.Op, e.Kind, e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// IsConfiguration reports whether err is a transport setup failure.
func IsConfiguration(err error) bool { return hasKind(err, KindConfiguration) }

// IsRequestFailed reports whether err is a non-200 answer.
func IsRequestFailed(err error) bool { return hasKind(err, KindRequestFailed) }

// IsTransport reports whether err is a connection or negotiation failure.
func IsTransport(err error) bool { return hasKind(err, KindTransport) }

// IsMalformedResponse reports whether err is an unparseable body.
func IsMalformedResponse(err error) bool { return hasKind(err, KindMalformedResponse) }

// IsTimeout reports whether err is an expired request.
func IsTimeout(err error) bool { return hasKind(err, KindTimeout) }

// HasStatusCode reports whether err is a request failure with the given status.
func HasStatusCode(err error, code int) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindRequestFailed && e.StatusCode == code
}

func hasKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
