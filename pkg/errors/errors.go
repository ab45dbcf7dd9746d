package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a failed fetch iteration
type Kind string

const (
	KindRowLookup  Kind = "row_lookup"
	KindHTTPStatus Kind = "http_status"
	KindTransport  Kind = "transport"
	KindStorage    Kind = "storage"
	KindUnknown    Kind = "unknown"
)

// NeedsCooldown reports whether a failure of this kind is followed by the
// long cooldown instead of the normal pacing delay. Only HTTP status
// failures get the short delay.
func (k Kind) NeedsCooldown() bool {
	return k != KindHTTPStatus
}

// Error is the failure of a single target id
type Error struct {
	Kind    Kind
	ID      int
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Kind == KindHTTPStatus {
		return fmt.Sprintf("%s error (code %d): %s", e.Kind, e.Code, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithID returns a copy of the error tagged with a target id
func (e *Error) WithID(id int) *Error {
	c := *e
	c.ID = id
	return &c
}

// RowLookup reports a target id that cannot be resolved to coordinates
func RowLookup(id int, err error) *Error {
	return &Error{Kind: KindRowLookup, ID: id, Message: "row lookup failed", Err: err}
}

// HTTPStatus reports a non-200 response after the client gave up retrying
func HTTPStatus(code int, status string) *Error {
	return &Error{Kind: KindHTTPStatus, Code: code, Message: status}
}

// Transport reports a request that never produced a usable response
func Transport(err error) *Error {
	return &Error{Kind: KindTransport, Message: "request failed", Err: err}
}

// Storage reports a failure to check or persist an artifact
func Storage(id int, err error) *Error {
	return &Error{Kind: KindStorage, ID: id, Message: "storage failed", Err: err}
}

// KindOf extracts the kind of err, KindUnknown if it is not an *Error
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// StatusCode returns the HTTP status carried by err, or 0
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindHTTPStatus {
		return e.Code
	}
	return 0
}

// IsRetryableStatusCode reports whether a status code belongs to the default
// retry set of the tile client
func IsRetryableStatusCode(statusCode int) bool {
	switch statusCode {
	case 429: // Too Many Requests
		return true
	case 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
