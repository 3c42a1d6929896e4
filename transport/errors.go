package transport

import (
	"errors"
	"fmt"
)

// Kind classifies a request failure. It decides whether the failure is
// retried and how callers should present it.
type Kind int

const (
	// KindTimeout means an attempt exceeded its deadline.
	KindTimeout Kind = iota
	// KindClient means the backend rejected the request (4xx). The request
	// is wrong; repeating it cannot help.
	KindClient
	// KindServer means the backend failed (5xx). Usually transient.
	KindServer
	// KindNetwork means the request never produced an HTTP response
	// (connection refused, DNS failure, reset).
	KindNetwork
	// KindProtocol means the backend answered with something the client
	// could not interpret, such as malformed JSON on a 2xx response.
	KindProtocol
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindClient:
		return "client"
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	case KindProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// Retryable reports whether failures of this kind are worth repeating.
// Only server and network failures qualify: a timeout already consumed
// its attempt budget, a client error will fail identically, and a
// protocol error signals a contract mismatch that retrying cannot fix.
func (k Kind) Retryable() bool {
	return k == KindServer || k == KindNetwork
}

// Error is a classified request failure.
type Error struct {
	// Kind is the failure classification.
	Kind Kind

	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	// Message is a human-readable description, taken from the backend's
	// error body when one was present.
	Message string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("transport: %s error (HTTP %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("transport: %s error: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("transport: %s error: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether this failure is worth repeating.
func (e *Error) Retryable() bool {
	return e.Kind.Retryable()
}

// AsError extracts a classified *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// KindOf returns the classification of err, or KindProtocol when err
// carries no classified *Error.
func KindOf(err error) Kind {
	if te, ok := AsError(err); ok {
		return te.Kind
	}
	return KindProtocol
}
