package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"
)

// classifyStatus turns a non-2xx HTTP response into a classified error.
// body is the already-read response body, used for a best-effort error
// message.
func classifyStatus(status int, body []byte) *Error {
	e := &Error{
		StatusCode: status,
		Message:    messageFromBody(status, body),
	}

	switch {
	case status >= 500:
		e.Kind = KindServer
	case status == 400 || status == 401 || status == 403 || status == 404:
		e.Kind = KindClient
	default:
		// 3xx leaking through, 429, and the rest of the 4xx range. None of
		// these are part of the backend contract.
		e.Kind = KindProtocol
	}

	return e
}

// messageFromBody extracts a human-readable message from an error body.
// The backend sends {"message": "..."}; some older endpoints use
// {"error": "..."}. Anything else degrades to a generic message.
func messageFromBody(status int, body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return fmt.Sprintf("server returned HTTP %d", status)
}

// classifyTransport turns a round-trip failure (no HTTP response) into a
// classified error.
func classifyTransport(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: "request timed out", Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: KindTimeout, Message: "request timed out", Err: err}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &Error{Kind: KindNetwork, Message: "request failed", Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return &Error{Kind: KindNetwork, Message: "request failed", Err: err}
	}

	return &Error{Kind: KindProtocol, Message: "request failed", Err: err}
}
