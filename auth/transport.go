package auth

import "net/http"

// NewTransport wraps base with credential injection so a plain
// *http.Client picks up authentication on every request.
//
// Usage:
//
//	client := &http.Client{
//	    Transport: auth.NewTransport(nil, auth.APIKey{Key: key}),
//	}
func NewTransport(base http.RoundTripper, creds Credentials) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &credentialTransport{base: base, creds: creds}
}

type credentialTransport struct {
	base  http.RoundTripper
	creds Credentials
}

var _ http.RoundTripper = (*credentialTransport)(nil)

// RoundTrip clones the request before mutating headers, per the
// http.RoundTripper contract.
func (t *credentialTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if err := t.creds.Apply(clone); err != nil {
		return nil, err
	}
	return t.base.RoundTrip(clone)
}
