// Package auth attaches credentials to outgoing backend requests.
//
// Credentials implementations inject the appropriate header on each
// request. Two are provided:
//
//   - APIKey: a static key sent in a configurable header (X-API-Key by
//     default).
//
//   - Bearer: an Authorization bearer token. When the token is a JWT, its
//     expiry is inspected locally before every request; an expired token
//     triggers the optional Refresh callback instead of a guaranteed 401
//     round trip.
//
// The package never stores credentials; callers own key material and its
// lifecycle. NewTransport wraps any http.RoundTripper for use with a plain
// *http.Client.
package auth
