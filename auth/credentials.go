package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultAPIKeyHeader is the header used by APIKey when none is configured.
const DefaultAPIKeyHeader = "X-API-Key"

// Credentials attaches authentication material to an outgoing request.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Apply must not send the request; it only mutates headers.
type Credentials interface {
	Apply(req *http.Request) error
}

var (
	_ Credentials = APIKey{}
	_ Credentials = (*Bearer)(nil)
)

// APIKey sends a static key in a header.
type APIKey struct {
	// Key is the API key value.
	Key string

	// Header is the header name. Default: "X-API-Key".
	Header string
}

// Apply sets the API key header.
func (k APIKey) Apply(req *http.Request) error {
	key := strings.TrimSpace(k.Key)
	if key == "" {
		return ErrMissingCredentials
	}

	header := k.Header
	if header == "" {
		header = DefaultAPIKeyHeader
	}
	req.Header.Set(header, key)
	return nil
}

// BearerConfig configures a Bearer credential.
type BearerConfig struct {
	// Token is the initial bearer token.
	Token string

	// Refresh, when set, is called with the request context to obtain a
	// fresh token once the current one is expired. The returned token
	// replaces the stored one.
	Refresh func(ctx context.Context) (string, error)

	// Leeway widens the expiry window so tokens about to expire are
	// refreshed before the backend rejects them.
	// Default: 30 seconds
	Leeway time.Duration
}

// Bearer sends an Authorization bearer token, inspecting JWT expiry
// locally before each request.
type Bearer struct {
	config BearerConfig

	mu    sync.Mutex
	token string
}

// NewBearer creates a Bearer credential.
func NewBearer(config BearerConfig) *Bearer {
	if config.Leeway <= 0 {
		config.Leeway = 30 * time.Second
	}
	return &Bearer{
		config: config,
		token:  strings.TrimSpace(config.Token),
	}
}

// Apply attaches the Authorization header, refreshing the token first if
// it is a JWT past its expiry.
func (b *Bearer) Apply(req *http.Request) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.token == "" && b.config.Refresh == nil {
		return ErrMissingCredentials
	}

	if b.token == "" || tokenExpired(b.token, b.config.Leeway) {
		if b.config.Refresh == nil {
			return ErrTokenExpired
		}
		token, err := b.config.Refresh(req.Context())
		if err != nil {
			return fmt.Errorf("%w: %w", ErrRefreshFailed, err)
		}
		b.token = strings.TrimSpace(token)
		if b.token == "" {
			return ErrRefreshFailed
		}
	}

	req.Header.Set("Authorization", "Bearer "+b.token)
	return nil
}

// tokenExpired reports whether token is a JWT whose exp claim is within
// leeway of now. Opaque tokens, and JWTs without an exp claim, are never
// considered expired locally; the backend has the final say.
func tokenExpired(token string, leeway time.Duration) bool {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}

	return time.Now().Add(leeway).After(exp.Time)
}
