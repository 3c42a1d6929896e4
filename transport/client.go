package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/relaydesk/relay-go/auth"
	"github.com/relaydesk/relay-go/guard"
	"github.com/relaydesk/relay-go/observe"
)

// Config configures a Client.
type Config struct {
	// BaseURL is the backend root, e.g. "http://localhost:8080".
	// Required.
	BaseURL string

	// Timeout is the per-attempt deadline. Each attempt gets its own.
	// Default: 30 seconds
	Timeout time.Duration

	// Retry controls the retry loop. Zero value uses the defaults.
	Retry RetryConfig

	// UserAgent is sent with every request.
	// Default: "relay-go"
	UserAgent string

	// Credentials, when set, are applied to every attempt.
	Credentials auth.Credentials

	// Breaker, when set, is consulted once per logical request and fed
	// the final outcome.
	Breaker *guard.Breaker

	// HTTPClient is the underlying client. Default: http.DefaultClient.
	HTTPClient *http.Client

	// Logger receives request lifecycle logs. Default: no logging.
	Logger observe.Logger

	// Metrics records per-request telemetry. Default: none.
	Metrics observe.RequestMetrics

	// Tracer wraps each logical request in a span. Default: none.
	Tracer observe.RequestTracer
}

// Client sends JSON requests to the RelayDesk backend with retries.
type Client struct {
	base    *url.URL
	timeout time.Duration
	retry   RetryConfig
	agent   string
	creds   auth.Credentials
	breaker *guard.Breaker
	http    *http.Client
	logger  observe.Logger
	metrics observe.RequestMetrics
	tracer  observe.RequestTracer
}

// New creates a Client.
func New(config Config) (*Client, error) {
	base, err := parseBaseURL(config.BaseURL)
	if err != nil {
		return nil, err
	}

	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "relay-go"
	}
	if config.HTTPClient == nil {
		config.HTTPClient = http.DefaultClient
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	if config.Metrics == nil {
		config.Metrics = observe.NewNoopRequestMetrics()
	}
	if config.Tracer == nil {
		config.Tracer = observe.NewNoopRequestTracer()
	}

	return &Client{
		base:    base,
		timeout: config.Timeout,
		retry:   config.Retry.withDefaults(),
		agent:   config.UserAgent,
		creds:   config.Credentials,
		breaker: config.Breaker,
		http:    config.HTTPClient,
		logger:  config.Logger.WithComponent("transport"),
		metrics: config.Metrics,
		tracer:  config.Tracer,
	}, nil
}

// parseBaseURL validates and normalizes the backend root URL.
func parseBaseURL(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("transport: base URL is required")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("transport: parsing base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("transport: base URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("transport: base URL has no host")
	}

	u.Path = strings.TrimRight(u.Path, "/")
	return u, nil
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string {
	return c.base.String()
}

// RequestSpec describes one logical request.
type RequestSpec struct {
	// Method is the HTTP method. Required.
	Method string

	// Path is the endpoint path, e.g. "/api/chat". Required. It is
	// treated as already escaped; pass embedded identifiers through
	// url.PathEscape.
	Path string

	// Query holds URL query parameters.
	Query url.Values

	// Body, when non-nil, is JSON-encoded and sent as the request body.
	Body any

	// RawBody, when set, is sent verbatim instead of Body. ContentType
	// must be set with it.
	RawBody []byte

	// ContentType overrides the Content-Type header. Required with
	// RawBody; defaults to application/json otherwise.
	ContentType string

	// Header holds extra headers merged into the request.
	Header http.Header

	// Timeout overrides the client's per-attempt deadline.
	Timeout time.Duration
}

// Do sends one logical request and decodes a 2xx JSON response into dest.
// Server and network failures are retried per the retry config; all other
// failures, and any malformed 2xx body, fail immediately with a classified
// *Error. Pass a nil dest to discard the response body.
func (c *Client) Do(ctx context.Context, spec RequestSpec, dest any) error {
	meta := observe.RequestMeta{Method: spec.Method, Path: spec.Path}

	if c.breaker != nil {
		if err := c.breaker.Allow(); err != nil {
			ferr := &Error{Kind: KindNetwork, Message: "circuit open", Err: err}
			c.metrics.RecordRequest(ctx, meta, 0, 0, ferr)
			return ferr
		}
	}

	body, err := spec.encodeBody()
	if err != nil {
		if c.breaker != nil {
			// An encode failure never reached the backend; it must count
			// neither for nor against it.
			c.breaker.Cancel()
		}
		return err
	}

	ctx, span := c.tracer.StartSpan(ctx, meta)
	requestID := uuid.NewString()
	start := time.Now()

	attempts, finalErr := c.attempts(ctx, spec, body, requestID, dest)

	if c.breaker != nil {
		c.breaker.Record(finalErr)
	}
	c.tracer.EndSpan(span, finalErr)
	c.metrics.RecordRequest(ctx, meta, time.Since(start), attempts, finalErr)

	return finalErr
}

// attempts runs the retry loop. It returns how many attempts were made
// and the final outcome.
func (c *Client) attempts(ctx context.Context, spec RequestSpec, body []byte, requestID string, dest any) (int, error) {
	var lastErr error

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		lastErr = c.once(ctx, spec, body, requestID, dest)
		if lastErr == nil {
			return attempt, nil
		}

		// Parent cancellation wins over classification: the caller gave up.
		if ctx.Err() != nil {
			return attempt, ctx.Err()
		}

		te, ok := AsError(lastErr)
		if !ok || !te.Retryable() || attempt == c.retry.MaxAttempts {
			return attempt, lastErr
		}

		delay := c.retry.Delay(attempt - 1)
		c.logger.Warn(ctx, "retrying request",
			observe.F("method", spec.Method),
			observe.F("path", spec.Path),
			observe.F("attempt", attempt),
			observe.F("delay", delay.String()),
			observe.F("error", lastErr.Error()),
		)
		if c.retry.OnRetry != nil {
			c.retry.OnRetry(attempt, lastErr, delay)
		}

		select {
		case <-ctx.Done():
			return attempt, ctx.Err()
		case <-time.After(delay):
		}
	}

	return c.retry.MaxAttempts, lastErr
}

// once sends a single attempt.
func (c *Client) once(ctx context.Context, spec RequestSpec, body []byte, requestID string, dest any) error {
	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := c.buildRequest(ctx, spec, body, requestID)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyTransport(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyTransport(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classifyStatus(resp.StatusCode, data)
	}

	if dest == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return &Error{
			Kind:       KindProtocol,
			StatusCode: resp.StatusCode,
			Message:    "decoding response body",
			Err:        err,
		}
	}
	return nil
}

func (c *Client) buildRequest(ctx context.Context, spec RequestSpec, body []byte, requestID string) (*http.Request, error) {
	u := c.base.JoinPath(spec.Path)
	if len(spec.Query) > 0 {
		u.RawQuery = spec.Query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, spec.Method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("transport: building request: %w", err)
	}

	req.Header.Set("User-Agent", c.agent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		contentType := spec.ContentType
		if contentType == "" {
			contentType = "application/json"
		}
		req.Header.Set("Content-Type", contentType)
	}
	for key, values := range spec.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	if c.creds != nil {
		if err := c.creds.Apply(req); err != nil {
			return nil, fmt.Errorf("transport: applying credentials: %w", err)
		}
	}

	return req, nil
}

// encodeBody resolves the request body bytes. JSON encoding happens once
// per logical request so every attempt replays identical bytes.
func (s RequestSpec) encodeBody() ([]byte, error) {
	if s.RawBody != nil {
		return s.RawBody, nil
	}
	if s.Body == nil {
		return nil, nil
	}
	data, err := json.Marshal(s.Body)
	if err != nil {
		return nil, fmt.Errorf("transport: encoding request body: %w", err)
	}
	return data, nil
}
