package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/relaydesk/relay-go/cache"
	"github.com/relaydesk/relay-go/guard"
	"github.com/relaydesk/relay-go/observe"
	"github.com/relaydesk/relay-go/transport"
)

// Config configures a Client.
type Config struct {
	// Transport is the underlying resilient client. Required.
	Transport *transport.Client

	// Logger receives degraded-operation logs. Default: no logging.
	Logger observe.Logger

	// Cache, when set, keeps the last good payload of best-effort reads
	// so transient outages serve stale data instead of empty fallbacks.
	Cache *cache.Store

	// CacheTTL bounds how stale a cached read may be.
	// Default: 5 minutes
	CacheTTL time.Duration

	// Telemetry rate-limits SendMetrics. Default: 1/s sustained, burst 10.
	Telemetry *guard.Limiter

	// UploadGate bounds concurrent uploads. Default: 4 concurrent.
	UploadGate *guard.Bulkhead
}

// Client is the typed facade over the backend.
type Client struct {
	transport *transport.Client
	logger    observe.Logger
	cache     *cache.Store
	cacheTTL  time.Duration
	telemetry *guard.Limiter
	uploads   *guard.Bulkhead
}

// New creates a Client.
func New(config Config) (*Client, error) {
	if config.Transport == nil {
		return nil, fmt.Errorf("api: transport is required")
	}
	if config.Logger == nil {
		config.Logger = observe.NopLogger()
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 5 * time.Minute
	}
	if config.Telemetry == nil {
		config.Telemetry = guard.NewLimiter(guard.LimiterConfig{PerSecond: 1, Burst: 10})
	}
	if config.UploadGate == nil {
		config.UploadGate = guard.NewBulkhead(guard.BulkheadConfig{MaxConcurrent: 4})
	}

	return &Client{
		transport: config.Transport,
		logger:    config.Logger.WithComponent("api"),
		cache:     config.Cache,
		cacheTTL:  config.CacheTTL,
		telemetry: config.Telemetry,
		uploads:   config.UploadGate,
	}, nil
}

// CheckHealth probes backend liveness. It never fails: an unreachable
// backend yields IsHealthy=false with the error text attached.
func (c *Client) CheckHealth(ctx context.Context) HealthStatus {
	var resp healthResponse
	err := c.transport.Do(ctx, transport.RequestSpec{
		Method: http.MethodGet,
		Path:   "/health",
	}, &resp)
	if err != nil {
		return HealthStatus{IsHealthy: false, Status: "unreachable", Error: err.Error()}
	}
	return HealthStatus{IsHealthy: true, Status: resp.Status}
}

// Ping measures one round trip to the backend.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	err := c.transport.Do(ctx, transport.RequestSpec{
		Method: http.MethodGet,
		Path:   "/ping",
	}, nil)
	if err != nil {
		return 0, fmt.Errorf("ping: %w", err)
	}
	return time.Since(start), nil
}

// ServerInfo fetches backend metadata.
func (c *Client) ServerInfo(ctx context.Context) (*ServerInfo, error) {
	var info ServerInfo
	err := c.transport.Do(ctx, transport.RequestSpec{
		Method: http.MethodGet,
		Path:   "/info",
	}, &info)
	if err != nil {
		return nil, fmt.Errorf("server info: %w", err)
	}
	return &info, nil
}

// Chat requests a completion. Errors are propagated: the caller must know
// a chat turn failed.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var resp ChatResponse
	err := c.transport.Do(ctx, transport.RequestSpec{
		Method: http.MethodPost,
		Path:   "/api/ai/chat",
		Body:   req,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("chat request: %w", err)
	}
	return &resp, nil
}

// ProviderStatus reports provider availability. Best-effort: failures log
// and fall back to the last cached value, then an empty map.
func (c *Client) ProviderStatus(ctx context.Context) map[string]ProviderInfo {
	var resp providersResponse
	err := c.transport.Do(ctx, transport.RequestSpec{
		Method: http.MethodGet,
		Path:   "/api/ai/providers/status",
	}, &resp)
	if err != nil {
		c.degraded(ctx, "provider status", err)
		if stale, ok := cachedValue[providersResponse](c, "/api/ai/providers/status"); ok {
			return stale.Providers
		}
		return map[string]ProviderInfo{}
	}

	if resp.Providers == nil {
		resp.Providers = map[string]ProviderInfo{}
	}
	c.cachePut("/api/ai/providers/status", resp)
	return resp.Providers
}

// TestProvider checks connectivity of one provider. It never fails; an
// unreachable provider or backend yields Available=false.
func (c *Client) TestProvider(ctx context.Context, name string) ProviderTestResult {
	var resp providerTestResponse
	err := c.transport.Do(ctx, transport.RequestSpec{
		Method: http.MethodPost,
		Path:   "/api/ai/providers/test",
		Body:   map[string]string{"provider": name},
	}, &resp)
	if err != nil {
		return ProviderTestResult{Available: false, Error: err.Error()}
	}
	return ProviderTestResult{
		Available: resp.Available,
		Latency:   time.Duration(resp.Latency) * time.Millisecond,
		Error:     resp.Error,
	}
}

// Conversations lists stored conversations. Best-effort: failures fall
// back to the last cached list, then an empty slice.
func (c *Client) Conversations(ctx context.Context) []Conversation {
	var resp conversationsResponse
	err := c.transport.Do(ctx, transport.RequestSpec{
		Method: http.MethodGet,
		Path:   "/api/conversations",
	}, &resp)
	if err != nil {
		c.degraded(ctx, "list conversations", err)
		if stale, ok := cachedValue[conversationsResponse](c, "/api/conversations"); ok {
			return stale.Conversations
		}
		return []Conversation{}
	}

	if resp.Conversations == nil {
		resp.Conversations = []Conversation{}
	}
	c.cachePut("/api/conversations", resp)
	return resp.Conversations
}

// Conversation loads one conversation. Best-effort: nil on any failure,
// missing conversations included.
func (c *Client) Conversation(ctx context.Context, id string) *Conversation {
	var resp conversationResponse
	err := c.transport.Do(ctx, transport.RequestSpec{
		Method: http.MethodGet,
		Path:   "/api/conversations/" + url.PathEscape(id),
	}, &resp)
	if err != nil {
		c.degraded(ctx, "load conversation", err)
		return nil
	}
	return resp.Conversation
}

// SaveConversation stores a new conversation. Reports success; failures
// are logged, not returned.
func (c *Client) SaveConversation(ctx context.Context, conv Conversation) bool {
	return c.command(ctx, "save conversation", transport.RequestSpec{
		Method: http.MethodPost,
		Path:   "/api/conversations",
		Body:   conv,
	})
}

// UpdateConversation updates an existing conversation.
func (c *Client) UpdateConversation(ctx context.Context, conv Conversation) bool {
	return c.command(ctx, "update conversation", transport.RequestSpec{
		Method: http.MethodPut,
		Path:   "/api/conversations/" + url.PathEscape(conv.ID),
		Body:   conv,
	})
}

// DeleteConversation removes a conversation.
func (c *Client) DeleteConversation(ctx context.Context, id string) bool {
	return c.command(ctx, "delete conversation", transport.RequestSpec{
		Method: http.MethodDelete,
		Path:   "/api/conversations/" + url.PathEscape(id),
	})
}

// Settings fetches user settings. Best-effort: failures fall back to the
// last cached value, then the zero value.
func (c *Client) Settings(ctx context.Context) Settings {
	var resp settingsResponse
	err := c.transport.Do(ctx, transport.RequestSpec{
		Method: http.MethodGet,
		Path:   "/api/settings",
	}, &resp)
	if err != nil {
		c.degraded(ctx, "load settings", err)
		if stale, ok := cachedValue[settingsResponse](c, "/api/settings"); ok {
			return stale.Settings
		}
		return Settings{}
	}

	c.cachePut("/api/settings", resp)
	return resp.Settings
}

// SaveSettings stores user settings. Reports success; failures are
// logged, not returned.
func (c *Client) SaveSettings(ctx context.Context, s Settings) bool {
	return c.command(ctx, "save settings", transport.RequestSpec{
		Method: http.MethodPost,
		Path:   "/api/settings",
		Body:   s,
	})
}

// Stats fetches usage statistics. Best-effort: nil on failure.
func (c *Client) Stats(ctx context.Context) *Stats {
	var resp statsResponse
	err := c.transport.Do(ctx, transport.RequestSpec{
		Method: http.MethodGet,
		Path:   "/api/stats",
	}, &resp)
	if err != nil {
		c.degraded(ctx, "load stats", err)
		return nil
	}
	return resp.Stats
}

// SendMetrics ships telemetry events. Fire-and-forget: rate-limited and
// every failure swallowed, because telemetry must never break the app.
func (c *Client) SendMetrics(ctx context.Context, events []Event) {
	if len(events) == 0 {
		return
	}
	if !c.telemetry.Allow() {
		return
	}

	err := c.transport.Do(ctx, transport.RequestSpec{
		Method: http.MethodPost,
		Path:   "/api/metrics",
		Body:   map[string][]Event{"events": events},
	}, nil)
	if err != nil {
		c.degraded(ctx, "send metrics", err)
	}
}

// Snapshot fetches info, provider status, and stats concurrently for
// dashboard views. It fails only when the info fetch fails; the
// best-effort reads keep their own fallbacks.
func (c *Client) Snapshot(ctx context.Context) (*ServerSnapshot, error) {
	snap := &ServerSnapshot{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		info, err := c.ServerInfo(gctx)
		if err != nil {
			return err
		}
		snap.Info = info
		return nil
	})
	g.Go(func() error {
		snap.Providers = c.ProviderStatus(gctx)
		return nil
	})
	g.Go(func() error {
		snap.Stats = c.Stats(gctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("server snapshot: %w", err)
	}
	return snap, nil
}

// command runs a write operation under the bool sentinel policy.
func (c *Client) command(ctx context.Context, op string, spec transport.RequestSpec) bool {
	var resp successResponse
	if err := c.transport.Do(ctx, spec, &resp); err != nil {
		c.degraded(ctx, op, err)
		return false
	}
	return resp.Success
}

// degraded logs a swallowed failure with its classification.
func (c *Client) degraded(ctx context.Context, op string, err error) {
	c.logger.Warn(ctx, "operation degraded",
		observe.F("op", op),
		observe.F("kind", transport.KindOf(err).String()),
		observe.F("error", err.Error()),
	)
}

// cachePut stores the JSON form of a successful best-effort read.
func (c *Client) cachePut(key string, v any) {
	if c.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.cache.Set(key, data, c.cacheTTL)
}

// cachedValue loads the last good payload for a best-effort read.
func cachedValue[T any](c *Client, key string) (T, bool) {
	var v T
	if c.cache == nil {
		return v, false
	}
	data, ok := c.cache.Get(key)
	if !ok {
		return v, false
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false
	}
	return v, true
}
