package config

import (
	"context"
	"fmt"

	"github.com/relaydesk/relay-go/api"
	"github.com/relaydesk/relay-go/auth"
	"github.com/relaydesk/relay-go/cache"
	"github.com/relaydesk/relay-go/guard"
	"github.com/relaydesk/relay-go/health"
	"github.com/relaydesk/relay-go/observe"
	"github.com/relaydesk/relay-go/transport"
)

// SDK is the assembled client stack.
type SDK struct {
	// API is the typed facade over the backend.
	API *api.Client

	// Monitor tracks backend connectivity. Started by Build; callers only
	// read State or Subscribe.
	Monitor *health.Monitor

	// Observer owns the telemetry providers.
	Observer observe.Observer
}

// Close stops the monitor and flushes telemetry.
func (s *SDK) Close(ctx context.Context) error {
	s.Monitor.Close()
	return s.Observer.Shutdown(ctx)
}

// Build assembles the SDK from a loaded configuration.
func Build(ctx context.Context, cfg *Config) (*SDK, error) {
	obs, err := observe.NewObserver(ctx, observe.Config{
		ServiceName: cfg.Observe.ServiceName,
		Version:     cfg.Observe.Version,
		Tracing: observe.TracingConfig{
			Enabled:   cfg.Observe.Tracing.Enabled,
			Exporter:  cfg.Observe.Tracing.Exporter,
			SamplePct: cfg.Observe.Tracing.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  cfg.Observe.Metrics.Enabled,
			Exporter: cfg.Observe.Metrics.Exporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: cfg.Observe.Logging.Enabled,
			Level:   cfg.Observe.Logging.Level,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("config: building observer: %w", err)
	}

	metrics, err := observe.NewRequestMetrics(obs.Meter())
	if err != nil {
		return nil, fmt.Errorf("config: building request metrics: %w", err)
	}

	tc, err := transport.New(transport.Config{
		BaseURL:   cfg.BaseURL,
		Timeout:   cfg.Timeout,
		UserAgent: cfg.UserAgent,
		Retry: transport.RetryConfig{
			MaxAttempts:  cfg.Retry.MaxAttempts,
			InitialDelay: cfg.Retry.InitialDelay,
			Multiplier:   cfg.Retry.Multiplier,
			MaxDelay:     cfg.Retry.MaxDelay,
			Jitter:       cfg.Retry.Jitter,
		},
		Credentials: credentials(cfg),
		Breaker: guard.NewBreaker(guard.BreakerConfig{
			// Only backend-side failures trip the circuit.
			IsFailure: func(err error) bool {
				return err != nil && transport.KindOf(err).Retryable()
			},
		}),
		Logger:      obs.Logger(),
		Metrics:     metrics,
		Tracer:      observe.NewRequestTracer(obs.Tracer()),
	})
	if err != nil {
		return nil, err
	}

	var telemetry *guard.Limiter
	if cfg.Telemetry.Enabled {
		telemetry = guard.NewLimiter(guard.LimiterConfig{
			PerSecond: cfg.Telemetry.PerSecond,
			Burst:     cfg.Telemetry.Burst,
		})
	} else {
		// Telemetry off: a near-zero rate with its single burst token
		// spent up front drops every event.
		telemetry = guard.NewLimiter(guard.LimiterConfig{PerSecond: 1e-9, Burst: 1})
		telemetry.Allow()
	}

	apiClient, err := api.New(api.Config{
		Transport: tc,
		Logger:    obs.Logger(),
		Cache:     cache.NewStore(),
		Telemetry: telemetry,
		UploadGate: guard.NewBulkhead(guard.BulkheadConfig{
			MaxConcurrent: cfg.Upload.MaxConcurrent,
		}),
	})
	if err != nil {
		return nil, err
	}

	monitor, err := health.NewMonitor(health.Config{
		Checker: health.CheckerFunc(func(ctx context.Context) error {
			if status := apiClient.CheckHealth(ctx); !status.IsHealthy {
				return fmt.Errorf("backend unhealthy: %s", status.Error)
			}
			return nil
		}),
		Interval: cfg.Health.Interval,
		Timeout:  cfg.Health.Timeout,
		Logger:   obs.Logger(),
	})
	if err != nil {
		return nil, err
	}
	monitor.Start(ctx)

	return &SDK{API: apiClient, Monitor: monitor, Observer: obs}, nil
}

// credentials maps the auth section to a transport credential. API key
// wins when both are configured.
func credentials(cfg *Config) auth.Credentials {
	switch {
	case cfg.Auth.APIKey != "":
		return auth.APIKey{Key: cfg.Auth.APIKey}
	case cfg.Auth.BearerToken != "":
		return auth.NewBearer(auth.BearerConfig{Token: cfg.Auth.BearerToken})
	default:
		return nil
	}
}
