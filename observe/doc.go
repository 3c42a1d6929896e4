// Package observe provides the telemetry surface for the relay client:
// structured logging, OpenTelemetry tracing, and request metrics.
//
// The Observer owns the telemetry providers and hands out a tracer, a
// meter, and a logger. Individual subsystems (tracing, metrics, logging)
// can be enabled independently; anything disabled degrades to a no-op so
// callers never branch on configuration.
//
//	obs, err := observe.NewObserver(ctx, observe.Config{
//	    ServiceName: "relay-go",
//	    Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
//	    Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "prometheus"},
//	})
//	if err != nil {
//	    return err
//	}
//	defer obs.Shutdown(ctx)
//
// Request-scoped helpers (RequestTracer, RequestMetrics) wrap the raw otel
// primitives with the attribute conventions used by the transport layer.
package observe
