package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// RequestMeta identifies one logical backend request for telemetry purposes.
type RequestMeta struct {
	Method string // HTTP method
	Path   string // endpoint path, without query
}

// SpanName returns the deterministic span name for this request.
// Format: relay.request <METHOD> <path>
func (m RequestMeta) SpanName() string {
	return "relay.request " + m.Method + " " + m.Path
}

// RequestTracer wraps OpenTelemetry tracing with the span conventions used
// by the transport layer.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type RequestTracer interface {
	// StartSpan starts a span covering one logical request, retries included.
	StartSpan(ctx context.Context, meta RequestMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

// RequestMetrics records request telemetry.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type RequestMetrics interface {
	// RecordRequest records one logical request with its total duration
	// across all attempts, the number of attempts made, and the outcome.
	RecordRequest(ctx context.Context, meta RequestMeta, duration time.Duration, attempts int, err error)
}

// requestTracer is the concrete implementation of RequestTracer.
type requestTracer struct {
	tracer trace.Tracer
}

// NewRequestTracer creates a RequestTracer wrapping the given otel tracer.
func NewRequestTracer(t trace.Tracer) RequestTracer {
	return &requestTracer{tracer: t}
}

func (t *requestTracer) StartSpan(ctx context.Context, meta RequestMeta) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(
			attribute.String("http.method", meta.Method),
			attribute.String("http.path", meta.Path),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

func (t *requestTracer) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// requestMetrics is the concrete implementation of RequestMetrics.
type requestMetrics struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	retryCount   metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewRequestMetrics creates a RequestMetrics instance with the given meter.
func NewRequestMetrics(meter metric.Meter) (RequestMetrics, error) {
	totalCount, err := meter.Int64Counter(
		"relay.request.total",
		metric.WithDescription("Total number of logical requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"relay.request.errors",
		metric.WithDescription("Total number of failed logical requests"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	retryCount, err := meter.Int64Counter(
		"relay.request.retries",
		metric.WithDescription("Total number of retry attempts beyond the first"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"relay.request.duration_ms",
		metric.WithDescription("Logical request duration in milliseconds, retries included"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &requestMetrics{
		totalCount:   totalCount,
		errorCount:   errorCount,
		retryCount:   retryCount,
		durationHist: durationHist,
	}, nil
}

func (m *requestMetrics) RecordRequest(ctx context.Context, meta RequestMeta, duration time.Duration, attempts int, err error) {
	opt := metric.WithAttributes(
		attribute.String("http.method", meta.Method),
		attribute.String("http.path", meta.Path),
	)

	m.totalCount.Add(ctx, 1, opt)

	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}

	if attempts > 1 {
		m.retryCount.Add(ctx, int64(attempts-1), opt)
	}

	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

// noopRequestTracer discards all spans.
type noopRequestTracer struct {
	noop trace.Tracer
}

// NewNoopRequestTracer creates a RequestTracer that records nothing.
func NewNoopRequestTracer() RequestTracer {
	return &noopRequestTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopRequestTracer) StartSpan(ctx context.Context, meta RequestMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopRequestTracer) EndSpan(span trace.Span, err error) {
	span.End()
}

// noopRequestMetrics discards all measurements.
type noopRequestMetrics struct{}

// NewNoopRequestMetrics creates a RequestMetrics that records nothing.
func NewNoopRequestMetrics() RequestMetrics {
	return &noopRequestMetrics{}
}

func (m *noopRequestMetrics) RecordRequest(ctx context.Context, meta RequestMeta, duration time.Duration, attempts int, err error) {
}
