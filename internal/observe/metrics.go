// Package observe holds the service's OpenTelemetry metrics and the HTTP
// middleware that records them. Metrics are exported for Prometheus scraping
// through InitProvider.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/windfall/speakcoach_service"

// Provider call outcomes.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds all metric instruments for the service. The instruments are
// safe for concurrent use.
type Metrics struct {
	// HTTPRequestDuration is keyed by method, route and status.
	HTTPRequestDuration metric.Float64Histogram

	// ProviderRequests counts upstream calls by provider, kind and status.
	ProviderRequests metric.Int64Counter

	// ProviderDuration tracks upstream latency by provider and kind.
	ProviderDuration metric.Float64Histogram

	// AssessmentsCompleted counts persisted attempts by language.
	AssessmentsCompleted metric.Int64Counter
}

var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates every instrument on the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.HTTPRequestDuration, err = m.Float64Histogram("http.server.request.duration",
		metric.WithDescription("HTTP request latency by method, route and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("provider.requests",
		metric.WithDescription("Upstream provider calls by provider, kind and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderDuration, err = m.Float64Histogram("provider.duration",
		metric.WithDescription("Upstream provider latency by provider and kind."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.AssessmentsCompleted, err = m.Int64Counter("assessments.completed",
		metric.WithDescription("Pronunciation assessments stored, by language."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// NewNopMetrics returns instruments that record nothing, for tests and for
// callers that do not care about metrics.
func NewNopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider())
	return m
}

// RecordProvider records one upstream call. kind is e.g. "llm", "assess" or "tts".
func (m *Metrics) RecordProvider(ctx context.Context, provider, kind string, start time.Time, err error) {
	if m == nil {
		return
	}
	status := StatusOK
	if err != nil {
		status = StatusError
	}
	m.ProviderRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("kind", kind),
		attribute.String("status", status),
	))
	m.ProviderDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("kind", kind),
	))
}

// RecordAssessment counts a stored attempt.
func (m *Metrics) RecordAssessment(ctx context.Context, language string) {
	if m == nil {
		return
	}
	m.AssessmentsCompleted.Add(ctx, 1, metric.WithAttributes(attribute.String("language", language)))
}
