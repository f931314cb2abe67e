package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// meterName is the instrumentation scope of every songvocab metric.
const meterName = "github.com/japaniel/songvocab"

// Metrics holds the OpenTelemetry instruments of the service. All fields are
// safe for concurrent use.
type Metrics struct {
	// StageDuration tracks pipeline stage latency. Attributes: stage, outcome.
	StageDuration metric.Float64Histogram

	// Requests counts finished pipeline runs. Attributes: code.
	Requests metric.Int64Counter

	// RateLimited counts rejected API calls. Attributes: route.
	RateLimited metric.Int64Counter

	// VocabularyItems counts extracted items that were persisted.
	VocabularyItems metric.Int64Counter

	// HTTPRequestDuration tracks handler latency. Attributes: method, path, status.
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets are tuned for network-bound stages (seconds).
var latencyBuckets = []float64{
	0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.StageDuration, err = m.Float64Histogram("songvocab.stage.duration",
		metric.WithDescription("Latency of a pipeline stage."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Requests, err = m.Int64Counter("songvocab.requests",
		metric.WithDescription("Finished pipeline runs by result code."),
	); err != nil {
		return nil, err
	}
	if met.RateLimited, err = m.Int64Counter("songvocab.rate_limited",
		metric.WithDescription("API calls rejected by the rate limiter."),
	); err != nil {
		return nil, err
	}
	if met.VocabularyItems, err = m.Int64Counter("songvocab.vocabulary.items",
		metric.WithDescription("Vocabulary items persisted."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("songvocab.http.request.duration",
		metric.WithDescription("Latency of HTTP request handling."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// NopMetrics returns instruments that record nothing.
func NopMetrics() *Metrics {
	m, err := NewMetrics(noop.NewMeterProvider())
	if err != nil {
		// The noop provider never fails.
		panic(err)
	}
	return m
}

// RecordStage records how long a stage took and whether it succeeded.
func (m *Metrics) RecordStage(ctx context.Context, stage string, d time.Duration, outcome string) {
	m.StageDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("stage", stage),
		attribute.String("outcome", outcome),
	))
}

// RecordRequest counts a finished pipeline run.
func (m *Metrics) RecordRequest(ctx context.Context, code string) {
	m.Requests.Add(ctx, 1, metric.WithAttributes(attribute.String("code", code)))
}
