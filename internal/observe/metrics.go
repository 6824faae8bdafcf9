// Package observe provides application-wide observability primitives for
// Salama: OpenTelemetry metrics with a Prometheus exporter bridge, plus HTTP
// middleware that records request durations.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A package-level
// default [Metrics] instance ([DefaultMetrics]) is provided for convenience;
// tests should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Salama metrics.
const meterName = "github.com/salama-app/salama"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// Utterances counts classified utterances. Use with attribute:
	//   attribute.String("outcome", "danger"|"command"|"unrecognized")
	Utterances metric.Int64Counter

	// IncidentsRecorded counts incidents appended to the local queue.
	// Use with attribute.String("type", ...).
	IncidentsRecorded metric.Int64Counter

	// IncidentsPending tracks the size of the local incident queue.
	IncidentsPending metric.Int64UpDownCounter

	// SyncDeliveryDuration tracks per-incident delivery latency.
	SyncDeliveryDuration metric.Float64Histogram

	// SyncDeliveries counts delivery attempts. Use with
	// attribute.String("status", "ok"|"error").
	SyncDeliveries metric.Int64Counter

	// CacheRequests counts asset-cache lookups. Use with
	// attribute.String("result", "hit"|"miss"|"fallback"|"unavailable").
	CacheRequests metric.Int64Counter

	// HTTPRequestDuration tracks HTTP request processing time. Use with
	// attributes: attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram

	// pendingMu guards lastPending for [Metrics.SetPending].
	pendingMu   sync.Mutex
	lastPending int64
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// local-network delivery and cache serving latencies.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.Utterances, err = m.Int64Counter("salama.voice.utterances",
		metric.WithDescription("Total classified utterances by outcome."),
	); err != nil {
		return nil, err
	}
	if met.IncidentsRecorded, err = m.Int64Counter("salama.incidents.recorded",
		metric.WithDescription("Total incidents appended to the local queue by type."),
	); err != nil {
		return nil, err
	}
	if met.IncidentsPending, err = m.Int64UpDownCounter("salama.incidents.pending",
		metric.WithDescription("Current size of the local incident queue."),
	); err != nil {
		return nil, err
	}
	if met.SyncDeliveryDuration, err = m.Float64Histogram("salama.sync.delivery.duration",
		metric.WithDescription("Per-incident collector delivery latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.SyncDeliveries, err = m.Int64Counter("salama.sync.deliveries",
		metric.WithDescription("Total delivery attempts by status."),
	); err != nil {
		return nil, err
	}
	if met.CacheRequests, err = m.Int64Counter("salama.cache.requests",
		metric.WithDescription("Total asset-cache lookups by result."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("salama.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// RecordUtterance increments the utterance counter for an outcome.
func (m *Metrics) RecordUtterance(ctx context.Context, outcome string) {
	m.Utterances.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// RecordDelivery records one delivery attempt with its latency and status.
func (m *Metrics) RecordDelivery(ctx context.Context, seconds float64, status string) {
	m.SyncDeliveryDuration.Record(ctx, seconds)
	m.SyncDeliveries.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// RecordIncident increments the recorded-incident counter for a type.
func (m *Metrics) RecordIncident(ctx context.Context, incidentType string) {
	m.IncidentsRecorded.Add(ctx, 1, metric.WithAttributes(attribute.String("type", incidentType)))
}

// SetPending moves the pending-queue gauge to an absolute level. The
// underlying instrument is delta-based, so the last reported level is kept
// to compute the adjustment.
func (m *Metrics) SetPending(ctx context.Context, pending int) {
	m.pendingMu.Lock()
	delta := int64(pending) - m.lastPending
	m.lastPending = int64(pending)
	m.pendingMu.Unlock()
	if delta != 0 {
		m.IncidentsPending.Add(ctx, delta)
	}
}

// RecordCacheResult increments the cache lookup counter for a result.
func (m *Metrics) RecordCacheResult(ctx context.Context, result string) {
	m.CacheRequests.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
