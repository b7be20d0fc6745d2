package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// LifecycleMetricsMeterName is the name used for the lifecycle controller meter
	LifecycleMetricsMeterName = "github.com/stacklok/connector-lifecycle-server/lifecycle"

	// SyncMetricsMeterName is the name used for the document sync meter
	SyncMetricsMeterName = "github.com/stacklok/connector-lifecycle-server/sync"
)

// LifecycleMetrics holds the OpenTelemetry instruments of the lifecycle controller
type LifecycleMetrics struct {
	eventsHandled metric.Int64Counter
	submissions   metric.Int64Counter
	completions   metric.Int64Counter
}

// NewLifecycleMetrics creates a new LifecycleMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewLifecycleMetrics(provider metric.MeterProvider) (*LifecycleMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(LifecycleMetricsMeterName)

	eventsHandled, err := meter.Int64Counter(
		"ccf_lifecycle_events_total",
		metric.WithDescription("Number of job change events handled"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, err
	}

	submissions, err := meter.Int64Counter(
		"ccf_lifecycle_submissions_total",
		metric.WithDescription("Number of jobs submitted to the compute backend"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, err
	}

	completions, err := meter.Int64Counter(
		"ccf_lifecycle_completions_total",
		metric.WithDescription("Number of job completions by resulting status"),
		metric.WithUnit("{job}"),
	)
	if err != nil {
		return nil, err
	}

	return &LifecycleMetrics{
		eventsHandled: eventsHandled,
		submissions:   submissions,
		completions:   completions,
	}, nil
}

// RecordEvent records a handled change event
func (m *LifecycleMetrics) RecordEvent(ctx context.Context, status string, success bool) {
	if m == nil || m.eventsHandled == nil {
		return
	}
	m.eventsHandled.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", status),
		attribute.Bool("success", success),
	))
}

// RecordSubmission records a submission attempt
func (m *LifecycleMetrics) RecordSubmission(ctx context.Context, success bool) {
	if m == nil || m.submissions == nil {
		return
	}
	m.submissions.Add(ctx, 1, metric.WithAttributes(attribute.Bool("success", success)))
}

// RecordCompletion records the terminal status a completion resolved to
func (m *LifecycleMetrics) RecordCompletion(ctx context.Context, status string) {
	if m == nil || m.completions == nil {
		return
	}
	m.completions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", status)))
}

// SyncMetrics holds the OpenTelemetry instruments for document sync runs
type SyncMetrics struct {
	syncDuration metric.Float64Histogram
	documents    metric.Int64Counter
}

// NewSyncMetrics creates a new SyncMetrics instance with the given meter provider.
// If provider is nil, it returns nil (no-op metrics).
func NewSyncMetrics(provider metric.MeterProvider) (*SyncMetrics, error) {
	if provider == nil {
		return nil, nil
	}

	meter := provider.Meter(SyncMetricsMeterName)

	syncDuration, err := meter.Float64Histogram(
		"ccf_sync_duration_seconds",
		metric.WithDescription("Duration of sync operations in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, err
	}

	documents, err := meter.Int64Counter(
		"ccf_sync_documents_total",
		metric.WithDescription("Number of documents processed by sync operations"),
		metric.WithUnit("{document}"),
	)
	if err != nil {
		return nil, err
	}

	return &SyncMetrics{
		syncDuration: syncDuration,
		documents:    documents,
	}, nil
}

// RecordSyncDuration records the duration of a sync operation for a connector
func (m *SyncMetrics) RecordSyncDuration(ctx context.Context, connectorID string, duration time.Duration, success bool) {
	if m == nil || m.syncDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("connector", connectorID),
		attribute.Bool("success", success),
	}

	m.syncDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordDocuments records count documents with the given outcome
// (added, deleted, skipped or failed)
func (m *SyncMetrics) RecordDocuments(ctx context.Context, connectorID, outcome string, count int) {
	if m == nil || m.documents == nil || count == 0 {
		return
	}
	m.documents.Add(ctx, int64(count), metric.WithAttributes(
		attribute.String("connector", connectorID),
		attribute.String("outcome", outcome),
	))
}
