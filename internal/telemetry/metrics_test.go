package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader, scopeName string) map[string]metricdata.Aggregation {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := map[string]metricdata.Aggregation{}
	for _, scope := range rm.ScopeMetrics {
		if scope.Scope.Name != scopeName {
			continue
		}
		for _, m := range scope.Metrics {
			found[m.Name] = m.Data
		}
	}
	return found
}

func TestNewLifecycleMetrics(t *testing.T) {
	t.Parallel()

	t.Run("returns nil when provider is nil", func(t *testing.T) {
		t.Parallel()

		metrics, err := NewLifecycleMetrics(nil)
		require.NoError(t, err)
		assert.Nil(t, metrics)
	})

	t.Run("no-op when metrics is nil", func(t *testing.T) {
		t.Parallel()

		var metrics *LifecycleMetrics
		// Should not panic
		metrics.RecordEvent(context.Background(), "STARTED", true)
		metrics.RecordSubmission(context.Background(), false)
		metrics.RecordCompletion(context.Background(), "STOPPED")
	})

	t.Run("records counters", func(t *testing.T) {
		t.Parallel()

		reader := sdkmetric.NewManualReader()
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		defer func() { _ = mp.Shutdown(context.Background()) }()

		metrics, err := NewLifecycleMetrics(mp)
		require.NoError(t, err)

		metrics.RecordEvent(context.Background(), "STARTED", true)
		metrics.RecordEvent(context.Background(), "STOPPING", false)
		metrics.RecordSubmission(context.Background(), true)
		metrics.RecordCompletion(context.Background(), "SUCCEEDED")

		found := collect(t, reader, LifecycleMetricsMeterName)
		events, ok := found["ccf_lifecycle_events_total"].(metricdata.Sum[int64])
		require.True(t, ok, "expected events counter")
		assert.Len(t, events.DataPoints, 2)
		assert.Contains(t, found, "ccf_lifecycle_submissions_total")
		assert.Contains(t, found, "ccf_lifecycle_completions_total")
	})
}

func TestSyncMetrics(t *testing.T) {
	t.Parallel()

	t.Run("returns nil when provider is nil", func(t *testing.T) {
		t.Parallel()

		metrics, err := NewSyncMetrics(nil)
		require.NoError(t, err)
		assert.Nil(t, metrics)

		// Should not panic
		metrics.RecordSyncDuration(context.Background(), "cc-1", time.Second, true)
		metrics.RecordDocuments(context.Background(), "cc-1", "added", 3)
	})

	t.Run("records duration in seconds", func(t *testing.T) {
		t.Parallel()

		reader := sdkmetric.NewManualReader()
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		defer func() { _ = mp.Shutdown(context.Background()) }()

		metrics, err := NewSyncMetrics(mp)
		require.NoError(t, err)

		metrics.RecordSyncDuration(context.Background(), "cc-1", 1500*time.Millisecond, true)

		found := collect(t, reader, SyncMetricsMeterName)
		hist, ok := found["ccf_sync_duration_seconds"].(metricdata.Histogram[float64])
		require.True(t, ok)
		require.NotEmpty(t, hist.DataPoints)
		assert.InDelta(t, 1.5, hist.DataPoints[0].Sum, 0.001)
	})

	t.Run("records document counts", func(t *testing.T) {
		t.Parallel()

		reader := sdkmetric.NewManualReader()
		mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
		defer func() { _ = mp.Shutdown(context.Background()) }()

		metrics, err := NewSyncMetrics(mp)
		require.NoError(t, err)

		metrics.RecordDocuments(context.Background(), "cc-1", "added", 7)
		metrics.RecordDocuments(context.Background(), "cc-1", "skipped", 0)

		found := collect(t, reader, SyncMetricsMeterName)
		sum, ok := found["ccf_sync_documents_total"].(metricdata.Sum[int64])
		require.True(t, ok)
		require.Len(t, sum.DataPoints, 1)
		assert.Equal(t, int64(7), sum.DataPoints[0].Value)
	})
}
