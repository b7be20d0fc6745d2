package lifecycle_test

import (
	"context"
	"errors"
	"testing"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/mock/gomock"

	"github.com/stacklok/connector-lifecycle-server/internal/batch"
	batchmocks "github.com/stacklok/connector-lifecycle-server/internal/batch/mocks"
	"github.com/stacklok/connector-lifecycle-server/internal/jobs"
	"github.com/stacklok/connector-lifecycle-server/internal/lifecycle"
)

func tracedController(t *testing.T, f *fixture, compute batch.Compute) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	f.controller = lifecycle.NewController(f.ledger, f.registry, compute,
		lifecycle.WithRetryOptions(backoff.WithMaxTries(3)),
		lifecycle.WithTracer(tp.Tracer("lifecycle-test")),
	)
	return exporter
}

func spanAttributes(s tracetest.SpanStub) map[string]string {
	attrs := make(map[string]string, len(s.Attributes))
	for _, kv := range s.Attributes {
		attrs[string(kv.Key)] = kv.Value.AsString()
	}
	return attrs
}

func TestController_HandleEventSpan(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	exporter := tracedController(t, f, f.compute)
	c := f.createConnector(t)
	job := f.startJob(t, c)

	require.NoError(t, f.controller.HandleEvent(context.Background(), eventFor(job)))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "lifecycle.HandleEvent", spans[0].Name)
	assert.Equal(t, map[string]string{
		"job.id":       job.ID,
		"job.status":   string(jobs.StatusStarted),
		"connector.id": c.ID,
		"tenant.scope": testScope.String(),
	}, spanAttributes(spans[0]))
	assert.Equal(t, codes.Unset, spans[0].Status.Code)
}

func TestController_HandleEventSpanRecordsSubmissionFailure(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	compute := batchmocks.NewMockCompute(ctrl)
	compute.EXPECT().Register(gomock.Any(), gomock.Any()).Return("definition", nil)
	compute.EXPECT().Submit(gomock.Any(), gomock.Any()).Return("", errors.New("queue disabled"))

	f := newFixture(t, compute)
	exporter := tracedController(t, f, compute)
	c := f.createConnector(t)
	job := f.startJob(t, c)

	require.NoError(t, f.controller.HandleEvent(context.Background(), eventFor(job)))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
	assert.Equal(t, "operation failed", spans[0].Status.Description)

	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "exception", spans[0].Events[0].Name)
	var message string
	for _, attr := range spans[0].Events[0].Attributes {
		if attr.Key == "exception.message" {
			message = attr.Value.AsString()
		}
	}
	assert.Contains(t, message, "queue disabled")
}

func TestController_SkippedEventsHaveNoSpan(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	exporter := tracedController(t, f, f.compute)
	c := f.createConnector(t)
	job := f.startJob(t, c)

	event := eventFor(job)
	event.Status = string(jobs.StatusRunning)
	require.NoError(t, f.controller.HandleEvent(context.Background(), event))
	assert.Empty(t, exporter.GetSpans())
}
