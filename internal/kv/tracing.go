package kv

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// StoreTracerName is the name used for the store tracer
	StoreTracerName = "github.com/stacklok/connector-lifecycle-server/kv"
)

// Attribute keys attached to store spans
const (
	AttrTable       = attribute.Key("kv.table")
	AttrScope       = attribute.Key("kv.scope")
	AttrKey         = attribute.Key("kv.key")
	AttrPageSize    = attribute.Key("pagination.limit")
	AttrResultCount = attribute.Key("result.count")
	AttrHasCursor   = attribute.Key("pagination.has_cursor")
)

// spans starts store spans tagged with the backing database system.
type spans struct {
	tracer trace.Tracer
	system attribute.KeyValue
}

// startSpan starts a new span for a store operation.
// If the tracer is nil, it returns a no-op span from the context.
func (s spans) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	attrs = append([]attribute.KeyValue{s.system}, attrs...)
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// recordError records an error on a span and sets the span status to error.
// Condition failures and missing items are expected outcomes and are not
// recorded. The status description stays generic so that query text never
// ends up in the trace status.
func recordError(span trace.Span, err error) {
	if err == nil || span == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrConditionFailed) {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, "operation failed")
}

var (
	dbSystemPostgres = semconv.DBSystemPostgreSQL
	dbSystemSQLite   = semconv.DBSystemSqlite
)
