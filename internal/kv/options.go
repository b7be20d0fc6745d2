package kv

import (
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/trace"
)

// options holds configuration options for the SQL backed stores
type options struct {
	pool   *pgxpool.Pool
	db     *sql.DB
	tracer trace.Tracer
}

// Option is a functional option for configuring the SQL backed stores
type Option func(*options) error

// WithConnectionPool sets the pgx pool used by the PostgreSQL store. The
// caller owns the pool unless the store is closed.
func WithConnectionPool(pool *pgxpool.Pool) Option {
	return func(o *options) error {
		if pool == nil {
			return fmt.Errorf("pgx pool is required")
		}
		o.pool = pool
		return nil
	}
}

// WithDB sets the database handle used by the SQLite store.
func WithDB(db *sql.DB) Option {
	return func(o *options) error {
		if db == nil {
			return fmt.Errorf("database handle is required")
		}
		o.db = db
		return nil
	}
}

// WithTracer sets the OpenTelemetry tracer for the store.
// If not set, tracing will be disabled (no-op).
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) error {
		o.tracer = tracer
		return nil
	}
}

func applyOptions(opts []Option) (*options, error) {
	o := &options{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}
