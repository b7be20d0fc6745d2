// Package storage opens the resource store selected by the server
// configuration and owns the resources behind it.
package storage

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/trace"

	"github.com/stacklok/connector-lifecycle-server/internal/config"
	"github.com/stacklok/connector-lifecycle-server/internal/kv"
)

// Factory creates the store shared by the connector registry, the job ledger
// and the document ledger.
type Factory interface {
	// CreateStore returns the store. Repeated calls return the same store.
	CreateStore(ctx context.Context) (kv.Store, error)

	// Cleanup releases the store and the connections behind it
	Cleanup()
}

// Option configures the factories
type Option func(*options)

type options struct {
	tracer  trace.Tracer
	migrate bool
}

// WithTracer traces store operations with tracer
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) {
		o.tracer = tracer
	}
}

// WithMigrations applies pending schema migrations when the store is opened
func WithMigrations(enabled bool) Option {
	return func(o *options) {
		o.migrate = enabled
	}
}

// NewStorageFactory returns the factory of the configured storage type
func NewStorageFactory(ctx context.Context, cfg *config.Config, opts ...Option) (Factory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	switch cfg.Storage.Type {
	case config.StorageTypeMemory, "":
		return NewMemoryFactory(), nil
	case config.StorageTypeFile:
		return NewFileFactory(cfg.Storage.File, o)
	case config.StorageTypeDatabase:
		return NewDatabaseFactory(ctx, cfg.Storage.Database, o)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Storage.Type)
	}
}

// MemoryFactory keeps everything in process memory
type MemoryFactory struct {
	store kv.Store
}

var _ Factory = (*MemoryFactory)(nil)

// NewMemoryFactory creates an in-memory factory
func NewMemoryFactory() *MemoryFactory {
	return &MemoryFactory{store: kv.NewMemoryStore()}
}

// CreateStore returns the in-memory store
func (f *MemoryFactory) CreateStore(context.Context) (kv.Store, error) {
	return f.store, nil
}

// Cleanup is a no-op for in-memory storage
func (*MemoryFactory) Cleanup() {}
