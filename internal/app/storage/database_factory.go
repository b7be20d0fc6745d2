package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stacklok/connector-lifecycle-server/database"
	"github.com/stacklok/connector-lifecycle-server/internal/app/storage/auth"
	"github.com/stacklok/connector-lifecycle-server/internal/config"
	"github.com/stacklok/connector-lifecycle-server/internal/kv"
)

// DatabaseFactory keeps the store in PostgreSQL
type DatabaseFactory struct {
	pool  *pgxpool.Pool
	store kv.Store
}

var _ Factory = (*DatabaseFactory)(nil)

// NewDatabaseFactory connects to PostgreSQL and, with WithMigrations, brings
// the schema up to date.
func NewDatabaseFactory(ctx context.Context, cfg *config.DatabaseConfig, o *options) (*DatabaseFactory, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration is required for database storage type")
	}
	if o == nil {
		o = &options{}
	}

	connStr, err := cfg.GetConnectionString()
	if err != nil {
		return nil, err
	}

	if o.migrate {
		migrateConnStr, err := auth.ConnectionString(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := database.MigrateUp(database.DriverPostgres, migrateConnStr); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	pool, err := buildConnectionPool(ctx, cfg, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", err)
	}

	store, err := kv.NewPostgresStore(kv.WithConnectionPool(pool), kv.WithTracer(o.tracer))
	if err != nil {
		pool.Close()
		return nil, err
	}

	return &DatabaseFactory{pool: pool, store: store}, nil
}

// CreateStore returns the PostgreSQL store
func (d *DatabaseFactory) CreateStore(context.Context) (kv.Store, error) {
	return d.store, nil
}

// Cleanup closes the connection pool
func (d *DatabaseFactory) Cleanup() {
	slog.Info("Closing database connection pool")
	_ = d.store.Close()
}

func buildConnectionPool(ctx context.Context, cfg *config.DatabaseConfig, connStr string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database connection string: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	}
	if cfg.ConnMaxLifetime != "" {
		lifetime, err := time.ParseDuration(cfg.ConnMaxLifetime)
		if err != nil {
			return nil, fmt.Errorf("failed to parse connMaxLifetime: %w", err)
		}
		poolConfig.MaxConnLifetime = lifetime
	}
	if cfg.DynamicAuth != nil {
		beforeConnect, err := auth.BeforeConnect(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to configure dynamic authentication: %w", err)
		}
		poolConfig.BeforeConnect = beforeConnect
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	slog.Info("Database connection pool created", "host", cfg.Host, "database", cfg.Database)
	return pool, nil
}
