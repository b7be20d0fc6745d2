package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // registers the sqlite driver

	"github.com/stacklok/connector-lifecycle-server/database"
	"github.com/stacklok/connector-lifecycle-server/internal/config"
	"github.com/stacklok/connector-lifecycle-server/internal/kv"
)

// FileFactory keeps the store in a local SQLite file
type FileFactory struct {
	path  string
	db    *sql.DB
	store kv.Store
}

var _ Factory = (*FileFactory)(nil)

// NewFileFactory opens the SQLite database, creating its directory and, with
// WithMigrations, its schema.
func NewFileFactory(cfg *config.FileConfig, o *options) (*FileFactory, error) {
	if o == nil {
		o = &options{}
	}
	path := cfg.GetPath()

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory for %s: %w", path, err)
	}

	if o.migrate {
		if err := database.MigrateUp(database.DriverSQLite, path); err != nil {
			return nil, fmt.Errorf("failed to migrate %s: %w", path, err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY between them.
	db.SetMaxOpenConns(1)

	store, err := kv.NewSQLiteStore(kv.WithDB(db), kv.WithTracer(o.tracer))
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	slog.Info("Using file storage", "path", path)
	return &FileFactory{path: path, db: db, store: store}, nil
}

// CreateStore returns the SQLite store
func (f *FileFactory) CreateStore(context.Context) (kv.Store, error) {
	return f.store, nil
}

// Cleanup closes the database file
func (f *FileFactory) Cleanup() {
	if err := f.store.Close(); err != nil {
		slog.Warn("Failed to close file storage", "path", f.path, "error", err)
	}
}
