// Package database provides database migration tooling.
package database

import (
	"embed"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // registers the pgx5:// scheme
	_ "github.com/golang-migrate/migrate/v4/database/sqlite" // registers the sqlite:// scheme
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Supported migration drivers
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationsFS embed.FS

// migrationsFromSource returns a migration source driver for the given database driver.
func migrationsFromSource(driver string) (source.Driver, error) {
	return iofs.New(migrationsFS, "migrations/"+driver)
}

// Migrator is the interface for the migration tooling.
type Migrator interface {
	Up() error
	Down() error
	Steps(int) error
	Version() (uint, bool, error)
	Close() (error, error)
}

// NewMigrator returns a new migration instance for the given driver.
// For PostgreSQL the connection string is a postgres:// URL, for SQLite it is
// the path of the database file.
func NewMigrator(driver, connString string) (Migrator, error) {
	var url string
	switch driver {
	case DriverPostgres:
		url = toPgxScheme(connString)
	case DriverSQLite:
		url = "sqlite://" + connString
	default:
		return nil, fmt.Errorf("unsupported migration driver: %s", driver)
	}

	d, err := migrationsFromSource(driver)
	if err != nil {
		return nil, fmt.Errorf("failed to load migrations: %w", err)
	}
	return migrate.NewWithSourceInstance("iofs", d, url)
}

func toPgxScheme(connString string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if rest, ok := strings.CutPrefix(connString, prefix); ok {
			return "pgx5://" + rest
		}
	}
	return connString
}
