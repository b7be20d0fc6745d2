package database

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
)

// MigrateUp applies all pending migrations. Running it against an up to date
// database is not an error.
func MigrateUp(driver, connString string) error {
	m, err := NewMigrator(driver, connString)
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	logVersion(m, driver)
	return nil
}

// MigrateDown rolls back the given number of migrations.
func MigrateDown(driver, connString string, steps int) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", steps)
	}

	m, err := NewMigrator(driver, connString)
	if err != nil {
		return err
	}
	defer closeMigrator(m)

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to roll back migrations: %w", err)
	}
	logVersion(m, driver)
	return nil
}

func logVersion(m Migrator, driver string) {
	version, dirty, err := m.Version()
	if err != nil {
		if !errors.Is(err, migrate.ErrNilVersion) {
			slog.Warn("Failed to read migration version", "driver", driver, "error", err)
		}
		return
	}
	slog.Info("Database schema version", "driver", driver, "version", version, "dirty", dirty)
}

func closeMigrator(m Migrator) {
	srcErr, dbErr := m.Close()
	if srcErr != nil || dbErr != nil {
		slog.Warn("Failed to close migrator", "source_error", srcErr, "database_error", dbErr)
	}
}
