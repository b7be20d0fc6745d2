package app

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stacklok/connector-lifecycle-server/database"
	"github.com/stacklok/connector-lifecycle-server/internal/app/storage/auth"
	"github.com/stacklok/connector-lifecycle-server/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration tool",
	Long:  `Database migration tool for managing schema versions. Use with 'up' or 'down' subcommands.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmd.Usage()
	},
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending database migrations",
	Long: `Apply all pending migrations to the store named by the configuration file.
Both the database and the file storage types are supported.`,
	RunE: runMigrateUp,
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Revert database migrations",
	Long: `Revert the given number of migrations.
WARNING: This operation can result in data loss. Use with caution.

Examples:
  # Revert the last migration
  connector-api migrate down --config config.yaml --num-steps 1 --yes`,
	RunE: runMigrateDown,
}

func init() {
	migrateCmd.PersistentFlags().BoolP("yes", "y", false, "Answer yes to all questions")
	migrateCmd.PersistentFlags().String("config", "", "Path to configuration file (YAML format, required)")
	migrateDownCmd.Flags().UintP("num-steps", "n", 1, "Number of steps to revert")

	if err := migrateCmd.MarkPersistentFlagRequired("config"); err != nil {
		panic(err)
	}

	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
}

// migrationTarget returns the migration driver and connection string of the
// configured store
func migrationTarget(cfg *config.Config) (string, string, error) {
	switch cfg.Storage.Type {
	case config.StorageTypeDatabase:
		connString, err := auth.ConnectionString(context.Background(), cfg.Storage.Database)
		if err != nil {
			return "", "", fmt.Errorf("failed to build connection string: %w", err)
		}
		return database.DriverPostgres, connString, nil
	case config.StorageTypeFile:
		return database.DriverSQLite, cfg.Storage.File.GetPath(), nil
	default:
		return "", "", fmt.Errorf("storage type %q has no schema to migrate", cfg.Storage.Type)
	}
}

func runMigrateUp(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	driver, connString, err := migrationTarget(cfg)
	if err != nil {
		return err
	}

	if !confirmed(cmd, fmt.Sprintf("About to apply migrations to the %s store. Continue?", driver)) {
		slog.Info("Migration cancelled by user")
		return nil
	}

	slog.Info("Applying database migrations", "driver", driver)
	if err := database.MigrateUp(driver, connString); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

func runMigrateDown(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	driver, connString, err := migrationTarget(cfg)
	if err != nil {
		return err
	}

	numSteps, err := cmd.Flags().GetUint("num-steps")
	if err != nil {
		return fmt.Errorf("failed to get num-steps flag: %w", err)
	}
	if numSteps == 0 || numSteps > 1000 {
		return fmt.Errorf("num-steps must be between 1 and 1000, got %d", numSteps)
	}

	prompt := fmt.Sprintf("WARNING: This will revert %d migration(s) and may result in data loss. Continue?", numSteps)
	if !confirmed(cmd, prompt) {
		return fmt.Errorf("migration cancelled by user")
	}

	slog.Warn("Reverting database migrations", "driver", driver, "steps", numSteps)
	if err := database.MigrateDown(driver, connString, int(numSteps)); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// confirmed returns true when --yes is set or the user answers yes on stdin
func confirmed(cmd *cobra.Command, prompt string) bool {
	if yes, err := cmd.Flags().GetBool("yes"); err == nil && yes {
		return true
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s (yes/no): ", prompt)
	response, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && response == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(response)) {
	case "yes", "y":
		return true
	default:
		return false
	}
}
