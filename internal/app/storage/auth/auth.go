// Package auth resolves short-lived database credentials.
package auth

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/stacklok/connector-lifecycle-server/internal/app/storage/auth/aws"
	"github.com/stacklok/connector-lifecycle-server/internal/config"
)

var errNoMethod = fmt.Errorf("dynamic auth is configured but no supported auth method (awsRdsIam) is specified")

// BeforeConnect returns a pgx hook that sets a fresh token as the password of
// every new pool connection.
func BeforeConnect(
	ctx context.Context,
	cfg *config.DatabaseConfig,
) (func(ctx context.Context, connConfig *pgx.ConnConfig) error, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration is required")
	}
	if cfg.DynamicAuth == nil {
		return nil, fmt.Errorf("dynamic authentication is not configured")
	}

	if cfg.DynamicAuth.AWSRDSIAM != nil {
		return aws.PgxAuthFunc(ctx, cfg)
	}
	return nil, errNoMethod
}

// ConnectionString returns the connection string for one-shot connections
// such as migrations, where no BeforeConnect hook can run. Without dynamic
// auth it is the static connection string.
func ConnectionString(ctx context.Context, cfg *config.DatabaseConfig) (string, error) {
	if cfg == nil {
		return "", fmt.Errorf("database configuration is required")
	}
	if cfg.DynamicAuth == nil {
		return cfg.GetConnectionString()
	}
	if cfg.DynamicAuth.AWSRDSIAM == nil {
		return "", errNoMethod
	}

	token, err := aws.NewToken(ctx, cfg)
	if err != nil {
		return "", fmt.Errorf("failed to resolve auth token: %w", err)
	}
	return cfg.BuildConnectionStringWithAuth(token), nil
}
