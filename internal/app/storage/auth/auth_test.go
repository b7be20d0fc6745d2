package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/connector-lifecycle-server/internal/config"
)

func TestBeforeConnect_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     *config.DatabaseConfig
		wantErr string
	}{
		{name: "nil config", wantErr: "database configuration is required"},
		{name: "not configured", cfg: &config.DatabaseConfig{}, wantErr: "dynamic authentication is not configured"},
		{
			name:    "no method",
			cfg:     &config.DatabaseConfig{DynamicAuth: &config.DatabaseDynamicAuthConfig{}},
			wantErr: "no supported auth method",
		},
		{
			name: "rds iam without region",
			cfg: &config.DatabaseConfig{DynamicAuth: &config.DatabaseDynamicAuthConfig{
				AWSRDSIAM: &config.AWSRDSIAMConfig{},
			}},
			wantErr: "region is not configured",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			hook, err := BeforeConnect(context.Background(), tt.cfg)
			require.Error(t, err)
			assert.Nil(t, hook)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

//nolint:paralleltest // Uses t.Setenv
func TestConnectionString(t *testing.T) {
	t.Setenv(config.DatabasePasswordEnv, "static")

	_, err := ConnectionString(context.Background(), nil)
	require.Error(t, err)

	cfg := &config.DatabaseConfig{Host: "db", Port: 5432, User: "ccf", Database: "connectors", SSLMode: "disable"}
	conn, err := ConnectionString(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "postgres://ccf:static@db:5432/connectors?sslmode=disable", conn)

	cfg.DynamicAuth = &config.DatabaseDynamicAuthConfig{}
	_, err = ConnectionString(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no supported auth method")
}
