// Package aws implements dynamic authentication for AWS RDS IAM.
package aws

import (
	"context"
	"fmt"
	"net/http"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/feature/rds/auth"
	"github.com/jackc/pgx/v5"

	"github.com/stacklok/connector-lifecycle-server/internal/config"
)

// RegionDetect asks the instance metadata service for the region
const RegionDetect = "detect"

const imdsTimeout = 2 * time.Second

// Region resolves the configured region, detecting it through IMDS when set
// to RegionDetect.
func Region(ctx context.Context, cfg *config.DatabaseConfig) (string, error) {
	if cfg.DynamicAuth == nil || cfg.DynamicAuth.AWSRDSIAM == nil || cfg.DynamicAuth.AWSRDSIAM.Region == "" {
		return "", fmt.Errorf("AWS RDS IAM region is not configured")
	}

	region := cfg.DynamicAuth.AWSRDSIAM.Region
	if region != RegionDetect {
		return region, nil
	}

	client := imds.New(imds.Options{HTTPClient: &http.Client{Timeout: imdsTimeout}})
	out, err := client.GetRegion(ctx, &imds.GetRegionInput{})
	if err != nil {
		return "", fmt.Errorf("failed to get region from IMDS: %w", err)
	}
	return out.Region, nil
}

func buildToken(ctx context.Context, cfg *config.DatabaseConfig, region string) (string, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return "", fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	token, err := auth.BuildAuthToken(ctx, endpoint, region, cfg.User, awsCfg.Credentials)
	if err != nil {
		return "", fmt.Errorf("failed to build authentication token: %w", err)
	}
	return token, nil
}

// NewToken builds one RDS IAM token for the configured user.
func NewToken(ctx context.Context, cfg *config.DatabaseConfig) (string, error) {
	region, err := Region(ctx, cfg)
	if err != nil {
		return "", err
	}
	return buildToken(ctx, cfg, region)
}

// PgxAuthFunc resolves the region once and returns a hook that signs a new
// token for each connection. It relies on the workload's AWS role being
// allowed to connect as the configured user.
func PgxAuthFunc(
	ctx context.Context,
	cfg *config.DatabaseConfig,
) (func(ctx context.Context, connConfig *pgx.ConnConfig) error, error) {
	region, err := Region(ctx, cfg)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, connConfig *pgx.ConnConfig) error {
		token, err := buildToken(ctx, cfg, region)
		if err != nil {
			return err
		}
		connConfig.Password = token
		return nil
	}, nil
}
